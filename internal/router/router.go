package router

import (
	"context"
	"net/http"

	"referrals/config"
	"referrals/internal/domain"
	"referrals/internal/handler"
	"referrals/internal/middleware"
	"referrals/internal/repository"
	"referrals/internal/service"
	"referrals/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Setup wires repositories, services and handlers onto a gin engine. ctx
// bounds background work such as the rate limiter sweeper.
func Setup(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger) (*gin.Engine, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(log))
	r.Use(middleware.RateLimit(middleware.NewInMemoryRateLimiter(ctx, cfg.Server.RateLimit, cfg.Server.RateWindow)))

	// Repositories
	userRepo := repository.NewUserRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	slabRepo := repository.NewSlabRepository(db)

	feedHub := ws.NewHub(domain.RoleAdmin)

	// Services
	locks := service.NewKeyLock()
	slabSvc, err := service.NewSlabService(slabRepo, referralRepo, cfg.Cache.SlabEntries, feedHub, log.Named("slabs"))
	if err != nil {
		return nil, err
	}
	referralSvc := service.NewReferralService(referralRepo, userRepo, locks, service.SystemClock, feedHub, log.Named("referrals"))
	accrualSvc := service.NewAccrualService(referralRepo, slabSvc, locks, feedHub, log.Named("accruals"))
	reportSvc := service.NewReportService(referralRepo, userRepo, cfg.Referral.RecentLimit, log.Named("reports"))

	// Handlers
	referralHandler := handler.NewReferralHandler(referralSvc, reportSvc, &cfg.Referral)
	slabHandler := handler.NewSlabHandler(slabSvc)
	adminHandler := handler.NewAdminHandler(referralSvc, reportSvc, &cfg.Referral)
	internalHandler := handler.NewInternalHandler(referralSvc, accrualSvc)

	authMw := middleware.AuthRequired(&cfg.JWT)
	adminMw := middleware.AdminRequired()

	api := r.Group("/api/v1")
	{
		referrals := api.Group("/referrals")
		referrals.Use(authMw)
		{
			user := referrals.Group("/user/:userId", middleware.SelfOrAdmin())
			{
				user.GET("", referralHandler.List)
				user.GET("/summary", referralHandler.Summary)
				user.GET("/quarter", referralHandler.Quarter)
				user.GET("/commission", referralHandler.Commission)
			}

			slabs := referrals.Group("/commission-slabs")
			{
				slabs.GET("", slabHandler.List)
				slabs.GET("/:id", slabHandler.Get)
				slabs.POST("", adminMw, slabHandler.Create)
				slabs.PUT("/:id", adminMw, slabHandler.Update)
				slabs.DELETE("/:id", adminMw, slabHandler.Deactivate)
			}

			admin := referrals.Group("/admin", adminMw)
			{
				admin.GET("/quarter", adminHandler.QuarterRanking)
				admin.GET("/:referralId", adminHandler.GetReferral)
				admin.GET("/:referralId/accruals", adminHandler.Accruals)
				admin.POST("/:referralId/mark-paid", adminHandler.MarkPaid)
			}
		}

		internal := api.Group("/internal", middleware.ServiceKeyRequired(cfg.Internal.ServiceKey, log))
		{
			internal.POST("/referrals", internalHandler.CreateReferral)
			internal.POST("/investments", internalHandler.RecordInvestment)
		}
	}

	r.GET("/ws/referrals", ws.UpgradeReferralFeed(&cfg.JWT, feedHub))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "feed_clients": feedHub.ClientCount()})
	})

	return r, nil
}
