package handler

import (
	"net/http"

	"referrals/config"
	"referrals/internal/service"

	"github.com/gin-gonic/gin"
)

type ReferralHandler struct {
	referralSvc *service.ReferralService
	reportSvc   *service.ReportService
	cfg         *config.ReferralConfig
}

func NewReferralHandler(referralSvc *service.ReferralService, reportSvc *service.ReportService, cfg *config.ReferralConfig) *ReferralHandler {
	return &ReferralHandler{referralSvc: referralSvc, reportSvc: reportSvc, cfg: cfg}
}

// Summary handles GET /referrals/user/:userId/summary.
func (h *ReferralHandler) Summary(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	summary, err := h.reportSvc.SummaryForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", summary)
}

// List handles GET /referrals/user/:userId?page=&limit=&sort=asc|desc.
func (h *ReferralHandler) List(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	page, limit := parsePagination(c, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	newestFirst := c.DefaultQuery("sort", "desc") != "asc"
	out, err := h.referralSvc.ListByReferrer(c.Request.Context(), userID, page, limit, newestFirst)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", out)
}

// Quarter handles GET /referrals/user/:userId/quarter?quarter=&year=.
func (h *ReferralHandler) Quarter(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	quarter, year, ok := parsePeriod(c)
	if !ok {
		return
	}
	list, err := h.reportSvc.ReferralsForQuarter(c.Request.Context(), userID, quarter, year)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", list)
}

// Commission handles GET /referrals/user/:userId/commission?quarter=&year=.
func (h *ReferralHandler) Commission(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}
	quarter, year, ok := parsePeriod(c)
	if !ok {
		return
	}
	sum, err := h.reportSvc.CommissionForQuarter(c.Request.Context(), userID, quarter, year)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusOK, "", sum)
}
