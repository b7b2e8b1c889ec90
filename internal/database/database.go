package database

import (
	"context"
	"errors"
	"time"

	"referrals/config"
	"referrals/internal/models"
	"referrals/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slabSeedKey marks that the default tiers were installed once.
const slabSeedKey = "seed.commission_slabs"

func NewDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Error), // Only log errors, not every SQL query
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// AutoMigrate runs Gorm auto-migration for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Referral{},
		&models.CommissionSlab{},
		&models.CommissionAccrual{},
		&models.SystemSetting{},
	)
}

// DefaultSlabs is the tier table installed on a fresh database.
func DefaultSlabs() []models.CommissionSlab {
	tier := func(name, desc string, min int64, max *int64, pct string) models.CommissionSlab {
		s := models.CommissionSlab{
			Name:                 name,
			Description:          desc,
			MinAmount:            decimal.NewFromInt(min),
			CommissionPercentage: decimal.RequireFromString(pct),
			Active:               true,
		}
		if max != nil {
			s.MaxAmount = decimal.NewNullDecimal(decimal.NewFromInt(*max).Sub(decimal.New(1, -2)))
		}
		return s
	}
	upTo := func(n int64) *int64 { return &n }
	return []models.CommissionSlab{
		tier("Starter", "Investments below 10,000", 0, upTo(10_000), "1.00"),
		tier("Growth", "Investments from 10,000 to 99,999.99", 10_000, upTo(100_000), "1.50"),
		tier("Premium", "Investments from 100,000 to 999,999.99", 100_000, upTo(1_000_000), "2.00"),
		tier("Elite", "Investments of 1,000,000 and above", 1_000_000, nil, "2.50"),
	}
}

// SeedSlabs installs DefaultSlabs once. Later runs are no-ops even when an
// admin has since retired every slab.
func SeedSlabs(ctx context.Context, db *gorm.DB, log *zap.Logger) error {
	settings := repository.NewSettingRepository(db)
	if _, err := settings.Get(ctx, slabSeedKey); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		slabs := repository.NewSlabRepository(tx)
		count, err := slabs.CountAll(ctx)
		if err != nil {
			return err
		}
		if count == 0 {
			defaults := DefaultSlabs()
			for i := range defaults {
				if err := slabs.Create(ctx, &defaults[i]); err != nil {
					return err
				}
			}
			log.Info("seeded default commission slabs", zap.Int("count", len(defaults)))
		}
		return repository.NewSettingRepository(tx).Set(ctx, slabSeedKey, time.Now().UTC().Format(time.RFC3339))
	})
}
