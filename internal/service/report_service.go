package service

import (
	"context"

	"referrals/internal/domain"
	"referrals/internal/models"
	"referrals/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReferralSummary is a referrer's overview.
type ReferralSummary struct {
	UserID                uint              `json:"user_id"`
	ReferralCode          string            `json:"referral_code"`
	TotalReferrals        int64             `json:"total_referrals"`
	TotalCommissionEarned decimal.Decimal   `json:"total_commission_earned"`
	PendingCommission     decimal.Decimal   `json:"pending_commission"`
	RecentReferrals       []models.Referral `json:"recent_referrals"`
}

// ReportService answers read-only questions about the ledger. Quarter
// filters always use the quarter a referral was anchored to at creation.
type ReportService struct {
	referralRepo *repository.ReferralRepository
	users        UserDirectory
	recentLimit  int
	log          *zap.Logger
}

func NewReportService(referralRepo *repository.ReferralRepository, users UserDirectory, recentLimit int, log *zap.Logger) *ReportService {
	if recentLimit < 1 {
		recentLimit = 10
	}
	return &ReportService{referralRepo: referralRepo, users: users, recentLimit: recentLimit, log: log}
}

// SummaryForUser totals a referrer's referrals. Paid referrals count towards
// the total but not towards pending commission.
func (s *ReportService) SummaryForUser(ctx context.Context, userID uint) (*ReferralSummary, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound(domain.EntityUser, userID)
		}
		return nil, storageErr(s.log, "get user", err)
	}

	count, err := s.referralRepo.CountByReferrer(ctx, userID)
	if err != nil {
		return nil, storageErr(s.log, "count referrals", err)
	}
	total, err := s.referralRepo.SumCommission(ctx, userID)
	if err != nil {
		return nil, storageErr(s.log, "sum commission", err)
	}
	pending, err := s.referralRepo.SumPendingCommission(ctx, userID)
	if err != nil {
		return nil, storageErr(s.log, "sum pending commission", err)
	}
	recent, _, err := s.referralRepo.ListByReferrerID(ctx, userID, s.recentLimit, 0, true)
	if err != nil {
		return nil, storageErr(s.log, "list recent referrals", err)
	}
	if recent == nil {
		recent = []models.Referral{}
	}

	return &ReferralSummary{
		UserID:                userID,
		ReferralCode:          user.ReferralCode,
		TotalReferrals:        count,
		TotalCommissionEarned: total,
		PendingCommission:     pending,
		RecentReferrals:       recent,
	}, nil
}

func (s *ReportService) ReferralsForQuarter(ctx context.Context, userID uint, quarter, year int) ([]models.Referral, error) {
	if err := validatePeriod(quarter, year); err != nil {
		return nil, err
	}
	list, err := s.referralRepo.ListByReferrerAndPeriod(ctx, userID, quarter, year)
	if err != nil {
		return nil, storageErr(s.log, "list referrals for quarter", err)
	}
	if list == nil {
		list = []models.Referral{}
	}
	return list, nil
}

// CommissionForQuarter is zero when the referrer has nothing in that quarter.
func (s *ReportService) CommissionForQuarter(ctx context.Context, userID uint, quarter, year int) (decimal.Decimal, error) {
	if err := validatePeriod(quarter, year); err != nil {
		return decimal.Zero, err
	}
	sum, err := s.referralRepo.SumCommissionForPeriod(ctx, userID, quarter, year)
	if err != nil {
		return decimal.Zero, storageErr(s.log, "sum commission for quarter", err)
	}
	return sum, nil
}

// AllReferralsForQuarter ranks every referral anchored to the quarter by
// commission, highest first.
func (s *ReportService) AllReferralsForQuarter(ctx context.Context, quarter, year int) ([]models.Referral, error) {
	if err := validatePeriod(quarter, year); err != nil {
		return nil, err
	}
	list, err := s.referralRepo.ListForPeriod(ctx, quarter, year)
	if err != nil {
		return nil, storageErr(s.log, "list referrals for quarter", err)
	}
	if list == nil {
		list = []models.Referral{}
	}
	return list, nil
}
