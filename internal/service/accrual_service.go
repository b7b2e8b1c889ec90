package service

import (
	"context"
	"errors"

	"referrals/internal/domain"
	"referrals/internal/models"
	"referrals/internal/monitoring"
	"referrals/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SlabSource supplies the active slabs applicable to a period.
type SlabSource interface {
	Candidates(ctx context.Context, quarter, year *int) ([]models.CommissionSlab, error)
}

// AccrualResult describes one applied investment increment.
type AccrualResult struct {
	Referral   *models.Referral       `json:"referral"`
	Slab       *models.CommissionSlab `json:"slab"` // nil when no slab covered the new total
	Increment  decimal.Decimal        `json:"increment"`
	Commission decimal.Decimal        `json:"commission"`
}

// AccrualService turns investment events into commission on the referral of
// the investing user.
type AccrualService struct {
	referralRepo *repository.ReferralRepository
	slabs        SlabSource
	locks        *KeyLock
	events       EventPublisher
	log          *zap.Logger
}

func NewAccrualService(
	referralRepo *repository.ReferralRepository,
	slabs SlabSource,
	locks *KeyLock,
	events EventPublisher,
	log *zap.Logger,
) *AccrualService {
	if events == nil {
		events = nopPublisher{}
	}
	return &AccrualService{
		referralRepo: referralRepo,
		slabs:        slabs,
		locks:        locks,
		events:       events,
		log:          log,
	}
}

// Accrue applies an investment increment by referredID. It returns nil, nil
// when the investor was not referred by anyone.
//
// The slab is chosen for the new cumulative investment and its percentage
// applies to the increment only. Each increment's commission is rounded to
// cents on its own. When no slab covers the new total the investment is still
// recorded and the commission is left unchanged.
//
// Increments must carry at most 2 decimal places: amounts are stored in
// decimal(19,2) columns, and rounding here would make the ledger disagree
// with the investment that was reported.
func (s *AccrualService) Accrue(ctx context.Context, referredID uint, increment decimal.Decimal) (*AccrualResult, error) {
	if referredID == 0 {
		return nil, domain.InvalidArgument("referred user id is required")
	}
	if !increment.IsPositive() {
		return nil, domain.InvalidArgument("investment increment must be positive")
	}
	if !fitsScale(increment) {
		return nil, domain.InvalidArgument("investment increment has more than 2 decimal places")
	}

	unlock := s.locks.Lock(referralKey(referredID))
	defer unlock()

	ref, err := s.referralRepo.GetReferralByReferredUserID(ctx, referredID)
	if err != nil {
		if isNotFound(err) {
			recordAccrualMetric(monitoring.OutcomeNotReferred, decimal.Zero)
			s.log.Debug("investment from non-referred user", zap.Uint("referred_user_id", referredID))
			return nil, nil
		}
		recordAccrualMetric(monitoring.OutcomeFailed, decimal.Zero)
		return nil, storageErr(s.log, "find referral", err)
	}

	// The anchor period never changes, so candidates can be fetched before
	// the row lock is taken.
	quarter, year := ref.Quarter, ref.Year
	candidates, err := s.slabs.Candidates(ctx, &quarter, &year)
	if err != nil {
		recordAccrualMetric(monitoring.OutcomeFailed, decimal.Zero)
		return nil, err
	}

	var res *AccrualResult
	err = s.referralRepo.Transaction(ctx, func(tx *repository.ReferralRepository) error {
		locked, err := tx.GetByIDForUpdate(ctx, ref.ID)
		if err != nil {
			if isNotFound(err) {
				return domain.NotFound(domain.EntityReferral, ref.ID)
			}
			return err
		}
		next, err := domain.Advance(locked.Status, domain.EventInvest)
		if err != nil {
			return domain.InvalidState(domain.EntityReferral, locked.ID, "commission cannot accrue on a paid referral")
		}

		cumulative := locked.CumulativeInvestment.Add(increment)
		slab := PickSlab(candidates, cumulative)
		commission := decimal.Zero
		entry := &models.CommissionAccrual{
			ReferralID:      locked.ID,
			Increment:       increment,
			CumulativeAfter: cumulative,
		}
		if slab != nil {
			commission = MarginalCommission(increment, slab.CommissionPercentage)
			locked.CommissionRate = decimal.NewNullDecimal(slab.CommissionPercentage)
			locked.CumulativeCommission = locked.CumulativeCommission.Add(commission)
			entry.SlabID = &slab.ID
			entry.Rate = locked.CommissionRate
		}
		entry.Commission = commission
		locked.CumulativeInvestment = cumulative
		locked.Status = next

		if err := tx.Save(ctx, locked); err != nil {
			return err
		}
		if err := tx.RecordAccrual(ctx, entry); err != nil {
			return err
		}
		res = &AccrualResult{Referral: locked, Slab: slab, Increment: increment, Commission: commission}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidState) {
			recordAccrualMetric(monitoring.OutcomeRejected, decimal.Zero)
			s.log.Warn("accrual rejected", zap.Uint("referred_user_id", referredID), zap.Error(err))
			return nil, err
		}
		recordAccrualMetric(monitoring.OutcomeFailed, decimal.Zero)
		return nil, storageErr(s.log, "accrue investment", err)
	}

	fields := []zap.Field{
		zap.Uint("referral_id", res.Referral.ID),
		zap.Uint("referred_user_id", referredID),
		zap.String("increment", increment.String()),
		zap.String("cumulative_investment", res.Referral.CumulativeInvestment.String()),
		zap.String("commission", res.Commission.String()),
		zap.String("cumulative_commission", res.Referral.CumulativeCommission.String()),
	}
	if res.Slab == nil {
		recordAccrualMetric(monitoring.OutcomeNoSlab, decimal.Zero)
		s.log.Info("investment recorded without matching slab", fields...)
	} else {
		recordAccrualMetric(monitoring.OutcomeAccrued, res.Commission)
		s.log.Info("commission accrued", append(fields, zap.Uint("slab_id", res.Slab.ID))...)
	}
	s.events.Publish(domain.EventTypeAccrued, res)
	return res, nil
}

func recordAccrualMetric(outcome string, commission decimal.Decimal) {
	monitoring.AccrualsTotal.WithLabelValues(outcome).Inc()
	if commission.IsPositive() {
		f, _ := commission.Float64()
		monitoring.CommissionAccruedTotal.Add(f)
	}
}
