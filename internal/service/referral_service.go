package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"referrals/internal/domain"
	"referrals/internal/models"
	"referrals/internal/monitoring"
	"referrals/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserDirectory resolves identities owned by the user service.
type UserDirectory interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
}

// ReferralService owns referral records and their lifecycle.
type ReferralService struct {
	referralRepo *repository.ReferralRepository
	users        UserDirectory
	locks        *KeyLock
	clock        Clock
	events       EventPublisher
	log          *zap.Logger
}

func NewReferralService(
	referralRepo *repository.ReferralRepository,
	users UserDirectory,
	locks *KeyLock,
	clock Clock,
	events EventPublisher,
	log *zap.Logger,
) *ReferralService {
	if clock == nil {
		clock = SystemClock
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &ReferralService{
		referralRepo: referralRepo,
		users:        users,
		locks:        locks,
		clock:        clock,
		events:       events,
		log:          log,
	}
}

// CreateReferral records that referrerID brought in referredID on date. A
// zero date means today. The referral starts PENDING and is anchored to
// date's quarter.
func (s *ReferralService) CreateReferral(ctx context.Context, referrerID, referredID uint, displayName string, date time.Time) (*models.Referral, error) {
	if referrerID == 0 || referredID == 0 {
		return nil, domain.InvalidArgument("referrer and referred user ids are required")
	}
	if referrerID == referredID {
		return nil, domain.InvalidArgument("a user cannot refer themselves")
	}
	if date.IsZero() {
		date = s.clock.Now()
	}

	unlock := s.locks.Lock(referralKey(referredID))
	defer unlock()

	if _, err := s.referralRepo.GetReferralByReferredUserID(ctx, referredID); err == nil {
		return nil, domain.Duplicate(domain.EntityReferral, referredID)
	} else if !isNotFound(err) {
		return nil, storageErr(s.log, "find referral", err)
	}

	ref := models.NewReferral(referrerID, referredID, strings.TrimSpace(displayName), date)
	if err := s.referralRepo.CreateReferral(ctx, ref); err != nil {
		// Another instance won the race on the unique index.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, domain.Duplicate(domain.EntityReferral, referredID)
		}
		return nil, storageErr(s.log, "create referral", err)
	}

	monitoring.ReferralsCreatedTotal.Inc()
	s.log.Info("referral created",
		zap.Uint("referral_id", ref.ID),
		zap.Uint("referrer_user_id", referrerID),
		zap.Uint("referred_user_id", referredID),
		zap.Int("quarter", ref.Quarter),
		zap.Int("year", ref.Year))
	s.events.Publish(domain.EventTypeReferralCreated, ref)
	return ref, nil
}

// RegisterByCode creates a referral for a user who signed up with someone's
// referral code.
func (s *ReferralService) RegisterByCode(ctx context.Context, code string, referredID uint, displayName string) (*models.Referral, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.InvalidArgument("referral code is required")
	}
	referrer, err := s.users.GetByReferralCode(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound(domain.EntityUser, code)
		}
		return nil, storageErr(s.log, "resolve referral code", err)
	}
	return s.CreateReferral(ctx, referrer.ID, referredID, displayName, s.clock.Now())
}

// FindByReferredUser returns nil, nil when the user was not referred.
func (s *ReferralService) FindByReferredUser(ctx context.Context, referredID uint) (*models.Referral, error) {
	ref, err := s.referralRepo.GetReferralByReferredUserID(ctx, referredID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, storageErr(s.log, "find referral", err)
	}
	return ref, nil
}

func (s *ReferralService) Get(ctx context.Context, id uint) (*models.Referral, error) {
	ref, err := s.referralRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound(domain.EntityReferral, id)
		}
		return nil, storageErr(s.log, "get referral", err)
	}
	return ref, nil
}

// ListByReferrer returns one page of referrerID's referrals ordered by
// referral date.
func (s *ReferralService) ListByReferrer(ctx context.Context, referrerID uint, page, pageSize int, newestFirst bool) (*Page[models.Referral], error) {
	if err := validatePage(page, pageSize); err != nil {
		return nil, err
	}
	list, total, err := s.referralRepo.ListByReferrerID(ctx, referrerID, pageSize, (page-1)*pageSize, newestFirst)
	if err != nil {
		return nil, storageErr(s.log, "list referrals", err)
	}
	return newPage(list, page, pageSize, total), nil
}

// MarkPaid settles a referral's commission. It is serialized with accrual
// on the same referral so no increment lands after payment.
func (s *ReferralService) MarkPaid(ctx context.Context, id uint) (*models.Referral, error) {
	ref, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(referralKey(ref.ReferredUserID))
	defer unlock()

	var paid *models.Referral
	err = s.referralRepo.Transaction(ctx, func(tx *repository.ReferralRepository) error {
		locked, err := tx.GetByIDForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return domain.NotFound(domain.EntityReferral, id)
			}
			return err
		}
		next, err := domain.Advance(locked.Status, domain.EventMarkPaid)
		if err != nil {
			return domain.InvalidState(domain.EntityReferral, id, "referral is already paid")
		}
		day := today(s.clock)
		locked.Status = next
		locked.Paid = true
		locked.PaidDate = &day
		if err := tx.Save(ctx, locked); err != nil {
			return err
		}
		paid = locked
		return nil
	})
	if err != nil {
		return nil, storageErr(s.log, "mark referral paid", err)
	}

	monitoring.ReferralsPaidTotal.Inc()
	s.log.Info("referral marked paid",
		zap.Uint("referral_id", id),
		zap.Uint("referrer_user_id", paid.ReferrerUserID),
		zap.String("commission", paid.CumulativeCommission.String()))
	s.events.Publish(domain.EventTypePaid, paid)
	return paid, nil
}

// ListAccruals returns the accrual journal of a referral.
func (s *ReferralService) ListAccruals(ctx context.Context, referralID uint, page, pageSize int) (*Page[models.CommissionAccrual], error) {
	if err := validatePage(page, pageSize); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, referralID); err != nil {
		return nil, err
	}
	list, total, err := s.referralRepo.ListAccruals(ctx, referralID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, storageErr(s.log, "list accruals", err)
	}
	return newPage(list, page, pageSize, total), nil
}
