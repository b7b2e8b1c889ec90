package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"referrals/internal/domain"
	"referrals/internal/models"
	"referrals/internal/repository"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// SlabInput is the full definition of a new slab.
type SlabInput struct {
	Name                 string
	Description          string
	MinAmount            decimal.Decimal
	MaxAmount            decimal.NullDecimal
	CommissionPercentage decimal.Decimal
	Active               bool
	ApplicableQuarter    *int
	ApplicableYear       *int
}

// SlabPatch changes the non-nil fields of an existing slab. ClearMaxAmount
// removes the upper bound.
type SlabPatch struct {
	Name                 *string
	Description          *string
	MinAmount            *decimal.Decimal
	MaxAmount            *decimal.Decimal
	ClearMaxAmount       bool
	CommissionPercentage *decimal.Decimal
	Active               *bool
	ApplicableQuarter    *int
	ApplicableYear       *int
}

// SlabService is the commission slab catalog. Active slabs are cached per
// quarter/year scope; every mutation purges the cache.
type SlabService struct {
	slabRepo     *repository.SlabRepository
	referralRepo *repository.ReferralRepository
	events       EventPublisher
	log          *zap.Logger

	mu    sync.Mutex // orders cache fills against purges
	gen   uint64
	cache *lru.Cache[string, []models.CommissionSlab]
}

func NewSlabService(
	slabRepo *repository.SlabRepository,
	referralRepo *repository.ReferralRepository,
	cacheSize int,
	events EventPublisher,
	log *zap.Logger,
) (*SlabService, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	cache, err := lru.New[string, []models.CommissionSlab](cacheSize)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = nopPublisher{}
	}
	return &SlabService{
		slabRepo:     slabRepo,
		referralRepo: referralRepo,
		events:       events,
		log:          log,
		cache:        cache,
	}, nil
}

// SelectSlab returns the active slab covering amount with the highest lower
// bound, or nil when none covers it. quarter and year narrow the candidates
// to slabs scoped to that period or unscoped.
func (s *SlabService) SelectSlab(ctx context.Context, amount decimal.Decimal, quarter, year *int) (*models.CommissionSlab, error) {
	candidates, err := s.Candidates(ctx, quarter, year)
	if err != nil {
		return nil, err
	}
	return PickSlab(candidates, amount), nil
}

// Candidates returns the active slabs applicable to the given scope. The
// returned slice is shared with the cache and must not be modified.
func (s *SlabService) Candidates(ctx context.Context, quarter, year *int) ([]models.CommissionSlab, error) {
	key := scopeKey(quarter, year)
	if list, ok := s.cache.Get(key); ok {
		return list, nil
	}

	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	active, err := s.slabRepo.ListActive(ctx)
	if err != nil {
		return nil, storageErr(s.log, "list active slabs", err)
	}
	list := make([]models.CommissionSlab, 0, len(active))
	for i := range active {
		if active[i].AppliesTo(quarter, year) {
			list = append(list, active[i])
		}
	}

	s.mu.Lock()
	if s.gen == gen {
		s.cache.Add(key, list)
	}
	s.mu.Unlock()
	return list, nil
}

// PickSlab chooses among candidates the slab covering amount with the
// greatest MinAmount. Ties go to the period-scoped slab, then the lower id.
func PickSlab(candidates []models.CommissionSlab, amount decimal.Decimal) *models.CommissionSlab {
	var best *models.CommissionSlab
	for i := range candidates {
		c := &candidates[i]
		if !c.Active || !c.Covers(amount) {
			continue
		}
		if best == nil || outranks(c, best) {
			best = c
		}
	}
	if best == nil {
		return nil
	}
	out := *best
	return &out
}

func outranks(a, b *models.CommissionSlab) bool {
	if c := a.MinAmount.Cmp(b.MinAmount); c != 0 {
		return c > 0
	}
	if a.Scoped() != b.Scoped() {
		return a.Scoped()
	}
	return a.ID < b.ID
}

// MarginalCommission is increment * pct / 100 rounded half-up to cents.
func MarginalCommission(increment, pct decimal.Decimal) decimal.Decimal {
	return increment.Mul(pct).Shift(-2).Round(domain.CommissionScale)
}

func (s *SlabService) Get(ctx context.Context, id uint) (*models.CommissionSlab, error) {
	slab, err := s.slabRepo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound(domain.EntitySlab, id)
		}
		return nil, storageErr(s.log, "get slab", err)
	}
	return slab, nil
}

// ListActive returns active slabs ordered by MinAmount.
func (s *SlabService) ListActive(ctx context.Context) ([]models.CommissionSlab, error) {
	list, err := s.slabRepo.ListActive(ctx)
	if err != nil {
		return nil, storageErr(s.log, "list active slabs", err)
	}
	if list == nil {
		list = []models.CommissionSlab{}
	}
	return list, nil
}

func (s *SlabService) Create(ctx context.Context, in SlabInput) (*models.CommissionSlab, error) {
	slab := &models.CommissionSlab{
		Name:                 strings.TrimSpace(in.Name),
		Description:          in.Description,
		MinAmount:            in.MinAmount,
		MaxAmount:            in.MaxAmount,
		CommissionPercentage: in.CommissionPercentage,
		Active:               in.Active,
		ApplicableQuarter:    in.ApplicableQuarter,
		ApplicableYear:       in.ApplicableYear,
	}
	if err := validateSlab(slab); err != nil {
		return nil, err
	}
	if err := s.slabRepo.Create(ctx, slab); err != nil {
		return nil, storageErr(s.log, "create slab", err)
	}
	s.invalidate()
	s.log.Info("commission slab created",
		zap.Uint("slab_id", slab.ID),
		zap.String("name", slab.Name),
		zap.String("min_amount", slab.MinAmount.String()),
		zap.String("percentage", slab.CommissionPercentage.String()))
	s.events.Publish(domain.EventTypeSlabChanged, slab)
	return slab, nil
}

// Update applies patch. Bounds and percentage of a slab that has already
// produced accruals are frozen; retire it and create a new one instead.
func (s *SlabService) Update(ctx context.Context, id uint, patch SlabPatch) (*models.CommissionSlab, error) {
	slab, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *slab

	if patch.Name != nil {
		slab.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		slab.Description = *patch.Description
	}
	if patch.MinAmount != nil {
		slab.MinAmount = *patch.MinAmount
	}
	if patch.ClearMaxAmount {
		slab.MaxAmount = decimal.NullDecimal{}
	} else if patch.MaxAmount != nil {
		slab.MaxAmount = decimal.NewNullDecimal(*patch.MaxAmount)
	}
	if patch.CommissionPercentage != nil {
		slab.CommissionPercentage = *patch.CommissionPercentage
	}
	if patch.Active != nil {
		slab.Active = *patch.Active
	}
	if patch.ApplicableQuarter != nil {
		slab.ApplicableQuarter = patch.ApplicableQuarter
	}
	if patch.ApplicableYear != nil {
		slab.ApplicableYear = patch.ApplicableYear
	}
	if err := validateSlab(slab); err != nil {
		return nil, err
	}

	if termsChanged(&before, slab) {
		used, err := s.referralRepo.CountAccrualsBySlab(ctx, id)
		if err != nil {
			return nil, storageErr(s.log, "count slab accruals", err)
		}
		if used > 0 {
			return nil, domain.InvalidState(domain.EntitySlab, id,
				"slab already applied to referrals; deactivate it and create a new one")
		}
	}

	if err := s.slabRepo.Save(ctx, slab); err != nil {
		return nil, storageErr(s.log, "update slab", err)
	}
	s.invalidate()
	s.log.Info("commission slab updated", zap.Uint("slab_id", id), zap.Bool("active", slab.Active))
	s.events.Publish(domain.EventTypeSlabChanged, slab)
	return slab, nil
}

// Deactivate retires a slab. The row stays for history.
func (s *SlabService) Deactivate(ctx context.Context, id uint) error {
	slab, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !slab.Active {
		return nil
	}
	slab.Active = false
	if err := s.slabRepo.Save(ctx, slab); err != nil {
		return storageErr(s.log, "deactivate slab", err)
	}
	s.invalidate()
	s.log.Info("commission slab deactivated", zap.Uint("slab_id", id))
	s.events.Publish(domain.EventTypeSlabChanged, slab)
	return nil
}

func (s *SlabService) invalidate() {
	s.mu.Lock()
	s.gen++
	s.cache.Purge()
	s.mu.Unlock()
}

func termsChanged(a, b *models.CommissionSlab) bool {
	if !a.MinAmount.Equal(b.MinAmount) || !a.CommissionPercentage.Equal(b.CommissionPercentage) {
		return true
	}
	if a.MaxAmount.Valid != b.MaxAmount.Valid {
		return true
	}
	return a.MaxAmount.Valid && !a.MaxAmount.Decimal.Equal(b.MaxAmount.Decimal)
}

func validateSlab(s *models.CommissionSlab) error {
	if s.Name == "" {
		return domain.InvalidArgument("slab name is required")
	}
	if s.MinAmount.IsNegative() {
		return domain.InvalidArgument("min amount must not be negative")
	}
	if !fitsScale(s.MinAmount) || (s.MaxAmount.Valid && !fitsScale(s.MaxAmount.Decimal)) {
		return domain.InvalidArgument("amounts must have at most 2 decimal places")
	}
	if !fitsScale(s.CommissionPercentage) {
		return domain.InvalidArgument("commission percentage must have at most 2 decimal places")
	}
	if s.MaxAmount.Valid && s.MaxAmount.Decimal.LessThan(s.MinAmount) {
		return domain.InvalidArgument(fmt.Sprintf("min amount %s exceeds max amount %s", s.MinAmount, s.MaxAmount.Decimal))
	}
	if !s.CommissionPercentage.IsPositive() || s.CommissionPercentage.GreaterThan(hundred) {
		return domain.InvalidArgument("commission percentage must be in (0, 100]")
	}
	if s.ApplicableQuarter != nil && !domain.ValidQuarter(*s.ApplicableQuarter) {
		return domain.InvalidArgument("applicable quarter must be between 1 and 4")
	}
	if s.ApplicableYear != nil && *s.ApplicableYear < 1 {
		return domain.InvalidArgument("applicable year must be positive")
	}
	return nil
}

// fitsScale reports whether v is stored without rounding.
func fitsScale(v decimal.Decimal) bool {
	return v.Equal(v.Round(domain.CommissionScale))
}

func scopeKey(quarter, year *int) string {
	q, y := "*", "*"
	if quarter != nil {
		q = fmt.Sprint(*quarter)
	}
	if year != nil {
		y = fmt.Sprint(*year)
	}
	return q + "/" + y
}
