package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"referrals/internal/database"
	"referrals/internal/models"
	"referrals/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database. One connection keeps every
// statement on the same memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

type recordedEvent struct {
	Type    string
	Payload any
}

type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *eventRecorder) Publish(eventType string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{Type: eventType, Payload: payload})
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type fixture struct {
	db        *gorm.DB
	referrals *repository.ReferralRepository
	slabs     *SlabService
	ledger    *ReferralService
	engine    *AccrualService
	reports   *ReportService
	events    *eventRecorder
	locks     *KeyLock
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	log := zap.NewNop()
	f := &fixture{
		db:        db,
		referrals: repository.NewReferralRepository(db),
		events:    &eventRecorder{},
		now:       time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
	}
	clock := ClockFunc(func() time.Time { return f.now })
	locks := NewKeyLock()
	f.locks = locks
	users := repository.NewUserRepository(db)

	slabs, err := NewSlabService(repository.NewSlabRepository(db), f.referrals, 8, f.events, log)
	if err != nil {
		t.Fatalf("slab service: %v", err)
	}
	f.slabs = slabs
	f.ledger = NewReferralService(f.referrals, users, locks, clock, f.events, log)
	f.engine = NewAccrualService(f.referrals, slabs, locks, f.events, log)
	f.reports = NewReportService(f.referrals, users, 10, log)
	return f
}

func (f *fixture) user(t *testing.T, id uint) *models.User {
	t.Helper()
	u := &models.User{
		ID:           id,
		Name:         fmt.Sprintf("User %d", id),
		Email:        fmt.Sprintf("user%d@example.com", id),
		ReferralCode: fmt.Sprintf("REF%04d", id),
		Role:         "USER",
	}
	if err := f.db.Create(u).Error; err != nil {
		t.Fatalf("create user %d: %v", id, err)
	}
	return u
}

func (f *fixture) slab(t *testing.T, name, min, max, pct string) *models.CommissionSlab {
	t.Helper()
	in := SlabInput{
		Name:                 name,
		MinAmount:            dec(min),
		CommissionPercentage: dec(pct),
		Active:               true,
	}
	if max != "" {
		in.MaxAmount = decimal.NewNullDecimal(dec(max))
	}
	s, err := f.slabs.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create slab %s: %v", name, err)
	}
	return s
}

// twoTiers is [0, 999.99] at 1% and [1000, unbounded) at 2%.
func (f *fixture) twoTiers(t *testing.T) (*models.CommissionSlab, *models.CommissionSlab) {
	t.Helper()
	return f.slab(t, "Basic", "0", "999.99", "1"), f.slab(t, "Plus", "1000", "", "2")
}

func (f *fixture) referral(t *testing.T, referrer, referred uint, date string) *models.Referral {
	t.Helper()
	var d time.Time
	if date != "" {
		var err error
		if d, err = time.Parse("2006-01-02", date); err != nil {
			t.Fatalf("parse %s: %v", date, err)
		}
	}
	ref, err := f.ledger.CreateReferral(context.Background(), referrer, referred, "Referred", d)
	if err != nil {
		t.Fatalf("create referral %d->%d: %v", referrer, referred, err)
	}
	return ref
}

func (f *fixture) reload(t *testing.T, id uint) *models.Referral {
	t.Helper()
	ref, err := f.referrals.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload referral %d: %v", id, err)
	}
	return ref
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s, got %s", what, want, got)
	}
}
