package service

import (
	"context"
	"testing"
	"time"

	"referrals/internal/domain"
	"referrals/internal/models"

	"go.uber.org/zap"
)

const blockedFor = 100 * time.Millisecond

// gatedSlabs pauses Candidates until release is closed. Accrue calls it with
// the referral lock held, so a paused accrual is an in-flight accrual.
type gatedSlabs struct {
	next    SlabSource
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSlabs) Candidates(ctx context.Context, quarter, year *int) ([]models.CommissionSlab, error) {
	close(g.entered)
	<-g.release
	return g.next.Candidates(ctx, quarter, year)
}

func assertBlocked(t *testing.T, done <-chan error, what string) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("%s finished while the referral was locked (err=%v)", what, err)
	case <-time.After(blockedFor):
	}
}

func assertDone(t *testing.T, done <-chan error, what string) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("%s: %v", what, err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("%s did not finish after the lock was released", what)
	}
}

func TestAccrue_WaitsForReferralLock(t *testing.T) {
	f := newFixture(t)
	f.slab(t, "Flat", "0", "", "1")
	f.user(t, 1)
	ref := f.referral(t, 1, 2, "2024-02-15")

	unlock := f.locks.Lock(referralKey(2))
	done := make(chan error, 1)
	go func() {
		_, err := f.engine.Accrue(context.Background(), 2, dec("100"))
		done <- err
	}()
	assertBlocked(t, done, "accrual")
	assertDecimal(t, "investment while blocked", f.reload(t, ref.ID).CumulativeInvestment, "0")

	unlock()
	assertDone(t, done, "accrual")
	got := f.reload(t, ref.ID)
	assertDecimal(t, "investment", got.CumulativeInvestment, "100")
	assertDecimal(t, "commission", got.CumulativeCommission, "1")
}

func TestMarkPaid_WaitsForReferralLock(t *testing.T) {
	f := newFixture(t)
	f.user(t, 1)
	ref := f.referral(t, 1, 2, "2024-02-15")

	unlock := f.locks.Lock(referralKey(2))
	done := make(chan error, 1)
	go func() {
		_, err := f.ledger.MarkPaid(context.Background(), ref.ID)
		done <- err
	}()
	assertBlocked(t, done, "mark paid")
	if got := f.reload(t, ref.ID); got.Paid {
		t.Fatal("referral paid while the lock was held")
	}

	unlock()
	assertDone(t, done, "mark paid")
	if got := f.reload(t, ref.ID); got.Status != domain.StatusPaid {
		t.Fatalf("expected PAID, got %s", got.Status)
	}
}

func TestCreateReferral_WaitsForReferralLock(t *testing.T) {
	f := newFixture(t)
	f.user(t, 1)

	unlock := f.locks.Lock(referralKey(3))
	done := make(chan error, 1)
	go func() {
		_, err := f.ledger.CreateReferral(context.Background(), 1, 3, "Late", time.Time{})
		done <- err
	}()
	assertBlocked(t, done, "create referral")

	unlock()
	assertDone(t, done, "create referral")
	if found, err := f.ledger.FindByReferredUser(context.Background(), 3); err != nil || found == nil {
		t.Fatalf("expected referral for user 3, got %+v, %v", found, err)
	}
}

func TestMarkPaid_WaitsForInFlightAccrual(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.slab(t, "Flat", "0", "", "2")
	f.user(t, 1)
	ref := f.referral(t, 1, 2, "2024-02-15")

	gate := &gatedSlabs{next: f.slabs, entered: make(chan struct{}), release: make(chan struct{})}
	engine := NewAccrualService(f.referrals, gate, f.locks, nil, zap.NewNop())

	accrued := make(chan error, 1)
	go func() {
		_, err := engine.Accrue(ctx, 2, dec("500"))
		accrued <- err
	}()
	select {
	case <-gate.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("accrual never reached slab selection")
	}

	paid := make(chan error, 1)
	go func() {
		_, err := f.ledger.MarkPaid(ctx, ref.ID)
		paid <- err
	}()
	assertBlocked(t, paid, "mark paid during accrual")

	close(gate.release)
	assertDone(t, accrued, "accrual")
	assertDone(t, paid, "mark paid")

	got := f.reload(t, ref.ID)
	if got.Status != domain.StatusPaid {
		t.Fatalf("expected PAID, got %s", got.Status)
	}
	assertDecimal(t, "investment", got.CumulativeInvestment, "500")
	assertDecimal(t, "commission", got.CumulativeCommission, "10")
}
