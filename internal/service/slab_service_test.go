package service

import (
	"context"
	"errors"
	"testing"

	"referrals/internal/domain"
	"referrals/internal/models"

	"github.com/shopspring/decimal"
)

func intp(v int) *int { return &v }

func TestSelectSlab_Boundaries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.slab(t, "Basic", "0", "999.99", "1")
	f.slab(t, "Plus", "1000", "4999.99", "2")
	f.slab(t, "Gold", "5000", "", "3")

	cases := []struct {
		amount string
		want   string
	}{
		{"0", "Basic"},
		{"999", "Basic"},
		{"999.99", "Basic"},
		{"1000", "Plus"},
		{"4999.99", "Plus"},
		{"5000", "Gold"},
		{"10000000", "Gold"},
	}
	for _, tc := range cases {
		got, err := f.slabs.SelectSlab(ctx, dec(tc.amount), nil, nil)
		if err != nil {
			t.Fatalf("select %s: %v", tc.amount, err)
		}
		if got == nil || got.Name != tc.want {
			t.Fatalf("select %s: expected %s, got %+v", tc.amount, tc.want, got)
		}
	}
}

func TestSelectSlab_NoMatch(t *testing.T) {
	f := newFixture(t)
	f.slab(t, "Mid", "100", "200", "1")

	for _, amount := range []string{"50", "200.01"} {
		got, err := f.slabs.SelectSlab(context.Background(), dec(amount), nil, nil)
		if err != nil {
			t.Fatalf("select %s: %v", amount, err)
		}
		if got != nil {
			t.Fatalf("select %s: expected no slab, got %s", amount, got.Name)
		}
	}
}

func TestSelectSlab_HighestMinWinsOnOverlap(t *testing.T) {
	f := newFixture(t)
	f.slab(t, "Wide", "0", "", "1")
	f.slab(t, "Narrow", "500", "800", "4")

	got, err := f.slabs.SelectSlab(context.Background(), dec("600"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "Narrow" {
		t.Fatalf("expected Narrow, got %+v", got)
	}
}

func TestSelectSlab_ScopeFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.slab(t, "Always", "0", "", "1")
	_, err := f.slabs.Create(ctx, SlabInput{
		Name:                 "Q1 promo",
		MinAmount:            dec("0"),
		CommissionPercentage: dec("5"),
		Active:               true,
		ApplicableQuarter:    intp(1),
		ApplicableYear:       intp(2024),
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.slabs.SelectSlab(ctx, dec("100"), intp(1), intp(2024))
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "Q1 promo" {
		t.Fatalf("Q1 2024: expected Q1 promo, got %+v", got)
	}

	got, err = f.slabs.SelectSlab(ctx, dec("100"), intp(2), intp(2024))
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Name != "Always" {
		t.Fatalf("Q2 2024: expected Always, got %+v", got)
	}
}

func TestPickSlab_TieBreaks(t *testing.T) {
	q := 3
	candidates := []models.CommissionSlab{
		{ID: 4, Name: "later", MinAmount: dec("100"), CommissionPercentage: dec("2"), Active: true},
		{ID: 2, Name: "earlier", MinAmount: dec("100"), CommissionPercentage: dec("3"), Active: true},
		{ID: 1, Name: "retired", MinAmount: dec("100"), CommissionPercentage: dec("9"), Active: false},
	}
	got := PickSlab(candidates, dec("150"))
	if got == nil || got.ID != 2 {
		t.Fatalf("expected lower id 2, got %+v", got)
	}

	candidates = append(candidates, models.CommissionSlab{
		ID: 9, Name: "scoped", MinAmount: dec("100"), CommissionPercentage: dec("1"), Active: true, ApplicableQuarter: &q,
	})
	got = PickSlab(candidates, dec("150"))
	if got == nil || got.ID != 9 {
		t.Fatalf("expected scoped slab 9, got %+v", got)
	}

	if PickSlab(candidates, dec("99.99")) != nil {
		t.Fatal("expected nil below every lower bound")
	}
	if PickSlab(nil, dec("1")) != nil {
		t.Fatal("expected nil for empty candidates")
	}
}

func TestMarginalCommission_RoundsHalfUp(t *testing.T) {
	cases := []struct{ increment, pct, want string }{
		{"500", "1", "5"},
		{"500", "2", "10"},
		{"1234.50", "1", "12.35"},
		{"0.50", "1", "0.01"},
		{"0.49", "1", "0"},
		{"333.33", "1.5", "5"},
	}
	for _, tc := range cases {
		got := MarginalCommission(dec(tc.increment), dec(tc.pct))
		assertDecimal(t, tc.increment+" at "+tc.pct+"%", got, tc.want)
	}
}

func TestSlabCache_InvalidatedOnMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	basic, plus := f.twoTiers(t)

	got, err := f.slabs.SelectSlab(ctx, dec("1500"), nil, nil)
	if err != nil || got == nil || got.ID != plus.ID {
		t.Fatalf("expected Plus before change, got %+v, %v", got, err)
	}

	pct := dec("2.5")
	if _, err := f.slabs.Update(ctx, plus.ID, SlabPatch{CommissionPercentage: &pct}); err != nil {
		t.Fatalf("update unused slab: %v", err)
	}
	got, err = f.slabs.SelectSlab(ctx, dec("1500"), nil, nil)
	if err != nil || got == nil {
		t.Fatalf("select after update: %+v, %v", got, err)
	}
	assertDecimal(t, "percentage after update", got.CommissionPercentage, "2.5")

	if err := f.slabs.Deactivate(ctx, plus.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	got, err = f.slabs.SelectSlab(ctx, dec("1500"), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected no slab after deactivation, got %s", got.Name)
	}

	active, err := f.slabs.ListActive(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 1 || active[0].ID != basic.ID {
		t.Fatalf("expected only Basic active, got %+v", active)
	}

	// Deactivated slabs stay readable.
	retired, err := f.slabs.Get(ctx, plus.ID)
	if err != nil {
		t.Fatalf("get retired slab: %v", err)
	}
	if retired.Active {
		t.Fatal("retired slab still active")
	}
}

func TestSlabUpdate_UsedSlabTermsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	basic, _ := f.twoTiers(t)
	f.user(t, 1)
	f.referral(t, 1, 2, "2024-02-15")
	if _, err := f.engine.Accrue(ctx, 2, dec("100")); err != nil {
		t.Fatalf("accrue: %v", err)
	}

	pct := dec("7")
	_, err := f.slabs.Update(ctx, basic.ID, SlabPatch{CommissionPercentage: &pct})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState changing a used slab, got %v", err)
	}
	upper := dec("1500")
	_, err = f.slabs.Update(ctx, basic.ID, SlabPatch{MaxAmount: &upper})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState moving a used slab bound, got %v", err)
	}

	name := "Basic tier"
	updated, err := f.slabs.Update(ctx, basic.ID, SlabPatch{Name: &name})
	if err != nil {
		t.Fatalf("renaming a used slab: %v", err)
	}
	if updated.Name != name {
		t.Fatalf("expected name %q, got %q", name, updated.Name)
	}
	if err := f.slabs.Deactivate(ctx, basic.ID); err != nil {
		t.Fatalf("deactivating a used slab: %v", err)
	}
}

func TestSlabCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	valid := func() SlabInput {
		return SlabInput{Name: "T", MinAmount: dec("0"), CommissionPercentage: dec("1"), Active: true}
	}

	cases := map[string]func(*SlabInput){
		"empty name":       func(in *SlabInput) { in.Name = "  " },
		"negative min":     func(in *SlabInput) { in.MinAmount = dec("-1") },
		"max below min":    func(in *SlabInput) { in.MinAmount = dec("10"); in.MaxAmount = decimal.NewNullDecimal(dec("5")) },
		"zero percentage":  func(in *SlabInput) { in.CommissionPercentage = decimal.Zero },
		"over 100 percent": func(in *SlabInput) { in.CommissionPercentage = dec("100.01") },
		"quarter 5":        func(in *SlabInput) { in.ApplicableQuarter = intp(5) },
		"percentage scale": func(in *SlabInput) { in.CommissionPercentage = dec("1.125") },
		"min scale":        func(in *SlabInput) { in.MinAmount = dec("10.001") },
		"max scale":        func(in *SlabInput) { in.MaxAmount = decimal.NewNullDecimal(dec("999.999")) },
	}
	for name, mutate := range cases {
		in := valid()
		mutate(&in)
		if _, err := f.slabs.Create(ctx, in); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("%s: expected ErrInvalidArgument, got %v", name, err)
		}
	}

	pct := dec("1.125")
	ok := f.slab(t, "Cents", "0", "", "1.25")
	if _, err := f.slabs.Update(ctx, ok.ID, SlabPatch{CommissionPercentage: &pct}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("update to 1.125%%: expected ErrInvalidArgument, got %v", err)
	}

	if _, err := f.slabs.Get(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing slab, got %v", err)
	}
}
