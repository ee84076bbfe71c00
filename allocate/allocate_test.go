package allocate

import (
	"testing"

	"github.com/shopspring/decimal"
)

func pct(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// TestAllocate_ExactHalves checks a budget that divides evenly across
// two equal-share cohorts with no rounding loss.
func TestAllocate_ExactHalves(t *testing.T) {
	cohorts := []CohortInput{
		{Name: "a", SharePercentage: pct("0.5"), TotalEntitlements: 10},
		{Name: "b", SharePercentage: pct("0.5"), TotalEntitlements: 10},
	}
	out, err := Allocate(1000, cohorts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Budget != 500 || out[1].Budget != 500 {
		t.Fatalf("expected 500/500 split, got %+v", out)
	}
	if out[0].AmountPerEntitlement != 50 || out[0].Dust != 0 {
		t.Fatalf("expected amount_per_entitlement=50 dust=0, got %+v", out[0])
	}
}

// TestAllocate_ResidualGoesToEarlierCohortsInInputOrder mirrors
// scenario S3: three equal-third shares over a budget not divisible
// by three, where the leftover base units go to the first cohorts
// encountered, in the order they appear in the input.
func TestAllocate_ResidualGoesToEarlierCohortsInInputOrder(t *testing.T) {
	third := pct("0.3333333333333333333333333333")
	remainder := decimal.NewFromInt(1).Sub(third).Sub(third)
	cohorts := []CohortInput{
		{Name: "a", SharePercentage: third, TotalEntitlements: 1},
		{Name: "b", SharePercentage: third, TotalEntitlements: 1},
		{Name: "c", SharePercentage: remainder, TotalEntitlements: 1},
	}
	out, err := Allocate(100, cohorts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var total uint64
	for _, c := range out {
		total += c.Budget
	}
	if total != 100 {
		t.Fatalf("expected budgets to sum to 100, got %d", total)
	}
	if out[0].Budget != 34 {
		t.Fatalf("expected first cohort to absorb the residual unit, got %d", out[0].Budget)
	}
}

func TestAllocate_RejectsNonPositiveShare(t *testing.T) {
	cohorts := []CohortInput{
		{Name: "a", SharePercentage: decimal.Zero, TotalEntitlements: 1},
	}
	_, err := Allocate(100, cohorts)
	if err == nil {
		t.Fatalf("expected error for non-positive share")
	}
	allocErr, ok := err.(*Error)
	if !ok || allocErr.Code != ErrNonPositiveShare {
		t.Fatalf("expected ErrNonPositiveShare, got %v", err)
	}
}

func TestAllocate_RejectsZeroEntitlementsWithPositiveShare(t *testing.T) {
	cohorts := []CohortInput{
		{Name: "a", SharePercentage: decimal.NewFromInt(1), TotalEntitlements: 0},
	}
	_, err := Allocate(100, cohorts)
	if err == nil {
		t.Fatalf("expected error for zero entitlements")
	}
	allocErr, ok := err.(*Error)
	if !ok || allocErr.Code != ErrZeroEntitlements {
		t.Fatalf("expected ErrZeroEntitlements, got %v", err)
	}
}

func TestAllocate_ZeroBudgetProducesZeroForAllCohorts(t *testing.T) {
	cohorts := []CohortInput{
		{Name: "a", SharePercentage: pct("0.5"), TotalEntitlements: 1},
		{Name: "b", SharePercentage: pct("0.5"), TotalEntitlements: 1},
	}
	out, err := Allocate(0, cohorts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, c := range out {
		if c.Budget != 0 || c.AmountPerEntitlement != 0 || c.Dust != 0 {
			t.Fatalf("expected all-zero allocation for zero budget, got %+v", c)
		}
	}
}

func TestAllocate_DustCapturesUndistributedRemainder(t *testing.T) {
	cohorts := []CohortInput{
		{Name: "a", SharePercentage: decimal.NewFromInt(1), TotalEntitlements: 3},
	}
	out, err := Allocate(10, cohorts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].AmountPerEntitlement != 3 {
		t.Fatalf("expected amount_per_entitlement=3, got %d", out[0].AmountPerEntitlement)
	}
	if out[0].Dust != 1 {
		t.Fatalf("expected dust=1, got %d", out[0].Dust)
	}
}

func TestPerLeafPayout_RejectsOverflow(t *testing.T) {
	_, err := PerLeafPayout(^uint64(0), 2)
	if err == nil {
		t.Fatalf("expected overflow error")
	}
}

func TestPerLeafPayout_ComputesProduct(t *testing.T) {
	got, err := PerLeafPayout(7, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 21 {
		t.Fatalf("expected 21, got %d", got)
	}
}
