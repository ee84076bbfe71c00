// Package allocate turns a campaign's total token budget into
// per-cohort and per-claimant payouts using exact-decimal arithmetic,
// so that rounding loss is controlled and reproducible rather than an
// artifact of binary floating point.
package allocate

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// CohortInput is one cohort's share of the campaign budget together
// with the total entitlements claimed across its claimants.
type CohortInput struct {
	Name              string
	SharePercentage   decimal.Decimal
	TotalEntitlements uint64
}

// CohortAllocation is the result of distributing the campaign budget
// across a single cohort.
type CohortAllocation struct {
	Name                 string
	Budget               uint64
	AmountPerEntitlement uint64
	Dust                 uint64
}

var maxUint64 = new(big.Int).SetUint64(^uint64(0))

// Allocate splits totalBudget across cohorts in proportion to their
// share percentages, using floor division and distributing the
// resulting residual one base unit at a time, in input order, per
// spec §4.2. Cohort shares are assumed to already sum to exactly one
// (ingest.ReadCohorts enforces this); Allocate re-derives the floor
// shares independently rather than trusting a caller-supplied total.
func Allocate(totalBudget uint64, cohorts []CohortInput) ([]CohortAllocation, error) {
	budget := decimal.NewFromBigInt(new(big.Int).SetUint64(totalBudget), 0)

	floors := make([]decimal.Decimal, len(cohorts))
	sumFloors := decimal.Zero
	for i, c := range cohorts {
		if c.SharePercentage.Sign() <= 0 {
			return nil, allocErr(ErrNonPositiveShare, c.Name, "share percentage must be positive")
		}
		raw := budget.Mul(c.SharePercentage)
		floors[i] = raw.Floor()
		sumFloors = sumFloors.Add(floors[i])
	}

	residual := budget.Sub(sumFloors)
	if residual.Sign() < 0 {
		return nil, allocErr(ErrOverflow, "", "floor allocation exceeded total budget")
	}

	one := decimal.NewFromInt(1)
	for i := range cohorts {
		if residual.Sign() <= 0 {
			break
		}
		floors[i] = floors[i].Add(one)
		residual = residual.Sub(one)
	}
	if residual.Sign() != 0 {
		return nil, allocErr(ErrOverflow, "", "residual distribution did not converge to zero")
	}

	out := make([]CohortAllocation, len(cohorts))
	for i, c := range cohorts {
		if c.TotalEntitlements == 0 {
			return nil, allocErr(ErrZeroEntitlements, c.Name, "cohort has a positive share but zero total entitlements")
		}

		cohortBudget, err := toUint64(floors[i], c.Name)
		if err != nil {
			return nil, err
		}

		entitlements := decimal.NewFromBigInt(new(big.Int).SetUint64(c.TotalEntitlements), 0)
		amountPerEntitlement := floors[i].Div(entitlements).Floor()
		amountPerEntitlementU64, err := toUint64(amountPerEntitlement, c.Name)
		if err != nil {
			return nil, err
		}

		spent := amountPerEntitlement.Mul(entitlements)
		dust := floors[i].Sub(spent)
		dustU64, err := toUint64(dust, c.Name)
		if err != nil {
			return nil, err
		}

		out[i] = CohortAllocation{
			Name:                 c.Name,
			Budget:               cohortBudget,
			AmountPerEntitlement: amountPerEntitlementU64,
			Dust:                 dustU64,
		}
	}

	return out, nil
}

// PerLeafPayout computes a single claimant's payout within a cohort,
// rejecting uint64 overflow rather than silently wrapping.
func PerLeafPayout(entitlements, amountPerEntitlement uint64) (uint64, error) {
	product := new(big.Int).Mul(
		new(big.Int).SetUint64(entitlements),
		new(big.Int).SetUint64(amountPerEntitlement),
	)
	if product.Cmp(maxUint64) > 0 {
		return 0, allocErr(ErrOverflow, "", "per-leaf payout overflows uint64")
	}
	return product.Uint64(), nil
}

func toUint64(d decimal.Decimal, cohort string) (uint64, error) {
	if d.Sign() < 0 {
		return 0, allocErr(ErrOverflow, cohort, "computed a negative amount")
	}
	bi := d.BigInt()
	if bi.Cmp(maxUint64) > 0 {
		return 0, allocErr(ErrOverflow, cohort, "computed amount exceeds uint64 range")
	}
	return bi.Uint64(), nil
}
