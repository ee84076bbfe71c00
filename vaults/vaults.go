// Package vaults assigns claimants to a bounded set of on-chain token
// vaults by round-robin over a lexicographically sorted claimant list,
// so that vault membership is a pure, deterministic function of a
// cohort's claimant set and the vault capacity.
package vaults

import (
	"fmt"
	"sort"
)

// ErrorCode identifies the category of a vault-assignment failure.
type ErrorCode string

const ErrVaultLimitExceeded ErrorCode = "VAULT_LIMIT_EXCEEDED"

// Error reports a vault-count computation that would exceed the
// single-byte vault index used on chain.
type Error struct {
	Code               ErrorCode
	ClaimantCount      int
	CapacityPerVault   int
	ComputedVaultCount int
	Msg                string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// MaxVaultCount is the largest number of vaults a single cohort may
// require.
const MaxVaultCount = 255

// Assignment maps one claimant address to the vault index it draws
// its payout from.
type Assignment struct {
	Claimant   string
	VaultIndex uint8
}

// Assign sorts claimants lexicographically by address and assigns
// each to vault index (i mod V), where V = ceil(N / capacityPerVault),
// per spec §4.3. It fails closed if V would not fit in a single byte.
func Assign(claimants []string, capacityPerVault int) ([]Assignment, int, error) {
	if capacityPerVault <= 0 {
		return nil, 0, &Error{
			Code: ErrVaultLimitExceeded,
			Msg:  "capacity per vault must be positive",
		}
	}

	n := len(claimants)
	vaultCount := (n + capacityPerVault - 1) / capacityPerVault
	if vaultCount == 0 {
		vaultCount = 1
	}
	if vaultCount > MaxVaultCount {
		return nil, 0, &Error{
			Code:               ErrVaultLimitExceeded,
			ClaimantCount:      n,
			CapacityPerVault:   capacityPerVault,
			ComputedVaultCount: vaultCount,
			Msg: fmt.Sprintf(
				"computed vault count %d exceeds the %d-vault limit for %d claimants at capacity %d",
				vaultCount, MaxVaultCount, n, capacityPerVault,
			),
		}
	}

	sorted := make([]string, n)
	copy(sorted, claimants)
	sort.Strings(sorted)

	out := make([]Assignment, n)
	for i, claimant := range sorted {
		out[i] = Assignment{
			Claimant:   claimant,
			VaultIndex: uint8(i % vaultCount),
		}
	}
	return out, vaultCount, nil
}
