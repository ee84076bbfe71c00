package compiler

import (
	"fmt"

	"github.com/levicook/prism-protocol-sub001/addressing"
)

// maxClaimantsPerVault is the configuration ceiling on claimants per
// vault: 255 × 255.
const maxClaimantsPerVault = 255 * 255

// Config is the full set of inputs to one compiler run.
type Config struct {
	ClaimantsCSVPath  string
	CohortsCSVPath    string
	DatabasePath      string
	ProgramID         addressing.PublicKey
	AdminPubkey       addressing.PublicKey
	MintPubkey        addressing.PublicKey
	TotalBudget       uint64
	ClaimantsPerVault int
	ClaimTreeVersion  ClaimTreeVersion
}

// ValidateConfig checks every field of cfg that can be checked
// without reading the input files, one explicit check per field.
func ValidateConfig(cfg Config) error {
	if cfg.ClaimantsCSVPath == "" {
		return newError(KindInput, "claimants_csv_path is required")
	}
	if cfg.CohortsCSVPath == "" {
		return newError(KindInput, "cohorts_csv_path is required")
	}
	if cfg.DatabasePath == "" {
		return newError(KindInput, "database_path is required")
	}
	if cfg.ClaimantsPerVault <= 0 {
		return newError(KindInput, fmt.Sprintf("claimants_per_vault must be positive, got %d", cfg.ClaimantsPerVault))
	}
	if cfg.ClaimantsPerVault > maxClaimantsPerVault {
		return newError(KindInput, fmt.Sprintf("claimants_per_vault must be <= %d, got %d", maxClaimantsPerVault, cfg.ClaimantsPerVault))
	}
	if !cfg.ClaimTreeVersion.Valid() {
		return newError(KindInput, fmt.Sprintf("claim_tree_version %q is not one of v0, v1", cfg.ClaimTreeVersion))
	}
	return nil
}
