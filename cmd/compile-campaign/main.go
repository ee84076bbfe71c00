// Command compile-campaign runs the campaign compiler pipeline
// against a pair of input CSVs and writes a compiled campaign
// database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/levicook/prism-protocol-sub001/addressing"
	"github.com/levicook/prism-protocol-sub001/compiler"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("compile-campaign", flag.ContinueOnError)
	fs.SetOutput(stderr)

	claimantsCSV := fs.String("claimants", "", "path to the claimants CSV")
	cohortsCSV := fs.String("cohorts", "", "path to the cohorts CSV")
	dbPath := fs.String("out", "", "path to write the compiled campaign database")
	programID := fs.String("program-id", "", "base58 program id the addresses are derived against")
	admin := fs.String("admin", "", "base58 admin public key")
	mint := fs.String("mint", "", "base58 mint public key")
	totalBudget := fs.Uint64("total-budget", 0, "total campaign budget, in base units of the mint")
	claimantsPerVault := fs.Int("claimants-per-vault", 0, "maximum claimants assigned to a single vault")
	claimTreeVersion := fs.String("claim-tree-version", "v0", "proof wire format: v0 or v1")
	dryRun := fs.Bool("dry-run", false, "validate configuration and exit without compiling")

	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := buildConfig(*claimantsCSV, *cohortsCSV, *dbPath, *programID, *admin, *mint, *totalBudget, *claimantsPerVault, *claimTreeVersion)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 2
	}

	if *dryRun {
		_, _ = fmt.Fprintf(stdout, "config ok: claimants=%s cohorts=%s out=%s claim_tree_version=%s\n",
			cfg.ClaimantsCSVPath, cfg.CohortsCSVPath, cfg.DatabasePath, cfg.ClaimTreeVersion)
		return 0
	}

	if err := compiler.Run(cfg); err != nil {
		_, _ = fmt.Fprintf(stderr, "compile failed: %v\n", err)
		return exitCodeFor(err)
	}

	_, _ = fmt.Fprintf(stdout, "compiled campaign database written to %s\n", cfg.DatabasePath)
	return 0
}

func buildConfig(claimantsCSV, cohortsCSV, dbPath, programID, admin, mint string, totalBudget uint64, claimantsPerVault int, claimTreeVersion string) (compiler.Config, error) {
	programKey, err := addressing.ParsePublicKey(programID)
	if err != nil {
		return compiler.Config{}, fmt.Errorf("program-id: %w", err)
	}
	adminKey, err := addressing.ParsePublicKey(admin)
	if err != nil {
		return compiler.Config{}, fmt.Errorf("admin: %w", err)
	}
	mintKey, err := addressing.ParsePublicKey(mint)
	if err != nil {
		return compiler.Config{}, fmt.Errorf("mint: %w", err)
	}
	version, err := compiler.ParseClaimTreeVersion(claimTreeVersion)
	if err != nil {
		return compiler.Config{}, err
	}

	cfg := compiler.Config{
		ClaimantsCSVPath:  claimantsCSV,
		CohortsCSVPath:    cohortsCSV,
		DatabasePath:      dbPath,
		ProgramID:         programKey,
		AdminPubkey:       adminKey,
		MintPubkey:        mintKey,
		TotalBudget:       totalBudget,
		ClaimantsPerVault: claimantsPerVault,
		ClaimTreeVersion:  version,
	}
	if err := compiler.ValidateConfig(cfg); err != nil {
		return compiler.Config{}, err
	}
	return cfg, nil
}

func exitCodeFor(err error) int {
	var compErr *compiler.Error
	if errors.As(err, &compErr) {
		return compErr.Kind.ExitCode()
	}
	return 1
}
