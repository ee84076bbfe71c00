package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/levicook/prism-protocol-sub001/addressing"
)

func pk(b byte) string {
	var k addressing.PublicKey
	k[0] = b
	k[31] = b ^ 0xff
	return k.String()
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRun_DryRunSucceedsOnValidConfig(t *testing.T) {
	dir := t.TempDir()
	claimants := writeCSV(t, dir, "claimants.csv",
		"# prism-protocol-csv-version: 1.0\ncohort,claimant,entitlements\na,"+pk(1)+",10\n")
	cohorts := writeCSV(t, dir, "cohorts.csv",
		"# prism-protocol-csv-version: 1.0\ncohort,share_percentage\na,1\n")

	var out, errOut bytes.Buffer
	code := run([]string{
		"--claimants", claimants,
		"--cohorts", cohorts,
		"--out", filepath.Join(dir, "campaign.db"),
		"--program-id", pk(250),
		"--admin", pk(251),
		"--mint", pk(252),
		"--total-budget", "100",
		"--claimants-per-vault", "1",
		"--dry-run",
	}, &out, &errOut)

	if code != 0 {
		t.Fatalf("expected exit code 0, got %d; stderr=%s", code, errOut.String())
	}
	if out.Len() == 0 {
		t.Fatalf("expected stdout output")
	}
}

func TestRun_InvalidProgramIDReturnsExitCode2(t *testing.T) {
	dir := t.TempDir()
	var out, errOut bytes.Buffer
	code := run([]string{
		"--claimants", filepath.Join(dir, "missing.csv"),
		"--cohorts", filepath.Join(dir, "missing.csv"),
		"--out", filepath.Join(dir, "campaign.db"),
		"--program-id", "not-a-key",
		"--admin", pk(251),
		"--mint", pk(252),
		"--total-budget", "100",
		"--claimants-per-vault", "1",
		"--dry-run",
	}, &out, &errOut)

	if code != 2 {
		t.Fatalf("expected exit code 2, got %d", code)
	}
	if errOut.Len() == 0 {
		t.Fatalf("expected stderr output")
	}
}

func TestRun_FullCompileSucceeds(t *testing.T) {
	dir := t.TempDir()
	claimants := writeCSV(t, dir, "claimants.csv",
		"# prism-protocol-csv-version: 1.0\ncohort,claimant,entitlements\na,"+pk(1)+",10\n")
	cohorts := writeCSV(t, dir, "cohorts.csv",
		"# prism-protocol-csv-version: 1.0\ncohort,share_percentage\na,1\n")
	dbPath := filepath.Join(dir, "campaign.db")

	var out, errOut bytes.Buffer
	code := run([]string{
		"--claimants", claimants,
		"--cohorts", cohorts,
		"--out", dbPath,
		"--program-id", pk(250),
		"--admin", pk(251),
		"--mint", pk(252),
		"--total-budget", "100",
		"--claimants-per-vault", "1",
	}, &out, &errOut)

	if code != 0 {
		t.Fatalf("expected exit code 0, got %d; stderr=%s", code, errOut.String())
	}
	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected database file to exist: %v", err)
	}
}
