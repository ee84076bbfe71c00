package store

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "campaign.db")
	d, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpen_WritesSchemaVersionOnCreate(t *testing.T) {
	d := openTestDB(t)
	var tag, hashAlg string
	row := d.sqlDB.QueryRow(`SELECT tag, hash_algorithm FROM schema_version WHERE id = 1`)
	if err := row.Scan(&tag, &hashAlg); err != nil {
		t.Fatalf("scan schema_version: %v", err)
	}
	if tag != SchemaVersionTag || hashAlg != HashAlgorithm {
		t.Fatalf("unexpected schema_version row: tag=%s hash_algorithm=%s", tag, hashAlg)
	}
}

func TestOpen_ReopenSamePathSucceeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "campaign.db")
	d1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := d1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	d2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer d2.Close()
}

func TestIngestRoundTrip(t *testing.T) {
	d := openTestDB(t)
	claimants := []IngestClaimant{
		{Cohort: "a", Claimant: "keyA", Entitlements: "10"},
		{Cohort: "a", Claimant: "keyB", Entitlements: "20"},
	}
	cohorts := []IngestCohort{{Cohort: "a", SharePercentage: "1"}}

	if err := d.WithStageTx(func(tx *sql.Tx) error {
		if err := d.WriteIngestClaimants(tx, claimants); err != nil {
			return err
		}
		return d.WriteIngestCohorts(tx, cohorts)
	}); err != nil {
		t.Fatalf("write ingest stage: %v", err)
	}

	gotClaimants, err := d.ReadIngestClaimants()
	if err != nil {
		t.Fatalf("read claimants: %v", err)
	}
	if len(gotClaimants) != 2 || gotClaimants[0].Claimant != "keyA" || gotClaimants[1].Claimant != "keyB" {
		t.Fatalf("unexpected claimants: %+v", gotClaimants)
	}

	gotCohorts, err := d.ReadIngestCohorts()
	if err != nil {
		t.Fatalf("read cohorts: %v", err)
	}
	if len(gotCohorts) != 1 || gotCohorts[0].SharePercentage != "1" {
		t.Fatalf("unexpected cohorts: %+v", gotCohorts)
	}
}

func TestCompiledPipelineRoundTrip(t *testing.T) {
	d := openTestDB(t)

	if err := d.WithStageTx(func(tx *sql.Tx) error {
		return d.InitCampaign(tx, Campaign{
			Admin: "admin", Mint: "mint", TotalBudget: "1000",
			ClaimTreeVersion: "v0", ClaimantsPerVault: 2,
		})
	}); err != nil {
		t.Fatalf("init campaign: %v", err)
	}

	if err := d.WithStageTx(func(tx *sql.Tx) error {
		return d.WriteCohortAllocation(tx, "a", 500, 50, 0, 10)
	}); err != nil {
		t.Fatalf("write allocation: %v", err)
	}

	leaves := []CompiledLeaf{
		{Claimant: "keyA", VaultIndex: 0, Entitlements: 5, Payout: 250},
		{Claimant: "keyB", VaultIndex: 1, Entitlements: 5, Payout: 250},
	}
	if err := d.WithStageTx(func(tx *sql.Tx) error {
		return d.WriteLeaves(tx, "a", leaves, 2, 2)
	}); err != nil {
		t.Fatalf("write leaves: %v", err)
	}

	if err := d.WithStageTx(func(tx *sql.Tx) error {
		if err := d.WriteMerkleRoot(tx, "a", "deadbeef"); err != nil {
			return err
		}
		return d.WriteProofs(tx, "a", []CompiledProof{
			{Claimant: "keyA", ProofVersion: 0, ProofBytes: []byte{0x01, 0x02}},
		})
	}); err != nil {
		t.Fatalf("write merkle stage: %v", err)
	}

	if err := d.WithStageTx(func(tx *sql.Tx) error {
		if err := d.SetCampaignAddress(tx, "fingerprinthex", "campaignaddr", 254); err != nil {
			return err
		}
		if err := d.SetCohortAddress(tx, "a", "cohortaddr", 253); err != nil {
			return err
		}
		return d.SetVaultAddress(tx, "a", 0, "vaultaddr0", 252, 250)
	}); err != nil {
		t.Fatalf("write addressing stage: %v", err)
	}

	campaign, err := d.ReadCampaign()
	if err != nil {
		t.Fatalf("read campaign: %v", err)
	}
	if campaign.Address != "campaignaddr" || campaign.Bump != 254 {
		t.Fatalf("unexpected campaign: %+v", campaign)
	}

	cohort, err := d.ReadCohort("a")
	if err != nil {
		t.Fatalf("read cohort: %v", err)
	}
	if cohort.Budget != 500 || cohort.VaultCount != 2 || cohort.Address != "cohortaddr" {
		t.Fatalf("unexpected cohort: %+v", cohort)
	}

	gotLeaves, err := d.ListLeaves("a")
	if err != nil {
		t.Fatalf("list leaves: %v", err)
	}
	if len(gotLeaves) != 2 || gotLeaves[0].Payout != 250 {
		t.Fatalf("unexpected leaves: %+v", gotLeaves)
	}

	gotVaults, err := d.ListVaults("a")
	if err != nil {
		t.Fatalf("list vaults: %v", err)
	}
	if len(gotVaults) != 2 || gotVaults[0].Address != "vaultaddr0" {
		t.Fatalf("unexpected vaults: %+v", gotVaults)
	}

	proof, err := d.ReadProof("a", "keyA")
	if err != nil {
		t.Fatalf("read proof: %v", err)
	}
	if len(proof.ProofBytes) != 2 {
		t.Fatalf("unexpected proof: %+v", proof)
	}

	names, err := d.ListCohortNames()
	if err != nil {
		t.Fatalf("list cohort names: %v", err)
	}
	if len(names) != 1 || names[0] != "a" {
		t.Fatalf("unexpected cohort names: %v", names)
	}
}

func TestReadCohort_NotFound(t *testing.T) {
	d := openTestDB(t)
	_, err := d.ReadCohort("missing")
	if err == nil {
		t.Fatalf("expected not found error")
	}
	storeErr, ok := err.(*Error)
	if !ok || storeErr.Code != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWithStageTx_RollsBackOnError(t *testing.T) {
	d := openTestDB(t)

	if err := d.WithStageTx(func(tx *sql.Tx) error {
		return d.InitCampaign(tx, Campaign{
			Admin: "admin", Mint: "mint", TotalBudget: "1000",
			ClaimTreeVersion: "v0", ClaimantsPerVault: 2,
		})
	}); err != nil {
		t.Fatalf("init campaign: %v", err)
	}

	failing := fmt.Errorf("simulated stage failure")
	err := d.WithStageTx(func(tx *sql.Tx) error {
		if err := d.WriteCohortAllocation(tx, "a", 500, 50, 0, 10); err != nil {
			return err
		}
		return failing
	})
	if err != failing {
		t.Fatalf("expected the stage's own error to propagate, got %v", err)
	}

	if _, err := d.ReadCohort("a"); err == nil {
		t.Fatalf("expected cohort write to have rolled back with the rest of the stage")
	}
}
