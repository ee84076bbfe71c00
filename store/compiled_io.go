package store

import (
	"database/sql"
	"fmt"
	"strconv"
)

// InitCampaign writes the compiled_campaign singleton's stage-1
// fields (everything known before allocation, vaulting, merkle
// commitment, and address derivation complete) within the caller's
// stage transaction. Fingerprint and address are filled in later by
// SetCampaignAddress.
func (d *DB) InitCampaign(tx *sql.Tx, c Campaign) error {
	_, err := tx.Exec(
		`INSERT INTO compiled_campaign (id, admin, mint, total_budget, claim_tree_version, claimants_per_vault)
		 VALUES (1, ?, ?, ?, ?, ?)`,
		c.Admin, c.Mint, c.TotalBudget, c.ClaimTreeVersion, c.ClaimantsPerVault,
	)
	return err
}

// WriteCohortAllocation upserts a cohort's budget, per-entitlement
// amount, dust, and total entitlements within the caller's stage
// transaction.
func (d *DB) WriteCohortAllocation(tx *sql.Tx, cohort string, budget, amountPerEntitlement, dust, totalEntitlements uint64) error {
	_, err := tx.Exec(
		`INSERT INTO compiled_cohort (cohort, budget, amount_per_entitlement, dust, total_entitlements)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cohort) DO UPDATE SET
			budget = excluded.budget,
			amount_per_entitlement = excluded.amount_per_entitlement,
			dust = excluded.dust,
			total_entitlements = excluded.total_entitlements`,
		cohort, strconv.FormatUint(budget, 10), strconv.FormatUint(amountPerEntitlement, 10),
		strconv.FormatUint(dust, 10), strconv.FormatUint(totalEntitlements, 10),
	)
	return err
}

// WriteLeaves persists the vault assignment and per-leaf payout for
// every claimant in a cohort, and records the cohort's resulting
// vault counts, all within the caller's stage transaction.
func (d *DB) WriteLeaves(tx *sql.Tx, cohort string, leaves []CompiledLeaf, vaultCount, expectedVaultCount int) error {
	leafStmt, err := tx.Prepare(
		`INSERT INTO compiled_leaf (cohort, claimant, vault_index, entitlements, payout) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare compiled_leaf insert: %w", err)
	}
	defer leafStmt.Close()

	for _, l := range leaves {
		if _, err := leafStmt.Exec(
			cohort, l.Claimant, l.VaultIndex,
			strconv.FormatUint(l.Entitlements, 10), strconv.FormatUint(l.Payout, 10),
		); err != nil {
			return fmt.Errorf("store: insert compiled_leaf: %w", err)
		}
	}

	for i := 0; i < vaultCount; i++ {
		if _, err := tx.Exec(
			`INSERT INTO compiled_vault (cohort, vault_index) VALUES (?, ?)`, cohort, i,
		); err != nil {
			return fmt.Errorf("store: insert compiled_vault: %w", err)
		}
	}

	_, err = tx.Exec(
		`UPDATE compiled_cohort SET vault_count = ?, expected_vault_count = ? WHERE cohort = ?`,
		vaultCount, expectedVaultCount, cohort,
	)
	return err
}

// WriteMerkleRoot sets a cohort's computed Merkle root within the
// caller's stage transaction.
func (d *DB) WriteMerkleRoot(tx *sql.Tx, cohort string, rootHex string) error {
	_, err := tx.Exec(`UPDATE compiled_cohort SET merkle_root = ? WHERE cohort = ?`, rootHex, cohort)
	return err
}

// WriteProofs persists the encoded Merkle proof for every leaf in a
// cohort within the caller's stage transaction.
func (d *DB) WriteProofs(tx *sql.Tx, cohort string, proofs []CompiledProof) error {
	stmt, err := tx.Prepare(
		`INSERT INTO compiled_proof (cohort, claimant, proof_version, proof_bytes) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare compiled_proof insert: %w", err)
	}
	defer stmt.Close()
	for _, p := range proofs {
		if _, err := stmt.Exec(cohort, p.Claimant, p.ProofVersion, p.ProofBytes); err != nil {
			return fmt.Errorf("store: insert compiled_proof: %w", err)
		}
	}
	return nil
}

// SetCampaignAddress records the campaign's fingerprint, derived
// address, and bump within the caller's stage transaction.
func (d *DB) SetCampaignAddress(tx *sql.Tx, fingerprintHex, address string, bump uint8) error {
	_, err := tx.Exec(
		`UPDATE compiled_campaign SET fingerprint = ?, address = ?, bump = ? WHERE id = 1`,
		fingerprintHex, address, bump,
	)
	return err
}

// SetCohortAddress records a cohort's derived address and bump within
// the caller's stage transaction.
func (d *DB) SetCohortAddress(tx *sql.Tx, cohort string, address string, bump uint8) error {
	_, err := tx.Exec(
		`UPDATE compiled_cohort SET address = ?, bump = ? WHERE cohort = ?`, address, bump, cohort,
	)
	return err
}

// SetVaultAddress records one vault's derived address, bump, and
// expected funded balance within the caller's stage transaction.
func (d *DB) SetVaultAddress(tx *sql.Tx, cohort string, vaultIndex uint8, address string, bump uint8, expectedBalance uint64) error {
	_, err := tx.Exec(
		`UPDATE compiled_vault SET address = ?, bump = ?, expected_balance = ? WHERE cohort = ? AND vault_index = ?`,
		address, bump, strconv.FormatUint(expectedBalance, 10), cohort, vaultIndex,
	)
	return err
}

// ReadCampaign returns the compiled_campaign singleton row.
func (d *DB) ReadCampaign() (Campaign, error) {
	return readCampaign(d.sqlDB)
}

func readCampaign(q querier) (Campaign, error) {
	var c Campaign
	var fingerprint, address sql.NullString
	var bump sql.NullInt64
	var totalBudget string
	row := q.QueryRow(
		`SELECT admin, mint, total_budget, fingerprint, claim_tree_version, claimants_per_vault, address, bump
		 FROM compiled_campaign WHERE id = 1`)
	if err := row.Scan(&c.Admin, &c.Mint, &totalBudget, &fingerprint, &c.ClaimTreeVersion, &c.ClaimantsPerVault, &address, &bump); err != nil {
		if err == sql.ErrNoRows {
			return Campaign{}, storeErr(ErrNotFound, "compiled_campaign", "no campaign row")
		}
		return Campaign{}, fmt.Errorf("store: read compiled_campaign: %w", err)
	}
	c.TotalBudget = totalBudget
	c.Fingerprint = fingerprint.String
	c.Address = address.String
	if bump.Valid {
		v, err := validateU8("compiled_campaign", "bump", bump.Int64)
		if err != nil {
			return Campaign{}, err
		}
		c.Bump = v
	}
	return c, nil
}

// ListCohortNames returns every cohort in ascending canonical order,
// the order the fingerprint and the address deriver both depend on.
func (d *DB) ListCohortNames() ([]string, error) {
	return listCohortNames(d.sqlDB)
}

// ListCohortNamesTx is ListCohortNames run against an in-flight stage
// transaction, so it observes that stage's own writes and does not
// contend with it for the store's single connection.
func (d *DB) ListCohortNamesTx(tx *sql.Tx) ([]string, error) {
	return listCohortNames(tx)
}

func listCohortNames(q querier) ([]string, error) {
	rows, err := q.Query(`SELECT cohort FROM compiled_cohort ORDER BY cohort ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: query compiled_cohort names: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("store: scan compiled_cohort name: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// ReadCohort returns one compiled_cohort row with width-validated
// fixed-width fields.
func (d *DB) ReadCohort(cohort string) (CompiledCohort, error) {
	return readCohort(d.sqlDB, cohort)
}

// ReadCohortTx is ReadCohort run against an in-flight stage
// transaction, so it observes that stage's own writes and does not
// contend with it for the store's single connection.
func (d *DB) ReadCohortTx(tx *sql.Tx, cohort string) (CompiledCohort, error) {
	return readCohort(tx, cohort)
}

func readCohort(q querier, cohort string) (CompiledCohort, error) {
	var (
		out                                        CompiledCohort
		root, address                              sql.NullString
		budget, amountPerEntitlement, dust, totalE string
		vaultCount, expectedVaultCount, bump       sql.NullInt64
	)
	row := q.QueryRow(
		`SELECT cohort, merkle_root, budget, amount_per_entitlement, dust, total_entitlements,
		        vault_count, expected_vault_count, address, bump
		 FROM compiled_cohort WHERE cohort = ?`, cohort)
	if err := row.Scan(&out.Cohort, &root, &budget, &amountPerEntitlement, &dust, &totalE,
		&vaultCount, &expectedVaultCount, &address, &bump); err != nil {
		if err == sql.ErrNoRows {
			return CompiledCohort{}, storeErr(ErrNotFound, "compiled_cohort", "no row for cohort "+cohort)
		}
		return CompiledCohort{}, fmt.Errorf("store: read compiled_cohort: %w", err)
	}

	out.MerkleRoot = root.String
	out.Address = address.String
	out.VaultCount = int(vaultCount.Int64)
	out.ExpectedVaultCount = int(expectedVaultCount.Int64)

	var err error
	if out.Budget, err = parseU64Decimal("compiled_cohort", "budget", budget); err != nil {
		return CompiledCohort{}, err
	}
	if out.AmountPerEntitlement, err = parseU64Decimal("compiled_cohort", "amount_per_entitlement", amountPerEntitlement); err != nil {
		return CompiledCohort{}, err
	}
	if out.Dust, err = parseU64Decimal("compiled_cohort", "dust", dust); err != nil {
		return CompiledCohort{}, err
	}
	if out.TotalEntitlements, err = parseU64Decimal("compiled_cohort", "total_entitlements", totalE); err != nil {
		return CompiledCohort{}, err
	}
	if bump.Valid {
		if out.Bump, err = validateU8("compiled_cohort", "bump", bump.Int64); err != nil {
			return CompiledCohort{}, err
		}
	}
	return out, nil
}

// ListLeaves returns every leaf of a cohort ordered by claimant
// address, the canonical deterministic ordering.
func (d *DB) ListLeaves(cohort string) ([]CompiledLeaf, error) {
	return listLeaves(d.sqlDB, cohort)
}

// ListLeavesTx is ListLeaves run against an in-flight stage
// transaction, so it observes that stage's own writes and does not
// contend with it for the store's single connection. Safe to call
// concurrently from multiple goroutines sharing tx.
func (d *DB) ListLeavesTx(tx *sql.Tx, cohort string) ([]CompiledLeaf, error) {
	return listLeaves(tx, cohort)
}

func listLeaves(q querier, cohort string) ([]CompiledLeaf, error) {
	rows, err := q.Query(
		`SELECT claimant, vault_index, entitlements, payout FROM compiled_leaf
		 WHERE cohort = ? ORDER BY claimant ASC`, cohort)
	if err != nil {
		return nil, fmt.Errorf("store: query compiled_leaf: %w", err)
	}
	defer rows.Close()

	var out []CompiledLeaf
	for rows.Next() {
		var l CompiledLeaf
		var vaultIndex int64
		var entitlements, payout string
		if err := rows.Scan(&l.Claimant, &vaultIndex, &entitlements, &payout); err != nil {
			return nil, fmt.Errorf("store: scan compiled_leaf: %w", err)
		}
		l.Cohort = cohort
		if l.VaultIndex, err = validateU8("compiled_leaf", "vault_index", vaultIndex); err != nil {
			return nil, err
		}
		if l.Entitlements, err = parseU64Decimal("compiled_leaf", "entitlements", entitlements); err != nil {
			return nil, err
		}
		if l.Payout, err = parseU64Decimal("compiled_leaf", "payout", payout); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ListVaults returns every vault of a cohort ordered by vault index.
func (d *DB) ListVaults(cohort string) ([]CompiledVault, error) {
	return listVaults(d.sqlDB, cohort)
}

// ListVaultsTx is ListVaults run against an in-flight stage
// transaction, so it observes that stage's own writes and does not
// contend with it for the store's single connection.
func (d *DB) ListVaultsTx(tx *sql.Tx, cohort string) ([]CompiledVault, error) {
	return listVaults(tx, cohort)
}

func listVaults(q querier, cohort string) ([]CompiledVault, error) {
	rows, err := q.Query(
		`SELECT vault_index, address, bump, expected_balance FROM compiled_vault
		 WHERE cohort = ? ORDER BY vault_index ASC`, cohort)
	if err != nil {
		return nil, fmt.Errorf("store: query compiled_vault: %w", err)
	}
	defer rows.Close()

	var out []CompiledVault
	for rows.Next() {
		var v CompiledVault
		var vaultIndex int64
		var address sql.NullString
		var bump sql.NullInt64
		var expectedBalance sql.NullString
		if err := rows.Scan(&vaultIndex, &address, &bump, &expectedBalance); err != nil {
			return nil, fmt.Errorf("store: scan compiled_vault: %w", err)
		}
		v.Cohort = cohort
		if v.VaultIndex, err = validateU8("compiled_vault", "vault_index", vaultIndex); err != nil {
			return nil, err
		}
		v.Address = address.String
		if bump.Valid {
			if v.Bump, err = validateU8("compiled_vault", "bump", bump.Int64); err != nil {
				return nil, err
			}
		}
		if expectedBalance.Valid {
			if v.ExpectedBalance, err = parseU64Decimal("compiled_vault", "expected_balance", expectedBalance.String); err != nil {
				return nil, err
			}
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ReadProof returns the encoded Merkle proof for one claimant in one
// cohort.
func (d *DB) ReadProof(cohort, claimant string) (CompiledProof, error) {
	return readProof(d.sqlDB, cohort, claimant)
}

func readProof(q querier, cohort, claimant string) (CompiledProof, error) {
	var p CompiledProof
	p.Cohort, p.Claimant = cohort, claimant
	row := q.QueryRow(
		`SELECT proof_version, proof_bytes FROM compiled_proof WHERE cohort = ? AND claimant = ?`,
		cohort, claimant)
	if err := row.Scan(&p.ProofVersion, &p.ProofBytes); err != nil {
		if err == sql.ErrNoRows {
			return CompiledProof{}, storeErr(ErrNotFound, "compiled_proof", fmt.Sprintf("no proof for (%s, %s)", cohort, claimant))
		}
		return CompiledProof{}, fmt.Errorf("store: read compiled_proof: %w", err)
	}
	return p, nil
}
