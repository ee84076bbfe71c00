package store

import (
	"database/sql"
	"fmt"
)

// WriteIngestClaimants persists the claimants table in insertion
// order within the caller's stage transaction.
func (d *DB) WriteIngestClaimants(tx *sql.Tx, rows []IngestClaimant) error {
	stmt, err := tx.Prepare(`INSERT INTO ingest_claimants (cohort, claimant, entitlements) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare ingest_claimants insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.Cohort, r.Claimant, r.Entitlements); err != nil {
			return fmt.Errorf("store: insert ingest_claimants: %w", err)
		}
	}
	return nil
}

// WriteIngestCohorts persists the cohorts table in insertion order
// within the caller's stage transaction.
func (d *DB) WriteIngestCohorts(tx *sql.Tx, rows []IngestCohort) error {
	stmt, err := tx.Prepare(`INSERT INTO ingest_cohorts (cohort, share_percentage) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare ingest_cohorts insert: %w", err)
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.Cohort, r.SharePercentage); err != nil {
			return fmt.Errorf("store: insert ingest_cohorts: %w", err)
		}
	}
	return nil
}

// ReadIngestClaimants returns every claimant row in insertion order.
func (d *DB) ReadIngestClaimants() ([]IngestClaimant, error) {
	return readIngestClaimants(d.sqlDB)
}

func readIngestClaimants(q querier) ([]IngestClaimant, error) {
	rows, err := q.Query(`SELECT id, cohort, claimant, entitlements FROM ingest_claimants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: query ingest_claimants: %w", err)
	}
	defer rows.Close()

	var out []IngestClaimant
	for rows.Next() {
		var r IngestClaimant
		if err := rows.Scan(&r.ID, &r.Cohort, &r.Claimant, &r.Entitlements); err != nil {
			return nil, fmt.Errorf("store: scan ingest_claimants: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReadIngestCohorts returns every cohort row in insertion order.
func (d *DB) ReadIngestCohorts() ([]IngestCohort, error) {
	return readIngestCohorts(d.sqlDB)
}

func readIngestCohorts(q querier) ([]IngestCohort, error) {
	rows, err := q.Query(`SELECT id, cohort, share_percentage FROM ingest_cohorts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("store: query ingest_cohorts: %w", err)
	}
	defer rows.Close()

	var out []IngestCohort
	for rows.Next() {
		var r IngestCohort
		if err := rows.Scan(&r.ID, &r.Cohort, &r.SharePercentage); err != nil {
			return nil, fmt.Errorf("store: scan ingest_cohorts: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
