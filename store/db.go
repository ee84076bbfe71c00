// Package store wraps the compiled campaign database: a single
// embedded SQLite file that is the compiler's normative on-disk
// artifact, opened exclusively for the duration of one compiler run
// and handed off read-only to downstream tools afterward.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB is the compiler's exclusive handle on the compiled campaign
// database for the duration of one run.
type DB struct {
	sqlDB *sql.DB
	path  string
}

// Open creates (if absent) and opens the compiled campaign database
// at path, applying the schema and writing the schema_version row on
// first creation. Open fails if an existing database carries a
// different schema version tag than this build understands.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1) // single-writer for the run's lifetime

	if _, err := sqlDB.Exec(ddl); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	d := &DB{sqlDB: sqlDB, path: path}
	if err := d.ensureSchemaVersion(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) ensureSchemaVersion() error {
	row := d.sqlDB.QueryRow(`SELECT tag, hash_algorithm FROM schema_version WHERE id = 1`)
	var tag, hashAlg string
	err := row.Scan(&tag, &hashAlg)
	switch {
	case err == sql.ErrNoRows:
		_, err := d.sqlDB.Exec(
			`INSERT INTO schema_version (id, tag, hash_algorithm) VALUES (1, ?, ?)`,
			SchemaVersionTag, HashAlgorithm,
		)
		return err
	case err != nil:
		return fmt.Errorf("store: read schema_version: %w", err)
	case tag != SchemaVersionTag:
		return storeErr(ErrSchemaVersionMismatch, "schema_version",
			fmt.Sprintf("database has tag %q, this build expects %q", tag, SchemaVersionTag))
	case hashAlg != HashAlgorithm:
		return storeErr(ErrSchemaVersionMismatch, "schema_version",
			fmt.Sprintf("database hash_algorithm %q, this build expects %q", hashAlg, HashAlgorithm))
	default:
		return nil
	}
}

// Close releases the database handle.
func (d *DB) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	return d.sqlDB.Close()
}

// Path returns the filesystem path this store was opened against.
func (d *DB) Path() string { return d.path }

// WithStageTx runs stage inside one transaction spanning every write
// the stage makes, committing on success and rolling back on any
// error so that a failed stage leaves the store at the previous
// stage's boundary, per the store gateway's one transaction per stage
// policy. Callers thread the supplied tx through every Write/Init/Set
// call (and every Read/List call that must observe this stage's own
// writes) made during the stage.
func (d *DB) WithStageTx(stage func(tx *sql.Tx) error) error {
	tx, err := d.sqlDB.Begin()
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	if err := stage(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit tx: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx, letting read
// helpers run either against the DB's default connection or against
// an in-flight stage transaction.
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}
