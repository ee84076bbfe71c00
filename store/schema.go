package store

// SchemaVersionTag identifies the on-disk layout of the compiled
// campaign database. Bumping it is a deliberate, coordinated change.
const SchemaVersionTag = "prism-protocol-store-v1"

// HashAlgorithm is the 256-bit hash function used uniformly for
// Merkle hashing and address derivation, recorded so that downstream
// readers never have to guess it.
const HashAlgorithm = "sha3-256"

const ddl = `
CREATE TABLE IF NOT EXISTS schema_version (
	id             INTEGER PRIMARY KEY CHECK (id = 1),
	tag            TEXT NOT NULL,
	hash_algorithm TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ingest_claimants (
	id           INTEGER PRIMARY KEY,
	cohort       TEXT NOT NULL,
	claimant     TEXT NOT NULL,
	entitlements TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS ingest_claimants_cohort_claimant
	ON ingest_claimants(cohort, claimant);

CREATE TABLE IF NOT EXISTS ingest_cohorts (
	id               INTEGER PRIMARY KEY,
	cohort           TEXT NOT NULL UNIQUE,
	share_percentage TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS compiled_campaign (
	id                  INTEGER PRIMARY KEY CHECK (id = 1),
	admin               TEXT NOT NULL,
	mint                TEXT NOT NULL,
	total_budget        TEXT NOT NULL,
	fingerprint         TEXT,
	claim_tree_version  TEXT NOT NULL,
	claimants_per_vault INTEGER NOT NULL,
	address             TEXT,
	bump                INTEGER
);

CREATE TABLE IF NOT EXISTS compiled_cohort (
	cohort                 TEXT PRIMARY KEY,
	merkle_root            TEXT,
	budget                 TEXT,
	amount_per_entitlement TEXT,
	dust                   TEXT,
	total_entitlements     TEXT,
	vault_count            INTEGER,
	expected_vault_count   INTEGER,
	address                TEXT,
	bump                   INTEGER
);

CREATE TABLE IF NOT EXISTS compiled_vault (
	cohort           TEXT NOT NULL,
	vault_index      INTEGER NOT NULL,
	address          TEXT,
	bump             INTEGER,
	expected_balance TEXT,
	PRIMARY KEY (cohort, vault_index)
);

CREATE TABLE IF NOT EXISTS compiled_leaf (
	cohort       TEXT NOT NULL,
	claimant     TEXT NOT NULL,
	vault_index  INTEGER NOT NULL,
	entitlements TEXT NOT NULL,
	payout       TEXT NOT NULL,
	PRIMARY KEY (cohort, claimant)
);

CREATE TABLE IF NOT EXISTS compiled_proof (
	cohort        TEXT NOT NULL,
	claimant      TEXT NOT NULL,
	proof_version INTEGER NOT NULL,
	proof_bytes   BLOB NOT NULL,
	PRIMARY KEY (cohort, claimant)
);
`
