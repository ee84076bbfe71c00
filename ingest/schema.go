package ingest

import "github.com/shopspring/decimal"

// CurrentSchemaVersion is the only CSV schema version this compiler
// accepts. Bumping it is a deliberate, coordinated change across the
// producer (fixture/export tooling) and this consumer.
const CurrentSchemaVersion = "1.0"

// versionHeaderPrefix is the exact text every input file must start
// with, followed by ": " and the version tag.
const versionHeaderPrefix = "# prism-protocol-csv-version"

var claimantsHeader = []string{"cohort", "claimant", "entitlements"}
var cohortsHeader = []string{"cohort", "share_percentage"}

// ClaimantRow is one validated row of the claimants table.
type ClaimantRow struct {
	Cohort       string
	Claimant     string // canonical base58 text, validated but not yet parsed to bytes
	Entitlements decimal.Decimal
}

// CohortRow is one validated row of the cohorts table.
type CohortRow struct {
	Cohort          string
	SharePercentage decimal.Decimal
}
