package ingest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/levicook/prism-protocol-sub001/addressing"
)

// readVersionHeader consumes the leading "# prism-protocol-csv-version: X"
// comment line and returns the remaining reader positioned at the CSV
// header row.
func readVersionHeader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, rowErr(ErrMissingVersionHeader, 0, "", "failed to read version header: "+err.Error())
	}
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, versionHeaderPrefix) {
		return nil, rowErr(ErrMissingVersionHeader, 1, "", fmt.Sprintf("expected %q prefix, got %q", versionHeaderPrefix, line))
	}
	version := strings.TrimSpace(strings.TrimPrefix(line, versionHeaderPrefix+":"))
	if version != CurrentSchemaVersion {
		return nil, rowErr(ErrUnknownVersion, 1, "", fmt.Sprintf("unsupported csv version %q, want %q", version, CurrentSchemaVersion))
	}
	return br, nil
}

func newCSVReader(r io.Reader, wantHeader []string) (*csv.Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(wantHeader)
	got, err := cr.Read()
	if err != nil {
		return nil, rowErr(ErrMalformedRow, 1, "", "failed to read csv header: "+err.Error())
	}
	if len(got) != len(wantHeader) {
		return nil, rowErr(ErrMalformedRow, 1, "", fmt.Sprintf("expected %d columns, got %d", len(wantHeader), len(got)))
	}
	for i, name := range wantHeader {
		if got[i] != name {
			return nil, rowErr(ErrMalformedRow, 1, name, fmt.Sprintf("expected column %q at position %d, got %q", name, i, got[i]))
		}
	}
	return cr, nil
}

// ReadClaimants parses the headed claimants CSV described in spec §6.
func ReadClaimants(r io.Reader) ([]ClaimantRow, error) {
	body, err := readVersionHeader(r)
	if err != nil {
		return nil, err
	}
	cr, err := newCSVReader(body, claimantsHeader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var rows []ClaimantRow
	rowNum := 1 // header was row 1
	for {
		rowNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rowErr(ErrMalformedRow, rowNum, "", err.Error())
		}

		cohort := strings.TrimSpace(record[0])
		if cohort == "" {
			return nil, rowErr(ErrMalformedRow, rowNum, "cohort", "cohort name must not be empty")
		}

		claimant := strings.TrimSpace(record[1])
		if _, err := addressing.ParsePublicKey(claimant); err != nil {
			return nil, rowErr(ErrMalformedAddress, rowNum, "claimant", err.Error())
		}

		entitlements, err := decimal.NewFromString(strings.TrimSpace(record[2]))
		if err != nil {
			return nil, rowErr(ErrMalformedRow, rowNum, "entitlements", "not a valid integer: "+err.Error())
		}
		if !entitlements.IsInteger() || entitlements.Sign() <= 0 {
			return nil, rowErr(ErrNonPositiveAmount, rowNum, "entitlements", "entitlements must be a positive integer")
		}

		key := cohort + "\x00" + claimant
		if _, dup := seen[key]; dup {
			return nil, rowErr(ErrDuplicateRow, rowNum, "claimant", fmt.Sprintf("duplicate (cohort, claimant) pair: (%s, %s)", cohort, claimant))
		}
		seen[key] = struct{}{}

		rows = append(rows, ClaimantRow{Cohort: cohort, Claimant: claimant, Entitlements: entitlements})
	}
	return rows, nil
}

// ReadCohorts parses the headed cohorts CSV described in spec §6 and
// enforces that shares sum to exactly one, using exact decimal
// arithmetic rather than floating point.
func ReadCohorts(r io.Reader) ([]CohortRow, error) {
	body, err := readVersionHeader(r)
	if err != nil {
		return nil, err
	}
	cr, err := newCSVReader(body, cohortsHeader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var rows []CohortRow
	sum := decimal.Zero
	rowNum := 1
	for {
		rowNum++
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rowErr(ErrMalformedRow, rowNum, "", err.Error())
		}

		cohort := strings.TrimSpace(record[0])
		if cohort == "" {
			return nil, rowErr(ErrMalformedRow, rowNum, "cohort", "cohort name must not be empty")
		}
		if _, dup := seen[cohort]; dup {
			return nil, rowErr(ErrDuplicateRow, rowNum, "cohort", fmt.Sprintf("duplicate cohort: %s", cohort))
		}
		seen[cohort] = struct{}{}

		share, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, rowErr(ErrMalformedRow, rowNum, "share_percentage", "not a valid decimal: "+err.Error())
		}
		if share.Sign() <= 0 || share.Cmp(decimal.NewFromInt(1)) > 0 {
			return nil, rowErr(ErrSharesNotUnity, rowNum, "share_percentage", "share must satisfy 0 < share <= 1")
		}

		sum = sum.Add(share)
		rows = append(rows, CohortRow{Cohort: cohort, SharePercentage: share})
	}

	if !sum.Equal(decimal.NewFromInt(1)) {
		return nil, rowErr(ErrSharesNotUnity, 0, "share_percentage", fmt.Sprintf("cohort shares sum to %s, want exactly 1", sum.String()))
	}

	return rows, nil
}

// ValidateConsistency checks that the set of cohort names in claimants
// equals the set of cohort names in cohorts, per spec §4.1.
func ValidateConsistency(claimants []ClaimantRow, cohorts []CohortRow) error {
	inCohorts := make(map[string]struct{}, len(cohorts))
	for _, c := range cohorts {
		inCohorts[c.Cohort] = struct{}{}
	}
	inClaimants := make(map[string]struct{}, len(claimants))
	for _, c := range claimants {
		inClaimants[c.Cohort] = struct{}{}
	}

	for name := range inClaimants {
		if _, ok := inCohorts[name]; !ok {
			return rowErr(ErrCohortSetMismatch, 0, "cohort", fmt.Sprintf("cohort %q appears in claimants but not in cohorts", name))
		}
	}
	for name := range inCohorts {
		if _, ok := inClaimants[name]; !ok {
			return rowErr(ErrCohortSetMismatch, 0, "cohort", fmt.Sprintf("cohort %q appears in cohorts but has no claimants", name))
		}
	}
	return nil
}
