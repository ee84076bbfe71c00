package compiler

import "fmt"

// AssertionError marks an internal consistency failure that should be
// impossible given correct code: a programmer assertion, not a
// user-facing error. It is deliberately not part of the Kind/Error
// taxonomy and is never recovered from.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("compiler: assertion failed: %s", e.Msg)
}

func assertRootMatches(cohort string, want, got [32]byte) {
	if want != got {
		panic(&AssertionError{Msg: fmt.Sprintf(
			"cohort %q: recomputed merkle root %x does not match persisted root %x", cohort, got, want,
		)})
	}
}
