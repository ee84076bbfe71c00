package compiler

// ClaimTreeVersion selects the persisted Merkle proof wire format,
// mirroring the original program's ClaimTreeType.
type ClaimTreeVersion string

const (
	ClaimTreeV0 ClaimTreeVersion = "v0"
	ClaimTreeV1 ClaimTreeVersion = "v1"
)

// Valid reports whether v is one of the two supported versions.
func (v ClaimTreeVersion) Valid() bool {
	return v == ClaimTreeV0 || v == ClaimTreeV1
}

// ParseClaimTreeVersion parses the config string form, rejecting
// anything other than an exact "v0"/"v1" match.
func ParseClaimTreeVersion(s string) (ClaimTreeVersion, error) {
	v := ClaimTreeVersion(s)
	if !v.Valid() {
		return "", newError(KindInput, "claim_tree_version must be \"v0\" or \"v1\", got "+s)
	}
	return v, nil
}

func (v ClaimTreeVersion) proofVersion() int {
	if v == ClaimTreeV1 {
		return 1
	}
	return 0
}
