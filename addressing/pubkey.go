// Package addressing implements canonical public key encoding and the
// deterministic program-derived-address (PDA) construction the compiler
// uses for campaign, cohort, and vault addresses.
package addressing

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// PublicKey is a 32-byte on-chain public key.
type PublicKey [32]byte

// String renders k as canonical base58 text.
func (k PublicKey) String() string {
	return base58.Encode(k[:])
}

// ParsePublicKey decodes canonical base58 text into a PublicKey, failing
// if the decoded length is not exactly 32 bytes.
func ParsePublicKey(s string) (PublicKey, error) {
	var out PublicKey
	raw, err := base58.Decode(s)
	if err != nil {
		return out, fmt.Errorf("addressing: invalid base58 public key %q: %w", s, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("addressing: public key %q decodes to %d bytes, want 32", s, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
