package addressing

import (
	"fmt"

	"golang.org/x/crypto/sha3"
)

// maxBump is the highest bump byte tried; derivation starts here and
// counts down, so independent runs converge on the same (and highest
// valid) bump for a given seed set.
const maxBump = 255

// marker domain-separates program-derived addresses from ordinary
// public keys produced by a real keypair, mirroring the platform's
// standard "off-curve marker" convention.
var marker = []byte("ProgramDerivedAddressV0")

// Derived is a program-derived address together with the bump byte that
// produced it.
type Derived struct {
	Address PublicKey
	Bump    uint8
}

// FindProgramAddress deterministically derives an address from seeds and
// a program id by hashing seeds||bump||programID||marker, counting the
// bump down from 255 until the candidate does not lie on the signing
// curve. It fails if any seed is longer than 32 bytes, or if every bump
// value from 255 down to 0 lands on the curve, which does not happen in
// practice.
func FindProgramAddress(seeds [][]byte, programID PublicKey) (Derived, error) {
	for _, s := range seeds {
		if len(s) > 32 {
			return Derived{}, fmt.Errorf("addressing: seed too long (%d bytes, max 32)", len(s))
		}
	}

	for bump := maxBump; bump >= 0; bump-- {
		h := sha3.New256()
		for _, s := range seeds {
			h.Write(s)
		}
		h.Write([]byte{byte(bump)})
		h.Write(programID[:])
		h.Write(marker)

		var candidate [32]byte
		copy(candidate[:], h.Sum(nil))

		if !isOnCurve(candidate) {
			return Derived{Address: PublicKey(candidate), Bump: uint8(bump)}, nil
		}
	}
	return Derived{}, fmt.Errorf("addressing: unable to find a valid program address for the given seeds")
}
