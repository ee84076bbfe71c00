package merkle

import (
	"encoding/binary"
	"fmt"
)

// ProofVersion selects which persisted proof encoding a compiled campaign
// uses. Both versions share the same leaf/internal hash encodings; only
// the bytes handed to the store differ.
type ProofVersion string

const (
	// ProofV0 persists one proof per leaf.
	ProofV0 ProofVersion = "v0"
	// ProofV1 persists one batched proof per claimant, spanning every
	// entitlement slot (vault assignment) the claimant owns.
	ProofV1 ProofVersion = "v1"
)

// Valid reports whether v is a recognized proof version.
func (v ProofVersion) Valid() bool {
	return v == ProofV0 || v == ProofV1
}

// EncodeV0 serializes a single proof as a length-prefixed concatenation of
// 32-byte hashes: a 4-byte little-endian entry count followed by that many
// 32-byte digests.
func EncodeV0(proof []Digest) []byte {
	out := make([]byte, 0, 4+len(proof)*32)
	out = appendU32le(out, uint32(len(proof)))
	for _, d := range proof {
		out = append(out, d[:]...)
	}
	return out
}

// DecodeV0 parses the encoding produced by EncodeV0.
func DecodeV0(b []byte) ([]Digest, error) {
	off := 0
	n, err := readU32le(b, &off)
	if err != nil {
		return nil, fmt.Errorf("merkle: decode v0 proof: %w", err)
	}
	proof := make([]Digest, 0, n)
	for i := uint32(0); i < n; i++ {
		raw, err := readBytes(b, &off, 32)
		if err != nil {
			return nil, fmt.Errorf("merkle: decode v0 proof entry %d: %w", i, err)
		}
		var d Digest
		copy(d[:], raw)
		proof = append(proof, d)
	}
	if off != len(b) {
		return nil, fmt.Errorf("merkle: decode v0 proof: %d trailing bytes", len(b)-off)
	}
	return proof, nil
}

// EncodeV1 serializes a batch of per-slot proofs for one claimant: a
// 4-byte count of slots followed by that many EncodeV0-framed proofs.
func EncodeV1(proofs [][]Digest) []byte {
	out := appendU32le(nil, uint32(len(proofs)))
	for _, p := range proofs {
		out = append(out, EncodeV0(p)...)
	}
	return out
}

// DecodeV1 parses the encoding produced by EncodeV1.
func DecodeV1(b []byte) ([][]Digest, error) {
	off := 0
	n, err := readU32le(b, &off)
	if err != nil {
		return nil, fmt.Errorf("merkle: decode v1 proof: %w", err)
	}
	proofs := make([][]Digest, 0, n)
	for i := uint32(0); i < n; i++ {
		entryCount, err := readU32le(b, &off)
		if err != nil {
			return nil, fmt.Errorf("merkle: decode v1 proof slot %d: %w", i, err)
		}
		need := int(entryCount) * 32
		raw, err := readBytes(b, &off, need)
		if err != nil {
			return nil, fmt.Errorf("merkle: decode v1 proof slot %d body: %w", i, err)
		}
		proof := make([]Digest, 0, entryCount)
		for j := 0; j < int(entryCount); j++ {
			var d Digest
			copy(d[:], raw[j*32:(j+1)*32])
			proof = append(proof, d)
		}
		proofs = append(proofs, proof)
	}
	if off != len(b) {
		return nil, fmt.Errorf("merkle: decode v1 proof: %d trailing bytes", len(b)-off)
	}
	return proofs, nil
}

func appendU32le(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

func readU32le(b []byte, off *int) (uint32, error) {
	if *off+4 > len(b) {
		return 0, fmt.Errorf("unexpected EOF reading u32")
	}
	v := binary.LittleEndian.Uint32(b[*off : *off+4])
	*off += 4
	return v, nil
}

func readBytes(b []byte, off *int, n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length")
	}
	if *off+n > len(b) {
		return nil, fmt.Errorf("unexpected EOF reading %d bytes", n)
	}
	v := b[*off : *off+n]
	*off += n
	return v, nil
}
