// Package merkle builds the domain-separated binary Merkle tree used to
// authorize claims, and produces/verifies the inclusion proofs persisted
// for each leaf.
//
// Leaf hash:     SHA3-256(0x00 || claimant[32] || vaultIndex(1) || entitlements_le(8))
// Internal hash: SHA3-256(0x01 || left[32] || right[32])
//
// The tree is left-complete: when a level has an odd number of nodes, the
// last node is promoted unchanged to the next level instead of being
// duplicated. Proofs therefore carry one entry per tree level (not one
// per combine), using promotionSentinel to mark a level where the path
// passed through without a sibling to hash against.
package merkle

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"
)

const (
	leafTag     byte = 0x00
	internalTag byte = 0x01
)

// Digest is a 256-bit Merkle node hash.
type Digest [32]byte

// promotionSentinel marks a proof entry whose level had no sibling to
// combine with (the node was carried to the next level unchanged). It is
// a fixed, domain-separated constant rather than the zero value so it
// cannot be confused with an all-zero leaf or internal hash.
var promotionSentinel = sha3.Sum256([]byte("prism-protocol/merkle/promoted-v0"))

// Leaf describes the inputs to a single leaf hash, in canonical
// (claimant, vault, entitlements) form.
type Leaf struct {
	Claimant     [32]byte
	VaultIndex   uint8
	Entitlements uint64
}

// Hash computes the domain-separated leaf digest.
func (l Leaf) Hash() Digest {
	var preimage [1 + 32 + 1 + 8]byte
	preimage[0] = leafTag
	copy(preimage[1:33], l.Claimant[:])
	preimage[33] = l.VaultIndex
	binary.LittleEndian.PutUint64(preimage[34:42], l.Entitlements)
	return sha3.Sum256(preimage[:])
}

func internalHash(left, right Digest) Digest {
	var preimage [1 + 32 + 32]byte
	preimage[0] = internalTag
	copy(preimage[1:33], left[:])
	copy(preimage[33:], right[:])
	return sha3.Sum256(preimage[:])
}

// Tree is the fully materialized set of levels for one cohort, leaf level
// first and the single-element root level last.
type Tree struct {
	levels [][]Digest
}

// ErrEmptyLeafSet is returned when building a tree over zero leaves.
var ErrEmptyLeafSet = fmt.Errorf("merkle: cannot build a tree over an empty leaf set")

// Build constructs the tree over leaves in the order given. Callers must
// supply leaves in the canonical address-ascending order required by the
// spec; Build does not sort.
func Build(leaves []Digest) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyLeafSet
	}

	level := make([]Digest, len(leaves))
	copy(level, leaves)

	levels := [][]Digest{level}
	for len(level) > 1 {
		next := make([]Digest, 0, (len(level)+1)/2)
		for i := 0; i < len(level); {
			if i == len(level)-1 {
				next = append(next, level[i])
				i++
				continue
			}
			next = append(next, internalHash(level[i], level[i+1]))
			i += 2
		}
		level = next
		levels = append(levels, level)
	}

	return &Tree{levels: levels}, nil
}

// Root returns the 32-byte commitment at the top of the tree.
func (t *Tree) Root() Digest {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Height is the number of levels above the leaves, i.e. the number of
// entries every proof from this tree carries.
func (t *Tree) Height() int {
	return len(t.levels) - 1
}

// LeafCount returns the number of leaves the tree was built over.
func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

// ProofFor returns the inclusion proof for the leaf at ordinal index i.
// The proof has exactly Height() entries; an entry equal to
// promotionSentinel marks a level where i's path had no sibling.
func (t *Tree) ProofFor(i int) ([]Digest, error) {
	if i < 0 || i >= t.LeafCount() {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0, %d)", i, t.LeafCount())
	}

	proof := make([]Digest, 0, t.Height())
	idx := i
	for lvl := 0; lvl < len(t.levels)-1; lvl++ {
		cur := t.levels[lvl]
		if idx%2 == 0 {
			if idx+1 < len(cur) {
				proof = append(proof, cur[idx+1])
			} else {
				proof = append(proof, promotionSentinel)
			}
		} else {
			proof = append(proof, cur[idx-1])
		}
		idx /= 2
	}
	return proof, nil
}

// Verify folds leafHash with the siblings in proof, starting at ordinal
// index leafIndex, and reports whether the result equals root.
func Verify(leafHash Digest, leafIndex int, proof []Digest, root Digest) bool {
	cur := leafHash
	idx := leafIndex
	for _, sibling := range proof {
		if sibling == promotionSentinel {
			idx /= 2
			continue
		}
		if idx%2 == 0 {
			cur = internalHash(cur, sibling)
		} else {
			cur = internalHash(sibling, cur)
		}
		idx /= 2
	}
	return cur == root
}

// Fingerprint derives the 32-byte campaign content hash from cohort roots
// already ordered by the caller in canonical (ascending cohort name)
// order. Any change to any root changes the fingerprint.
func Fingerprint(cohortRoots []Digest) Digest {
	buf := make([]byte, 0, len(cohortRoots)*32)
	for _, r := range cohortRoots {
		buf = append(buf, r[:]...)
	}
	return sha3.Sum256(buf)
}
