package merkle

import "testing"

func claimant(b byte) [32]byte {
	var c [32]byte
	c[0] = b
	return c
}

func TestLeafHash_SingleLeafRootEqualsLeafHash(t *testing.T) {
	leaf := Leaf{Claimant: claimant(1), VaultIndex: 0, Entitlements: 10}
	tree, err := Build([]Digest{leaf.Hash()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Root() != leaf.Hash() {
		t.Fatalf("root mismatch for single-leaf tree")
	}
	if tree.Height() != 0 {
		t.Fatalf("expected height 0, got %d", tree.Height())
	}
	proof, err := tree.ProofFor(0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proof) != 0 {
		t.Fatalf("expected empty proof, got %d entries", len(proof))
	}
	if !Verify(leaf.Hash(), 0, proof, tree.Root()) {
		t.Fatalf("proof did not verify")
	}
}

func TestBuild_EmptyLeafSet(t *testing.T) {
	if _, err := Build(nil); err != ErrEmptyLeafSet {
		t.Fatalf("expected ErrEmptyLeafSet, got %v", err)
	}
}

func TestVerify_AllLeavesForOddSizedTree(t *testing.T) {
	// 5 leaves exercises two consecutive promotions on the path of the
	// last leaf, which is the case that breaks a naive "shift index only
	// on proof entries" verifier.
	var leaves []Digest
	var hashes []Digest
	for i := 0; i < 5; i++ {
		l := Leaf{Claimant: claimant(byte(i + 1)), VaultIndex: uint8(i % 3), Entitlements: uint64(i + 1)}
		h := l.Hash()
		leaves = append(leaves, h)
		hashes = append(hashes, h)
	}

	tree, err := Build(leaves)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, h := range hashes {
		proof, err := tree.ProofFor(i)
		if err != nil {
			t.Fatalf("leaf %d: unexpected error: %v", i, err)
		}
		if !Verify(h, i, proof, tree.Root()) {
			t.Fatalf("leaf %d: proof did not verify", i)
		}
	}
}

func TestVerify_RejectsTamperedLeaf(t *testing.T) {
	var leaves []Digest
	for i := 0; i < 4; i++ {
		leaves = append(leaves, Leaf{Claimant: claimant(byte(i + 1)), VaultIndex: 0, Entitlements: 1}.Hash())
	}
	tree, err := Build(leaves)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proof, err := tree.ProofFor(2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tampered := Leaf{Claimant: claimant(99), VaultIndex: 0, Entitlements: 1}.Hash()
	if Verify(tampered, 2, proof, tree.Root()) {
		t.Fatalf("expected verification failure for tampered leaf")
	}
}

func TestFingerprint_ChangesWithAnyRoot(t *testing.T) {
	rootA := Leaf{Claimant: claimant(1), VaultIndex: 0, Entitlements: 1}.Hash()
	rootB := Leaf{Claimant: claimant(2), VaultIndex: 0, Entitlements: 1}.Hash()
	rootBPrime := Leaf{Claimant: claimant(2), VaultIndex: 0, Entitlements: 2}.Hash()

	fp1 := Fingerprint([]Digest{rootA, rootB})
	fp2 := Fingerprint([]Digest{rootA, rootBPrime})
	if fp1 == fp2 {
		t.Fatalf("expected fingerprint to change when a cohort root changes")
	}

	fp1Again := Fingerprint([]Digest{rootA, rootB})
	if fp1 != fp1Again {
		t.Fatalf("fingerprint must be deterministic")
	}
}

func TestEncodeDecodeV0RoundTrip(t *testing.T) {
	var leaves []Digest
	for i := 0; i < 5; i++ {
		leaves = append(leaves, Leaf{Claimant: claimant(byte(i + 1)), VaultIndex: 0, Entitlements: 1}.Hash())
	}
	tree, err := Build(leaves)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	proof, err := tree.ProofFor(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	encoded := EncodeV0(proof)
	decoded, err := DecodeV0(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != len(proof) {
		t.Fatalf("length mismatch: got %d want %d", len(decoded), len(proof))
	}
	for i := range proof {
		if decoded[i] != proof[i] {
			t.Fatalf("entry %d mismatch", i)
		}
	}
}

func TestEncodeDecodeV1RoundTrip(t *testing.T) {
	var leaves []Digest
	for i := 0; i < 4; i++ {
		leaves = append(leaves, Leaf{Claimant: claimant(byte(i + 1)), VaultIndex: 0, Entitlements: 1}.Hash())
	}
	tree, err := Build(leaves)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var batch [][]Digest
	for i := 0; i < 4; i++ {
		proof, err := tree.ProofFor(i)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		batch = append(batch, proof)
	}

	encoded := EncodeV1(batch)
	decoded, err := DecodeV1(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decoded) != len(batch) {
		t.Fatalf("slot count mismatch: got %d want %d", len(decoded), len(batch))
	}
	for i := range batch {
		if len(decoded[i]) != len(batch[i]) {
			t.Fatalf("slot %d length mismatch", i)
		}
		for j := range batch[i] {
			if decoded[i][j] != batch[i][j] {
				t.Fatalf("slot %d entry %d mismatch", i, j)
			}
		}
	}
}
