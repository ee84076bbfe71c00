package addressing

// Seed prefixes, mirroring the on-chain program's PDA seed constants
// (programs/prism-protocol/src/constants.rs in the original source:
// CAMPAIGN_V0_SEED_PREFIX, COHORT_V0_SEED_PREFIX,
// CLAIM_RECEIPT_V0_SEED_PREFIX, VAULT_V0_SEED_PREFIX).
var (
	campaignSeedPrefix     = []byte("campaign_v0")
	cohortSeedPrefix       = []byte("cohort_v0")
	claimReceiptSeedPrefix = []byte("claim_receipt_v0")
	vaultSeedPrefix        = []byte("vault_v0")
)

// Deriver computes the deterministic on-chain addresses for a campaign,
// derived from a fixed, process-wide-readonly program id rather than any
// ambient/global state.
type Deriver struct {
	ProgramID PublicKey
}

// NewDeriver builds a Deriver bound to the given program id.
func NewDeriver(programID PublicKey) Deriver {
	return Deriver{ProgramID: programID}
}

// CampaignAddress derives the campaign PDA from the admin key and the
// campaign fingerprint.
func (d Deriver) CampaignAddress(admin PublicKey, fingerprint [32]byte) (Derived, error) {
	return FindProgramAddress([][]byte{campaignSeedPrefix, admin[:], fingerprint[:]}, d.ProgramID)
}

// CohortAddress derives the cohort PDA from the campaign address and the
// cohort's Merkle root.
func (d Deriver) CohortAddress(campaign PublicKey, cohortMerkleRoot [32]byte) (Derived, error) {
	return FindProgramAddress([][]byte{cohortSeedPrefix, campaign[:], cohortMerkleRoot[:]}, d.ProgramID)
}

// ClaimReceiptAddress derives the claim-receipt PDA from a cohort and
// claimant. Claim-receipt addresses are derived on demand by claim
// servers and are never persisted by the compiler.
func (d Deriver) ClaimReceiptAddress(cohort, claimant PublicKey) (Derived, error) {
	return FindProgramAddress([][]byte{claimReceiptSeedPrefix, cohort[:], claimant[:]}, d.ProgramID)
}

// VaultAddress derives the vault PDA from a cohort and a single-byte
// vault index.
func (d Deriver) VaultAddress(cohort PublicKey, vaultIndex uint8) (Derived, error) {
	return FindProgramAddress([][]byte{vaultSeedPrefix, cohort[:], {vaultIndex}}, d.ProgramID)
}
