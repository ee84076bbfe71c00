// Package compiler orchestrates the five-stage campaign compilation
// pipeline — ingest, allocate, vaults, merkle, addressing — against a
// single compiled campaign database.
package compiler

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/levicook/prism-protocol-sub001/addressing"
	"github.com/levicook/prism-protocol-sub001/allocate"
	"github.com/levicook/prism-protocol-sub001/ingest"
	"github.com/levicook/prism-protocol-sub001/merkle"
	"github.com/levicook/prism-protocol-sub001/store"
	"github.com/levicook/prism-protocol-sub001/vaults"
)

// merkleWorkers bounds how many cohorts build their Merkle tree
// concurrently: fan work out over goroutines, fan results back in a
// fixed order before the single write phase.
const merkleWorkers = 8

// Run executes the full pipeline against a fresh compiled campaign
// database at cfg.DatabasePath. Each stage commits or rolls back as a
// single transaction, so a failed stage leaves the store at the
// previous stage's boundary.
func Run(cfg Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}

	claimants, cohorts, err := readInputs(cfg)
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return wrapError(KindStore, "open database", err)
	}
	defer db.Close()

	if err := ingestStage(db, cfg, claimants, cohorts); err != nil {
		return err
	}
	if err := allocateStage(db, claimants, cohorts, cfg.TotalBudget); err != nil {
		return err
	}
	if err := vaultStage(db, cfg, claimants); err != nil {
		return err
	}
	if err := merkleStage(db, cfg); err != nil {
		return err
	}
	if err := addressingStage(db, cfg); err != nil {
		return err
	}
	return nil
}

func readInputs(cfg Config) ([]ingest.ClaimantRow, []ingest.CohortRow, error) {
	claimantsFile, err := os.Open(cfg.ClaimantsCSVPath)
	if err != nil {
		return nil, nil, wrapError(KindInput, "open claimants csv", err)
	}
	defer claimantsFile.Close()
	claimants, err := ingest.ReadClaimants(claimantsFile)
	if err != nil {
		return nil, nil, wrapError(KindInput, "parse claimants csv", err)
	}

	cohortsFile, err := os.Open(cfg.CohortsCSVPath)
	if err != nil {
		return nil, nil, wrapError(KindInput, "open cohorts csv", err)
	}
	defer cohortsFile.Close()
	cohorts, err := ingest.ReadCohorts(cohortsFile)
	if err != nil {
		return nil, nil, wrapError(KindInput, "parse cohorts csv", err)
	}

	if err := ingest.ValidateConsistency(claimants, cohorts); err != nil {
		return nil, nil, wrapError(KindInput, "cross-file consistency", err)
	}
	return claimants, cohorts, nil
}

func ingestStage(db *store.DB, cfg Config, claimants []ingest.ClaimantRow, cohorts []ingest.CohortRow) error {
	return db.WithStageTx(func(tx *sql.Tx) error {
		storeClaimants := make([]store.IngestClaimant, len(claimants))
		for i, c := range claimants {
			storeClaimants[i] = store.IngestClaimant{Cohort: c.Cohort, Claimant: c.Claimant, Entitlements: c.Entitlements.String()}
		}
		if err := db.WriteIngestClaimants(tx, storeClaimants); err != nil {
			return wrapError(KindStore, "write ingest_claimants", err)
		}

		storeCohorts := make([]store.IngestCohort, len(cohorts))
		for i, c := range cohorts {
			storeCohorts[i] = store.IngestCohort{Cohort: c.Cohort, SharePercentage: c.SharePercentage.String()}
		}
		if err := db.WriteIngestCohorts(tx, storeCohorts); err != nil {
			return wrapError(KindStore, "write ingest_cohorts", err)
		}

		if err := db.InitCampaign(tx, store.Campaign{
			Admin:             cfg.AdminPubkey.String(),
			Mint:              cfg.MintPubkey.String(),
			TotalBudget:       fmt.Sprintf("%d", cfg.TotalBudget),
			ClaimTreeVersion:  string(cfg.ClaimTreeVersion),
			ClaimantsPerVault: cfg.ClaimantsPerVault,
		}); err != nil {
			return wrapError(KindStore, "write compiled_campaign", err)
		}
		return nil
	})
}

func allocateStage(db *store.DB, claimants []ingest.ClaimantRow, cohorts []ingest.CohortRow, totalBudget uint64) error {
	sums := make(map[string]decimal.Decimal, len(cohorts))
	for _, c := range claimants {
		sums[c.Cohort] = sums[c.Cohort].Add(c.Entitlements)
	}

	inputs := make([]allocate.CohortInput, len(cohorts))
	totals := make(map[string]uint64, len(cohorts))
	for i, c := range cohorts {
		total, err := decimalToUint64(sums[c.Cohort])
		if err != nil {
			return wrapError(KindAllocation, fmt.Sprintf("cohort %q total entitlements", c.Cohort), err)
		}
		totals[c.Cohort] = total
		inputs[i] = allocate.CohortInput{Name: c.Cohort, SharePercentage: c.SharePercentage, TotalEntitlements: total}
	}

	allocations, err := allocate.Allocate(totalBudget, inputs)
	if err != nil {
		return wrapError(KindAllocation, "allocate budget", err)
	}

	return db.WithStageTx(func(tx *sql.Tx) error {
		for _, a := range allocations {
			if err := db.WriteCohortAllocation(tx, a.Name, a.Budget, a.AmountPerEntitlement, a.Dust, totals[a.Name]); err != nil {
				return wrapError(KindStore, fmt.Sprintf("write allocation for cohort %q", a.Name), err)
			}
		}
		return nil
	})
}

func vaultStage(db *store.DB, cfg Config, claimants []ingest.ClaimantRow) error {
	byCohort := make(map[string][]ingest.ClaimantRow)
	for _, c := range claimants {
		byCohort[c.Cohort] = append(byCohort[c.Cohort], c)
	}

	return db.WithStageTx(func(tx *sql.Tx) error {
		names, err := db.ListCohortNamesTx(tx)
		if err != nil {
			return wrapError(KindStore, "list cohorts", err)
		}

		for _, name := range names {
			rows := byCohort[name]
			addrs := make([]string, len(rows))
			entByAddr := make(map[string]uint64, len(rows))
			for i, r := range rows {
				addrs[i] = r.Claimant
				e, err := decimalToUint64(r.Entitlements)
				if err != nil {
					return wrapError(KindAllocation, fmt.Sprintf("cohort %q claimant %q entitlements", name, r.Claimant), err)
				}
				entByAddr[r.Claimant] = e
			}

			assignments, vaultCount, err := vaults.Assign(addrs, cfg.ClaimantsPerVault)
			if err != nil {
				return wrapError(KindVaultLimit, fmt.Sprintf("cohort %q", name), err)
			}

			cohort, err := db.ReadCohortTx(tx, name)
			if err != nil {
				return wrapError(KindStore, fmt.Sprintf("read cohort %q", name), err)
			}

			leaves := make([]store.CompiledLeaf, len(assignments))
			for i, a := range assignments {
				entitlements := entByAddr[a.Claimant]
				payout, err := allocate.PerLeafPayout(entitlements, cohort.AmountPerEntitlement)
				if err != nil {
					return wrapError(KindAllocation, fmt.Sprintf("cohort %q claimant %q payout", name, a.Claimant), err)
				}
				leaves[i] = store.CompiledLeaf{Claimant: a.Claimant, VaultIndex: a.VaultIndex, Entitlements: entitlements, Payout: payout}
			}

			if err := db.WriteLeaves(tx, name, leaves, vaultCount, vaultCount); err != nil {
				return wrapError(KindStore, fmt.Sprintf("write leaves for cohort %q", name), err)
			}
		}
		return nil
	})
}

type merkleResult struct {
	root   merkle.Digest
	proofs []store.CompiledProof
	err    error
}

func merkleStage(db *store.DB, cfg Config) error {
	return db.WithStageTx(func(tx *sql.Tx) error {
		names, err := db.ListCohortNamesTx(tx)
		if err != nil {
			return wrapError(KindStore, "list cohorts", err)
		}

		results := make([]merkleResult, len(names))
		sem := make(chan struct{}, merkleWorkers)
		var wg sync.WaitGroup
		for i, name := range names {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, name string) {
				defer wg.Done()
				defer func() { <-sem }()
				root, proofs, err := buildCohortMerkle(db, tx, cfg, name)
				results[i] = merkleResult{root: root, proofs: proofs, err: err}
			}(i, name)
		}
		wg.Wait()

		for i, name := range names {
			r := results[i]
			if r.err != nil {
				return r.err
			}
			if err := db.WriteMerkleRoot(tx, name, hex.EncodeToString(r.root[:])); err != nil {
				return wrapError(KindStore, fmt.Sprintf("write merkle root for cohort %q", name), err)
			}
			if err := db.WriteProofs(tx, name, r.proofs); err != nil {
				return wrapError(KindStore, fmt.Sprintf("write proofs for cohort %q", name), err)
			}

			persisted, err := db.ReadCohortTx(tx, name)
			if err != nil {
				return wrapError(KindStore, fmt.Sprintf("read back cohort %q", name), err)
			}
			rootBytes, err := hex.DecodeString(persisted.MerkleRoot)
			if err != nil || len(rootBytes) != 32 {
				return wrapError(KindStore, fmt.Sprintf("cohort %q persisted root is malformed", name), err)
			}
			var persistedRoot merkle.Digest
			copy(persistedRoot[:], rootBytes)
			assertRootMatches(name, persistedRoot, r.root)
		}
		return nil
	})
}

func buildCohortMerkle(db *store.DB, tx *sql.Tx, cfg Config, name string) (merkle.Digest, []store.CompiledProof, error) {
	leaves, err := db.ListLeavesTx(tx, name)
	if err != nil {
		return merkle.Digest{}, nil, wrapError(KindStore, fmt.Sprintf("list leaves for cohort %q", name), err)
	}
	if len(leaves) == 0 {
		return merkle.Digest{}, nil, newError(KindInput, fmt.Sprintf("cohort %q has no claimants", name))
	}

	digests := make([]merkle.Digest, len(leaves))
	for i, l := range leaves {
		addr, err := addressing.ParsePublicKey(l.Claimant)
		if err != nil {
			return merkle.Digest{}, nil, wrapError(KindInput, fmt.Sprintf("cohort %q claimant %q", name, l.Claimant), err)
		}
		digests[i] = merkle.Leaf{Claimant: addr, VaultIndex: l.VaultIndex, Entitlements: l.Entitlements}.Hash()
	}

	tree, err := merkle.Build(digests)
	if err != nil {
		return merkle.Digest{}, nil, wrapError(KindInput, fmt.Sprintf("build merkle tree for cohort %q", name), err)
	}

	proofs := make([]store.CompiledProof, len(leaves))
	for i, l := range leaves {
		rawProof, err := tree.ProofFor(i)
		if err != nil {
			return merkle.Digest{}, nil, wrapError(KindInternal, fmt.Sprintf("cohort %q leaf %d proof", name, i), err)
		}
		var encoded []byte
		if cfg.ClaimTreeVersion == ClaimTreeV1 {
			encoded = merkle.EncodeV1([][]merkle.Digest{rawProof})
		} else {
			encoded = merkle.EncodeV0(rawProof)
		}
		proofs[i] = store.CompiledProof{Claimant: l.Claimant, ProofVersion: cfg.ClaimTreeVersion.proofVersion(), ProofBytes: encoded}
	}

	return tree.Root(), proofs, nil
}

func addressingStage(db *store.DB, cfg Config) error {
	return db.WithStageTx(func(tx *sql.Tx) error {
		names, err := db.ListCohortNamesTx(tx)
		if err != nil {
			return wrapError(KindStore, "list cohorts", err)
		}

		roots := make([]merkle.Digest, len(names))
		for i, name := range names {
			c, err := db.ReadCohortTx(tx, name)
			if err != nil {
				return wrapError(KindStore, fmt.Sprintf("read cohort %q", name), err)
			}
			rootBytes, err := hex.DecodeString(c.MerkleRoot)
			if err != nil || len(rootBytes) != 32 {
				return wrapError(KindStore, fmt.Sprintf("cohort %q has a malformed merkle root", name), err)
			}
			copy(roots[i][:], rootBytes)
		}
		fingerprint := merkle.Fingerprint(roots)

		deriver := addressing.NewDeriver(cfg.ProgramID)
		campaign, err := deriver.CampaignAddress(cfg.AdminPubkey, fingerprint)
		if err != nil {
			return wrapError(KindInternal, "derive campaign address", err)
		}
		if err := db.SetCampaignAddress(tx, hex.EncodeToString(fingerprint[:]), campaign.Address.String(), campaign.Bump); err != nil {
			return wrapError(KindStore, "write campaign address", err)
		}

		for i, name := range names {
			cohortAddr, err := deriver.CohortAddress(campaign.Address, roots[i])
			if err != nil {
				return wrapError(KindInternal, fmt.Sprintf("derive cohort %q address", name), err)
			}
			if err := db.SetCohortAddress(tx, name, cohortAddr.Address.String(), cohortAddr.Bump); err != nil {
				return wrapError(KindStore, fmt.Sprintf("write cohort %q address", name), err)
			}

			vaultRows, err := db.ListVaultsTx(tx, name)
			if err != nil {
				return wrapError(KindStore, fmt.Sprintf("list vaults for cohort %q", name), err)
			}
			leaves, err := db.ListLeavesTx(tx, name)
			if err != nil {
				return wrapError(KindStore, fmt.Sprintf("list leaves for cohort %q", name), err)
			}
			balances := make(map[uint8]uint64, len(vaultRows))
			for _, l := range leaves {
				balances[l.VaultIndex] += l.Payout
			}

			for _, v := range vaultRows {
				vaultAddr, err := deriver.VaultAddress(cohortAddr.Address, v.VaultIndex)
				if err != nil {
					return wrapError(KindInternal, fmt.Sprintf("derive cohort %q vault %d address", name, v.VaultIndex), err)
				}
				if err := db.SetVaultAddress(tx, name, v.VaultIndex, vaultAddr.Address.String(), vaultAddr.Bump, balances[v.VaultIndex]); err != nil {
					return wrapError(KindStore, fmt.Sprintf("write cohort %q vault %d address", name, v.VaultIndex), err)
				}
			}
		}
		return nil
	})
}
