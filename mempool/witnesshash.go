// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// witnessHashIndex is the flat (witness_hash, entry_ref) surface EntryStore
// exposes alongside outpointIndex, used for block-relay compact-block
// witness sampling rather than for any lookup mempool.go itself performs.
// It carries no ordering guarantee, matching the teacher's own
// map-as-set idiom for unordered membership surfaces (outpointIndex.spentBy
// above is the same shape).
type witnessHashIndex struct {
	byWitnessHash map[chainhash.Hash]*Entry
}

func newWitnessHashIndex() *witnessHashIndex {
	return &witnessHashIndex{byWitnessHash: make(map[chainhash.Hash]*Entry)}
}

// add records entry under its transaction's witness hash. It is an
// invariant violation to add the same witness hash twice, mirroring
// outpointIndex.add's duplicate check.
func (idx *witnessHashIndex) add(entry *Entry) {
	wtxid := *entry.Tx.WitnessHash()
	if existing, ok := idx.byWitnessHash[wtxid]; ok {
		invariantViolation("witnessHashIndex.add: witness hash %v already recorded for %s, cannot also record %s",
			wtxid, existing.TxHash(), entry.TxHash())
	}
	idx.byWitnessHash[wtxid] = entry
}

// remove undoes add for entry.
func (idx *witnessHashIndex) remove(entry *Entry) {
	delete(idx.byWitnessHash, *entry.Tx.WitnessHash())
}

// entryByWitnessHash returns the resident entry with the given witness
// hash, or nil.
func (idx *witnessHashIndex) entryByWitnessHash(wtxid chainhash.Hash) *Entry {
	return idx.byWitnessHash[wtxid]
}

// sample returns every (witness_hash, entry) pair currently recorded, in
// unspecified order, for compact-block-style relay sampling.
func (idx *witnessHashIndex) sample() map[chainhash.Hash]*Entry {
	out := make(map[chainhash.Hash]*Entry, len(idx.byWitnessHash))
	for k, v := range idx.byWitnessHash {
		out[k] = v
	}
	return out
}
