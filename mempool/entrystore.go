// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sort"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// EntryStore owns every resident Entry and the multi-index lookup
// surface over them: direct lookup by txid, spend lookup by outpoint,
// and the five simultaneous sort orders described in priority.go. It
// has no notion of ancestors or descendants beyond what LinkGraph and
// AggregateMaintainer tell it to fold into an Entry's aggregate fields;
// EntryStore itself only ever inserts, removes, and re-sorts.
type EntryStore struct {
	byHash        map[chainhash.Hash]*Entry
	outpoints     *outpointIndex
	witnessHashes *witnessHashIndex

	orderings [numOrderings]*orderedIndex
}

// NewEntryStore builds an empty EntryStore. isContractTx and gasPrice may
// both be nil, in which case orderAncestorScoreOrGasPrice degenerates to
// orderAncestorScore (see newAncestorScoreOrGasPriceLess).
func NewEntryStore(isContractTx isContractTxFunc, gasPrice gasPriceFunc) *EntryStore {
	s := &EntryStore{
		byHash:        make(map[chainhash.Hash]*Entry),
		outpoints:     newOutpointIndex(),
		witnessHashes: newWitnessHashIndex(),
	}
	s.orderings[orderDescendantScore] = newOrderedIndex(orderDescendantScore, byDescendantScore)
	s.orderings[orderEntryTime] = newOrderedIndex(orderEntryTime, byEntryTime)
	s.orderings[orderMiningScore] = newOrderedIndex(orderMiningScore, byMiningScore)
	s.orderings[orderAncestorScore] = newOrderedIndex(orderAncestorScore, byAncestorScore)
	s.orderings[orderAncestorScoreOrGasPrice] = newOrderedIndex(
		orderAncestorScoreOrGasPrice, newAncestorScoreOrGasPriceLess(isContractTx, gasPrice))
	return s
}

// Len returns the number of resident entries.
func (s *EntryStore) Len() int { return len(s.byHash) }

// Get returns the resident entry for hash, or nil if none.
func (s *EntryStore) Get(hash chainhash.Hash) *Entry {
	return s.byHash[hash]
}

// Have reports whether hash is resident.
func (s *EntryStore) Have(hash chainhash.Hash) bool {
	_, ok := s.byHash[hash]
	return ok
}

// Insert adds entry to every index. entry must not already be present.
func (s *EntryStore) Insert(entry *Entry) {
	hash := entry.TxHash()
	if _, ok := s.byHash[hash]; ok {
		invariantViolation("EntryStore.Insert: %s already present", hash)
	}
	s.byHash[hash] = entry
	s.outpoints.add(entry)
	s.witnessHashes.add(entry)
	for _, idx := range s.orderings {
		idx.Insert(entry)
	}
}

// Remove deletes entry from every index. entry must be present.
func (s *EntryStore) Remove(entry *Entry) {
	hash := entry.TxHash()
	if _, ok := s.byHash[hash]; !ok {
		invariantViolation("EntryStore.Remove: %s not present", hash)
	}
	delete(s.byHash, hash)
	s.outpoints.remove(entry)
	s.witnessHashes.remove(entry)
	for _, idx := range s.orderings {
		idx.Remove(entry)
	}
}

// Resort re-establishes heap order for entry in every ordering after one
// or more of its aggregate fields changed in place. Callers must call
// Resort exactly once after finishing all aggregate mutation for entry,
// not once per field, since Fix's cost does not depend on how many
// fields changed.
func (s *EntryStore) Resort(entry *Entry) {
	for _, idx := range s.orderings {
		idx.Fix(entry)
	}
}

// SpenderOf returns the resident entry that spends outpoint, or nil.
func (s *EntryStore) SpenderOf(outpoint wire.OutPoint) *Entry {
	return s.outpoints.spender(outpoint)
}

// EntryByWitnessHash returns the resident entry with the given witness
// hash (wtxid), or nil.
func (s *EntryStore) EntryByWitnessHash(wtxid chainhash.Hash) *Entry {
	return s.witnessHashes.entryByWitnessHash(wtxid)
}

// WitnessHashSample returns every (witness_hash, entry) pair currently
// resident, in unspecified order, for block-relay sampling.
func (s *EntryStore) WitnessHashSample() map[chainhash.Hash]*Entry {
	return s.witnessHashes.sample()
}

// ByDescendantScore returns every resident entry in unspecified order;
// callers that need the fully sorted walk should use
// SortedByDescendantScore.
func (s *EntryStore) ByDescendantScore() []*Entry {
	return s.orderings[orderDescendantScore].All()
}

// SortedByDescendantScore returns every resident entry sorted best
// descendant-package feerate first. It snapshots the current heap
// contents and sorts the copy, leaving the live heap untouched.
func (s *EntryStore) SortedByDescendantScore() []*Entry {
	out := s.ByDescendantScore()
	sort.Slice(out, func(i, j int) bool { return byDescendantScore(out[i], out[j]) })
	return out
}

// WorstDescendantScore returns the resident entry with the lowest
// descendant-package feerate, or nil if the pool is empty — the tail of
// ordering 1. Evictor.SelectForEviction ranks victims with the same
// comparison, skipping entries it has already selected; ordering 1's
// heap is rooted at the *best* descendant score, so
// finding the worst end requires the linear scan below rather than a
// heap-root read.
func (s *EntryStore) WorstDescendantScore() *Entry {
	var worst *Entry
	for _, e := range s.byHash {
		if worst == nil || byDescendantScore(worst, e) {
			worst = e
		}
	}
	return worst
}

// WorstAncestorScore returns the resident entry with the lowest ancestor
// package feerate, or nil if the pool is empty. This ranks packages for
// block-template construction (ordering 4), not for eviction — Evictor
// selects victims by descendant score instead.
func (s *EntryStore) WorstAncestorScore() *Entry {
	return s.orderings[orderAncestorScore].Min()
}

// WorstAncestorScoreOrGasPrice is the ordering-5 analog of
// WorstAncestorScore, used by block-template construction instead when the
// pool is configured with a gas-price predicate.
func (s *EntryStore) WorstAncestorScoreOrGasPrice() *Entry {
	return s.orderings[orderAncestorScoreOrGasPrice].Min()
}

// Oldest returns the resident entry with the earliest acceptance time,
// or nil if the pool is empty.
func (s *EntryStore) Oldest() *Entry {
	return s.orderings[orderEntryTime].Min()
}

// BestMiningScore returns the resident entry with the highest own
// feerate, or nil if the pool is empty.
func (s *EntryStore) BestMiningScore() *Entry {
	return s.orderings[orderMiningScore].Min()
}

// All returns every resident entry in unspecified order.
func (s *EntryStore) All() []*Entry {
	out := make([]*Entry, 0, len(s.byHash))
	for _, e := range s.byHash {
		out = append(out, e)
	}
	return out
}
