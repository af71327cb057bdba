// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/btcsuite/btcd/chaincfg/chainhash"

// PriorityDeltaMap records the caller-applied fee adjustments made
// through MemPool.PrioritiseTransaction, independent of whether the
// affected transaction is currently resident. Bitcoin Core keeps this
// as its own map (mapDeltas) precisely so a prioritisation made before a
// transaction is seen, or that outlives the transaction being evicted
// and later resubmitted, is not lost; this type is the same idea kept
// separate from Entry, which only ever holds the delta for a
// currently-resident transaction.
type PriorityDeltaMap struct {
	deltas map[chainhash.Hash]int64
}

// NewPriorityDeltaMap returns an empty PriorityDeltaMap.
func NewPriorityDeltaMap() *PriorityDeltaMap {
	return &PriorityDeltaMap{deltas: make(map[chainhash.Hash]int64)}
}

// ApplyDelta adds delta to hash's recorded adjustment and returns the
// new total.
func (m *PriorityDeltaMap) ApplyDelta(hash chainhash.Hash, delta int64) int64 {
	total := m.deltas[hash] + delta
	if total == 0 {
		delete(m.deltas, hash)
	} else {
		m.deltas[hash] = total
	}
	return total
}

// Get returns hash's currently recorded adjustment, or 0 if none.
func (m *PriorityDeltaMap) Get(hash chainhash.Hash) int64 {
	return m.deltas[hash]
}

// ClearPrioritisation removes hash's recorded adjustment entirely and
// returns what it was, so the caller can undo its effect on any
// resident Entry before discarding it.
func (m *PriorityDeltaMap) ClearPrioritisation(hash chainhash.Hash) int64 {
	old := m.deltas[hash]
	delete(m.deltas, hash)
	return old
}

// All returns every recorded (txid, delta) pair, in unspecified order,
// for persistence: a delta survives its transaction's eviction, or
// predates its admission entirely, so dumping only resident entries'
// cached deltas would silently lose it.
func (m *PriorityDeltaMap) All() map[chainhash.Hash]int64 {
	out := make(map[chainhash.Hash]int64, len(m.deltas))
	for k, v := range m.deltas {
		out[k] = v
	}
	return out
}
