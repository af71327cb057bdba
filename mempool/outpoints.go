// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/btcsuite/btcd/wire"

// outpointIndex tracks which resident entry spends each outpoint,
// letting the pool answer "does this outpoint have an in-pool spender"
// and "which entries would conflict with this candidate" in O(1) per
// input rather than scanning every resident transaction's inputs. It is
// the mempool-local analog of the teacher's TxGraph.indexes.spentBy map
// (mempool/txgraph/graph.go), narrowed to the single direction this
// package needs since full graph clustering is out of scope here.
type outpointIndex struct {
	spentBy map[wire.OutPoint]*Entry
}

func newOutpointIndex() *outpointIndex {
	return &outpointIndex{spentBy: make(map[wire.OutPoint]*Entry)}
}

// add records that entry spends every input outpoint of its transaction.
// It is an invariant violation to call add for an outpoint that already
// has a spender recorded; callers must resolve conflicts before adding.
func (idx *outpointIndex) add(entry *Entry) {
	for _, txIn := range entry.Tx.MsgTx().TxIn {
		if existing, ok := idx.spentBy[txIn.PreviousOutPoint]; ok {
			invariantViolation("outpointIndex.add: outpoint %v already spent by %s, cannot also record %s",
				txIn.PreviousOutPoint, existing.TxHash(), entry.TxHash())
		}
		idx.spentBy[txIn.PreviousOutPoint] = entry
	}
}

// remove undoes add for entry.
func (idx *outpointIndex) remove(entry *Entry) {
	for _, txIn := range entry.Tx.MsgTx().TxIn {
		delete(idx.spentBy, txIn.PreviousOutPoint)
	}
}

// spender returns the resident entry that spends outpoint, or nil if
// outpoint is unspent by anything in the pool.
func (idx *outpointIndex) spender(outpoint wire.OutPoint) *Entry {
	return idx.spentBy[outpoint]
}

// conflicts returns the set of distinct resident entries that spend one
// or more of tx's inputs, deduplicated. An empty result means tx has no
// in-pool conflicts.
func (idx *outpointIndex) conflicts(tx *wire.MsgTx) []*Entry {
	seen := make(map[*Entry]struct{})
	var out []*Entry
	for _, txIn := range tx.TxIn {
		if spender, ok := idx.spentBy[txIn.PreviousOutPoint]; ok {
			if _, dup := seen[spender]; !dup {
				seen[spender] = struct{}{}
				out = append(out, spender)
			}
		}
	}
	return out
}
