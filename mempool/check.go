// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

// Check recomputes every resident entry's ancestor/descendant aggregates
// from scratch by walking LinkGraph and compares them against the
// incrementally maintained values AggregateMaintainer has been keeping.
// Any mismatch means the pool's bookkeeping has diverged from reality
// and Check panics via invariantViolation rather than returning an
// error, matching CTxMemPool::Check's fatal assertion behavior
// (original_source/src/mempool/txmempool.h). It is intended for tests
// and for a node's own optional periodic consistency-checking mode, not
// for production hot paths, since it is O(n) ancestor walks for every
// resident entry.
func (mp *MemPool) Check() {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	for _, entry := range mp.store.All() {
		ancestors, err := mp.graph.Ancestors(entry, -1)
		if err != nil {
			invariantViolation("Check: unbounded ancestor walk for %s failed: %v", entry.TxHash(), err)
		}

		var wantFeeA = entry.modifiedFee()
		var wantSizeA = entry.VSize
		var wantCountA int64 = 1
		var wantSigOps = entry.SigOpCost
		for a := range ancestors {
			wantFeeA += a.modifiedFee()
			wantSizeA += a.VSize
			wantCountA++
			wantSigOps += a.SigOpCost
		}
		if wantFeeA != entry.feeWithAncestors {
			invariantViolation("Check: %s feeWithAncestors is %d, recomputed %d",
				entry.TxHash(), entry.feeWithAncestors, wantFeeA)
		}
		if wantSizeA != entry.sizeWithAncestors {
			invariantViolation("Check: %s sizeWithAncestors is %d, recomputed %d",
				entry.TxHash(), entry.sizeWithAncestors, wantSizeA)
		}
		if wantCountA != entry.countWithAncestors {
			invariantViolation("Check: %s countWithAncestors is %d, recomputed %d",
				entry.TxHash(), entry.countWithAncestors, wantCountA)
		}
		if wantSigOps != entry.sigOpCostWithAncestors {
			invariantViolation("Check: %s sigOpCostWithAncestors is %d, recomputed %d",
				entry.TxHash(), entry.sigOpCostWithAncestors, wantSigOps)
		}

		descendants := mp.graph.Descendants(entry)
		wantFeeD := entry.modifiedFee()
		wantSizeD := entry.VSize
		var wantCountD int64 = 1
		for d := range descendants {
			wantFeeD += d.modifiedFee()
			wantSizeD += d.VSize
			wantCountD++
		}
		if wantFeeD != entry.feeWithDescendants {
			invariantViolation("Check: %s feeWithDescendants is %d, recomputed %d",
				entry.TxHash(), entry.feeWithDescendants, wantFeeD)
		}
		if wantSizeD != entry.sizeWithDescendants {
			invariantViolation("Check: %s sizeWithDescendants is %d, recomputed %d",
				entry.TxHash(), entry.sizeWithDescendants, wantSizeD)
		}
		if wantCountD != entry.countWithDescendants {
			invariantViolation("Check: %s countWithDescendants is %d, recomputed %d",
				entry.TxHash(), entry.countWithDescendants, wantCountD)
		}

		if entry.countWithAncestors < 1 {
			invariantViolation("Check: %s countWithAncestors is %d, must be >= 1",
				entry.TxHash(), entry.countWithAncestors)
		}
	}
}
