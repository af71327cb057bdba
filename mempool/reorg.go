// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/btcsuite/btcd/btcutil"

// ReorgReconciler repairs pool state when a previously connected block
// is disconnected and its transactions are offered back to the pool.
// Unlike ordinary admission, a disconnected block's transactions can
// already have in-pool descendants (transactions that were relayed
// spending their outputs while they were confirmed), so re-adding them
// has to fold aggregates against those descendants rather than treat
// them as leaves. It is grounded on
// CTxMemPool::UpdateTransactionsFromBlock
// (original_source/src/mempool/txmempool.h); the teacher's mempool
// package has no analog since btcd's mempool_v2 never re-admits
// disconnected-block transactions itself.
type ReorgReconciler struct {
	mp *MemPool
}

// NewReorgReconciler builds a reconciler bound to mp.
func NewReorgReconciler(mp *MemPool) *ReorgReconciler {
	return &ReorgReconciler{mp: mp}
}

// ReadmitDisconnectedTx re-admits tx, which was confirmed in a block
// that has just been disconnected, back into the pool. fee and
// entryHeight describe tx exactly as they would for a fresh admission;
// the difference from Add is that ReadmitDisconnectedTx does
// not run Validator against tx (it was already valid once, at a height
// the reconciler assumes the caller has already confirmed sequence
// locks still hold for) and it seeds descendant aggregates from any
// already-resident child rather than assuming tx is a leaf.
//
// If tx's BIP68 lock points no longer hold against the new tip, the
// caller must not call ReadmitDisconnectedTx at all; PruneStaleLockPoints
// (which removes with RemoveReorg) is for pruning exactly that case among
// transactions already re-admitted by an earlier, shallower block in the
// same reorg.
func (r *ReorgReconciler) ReadmitDisconnectedTx(tx *btcutil.Tx, fee btcutil.Amount,
	entryHeight int32, vsize int64, sigOpCost int64, lp LockPoints) (*Entry, error) {

	r.mp.mtx.Lock()
	defer r.mp.mtx.Unlock()
	return r.mp.readmitLocked(tx, fee, entryHeight, vsize, sigOpCost, lp)
}

// PruneStaleLockPoints removes every resident entry whose cached
// LockPoints.TipHash no longer matches the current chain tip and whose
// sequence locks Validator now reports as unsatisfied against the new
// tip. It is the counterpart to Bitcoin Core's own post-reorg lock-point
// invalidation pass and should be called once after a reorg has fully
// finished disconnecting and reconnecting blocks, not once per block.
func (r *ReorgReconciler) PruneStaleLockPoints() []*Entry {
	r.mp.mtx.Lock()
	defer r.mp.mtx.Unlock()
	return r.mp.pruneStaleLockPointsLocked()
}
