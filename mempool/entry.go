// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// LockPoints represents the height and time at which a transaction's BIP68
// sequence locks were last evaluated, together with the tip at which that
// evaluation happened. A LockPoints value is only valid for the tip it was
// computed against; ReorgReconciler is responsible for invalidating it when
// the tip moves (see ReorgReconciler.PruneStaleLockPoints).
type LockPoints struct {
	// Height is the block height at which the sequence locks are
	// satisfied.
	Height int32

	// Time is the media-time-past value (seconds) at which the sequence
	// locks are satisfied.
	Time int64

	// TipHash is the hash of the chain tip these lock points were
	// computed against.
	TipHash chainhash.Hash
}

// Entry is the mempool's unit of bookkeeping: a resident transaction
// together with its acceptance metadata and the ancestor/descendant
// aggregates that AggregateMaintainer keeps exact across every structural
// change. Entry fields other than the aggregates are set at acceptance;
// afterwards only LockPoints (refreshed by PruneStaleLockPoints), Time
// (restored by LoadFrom) and the priority delta change. The aggregates
// are mutated only through
// MemPool's fold/unfold helpers and must never be written directly by
// callers, which is why they are unexported with read-only accessors.
type Entry struct {
	// Tx is the resident transaction. The pool holds the sole reference
	// a caller needs; btcutil.Tx caches the transaction's hash so txid
	// computation is not repeated.
	Tx *btcutil.Tx

	// Fee is the transaction's true fee (input sum minus output sum).
	// PriorityDelta never mutates this; it only adjusts ordering.
	Fee btcutil.Amount

	// Time is the wall-clock acceptance timestamp.
	Time time.Time

	// EntryHeight is the chain height at acceptance, used by coinbase
	// maturity and priority calculations performed outside the pool.
	EntryHeight int32

	// VSize is the transaction's virtual size, the fee-weighting size
	// measure used for every feerate computation in this package. It is
	// never equal to the raw serialized byte length once witness data is
	// present.
	VSize int64

	// SigOpCost is the consensus sig-op accounting cost of the
	// transaction alone (not including ancestors).
	SigOpCost int64

	// LockPoints is the cached BIP68 evaluation result for this
	// transaction.
	LockPoints LockPoints

	// aggregate fields, self-only until AggregateMaintainer folds
	// ancestor/descendant contributions in.
	feeWithDescendants   btcutil.Amount
	sizeWithDescendants  int64
	countWithDescendants int64

	feeWithAncestors      btcutil.Amount
	sizeWithAncestors     int64
	countWithAncestors    int64
	sigOpCostWithAncestors int64

	// priorityDelta is an arbitrary caller-supplied adjustment applied
	// on top of Fee for ordering purposes only, set by
	// MemPool.PrioritiseTransaction. It never changes Fee itself, since
	// Fee must stay the transaction's true fee for accounting and
	// relay-fee comparisons (spec §6's ApplyDelta semantics).
	priorityDelta btcutil.Amount

	// heapIndex tracks this entry's slot in each of the five ordered
	// indexes so re-index (remove+reinsert) can run in O(log n) instead
	// of a linear scan. See orderedindex.go.
	heapIndex [numOrderings]int
}

// TxHash returns the entry's txid.
func (e *Entry) TxHash() chainhash.Hash {
	return *e.Tx.Hash()
}

// FeeWithDescendants returns fee(E) + sum(fee(D)) over all in-pool
// descendants D of E, including E itself.
func (e *Entry) FeeWithDescendants() btcutil.Amount { return e.feeWithDescendants }

// SizeWithDescendants returns the analogous virtual-size roll-up.
func (e *Entry) SizeWithDescendants() int64 { return e.sizeWithDescendants }

// CountWithDescendants returns the number of in-pool descendants plus
// the entry itself.
func (e *Entry) CountWithDescendants() int64 { return e.countWithDescendants }

// FeeWithAncestors returns fee(E) + sum(fee(A)) over all in-pool ancestors
// A of E, including E itself.
func (e *Entry) FeeWithAncestors() btcutil.Amount { return e.feeWithAncestors }

// SizeWithAncestors returns the analogous virtual-size roll-up.
func (e *Entry) SizeWithAncestors() int64 { return e.sizeWithAncestors }

// CountWithAncestors returns the number of in-pool ancestors plus the
// entry itself. Per invariant 4 this is always >= 1.
func (e *Entry) CountWithAncestors() int64 { return e.countWithAncestors }

// SigOpCostWithAncestors returns the sig-op cost roll-up over the ancestor
// package, including the entry itself.
func (e *Entry) SigOpCostWithAncestors() int64 { return e.sigOpCostWithAncestors }

// modifiedFee returns Fee adjusted by any delta PrioritiseTransaction
// applied. Aggregate roll-ups and every ordering compute against this,
// never against Fee directly, matching Bitcoin Core's nModFeesWithAncestors
// / nModFeesWithDescendants (original_source/src/mempool/txmempool.h).
func (e *Entry) modifiedFee() btcutil.Amount {
	return e.Fee + e.priorityDelta
}

// feeRate returns modifiedFee/vsize for the entry alone. Both
// descendant-score and ancestor-score derive from this and the
// equivalent package rate.
func (e *Entry) feeRate() float64 {
	if e.VSize <= 0 {
		return 0
	}
	return float64(e.modifiedFee()) / float64(e.VSize)
}

// descendantPackageFeeRate returns feeWithDescendants/sizeWithDescendants.
func (e *Entry) descendantPackageFeeRate() float64 {
	if e.sizeWithDescendants <= 0 {
		return 0
	}
	return float64(e.feeWithDescendants) / float64(e.sizeWithDescendants)
}

// ancestorPackageFeeRate returns feeWithAncestors/sizeWithAncestors.
func (e *Entry) ancestorPackageFeeRate() float64 {
	if e.sizeWithAncestors <= 0 {
		return 0
	}
	return float64(e.feeWithAncestors) / float64(e.sizeWithAncestors)
}

// descendantScore implements ordering 1: max(fee/vsize,
// feeWithDescendants/sizeWithDescendants), the mining-package feerate.
func (e *Entry) descendantScore() float64 {
	own := e.feeRate()
	pkg := e.descendantPackageFeeRate()
	if pkg > own {
		return pkg
	}
	return own
}

// ancestorScore implements ordering 4: min(fee/vsize,
// feeWithAncestors/sizeWithAncestors). Eviction does not use it; it
// ranks by descendantScore.
func (e *Entry) ancestorScore() float64 {
	own := e.feeRate()
	pkg := e.ancestorPackageFeeRate()
	if pkg < own {
		return pkg
	}
	return own
}

// NewEntry constructs a new self-only Entry. The aggregate fields are
// initialized to the entry's own contribution; AggregateMaintainer folds in
// ancestor/descendant state during Add.
func NewEntry(tx *btcutil.Tx, fee btcutil.Amount, acceptTime time.Time,
	entryHeight int32, vsize int64, sigOpCost int64, lp LockPoints) *Entry {

	e := &Entry{
		Tx:          tx,
		Fee:         fee,
		Time:        acceptTime,
		EntryHeight: entryHeight,
		VSize:       vsize,
		SigOpCost:   sigOpCost,
		LockPoints:  lp,
	}
	e.resetSelfAggregates()
	return e
}

// resetSelfAggregates sets every aggregate field back to the entry's own
// standalone contribution. Used at construction and by
// AggregateMaintainer.FoldNewEntry before it folds ancestors in.
func (e *Entry) resetSelfAggregates() {
	e.feeWithDescendants = e.modifiedFee()
	e.sizeWithDescendants = e.VSize
	e.countWithDescendants = 1

	e.feeWithAncestors = e.modifiedFee()
	e.sizeWithAncestors = e.VSize
	e.countWithAncestors = 1
	e.sigOpCostWithAncestors = e.SigOpCost
}

// applyPriorityDelta adjusts the entry's modified fee by delta and
// refreshes every aggregate field that fed in the old modifiedFee to
// keep them exact. It is the Entry-local half of
// MemPool.PrioritiseTransaction; the caller is responsible for
// propagating the same delta into every ancestor's feeWithDescendants
// and every descendant's feeWithAncestors, since Entry has no graph
// access of its own.
func (e *Entry) applyPriorityDelta(delta btcutil.Amount) {
	e.priorityDelta += delta
	e.feeWithDescendants += delta
	e.feeWithAncestors += delta
}
