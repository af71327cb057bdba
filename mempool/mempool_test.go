// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// TestAddChainFoldsAggregates verifies that admitting a parent followed
// by a child folds descendant aggregates into the parent and ancestor
// aggregates into the child, matching the ancestor/descendant roll-up
// invariant this package exists to maintain.
func TestAddChainFoldsAggregates(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)

	fundOp := fundingOutPoint(1, 0)
	coins.seed(fundOp, 100000)

	parentTx := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))
	parentEntry, err := mp.Add(parentTx, 100)
	require.NoError(t, err)
	require.Equal(t, btcutil.Amount(1000), parentEntry.Fee)

	childOp := wire.OutPoint{Hash: *parentTx.Hash(), Index: 0}
	childTx := btcutil.NewTx(buildTx([]wire.OutPoint{childOp}, []int64{98000}))
	childEntry, err := mp.Add(childTx, 100)
	require.NoError(t, err)
	require.Equal(t, btcutil.Amount(1000), childEntry.Fee)

	require.Equal(t, int64(2), parentEntry.CountWithDescendants())
	require.Equal(t, int64(2), childEntry.CountWithAncestors())
	require.Equal(t, parentEntry.Fee+childEntry.Fee, parentEntry.FeeWithDescendants())
	require.Equal(t, parentEntry.Fee+childEntry.Fee, childEntry.FeeWithAncestors())

	mp.Check()
}

// TestAncestorLimitRejectsTransaction verifies that a transaction whose
// ancestor package would exceed Config.MaxAncestorCount is refused with
// ReasonChainLimitExceeded rather than admitted.
func TestAncestorLimitRejectsTransaction(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)
	mp.cfg.MaxAncestorCount = 1

	fundOp := fundingOutPoint(2, 0)
	coins.seed(fundOp, 100000)

	parentTx := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))
	_, err := mp.Add(parentTx, 100)
	require.NoError(t, err)

	childOp := wire.OutPoint{Hash: *parentTx.Hash(), Index: 0}
	childTx := btcutil.NewTx(buildTx([]wire.OutPoint{childOp}, []int64{98000}))

	_, err = mp.Add(childTx, 100)
	require.NoError(t, err, "one ancestor is within the limit of 1")

	grandchildTx := btcutil.NewTx(buildTx(
		[]wire.OutPoint{{Hash: *childTx.Hash(), Index: 0}}, []int64{97000}))
	_, err = mp.Add(grandchildTx, 100)
	require.Error(t, err)
	require.True(t, IsChainLimitError(err))
}

// TestConflictWithoutReplacementPolicyIsRejected verifies that a
// transaction double-spending a resident transaction's input is refused
// with ReasonConflict when no ReplacementPolicy is configured.
func TestConflictWithoutReplacementPolicyIsRejected(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)

	fundOp := fundingOutPoint(3, 0)
	coins.seed(fundOp, 100000)

	txA := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))
	_, err := mp.Add(txA, 100)
	require.NoError(t, err)

	txB := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{98000}))
	_, err = mp.Add(txB, 100)
	require.Error(t, err)
	pe, ok := err.(PolicyError)
	require.True(t, ok)
	require.Equal(t, ReasonConflict, pe.Reason)
}

// replaceAnything is a ReplacementPolicy stub that always allows
// replacement, used to exercise the conflict-resolution path without
// pulling in a real BIP125 rule implementation.
type replaceAnything struct{}

func (replaceAnything) CanReplace(*Entry, []*Entry) error { return nil }

// TestReplacementEvictsConflict verifies that when a ReplacementPolicy
// permits it, an incoming conflicting transaction evicts the resident
// transaction it double-spends.
func TestReplacementEvictsConflict(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)
	mp.cfg.ReplacementPolicy = replaceAnything{}

	fundOp := fundingOutPoint(4, 0)
	coins.seed(fundOp, 100000)

	txA := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))
	_, err := mp.Add(txA, 100)
	require.NoError(t, err)
	require.True(t, mp.HaveTransaction(*txA.Hash()))

	txB := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{98500}))
	_, err = mp.Add(txB, 100)
	require.NoError(t, err)

	require.False(t, mp.HaveTransaction(*txA.Hash()))
	require.True(t, mp.HaveTransaction(*txB.Hash()))
}

// TestRemoveForBlockKeepsDescendantResident verifies that mining a
// parent transaction removes only that transaction, leaving its
// resident child in place with corrected ancestor aggregates.
func TestRemoveForBlockKeepsDescendantResident(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)

	fundOp := fundingOutPoint(5, 0)
	coins.seed(fundOp, 100000)

	parentTx := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))
	_, err := mp.Add(parentTx, 100)
	require.NoError(t, err)

	childOp := wire.OutPoint{Hash: *parentTx.Hash(), Index: 0}
	childTx := btcutil.NewTx(buildTx([]wire.OutPoint{childOp}, []int64{98000}))
	childEntry, err := mp.Add(childTx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(2), childEntry.CountWithAncestors())

	mp.RemoveForBlock([]*btcutil.Tx{parentTx}, 101)

	require.False(t, mp.HaveTransaction(*parentTx.Hash()))
	require.True(t, mp.HaveTransaction(*childTx.Hash()))
	require.Equal(t, int64(1), childEntry.CountWithAncestors())
	require.Equal(t, childEntry.Fee, childEntry.FeeWithAncestors())

	mp.Check()
}

// TestExpireRemovesOldEntries verifies that Expire removes only entries
// older than Config.MempoolExpiry.
func TestExpireRemovesOldEntries(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)
	mp.cfg.MempoolExpiry = 3600

	fundOp := fundingOutPoint(6, 0)
	coins.seed(fundOp, 100000)
	tx := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))
	_, err := mp.Add(tx, 100)
	require.NoError(t, err)

	removed := mp.Expire()
	require.Equal(t, 0, removed, "entry is brand new, should not expire yet")

	mp.now = func() time.Time { return time.Unix(1_700_000_000+7200, 0) }
	removed = mp.Expire()
	require.Equal(t, 1, removed)
	require.False(t, mp.HaveTransaction(*tx.Hash()))
}

// TestPackageEvictionEvictsWholePackage covers spec.md's own worked
// package-eviction example: a parent A with a poor own feerate is kept
// afloat by a child B that pays a large fee (child-pays-for-parent), so
// B lifts A's descendant-score to the package rate, but A's descendant-score —
// max(A's own rate, the combined package rate) — is still the worst in
// the pool because the package rate sits below B's own rate. Trimming
// must therefore pick A as the victim and evict the whole package
// {A,B} together, not just whichever entry looks worst in isolation.
// It also verifies the evicted package's feerate feeds the rolling
// minimum fee floor once a block has been seen, matching spec.md's
// "rollingMinimumFeeRate becomes >= evictedPackageFeeRate +
// incrementalRelayFee" step.
func TestPackageEvictionEvictsWholePackage(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)

	// A: a thin fee on its own, just above the relay floor.
	aOp := fundingOutPoint(10, 0)
	coins.seed(aOp, 100000)
	aTx := btcutil.NewTx(buildTx([]wire.OutPoint{aOp}, []int64{99800}))
	aEntry, err := mp.Add(aTx, 100)
	require.NoError(t, err)

	// B: A's child, paying a large fee that keeps the pair's combined
	// feerate healthy without ever making A's own feerate look bad.
	bOp := wire.OutPoint{Hash: *aTx.Hash(), Index: 0}
	bTx := btcutil.NewTx(buildTx([]wire.OutPoint{bOp}, []int64{94800}))
	_, err = mp.Add(bTx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(2), aEntry.CountWithDescendants())

	// A block passes so the rolling fee floor is eligible to bump on
	// the next eviction (spec.md's blockSinceLastRollingFeeBump gate).
	mp.RemoveForBlock(nil, 101)
	floorBefore := mp.evictor.GetMinFee(mp.now(), 0)

	usage := mp.DynamicMemUsage()
	victims := mp.TrimToSize(usage - 1)

	require.Len(t, victims, 2, "the whole package {A,B} evicts together, not just the worse half")
	require.False(t, mp.HaveTransaction(*aTx.Hash()))
	require.False(t, mp.HaveTransaction(*bTx.Hash()))

	floorAfter := mp.evictor.GetMinFee(mp.now(), 0)
	require.Greater(t, floorAfter, floorBefore,
		"the evicted package's feerate must raise the rolling minimum fee floor")
}

// TestReorgReadmitRestoresDescendantAggregates verifies that when a
// disconnected parent is readmitted through ReorgReconciler while its
// child is still resident (relayed while the parent was confirmed), the
// parent's descendant aggregates are repopulated from that pre-existing
// child and the child's ancestor aggregates are corrected to include
// the parent again, matching the roll-up invariant
// feeWithDescendants(E) = fee(E) + sum(fee(D)).
func TestReorgReadmitRestoresDescendantAggregates(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)
	reconciler := NewReorgReconciler(mp)

	fundOp := fundingOutPoint(11, 0)
	coins.seed(fundOp, 100000)
	parentTx := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))
	parentFee := btcutil.Amount(1000)

	// The child relays and gets admitted while the parent is still
	// confirmed in a block, so the parent is not resident here at all.
	childOp := wire.OutPoint{Hash: *parentTx.Hash(), Index: 0}
	childTx := btcutil.NewTx(buildTx([]wire.OutPoint{childOp}, []int64{98000}))
	coins.seed(childOp, 99000)
	childEntry, err := mp.Add(childTx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(1), childEntry.CountWithAncestors(),
		"parent isn't resident yet, so the child starts out as its own only ancestor")

	parentEntry, err := reconciler.ReadmitDisconnectedTx(parentTx, parentFee, 99, int64(parentTx.MsgTx().SerializeSize()), 0, LockPoints{})
	require.NoError(t, err)

	require.Equal(t, int64(2), parentEntry.CountWithDescendants(),
		"the pre-existing child must be folded into the readmitted parent's descendant aggregate")
	require.Equal(t, parentEntry.Fee+childEntry.Fee, parentEntry.FeeWithDescendants())

	require.Equal(t, int64(2), childEntry.CountWithAncestors(),
		"the child's ancestor aggregate must be corrected to include the readmitted parent")
	require.Equal(t, parentEntry.Fee+childEntry.Fee, childEntry.FeeWithAncestors())

	mp.Check()
}

// TestReorgBulkReadmitThreeLevelChainRestoresAggregates covers spec.md's
// literal Scenario 4: the pool holds grandchild C while a whole
// A->B->C chain is disconnected, and A then B are bulk-readmitted in
// block order through ReorgReconciler. Readmitting A alone can't yet
// discover any descendant (B isn't resident), but readmitting B must
// not only fold C into B's own aggregates — it must also propagate C
// into A's descendant aggregate and propagate A into C's ancestor
// aggregate, even though A and C never gain a direct graph edge to
// each other.
func TestReorgBulkReadmitThreeLevelChainRestoresAggregates(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)
	reconciler := NewReorgReconciler(mp)

	fundOp := fundingOutPoint(12, 0)
	coins.seed(fundOp, 100000)
	aTx := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))
	aFee := btcutil.Amount(1000)

	bOp := wire.OutPoint{Hash: *aTx.Hash(), Index: 0}
	bTx := btcutil.NewTx(buildTx([]wire.OutPoint{bOp}, []int64{98000}))
	bFee := btcutil.Amount(1000)

	// C is the only one of the three still resident: it relayed and was
	// admitted while A and B were both confirmed in the block that's
	// about to be disconnected.
	cOp := wire.OutPoint{Hash: *bTx.Hash(), Index: 0}
	cTx := btcutil.NewTx(buildTx([]wire.OutPoint{cOp}, []int64{97000}))
	coins.seed(cOp, 98000)
	cEntry, err := mp.Add(cTx, 100)
	require.NoError(t, err)
	require.Equal(t, int64(1), cEntry.CountWithAncestors())

	// Bulk-readmit in block order: A first, then B. A has no resident
	// descendant to discover yet, since B isn't back in the pool.
	aEntry, err := reconciler.ReadmitDisconnectedTx(aTx, aFee, 99, int64(aTx.MsgTx().SerializeSize()), 0, LockPoints{})
	require.NoError(t, err)
	require.Equal(t, int64(1), aEntry.CountWithDescendants(),
		"B isn't resident yet, so A can't discover any descendant on its own readmission")

	bEntry, err := reconciler.ReadmitDisconnectedTx(bTx, bFee, 99, int64(bTx.MsgTx().SerializeSize()), 0, LockPoints{})
	require.NoError(t, err)

	require.Equal(t, int64(2), bEntry.CountWithDescendants(),
		"B's own descendant aggregate must include the pre-existing grandchild C")
	require.Equal(t, bEntry.Fee+cEntry.Fee, bEntry.FeeWithDescendants())

	require.Equal(t, int64(3), aEntry.CountWithDescendants(),
		"A's descendant aggregate must gain C too, not just B, once B links them together")
	require.Equal(t, aEntry.Fee+bEntry.Fee+cEntry.Fee, aEntry.FeeWithDescendants())

	require.Equal(t, int64(3), cEntry.CountWithAncestors(),
		"C's ancestor aggregate must gain A too, not just B, once B links them together")
	require.Equal(t, aEntry.Fee+bEntry.Fee+cEntry.Fee, cEntry.FeeWithAncestors())

	mp.Check()
}

// TestPrioritiseTransactionPropagatesToAncestorsAndDescendants verifies
// that PrioritiseTransaction's delta is visible in both a parent's
// descendant aggregate and a child's ancestor aggregate, and that
// ClearPrioritisation removes it again exactly.
func TestPrioritiseTransactionPropagatesToAncestorsAndDescendants(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)

	fundOp := fundingOutPoint(9, 0)
	coins.seed(fundOp, 100000)
	parentTx := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))
	parentEntry, err := mp.Add(parentTx, 100)
	require.NoError(t, err)

	childOp := wire.OutPoint{Hash: *parentTx.Hash(), Index: 0}
	childTx := btcutil.NewTx(buildTx([]wire.OutPoint{childOp}, []int64{98000}))
	childEntry, err := mp.Add(childTx, 100)
	require.NoError(t, err)

	before := parentEntry.FeeWithDescendants()
	mp.PrioritiseTransaction(childEntry.TxHash(), 5000)
	require.Equal(t, before+5000, parentEntry.FeeWithDescendants())
	require.Equal(t, childEntry.Fee+5000, childEntry.FeeWithAncestors()-parentEntry.Fee)

	mp.ClearPrioritisation(childEntry.TxHash())
	require.Equal(t, before, parentEntry.FeeWithDescendants())

	mp.Check()
}
