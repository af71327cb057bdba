// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"bytes"
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

// TestDumpRoundTripPreservesNonResidentPriorityDelta verifies that a
// PrioritiseTransaction delta applied to a transaction that was never
// resident survives a WriteTo/LoadFrom cycle and is picked up the
// moment that transaction is later admitted. The per-entry dumped
// delta alone can't cover this case, since there is no entry to attach
// it to; the trailing PriorityDeltaMap section is what carries it.
func TestDumpRoundTripPreservesNonResidentPriorityDelta(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)

	fundOp := fundingOutPoint(20, 0)
	coins.seed(fundOp, 100000)
	tx := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))

	mp.PrioritiseTransaction(*tx.Hash(), 5000)

	var buf bytes.Buffer
	_, err := mp.WriteTo(&buf)
	require.NoError(t, err)

	reloaded, coins2 := newTestMemPool(t)
	coins2.seed(fundOp, 100000)
	loaded, err := reloaded.LoadFrom(&buf, acceptAllValidator{})
	require.NoError(t, err)
	require.Equal(t, 0, loaded, "tx was never resident, so LoadFrom has nothing to re-admit")

	entry, err := reloaded.Add(tx, 100)
	require.NoError(t, err)
	require.Equal(t, entry.Fee+5000, entry.FeeWithAncestors(),
		"the delta recorded before the dump must still apply once the transaction is finally admitted")
}

// TestDumpRoundTripPreservesResidentEntry verifies the ordinary case
// still works after the trailing PriorityDeltaMap section was added:
// a resident entry with a delta survives the round trip with its
// aggregates intact.
func TestDumpRoundTripPreservesResidentEntry(t *testing.T) {
	t.Parallel()

	mp, coins := newTestMemPool(t)

	fundOp := fundingOutPoint(21, 0)
	coins.seed(fundOp, 100000)
	tx := btcutil.NewTx(buildTx([]wire.OutPoint{fundOp}, []int64{99000}))
	entry, err := mp.Add(tx, 100)
	require.NoError(t, err)
	mp.PrioritiseTransaction(entry.TxHash(), 2000)

	var buf bytes.Buffer
	_, err = mp.WriteTo(&buf)
	require.NoError(t, err)

	reloaded, coins2 := newTestMemPool(t)
	coins2.seed(fundOp, 100000)
	loaded, err := reloaded.LoadFrom(&buf, acceptAllValidator{})
	require.NoError(t, err)
	require.Equal(t, 1, loaded)

	reloadedEntry := reloaded.store.Get(*tx.Hash())
	require.NotNil(t, reloadedEntry)
	require.Equal(t, entry.FeeWithAncestors(), reloadedEntry.FeeWithAncestors())
}
