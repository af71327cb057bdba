// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// fakeCoinView answers HaveCoin/CoinValue from a fixed set of external
// coins seeded by the test, standing in for a confirmed UTXO set.
type fakeCoinView struct {
	coins map[wire.OutPoint]btcutil.Amount
}

func newFakeCoinView() *fakeCoinView {
	return &fakeCoinView{coins: make(map[wire.OutPoint]btcutil.Amount)}
}

func (v *fakeCoinView) seed(op wire.OutPoint, value btcutil.Amount) {
	v.coins[op] = value
}

func (v *fakeCoinView) HaveCoin(op wire.OutPoint) bool {
	_, ok := v.coins[op]
	return ok
}

func (v *fakeCoinView) CoinValue(op wire.OutPoint) (btcutil.Amount, bool) {
	value, ok := v.coins[op]
	return value, ok
}

// fakeChainTip is a fixed, deterministic ChainTip for tests.
type fakeChainTip struct {
	height int32
	hash   chainhash.Hash
}

func (t *fakeChainTip) TipHeight() int32             { return t.height }
func (t *fakeChainTip) TipHash() chainhash.Hash       { return t.hash }
func (t *fakeChainTip) MedianTimePast() int64         { return 0 }

// acceptAllValidator computes virtual size from the transaction's own
// serialized size and never rejects anything, standing in for the
// script/consensus/sequence-lock checks this package delegates away.
type acceptAllValidator struct{}

func (acceptAllValidator) CheckTransaction(tx *btcutil.Tx, _ CoinView,
	_ ChainTip) (int64, int64, LockPoints, error) {
	return int64(tx.MsgTx().SerializeSize()), 0, LockPoints{}, nil
}

// buildTx constructs a transaction spending each of ins and creating one
// output per entry in outValues, paying that entry's value in satoshis.
func buildTx(ins []wire.OutPoint, outValues []int64) *wire.MsgTx {
	tx := wire.NewMsgTx(wire.TxVersion)
	for _, op := range ins {
		tx.AddTxIn(wire.NewTxIn(&op, nil, nil))
	}
	for _, v := range outValues {
		tx.AddTxOut(wire.NewTxOut(v, []byte{0x51}))
	}
	return tx
}

// newTestConfig returns a Config wired to a fresh fakeCoinView and a
// validator that accepts everything, with generous default limits so
// tests exercising specific limits can override just the field they
// care about.
func newTestConfig(coins *fakeCoinView) *Config {
	return &Config{
		CoinView:           coins,
		ChainTip:           &fakeChainTip{height: 100},
		Validator:          acceptAllValidator{},
		MaxAncestorCount:   25,
		MaxAncestorSize:    101000,
		MaxDescendantCount: 25,
		MaxDescendantSize:  101000,
		MaxMempoolBytes:    300 * 1000 * 1000,
		MinRelayTxFee:      1000,
	}
}

// newTestMemPool builds a MemPool over a fresh fakeCoinView, returning
// both so the test can seed additional external coins.
func newTestMemPool(t *testing.T) (*MemPool, *fakeCoinView) {
	t.Helper()
	coins := newFakeCoinView()
	mp := NewMemPool(newTestConfig(coins))
	mp.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	return mp, coins
}

// fundingOutPoint returns a synthetic outpoint. Passing distinct seed
// values produces distinct hashes so unrelated funding coins never
// collide.
func fundingOutPoint(seed byte, index uint32) wire.OutPoint {
	var hash chainhash.Hash
	hash[0] = seed
	return wire.OutPoint{Hash: hash, Index: index}
}
