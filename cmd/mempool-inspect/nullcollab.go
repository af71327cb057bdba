// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/talerone/superbitcoin/mempool"
)

// offlineCoinView answers HaveCoin/CoinValue with "not found" for
// everything, since mempool-inspect works purely from a dump file with
// no UTXO set attached. Any dumped transaction whose inputs are not
// resolved by other dumped transactions is skipped with a warning
// rather than causing LoadFrom to fail outright.
type offlineCoinView struct{}

func (offlineCoinView) HaveCoin(wire.OutPoint) bool { return false }

func (offlineCoinView) CoinValue(wire.OutPoint) (btcutil.Amount, bool) { return 0, false }

// offlineChainTip reports a fixed, zero-value tip, since mempool-inspect
// has no chain to consult. Sequence-lock evaluation against this tip is
// necessarily a formality; offlineValidator never rejects on lock
// points for that reason.
type offlineChainTip struct{}

func (offlineChainTip) TipHeight() int32               { return 0 }
func (offlineChainTip) TipHash() chainhash.Hash         { return chainhash.Hash{} }
func (offlineChainTip) MedianTimePast() int64           { return 0 }

// offlineValidator accepts every transaction it is asked to check,
// computing virtual size from the transaction's serialized weight the
// same way a real validator would but without running any script or
// consensus check. It exists only so mempool-inspect can call
// mempool.LoadFrom against Config.Validator without needing a full
// node's validation stack linked in.
type offlineValidator struct{}

func (offlineValidator) CheckTransaction(tx *btcutil.Tx, _ mempool.CoinView,
	_ mempool.ChainTip) (int64, int64, mempool.LockPoints, error) {

	msgTx := tx.MsgTx()
	vsize := (int64(msgTx.SerializeSizeStripped())*3 + int64(msgTx.SerializeSize())) / 4
	return vsize, 0, mempool.LockPoints{}, nil
}
