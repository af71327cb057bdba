// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// CoinView is the minimal read-only UTXO surface the pool needs to decide
// whether an outpoint is unspent, either in the confirmed chain or by
// another mempool resident. A real node satisfies this with its own
// coin database plus mempool-aware overlay; the pool never opens a coin
// database itself.
type CoinView interface {
	// HaveCoin reports whether outpoint is currently spendable, whether
	// its coin lives in the confirmed UTXO set or in a mempool entry's
	// outputs.
	HaveCoin(outpoint wire.OutPoint) bool

	// CoinValue returns the value, in satoshis, of outpoint's coin in
	// the confirmed UTXO set. It is only ever consulted for inputs that
	// do not resolve to a resident entry's own outputs, so it need not
	// know anything about mempool transactions.
	CoinValue(outpoint wire.OutPoint) (btcutil.Amount, bool)
}

// ChainTip is the minimal chain-state surface the pool consults when
// evaluating BIP68 sequence locks and coinbase maturity.
type ChainTip interface {
	// TipHeight returns the height of the current best chain tip.
	TipHeight() int32

	// TipHash returns the hash of the current best chain tip.
	TipHash() chainhash.Hash

	// MedianTimePast returns the median-time-past of the current tip,
	// used as the wall-clock reference for BIP68 time-based locks.
	MedianTimePast() int64
}

// Validator evaluates the deterministic, context-free rules that decide
// whether a transaction may ever enter the pool: script and consensus
// validity, standardness, and sequence-lock satisfaction against the
// current tip. The pool calls it once per candidate before touching any
// bookkeeping structure and treats a non-nil error as an expected
// rejection, not an invariant violation.
type Validator interface {
	// CheckTransaction runs stateless and contextual checks against tx
	// and returns the computed virtual size, sig-op cost, and lock
	// points on success.
	CheckTransaction(tx *btcutil.Tx, view CoinView, tip ChainTip) (vsize int64, sigOpCost int64, lp LockPoints, err error)
}

// FeeEstimator receives a stream of confirmation and eviction observations
// so it can produce feerate-by-confirmation-target estimates. The pool
// treats it purely as an output sink; nothing it computes feeds back into
// admission or eviction decisions.
type FeeEstimator interface {
	// ObserveTransaction records that tx entered the pool at height
	// with the given feerate, in satoshis per virtual byte.
	ObserveTransaction(tx *btcutil.Tx, height int32, feeRate float64)

	// ObserveConfirmed records that tx confirmed blocksToConfirm blocks
	// after it was observed.
	ObserveConfirmed(tx *btcutil.Tx, blocksToConfirm int32)

	// ObserveRemoved records that tx left the pool without confirming,
	// for reasons other than being mined (eviction, conflict, expiry).
	ObserveRemoved(tx *btcutil.Tx, height int32, reason RemoveReason)
}

// ReplacementPolicy decides whether an incoming transaction may evict one
// or more conflicting resident transactions under a BIP125-style
// replace-by-fee rule. The pool calls it only when the incoming
// transaction double-spends a resident input; it never invents its own
// replacement rule.
type ReplacementPolicy interface {
	// CanReplace reports whether candidate may evict every transaction
	// in conflicts. It is called before candidate's ancestors are folded
	// in, so candidate's aggregates hold only its own fee (including any
	// priority delta) and size. A non-nil error explains the refusal and should
	// be surfaced as a PolicyError with ReasonNotReplaceable.
	CanReplace(candidate *Entry, conflicts []*Entry) error
}

// EventSink receives lifecycle notifications for entries as they enter
// and leave the pool. Implementations must not block or call back into
// the MemPool from within a callback; see events.go.
type EventSink interface {
	// EntryAdded is called once a transaction has been fully admitted,
	// after every aggregate has been updated.
	EntryAdded(entry *Entry)

	// EntryRemoved is called once a transaction (and any descendants
	// pulled in transitively) has been fully unlinked, with reason
	// explaining why.
	EntryRemoved(entry *Entry, reason RemoveReason)
}
