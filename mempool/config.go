// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "github.com/btcsuite/btcd/btcutil"

// Config bundles every policy knob and collaborator MemPool needs.
// Following the teacher's convention (MempoolConfig in
// mempool/mempool_v2.go), all of these are supplied once at
// construction; nothing in this package reaches for global state.
type Config struct {
	// CoinView answers whether an outpoint is currently spendable.
	CoinView CoinView

	// ChainTip reports the current best-chain height, hash, and
	// median-time-past.
	ChainTip ChainTip

	// Validator runs stateless and contextual acceptance checks. It is
	// required; MemPool has no fallback validation of its own.
	Validator Validator

	// FeeEstimator receives confirmation and eviction observations. May
	// be nil, in which case MemPool skips fee estimation entirely.
	FeeEstimator FeeEstimator

	// ReplacementPolicy arbitrates conflicting transactions. May be
	// nil, in which case any conflict is rejected with
	// ReasonConflict and replacement is never attempted.
	ReplacementPolicy ReplacementPolicy

	// MaxAncestorCount and MaxAncestorSize bound how large a package a
	// new transaction may pull in as ancestors before admission is
	// refused with ReasonChainLimitExceeded.
	MaxAncestorCount int
	MaxAncestorSize  int64

	// MaxDescendantCount and MaxDescendantSize bound how large a
	// package an existing entry may accumulate as descendants; the
	// same admission check applies these against every to-be-affected
	// ancestor, not just the candidate itself, matching Bitcoin Core's
	// CalculateMemPoolAncestors limits.
	MaxDescendantCount int
	MaxDescendantSize  int64

	// MaxMempoolBytes is the dynamic memory usage cap Evictor enforces.
	MaxMempoolBytes int64

	// MempoolExpiry is the maximum residency duration before Expire
	// removes an entry regardless of feerate.
	MempoolExpiry int64

	// MinRelayTxFee is the absolute feerate floor beneath the rolling
	// minimum computed by Evictor; the effective floor is always at
	// least this much. Expressed in satoshis per kilobyte, matching
	// Bitcoin Core's CFeeRate convention.
	MinRelayTxFee btcutil.Amount

	// IncrementalRelayFee bounds how far above an evicted package's own
	// feerate the rolling minimum jumps, and how low it must decay
	// before Evictor snaps it back to zero. Expressed in satoshis per
	// kilobyte, the same unit as MinRelayTxFee. Zero means Evictor uses
	// incrementalRelayFeeDefault, matching Bitcoin Core's default
	// incremental relay fee of 1000 sat/kvB.
	IncrementalRelayFee btcutil.Amount

	// IsContractTx and GasPrice, if both non-nil, activate the
	// gas-price variant of ordering 5. See
	// newAncestorScoreOrGasPriceLess.
	IsContractTx isContractTxFunc
	GasPrice     gasPriceFunc
}
