// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "bytes"

// txHashLess breaks ties deterministically by raw txid bytes so that two
// entries with identical scores still produce a strict, stable order
// across every ordering. Bitcoin Core's multi_index comparators do the
// same thing by falling through to Sipa's salted hash comparator; a
// direct byte comparison is simpler and just as stable here since txids
// are already effectively random.
func txHashLess(a, b *Entry) bool {
	ah, bh := a.TxHash(), b.TxHash()
	return bytes.Compare(ah[:], bh[:]) < 0
}

// byDescendantScore ranks by descendant package feerate, descending,
// implementing ordering 1 (spec §4). Higher package feerate sorts first
// so block assembly and relay both prefer to serve the most valuable
// packages.
func byDescendantScore(a, b *Entry) bool {
	as, bs := a.descendantScore(), b.descendantScore()
	if as != bs {
		return as > bs
	}
	return txHashLess(a, b)
}

// byEntryTime ranks by acceptance time, ascending, implementing
// ordering 2. Expire and diagnostic listings walk the pool oldest-first
// in this order.
func byEntryTime(a, b *Entry) bool {
	if !a.Time.Equal(b.Time) {
		return a.Time.Before(b.Time)
	}
	return txHashLess(a, b)
}

// byMiningScore ranks by the entry's own feerate, descending, ignoring
// descendants, implementing ordering 3. This lets block assembly
// opportunistically place a single high-value transaction even when its
// descendant package is unattractive.
func byMiningScore(a, b *Entry) bool {
	as, bs := a.feeRate(), b.feeRate()
	if as != bs {
		return as > bs
	}
	return txHashLess(a, b)
}

// byAncestorScore ranks by ancestor package feerate, ascending,
// implementing ordering 4. Evictor does not use it; trimming to the
// memory cap ranks by byDescendantScore.
func byAncestorScore(a, b *Entry) bool {
	as, bs := a.ancestorScore(), b.ancestorScore()
	if as != bs {
		return as < bs
	}
	return txHashLess(a, b)
}

// gasPriceFunc reports the declared gas price of a contract transaction.
// It is consulted only for entries isContractTx reports true for; see
// Config.GasPrice and Config.IsContractTx.
type gasPriceFunc func(*Entry) uint64

// isContractTxFunc reports whether an entry is a contract-invoking
// transaction that should be ranked by declared gas price rather than
// feerate under orderAncestorScoreOrGasPrice.
type isContractTxFunc func(*Entry) bool

// newAncestorScoreOrGasPriceLess builds ordering 5's comparator. The
// pool core treats "is this a contract transaction" and "what is its gas
// price" as opaque predicates supplied by the caller (spec §9 open
// question): when either predicate is nil, this ordering degenerates
// exactly to byAncestorScore, matching Bitcoin Core's behavior on chains
// without the sbtc-vm extension. When both are supplied, an entry that
// isContractTx reports true for is ranked by gas price against other
// contract transactions, and any contract transaction is treated as
// higher priority than any plain transaction, mirroring the
// ancestor_score_or_gas_price index in original_source/src/mempool/txmempool.h.
func newAncestorScoreOrGasPriceLess(isContractTx isContractTxFunc, gasPrice gasPriceFunc) lessFunc {
	if isContractTx == nil || gasPrice == nil {
		return byAncestorScore
	}
	return func(a, b *Entry) bool {
		aContract, bContract := isContractTx(a), isContractTx(b)
		switch {
		case aContract && !bContract:
			return true
		case !aContract && bContract:
			return false
		case aContract && bContract:
			ag, bg := gasPrice(a), gasPrice(b)
			if ag != bg {
				return ag > bg
			}
			return txHashLess(a, b)
		default:
			return byAncestorScore(a, b)
		}
	}
}
