// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
Package mempool provides a transaction memory pool for use in full node
implementations.

The mempool holds validated, unconfirmed transactions that are candidates
for the next block. Its core responsibility is bookkeeping: for every
resident transaction it maintains exact aggregate statistics over that
transaction's in-pool ancestor set and descendant set, while keeping the
pool available under several simultaneous sort orders needed by block
assembly, network relay, and size-limit eviction.

The package is organized around five cooperating pieces:

  - EntryStore owns transaction Entry values and the multi-index lookup
    surface (by txid and under five sort orders).
  - LinkGraph tracks direct parent/child edges between resident
    transactions and performs bounded ancestor/descendant traversal.
  - The aggregate maintenance in mempool.go folds and unfolds ancestor/
    descendant roll-ups on every structural change.
  - Evictor enforces the dynamic memory cap through descendant-package
    feerate eviction and maintains a decaying minimum relay feerate.
  - ReorgReconciler repairs aggregate state when a disconnected block's
    transactions are re-added and may already have in-pool descendants.

Transaction validation, UTXO lookups, fee-rate estimation, and consensus
predicates (BIP68 sequence locks, BIP125 replacement) are not implemented
here; they are reached through the CoinView, Validator, FeeEstimator,
ChainTip, and ReplacementPolicy interfaces in interfaces.go.
*/
package mempool
