// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sync"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
)

// MemPool is a transaction memory pool for use in full node
// implementations. It holds validated, unconfirmed transactions that
// are candidates for the next block, keeping exact ancestor/descendant
// aggregate statistics for every resident transaction across five
// simultaneous sort orders.
//
// Every exported method follows the teacher's lock-split pattern from
// TxMempoolV2 (mempool/mempool_v2.go): it acquires mtx once and
// delegates to an unexported *Locked helper, so internal helpers can
// call each other without re-acquiring a mutex Go's sync.RWMutex cannot
// re-enter. This is the idiomatic Go substitute for the process-wide
// recursive mutex a description of this pool in another language might
// call for.
type MemPool struct {
	mtx sync.RWMutex

	cfg        *Config
	store      *EntryStore
	graph      *LinkGraph
	aggregates *AggregateMaintainer
	evictor    *Evictor
	events     eventBroadcaster
	priority   *PriorityDeltaMap

	transactionsUpdated uint64

	// now is substituted in tests to make time-dependent behavior
	// (expiry, rolling fee decay) deterministic.
	now func() time.Time
}

// NewMemPool constructs an empty MemPool from cfg.
func NewMemPool(cfg *Config) *MemPool {
	store := NewEntryStore(cfg.IsContractTx, cfg.GasPrice)
	graph := NewLinkGraph()
	mp := &MemPool{
		cfg:        cfg,
		store:      store,
		graph:      graph,
		aggregates: NewAggregateMaintainer(store, graph),
		evictor:    NewEvictor(cfg),
		priority:   NewPriorityDeltaMap(),
		now:        time.Now,
	}
	return mp
}

// Subscribe registers sink to receive EntryAdded/EntryRemoved
// notifications for every future change. It must be called before any
// transaction is added; see eventBroadcaster.Subscribe.
func (mp *MemPool) Subscribe(sink EventSink) {
	mp.events.Subscribe(sink)
}

// Count returns the number of resident transactions.
func (mp *MemPool) Count() int {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.store.Len()
}

// HaveTransaction reports whether hash is resident in the pool.
func (mp *MemPool) HaveTransaction(hash chainhash.Hash) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.store.Have(hash)
}

// FetchEntry returns the resident entry for hash, or nil.
func (mp *MemPool) FetchEntry(hash chainhash.Hash) *Entry {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.store.Get(hash)
}

// TxHashes returns the hashes of every resident transaction in
// unspecified order.
func (mp *MemPool) TxHashes() []chainhash.Hash {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	entries := mp.store.All()
	out := make([]chainhash.Hash, len(entries))
	for i, e := range entries {
		out[i] = e.TxHash()
	}
	return out
}

// Infos returns a snapshot Entry for every resident transaction, sorted
// best descendant-package feerate first, the order block assembly and
// RPC verbose listings both want.
func (mp *MemPool) Infos() []*Entry {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.store.SortedByDescendantScore()
}

// GetTransactionsUpdated returns the monotonic counter bumped on every
// successful Add/AddChecked and RemoveRecursive/RemoveForBlock call.
// Callers use it the way Bitcoin Core's mempool sequence number is
// used: to detect "has anything changed since I last looked" without
// diffing the whole pool.
func (mp *MemPool) GetTransactionsUpdated() uint64 {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.transactionsUpdated
}

// AddTransactionsUpdated adds n to the counter directly; used by callers
// that made an out-of-band change (e.g. a UTXO set rescan) that should
// still be visible through GetTransactionsUpdated.
func (mp *MemPool) AddTransactionsUpdated(n uint64) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	mp.transactionsUpdated += n
}

// HasNoInputsOf reports whether no resident transaction's input spends
// any output of tx, i.e. whether tx is safe to remove without pulling
// in any in-pool descendant.
func (mp *MemPool) HasNoInputsOf(tx *btcutil.Tx) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	hash := *tx.Hash()
	entry := mp.store.Get(hash)
	if entry == nil {
		return true
	}
	return !mp.graph.hasChildren(entry)
}

// hasChildren is a small LinkGraph convenience used only by
// HasNoInputsOf; it is kept private to mempool.go rather than added to
// LinkGraph's public surface since nothing else needs it.
func (g *LinkGraph) hasChildren(entry *Entry) bool {
	links, ok := g.links[entry]
	return ok && len(links.children) > 0
}

// TransactionWithinChainLimit reports whether hash's current ancestor
// count is within limit. Callers use this before attempting a
// replacement or a package addition that would only grow the ancestor
// set further.
func (mp *MemPool) TransactionWithinChainLimit(hash chainhash.Hash, limit int) bool {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	entry := mp.store.Get(hash)
	if entry == nil {
		return true
	}
	return entry.CountWithAncestors() <= int64(limit)
}

// Add validates tx against Config.Validator and, on success, admits it
// to the pool at entryHeight through AddChecked. It is a thin
// convenience wrapper: any caller that has already run its own
// consensus/script validation (or is replaying a dump, see LoadFrom)
// should call AddChecked directly instead of paying for validation
// twice.
func (mp *MemPool) Add(tx *btcutil.Tx, entryHeight int32) (*Entry, error) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	vsize, sigOpCost, lp, err := mp.cfg.Validator.CheckTransaction(tx, mp.cfg.CoinView, mp.cfg.ChainTip)
	if err != nil {
		return nil, err
	}
	return mp.addCheckedLocked(tx, entryHeight, vsize, sigOpCost, lp)
}

// AddChecked admits tx to the pool at entryHeight given its
// already-computed virtual size, sig-op cost, and lock points, skipping
// Config.Validator entirely. It follows the same phases as
// CTxMemPool::AcceptToMemoryPool minus consensus/script validation:
//
//  1. reject an exact duplicate outright
//  2. resolve conflicts against resident spenders of the same inputs,
//     either through Config.ReplacementPolicy or by rejection
//  3. compute the in-pool ancestor set and enforce the configured
//     ancestor/descendant package bounds
//  4. insert, wire graph edges, fold aggregates, and notify
//  5. evict, if the pool is now over its configured memory cap
func (mp *MemPool) AddChecked(tx *btcutil.Tx, entryHeight int32, vsize int64, sigOpCost int64, lp LockPoints) (*Entry, error) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	return mp.addCheckedLocked(tx, entryHeight, vsize, sigOpCost, lp)
}

func (mp *MemPool) addCheckedLocked(tx *btcutil.Tx, entryHeight int32, vsize int64, sigOpCost int64, lp LockPoints) (*Entry, error) {
	hash := *tx.Hash()
	if mp.store.Have(hash) {
		return nil, policyErrorf(ReasonDuplicate, "transaction %s is already in the pool", hash)
	}
	if mp.evictor.WasRecentlyEvicted(hash) {
		return nil, policyErrorf(ReasonLowFee, "transaction %s was recently evicted for size", hash)
	}

	conflicts := mp.store.outpoints.conflicts(tx.MsgTx())
	if len(conflicts) > 0 {
		if mp.cfg.ReplacementPolicy == nil {
			return nil, policyErrorf(ReasonConflict, "transaction %s conflicts with %d resident transactions", hash, len(conflicts))
		}
	}

	fee, err := mp.calcFeeLocked(tx)
	if err != nil {
		return nil, err
	}

	entry := NewEntry(tx, fee, mp.now(), entryHeight, vsize, sigOpCost, lp)
	if delta := mp.priority.Get(hash); delta != 0 {
		entry.applyPriorityDelta(btcutil.Amount(delta))
	}

	if minFee := mp.evictor.GetMinFee(mp.now(), mp.dynamicMemUsageLocked()); entry.feeRate() < minFee {
		return nil, policyErrorf(ReasonLowFee, "transaction %s feerate %.2f sat/vB below rolling minimum %.2f",
			hash, entry.feeRate(), minFee)
	}

	if len(conflicts) > 0 {
		conflictEntries := make([]*Entry, len(conflicts))
		copy(conflictEntries, conflicts)
		if err := mp.cfg.ReplacementPolicy.CanReplace(entry, conflictEntries); err != nil {
			return nil, policyErrorf(ReasonNotReplaceable, "%v", err)
		}
	}

	parents := mp.resolveParentsLocked(tx)

	mp.graph.AddNode(entry)
	for _, p := range parents {
		mp.graph.AddEdge(p, entry)
	}

	ancestors, err := mp.graph.Ancestors(entry, mp.cfg.MaxAncestorCount)
	if err != nil {
		mp.graph.RemoveNode(entry)
		return nil, policyErrorf(ReasonChainLimitExceeded, "transaction %s would have too many ancestors", hash)
	}

	var ancestorSize int64
	for a := range ancestors {
		ancestorSize += a.VSize
	}
	ancestorSize += entry.VSize
	if mp.cfg.MaxAncestorSize > 0 && ancestorSize > mp.cfg.MaxAncestorSize {
		mp.graph.RemoveNode(entry)
		return nil, policyErrorf(ReasonChainLimitExceeded, "transaction %s ancestor package too large: %d > %d",
			hash, ancestorSize, mp.cfg.MaxAncestorSize)
	}

	for a := range ancestors {
		if mp.cfg.MaxDescendantCount > 0 && a.CountWithDescendants()+1 > int64(mp.cfg.MaxDescendantCount) {
			mp.graph.RemoveNode(entry)
			return nil, policyErrorf(ReasonChainLimitExceeded, "ancestor %s would exceed descendant count limit", a.TxHash())
		}
		if mp.cfg.MaxDescendantSize > 0 && a.SizeWithDescendants()+entry.VSize > mp.cfg.MaxDescendantSize {
			mp.graph.RemoveNode(entry)
			return nil, policyErrorf(ReasonChainLimitExceeded, "ancestor %s would exceed descendant size limit", a.TxHash())
		}
	}

	for _, c := range conflicts {
		mp.removeRecursiveLocked(c.TxHash(), RemoveReplaced)
	}

	mp.store.Insert(entry)
	mp.aggregates.FoldNewEntry(entry, ancestors)
	mp.transactionsUpdated++
	mp.events.notifyAdded(entry)

	log.Tracef("Accepted transaction %v (pool size: %v)", hash, mp.store.Len())
	log.Tracef("%v", newLogClosure(func() string {
		return spew.Sdump(entry)
	}))

	if mp.cfg.FeeEstimator != nil {
		mp.cfg.FeeEstimator.ObserveTransaction(tx, entryHeight, entry.feeRate())
	}

	if mp.cfg.MaxMempoolBytes > 0 {
		mp.evictToFitLocked()
	}

	return entry, nil
}

// resolveParentsLocked returns the distinct resident entries whose
// outputs tx spends.
func (mp *MemPool) resolveParentsLocked(tx *btcutil.Tx) []*Entry {
	seen := make(map[*Entry]struct{})
	var out []*Entry
	for _, txIn := range tx.MsgTx().TxIn {
		if parent := mp.store.Get(txIn.PreviousOutPoint.Hash); parent != nil {
			if _, ok := seen[parent]; !ok {
				seen[parent] = struct{}{}
				out = append(out, parent)
			}
		}
	}
	return out
}

// calcFeeLocked computes tx's fee as the sum of its resolved inputs
// minus the sum of its outputs. An input is resolved either against a
// resident entry's outputs or against Config.CoinView; an input that
// resolves to neither is an invariant violation, since Validator should
// already have refused any transaction with a missing input.
func (mp *MemPool) calcFeeLocked(tx *btcutil.Tx) (btcutil.Amount, error) {
	var in btcutil.Amount
	for _, txIn := range tx.MsgTx().TxIn {
		op := txIn.PreviousOutPoint
		if parent := mp.store.Get(op.Hash); parent != nil {
			outs := parent.Tx.MsgTx().TxOut
			if int(op.Index) >= len(outs) {
				invariantViolation("calcFeeLocked: outpoint %v index out of range for resident parent", op)
			}
			in += btcutil.Amount(outs[op.Index].Value)
			continue
		}
		value, ok := mp.cfg.CoinView.CoinValue(op)
		if !ok {
			invariantViolation("calcFeeLocked: input %v resolves to neither a resident parent nor the coin view", op)
		}
		in += value
	}
	var out btcutil.Amount
	for _, txOut := range tx.MsgTx().TxOut {
		out += btcutil.Amount(txOut.Value)
	}
	if in < out {
		return 0, nil
	}
	return in - out, nil
}

// RemoveRecursive removes hash and every in-pool descendant, notifying
// EntryRemoved for each with the given reason. It is a no-op if hash is
// not resident.
func (mp *MemPool) RemoveRecursive(hash chainhash.Hash, reason RemoveReason) []*Entry {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	return mp.removeRecursiveLocked(hash, reason)
}

func (mp *MemPool) removeRecursiveLocked(hash chainhash.Hash, reason RemoveReason) []*Entry {
	entry := mp.store.Get(hash)
	if entry == nil {
		return nil
	}
	group := mp.aggregates.CollectForRemoval(entry)
	mp.removeEntriesLocked(group, reason)
	return group
}

// removeEntriesLocked removes every entry in entries, which must already
// be ordered descendants-before-ancestors (as CollectForRemoval and
// Evictor.SelectForEviction both guarantee), unfolding each entry's
// contribution from its remaining ancestors before unlinking it.
func (mp *MemPool) removeEntriesLocked(entries []*Entry, reason RemoveReason) {
	for _, entry := range entries {
		mp.aggregates.UnfoldRemovedEntry(entry)
		mp.graph.RemoveNode(entry)
		mp.store.Remove(entry)
		mp.transactionsUpdated++
		mp.events.notifyRemoved(entry, reason)
		if mp.cfg.FeeEstimator != nil && reason != RemoveBlock {
			mp.cfg.FeeEstimator.ObserveRemoved(entry.Tx, entry.EntryHeight, reason)
		}
	}
}

// RemoveForBlock removes every transaction in txs that is resident,
// treating each as individually confirmed rather than cascading to its
// descendants, since a mined transaction's descendants remain both
// valid and resident. txs must be in block order (parents before
// children); RemoveForBlock relies on that order to fold aggregates
// correctly as it goes. Any resident transaction that conflicts with (but
// is not equal to) a block transaction is removed recursively with
// RemoveConflict, since the block has just invalidated its inputs.
func (mp *MemPool) RemoveForBlock(txs []*btcutil.Tx, blockHeight int32) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	for _, tx := range txs {
		mp.removeConflictsLocked(tx, *tx.Hash())
		entry := mp.store.Get(*tx.Hash())
		if entry == nil {
			continue
		}
		mp.removeMinedLocked(entry, blockHeight)
	}

	mp.evictor.onBlockConnected()
}

// RemoveConflicts removes every resident transaction that double-spends
// one of tx's inputs, recursively pulling in each conflict's own
// descendants. Unlike RemoveForBlock it does not touch tx itself even if
// tx happens to already be resident; it exists as its own entry point
// for a caller that wants to make room for tx without yet deciding
// whether to admit it, matching CTxMemPool::removeConflicts
// (original_source/src/mempool/txmempool.h).
func (mp *MemPool) RemoveConflicts(tx *btcutil.Tx) []*Entry {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	return mp.removeConflictsLocked(tx, *tx.Hash())
}

func (mp *MemPool) removeConflictsLocked(tx *btcutil.Tx, exclude chainhash.Hash) []*Entry {
	conflicts := mp.store.outpoints.conflicts(tx.MsgTx())
	if len(conflicts) == 0 {
		return nil
	}
	var removed []*Entry
	for _, c := range conflicts {
		if c.TxHash() == exclude {
			continue
		}
		removed = append(removed, mp.removeRecursiveLocked(c.TxHash(), RemoveConflict)...)
	}
	return removed
}

// removeMinedLocked removes a single mined entry without cascading to
// its descendants, patching every remaining descendant's ancestor
// aggregates and every remaining ancestor's descendant aggregates to
// remove entry's contribution. See the RemoveForBlock ordering
// requirement for why this is correct when called in block order.
func (mp *MemPool) removeMinedLocked(entry *Entry, blockHeight int32) {
	for d := range mp.graph.Descendants(entry) {
		d.feeWithAncestors -= entry.modifiedFee()
		d.sizeWithAncestors -= entry.VSize
		d.countWithAncestors--
		d.sigOpCostWithAncestors -= entry.SigOpCost
		mp.store.Resort(d)
	}
	seen := make(map[*Entry]struct{})
	for _, a := range mp.graph.Parents(entry) {
		for ancestor := range mp.ancestorsIncludingSelfLocked(a) {
			if _, ok := seen[ancestor]; ok {
				continue
			}
			seen[ancestor] = struct{}{}
			ancestor.feeWithDescendants -= entry.modifiedFee()
			ancestor.sizeWithDescendants -= entry.VSize
			ancestor.countWithDescendants--
			mp.store.Resort(ancestor)
		}
	}

	mp.graph.RemoveNode(entry)
	mp.store.Remove(entry)
	mp.transactionsUpdated++
	mp.events.notifyRemoved(entry, RemoveBlock)
	if mp.cfg.FeeEstimator != nil {
		mp.cfg.FeeEstimator.ObserveConfirmed(entry.Tx, blockHeight-entry.EntryHeight)
	}
}

func (mp *MemPool) ancestorsIncludingSelfLocked(entry *Entry) map[*Entry]struct{} {
	ancestors, err := mp.graph.Ancestors(entry, -1)
	if err != nil {
		invariantViolation("ancestorsIncludingSelfLocked: unbounded walk failed: %v", err)
	}
	if ancestors == nil {
		ancestors = make(map[*Entry]struct{})
	}
	ancestors[entry] = struct{}{}
	return ancestors
}

// PrioritiseTransaction applies a persistent fee delta to hash for
// ordering purposes only, propagating it into every ancestor's
// descendant aggregate and every descendant's ancestor aggregate so the
// adjustment is visible package-wide, exactly as
// CTxMemPool::PrioritiseTransaction / ApplyDelta do
// (original_source/src/mempool/txmempool.h). It is a no-op, aside from
// recording the delta for ClearPrioritisation, if hash is not currently
// resident.
func (mp *MemPool) PrioritiseTransaction(hash chainhash.Hash, delta btcutil.Amount) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	mp.priority.ApplyDelta(hash, int64(delta))

	entry := mp.store.Get(hash)
	if entry == nil {
		return
	}
	entry.applyPriorityDelta(delta)
	mp.store.Resort(entry)

	for a := range mp.ancestorsIncludingSelfLocked(entry) {
		if a == entry {
			continue
		}
		a.feeWithDescendants += delta
		mp.store.Resort(a)
	}
	for d := range mp.graph.Descendants(entry) {
		d.feeWithAncestors += delta
		mp.store.Resort(d)
	}
	mp.transactionsUpdated++
}

// ClearPrioritisation removes any PrioritiseTransaction adjustment
// previously applied to hash by applying its exact negation.
func (mp *MemPool) ClearPrioritisation(hash chainhash.Hash) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	mp.priority.ClearPrioritisation(hash)

	entry := mp.store.Get(hash)
	if entry == nil {
		return
	}
	delta := -entry.priorityDelta
	entry.applyPriorityDelta(delta)
	mp.store.Resort(entry)
	for a := range mp.ancestorsIncludingSelfLocked(entry) {
		if a == entry {
			continue
		}
		a.feeWithDescendants += delta
		mp.store.Resort(a)
	}
	for d := range mp.graph.Descendants(entry) {
		d.feeWithAncestors += delta
		mp.store.Resort(d)
	}
}

// Expire removes every resident transaction older than
// Config.MempoolExpiry seconds, oldest first, with reason RemoveExpiry.
// It returns the number removed.
func (mp *MemPool) Expire() int {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	if mp.cfg.MempoolExpiry <= 0 {
		return 0
	}
	return len(mp.expireLocked(time.Duration(mp.cfg.MempoolExpiry) * time.Second))
}

// expireLocked removes every resident transaction (and its descendants)
// older than maxAge and returns everything removed, for both Expire and
// LimitMempoolSize.
func (mp *MemPool) expireLocked(maxAge time.Duration) []*Entry {
	expired := mp.evictor.ExpireOlderThan(mp.store, mp.now(), maxAge)

	removed := make(map[*Entry]struct{})
	var out []*Entry
	for _, e := range expired {
		if _, ok := removed[e]; ok {
			continue
		}
		if !mp.store.Have(e.TxHash()) {
			continue
		}
		group := mp.aggregates.CollectForRemoval(e)
		for _, g := range group {
			removed[g] = struct{}{}
		}
		mp.removeEntriesLocked(group, RemoveExpiry)
		out = append(out, group...)
	}
	return out
}

// evictToFitLocked evicts worst-descendant-score packages until the
// pool's dynamic memory usage is at or below Config.MaxMempoolBytes.
func (mp *MemPool) evictToFitLocked() {
	mp.trimToSizeLocked(mp.cfg.MaxMempoolBytes)
}

// TrimToSize evicts worst-descendant-score packages until the pool's
// dynamic memory usage is at or below maxBytes, regardless of
// Config.MaxMempoolBytes, and returns the evicted entries. It is the
// exported form of the automatic cap AddChecked enforces, for callers
// (such as cmd/mempool-inspect) that want to trim an offline snapshot to
// an arbitrary size.
func (mp *MemPool) TrimToSize(maxBytes int64) []*Entry {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()
	return mp.trimToSizeLocked(maxBytes)
}

// LimitMempoolSize composes expiry and size-limit trimming into the
// single maintenance call a node's periodic housekeeping loop runs:
// first age out anything older than ageSeconds, then trim to limit if
// the pool is still oversized. It returns every outpoint that, as a
// result, is no longer spent by any resident transaction, so a UTXO
// cache can reclaim the corresponding coin. Grounded on
// CTxMemPool::LimitSize, documented in original_source/src/mempool/txmempool.h,
// which composes the same two steps and returns pvNoSpendsRemaining for
// exactly this purpose. An outpoint an evicted transaction consumed is
// only ever spent by that transaction — the pool's outpointIndex
// refuses a second spender for the same outpoint — so every input of a
// removed entry is reclaimable once removal completes.
func (mp *MemPool) LimitMempoolSize(limit int64, ageSeconds int64) []wire.OutPoint {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	var removed []*Entry
	if ageSeconds > 0 {
		removed = append(removed, mp.expireLocked(time.Duration(ageSeconds)*time.Second)...)
	}
	removed = append(removed, mp.trimToSizeLocked(limit)...)

	var reclaimed []wire.OutPoint
	for _, e := range removed {
		for _, txIn := range e.Tx.MsgTx().TxIn {
			reclaimed = append(reclaimed, txIn.PreviousOutPoint)
		}
	}
	return reclaimed
}

func (mp *MemPool) trimToSizeLocked(maxBytes int64) []*Entry {
	current := mp.dynamicMemUsageLocked()
	if current <= maxBytes {
		return nil
	}
	victims := mp.evictor.SelectForEviction(mp.store, mp.aggregates, current, maxBytes)
	mp.removeEntriesLocked(victims, RemoveSizeLimit)
	return victims
}

// readmitLocked is ReorgReconciler's entry point back into MemPool's
// unexported surface; see ReorgReconciler.ReadmitDisconnectedTx.
func (mp *MemPool) readmitLocked(tx *btcutil.Tx, fee btcutil.Amount, entryHeight int32,
	vsize int64, sigOpCost int64, lp LockPoints) (*Entry, error) {

	hash := *tx.Hash()
	if mp.store.Have(hash) {
		return nil, policyErrorf(ReasonDuplicate, "transaction %s is already in the pool", hash)
	}

	entry := NewEntry(tx, fee, mp.now(), entryHeight, vsize, sigOpCost, lp)
	if delta := mp.priority.Get(hash); delta != 0 {
		entry.applyPriorityDelta(btcutil.Amount(delta))
	}
	parents := mp.resolveParentsLocked(tx)

	mp.graph.AddNode(entry)
	for _, p := range parents {
		mp.graph.AddEdge(p, entry)
	}
	ancestors, err := mp.graph.Ancestors(entry, -1)
	if err != nil {
		mp.graph.RemoveNode(entry)
		invariantViolation("readmitLocked: unbounded ancestor walk failed: %v", err)
	}

	mp.store.Insert(entry)
	mp.aggregates.FoldNewEntry(entry, ancestors)

	// entry may already have resident children left over from before
	// the block that confirmed it was disconnected: outputs of entry
	// that a resident transaction spends, discovered through
	// outpointIndex rather than LinkGraph since no parent->entry edge
	// was ever recorded for them (entry was not resident when they were
	// admitted). Wire those edges now so LinkGraph's BFS sees them.
	for i := range tx.MsgTx().TxOut {
		op := wire.OutPoint{Hash: hash, Index: uint32(i)}
		if child := mp.store.SpenderOf(op); child != nil {
			mp.graph.AddEdge(entry, child)
		}
	}

	// Those descendants' ancestor aggregates currently do not include
	// entry, nor any of entry's own ancestors (transactions further up
	// the same chain that were readmitted earlier, or that were never
	// disconnected at all) — none of them ever had a graph edge to these
	// descendants before entry existed to link them. Fold every
	// ancestor-including-entry's contribution into every newly
	// discovered descendant, and every descendant's contribution into
	// every ancestor-including-entry, the same two-sided fold
	// FoldNewEntry does for entry's own single-node insertion, just
	// applied across the whole reconnected subtree rather than one node.
	descendants := mp.graph.Descendants(entry)
	ancestorsIncludingEntry := make([]*Entry, 0, len(ancestors)+1)
	ancestorsIncludingEntry = append(ancestorsIncludingEntry, entry)
	for a := range ancestors {
		ancestorsIncludingEntry = append(ancestorsIncludingEntry, a)
	}

	for _, a := range ancestorsIncludingEntry {
		for d := range descendants {
			a.feeWithDescendants += d.modifiedFee()
			a.sizeWithDescendants += d.VSize
			a.countWithDescendants++
		}
		mp.store.Resort(a)
	}
	for d := range descendants {
		for _, a := range ancestorsIncludingEntry {
			d.feeWithAncestors += a.modifiedFee()
			d.sizeWithAncestors += a.VSize
			d.countWithAncestors++
			d.sigOpCostWithAncestors += a.SigOpCost
		}
		mp.store.Resort(d)
	}

	mp.transactionsUpdated++
	mp.events.notifyAdded(entry)
	return entry, nil
}

// pruneStaleLockPointsLocked is ReorgReconciler's entry point for
// PruneStaleLockPoints.
func (mp *MemPool) pruneStaleLockPointsLocked() []*Entry {
	tipHash := mp.cfg.ChainTip.TipHash()
	var stale []*Entry
	for _, e := range mp.store.All() {
		if e.LockPoints.TipHash == tipHash {
			continue
		}
		_, _, newLP, err := mp.cfg.Validator.CheckTransaction(e.Tx, mp.cfg.CoinView, mp.cfg.ChainTip)
		if err != nil {
			stale = append(stale, e)
			continue
		}
		e.LockPoints = newLP
	}

	removed := make(map[*Entry]struct{})
	var out []*Entry
	for _, e := range stale {
		if _, ok := removed[e]; ok {
			continue
		}
		if !mp.store.Have(e.TxHash()) {
			continue
		}
		group := mp.aggregates.CollectForRemoval(e)
		for _, g := range group {
			removed[g] = struct{}{}
		}
		mp.removeEntriesLocked(group, RemoveReorg)
		out = append(out, group...)
	}
	return out
}
