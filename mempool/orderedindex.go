// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "container/heap"

// ordering identifies one of the pool's simultaneous sort orders. Each
// Entry tracks its own slot in every ordering via Entry.heapIndex so an
// arbitrary entry, not just the root, can be removed or re-sorted after
// an aggregate changes without a linear scan.
type ordering int

const (
	// orderDescendantScore ranks by descendant package feerate,
	// descending. Block assembly walks entries in this order first.
	orderDescendantScore ordering = iota

	// orderEntryTime ranks by acceptance time, ascending. Expire walks
	// entries in this order to find the oldest residents first.
	orderEntryTime

	// orderMiningScore ranks by the entry's own feerate, descending,
	// independent of its descendants. Used to pick the highest-value
	// single transaction for opportunistic template filling.
	orderMiningScore

	// orderAncestorScore ranks by ancestor package feerate, ascending,
	// so its root is the worst ancestor-package value. Evictor does not
	// use it; eviction ranks by descendant score.
	orderAncestorScore

	// orderAncestorScoreOrGasPrice ranks the same as orderAncestorScore
	// except that when the pool is configured with a gas-price
	// predicate (see Config.GasPrice), contract transactions are
	// ranked by declared gas price instead of feerate. This is the
	// sbtc-vm extension to Bitcoin Core's ordering set.
	orderAncestorScoreOrGasPrice

	// numOrderings is the count of orderings above, and the size of
	// Entry.heapIndex.
	numOrderings
)

// lessFunc reports whether a sorts strictly before b under some ordering.
type lessFunc func(a, b *Entry) bool

// orderedIndex is a heap-backed, indexed priority queue over *Entry. It
// generalizes the teacher's generic PriorityQueue[T]
// (mempool/txgraph/collections.go) in one respect: because every element
// (not only the root) can be invalidated at any time by an aggregate
// change elsewhere in the pool, each Entry remembers its own slot for
// this ordering in Entry.heapIndex[which], letting Remove and Fix locate
// it in O(1) instead of scanning. Insert, Remove, and Fix are all
// O(log n).
type orderedIndex struct {
	which ordering
	less  lessFunc
	items []*Entry
}

func newOrderedIndex(which ordering, less lessFunc) *orderedIndex {
	idx := &orderedIndex{which: which, less: less}
	heap.Init(idx)
	return idx
}

// Len, Less, Swap, Push, and Pop satisfy container/heap.Interface. They
// are not meant to be called directly; use the Insert/Remove/Fix/Min
// wrappers below.

func (idx *orderedIndex) Len() int { return len(idx.items) }

func (idx *orderedIndex) Less(i, j int) bool {
	return idx.less(idx.items[i], idx.items[j])
}

func (idx *orderedIndex) Swap(i, j int) {
	idx.items[i], idx.items[j] = idx.items[j], idx.items[i]
	idx.items[i].heapIndex[idx.which] = i
	idx.items[j].heapIndex[idx.which] = j
}

func (idx *orderedIndex) Push(x interface{}) {
	e := x.(*Entry)
	e.heapIndex[idx.which] = len(idx.items)
	idx.items = append(idx.items, e)
}

func (idx *orderedIndex) Pop() interface{} {
	n := len(idx.items)
	e := idx.items[n-1]
	idx.items[n-1] = nil
	idx.items = idx.items[:n-1]
	e.heapIndex[idx.which] = -1
	return e
}

// Insert adds entry to the index in O(log n).
func (idx *orderedIndex) Insert(entry *Entry) {
	heap.Push(idx, entry)
}

// Remove deletes entry from the index in O(log n). entry must currently
// be a member; removing a non-member is an invariant violation since it
// means the pool's per-ordering bookkeeping has already diverged.
func (idx *orderedIndex) Remove(entry *Entry) {
	pos := entry.heapIndex[idx.which]
	if pos < 0 || pos >= len(idx.items) || idx.items[pos] != entry {
		invariantViolation("orderedIndex.Remove: entry %s not present in ordering %d",
			entry.TxHash(), idx.which)
	}
	heap.Remove(idx, pos)
}

// Fix re-establishes heap order for entry after its sort key changed in
// place, in O(log n). Callers must call Fix after mutating any aggregate
// field that this ordering's less function reads.
func (idx *orderedIndex) Fix(entry *Entry) {
	pos := entry.heapIndex[idx.which]
	if pos < 0 || pos >= len(idx.items) || idx.items[pos] != entry {
		invariantViolation("orderedIndex.Fix: entry %s not present in ordering %d",
			entry.TxHash(), idx.which)
	}
	heap.Fix(idx, pos)
}

// Min returns the entry ranked first by this ordering, or nil if empty.
// It does not remove the entry.
func (idx *orderedIndex) Min() *Entry {
	if len(idx.items) == 0 {
		return nil
	}
	return idx.items[0]
}

// All returns every entry currently in the index in unspecified order.
// Callers that need a fully sorted walk should repeatedly pop from a
// throwaway copy, or sort a snapshot of All's result with the same less
// function; All itself is O(n) and does not disturb the heap.
func (idx *orderedIndex) All() []*Entry {
	out := make([]*Entry, len(idx.items))
	copy(out, idx.items)
	return out
}
