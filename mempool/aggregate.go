// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

// AggregateMaintainer keeps every resident Entry's ancestor and
// descendant roll-ups exact across insertion and removal. It is the
// direct analog of Bitcoin Core's UpdateForDescendants /
// UpdateAncestorsOf / UpdateChildrenForRemoval trio
// (original_source/src/mempool/txmempool.h), expressed against
// EntryStore and LinkGraph instead of boost::multi_index iterators.
//
// Every mutation here follows the same two-phase discipline the
// original enforces: first walk the graph read-only to compute what
// must change, then apply every mutation. Interleaving computation with
// mutation on a graph that is still being walked is exactly the kind of
// bug that produces the fatal invariant-violation panics in errors.go.
type AggregateMaintainer struct {
	store *EntryStore
	graph *LinkGraph
}

// NewAggregateMaintainer builds a maintainer over the given store and
// graph. Both must be the same instances the owning MemPool uses for
// every other operation.
func NewAggregateMaintainer(store *EntryStore, graph *LinkGraph) *AggregateMaintainer {
	return &AggregateMaintainer{store: store, graph: graph}
}

// FoldNewEntry updates ancestor aggregates for entry itself and
// descendant aggregates for every one of entry's ancestors, after entry
// has already been inserted into store and wired into graph. ancestors
// must be exactly entry's full in-pool ancestor set, typically the
// result of a prior LinkGraph.Ancestors call made during admission.
func (m *AggregateMaintainer) FoldNewEntry(entry *Entry, ancestors map[*Entry]struct{}) {
	entry.resetSelfAggregates()
	for a := range ancestors {
		entry.feeWithAncestors += a.modifiedFee()
		entry.sizeWithAncestors += a.VSize
		entry.countWithAncestors++
		entry.sigOpCostWithAncestors += a.SigOpCost
	}
	m.store.Resort(entry)

	for a := range ancestors {
		a.feeWithDescendants += entry.modifiedFee()
		a.sizeWithDescendants += entry.VSize
		a.countWithDescendants++
		m.store.Resort(a)
	}
}

// UnfoldRemovedEntry reverses FoldNewEntry's descendant-side update when
// entry is about to leave the pool: every remaining ancestor of entry
// has entry's contribution subtracted back out of its descendant
// roll-up. It must be called before entry is unlinked from graph, since
// it reads entry's current ancestor set to find who to update.
//
// It does not touch entry's own ancestor aggregate fields, since entry
// is being discarded; nor does it touch any descendant of entry, since a
// correct caller always removes descendants before ancestors (see
// CollectForRemoval) and so entry has none left by the time this runs.
func (m *AggregateMaintainer) UnfoldRemovedEntry(entry *Entry) {
	seen := make(map[*Entry]struct{})
	for _, parent := range m.graph.Parents(entry) {
		for a := range m.ancestorsIncludingSelf(parent) {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			a.feeWithDescendants -= entry.modifiedFee()
			a.sizeWithDescendants -= entry.VSize
			a.countWithDescendants--
			m.store.Resort(a)
		}
	}
}

// ancestorsIncludingSelf returns entry together with its full ancestor
// set. UnfoldRemovedEntry needs this because removing a leaf still
// requires updating that leaf's own parent chain, not just the direct
// parent.
func (m *AggregateMaintainer) ancestorsIncludingSelf(entry *Entry) map[*Entry]struct{} {
	ancestors, err := m.graph.Ancestors(entry, -1)
	if err != nil {
		invariantViolation("ancestorsIncludingSelf: unbounded Ancestors walk returned an error: %v", err)
	}
	if ancestors == nil {
		ancestors = make(map[*Entry]struct{})
	}
	ancestors[entry] = struct{}{}
	return ancestors
}

// CollectForRemoval computes the full set of entries that must be
// removed together with root: root plus every in-pool descendant,
// ordered so that descendants always precede their ancestors. Removing
// in this order is what lets UnfoldRemovedEntry assume "entry has no
// remaining descendants" at the point it runs for each entry, and it is
// what prevents ever leaving an entry in the pool whose input no longer
// exists.
func (m *AggregateMaintainer) CollectForRemoval(root *Entry) []*Entry {
	descendants := m.graph.Descendants(root)

	ordered := make([]*Entry, 0, len(descendants)+1)
	remaining := make(map[*Entry]struct{}, len(descendants)+1)
	remaining[root] = struct{}{}
	for d := range descendants {
		remaining[d] = struct{}{}
	}

	for len(remaining) > 0 {
		progressed := false
		for e := range remaining {
			hasUnremovedChild := false
			for _, c := range m.graph.Children(e) {
				if _, ok := remaining[c]; ok {
					hasUnremovedChild = true
					break
				}
			}
			if hasUnremovedChild {
				continue
			}
			ordered = append(ordered, e)
			delete(remaining, e)
			progressed = true
		}
		if !progressed {
			invariantViolation("CollectForRemoval: cycle detected among %d entries rooted at %s",
				len(remaining), root.TxHash())
		}
	}
	return ordered
}
