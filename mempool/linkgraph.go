// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

// txLinks records one entry's direct in-pool parents and children, the
// mempool-local counterpart of Bitcoin Core's mapLinks<TxLinks>
// (original_source/src/mempool/txmempool.h) and a narrowing of the
// teacher's TxGraphNode (mempool/txgraph/graph.go) to plain parent/child
// sets, since this package has no cluster or package-relay concept to
// track alongside them.
type txLinks struct {
	parents  map[*Entry]struct{}
	children map[*Entry]struct{}
}

func newTxLinks() *txLinks {
	return &txLinks{
		parents:  make(map[*Entry]struct{}),
		children: make(map[*Entry]struct{}),
	}
}

// LinkGraph tracks direct parent/child edges between resident entries
// and performs bounded ancestor/descendant traversal. It holds no fee or
// size information itself; AggregateMaintainer walks the edges LinkGraph
// exposes to fold and unfold the roll-ups Entry stores.
type LinkGraph struct {
	links map[*Entry]*txLinks
}

// NewLinkGraph returns an empty LinkGraph.
func NewLinkGraph() *LinkGraph {
	return &LinkGraph{links: make(map[*Entry]*txLinks)}
}

// AddNode registers entry with no edges. It is a no-op if entry is
// already present.
func (g *LinkGraph) AddNode(entry *Entry) {
	if _, ok := g.links[entry]; !ok {
		g.links[entry] = newTxLinks()
	}
}

// AddEdge records that child spends one of parent's outputs. Both nodes
// must already be present via AddNode.
func (g *LinkGraph) AddEdge(parent, child *Entry) {
	pl, ok := g.links[parent]
	if !ok {
		invariantViolation("LinkGraph.AddEdge: parent %s not registered", parent.TxHash())
	}
	cl, ok := g.links[child]
	if !ok {
		invariantViolation("LinkGraph.AddEdge: child %s not registered", child.TxHash())
	}
	pl.children[child] = struct{}{}
	cl.parents[parent] = struct{}{}
}

// RemoveNode deletes entry and every edge touching it. Callers are
// responsible for having already reassigned or removed anything that
// depended on entry remaining linked; RemoveNode does not cascade.
func (g *LinkGraph) RemoveNode(entry *Entry) {
	links, ok := g.links[entry]
	if !ok {
		return
	}
	for parent := range links.parents {
		delete(g.links[parent].children, entry)
	}
	for child := range links.children {
		delete(g.links[child].parents, entry)
	}
	delete(g.links, entry)
}

// Parents returns entry's direct in-pool parents.
func (g *LinkGraph) Parents(entry *Entry) []*Entry {
	links, ok := g.links[entry]
	if !ok {
		return nil
	}
	out := make([]*Entry, 0, len(links.parents))
	for p := range links.parents {
		out = append(out, p)
	}
	return out
}

// Children returns entry's direct in-pool children.
func (g *LinkGraph) Children(entry *Entry) []*Entry {
	links, ok := g.links[entry]
	if !ok {
		return nil
	}
	out := make([]*Entry, 0, len(links.children))
	for c := range links.children {
		out = append(out, c)
	}
	return out
}

// HasParents reports whether entry has any in-pool parent, i.e. whether
// it spends at least one still-resident transaction's output.
func (g *LinkGraph) HasParents(entry *Entry) bool {
	links, ok := g.links[entry]
	return ok && len(links.parents) > 0
}

// ErrAncestorLimitExceeded is returned by Ancestors when the bounded
// traversal would exceed the caller-supplied count bound before
// finishing, so the caller can turn it into a PolicyError with
// ReasonChainLimitExceeded without walking the rest of the graph.
type ErrAncestorLimitExceeded struct {
	Limit int
}

func (e *ErrAncestorLimitExceeded) Error() string {
	return "ancestor set exceeds configured limit"
}

// Ancestors performs a bounded breadth-first traversal of entry's
// in-pool ancestor set (not including entry itself) and returns it as a
// set. If the traversal would visit more than maxCount distinct
// ancestors, it aborts early and returns ErrAncestorLimitExceeded rather
// than continuing to walk a package a caller has already decided to
// reject; this bound is what keeps a pathological, deeply chained
// package from making acceptance a linear-or-worse scan of the whole
// pool (spec §4's anti-pinning limit).
func (g *LinkGraph) Ancestors(entry *Entry, maxCount int) (map[*Entry]struct{}, error) {
	visited := make(map[*Entry]struct{})
	queue := g.Parents(entry)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := visited[next]; ok {
			continue
		}
		visited[next] = struct{}{}
		if maxCount >= 0 && len(visited) > maxCount {
			return nil, &ErrAncestorLimitExceeded{Limit: maxCount}
		}
		queue = append(queue, g.Parents(next)...)
	}
	return visited, nil
}

// Descendants performs an unbounded breadth-first traversal of entry's
// in-pool descendant set (not including entry itself). Unlike Ancestors,
// descendant traversal is never subject to the anti-pinning bound: a
// transaction being removed must always be able to find and pull in
// every descendant that depends on it, or the pool would be left holding
// an entry that spends a coin which no longer exists (spec §4 removal
// invariant).
func (g *LinkGraph) Descendants(entry *Entry) map[*Entry]struct{} {
	visited := make(map[*Entry]struct{})
	queue := g.Children(entry)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if _, ok := visited[next]; ok {
			continue
		}
		visited[next] = struct{}{}
		queue = append(queue, g.Children(next)...)
	}
	return visited
}
