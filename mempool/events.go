// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

// RemoveReason classifies why an entry left the pool, mirroring the
// MemPoolRemovalReason enum Bitcoin Core threads through its own
// removal paths (original_source/src/mempool/txmempool.h) so an
// EventSink can distinguish "this is now confirmed" from "this was
// discarded".
type RemoveReason int

const (
	// RemoveUnknown is the zero value and is never produced by MemPool
	// itself; it exists so a mistakenly zero-valued RemoveReason is
	// visibly wrong rather than silently mistaken for RemoveExpiry.
	RemoveUnknown RemoveReason = iota

	// RemoveBlock means the transaction was removed because it was
	// mined into a connected block.
	RemoveBlock

	// RemoveConflict means the transaction was removed because a
	// mined block's transaction spent one of its inputs first.
	RemoveConflict

	// RemoveReplaced means the transaction was evicted by a
	// higher-feerate replacement transaction.
	RemoveReplaced

	// RemoveSizeLimit means the transaction was evicted by Evictor to
	// bring the pool back under its configured memory cap.
	RemoveSizeLimit

	// RemoveExpiry means the transaction aged out past the configured
	// residency limit.
	RemoveExpiry

	// RemoveReorg means the transaction was pruned while reconciling a
	// disconnected block, typically because it no longer satisfies
	// BIP68 sequence locks against the new tip.
	RemoveReorg
)

func (r RemoveReason) String() string {
	switch r {
	case RemoveBlock:
		return "block"
	case RemoveConflict:
		return "conflict"
	case RemoveReplaced:
		return "replaced"
	case RemoveSizeLimit:
		return "size-limit"
	case RemoveExpiry:
		return "expiry"
	case RemoveReorg:
		return "reorg"
	default:
		return "unknown"
	}
}

// eventBroadcaster fans lifecycle notifications out to zero or more
// registered EventSinks. It is a simplification of the teacher's
// NotificationCallback/Subscribe pattern (mempool/notifications.go):
// instead of a single untyped callback carrying a Notification{Type,
// Data} envelope, callers register a typed EventSink directly, since
// this package only ever emits the two lifecycle events it declares.
type eventBroadcaster struct {
	sinks []EventSink
}

// Subscribe registers sink to receive future EntryAdded/EntryRemoved
// calls. Subscribe is not safe to call concurrently with pool mutation;
// callers should register every sink before starting to feed
// transactions through the pool.
func (b *eventBroadcaster) Subscribe(sink EventSink) {
	b.sinks = append(b.sinks, sink)
}

func (b *eventBroadcaster) notifyAdded(entry *Entry) {
	for _, s := range b.sinks {
		s.EntryAdded(entry)
	}
}

func (b *eventBroadcaster) notifyRemoved(entry *Entry, reason RemoveReason) {
	for _, s := range b.sinks {
		s.EntryRemoved(entry, reason)
	}
}
