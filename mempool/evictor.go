// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"sort"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/decred/dcrd/lru"
)

// recentlyEvictedCacheSize bounds how many recently size-evicted txids
// Evictor remembers, mirroring the teacher's own choice of a fixed-size
// lru.Cache for its P2P downgrader rather than an unbounded map (see
// peer/p2pdowngrader.go).
const recentlyEvictedCacheSize = 5000

// rollingFeeHalfLife is how long, in seconds, the rolling minimum relay
// fee takes to decay by half when the pool is not full, matching
// Bitcoin Core's ROLLING_FEE_HALFLIFE
// (original_source/src/mempool/txmempool.h).
const rollingFeeHalfLife = 60 * 60 * 12

// Evictor enforces MemPool's dynamic memory cap by evicting the
// worst-descendant-score packages first, and maintains the decaying
// rolling minimum relay feerate new transactions must clear. It is
// grounded on CTxMemPool::TrimToSize / GetMinFee / trackPackageRemoved
// (original_source/src/mempool/txmempool.h); the teacher's own mempool
// package has no equivalent since btcd relies on a fixed relay fee
// instead of a load-shedding rolling floor.
type Evictor struct {
	cfg *Config

	rollingMinimumFeeRate float64 // satoshis per vbyte
	lastRollingFeeUpdate  time.Time
	blockSinceLastRollingFeeBump bool

	// recentlyEvicted remembers txids trimmed for size so Add can
	// short-circuit an immediate resubmission of the same low-value
	// transaction instead of doing a full ancestor walk only to reject
	// it again on the rolling fee floor.
	recentlyEvicted lru.Cache
}

// NewEvictor builds an Evictor bound to cfg.
func NewEvictor(cfg *Config) *Evictor {
	return &Evictor{
		cfg:             cfg,
		recentlyEvicted: lru.NewCache(recentlyEvictedCacheSize),
	}
}

// WasRecentlyEvicted reports whether hash was trimmed for size recently
// enough to still be remembered.
func (ev *Evictor) WasRecentlyEvicted(hash chainhash.Hash) bool {
	return ev.recentlyEvicted.Contains(hash)
}

// incrementalRelayFeeDefault is used in place of a zero
// Config.IncrementalRelayFee, matching Bitcoin Core's default
// incremental relay fee of 1000 sat/kvB (1 sat/vB).
const incrementalRelayFeeDefault = btcutil.Amount(1000)

// incrementalRelayFeeRate returns Config.IncrementalRelayFee converted
// to satoshis per vbyte, falling back to incrementalRelayFeeDefault when
// unset.
func (ev *Evictor) incrementalRelayFeeRate() float64 {
	fee := ev.cfg.IncrementalRelayFee
	if fee == 0 {
		fee = incrementalRelayFeeDefault
	}
	return float64(fee) / 1000
}

// GetMinFee returns the feerate, in satoshis per vbyte, an incoming
// transaction must clear to be considered for admission: the greater of
// Config.MinRelayTxFee's per-vbyte rate and the current decayed rolling
// minimum. now is the caller's notion of the current time, threaded in
// rather than read from the clock so eviction decisions are
// reproducible in tests.
func (ev *Evictor) GetMinFee(now time.Time, poolSizeBytes int64) float64 {
	floor := float64(ev.cfg.MinRelayTxFee) / 1000
	if ev.rollingMinimumFeeRate == 0 {
		return floor
	}

	// Decay the rolling fee toward zero the longer the pool has gone
	// without needing to evict, and drop it entirely once it decays
	// below half the incremental relay fee, exactly as Core does in
	// GetMinFee.
	elapsed := now.Sub(ev.lastRollingFeeUpdate).Seconds()
	halvings := elapsed / rollingFeeHalfLife
	ev.rollingMinimumFeeRate /= pow2(halvings)
	ev.lastRollingFeeUpdate = now
	if ev.rollingMinimumFeeRate < ev.incrementalRelayFeeRate()/2 {
		ev.rollingMinimumFeeRate = 0
		return floor
	}

	if ev.rollingMinimumFeeRate > floor {
		return ev.rollingMinimumFeeRate
	}
	return floor
}

// pow2 returns 2^x for non-negative x without pulling in math.Pow just
// for this one call site.
func pow2(x float64) float64 {
	if x <= 0 {
		return 1
	}
	result := 1.0
	whole := int(x)
	frac := x - float64(whole)
	for i := 0; i < whole; i++ {
		result *= 2
	}
	// Approximate the fractional remainder linearly; GetMinFee only
	// needs a smooth, monotonic decay curve, not an exact power.
	result *= 1 + frac
	return result
}

// trackPackageRemoved bumps the rolling minimum to at least
// packageFeeRate plus the incremental relay fee, but only the first time
// a package is evicted since the last block connected: once
// blockSinceLastRollingFeeBump is consumed here, further evictions
// within the same round leave the rolling minimum alone until
// onBlockConnected sets the flag again. Matches
// CTxMemPool::trackPackageRemoved (original_source/src/mempool/txmempool.h).
func (ev *Evictor) trackPackageRemoved(now time.Time, packageFeeRate float64) {
	if !ev.blockSinceLastRollingFeeBump {
		return
	}
	candidate := packageFeeRate + ev.incrementalRelayFeeRate()
	if candidate > ev.rollingMinimumFeeRate {
		ev.rollingMinimumFeeRate = candidate
	}
	ev.lastRollingFeeUpdate = now
	ev.blockSinceLastRollingFeeBump = false
}

// onBlockConnected sets blockSinceLastRollingFeeBump, which lets the
// next trackPackageRemoved call bump the rolling minimum once. It does
// not change how GetMinFee decays the rolling minimum.
func (ev *Evictor) onBlockConnected() {
	ev.blockSinceLastRollingFeeBump = true
}

// SelectForEviction repeatedly returns the resident entry with the
// lowest descendant-package feerate — the tail of ordering 1, not the
// ancestor-score ordering — until removing that entry's full descendant
// package would bring the pool back under maxBytes, or the pool is
// empty. Ancestor-score (and its gas-price variant) rank packages for
// block-template construction, not for eviction; TrimToSize, documented
// in original_source/src/mempool/txmempool.h, walks the descendant_score
// index exclusively. SelectForEviction does not perform any removal
// itself; MemPool.trimToSizeLocked applies the returned entries through
// the same removeEntriesLocked path every other removal uses, so
// eviction never skips aggregate bookkeeping. Entries already selected
// stay resident until then, so each pick skips them; later picks rank
// by the aggregates as they stood before this call.
func (ev *Evictor) SelectForEviction(store *EntryStore, aggregates *AggregateMaintainer,
	currentBytes, maxBytes int64) []*Entry {

	var victims []*Entry
	removed := make(map[*Entry]struct{})
	remaining := currentBytes

	for remaining > maxBytes {
		var worst *Entry
		for _, e := range store.All() {
			if _, ok := removed[e]; ok {
				continue
			}
			if worst == nil || byDescendantScore(worst, e) {
				worst = e
			}
		}
		if worst == nil {
			break
		}

		group := aggregates.CollectForRemoval(worst)
		var groupBytes int64
		for _, e := range group {
			if _, ok := removed[e]; ok {
				continue
			}
			removed[e] = struct{}{}
			victims = append(victims, e)
			groupBytes += int64(e.Tx.MsgTx().SerializeSize())
			ev.recentlyEvicted.Add(e.TxHash())
		}
		remaining -= groupBytes

		ev.trackPackageRemoved(worst.Time, worst.descendantScore())
	}
	return victims
}

// ExpireOlderThan returns every resident entry whose age exceeds maxAge
// as of now, oldest first, for MemPool.Expire to remove. It is a pure
// selection helper for the same reason SelectForEviction is: MemPool
// owns the only code path that actually mutates the pool.
func (ev *Evictor) ExpireOlderThan(store *EntryStore, now time.Time, maxAge time.Duration) []*Entry {
	var expired []*Entry
	for _, e := range store.All() {
		if now.Sub(e.Time) > maxAge {
			expired = append(expired, e)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return byEntryTime(expired[i], expired[j]) })
	return expired
}

// satoshisPerKvB converts an amount and a size in bytes to a feerate in
// satoshis per thousand bytes, the unit MinRelayTxFee is expressed in.
func satoshisPerKvB(amount btcutil.Amount, size int64) float64 {
	if size <= 0 {
		return 0
	}
	return float64(amount) * 1000 / float64(size)
}
