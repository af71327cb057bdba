// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// dumpVersion is the on-disk format version, incremented whenever the
// envelope written by WriteTo changes shape. It mirrors
// MEMPOOL_DUMP_VERSION (original_source/src/mempool/txmempool.h); the
// teacher's own mempool package has no persistence format at all, so
// the envelope's shape here follows Bitcoin Core's mempool.dat directly
// rather than any btcsuite convention.
//
// Version 2 appended the trailing PriorityDeltaMap section; a version 1
// reader would silently truncate any delta recorded against a
// transaction that isn't currently resident.
const dumpVersion uint64 = 2

// WriteTo serializes every resident transaction to w in an
// eviction-order-independent snapshot: version, count, then for each
// entry its raw wire encoding, acceptance time, entry height, and
// priority delta, followed by the full PriorityDeltaMap as (txid,
// amount) pairs. The trailing map section is what makes a
// PrioritiseTransaction delta survive a dump/reload cycle even for a
// transaction that isn't resident (was never seen, or was evicted)
// when the dump is written. Descendant/ancestor aggregates are not
// written since LoadFrom recomputes them from the graph as entries are
// re-admitted.
func (mp *MemPool) WriteTo(w io.Writer) (int64, error) {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()

	var written int64
	if err := binary.Write(w, binary.LittleEndian, dumpVersion); err != nil {
		return written, err
	}
	written += 8

	entries := mp.store.SortedByDescendantScore()
	if err := binary.Write(w, binary.LittleEndian, uint64(len(entries))); err != nil {
		return written, err
	}
	written += 8

	for _, e := range entries {
		n, err := writeDumpedEntry(w, e)
		written += n
		if err != nil {
			return written, err
		}
	}

	deltas := mp.priority.All()
	if err := binary.Write(w, binary.LittleEndian, uint64(len(deltas))); err != nil {
		return written, err
	}
	written += 8
	for hash, delta := range deltas {
		if _, err := w.Write(hash[:]); err != nil {
			return written, err
		}
		written += int64(len(hash))
		if err := binary.Write(w, binary.LittleEndian, delta); err != nil {
			return written, err
		}
		written += 8
	}
	return written, nil
}

func writeDumpedEntry(w io.Writer, e *Entry) (int64, error) {
	var written int64

	n, err := lengthPrefixedTx(w, e.Tx.MsgTx())
	written += n
	if err != nil {
		return written, err
	}

	fields := []int64{
		e.Time.Unix(),
		int64(e.EntryHeight),
		int64(e.priorityDelta),
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return written, err
		}
		written += 8
	}
	return written, nil
}

func lengthPrefixedTx(w io.Writer, tx *wire.MsgTx) (int64, error) {
	size := tx.SerializeSize()
	if err := binary.Write(w, binary.LittleEndian, uint64(size)); err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	buf.Grow(size)
	if err := tx.Serialize(&buf); err != nil {
		return 8, err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return 8, err
	}
	return int64(8 + buf.Len()), nil
}

// LoadFrom reads a snapshot written by WriteTo and re-admits every
// transaction it contains through readmitLocked, the path
// ReadmitDisconnectedTx uses for a reorg. Each transaction's vsize,
// sig-op cost and lock points are re-derived by validator and its fee by
// calcFeeLocked; a transaction with an input that resolves to neither a
// resident transaction nor Config.CoinView is skipped with a warning.
// entries are re-admitted
// in the order they were written, which WriteTo guarantees is best
// descendant-score first; LoadFrom does not re-sort this, since
// admitting a parent before its dependent children is what actually
// matters and best-score order already tends to put ancestors first for
// typical fee structures. Each re-admitted entry's Time is set to its
// recorded acceptance time, so expiry counts from the original
// acceptance rather than from the moment of loading.
func (mp *MemPool) LoadFrom(r io.Reader, validator Validator) (int, error) {
	mp.mtx.Lock()
	defer mp.mtx.Unlock()

	var version uint64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, err
	}
	if version != dumpVersion {
		return 0, fmt.Errorf("mempool: unsupported dump version %d", version)
	}

	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, err
	}

	var loaded int
	for i := uint64(0); i < count; i++ {
		tx, acceptUnix, height, delta, err := readDumpedEntry(r)
		if err != nil {
			return loaded, err
		}

		vsize, sigOpCost, lp, err := validator.CheckTransaction(tx, mp.cfg.CoinView, mp.cfg.ChainTip)
		if err != nil {
			log.Debugf("mempool: skipping dumped transaction %s: %v", tx.Hash(), err)
			continue
		}
		unresolved := false
		for _, txIn := range tx.MsgTx().TxIn {
			op := txIn.PreviousOutPoint
			if mp.store.Get(op.Hash) != nil {
				continue
			}
			if _, ok := mp.cfg.CoinView.CoinValue(op); !ok {
				unresolved = true
				break
			}
		}
		if unresolved {
			log.Warnf("mempool: skipping dumped transaction %s: unresolved input", tx.Hash())
			continue
		}
		fee, err := mp.calcFeeLocked(tx)
		if err != nil {
			continue
		}

		entry, err := mp.readmitLocked(tx, fee, height, vsize, sigOpCost, lp)
		if err != nil {
			continue
		}
		entry.Time = time.Unix(acceptUnix, 0)
		if delta != 0 {
			entry.applyPriorityDelta(btcutil.Amount(delta))
			mp.store.Resort(entry)
			for a := range mp.ancestorsIncludingSelfLocked(entry) {
				if a != entry {
					a.feeWithDescendants += btcutil.Amount(delta)
					mp.store.Resort(a)
				}
			}
			for d := range mp.graph.Descendants(entry) {
				d.feeWithAncestors += btcutil.Amount(delta)
				mp.store.Resort(d)
			}
		}
		loaded++
	}

	var deltaCount uint64
	if err := binary.Read(r, binary.LittleEndian, &deltaCount); err != nil {
		return loaded, err
	}
	for i := uint64(0); i < deltaCount; i++ {
		var hash chainhash.Hash
		if _, err := io.ReadFull(r, hash[:]); err != nil {
			return loaded, err
		}
		var delta int64
		if err := binary.Read(r, binary.LittleEndian, &delta); err != nil {
			return loaded, err
		}
		mp.priority.ApplyDelta(hash, delta)
	}
	return loaded, nil
}

func readDumpedEntry(r io.Reader) (*btcutil.Tx, int64, int32, int64, error) {
	var size uint64
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, 0, 0, 0, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, 0, 0, 0, err
	}
	msgTx := new(wire.MsgTx)
	if err := msgTx.Deserialize(bytes.NewReader(buf)); err != nil {
		return nil, 0, 0, 0, err
	}

	var acceptUnix, height, delta int64
	if err := binary.Read(r, binary.LittleEndian, &acceptUnix); err != nil {
		return nil, 0, 0, 0, err
	}
	if err := binary.Read(r, binary.LittleEndian, &height); err != nil {
		return nil, 0, 0, 0, err
	}
	if err := binary.Read(r, binary.LittleEndian, &delta); err != nil {
		return nil, 0, 0, 0, err
	}
	return btcutil.NewTx(msgTx), acceptUnix, int32(height), delta, nil
}
