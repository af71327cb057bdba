// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "reflect"

// dynamicMemUsage returns a best-effort estimate, in bytes, of the
// memory referenced by iface beyond the fixed size of iface's static
// type, walking pointers, slices, maps, and nested structs. It is a
// direct adaptation of the teacher's reflection-based walker
// (mempool/memusage.go), generalized from that file's single Entry-list
// use to any value. dynamicMemUsageLocked applies it only to each
// entry's LockPoints.
//
// This is necessarily approximate: it does not know Go's actual
// allocator bucket sizes or map/slice growth headroom, and it does not
// attempt to detect shared substructure, so cyclic or heavily aliased
// graphs can be overcounted. It exists to answer "are we over the
// configured memory cap by a lot or a little", not to match runtime.MemStats
// exactly.
func dynamicMemUsage(iface interface{}) int64 {
	if iface == nil {
		return 0
	}
	seen := make(map[uintptr]struct{})
	return dynamicMemUsageValue(reflect.ValueOf(iface), seen)
}

func dynamicMemUsageValue(v reflect.Value, seen map[uintptr]struct{}) int64 {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return 0
		}
		ptr := v.Pointer()
		if _, ok := seen[ptr]; ok {
			return 0
		}
		seen[ptr] = struct{}{}
		return int64(v.Elem().Type().Size()) + dynamicMemUsageValue(v.Elem(), seen)

	case reflect.Interface:
		if v.IsNil() {
			return 0
		}
		return dynamicMemUsageValue(v.Elem(), seen)

	case reflect.Slice:
		if v.IsNil() {
			return 0
		}
		size := int64(v.Cap()) * int64(v.Type().Elem().Size())
		for i := 0; i < v.Len(); i++ {
			size += dynamicMemUsageValue(v.Index(i), seen)
		}
		return size

	case reflect.Array:
		var size int64
		for i := 0; i < v.Len(); i++ {
			size += dynamicMemUsageValue(v.Index(i), seen)
		}
		return size

	case reflect.Map:
		if v.IsNil() {
			return 0
		}
		var size int64
		keyEntrySize := int64(v.Type().Key().Size()) + int64(v.Type().Elem().Size())
		for _, key := range v.MapKeys() {
			size += keyEntrySize
			size += dynamicMemUsageValue(key, seen)
			size += dynamicMemUsageValue(v.MapIndex(key), seen)
		}
		return size

	case reflect.Struct:
		var size int64
		for i := 0; i < v.NumField(); i++ {
			field := v.Field(i)
			if !field.CanInterface() {
				continue
			}
			size += dynamicMemUsageValue(field, seen)
		}
		return size

	default:
		return 0
	}
}

// DynamicMemUsage returns the pool's current best-effort dynamic memory
// usage: the sum over resident entries of each transaction's serialized
// size plus the walker's estimate for its LockPoints. The Entry structs,
// the orderings, the link graph and the lookup maps are not counted. Evictor
// compares this against Config.MaxMempoolBytes, mirroring
// CTxMemPool::DynamicMemoryUsage
// (original_source/src/mempool/txmempool.h).
func (mp *MemPool) DynamicMemUsage() int64 {
	mp.mtx.RLock()
	defer mp.mtx.RUnlock()
	return mp.dynamicMemUsageLocked()
}

func (mp *MemPool) dynamicMemUsageLocked() int64 {
	var total int64
	for _, entry := range mp.store.All() {
		total += int64(entry.Tx.MsgTx().SerializeSize())
		total += dynamicMemUsage(entry.LockPoints)
	}
	return total
}
