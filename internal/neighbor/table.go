package neighbor

import (
	"net"
	"net/netip"
	"sync/atomic"
)

// numBuckets is fixed; tunnel neighbor tables stay small and a resize would
// have to copy entries, invalidating the next pointers concurrent readers
// may be standing on.
const numBuckets = 1024 // power of two

// entry is one live cache node. All fields except next and expires are
// immutable after the entry is published into the table, so readers never
// need a lock. expires is atomic because lookups refresh it.
type entry struct {
	next    atomic.Pointer[entry]
	ip      netip.Addr // canonical 16-byte form
	bridge  string
	mac     net.HardwareAddr
	expires atomic.Int64 // unix seconds
}

// table is a chained hash table with lock-free readers. Writers must be
// serialized externally (Manager.mu); they only ever publish fully built
// entries and unlink whole nodes, so a reader mid-traversal either sees an
// entry or it doesn't, never a torn one. An unlinked entry keeps its next
// pointer, letting readers already past it finish their walk; the garbage
// collector frees it once no reader can reach it.
type table struct {
	buckets []atomic.Pointer[entry]
}

func newTable(n int) *table {
	return &table{buckets: make([]atomic.Pointer[entry], n)}
}

// hashAddr is FNV-1a over the 16 raw address bytes. The bridge name is
// deliberately not hashed; chains are disambiguated by exact comparison.
func hashAddr(ip netip.Addr) uint32 {
	b := ip.As16()
	h := uint32(2166136261)
	for _, c := range b {
		h ^= uint32(c)
		h *= 16777619
	}
	return h
}

func (t *table) bucket(ip netip.Addr) *atomic.Pointer[entry] {
	return &t.buckets[hashAddr(ip)&uint32(len(t.buckets)-1)]
}

// lookup is safe for any number of concurrent callers, including while a
// writer edits the same bucket.
func (t *table) lookup(bridge string, ip netip.Addr) *entry {
	for e := t.bucket(ip).Load(); e != nil; e = e.next.Load() {
		if e.ip == ip && e.bridge == bridge {
			return e
		}
	}
	return nil
}

// insert prepends e to its bucket. Caller holds the mutation lock.
func (t *table) insert(e *entry) {
	head := t.bucket(e.ip)
	e.next.Store(head.Load())
	head.Store(e)
}

// remove unlinks e from its bucket. Caller holds the mutation lock.
func (t *table) remove(e *entry) {
	head := t.bucket(e.ip)
	if head.Load() == e {
		head.Store(e.next.Load())
		return
	}
	for p := head.Load(); p != nil; p = p.next.Load() {
		if p.next.Load() == e {
			p.next.Store(e.next.Load())
			return
		}
	}
}

// walk visits every entry. Safe without the mutation lock; entries unlinked
// mid-walk may or may not be visited. Removing the entry being visited is
// allowed when the caller holds the mutation lock.
func (t *table) walk(fn func(*entry)) {
	for i := range t.buckets {
		for e := t.buckets[i].Load(); e != nil; e = e.next.Load() {
			fn(e)
		}
	}
}
