// Package neighbor implements the tunnel neighbor cache: a concurrent
// (bridge, IP) -> MAC table learned passively from snooped ARP replies and
// IPv6 neighbor advertisements. Lookups from the encapsulation path are
// lock-free; snooping, aging and the admin surface mutate the table under a
// single lock and bump a change sequence other subsystems watch.
package neighbor

import (
	"bytes"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/hostinger/tnlneigh/internal/seq"
)

// Manager owns the table and enforces the entry lifecycle rules.
type Manager struct {
	mu      sync.Mutex // serializes mutations; never taken by Lookup
	table   *table
	notify  *seq.Seq
	timeNow func() time.Time
}

// NewManager returns an empty cache that signals notify on every content
// change.
func NewManager(notify *seq.Seq) *Manager {
	return &Manager{
		table:   newTable(numBuckets),
		notify:  notify,
		timeNow: time.Now,
	}
}

// find returns the live entry for the key, pushing its expiry out on a hit.
// The refresh mirrors the lookup path: any touch keeps an entry warm.
func (m *Manager) find(bridge string, ip netip.Addr) *entry {
	e := m.table.lookup(bridge, ip)
	if e != nil {
		e.expires.Store(m.timeNow().Add(DefaultIdleTime).Unix())
	}
	return e
}

// Lookup returns the cached MAC for ip on bridge. Safe for any number of
// concurrent callers with no external locking. A hit extends the entry's
// idle time; a miss has no side effect.
func (m *Manager) Lookup(bridge string, ip netip.Addr) (net.HardwareAddr, bool) {
	e := m.find(truncBridge(bridge), canonicalAddr(ip))
	if e == nil {
		return nil, false
	}
	return e.mac, true
}

// Upsert installs or refreshes the mapping for (bridge, ip). A brand-new
// key or a MAC different from the cached one counts as a content change; a
// same-MAC call only refreshes the expiry. Reports whether content changed.
func (m *Manager) Upsert(bridge string, ip netip.Addr, mac net.HardwareAddr) bool {
	bridge = truncBridge(bridge)
	ip = canonicalAddr(ip)

	m.mu.Lock()
	if e := m.find(bridge, ip); e != nil {
		if bytes.Equal(e.mac, mac) {
			m.mu.Unlock()
			return false
		}
		m.table.remove(e)
	}

	e := &entry{
		ip:     ip,
		bridge: bridge,
		mac:    append(net.HardwareAddr(nil), mac...),
	}
	e.expires.Store(m.timeNow().Add(DefaultIdleTime).Unix())
	m.table.insert(e)
	m.mu.Unlock()

	m.notify.Change()
	return true
}

// Flush removes every entry. Reports whether the table was non-empty.
func (m *Manager) Flush() bool {
	changed := false
	m.mu.Lock()
	m.table.walk(func(e *entry) {
		m.table.remove(e)
		changed = true
	})
	m.mu.Unlock()

	if changed {
		m.notify.Change()
	}
	return changed
}

// SweepExpired removes every entry whose expiry is at or before now and
// reports whether any were removed. The change sequence advances at most
// once per call, however many entries age out.
func (m *Manager) SweepExpired() bool {
	changed := false
	m.mu.Lock()
	now := m.timeNow().Unix()
	m.table.walk(func(e *entry) {
		if e.expires.Load() <= now {
			m.table.remove(e)
			changed = true
		}
	})
	m.mu.Unlock()

	if changed {
		m.notify.Change()
	}
	return changed
}

// Run performs one aging pass. Intended to be invoked periodically from the
// daemon's control loop.
func (m *Manager) Run() {
	m.SweepExpired()
}

// Entries returns a snapshot of the live entries in unspecified order. It
// does not take the mutation lock and does not refresh expiries.
func (m *Manager) Entries() []Entry {
	var out []Entry
	m.table.walk(func(e *entry) {
		out = append(out, Entry{
			IP:      e.ip,
			MAC:     e.mac,
			Bridge:  e.bridge,
			Expires: time.Unix(e.expires.Load(), 0),
		})
	})
	return out
}
