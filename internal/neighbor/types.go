package neighbor

import (
	"net"
	"net/netip"
	"time"
)

// DefaultIdleTime is how long an entry survives without being looked up,
// re-snooped or re-set.
const DefaultIdleTime = 15 * time.Minute

// bridgeNameSize bounds bridge names the same way the kernel bounds
// interface names (IFNAMSIZ minus the terminator).
const bridgeNameSize = 15

// Entry is a point-in-time snapshot of one cached neighbor, as returned by
// Manager.Entries. IPv4 neighbors carry their IPv4-mapped form.
type Entry struct {
	IP      netip.Addr
	MAC     net.HardwareAddr
	Bridge  string
	Expires time.Time
}

// canonicalAddr maps every address into the shared 128-bit key space:
// IPv4 becomes IPv4-mapped IPv6, zones are dropped.
func canonicalAddr(a netip.Addr) netip.Addr {
	return netip.AddrFrom16(a.WithZone("").As16())
}

func truncBridge(name string) string {
	if len(name) > bridgeNameSize {
		return name[:bridgeNameSize]
	}
	return name
}
