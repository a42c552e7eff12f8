// Package ctl is the administrative surface of the tunnel neighbor cache:
// show, set and flush, registered with whatever command dispatcher the
// daemon runs. Address resolution for set is delegated to an injected
// Resolver so the package stays testable without DNS.
package ctl

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/hostinger/tnlneigh/internal/neighbor"
)

var (
	// ErrBadAddress reports that the address argument of set neither
	// parsed as a literal nor resolved to an address.
	ErrBadAddress = errors.New("bad IP address")
	// ErrBadMAC reports that the MAC argument of set did not parse as a
	// 48-bit address.
	ErrBadMAC = errors.New("bad MAC address")
)

// Resolver turns a hostname or address literal into an address.
type Resolver interface {
	LookupAddr(host string) (netip.Addr, error)
}

// Dispatcher registers administrative commands; the concrete implementation
// lives with the admin transport and relays each handler's reply or error
// to the operator.
type Dispatcher interface {
	Register(name, usage string, minArgs, maxArgs int, fn func(args []string) (string, error))
}

// Control binds the cache manager and resolver behind the three commands.
type Control struct {
	nm       *neighbor.Manager
	resolver Resolver
}

func New(nm *neighbor.Manager, r Resolver) *Control {
	return &Control{nm: nm, resolver: r}
}

// Show renders every live entry as one row per neighbor. Iteration order is
// whatever the table yields.
func (c *Control) Show() string {
	var b strings.Builder
	b.WriteString("IP                                            MAC                 Bridge\n")
	b.WriteString("==========================================================================\n")
	for _, e := range c.nm.Entries() {
		fmt.Fprintf(&b, "%-46s%-20s%s\n", e.IP.Unmap().String(), e.MAC.String(), e.Bridge)
	}
	return b.String()
}

// Set installs a manual entry. hostOrIP may be an IPv6 literal, an IPv4
// literal or a hostname for the resolver. No mutation happens on error.
func (c *Control) Set(bridge, hostOrIP, macStr string) error {
	addr, err := c.resolver.LookupAddr(hostOrIP)
	if err != nil {
		return ErrBadAddress
	}

	mac, err := net.ParseMAC(macStr)
	if err != nil || len(mac) != 6 {
		return ErrBadMAC
	}

	c.nm.Upsert(bridge, addr, mac)
	return nil
}

// Flush drops every entry.
func (c *Control) Flush() {
	c.nm.Flush()
}

// RegisterCommands exposes the cache over the admin command dispatcher.
func (c *Control) RegisterCommands(d Dispatcher) {
	d.Register("tnl/neigh/show", "", 0, 0, func([]string) (string, error) {
		return c.Show(), nil
	})
	d.Register("tnl/neigh/set", "BRIDGE IP MAC", 3, 3, func(args []string) (string, error) {
		if err := c.Set(args[0], args[1], args[2]); err != nil {
			return "", err
		}
		return "OK", nil
	})
	d.Register("tnl/neigh/flush", "", 0, 0, func([]string) (string, error) {
		c.Flush()
		return "OK", nil
	})
}
