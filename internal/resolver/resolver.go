// Package resolver maps admin-supplied host arguments to addresses: IPv6
// literals, IPv4 literals, or DNS names. Hostname results are held in a
// small TTL cache so repeated set commands don't re-query.
package resolver

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/projectdiscovery/gcache"
)

const (
	cacheSize     = 256
	cacheTTL      = 5 * time.Minute
	lookupTimeout = 3 * time.Second
)

// Cached resolves host arguments, caching DNS answers.
type Cached struct {
	cache  gcache.Cache[string, netip.Addr]
	lookup func(ctx context.Context, host string) ([]netip.Addr, error)
}

func New() *Cached {
	return &Cached{
		cache: gcache.New[string, netip.Addr](cacheSize).
			LRU().
			Expiration(cacheTTL).
			Build(),
		lookup: func(ctx context.Context, host string) ([]netip.Addr, error) {
			return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
		},
	}
}

// LookupAddr returns the address for host. Literals bypass DNS and the
// cache; zones are dropped since cache keys carry none.
func (r *Cached) LookupAddr(host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr.WithZone(""), nil
	}

	if addr, err := r.cache.Get(host); err == nil {
		return addr, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()
	addrs, err := r.lookup(ctx, host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve %q: %w", host, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("resolve %q: no addresses", host)
	}

	_ = r.cache.Set(host, addrs[0])
	return addrs[0], nil
}
