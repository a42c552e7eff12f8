// Package prober keeps soon-to-expire tunnel neighbors warm. A short ping
// makes the peer talk, and the resulting ARP/NA replies are snooped back
// into the cache; the cache itself never sends resolution requests.
package prober

import (
	"context"
	"net/netip"
	"time"

	"github.com/go-ping/ping"

	"github.com/hostinger/tnlneigh/internal/logger"
	"github.com/hostinger/tnlneigh/internal/neighbor"
)

type Prober struct {
	nm       *neighbor.Manager
	interval time.Duration
	window   time.Duration
	timeNow  func() time.Time
}

func New(nm *neighbor.Manager) *Prober {
	return &Prober{
		nm:       nm,
		interval: 1 * time.Minute,
		window:   2 * time.Minute,
		timeNow:  time.Now,
	}
}

// Run pings entries close to expiry once per interval until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, e := range p.expiring(p.timeNow()) {
				go pingOnce(e.IP)
			}
		}
	}
}

// expiring returns the entries whose expiry falls within the probe window.
func (p *Prober) expiring(now time.Time) []neighbor.Entry {
	deadline := now.Add(p.window)
	var out []neighbor.Entry
	for _, e := range p.nm.Entries() {
		if !e.Expires.After(deadline) {
			out = append(out, e)
		}
	}
	return out
}

func pingOnce(ip netip.Addr) {
	pinger, err := ping.NewPinger(ip.Unmap().String())
	if err != nil {
		logger.Debug("[Prober] %s: %v", ip, err)
		return
	}
	pinger.SetPrivileged(true)
	pinger.Count = 1
	pinger.Timeout = 2 * time.Second

	if err := pinger.Run(); err != nil {
		logger.Debug("[Prober] ping %s failed: %v", ip.Unmap(), err)
	}
}
