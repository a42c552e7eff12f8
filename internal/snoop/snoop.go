// Package snoop derives tunnel neighbor cache entries from observed
// address-resolution replies: ARP for IPv4 and neighbor advertisements for
// IPv6. It is strictly passive; nothing here transmits.
package snoop

import (
	"errors"

	"github.com/google/gopacket/layers"

	"github.com/hostinger/tnlneigh/internal/neighbor"
)

// ErrInvalidPacket reports that an observed packet does not have the shape
// the snoop path expects. It is a classification mismatch, not a fault;
// callers simply skip the cache update for that packet.
var ErrInvalidPacket = errors.New("packet does not match snooped protocol")

// Snooper feeds observed resolution traffic into the neighbor cache.
type Snooper struct {
	nm *neighbor.Manager
}

func NewSnooper(nm *neighbor.Manager) *Snooper {
	return &Snooper{nm: nm}
}

// SnoopARP ingests one ARP packet observed on bridge, learning the sender
// IP to sender MAC mapping. The returned mask names the fields any derived
// flow rule must match exactly.
func (s *Snooper) SnoopARP(f *Flow, bridge string) (FieldMask, error) {
	if f.EthernetType != layers.EthernetTypeARP {
		return 0, ErrInvalidPacket
	}

	s.nm.Upsert(bridge, f.ARPSenderIP, f.ARPSenderHW)
	return MatchIPProto | MatchARPSenderIP | MatchARPSenderHW, nil
}

// SnoopND ingests one IPv6 neighbor advertisement observed on bridge,
// learning the target address to target link-layer address mapping.
func (s *Snooper) SnoopND(f *Flow, bridge string) (FieldMask, error) {
	if f.EthernetType != layers.EthernetTypeIPv6 ||
		f.IPProto != layers.IPProtocolICMPv6 ||
		f.TPDst != 0 ||
		f.TPSrc != uint16(layers.ICMPv6TypeNeighborAdvertisement) {
		return 0, ErrInvalidPacket
	}

	s.nm.Upsert(bridge, f.NDTarget, f.NDTargetHW)
	return MatchIPv6Src | MatchIPv6Dst | MatchNDTarget | MatchNDTargetHW, nil
}
