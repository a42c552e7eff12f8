package snoop

import (
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// FlowFromPacket extracts the snoop-relevant fields from a captured packet.
// It returns false when the packet is neither an ARP reply nor a neighbor
// advertisement with a usable link-layer address.
func FlowFromPacket(pkt gopacket.Packet) (*Flow, bool) {
	if arpLayer := pkt.Layer(layers.LayerTypeARP); arpLayer != nil {
		arp := arpLayer.(*layers.ARP)
		if arp.Operation != layers.ARPReply {
			return nil, false
		}
		ip, ok := netip.AddrFromSlice(arp.SourceProtAddress)
		if !ok {
			return nil, false
		}
		return &Flow{
			EthernetType: layers.EthernetTypeARP,
			ARPSenderIP:  ip,
			ARPSenderHW:  net.HardwareAddr(arp.SourceHwAddress),
		}, true
	}

	ipv6Layer := pkt.Layer(layers.LayerTypeIPv6)
	naLayer := pkt.Layer(layers.LayerTypeICMPv6NeighborAdvertisement)
	if ipv6Layer == nil || naLayer == nil {
		return nil, false
	}
	ipv6 := ipv6Layer.(*layers.IPv6)
	na := naLayer.(*layers.ICMPv6NeighborAdvertisement)

	target, ok := netip.AddrFromSlice(na.TargetAddress)
	if !ok {
		return nil, false
	}

	var hw net.HardwareAddr
	for _, opt := range na.Options {
		if opt.Type == layers.ICMPv6OptTargetAddress && len(opt.Data) == 6 {
			hw = net.HardwareAddr(opt.Data)
		}
	}
	if hw == nil {
		// No target link-layer option; fall back to the Ethernet source.
		ethLayer := pkt.Layer(layers.LayerTypeEthernet)
		if ethLayer == nil {
			return nil, false
		}
		hw = ethLayer.(*layers.Ethernet).SrcMAC
	}

	src, _ := netip.AddrFromSlice(ipv6.SrcIP)
	dst, _ := netip.AddrFromSlice(ipv6.DstIP)
	return &Flow{
		EthernetType: layers.EthernetTypeIPv6,
		IPProto:      layers.IPProtocolICMPv6,
		IPv6Src:      src,
		IPv6Dst:      dst,
		TPSrc:        uint16(layers.ICMPv6TypeNeighborAdvertisement),
		NDTarget:     target,
		NDTargetHW:   hw,
	}, true
}
