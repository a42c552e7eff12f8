package snoop

import (
	"net"
	"net/netip"

	"github.com/google/gopacket/layers"
)

// FieldMask tells the caller which packet fields its flow classifier must
// treat as exact-match when installing a rule derived from a snooped
// packet.
type FieldMask uint16

const (
	MatchIPProto FieldMask = 1 << iota
	MatchARPSenderIP
	MatchARPSenderHW
	MatchIPv6Src
	MatchIPv6Dst
	MatchNDTarget
	MatchNDTargetHW
)

// Flow carries the already-parsed fields of one observed packet. For
// ICMPv6, TPSrc holds the message type and TPDst the code, following the
// transport-field convention of the flow extractor.
type Flow struct {
	EthernetType layers.EthernetType
	IPProto      layers.IPProtocol
	IPv6Src      netip.Addr
	IPv6Dst      netip.Addr
	TPSrc        uint16
	TPDst        uint16

	ARPSenderIP netip.Addr
	ARPSenderHW net.HardwareAddr

	NDTarget   netip.Addr
	NDTargetHW net.HardwareAddr
}
