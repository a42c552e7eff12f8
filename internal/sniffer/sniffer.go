package sniffer

import (
	"context"
	"net"
	"os"
	"regexp"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
	"github.com/vishvananda/netlink"

	"github.com/hostinger/tnlneigh/internal/logger"
	"github.com/hostinger/tnlneigh/internal/snoop"
)

// bpfFilter matches the two snooped traffic classes: ARP, and ICMPv6
// neighbor advertisements (type 136 at the start of the ICMPv6 header).
const bpfFilter = "arp or (icmp6 and ip6[40] == 136)"

const rescanInterval = 30 * time.Second

type SnifferInfo struct {
	CancelFunc context.CancelFunc
	StartedAt  time.Time
}

// Manager runs one capture goroutine per matched bridge interface and
// feeds every snooped reply into the tunnel neighbor cache.
type Manager struct {
	snooper *snoop.Snooper
	pattern *regexp.Regexp

	mu     sync.Mutex
	active map[string]SnifferInfo
}

func NewManager(snooper *snoop.Snooper, pattern string) (*Manager, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &Manager{
		snooper: snooper,
		pattern: re,
		active:  make(map[string]SnifferInfo),
	}, nil
}

func (m *Manager) ListActiveSniffers() map[string]time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[string]time.Time)
	for iface, info := range m.active {
		result[iface] = info.StartedAt
	}
	return result
}

func (m *Manager) handlePacket(pkt gopacket.Packet, sniffIface string) {
	flow, ok := snoop.FlowFromPacket(pkt)
	if !ok {
		return
	}

	var err error
	if flow.EthernetType == layers.EthernetTypeARP {
		_, err = m.snooper.SnoopARP(flow, sniffIface)
		if err == nil {
			logger.Debug("[Sniffer-Event] [%s] Learned %s → %s from ARP", sniffIface, flow.ARPSenderIP, flow.ARPSenderHW)
		}
	} else {
		_, err = m.snooper.SnoopND(flow, sniffIface)
		if err == nil {
			logger.Debug("[Sniffer-Event] [%s] Learned %s → %s from NA", sniffIface, flow.NDTarget, flow.NDTargetHW)
		}
	}
	if err != nil {
		logger.Debug("[Sniffer-Event] [%s] Skipping packet: %v", sniffIface, err)
	}
}

func (m *Manager) sniffWithContext(ctx context.Context, sniffIface string) {
	for attempt := 0; attempt < 10; attempt++ {
		link, err := netlink.LinkByName(sniffIface)
		if err == nil && (link.Attrs().Flags&net.FlagUp) != 0 {
			break
		}
		logger.Info("[Sniffer-Event] Waiting for %s to become UP... (%d/10)", sniffIface, attempt+1)
		select {
		case <-ctx.Done():
			logger.Info("[Sniffer-Event] Aborting sniffer start on %s — context cancelled", sniffIface)
			return
		case <-time.After(1 * time.Second):
		}
	}

	handle, err := pcap.OpenLive(sniffIface, 1600, true, pcap.BlockForever)
	if err != nil {
		logger.Error("[Sniffer-Event] Error opening interface %s: %v", sniffIface, err)
		return
	}
	defer handle.Close()

	if err := handle.SetBPFFilter(bpfFilter); err != nil {
		logger.Error("[Sniffer-Event] Error setting BPF filter on %s: %v", sniffIface, err)
		return
	}

	logger.Info("[Sniffer-Event] Listening for ARP/NA packets on %s", sniffIface)
	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetChan := packetSource.Packets()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[Sniffer-Event] Stopping sniffer on %s", sniffIface)
			return
		case pkt := <-packetChan:
			if pkt == nil {
				return
			}
			m.handlePacket(pkt, sniffIface)
		}
	}
}

func (m *Manager) matchingInterfaces() []string {
	entries, err := os.ReadDir("/sys/class/net/")
	if err != nil {
		logger.Fatal("[Sniffer-Event] Failed to list interfaces: %v", err)
	}

	var ifaces []string
	for _, entry := range entries {
		if m.pattern.MatchString(entry.Name()) {
			ifaces = append(ifaces, entry.Name())
		}
	}
	return ifaces
}

// Run scans for matching interfaces every 30 seconds, starting a sniffer
// for each new one and stopping sniffers whose interface went away.
func (m *Manager) Run() {
	logger.Info("Starting ARP/NA sniffer. Scanning for %s interfaces every 30 seconds...", m.pattern)

	for {
		currentSet := make(map[string]bool)
		for _, sniffIface := range m.matchingInterfaces() {
			currentSet[sniffIface] = true
		}

		for sniffIface := range currentSet {
			m.mu.Lock()
			_, exists := m.active[sniffIface]
			m.mu.Unlock()
			if !exists {
				logger.Info("[Sniffer-Event] New interface detected: %s — starting sniffer", sniffIface)
				ctx, cancel := context.WithCancel(context.Background())
				m.mu.Lock()
				m.active[sniffIface] = SnifferInfo{
					CancelFunc: cancel,
					StartedAt:  time.Now(),
				}
				m.mu.Unlock()
				go m.sniffWithContext(ctx, sniffIface)
			}
		}

		m.mu.Lock()
		for sniffIface, info := range m.active {
			if !currentSet[sniffIface] {
				logger.Info("[Sniffer-Event] Interface removed: %s — stopping sniffer", sniffIface)
				info.CancelFunc()
				delete(m.active, sniffIface)
			}
		}
		m.mu.Unlock()

		time.Sleep(rescanInterval)
	}
}
