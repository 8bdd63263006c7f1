package kernel

import "encoding/binary"

// GuestMAC/GuestIP are this kernel's fixed network identity for the "udp
// echo" scenario (§8) - a QEMU user-mode networking guest address, chosen
// to match the host side's default ARP target.
var (
	GuestMAC = [6]byte{0x52, 0x54, 0x00, 0x12, 0x34, 0x56}
	GuestIP  = [4]byte{10, 0, 2, 15}
)

const (
	ethTypeARP  = 0x0806
	ethTypeIPv4 = 0x0800

	arpOpRequest = 1
	arpOpReply   = 2

	ipProtoUDP = 17

	udpEchoPort = 7

	netproSpinLimit = 1 << 16
)

// RunUDPEcho implements the "udp echo" scenario (§8): poll the network
// device for incoming frames, answering an ARP request for GuestIP with a
// reply and echoing any UDP datagram addressed to port 7 back to its
// sender with source and destination swapped, then emitting the scenario's
// diagnostic token once an echo has gone out. The IP/ARP protocol logic
// here is a thin consumer of NetService.Recv/Send (§1) - it never touches
// the VirtIO transport directly.
func RunUDPEcho(n *NetService) {
	echoed := false

	for i := 0; i < netproSpinLimit && !echoed; i++ {
		frame, ok := n.Recv()
		if !ok {
			continue
		}

		switch {
		case len(frame) >= 42 && beU16(frame[12:14]) == ethTypeARP:
			handleARP(n, frame)

		case len(frame) >= 14 && beU16(frame[12:14]) == ethTypeIPv4:
			if handleIPv4UDP(n, frame) {
				echoed = true
			}
		}
	}

	if echoed {
		Diag("NET: udp echo")
	}
}

func beU16(b []byte) uint16 { return binary.BigEndian.Uint16(b) }

// handleARP answers an ARP request for GuestIP in place, reusing frame's
// backing array for the reply (every field it doesn't overwrite - the
// Ethernet and ARP header sizes - is already correct after the swap).
func handleARP(n *NetService, frame []byte) {
	const (
		arpOff   = 14
		opOff    = arpOff + 6
		shaOff   = arpOff + 8
		spaOff   = shaOff + 6
		thaOff   = spaOff + 4
		tpaOff   = thaOff + 6
		arpFrame = tpaOff + 4
	)

	if len(frame) < arpFrame || beU16(frame[opOff:]) != arpOpRequest {
		return
	}
	if [4]byte{frame[tpaOff], frame[tpaOff+1], frame[tpaOff+2], frame[tpaOff+3]} != GuestIP {
		return
	}

	senderMAC := [6]byte{}
	copy(senderMAC[:], frame[shaOff:shaOff+6])
	senderIP := [4]byte{}
	copy(senderIP[:], frame[spaOff:spaOff+4])

	copy(frame[0:6], senderMAC[:]) // Ethernet dst = original sender
	copy(frame[6:12], GuestMAC[:]) // Ethernet src = us

	binary.BigEndian.PutUint16(frame[opOff:], arpOpReply)
	copy(frame[shaOff:shaOff+6], GuestMAC[:])
	copy(frame[spaOff:spaOff+4], GuestIP[:])
	copy(frame[thaOff:thaOff+6], senderMAC[:])
	copy(frame[tpaOff:tpaOff+4], senderIP[:])

	n.Send(frame[:arpFrame])
}

// handleIPv4UDP echoes a UDP datagram addressed to udpEchoPort back to its
// sender, swapping Ethernet/IP/UDP source and destination and recomputing
// the IPv4 header checksum; the UDP checksum is left zero (disabled, a
// conformant choice under RFC 768 for IPv4). Reports whether a datagram was
// echoed.
func handleIPv4UDP(n *NetService, frame []byte) bool {
	const ethHdr = 14

	if len(frame) < ethHdr+20 {
		return false
	}

	ipHdr := frame[ethHdr:]
	ihl := int(ipHdr[0]&0x0f) * 4
	if ihl < 20 || len(ipHdr) < ihl+8 || ipHdr[9] != ipProtoUDP {
		return false
	}

	udp := ipHdr[ihl:]
	dstPort := beU16(udp[2:4])
	if dstPort != udpEchoPort {
		return false
	}

	srcMAC := [6]byte{}
	copy(srcMAC[:], frame[6:12])
	srcIP := [4]byte{}
	copy(srcIP[:], ipHdr[12:16])
	srcPort := beU16(udp[0:2])

	copy(frame[0:6], srcMAC[:])
	copy(frame[6:12], GuestMAC[:])

	copy(ipHdr[12:16], GuestIP[:]) // IP src = us
	copy(ipHdr[16:20], srcIP[:])   // IP dst = original sender
	ipHdr[10], ipHdr[11] = 0, 0
	checksum := ipv4Checksum(ipHdr[:ihl])
	binary.BigEndian.PutUint16(ipHdr[10:12], checksum)

	binary.BigEndian.PutUint16(udp[0:2], udpEchoPort) // UDP src port = us
	binary.BigEndian.PutUint16(udp[2:4], srcPort)     // UDP dst port = sender's
	udp[6], udp[7] = 0, 0                             // checksum disabled

	return n.Send(frame)
}

// ipv4Checksum computes the one's-complement checksum of an IPv4 header
// (RFC 791 §3.1), the field itself assumed already zeroed by the caller.
func ipv4Checksum(header []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(header); i += 2 {
		sum += uint32(beU16(header[i : i+2]))
	}
	if len(header)%2 == 1 {
		sum += uint32(header[len(header)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}
