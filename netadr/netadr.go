// Package netadr implements the transport endpoint type shared by the
// client session, the reliable channel and the datagram socket.
package netadr

import (
	"net"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// PortServer is the port used when an address string does not name one.
const PortServer = 27910

// ErrBadAddress is returned for address strings that cannot be resolved.
var ErrBadAddress = errors.New("bad address")

// Type tags the kind of endpoint an Addr refers to.
type Type uint8

const (
	// Loopback is the in-process host. It has no IP or port.
	Loopback Type = iota
	Broadcast
	IP
	IPX
	BroadcastIPX
	IP6
	Multicast6
)

var typeNames = [...]string{
	Loopback:     "loopback",
	Broadcast:    "broadcast",
	IP:           "ip",
	IPX:          "ipx",
	BroadcastIPX: "broadcast_ipx",
	IP6:          "ip6",
	Multicast6:   "multicast6",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}

	return "type(" + strconv.Itoa(int(t)) + ")"
}

// An Addr is a transport endpoint. Addrs are comparable with ==.
type Addr struct {
	Type Type
	IP   [16]byte
	Port uint16
}

// LoopbackAddr is the address of the in-process host.
var LoopbackAddr = Addr{Type: Loopback}

// BroadcastAddr returns the IPv4 limited broadcast address on port.
func BroadcastAddr(port uint16) Addr {
	a := Addr{Type: Broadcast, Port: port}
	copy(a.IP[:], net.IPv4bcast.To16())
	return a
}

// BroadcastIPXAddr returns the IPX broadcast address on port.
func BroadcastIPXAddr(port uint16) Addr {
	return Addr{Type: BroadcastIPX, Port: port}
}

// MulticastAddr returns the IPv6 multicast group address on port.
func MulticastAddr(group net.IP, port uint16) Addr {
	a := Addr{Type: Multicast6, Port: port}
	copy(a.IP[:], group.To16())
	return a
}

// FromUDP converts a UDP socket address.
func FromUDP(u *net.UDPAddr) Addr {
	a := Addr{Port: uint16(u.Port)}
	if ip4 := u.IP.To4(); ip4 != nil {
		a.Type = IP
	} else {
		a.Type = IP6
	}
	copy(a.IP[:], u.IP.To16())

	return a
}

// UDPAddr returns the UDP socket address of a, or nil if a
// cannot be reached over UDP.
func (a Addr) UDPAddr() *net.UDPAddr {
	switch a.Type {
	case IP, IP6, Broadcast, Multicast6:
		return &net.UDPAddr{IP: a.NetIP(), Port: int(a.Port)}
	}

	return nil
}

// NetIP returns the IP bytes of a in their shortest form.
func (a Addr) NetIP() net.IP {
	ip := net.IP(append([]byte(nil), a.IP[:]...))
	if ip4 := ip.To4(); ip4 != nil && (a.Type == IP || a.Type == Broadcast) {
		return ip4
	}

	return ip
}

// Equal reports whether a and b name the same endpoint.
func (a Addr) Equal(b Addr) bool {
	if a.Type != b.Type {
		return false
	}

	if a.Type == Loopback {
		return true
	}

	return a.IP == b.IP && a.Port == b.Port
}

// IsLocal reports whether a refers to this machine.
func (a Addr) IsLocal() bool {
	switch a.Type {
	case Loopback:
		return true
	case IP, IP6:
		return a.NetIP().IsLoopback()
	}

	return false
}

// WithDefaultPort returns a with port set to PortServer if it has none.
func (a Addr) WithDefaultPort() Addr {
	if a.Port == 0 && a.Type != Loopback {
		a.Port = PortServer
	}

	return a
}

func (a Addr) String() string {
	switch a.Type {
	case Loopback:
		return "loopback"
	case IPX, BroadcastIPX:
		return a.Type.String() + ":" + strconv.Itoa(int(a.Port))
	}

	return net.JoinHostPort(a.NetIP().String(), strconv.Itoa(int(a.Port)))
}

// A LookupFunc resolves a host name to its IP addresses.
type LookupFunc func(host string) ([]net.IP, error)

// Resolve parses s using DNS for host names.
func Resolve(s string) (Addr, error) {
	return ResolveWith(s, net.LookupIP)
}

// ResolveWith parses s, which is "localhost", "host", "host:port",
// "[ipv6]", "[ipv6]:port" or a bare IPv6 literal. A missing port is
// left at zero. Host names are resolved with lookup; IPv4 results
// are preferred.
func ResolveWith(s string, lookup LookupFunc) (Addr, error) {
	if s == "localhost" {
		return LoopbackAddr, nil
	}

	host, port, err := splitHostPort(s)
	if err != nil {
		return Addr{}, err
	}

	ip := net.ParseIP(host)
	if ip == nil {
		ips, err := lookup(host)
		if err != nil || len(ips) == 0 {
			return Addr{}, ErrBadAddress
		}

		ip = ips[0]
		for _, candidate := range ips {
			if candidate.To4() != nil {
				ip = candidate
				break
			}
		}
	}

	a := FromUDP(&net.UDPAddr{IP: ip, Port: int(port)})
	if ip.IsMulticast() && a.Type == IP6 {
		a.Type = Multicast6
	}

	return a, nil
}

func splitHostPort(s string) (string, uint16, error) {
	if s == "" {
		return "", 0, ErrBadAddress
	}

	var host, port string
	switch {
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		host = s[1 : len(s)-1]
	case strings.Count(s, ":") > 1 && !strings.HasPrefix(s, "["):
		host = s
	case strings.Contains(s, ":"):
		var err error
		host, port, err = net.SplitHostPort(s)
		if err != nil {
			return "", 0, ErrBadAddress
		}
	default:
		host = s
	}

	if host == "" {
		return "", 0, ErrBadAddress
	}

	if port == "" {
		return host, 0, nil
	}

	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return "", 0, ErrBadAddress
	}

	return host, uint16(p), nil
}
