package clnet

import "github.com/q2net/clnet/netadr"

// ProtocolVersion is sent in connect and info requests.
const ProtocolVersion = 34

// PortServer is the default server port.
const PortServer = netadr.PortServer

// Client to server opcodes
const (
	ClcBad = iota
	ClcNop
	ClcMove
	ClcUserinfo
	ClcStringCmd
)

const (
	// ResendInterval is how long to wait for a challenge
	// before asking again, in milliseconds.
	ResendInterval = 3000

	// ReconnectBackdate moves the connect timer back on reconnect so
	// the first resend happens after ResendInterval-ReconnectBackdate.
	ReconnectBackdate = 1500

	// fireNow is a connect time that makes CheckForResend fire
	// on the next tick.
	fireNow = -99999

	// TimeoutThreshold is the number of consecutive timed out ticks
	// that end the session.
	TimeoutThreshold = 5

	// KeepaliveInterval is the longest time between two transmissions
	// on the reliable channel, in milliseconds.
	KeepaliveInterval = 1000

	// MaxServerNameLen is the longest server address kept.
	MaxServerNameLen = 255

	// MaxRconLen and MaxPacketLen cap the out-of-band datagrams built
	// by rcon and packet.
	MaxRconLen   = 1024
	MaxPacketLen = 2048

	// AddressBookSize is the number of address book slots pinged
	// by PingServers.
	AddressBookSize = 16
)
