// Package transport provides the datagram sockets the client reads
// from every tick. Reads never block: datagrams are queued by a
// background reader and drained with Recv.
package transport

import (
	"github.com/pkg/errors"

	"github.com/q2net/clnet/netadr"
)

// ErrUnsupported is returned when sending to an address type the
// socket cannot reach.
var ErrUnsupported = errors.New("address type not supported")

// ErrClosed is returned when sending on a closed socket.
var ErrClosed = errors.New("socket closed")

// A Datagram is a received datagram and its source address.
type Datagram struct {
	Data []byte
	From netadr.Addr
}

// A Socket sends datagrams and hands out received ones without blocking.
type Socket interface {
	SendTo(data []byte, to netadr.Addr) error

	// Recv returns the next queued datagram, or false if none is queued.
	Recv() (Datagram, bool)

	Close() error
}
