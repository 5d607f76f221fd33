package transport

import (
	"sync"

	"github.com/q2net/clnet/netadr"
)

// LoopbackQueueLen is the number of datagrams a Loopback end buffers.
const LoopbackQueueLen = 32

// A Loopback is one end of an in-process datagram pipe. It is used to
// talk to a host running in the same process without touching the network.
type Loopback struct {
	in   chan Datagram
	peer *Loopback

	mu     sync.Mutex
	closed bool
}

// NewLoopback returns the two connected ends of a loopback pipe.
func NewLoopback() (*Loopback, *Loopback) {
	a := &Loopback{in: make(chan Datagram, LoopbackQueueLen)}
	b := &Loopback{in: make(chan Datagram, LoopbackQueueLen)}
	a.peer, b.peer = b, a

	return a, b
}

// SendTo queues data on the other end. A full queue drops the datagram
// like a congested network would.
func (l *Loopback) SendTo(data []byte, to netadr.Addr) error {
	if to.Type != netadr.Loopback {
		return ErrUnsupported
	}

	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return ErrClosed
	}

	dg := Datagram{Data: append([]byte(nil), data...), From: netadr.LoopbackAddr}
	select {
	case l.peer.in <- dg:
	default:
	}

	return nil
}

// Recv returns the next queued datagram.
func (l *Loopback) Recv() (Datagram, bool) {
	select {
	case dg := <-l.in:
		return dg, true
	default:
		return Datagram{}, false
	}
}

// Close makes further sends fail.
func (l *Loopback) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	return nil
}
