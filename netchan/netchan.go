// Package netchan implements the sequenced, reliable channel that
// carries in-band traffic between the client and the server.
//
// Every sequenced datagram starts with two 32-bit words:
//
//	sequence     | reliable bit (1<<31)
//	acknowledged | reliable ack bit (1<<31)
//
// Datagrams sent by the client additionally carry a 16-bit qport after
// the header so the server can tell clients behind the same NAT apart.
// A reliable payload is retransmitted until the peer acknowledges it by
// flipping its reliable ack bit; there is at most one reliable payload
// in flight.
package netchan

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/q2net/clnet/msg"
	"github.com/q2net/clnet/netadr"
)

const (
	// MaxMsgLen is the largest datagram the channel will build.
	MaxMsgLen = 1400

	// HeaderLen is the length of the sequenced header without qport.
	HeaderLen = 8

	// OOBMarker is the value of the first four bytes of every
	// out-of-band datagram.
	OOBMarker uint32 = 0xffffffff

	reliableBit = 1 << 31
)

// ErrOverflow is returned by Transmit when the reliable
// message buffer has overflowed.
var ErrOverflow = errors.New("outgoing message overflow")

// A Sender sends a raw datagram.
type Sender interface {
	SendTo(data []byte, to netadr.Addr) error
}

// A Channel is the reliable channel to a single remote address.
type Channel struct {
	sock Sender

	RemoteAddr netadr.Addr
	QPort      uint16

	// LastReceived and LastSent are in milliseconds of client time.
	LastReceived int64
	LastSent     int64

	// Dropped is the number of datagrams lost before the last
	// accepted one.
	Dropped int

	incomingSequence             uint32
	incomingAcknowledged         uint32
	incomingReliableAcknowledged uint32
	incomingReliableSequence     uint32

	outgoingSequence     uint32
	reliableSequence     uint32
	lastReliableSequence uint32

	// Message accumulates reliable data until the next Transmit
	// that is allowed to start a reliable payload.
	Message *msg.Buffer

	reliable []byte
}

// Setup binds a new Channel to addr.
func Setup(sock Sender, addr netadr.Addr, qport uint16, now int64) *Channel {
	return &Channel{
		sock:             sock,
		RemoteAddr:       addr,
		QPort:            qport,
		LastReceived:     now,
		outgoingSequence: 1,
		Message:          msg.NewBuffer(MaxMsgLen - 16),
	}
}

// OutgoingSequence returns the sequence number of the next datagram.
func (c *Channel) OutgoingSequence() uint32 { return c.outgoingSequence }

// IncomingSequence returns the sequence number of the last
// accepted datagram.
func (c *Channel) IncomingSequence() uint32 { return c.incomingSequence }

// needReliable reports whether the next datagram has to carry
// the reliable payload.
func (c *Channel) needReliable() bool {
	// the peer has seen a datagram sent after our last reliable one
	// without acknowledging it, so it was lost
	if c.incomingAcknowledged > c.lastReliableSequence &&
		c.incomingReliableAcknowledged != c.reliableSequence {
		return true
	}

	return len(c.reliable) == 0 && c.Message.Len() > 0
}

// Transmit sends data unreliably, prefixed with the reliable payload
// if one needs to be (re)sent. data may be nil to send only the header
// and reliable data.
func (c *Channel) Transmit(data []byte, now int64) error {
	if c.Message.Overflowed() {
		return ErrOverflow
	}

	sendReliable := c.needReliable()

	if len(c.reliable) == 0 && c.Message.Len() > 0 {
		c.reliable = append(c.reliable[:0], c.Message.Bytes()...)
		c.Message.Clear()
		c.reliableSequence ^= 1
	}

	w1 := c.outgoingSequence &^ reliableBit
	if sendReliable {
		w1 |= reliableBit
	}

	w2 := (c.incomingSequence &^ reliableBit) | c.incomingReliableSequence<<31

	c.outgoingSequence++
	c.LastSent = now

	pkt := msg.NewBuffer(MaxMsgLen)
	pkt.WriteLong(w1)
	pkt.WriteLong(w2)
	pkt.WriteShort(c.QPort)

	if sendReliable {
		if _, err := pkt.Write(c.reliable); err != nil {
			return err
		}
		c.lastReliableSequence = c.outgoingSequence
	}

	// unreliable data is dropped if it does not fit after the reliable part
	if len(data) > 0 && pkt.Len()+len(data) <= pkt.Max() {
		pkt.Write(data)
	}

	if err := c.sock.SendTo(pkt.Bytes(), c.RemoteAddr); err != nil {
		return errors.Wrapf(err, "transmit to %s failed", c.RemoteAddr)
	}

	return nil
}

// Process runs a received sequenced datagram through the duplicate and
// ordering filter. It returns the payload following the header and
// whether the datagram was accepted.
func (c *Channel) Process(data []byte, now int64) ([]byte, bool) {
	r := msg.NewReader(data)

	seq, err := r.ReadLong()
	if err != nil {
		return nil, false
	}

	ack, err := r.ReadLong()
	if err != nil {
		return nil, false
	}

	reliableMessage := seq >> 31
	reliableAck := ack >> 31

	seq &^= reliableBit
	ack &^= reliableBit

	// duplicated or out of order
	if seq <= c.incomingSequence {
		return nil, false
	}

	c.Dropped = int(seq - (c.incomingSequence + 1))

	// the reliable payload got through
	if reliableAck == c.reliableSequence {
		c.reliable = c.reliable[:0]
	}

	c.incomingSequence = seq
	c.incomingAcknowledged = ack
	c.incomingReliableAcknowledged = reliableAck
	if reliableMessage != 0 {
		c.incomingReliableSequence ^= 1
	}

	c.LastReceived = now

	return r.Rest(), true
}

// OutOfBand sends data to addr framed as a connectionless datagram.
func OutOfBand(sock Sender, addr netadr.Addr, data []byte) error {
	pkt := make([]byte, 4+len(data))
	pkt[0], pkt[1], pkt[2], pkt[3] = 0xff, 0xff, 0xff, 0xff
	copy(pkt[4:], data)

	return sock.SendTo(pkt, addr)
}

// OutOfBandPrint formats and sends a connectionless text datagram.
func OutOfBandPrint(sock Sender, addr netadr.Addr, format string, a ...interface{}) error {
	return OutOfBand(sock, addr, []byte(fmt.Sprintf(format, a...)))
}

// IsOutOfBand reports whether data starts with the connectionless marker.
func IsOutOfBand(data []byte) bool {
	return len(data) >= 4 &&
		data[0] == 0xff && data[1] == 0xff && data[2] == 0xff && data[3] == 0xff
}
