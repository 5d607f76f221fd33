package netchan

import (
	"encoding/binary"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/q2net/clnet/netadr"
)

type sent struct {
	data []byte
	to   netadr.Addr
}

type recorder struct {
	sent []sent
}

func (r *recorder) SendTo(data []byte, to netadr.Addr) error {
	r.sent = append(r.sent, sent{data: append([]byte(nil), data...), to: to})
	return nil
}

func serverPkt(seq, ack uint32, payload string) []byte {
	b := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(b[0:4], seq)
	binary.LittleEndian.PutUint32(b[4:8], ack)
	copy(b[8:], payload)
	return b
}

var srvAddr = netadr.FromUDP(&net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: 27910})

func TestProcessRejectsDuplicates(t *testing.T) {
	c := Setup(&recorder{}, srvAddr, 1234, 0)

	payload, ok := c.Process(serverPkt(1, 0, "hello"), 10)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), payload)
	assert.Equal(t, int64(10), c.LastReceived)

	_, ok = c.Process(serverPkt(1, 0, "hello"), 20)
	assert.False(t, ok, "duplicate")
	assert.Equal(t, int64(10), c.LastReceived)

	_, ok = c.Process(serverPkt(4, 0, ""), 30)
	require.True(t, ok)
	assert.Equal(t, 2, c.Dropped)

	_, ok = c.Process(serverPkt(3, 0, ""), 40)
	assert.False(t, ok, "out of order")

	_, ok = c.Process([]byte{1, 2, 3}, 50)
	assert.False(t, ok, "runt")
}

func TestTransmitHeaderAndReliable(t *testing.T) {
	rec := &recorder{}
	c := Setup(rec, srvAddr, 0x1234, 0)

	require.NoError(t, c.Message.WriteByte(4))
	require.NoError(t, c.Message.WriteString("new"))
	require.NoError(t, c.Transmit([]byte{9}, 100))

	require.Len(t, rec.sent, 1)
	pkt := rec.sent[0].data
	assert.Equal(t, srvAddr, rec.sent[0].to)
	assert.Equal(t, uint32(1|reliableBit), binary.LittleEndian.Uint32(pkt[0:4]))
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(pkt[4:8]))
	assert.Equal(t, uint16(0x1234), binary.LittleEndian.Uint16(pkt[8:10]))
	assert.Equal(t, append([]byte{4}, "new\x00\x09"...), pkt[10:])
	assert.Zero(t, c.Message.Len())

	// the server has not acknowledged the reliable payload yet,
	// but it has not seen anything newer either: no resend
	require.NoError(t, c.Transmit(nil, 200))
	require.NoError(t, c.Transmit(nil, 210))
	assert.Zero(t, binary.LittleEndian.Uint32(rec.sent[1].data[0:4])&reliableBit)
	assert.Zero(t, binary.LittleEndian.Uint32(rec.sent[2].data[0:4])&reliableBit)

	// server acknowledges datagram 3 without flipping the reliable ack
	// bit: the reliable payload was lost and must be resent
	_, ok := c.Process(serverPkt(1, 3, ""), 250)
	require.True(t, ok)
	require.NoError(t, c.Transmit(nil, 300))
	resent := rec.sent[3].data
	assert.NotZero(t, binary.LittleEndian.Uint32(resent[0:4])&reliableBit)
	assert.Equal(t, append([]byte{4}, "new\x00"...), resent[10:])

	// server acknowledges with the reliable bit flipped
	_, ok = c.Process(serverPkt(2, 4|reliableBit, ""), 350)
	require.True(t, ok)
	require.NoError(t, c.Transmit(nil, 400))
	assert.Zero(t, binary.LittleEndian.Uint32(rec.sent[4].data[0:4])&reliableBit)
	assert.Len(t, rec.sent[4].data, 10)
}

func TestIncomingReliableIsAcknowledged(t *testing.T) {
	rec := &recorder{}
	c := Setup(rec, srvAddr, 1, 0)

	_, ok := c.Process(serverPkt(1|reliableBit, 0, "x"), 1)
	require.True(t, ok)
	require.NoError(t, c.Transmit(nil, 2))

	w2 := binary.LittleEndian.Uint32(rec.sent[0].data[4:8])
	assert.Equal(t, uint32(1|reliableBit), w2)
}

func TestTransmitOverflow(t *testing.T) {
	c := Setup(&recorder{}, srvAddr, 1, 0)
	_, err := c.Message.Write(make([]byte, MaxMsgLen))
	require.Error(t, err)
	assert.ErrorIs(t, c.Transmit(nil, 1), ErrOverflow)
}

func TestOutOfBand(t *testing.T) {
	rec := &recorder{}
	require.NoError(t, OutOfBandPrint(rec, srvAddr, "info %d", 34))

	require.Len(t, rec.sent, 1)
	assert.Equal(t, append([]byte{0xff, 0xff, 0xff, 0xff}, "info 34"...), rec.sent[0].data)
	assert.True(t, IsOutOfBand(rec.sent[0].data))
	assert.False(t, IsOutOfBand([]byte{0xff, 0xff, 0xff}))
	assert.False(t, IsOutOfBand(serverPkt(1, 0, "")))
}
