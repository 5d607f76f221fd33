package transport

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/q2net/clnet/netadr"
)

func TestLoopback(t *testing.T) {
	clt, srv := NewLoopback()

	_, ok := srv.Recv()
	assert.False(t, ok)

	require.NoError(t, clt.SendTo([]byte("getchallenge"), netadr.LoopbackAddr))
	dg, ok := srv.Recv()
	require.True(t, ok)
	assert.Equal(t, []byte("getchallenge"), dg.Data)
	assert.Equal(t, netadr.LoopbackAddr, dg.From)

	assert.ErrorIs(t, clt.SendTo(nil, netadr.BroadcastAddr(1)), ErrUnsupported)

	for i := 0; i < LoopbackQueueLen+5; i++ {
		require.NoError(t, srv.SendTo([]byte{byte(i)}, netadr.LoopbackAddr))
	}
	n := 0
	for {
		if _, ok := clt.Recv(); !ok {
			break
		}
		n++
	}
	assert.Equal(t, LoopbackQueueLen, n)

	require.NoError(t, clt.Close())
	assert.ErrorIs(t, clt.SendTo(nil, netadr.LoopbackAddr), ErrClosed)
}

func TestUDPSendRecv(t *testing.T) {
	clt, srv := NewLoopback()

	u, err := ListenUDP(UDPConfig{Loopback: clt})
	require.NoError(t, err)
	defer u.Close()

	self := netadr.FromUDP(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: u.Port()})
	require.NoError(t, u.SendTo([]byte("ping"), self))

	var dg Datagram
	require.Eventually(t, func() bool {
		var ok bool
		dg, ok = u.Recv()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []byte("ping"), dg.Data)
	assert.Equal(t, self, dg.From)

	// loopback datagrams come out of the same Recv
	require.NoError(t, srv.SendTo([]byte("ack"), netadr.LoopbackAddr))
	dg, ok := u.Recv()
	require.True(t, ok)
	assert.Equal(t, netadr.LoopbackAddr, dg.From)

	require.NoError(t, u.SendTo([]byte("x"), netadr.LoopbackAddr))
	_, ok = srv.Recv()
	assert.True(t, ok)

	assert.ErrorIs(t, u.SendTo(nil, netadr.BroadcastIPXAddr(netadr.PortServer)), ErrUnsupported)

	require.NoError(t, u.Close())
	assert.ErrorIs(t, u.SendTo(nil, self), ErrClosed)
}
