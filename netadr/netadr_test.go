package netadr

import (
	"net"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLookup(host string) ([]net.IP, error) {
	switch host {
	case "example":
		return []net.IP{net.ParseIP("2001:db8::1"), net.ParseIP("192.0.2.7")}, nil
	case "v6only":
		return []net.IP{net.ParseIP("2001:db8::2")}, nil
	}

	return nil, errors.New("no such host")
}

func TestResolveWith(t *testing.T) {
	tests := []struct {
		in   string
		want string
		typ  Type
		err  bool
	}{
		{in: "localhost", want: "loopback", typ: Loopback},
		{in: "192.0.2.1:27910", want: "192.0.2.1:27910", typ: IP},
		{in: "192.0.2.1", want: "192.0.2.1:0", typ: IP},
		{in: "example:27911", want: "192.0.2.7:27911", typ: IP},
		{in: "v6only", want: "[2001:db8::2]:0", typ: IP6},
		{in: "[::1]:5", want: "[::1]:5", typ: IP6},
		{in: "[ff12::666]", want: "[ff12::666]:0", typ: Multicast6},
		{in: "fe80::1", want: "[fe80::1]:0", typ: IP6},
		{in: "", err: true},
		{in: "nowhere:1", err: true},
		{in: "192.0.2.1:99999", err: true},
		{in: ":27910", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			a, err := ResolveWith(tt.in, fakeLookup)
			if tt.err {
				assert.ErrorIs(t, err, ErrBadAddress)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.typ, a.Type)
			assert.Equal(t, tt.want, a.String())
		})
	}
}

func TestEqual(t *testing.T) {
	a, err := ResolveWith("192.0.2.1:27910", fakeLookup)
	require.NoError(t, err)

	b := FromUDP(&net.UDPAddr{IP: net.IPv4(192, 0, 2, 1), Port: 27910})
	assert.True(t, a.Equal(b))
	assert.True(t, a == b)

	b.Port++
	assert.False(t, a.Equal(b))

	assert.True(t, LoopbackAddr.Equal(Addr{Type: Loopback, Port: 7}))
	assert.False(t, LoopbackAddr.Equal(a))
}

func TestIsLocal(t *testing.T) {
	assert.True(t, LoopbackAddr.IsLocal())
	assert.True(t, FromUDP(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)}).IsLocal())
	assert.True(t, FromUDP(&net.UDPAddr{IP: net.IPv6loopback}).IsLocal())
	assert.False(t, FromUDP(&net.UDPAddr{IP: net.IPv4(192, 0, 2, 1)}).IsLocal())
	assert.False(t, BroadcastAddr(PortServer).IsLocal())
}

func TestDefaultPort(t *testing.T) {
	a, err := ResolveWith("192.0.2.1", fakeLookup)
	require.NoError(t, err)
	assert.Equal(t, uint16(PortServer), a.WithDefaultPort().Port)
	assert.Equal(t, LoopbackAddr, LoopbackAddr.WithDefaultPort())

	u := BroadcastAddr(PortServer).UDPAddr()
	require.NotNil(t, u)
	assert.Equal(t, "255.255.255.255:27910", u.String())
	assert.Nil(t, BroadcastIPXAddr(PortServer).UDPAddr())
}
