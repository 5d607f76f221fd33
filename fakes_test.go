package clnet

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/q2net/clnet/msg"
	"github.com/q2net/clnet/netadr"
	"github.com/q2net/clnet/transport"
)

const oob = "\xff\xff\xff\xff"

var (
	serverAddr = netadr.FromUDP(&net.UDPAddr{IP: net.ParseIP("192.0.2.10"), Port: 27910})
	otherAddr  = netadr.FromUDP(&net.UDPAddr{IP: net.ParseIP("198.51.100.3"), Port: 27910})
)

type sentDatagram struct {
	data []byte
	to   netadr.Addr
}

type fakeSocket struct {
	in   []transport.Datagram
	sent []sentDatagram
}

func (s *fakeSocket) SendTo(data []byte, to netadr.Addr) error {
	s.sent = append(s.sent, sentDatagram{data: append([]byte(nil), data...), to: to})
	return nil
}

func (s *fakeSocket) Recv() (transport.Datagram, bool) {
	if len(s.in) == 0 {
		return transport.Datagram{}, false
	}

	dg := s.in[0]
	s.in = s.in[1:]
	return dg, true
}

func (s *fakeSocket) Close() error { return nil }

func (s *fakeSocket) deliver(from netadr.Addr, data []byte) {
	s.in = append(s.in, transport.Datagram{Data: data, From: from})
}

func (s *fakeSocket) oob(from netadr.Addr, text string) {
	s.deliver(from, []byte(oob+text))
}

func (s *fakeSocket) last(t *testing.T) sentDatagram {
	require.NotEmpty(t, s.sent, "nothing sent")
	return s.sent[len(s.sent)-1]
}

// serverPacket builds a sequenced datagram as the server sends it.
func serverPacket(seq, ack uint32, payload string) []byte {
	b := make([]byte, 8, 8+len(payload))
	binary.LittleEndian.PutUint32(b, seq)
	binary.LittleEndian.PutUint32(b[4:], ack)
	return append(b, payload...)
}

type fakeClock struct{ now int64 }

func (c *fakeClock) clock() int64 { return c.now }

func testResolve(s string) (netadr.Addr, error) {
	return netadr.ResolveWith(s, func(host string) ([]net.IP, error) {
		if host == "example" {
			return []net.IP{net.ParseIP("192.0.2.10")}, nil
		}
		return nil, netadr.ErrBadAddress
	})
}

type fakeHost struct {
	state      ServerState
	maxClients int
	shutdowns  []string
}

func (h *fakeHost) State() ServerState { return h.state }
func (h *fakeHost) MaxClients() int    { return h.maxClients }
func (h *fakeHost) Shutdown(message string) {
	h.shutdowns = append(h.shutdowns, message)
	h.state = ServerDead
}

type fakeDownloader struct {
	inProgress bool
	cancels    int
	url        string
	referer    string
}

func (d *fakeDownloader) InProgress() bool { return d.inProgress }
func (d *fakeDownloader) Cancel()          { d.cancels++ }
func (d *fakeDownloader) SetServer(url, referer string) {
	d.url = url
	d.referer = referer
}

type fakeScreen struct {
	begins, ends, resets int
}

func (s *fakeScreen) BeginLoadingPlaque() { s.begins++ }
func (s *fakeScreen) EndLoadingPlaque()   { s.ends++ }
func (s *fakeScreen) Reset()              { s.resets++ }

type fakeDemo struct {
	recording bool
	stops     int
	frames    int
	start     int64
	timedemo  bool
}

func (d *fakeDemo) Recording() bool { return d.recording }
func (d *fakeDemo) StopRecording() {
	d.recording = false
	d.stops++
}
func (d *fakeDemo) Timedemo() (int, int64, bool) { return d.frames, d.start, d.timedemo }

type fakeInput struct{ clears int }

func (in *fakeInput) ClearKeys() { in.clears++ }

type testEnv struct {
	c     *Client
	sock  *fakeSocket
	clk   *fakeClock
	out   *bytes.Buffer
	logs  *test.Hook
	cfg   *Config
	msgs  [][]byte
	infos []string
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.QPort = 1234
	cfg.Timeout = 1
	cfg.Userinfo = map[string]string{"name": "player", "skin": "male/grunt"}
	return cfg
}

func newTestEnv(t *testing.T, cfgs ...Cfg) *testEnv {
	t.Helper()

	l, hook := test.NewNullLogger()
	l.SetLevel(logrus.DebugLevel)

	env := &testEnv{
		sock: &fakeSocket{},
		clk:  &fakeClock{},
		out:  &bytes.Buffer{},
		logs: hook,
		cfg:  testConfig(),
	}

	opts := append([]Cfg{
		WithConfig(env.cfg),
		WithSocket(env.sock),
		WithClock(env.clk.clock),
		WithOutput(env.out),
		WithResolver(testResolve),
		WithLogger(l),
	}, cfgs...)

	c, err := NewClient(opts...)
	require.NoError(t, err)

	c.RegisterOnServerMessage(func(_ *Client, r *msg.Reader) {
		env.msgs = append(env.msgs, append([]byte(nil), r.Rest()...))
	})
	c.RegisterOnStatusMessage(func(_ *Client, _ netadr.Addr, info string) {
		env.infos = append(env.infos, info)
	})

	env.c = c
	return env
}

// connect runs the handshake with serverAddr at time 100 and flushes
// the "new" request.
func (env *testEnv) connect(t *testing.T) {
	t.Helper()

	require.NoError(t, env.c.Connect("example:27910"))

	env.clk.now = 100
	env.c.Frame()

	env.sock.oob(serverAddr, "challenge 42")
	env.sock.oob(serverAddr, "client_connect")
	env.c.Frame()

	require.Equal(t, StateConnected, env.c.State())
	require.Zero(t, env.c.Netchan().Message.Len())
}
