package clnet

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/q2net/clnet/msg"
	"github.com/q2net/clnet/netadr"
	"github.com/q2net/clnet/netchan"
	"github.com/q2net/clnet/transport"
)

var (
	// ErrNotConnected is returned by operations that need a session.
	ErrNotConnected = errors.New("not connected")

	// ErrUsage is returned for calls with missing or extra arguments.
	ErrUsage = errors.New("wrong number of arguments")
)

// A Client owns the single connection of a game client to a server.
// All methods must be called from the goroutine that runs Frame.
type Client struct {
	cfg     *Config
	sock    transport.Socket
	log     logrus.FieldLogger
	out     io.Writer
	clock   Clock
	resolve func(string) (netadr.Addr, error)
	metrics *Metrics
	console *Console

	host       Host
	pauser     Pauser
	downloader Downloader
	screen     Screen
	sound      Sound
	demo       Demo
	input      Input

	onServerMsg []func(*Client, *msg.Reader)
	onStatus    []func(*Client, netadr.Addr, string)

	realtime int64
	state    State
	qport    uint16
	userGame string

	// pending connection
	serverName  string
	connectTime int64
	challenge   int
	attempt     uuid.UUID

	netchan      *netchan.Channel
	timeoutCount int

	pausedAtLoad bool

	// startup is set until the first level has been entered.
	startup bool
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithConfig sets the settings. The Config is saved on every disconnect.
func WithConfig(cfg *Config) Cfg {
	return func(c *Client) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.cfg = cfg
		return nil
	}
}

// WithSocket sets the socket the Client sends and receives on.
func WithSocket(sock transport.Socket) Cfg {
	return func(c *Client) error {
		c.sock = sock
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Cfg {
	return func(c *Client) error {
		c.log = l
		return nil
	}
}

// WithOutput sets where console messages are printed. Defaults to stdout.
func WithOutput(w io.Writer) Cfg {
	return func(c *Client) error {
		c.out = w
		return nil
	}
}

// WithClock sets the time source.
func WithClock(clock Clock) Cfg {
	return func(c *Client) error {
		c.clock = clock
		return nil
	}
}

// WithResolver sets the function used to turn server names into addresses.
func WithResolver(resolve func(string) (netadr.Addr, error)) Cfg {
	return func(c *Client) error {
		c.resolve = resolve
		return nil
	}
}

// WithMetrics sets the metrics the Client updates.
func WithMetrics(m *Metrics) Cfg {
	return func(c *Client) error {
		c.metrics = m
		return nil
	}
}

// WithHost sets the server that may run in the same process.
func WithHost(h Host) Cfg {
	return func(c *Client) error {
		c.host = h
		return nil
	}
}

// WithPauser sets the pause flag of the local simulation.
func WithPauser(p Pauser) Cfg {
	return func(c *Client) error {
		c.pauser = p
		return nil
	}
}

// WithDownloader enables downloads from servers that announce
// a download server.
func WithDownloader(d Downloader) Cfg {
	return func(c *Client) error {
		c.downloader = d
		return nil
	}
}

// WithScreen sets the renderer hooks.
func WithScreen(s Screen) Cfg {
	return func(c *Client) error {
		c.screen = s
		return nil
	}
}

// WithSound sets the audio hooks.
func WithSound(s Sound) Cfg {
	return func(c *Client) error {
		c.sound = s
		return nil
	}
}

// WithDemo sets the demo recorder.
func WithDemo(d Demo) Cfg {
	return func(c *Client) error {
		c.demo = d
		return nil
	}
}

// WithInput sets the key state.
func WithInput(in Input) Cfg {
	return func(c *Client) error {
		c.input = in
		return nil
	}
}

// NewClient creates a disconnected Client with the given configuration.
// A socket is required.
func NewClient(cfgs ...Cfg) (*Client, error) {
	c := &Client{
		cfg:     DefaultConfig(),
		log:     logger,
		out:     os.Stdout,
		resolve: netadr.Resolve,
		host:    nopHost{},
		pauser:  &flagPauser{},
		screen:  nopScreen{},
		sound:   nopSound{},
		demo:    nopDemo{},
		input:   nopInput{},
		startup: true,
	}

	for _, cfg := range cfgs {
		if err := cfg(c); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}

	if c.sock == nil {
		return nil, errors.New("client needs a socket")
	}

	if c.clock == nil {
		c.clock = NewClock()
	}

	if c.metrics == nil {
		c.metrics = NewMetrics(nil)
	}

	c.qport = uint16(c.cfg.QPort)
	if c.qport == 0 {
		c.qport = uint16(rand.Intn(0xffff) + 1)
	}

	c.userGame = c.cfg.Game
	c.realtime = c.clock()

	c.console = NewConsole(c.out)
	c.console.SetFallback(c.ForwardToServer)
	c.registerCommands()

	c.setState(StateDisconnected)

	return c, nil
}

// State returns the connection state.
func (c *Client) State() State { return c.state }

// ServerName returns the server the Client connects or was last
// connected to.
func (c *Client) ServerName() string { return c.serverName }

// QPort returns the port number sent to identify the Client.
func (c *Client) QPort() uint16 { return c.qport }

// Netchan returns the channel to the server, nil without a session.
func (c *Client) Netchan() *netchan.Channel { return c.netchan }

// TimeoutCount returns the number of consecutive timed out ticks.
func (c *Client) TimeoutCount() int { return c.timeoutCount }

// PausedAtLoad reports whether the Client paused the local game
// while connecting to it.
func (c *Client) PausedAtLoad() bool { return c.pausedAtLoad }

// Console returns the command console of the Client.
func (c *Client) Console() *Console { return c.console }

// Config returns the settings of the Client.
func (c *Client) Config() *Config { return c.cfg }

// Realtime returns the client time of the current tick in milliseconds.
func (c *Client) Realtime() int64 { return c.realtime }

// Printf prints a message to the console.
func (c *Client) Printf(format string, a ...interface{}) {
	s := fmt.Sprintf(format, a...)
	fmt.Fprint(c.out, s)

	if line := strings.TrimSpace(s); line != "" {
		c.log.Debug(line)
	}
}

// RegisterOnServerMessage registers a handler that is called
// with the payload of every accepted sequenced datagram.
func (c *Client) RegisterOnServerMessage(handler func(*Client, *msg.Reader)) {
	c.onServerMsg = append(c.onServerMsg, handler)
}

// RegisterOnStatusMessage registers a handler that is called
// with the status string of every info reply.
func (c *Client) RegisterOnStatusMessage(handler func(*Client, netadr.Addr, string)) {
	c.onStatus = append(c.onStatus, handler)
}

func (c *Client) setState(s State) {
	if s != c.state {
		c.log.WithFields(logrus.Fields{
			"from": c.state,
			"to":   s,
		}).Debug("connection state changed")
	}

	c.state = s
	c.metrics.State.Set(float64(s))
}

// downloading reports whether a file transfer is running.
func (c *Client) downloading() bool {
	return c.downloader != nil && c.downloader.InProgress()
}

func (c *Client) sessionLog() logrus.FieldLogger {
	return c.log.WithFields(logrus.Fields{
		"server":  c.serverName,
		"attempt": c.attempt,
	})
}
