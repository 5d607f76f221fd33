package clnet

import (
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/q2net/clnet/netadr"
	"github.com/q2net/clnet/netchan"
)

// disconnectFrame is the string command telling the server
// the client left. It is sent without a terminating NUL.
var disconnectFrame = append([]byte{ClcStringCmd}, "disconnect"...)

// Connect starts connecting to server. A local server is shut down
// and any previous session is torn down first. The address is only
// resolved once the first challenge request is due.
func (c *Client) Connect(server string) error {
	if server == "" {
		return ErrUsage
	}

	if c.host.State() != ServerDead {
		c.host.Shutdown("Server quit\n")
	}

	c.Disconnect()
	c.clearSession()

	if len(server) > MaxServerNameLen {
		server = server[:MaxServerNameLen]
	}

	c.serverName = server
	c.attempt = uuid.New()
	c.setState(StateConnecting)
	c.connectTime = fireNow

	c.sessionLog().Info("connecting")

	return nil
}

// CheckForResend asks the server for a challenge if the last request
// went unanswered, and connects to a local server that was started
// while disconnected.
func (c *Client) CheckForResend() {
	if c.state == StateDisconnected && c.host.State() != ServerDead {
		c.setState(StateConnecting)
		c.serverName = "localhost"
		c.attempt = uuid.New()

		// no challenge needed on the loopback
		c.sendConnectPacket()
		return
	}

	if c.state != StateConnecting {
		return
	}

	if c.realtime-c.connectTime < ResendInterval {
		return
	}

	addr, err := c.resolveServer(c.serverName)
	if err != nil {
		c.Printf("Bad server address\n")
		c.sessionLog().WithError(err).Warn("resolve server failed")
		c.clearSession()
		c.setState(StateDisconnected)
		return
	}

	c.connectTime = c.realtime

	c.Printf("Connecting to %s...\n", c.serverName)

	if err := netchan.OutOfBandPrint(c.sock, addr, "getchallenge\n"); err != nil {
		c.sessionLog().WithError(err).Warn("send challenge request failed")
	}
	c.metrics.ConnectAttempts.Inc()
}

// sendConnectPacket answers a challenge with the connect request.
func (c *Client) sendConnectPacket() {
	addr, err := c.resolveServer(c.serverName)
	if err != nil {
		c.Printf("Bad server address\n")
		c.sessionLog().WithError(err).Warn("resolve server failed")
		c.connectTime = 0
		return
	}

	err = netchan.OutOfBandPrint(c.sock, addr, "connect %d %d %d \"%s\"\n",
		ProtocolVersion, c.qport, c.challenge, c.cfg.UserinfoString())
	if err != nil {
		c.sessionLog().WithError(err).Warn("send connect request failed")
	}
	c.metrics.ConnectAttempts.Inc()
}

func (c *Client) resolveServer(name string) (netadr.Addr, error) {
	addr, err := c.resolve(name)
	if err != nil {
		return netadr.Addr{}, err
	}

	return addr.WithDefaultPort(), nil
}

// acceptHandshake binds the session to from after the server
// accepted the connect request.
func (c *Client) acceptHandshake(from netadr.Addr, args Args) {
	if c.state >= StateConnected {
		c.Printf("Dup connect received.  Ignored.\n")
		return
	}

	c.netchan = netchan.Setup(c.sock, from, c.qport, c.realtime)
	c.timeoutCount = 0

	for i := 1; i < args.Argc(); i++ {
		url := strings.TrimPrefix(args.Argv(i), "dlserver=")
		if url == args.Argv(i) {
			continue
		}

		if c.downloader == nil {
			c.Printf("HTTP downloading supported by server but not the client.\n")
			continue
		}

		c.downloader.SetServer(url, "quake2://"+from.String())
		c.Printf("HTTP downloading enabled, URL: %s\n", url)
	}

	// keep a local single player game from running
	// while the client loads
	if c.host.State() == ServerGame && c.host.MaxClients() <= 1 &&
		c.cfg.LoadPaused && !c.pauser.Paused() {
		c.pausedAtLoad = true
		c.pauser.SetPaused(true)
	}

	c.netchan.Message.WriteByte(ClcStringCmd)
	c.netchan.Message.WriteString("new")
	c.setState(StateConnected)

	c.sessionLog().WithField("addr", from).Info("connected")
}

// Changing shows the loading screen while the server changes levels.
// It does nothing while a file is downloaded.
func (c *Client) Changing() {
	if c.downloading() || c.state < StateConnected {
		return
	}

	c.screen.BeginLoadingPlaque()
	c.setState(StateConnected)
	c.input.ClearKeys()

	c.Printf("\nChanging map...\n")
}

// Reconnect asks the server for the level again, or connects anew
// to the last server if the session is gone.
func (c *Client) Reconnect() {
	if c.downloading() {
		return
	}

	c.sound.StopAllSounds()

	if c.state == StateConnected {
		c.Printf("reconnecting...\n")
		c.netchan.Message.WriteByte(ClcStringCmd)
		c.netchan.Message.WriteString("new")
		return
	}

	if c.serverName == "" {
		return
	}

	if c.state >= StateConnected {
		c.Disconnect()
		c.connectTime = c.realtime - ReconnectBackdate
	} else {
		c.connectTime = fireNow
	}

	c.attempt = uuid.New()
	c.setState(StateConnecting)

	c.Printf("reconnecting...\n")
}

// Disconnect tells the server the client leaves and tears down the
// session. It does nothing if the Client is already disconnected.
func (c *Client) Disconnect() {
	if c.state == StateDisconnected {
		return
	}

	if frames, start, ok := c.demo.Timedemo(); ok {
		if ms := c.clock() - start; ms > 0 {
			c.Printf("%d frames, %3.1f seconds: %3.1f fps\n",
				frames, float64(ms)/1000, float64(frames)*1000/float64(ms))
		}
	}

	c.screen.Reset()
	c.sound.StopMusic()

	if c.demo.Recording() {
		c.demo.StopRecording()
	}

	if c.netchan != nil {
		for i := 0; i < 3; i++ {
			if err := c.netchan.Transmit(disconnectFrame, c.realtime); err != nil {
				c.sessionLog().WithError(err).Debug("send disconnect failed")
			}
		}
	}

	c.clearSession()

	if c.downloader != nil {
		c.downloader.Cancel()
	}

	c.setState(StateDisconnected)
	c.metrics.Disconnects.Inc()

	if err := c.cfg.Save(); err != nil {
		c.log.WithError(err).Error("save config failed")
	}

	// a server may have switched the game directory
	c.cfg.Game = c.userGame

	c.sessionLog().Info("disconnected")
}

// clearSession forgets everything bound to the current attempt.
func (c *Client) clearSession() {
	c.netchan = nil
	c.challenge = 0
	c.connectTime = 0
	c.timeoutCount = 0
	c.pausedAtLoad = false
}

// Drop ends the session after an error.
func (c *Client) Drop() {
	if c.state == StateUninitialized || c.state == StateDisconnected {
		return
	}

	c.Disconnect()

	if !c.startup {
		c.screen.EndLoadingPlaque()
	}
}

// EnterWorld moves a connected Client to StateActive once it
// simulates the world, and lifts a pause set while loading.
func (c *Client) EnterWorld() {
	if c.state != StateConnected {
		return
	}

	c.startup = false
	c.setState(StateActive)

	if c.pausedAtLoad {
		c.pausedAtLoad = false
		c.pauser.SetPaused(false)
	}

	c.sessionLog().WithFields(logrus.Fields{"qport": c.qport}).Debug("entered world")
}
