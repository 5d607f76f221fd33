package clnet

import (
	"fmt"
	"net"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/q2net/clnet/msg"
	"github.com/q2net/clnet/netadr"
	"github.com/q2net/clnet/netchan"
	"github.com/q2net/clnet/transport"
)

var (
	// ErrNoRconPassword is returned by Rcon if no password is set.
	ErrNoRconPassword = errors.New("rcon_password not set")

	// ErrNoRconTarget is returned by Rcon when neither a session
	// nor rcon_address names the server.
	ErrNoRconTarget = errors.New("no rcon target")
)

// Rcon sends a remote console command to the connected server,
// or to rcon_address while disconnected.
func (c *Client) Rcon(args ...string) error {
	if c.cfg.RconPassword == "" {
		c.Printf("You must set 'rcon_password' before\n" +
			"issuing an rcon command.\n")
		return ErrNoRconPassword
	}

	var to netadr.Addr
	if c.state >= StateConnected {
		to = c.netchan.RemoteAddr
	} else {
		if c.cfg.RconAddress == "" {
			c.Printf("You must either be connected,\n" +
				"or set the 'rcon_address' cvar\n" +
				"to issue rcon commands\n")
			return ErrNoRconTarget
		}

		var err error
		to, err = c.resolveServer(c.cfg.RconAddress)
		if err != nil {
			c.Printf("Bad address: %s\n", c.cfg.RconAddress)
			return errors.Wrapf(err, "resolve %s failed", c.cfg.RconAddress)
		}
	}

	buf := msg.NewBuffer(MaxRconLen)
	buf.WriteLong(netchan.OOBMarker)
	buf.Write([]byte("rcon " + c.cfg.RconPassword + " "))
	for _, arg := range args {
		buf.Write([]byte(arg + " "))
	}
	buf.WriteByte(0)

	if buf.Overflowed() {
		c.Printf("rcon command too long\n")
		return errors.Wrap(msg.ErrOverflow, "build rcon message failed")
	}

	return errors.Wrapf(c.sock.SendTo(buf.Bytes(), to), "send rcon to %s failed", to)
}

// SendPacket sends contents to dest as a connectionless datagram.
// The two characters \n in contents are sent as a newline.
func (c *Client) SendPacket(dest, contents string) error {
	to, err := c.resolveServer(dest)
	if err != nil {
		c.Printf("Bad address\n")
		return errors.Wrapf(err, "resolve %s failed", dest)
	}

	buf := msg.NewBuffer(MaxPacketLen)
	buf.WriteLong(netchan.OOBMarker)

	for i := 0; i < len(contents); i++ {
		if contents[i] == '\\' && i+1 < len(contents) && contents[i+1] == 'n' {
			buf.WriteByte('\n')
			i++
			continue
		}

		buf.WriteByte(contents[i])
	}

	if buf.Overflowed() {
		c.Printf("packet contents too long\n")
		return errors.Wrap(msg.ErrOverflow, "build packet failed")
	}

	return errors.Wrapf(c.sock.SendTo(buf.Bytes(), to), "send packet to %s failed", to)
}

// PingServers asks the local network and every address book entry
// for server status. Replies arrive as info datagrams.
func (c *Client) PingServers() {
	info := fmt.Sprintf("info %d", ProtocolVersion)

	c.Printf("pinging broadcast...\n")

	if !c.cfg.NoUDP {
		c.ping(netadr.BroadcastAddr(PortServer), info)

		c.Printf("pinging multicast...\n")
		if group := net.ParseIP(c.cfg.MulticastGroup); group != nil && group.IsMulticast() {
			c.ping(netadr.MulticastAddr(group, PortServer), info)
		} else {
			c.log.WithField("group", c.cfg.MulticastGroup).Warn("bad multicast group")
		}
	}

	if !c.cfg.NoIPX {
		c.ping(netadr.BroadcastIPXAddr(PortServer), info)
	}

	for i, adr := range c.cfg.AddressBook {
		if i >= AddressBookSize {
			break
		}

		if adr == "" {
			continue
		}

		c.Printf("pinging %s...\n", adr)

		to, err := c.resolveServer(adr)
		if err != nil {
			c.Printf("Bad address: %s\n", adr)
			continue
		}

		c.ping(to, info)
	}
}

func (c *Client) ping(to netadr.Addr, info string) {
	err := netchan.OutOfBandPrint(c.sock, to, "%s", info)
	if err == nil {
		return
	}

	log := c.log.WithFields(logrus.Fields{"addr": to})
	if errors.Is(err, transport.ErrUnsupported) {
		log.Debug("address type not supported")
		return
	}

	log.WithError(err).Warn("ping failed")
}
