package clnet

import (
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/q2net/clnet/msg"
	"github.com/q2net/clnet/netadr"
	"github.com/q2net/clnet/netchan"
)

type connectionlessHandler func(c *Client, from netadr.Addr, args Args, r *msg.Reader)

var connectionlessHandlers = map[string]connectionlessHandler{
	"client_connect": func(c *Client, from netadr.Addr, args Args, _ *msg.Reader) {
		c.acceptHandshake(from, args)
	},

	// server status, usually a reply to pingservers
	"info": func(c *Client, from netadr.Addr, _ Args, r *msg.Reader) {
		s := r.ReadString()
		c.Printf("%s\n", s)

		for _, handler := range c.onStatus {
			handler(c, from, s)
		}
	},

	// command from a front end on the same machine
	"cmd": func(c *Client, from netadr.Addr, _ Args, r *msg.Reader) {
		if !from.IsLocal() {
			c.Printf("Command packet from remote host.  Ignored.\n")
			c.log.WithField("addr", from).Debug("remote cmd packet")
			return
		}

		c.console.AddText(r.ReadString())
		c.console.AddText("\n")
	},

	"print": func(c *Client, _ netadr.Addr, _ Args, r *msg.Reader) {
		c.Printf("%s", r.ReadString())
	},

	"ping": func(c *Client, from netadr.Addr, _ Args, _ *msg.Reader) {
		c.outOfBandPrint(from, "ack")
	},

	"challenge": func(c *Client, from netadr.Addr, args Args, _ *msg.Reader) {
		if c.state != StateConnecting {
			c.log.WithField("addr", from).Debug("challenge without pending connection")
			return
		}

		c.challenge = leadingInt(args.Argv(1))
		c.sendConnectPacket()
	},

	"echo": func(c *Client, from netadr.Addr, args Args, _ *msg.Reader) {
		c.outOfBandPrint(from, "%s", args.Argv(1))
	},
}

// connectionless handles an out-of-band datagram.
func (c *Client) connectionless(data []byte, from netadr.Addr) {
	r := msg.NewReader(data)
	r.ReadLong() // marker

	args := Tokenize(r.ReadStringLine())
	cmd := args.Argv(0)

	c.Printf("%s: %s\n", from, cmd)

	handler, ok := connectionlessHandlers[cmd]
	if !ok {
		c.Printf("Unknown command.\n")
		c.metrics.Connectionless.WithLabelValues("unknown").Inc()
		return
	}

	c.metrics.Connectionless.WithLabelValues(cmd).Inc()
	handler(c, from, args, r)
}

// outOfBandPrint replies to from. Replies go to the sender rather
// than the session address.
func (c *Client) outOfBandPrint(to netadr.Addr, format string, a ...interface{}) {
	if err := netchan.OutOfBandPrint(c.sock, to, format, a...); err != nil {
		c.log.WithFields(logrus.Fields{
			"addr": to,
		}).WithError(err).Debug("send reply failed")
	}
}

// leadingInt parses the integer at the start of s,
// ignoring anything after it. It returns 0 if there is none.
func leadingInt(s string) int {
	s = strings.TrimLeft(s, " \t\r\n\v\f")

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	n, err := strconv.ParseInt(s[:end], 10, 32)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			if strings.HasPrefix(s, "-") {
				return -1 << 31
			}
			return 1<<31 - 1
		}
		return 0
	}

	return int(n)
}
