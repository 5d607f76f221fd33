package clnet

import (
	"github.com/sirupsen/logrus"

	"github.com/q2net/clnet/msg"
	"github.com/q2net/clnet/netchan"
	"github.com/q2net/clnet/transport"
)

// Frame runs one client tick: queued console commands, received
// datagrams, connection resends and the outgoing datagram.
func (c *Client) Frame() {
	c.realtime = c.clock()

	c.console.Execute()
	c.ReadPackets()
	c.SendCommand()
}

// ReadPackets processes every queued datagram and then checks
// whether the server has timed out.
func (c *Client) ReadPackets() {
	for {
		dg, ok := c.sock.Recv()
		if !ok {
			break
		}

		c.readPacket(dg)
	}

	if c.state < StateConnected {
		return
	}

	if c.realtime-c.netchan.LastReceived > int64(c.cfg.Timeout*1000) {
		c.timeoutCount++
		if c.timeoutCount >= TimeoutThreshold {
			c.Printf("\nServer connection timed out.\n")
			c.sessionLog().WithField("ticks", c.timeoutCount).Warn("server timed out")
			c.metrics.Timeouts.Inc()
			c.Disconnect()
		}
	}
}

func (c *Client) readPacket(dg transport.Datagram) {
	if netchan.IsOutOfBand(dg.Data) {
		c.metrics.Datagrams.WithLabelValues("connectionless").Inc()
		c.connectionless(dg.Data, dg.From)
		return
	}

	c.metrics.Datagrams.WithLabelValues("sequenced").Inc()

	log := c.log.WithFields(logrus.Fields{
		"addr": dg.From,
		"len":  len(dg.Data),
	})

	if c.state < StateConnected {
		c.metrics.Dropped.WithLabelValues(DropNoSession).Inc()
		return
	}

	if len(dg.Data) < netchan.HeaderLen {
		log.Debug("runt packet")
		c.metrics.Dropped.WithLabelValues(DropRunt).Inc()
		return
	}

	if !dg.From.Equal(c.netchan.RemoteAddr) {
		log.Debug("sequenced packet without connection")
		c.metrics.Dropped.WithLabelValues(DropForeign).Inc()
		return
	}

	payload, ok := c.netchan.Process(dg.Data, c.realtime)
	if !ok {
		c.metrics.Dropped.WithLabelValues(DropRejected).Inc()
		return
	}

	c.timeoutCount = 0

	for _, handler := range c.onServerMsg {
		handler(c, msg.NewReader(payload))
	}
}

// SendCommand resends connection requests and transmits pending
// reliable data, or a keepalive if nothing was sent for a while.
func (c *Client) SendCommand() {
	c.CheckForResend()

	if c.state < StateConnected {
		return
	}

	if c.netchan.Message.Len() == 0 && c.realtime-c.netchan.LastSent <= KeepaliveInterval {
		return
	}

	if err := c.netchan.Transmit(nil, c.realtime); err != nil {
		c.sessionLog().WithError(err).Error("transmit failed")
		if err == netchan.ErrOverflow {
			c.Printf("Client message overflowed\n")
			c.Drop()
		}
	}
}
