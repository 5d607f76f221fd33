package transport

import (
	"net"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/ipv6"

	"github.com/q2net/clnet/netadr"
)

// QueueLen is the number of received datagrams buffered between ticks.
const QueueLen = 256

const maxDatagram = 4096

// UDPConfig configures a UDP socket.
type UDPConfig struct {
	// Port to bind. If it is taken, an ephemeral port is used instead.
	Port int

	// MulticastInterface names the interface multicast datagrams
	// leave through. Empty means the system default.
	MulticastInterface string

	// MulticastHops is the IPv6 multicast hop limit.
	MulticastHops int

	// Loopback, if set, carries datagrams addressed to
	// netadr.LoopbackAddr.
	Loopback *Loopback

	Logger logrus.FieldLogger
}

// A UDP socket sends and receives over IPv4 and, where available, IPv6.
type UDP struct {
	v4   *net.UDPConn
	v6   *net.UDPConn
	loop *Loopback
	log  logrus.FieldLogger

	in   chan Datagram
	done chan struct{}
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// ListenUDP opens the sockets and starts their readers.
func ListenUDP(cfg UDPConfig) (*UDP, error) {
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	v4, err := net.ListenUDP("udp4", &net.UDPAddr{Port: cfg.Port})
	if err != nil && cfg.Port != 0 {
		log.WithError(err).WithField("port", cfg.Port).Warn("port unavailable, using any port")
		v4, err = net.ListenUDP("udp4", &net.UDPAddr{})
	}
	if err != nil {
		return nil, errors.Wrap(err, "listen udp4 failed")
	}

	u := &UDP{
		v4:   v4,
		loop: cfg.Loopback,
		log:  log,
		in:   make(chan Datagram, QueueLen),
		done: make(chan struct{}),
	}

	port := v4.LocalAddr().(*net.UDPAddr).Port
	v6, err := net.ListenUDP("udp6", &net.UDPAddr{IP: net.IPv6unspecified, Port: port})
	if err != nil {
		log.WithError(err).Info("IPv6 unavailable")
	} else {
		if err := configureMulticast(v6, cfg); err != nil {
			log.WithError(err).Warn("configure multicast failed")
		}
		u.v6 = v6
	}

	u.wg.Add(1)
	go u.readLoop(u.v4)
	if u.v6 != nil {
		u.wg.Add(1)
		go u.readLoop(u.v6)
	}

	log.WithField("port", port).Info("socket opened")

	return u, nil
}

func configureMulticast(c *net.UDPConn, cfg UDPConfig) error {
	p := ipv6.NewPacketConn(c)

	hops := cfg.MulticastHops
	if hops <= 0 {
		hops = 1
	}
	if err := p.SetMulticastHopLimit(hops); err != nil {
		return errors.Wrap(err, "set multicast hop limit failed")
	}

	if cfg.MulticastInterface == "" {
		return nil
	}

	ifi, err := net.InterfaceByName(cfg.MulticastInterface)
	if err != nil {
		return errors.Wrapf(err, "find interface %s failed", cfg.MulticastInterface)
	}

	return errors.Wrap(p.SetMulticastInterface(ifi), "set multicast interface failed")
}

// Port returns the local port.
func (u *UDP) Port() int {
	return u.v4.LocalAddr().(*net.UDPAddr).Port
}

func (u *UDP) readLoop(c *net.UDPConn) {
	defer u.wg.Done()

	buf := make([]byte, maxDatagram)
	for {
		n, from, err := c.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-u.done:
				return
			default:
			}

			if errors.Is(err, net.ErrClosed) {
				return
			}

			u.log.WithError(err).Debug("read failed")
			continue
		}

		dg := Datagram{
			Data: append([]byte(nil), buf[:n]...),
			From: netadr.FromUDP(from),
		}

		select {
		case u.in <- dg:
		case <-u.done:
			return
		default:
			u.log.WithField("addr", dg.From).Debug("receive queue full, dropping datagram")
		}
	}
}

// SendTo sends data to addr.
func (u *UDP) SendTo(data []byte, to netadr.Addr) error {
	var c *net.UDPConn

	switch to.Type {
	case netadr.Loopback:
		if u.loop == nil {
			return ErrUnsupported
		}
		return u.loop.SendTo(data, to)
	case netadr.IP, netadr.Broadcast:
		c = u.v4
	case netadr.IP6, netadr.Multicast6:
		c = u.v6
	}

	if c == nil {
		return ErrUnsupported
	}

	select {
	case <-u.done:
		return ErrClosed
	default:
	}

	_, err := c.WriteToUDP(data, to.UDPAddr())
	return errors.Wrapf(err, "send to %s failed", to)
}

// Recv returns the next queued datagram from the network or the loopback.
func (u *UDP) Recv() (Datagram, bool) {
	select {
	case dg := <-u.in:
		return dg, true
	default:
	}

	if u.loop != nil {
		return u.loop.Recv()
	}

	return Datagram{}, false
}

// Close closes the sockets and waits for the readers to stop.
func (u *UDP) Close() error {
	var err error
	u.closeOnce.Do(func() {
		close(u.done)

		err = u.v4.Close()
		if u.v6 != nil {
			u.v6.Close()
		}
		if u.loop != nil {
			u.loop.Close()
		}

		u.wg.Wait()
	})

	return err
}
