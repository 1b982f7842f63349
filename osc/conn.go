package osc

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrNotConnected is returned when sending on a Conn without a destination.
var ErrNotConnected = errors.New("osc: no destination")

// Conn sends OSC Packets from a single local UDP socket to a destination
// that can be changed at any time with Connect. A Conn is not safe for
// concurrent use; it is meant to be owned by one goroutine.
type Conn struct {
	conn *net.UDPConn
	dest *net.UDPAddr
	buf  []byte
}

// Listen binds a UDP socket to laddr, e.g. "0.0.0.0:0" for an ephemeral port.
// The socket has no destination until Connect succeeds.
func Listen(laddr string) (*Conn, error) {
	a, err := net.ResolveUDPAddr("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("osc: listen %s: %w", laddr, err)
	}
	uc, err := net.ListenUDP("udp4", a)
	if err != nil {
		return nil, fmt.Errorf("osc: listen %s: %w", laddr, err)
	}
	return &Conn{
		conn: uc,
		buf:  make([]byte, 0, MaxPacketSize),
	}, nil
}

// Dial creates a new Conn on an ephemeral port with a destination of addr.
func Dial(addr string) (*Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return nil, fmt.Errorf("osc: invalid port %q: %w", port, err)
	}

	c, err := Listen("0.0.0.0:0")
	if err != nil {
		return nil, err
	}
	if err = c.Connect(host, p); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// Connect sets the destination of all further sends. On failure the
// previous destination is forgotten and the Conn is left unconnected.
func (c *Conn) Connect(host string, port int) error {
	c.dest = nil

	if port <= 0 || port > 65535 {
		return fmt.Errorf("osc: connect %s: invalid port %d", host, port)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	a, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return fmt.Errorf("osc: connect %s: %w", addr, err)
	}
	if a.IP == nil || a.IP.IsUnspecified() {
		return fmt.Errorf("osc: connect %s: unspecified address", addr)
	}

	if isBroadcast(a.IP) {
		if err = setBroadcast(c.conn); err != nil {
			return fmt.Errorf("osc: enable broadcast for %s: %w", addr, err)
		}
	}

	c.dest = a
	return nil
}

// Connected reports whether the Conn has a destination.
func (c *Conn) Connected() bool {
	return c.dest != nil
}

// RemoteAddr returns the current destination or nil.
func (c *Conn) RemoteAddr() net.Addr {
	if c.dest == nil {
		return nil
	}
	return c.dest
}

// LocalAddr returns the local address the socket is bound to.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// Write sends a raw datagram to the destination and reports the number of
// bytes written. A short write is not an error.
func (c *Conn) Write(b []byte) (int, error) {
	if c.dest == nil {
		return 0, ErrNotConnected
	}
	return c.conn.WriteToUDP(b, c.dest)
}

// Send encodes packet into the Conn's scratch buffer and sends it. It
// returns the encoded size and the number of bytes written.
func (c *Conn) Send(packet Packet) (encoded, written int, err error) {
	if c.dest == nil {
		return 0, 0, ErrNotConnected
	}

	c.buf, err = packet.AppendBinary(c.buf[:0])
	if err != nil {
		return 0, 0, err
	}

	written, err = c.Write(c.buf)
	return len(c.buf), written, err
}

// Close closes the socket.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// isBroadcast reports whether ip is the limited broadcast address or looks
// like a directed broadcast address of a /24 or larger network.
func isBroadcast(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	return ip4.Equal(net.IPv4bcast) || ip4[3] == 255
}
