package bridge

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/chabad360/osc-bridge/osc"
)

// recorder is a Sender that keeps everything it is given.
type recorder struct {
	msgs []Message
}

func (r *recorder) TrySend(m Message) error {
	r.msgs = append(r.msgs, m)
	return nil
}

// failing is a Sender that rejects every message with err.
type failing struct {
	err   error
	calls int
}

func (f *failing) TrySend(Message) error {
	f.calls++
	return f.err
}

// fakeConn is a Transport that records written datagrams.
type fakeConn struct {
	mu       sync.Mutex
	packets  [][]byte
	connects []string
	badHost  string
	writeErr error
	short    bool
	closed   bool
}

func (c *fakeConn) Connect(host string, port int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connects = append(c.connects, net.JoinHostPort(host, strconv.Itoa(port)))
	if host == c.badHost || port <= 0 {
		return errors.New("unreachable")
	}
	return nil
}

func (c *fakeConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.packets = append(c.packets, append([]byte(nil), b...))
	if c.short {
		return len(b) - 1, nil
	}
	return len(b), nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// messages parses every recorded datagram.
func (c *fakeConn) messages(t *testing.T) []*osc.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := make([]*osc.Message, 0, len(c.packets))
	for _, p := range c.packets {
		msg, err := osc.NewMessageFromData(p)
		if err != nil {
			t.Fatalf("invalid datagram %q: %v", p, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

// listenUDP opens a loopback socket to receive from.
func listenUDP(t testing.TB) (*net.UDPConn, int) {
	t.Helper()
	c, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c, c.LocalAddr().(*net.UDPAddr).Port
}

// readMessage reads one OSC message from c.
func readMessage(t *testing.T, c *net.UDPConn) *osc.Message {
	t.Helper()
	buf := make([]byte, osc.MaxPacketSize)
	if err := c.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	n, _, err := c.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	p, err := osc.ParsePacket(buf[:n])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	msg, ok := p.(*osc.Message)
	if !ok {
		t.Fatalf("got %T, want *osc.Message", p)
	}
	return msg
}

// expectSilence fails if anything arrives on c within d.
func expectSilence(t *testing.T, c *net.UDPConn, d time.Duration) {
	t.Helper()
	buf := make([]byte, osc.MaxPacketSize)
	if err := c.SetReadDeadline(time.Now().Add(d)); err != nil {
		t.Fatal(err)
	}
	n, _, err := c.ReadFromUDP(buf)
	if err == nil {
		p, _ := osc.ParsePacket(buf[:n])
		t.Fatalf("unexpected packet %v", p)
	}
}

func waitDone(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
