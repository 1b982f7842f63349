package osc

import (
	"errors"
	"log/slog"
	"net"
	"runtime"
	"time"
)

// HandlerFunc handles a received OSC Packet from addr.
type HandlerFunc func(packet Packet, addr net.Addr)

// Server represents an OSC server. The server listens on Addr for incoming OSC packets and bundles.
type Server struct {
	Addr        string
	Handler     HandlerFunc
	ReadTimeout time.Duration
	Logger      *slog.Logger
}

// ListenAndServe listens on addr and calls handler for every received packet.
func ListenAndServe(addr string, handler HandlerFunc) error {
	s := &Server{Addr: addr, Handler: handler}
	return s.ListenAndServe()
}

// ListenAndServe retrieves incoming OSC packets and dispatches the retrieved OSC packets.
func (s *Server) ListenAndServe() error {
	ln, err := net.ListenPacket("udp", s.Addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	return s.Serve(ln)
}

// Serve retrieves incoming OSC packets from the given connection and dispatches retrieved OSC packets.
// Malformed packets are logged and skipped. Serve returns nil once c is closed.
func (s *Server) Serve(c net.PacketConn) error {
	if s.Handler == nil {
		return errors.New("osc: Server has no Handler")
	}

	for {
		p, addr, err := s.ReceivePacketFromConn(c)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) {
				if ne.Timeout() {
					continue
				}
				return err
			}
			s.logger().Debug("dropping malformed packet", "from", addr, "error", err)
			continue
		}
		s.serve(p, addr)
	}
}

func (s *Server) serve(p Packet, a net.Addr) {
	defer recoverer(a)
	s.Handler(p, a)
}

// ReceivePacketFromConn reads and parses a single packet from c.
func (s *Server) ReceivePacketFromConn(c net.PacketConn) (Packet, net.Addr, error) {
	if s.ReadTimeout != 0 {
		if err := c.SetReadDeadline(time.Now().Add(s.ReadTimeout)); err != nil {
			return nil, nil, err
		}
	}

	b := bPool.Get().(*[]byte)
	defer bPool.Put(b)

	n, a, err := c.ReadFrom(*b)
	if err != nil {
		return nil, a, err
	}

	p, err := ParsePacket((*b)[:n])
	return p, a, err
}

func (s *Server) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func recoverer(a net.Addr) {
	if err := recover(); err != nil {
		buf := make([]byte, 64<<10)
		buf = buf[:runtime.Stack(buf, false)]
		slog.Error("osc: panic handling packet", "from", a, "panic", err, "stack", string(buf))
	}
}
