package bridge

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/chabad360/osc-bridge/osc"
)

// State is the connection state of a Worker.
type State uint32

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Transport is the datagram socket a Worker sends through. *osc.Conn
// implements it.
type Transport interface {
	Connect(host string, port int) error
	Write(b []byte) (int, error)
	Close() error
}

var _ Transport = (*osc.Conn)(nil)

// WorkerConfig is the state handed to a Worker before it starts.
type WorkerConfig struct {
	// AddressBase is the unformatted namespace, e.g. "osclap".
	AddressBase string
	Encoding    NoteEncoding
	// Connected is the outcome of the initial connect.
	Connected bool
	Stats     *Stats
	Logger    *slog.Logger
}

// Worker drains a Channel and sends every data Message as OSC. It owns its
// Transport and namespace; both are changed only through messages.
type Worker struct {
	conn  Transport
	ch    *Channel
	ns    string
	enc   NoteEncoding
	state atomic.Uint32

	msg osc.Message
	buf []byte

	stats *Stats
	log   *slog.Logger
	done  chan struct{}
}

// NewWorker creates a Worker consuming ch and sending through conn.
func NewWorker(conn Transport, ch *Channel, cfg WorkerConfig) *Worker {
	w := &Worker{
		conn:  conn,
		ch:    ch,
		ns:    FormatNamespace(cfg.AddressBase),
		enc:   cfg.Encoding,
		buf:   make([]byte, 0, osc.MaxPacketSize),
		stats: cfg.Stats,
		log:   cfg.Logger,
		done:  make(chan struct{}),
	}
	if w.stats == nil {
		w.stats = &Stats{}
	}
	if w.log == nil {
		w.log = slog.Default()
	}
	if cfg.Connected {
		w.state.Store(uint32(Connected))
	}
	return w
}

// release closes the Channel and the Transport and drops the buffers the
// worker no longer needs.
func (w *Worker) release() {
	w.conn.Close()
	w.ch.Close()
	w.ch = nil
	w.buf = nil
	w.msg = osc.Message{}
}

// Run processes messages until Exit is received or the Channel is closed.
// On return the Channel is closed, so later sends fail with
// ErrChannelClosed, and the Transport is closed.
func (w *Worker) Run() {
	defer close(w.done)
	defer w.release()

	w.log.Info("osc worker started", "state", w.State(), "namespace", w.ns)

	for {
		m, ok := w.ch.Recv()
		if !ok {
			w.log.Info("osc worker stopped, channel closed")
			return
		}
		if !w.handle(m) {
			w.log.Info("osc worker stopped")
			return
		}
	}
}

// handle applies one message and reports whether to keep running.
func (w *Worker) handle(m Message) bool {
	switch m.Kind {
	case KindExit:
		return false

	case KindConnectionChange:
		if err := w.conn.Connect(m.Host, m.Port); err != nil {
			w.state.Store(uint32(Disconnected))
			w.stats.ConnectFailures.Add(1)
			w.log.Error("failed to change connection", "host", m.Host, "port", m.Port, "error", err)
			return true
		}
		w.state.Store(uint32(Connected))
		w.log.Info("connection changed", "host", m.Host, "port", m.Port)

	case KindAddressBaseChange:
		w.ns = FormatNamespace(m.Namespace)
		w.log.Info("address base changed", "namespace", w.ns)

	default:
		w.send(m)
	}
	return true
}

func (w *Worker) send(m Message) {
	if w.State() != Connected {
		w.stats.Discarded.Add(1)
		return
	}

	if err := encodeInto(&w.msg, w.ns, m, w.enc); err != nil {
		w.stats.EncodeFailures.Add(1)
		w.log.Error("failed to encode message", "message", m, "error", err)
		return
	}

	var err error
	if w.buf, err = w.msg.AppendBinary(w.buf[:0]); err != nil {
		w.stats.EncodeFailures.Add(1)
		w.log.Error("failed to encode message", "address", w.msg.Address, "error", err)
		return
	}

	n, err := w.conn.Write(w.buf)
	switch {
	case err != nil:
		w.stats.SendFailures.Add(1)
		w.log.Error("failed to send message", "address", w.msg.Address, "error", err)
	case n < len(w.buf):
		w.stats.PartialSends.Add(1)
		w.log.Warn("partial send", "address", w.msg.Address, "sent", n, "size", len(w.buf))
	default:
		w.stats.Sent.Add(1)
		if w.log.Enabled(context.Background(), slog.LevelDebug) {
			w.log.Debug("sent", "message", &w.msg)
		}
	}
}

// State returns the current connection state. It is safe to call from any
// goroutine.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// Namespace returns the formatted address prefix. It must only be called
// from the goroutine running Run or after Done is closed.
func (w *Worker) Namespace() string {
	return w.ns
}

// Done is closed when Run has returned.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}
