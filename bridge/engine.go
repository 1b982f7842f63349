package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/chabad360/osc-bridge/config"
	"github.com/chabad360/osc-bridge/osc"
)

var (
	// ErrNotRealtime is reported by Initialize for offline or buffered
	// processing.
	ErrNotRealtime = errors.New("bridge: processing mode is not realtime")
	// ErrNotRunning is returned by control operations while no worker runs.
	ErrNotRunning = errors.New("bridge: worker not running")
)

// ProcessMode is the host's processing mode.
type ProcessMode uint8

const (
	ModeRealtime ProcessMode = iota
	ModeBuffered
	ModeOffline
)

func (m ProcessMode) String() string {
	switch m {
	case ModeRealtime:
		return "realtime"
	case ModeBuffered:
		return "buffered"
	case ModeOffline:
		return "offline"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// BufferConfig describes the audio stream an Engine is initialized for.
type BufferConfig struct {
	SampleRate   float64
	MaxBlockSize int
	// Channels is the number of audio input channels, 2 if zero.
	Channels int
	Mode     ProcessMode
}

// NoteEventKind classifies host note events. Only NoteEventOn and
// NoteEventOff are forwarded.
type NoteEventKind uint8

const (
	NoteEventOn NoteEventKind = iota
	NoteEventOff
	NoteEventOther
)

// NoteEvent is a note event delivered with an audio block.
type NoteEvent struct {
	Kind     NoteEventKind
	Timing   uint32
	Channel  uint8
	Note     uint8
	Velocity float32
}

// Listener binds the local socket a worker sends from.
type Listener func(laddr string) (Transport, error)

func listenOSC(laddr string) (Transport, error) {
	c, err := osc.Listen(laddr)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The engine adds its instance id to it.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithListener replaces the function used to bind the worker socket.
func WithListener(l Listener) Option {
	return func(e *Engine) {
		if l != nil {
			e.listen = l
		}
	}
}

// Engine ties the realtime callback to a Worker. Initialize, Deactivate,
// Start, Stop and Close are called from the host's main goroutine and are
// never concurrent with Process. Process runs on the realtime goroutine.
// Controller methods may run at any time from a UI goroutine.
type Engine struct {
	id     uuid.UUID
	log    *slog.Logger
	listen Listener

	params *ParamTracker
	stats  Stats
	ctrl   *Controller

	sendMIDI  atomic.Bool
	sendAudio atomic.Bool

	// ch is the producer end of the running worker's Channel, nil when
	// stopped or after the worker went away.
	ch atomic.Pointer[Channel]

	mu       sync.Mutex
	settings config.Settings
	enc      NoteEncoding
	worker   *Worker
	retired  []*Worker
	err      error

	// realtime goroutine only
	down         *Downsampler
	rt           countingSender
	dropping     bool
	audioFailing bool
}

// NewEngine creates an Engine from validated settings. No socket is opened
// until Initialize or Start.
func NewEngine(s config.Settings, opts ...Option) (*Engine, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}
	enc, err := ParseNoteEncoding(s.NoteEncoding)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		id:       uuid.New(),
		log:      slog.Default(),
		listen:   listenOSC,
		settings: s,
		enc:      enc,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.log = e.log.With("instance", e.id.String())
	e.rt.stats = &e.stats
	e.ctrl = &Controller{e: e}

	descs := make([]ParamDescriptor, len(s.Params))
	for i, p := range s.Params {
		descs[i] = ParamDescriptor{Name: p.Name, Min: p.Min, Max: p.Max, Step: p.Step, Default: p.Value}
	}
	e.params = NewParamTracker(descs)
	e.settings.Params = append([]config.Param(nil), s.Params...)

	e.sendMIDI.Store(s.SendMIDI)
	e.sendAudio.Store(s.SendAudio)

	return e, nil
}

// ID returns the instance id attached to every log record.
func (e *Engine) ID() uuid.UUID { return e.id }

// Params returns the tracked parameters.
func (e *Engine) Params() *ParamTracker { return e.params }

// Controller returns the control surface used by an editor.
func (e *Engine) Controller() *Controller { return e.ctrl }

// Stats returns the current counters.
func (e *Engine) Stats() StatsSnapshot { return e.stats.Snapshot() }

// SetSendMIDI enables or disables note forwarding.
func (e *Engine) SetSendMIDI(v bool) { e.sendMIDI.Store(v) }

// SetSendAudio enables or disables audio forwarding.
func (e *Engine) SetSendAudio(v bool) { e.sendAudio.Store(v) }

// Settings returns a copy of the current settings including parameter
// values.
func (e *Engine) Settings() config.Settings {
	e.mu.Lock()
	s := e.settings
	e.mu.Unlock()

	s.Params = append([]config.Param(nil), s.Params...)
	for i := range s.Params {
		s.Params[i].Value = e.params.Value(i)
	}
	s.SendMIDI = e.sendMIDI.Load()
	s.SendAudio = e.sendAudio.Load()
	return s
}

// SetSampleRate changes the audio telemetry rate. It takes effect on the
// next Initialize.
func (e *Engine) SetSampleRate(hz int) error {
	if hz < 0 || hz > config.MaxSampleRate {
		return fmt.Errorf("bridge: sample rate %d out of range 0..%d", hz, config.MaxSampleRate)
	}
	e.mu.Lock()
	e.settings.SampleRate = hz
	e.mu.Unlock()
	return nil
}

// Err returns the reason the last Initialize or Start failed.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Connected reports whether a worker is running with a valid destination.
func (e *Engine) Connected() bool {
	e.mu.Lock()
	w := e.worker
	e.mu.Unlock()
	return w != nil && w.State() == Connected
}

// Initialize prepares the engine for a stream and starts the worker. It
// reports false if the engine must not be activated, see Err. A failure to
// build the downsampler only disables audio forwarding.
func (e *Engine) Initialize(cfg BufferConfig) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.err = nil
	if cfg.Mode != ModeRealtime {
		e.err = fmt.Errorf("%w: %s", ErrNotRealtime, cfg.Mode)
		e.log.Error("refusing to initialize", "mode", cfg.Mode)
		return false
	}

	channels := cfg.Channels
	if channels <= 0 {
		channels = 2
	}
	e.down = nil
	e.audioFailing = false
	d, err := NewDownsampler(int(cfg.SampleRate), e.settings.SampleRate, cfg.MaxBlockSize, channels, &e.stats)
	if err != nil {
		e.log.Error("failed to create resampler, audio disabled",
			"sample_rate", cfg.SampleRate, "osc_sample_rate", e.settings.SampleRate, "error", err)
	} else {
		e.down = d
	}

	if err := e.startLocked(); err != nil {
		e.err = err
		e.log.Error("failed to start osc worker", "error", err)
		return false
	}

	e.log.Info("initialized",
		"sample_rate", cfg.SampleRate, "max_block", cfg.MaxBlockSize,
		"channels", channels, "audio", e.down != nil)
	return true
}

// Start runs a worker for the configured destination. If one is already
// running it is reconfigured with a ConnectionChange followed by an
// AddressBaseChange instead.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.startLocked(); err != nil {
		e.err = err
		return err
	}
	return nil
}

func (e *Engine) startLocked() error {
	host, port, base := e.settings.ServerAddress, e.settings.ServerPort, e.settings.AddressBase

	if ch := e.runningLocked(); ch != nil {
		if err := ch.TrySend(ConnectionChange(host, port)); err != nil {
			e.log.Warn("failed to send connection change", "error", err)
		}
		if err := ch.TrySend(AddressBaseChange(base)); err != nil {
			e.log.Warn("failed to send address base change", "error", err)
		}
		return nil
	}

	conn, err := e.listen("0.0.0.0:0")
	if err != nil {
		return fmt.Errorf("bridge: bind socket: %w", err)
	}
	if err = conn.Connect(host, port); err != nil {
		conn.Close()
		return fmt.Errorf("bridge: initial connect: %w", err)
	}

	ch := NewChannel(e.settings.QueueCapacity)
	w := NewWorker(conn, ch, WorkerConfig{
		AddressBase: base,
		Encoding:    e.enc,
		Connected:   true,
		Stats:       &e.stats,
		Logger:      e.log,
	})
	e.worker = w
	e.ch.Store(ch)
	go w.Run()

	e.log.Info("osc worker spawned", "host", host, "port", port, "namespace", FormatNamespace(base))
	return nil
}

// runningLocked returns the channel of a live worker, retiring one that
// has already exited.
func (e *Engine) runningLocked() *Channel {
	if e.worker == nil {
		return nil
	}
	select {
	case <-e.worker.Done():
	default:
		if ch := e.ch.Load(); ch != nil && !ch.Closed() {
			return ch
		}
	}
	e.retireLocked(e.worker)
	e.worker = nil
	e.ch.Store(nil)
	return nil
}

// retireLocked adds w to the workers Close must join and forgets those
// that have already exited.
func (e *Engine) retireLocked(w *Worker) {
	live := e.retired[:0]
	for _, r := range e.retired {
		select {
		case <-r.Done():
		default:
			live = append(live, r)
		}
	}
	clear(e.retired[len(live):])
	e.retired = append(live, w)
}

// Stop sends Exit to the worker and forgets it without waiting.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
}

func (e *Engine) stopLocked() {
	w := e.worker
	if w == nil {
		return
	}
	e.worker = nil
	e.retireLocked(w)

	if ch := e.ch.Swap(nil); ch != nil {
		if err := ch.TrySend(Exit()); err != nil {
			// Full queue: closing ends the worker at its next receive.
			ch.Close()
		}
	}
	e.log.Info("osc worker stop requested")
}

// Deactivate stops the worker. The engine can be initialized again.
func (e *Engine) Deactivate() {
	e.Stop()
}

// Close stops the worker and waits for every worker this engine started
// to exit.
func (e *Engine) Close() error {
	e.mu.Lock()
	e.stopLocked()
	retired := e.retired
	e.retired = nil
	e.mu.Unlock()

	for _, w := range retired {
		<-w.Done()
	}
	return nil
}

// Send enqueues a control message for the running worker without blocking.
func (e *Engine) Send(m Message) error {
	ch := e.ch.Load()
	if ch == nil {
		return ErrNotRunning
	}
	return ch.TrySend(m)
}

// Process forwards one block worth of telemetry: changed parameters
// always, note on/off events when note sending is enabled and downsampled
// audio from block[channel][frame] when audio sending is enabled. It never
// blocks; messages that do not fit are dropped and counted.
func (e *Engine) Process(block [][]float32, events []NoteEvent) {
	ch := e.ch.Load()
	if ch == nil {
		return
	}
	e.rt.s = ch

	var dropErr error
	if _, err := e.params.ScanAndEmit(&e.rt); err != nil {
		dropErr = err
	}

	if dropErr == nil || errors.Is(dropErr, ErrChannelFull) {
		if e.sendMIDI.Load() {
			for _, ev := range events {
				var m Message
				switch ev.Kind {
				case NoteEventOn:
					m = NoteOn(ev.Channel, ev.Note, ev.Velocity)
				case NoteEventOff:
					m = NoteOff(ev.Channel, ev.Note, ev.Velocity)
				default:
					continue
				}
				if err := e.rt.TrySend(m); err != nil {
					dropErr = err
					if errors.Is(err, ErrChannelClosed) {
						break
					}
				}
			}
		}
	}

	if e.down != nil && e.sendAudio.Load() && len(block) > 0 && !errors.Is(dropErr, ErrChannelClosed) {
		_, err := e.down.Process(block, &e.rt)
		switch {
		case err == nil:
			e.audioFailing = false
		case errors.Is(err, ErrChannelFull), errors.Is(err, ErrChannelClosed):
			dropErr = err
		default:
			if !e.audioFailing {
				e.log.Error("failed to downsample audio block", "error", err)
			}
			e.audioFailing = true
		}
	}

	e.noteDrops(ch, dropErr)
	e.rt.s = nil
}

// noteDrops logs once per burst of dropped messages and gives up on a
// channel whose consumer is gone.
func (e *Engine) noteDrops(ch *Channel, err error) {
	switch {
	case err == nil:
		if e.dropping {
			e.log.Info("channel drained, telemetry resumed", "dropped", e.stats.Dropped.Load())
		}
		e.dropping = false
	case errors.Is(err, ErrChannelClosed):
		if e.ch.CompareAndSwap(ch, nil) {
			e.log.Warn("osc worker gone, telemetry disabled")
		}
	default:
		if !e.dropping {
			e.log.Warn("channel full, dropping telemetry", "queued", ch.Len(), "capacity", ch.Cap())
		}
		e.dropping = true
	}
}
