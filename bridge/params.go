package bridge

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/chabad360/osc-bridge/config"
)

// ParamDescriptor describes one tracked parameter.
type ParamDescriptor struct {
	Name    string
	Min     float32
	Max     float32
	Step    float32
	Default float32
}

// Quantize clamps v into [Min, Max] and snaps it to the nearest Step.
func (d ParamDescriptor) Quantize(v float32) float32 {
	return config.Quantize(v, d.Min, d.Max, d.Step)
}

// DefaultParams returns the eight automatable parameters param1..param8,
// ranged 0..1 with a step of 0.001.
func DefaultParams() []ParamDescriptor {
	params := make([]ParamDescriptor, 8)
	for i := range params {
		params[i] = ParamDescriptor{
			Name: fmt.Sprintf("param%d", i+1),
			Min:  0,
			Max:  1,
			Step: 0.001,
		}
	}
	return params
}

type paramSlot struct {
	desc     ParamDescriptor
	bits     atomic.Uint32
	dirty    atomic.Bool
	onChange atomic.Pointer[func()]
}

// ParamTracker holds the current value and a dirty flag for every
// parameter. Set and NotifyChanged may be called from any goroutine;
// ScanAndEmit belongs to the realtime goroutine.
type ParamTracker struct {
	slots []paramSlot
}

// NewParamTracker creates a tracker with one slot per descriptor, each
// initialised to its default value and clean.
func NewParamTracker(descs []ParamDescriptor) *ParamTracker {
	t := &ParamTracker{slots: make([]paramSlot, len(descs))}
	for i, d := range descs {
		s := &t.slots[i]
		s.desc = d
		s.bits.Store(math.Float32bits(d.Quantize(d.Default)))
		s.onChange.Store(t.notifier(i))
	}
	return t
}

// Len returns the number of parameters.
func (t *ParamTracker) Len() int { return len(t.slots) }

// Descriptor returns the descriptor of parameter i.
func (t *ParamTracker) Descriptor(i int) ParamDescriptor { return t.slots[i].desc }

// Index returns the index of the parameter called name.
func (t *ParamTracker) Index(name string) (int, bool) {
	for i := range t.slots {
		if t.slots[i].desc.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Value returns the current value of parameter i.
func (t *ParamTracker) Value(i int) float32 {
	return math.Float32frombits(t.slots[i].bits.Load())
}

// Set stores a new value for parameter i and runs its change hook. The
// value is quantized to the parameter's range and step.
func (t *ParamTracker) Set(i int, v float32) {
	s := &t.slots[i]
	s.bits.Store(math.Float32bits(s.desc.Quantize(v)))
	(*s.onChange.Load())()
}

// OnChange replaces the change hook of parameter i. It may be called
// while other goroutines call Set. The hook runs synchronously inside Set
// and must not block. A nil hook restores the default, which marks the
// parameter dirty.
func (t *ParamTracker) OnChange(i int, hook func()) {
	if hook == nil {
		t.slots[i].onChange.Store(t.notifier(i))
		return
	}
	t.slots[i].onChange.Store(&hook)
}

func (t *ParamTracker) notifier(i int) *func() {
	f := func() { t.NotifyChanged(i) }
	return &f
}

// NotifyChanged marks parameter i dirty. It never blocks or allocates.
func (t *ParamTracker) NotifyChanged(i int) {
	t.slots[i].dirty.Store(true)
}

// Dirty reports whether parameter i has a pending change.
func (t *ParamTracker) Dirty(i int) bool {
	return t.slots[i].dirty.Load()
}

// ScanAndEmit clears every dirty flag and sends one ParamChanged per
// cleared flag carrying the latest value. A flag whose message could not be
// sent stays cleared; the update is lost until the next change. It returns
// the number of messages sent and the first send error.
func (t *ParamTracker) ScanAndEmit(s Sender) (sent int, err error) {
	for i := range t.slots {
		slot := &t.slots[i]
		if !slot.dirty.CompareAndSwap(true, false) {
			continue
		}
		v := math.Float32frombits(slot.bits.Load())
		if serr := s.TrySend(ParamChanged(slot.desc.Name, v)); serr != nil {
			if err == nil {
				err = serr
			}
			continue
		}
		sent++
	}
	return sent, err
}
