package main

import (
	"fmt"
	"math"
	"time"

	"github.com/chabad360/osc-bridge/bridge"
)

// host plays the part of a plugin host: it renders audio blocks, automates
// parameters and schedules notes at a fixed tempo.
type host struct {
	rate     float64
	block    int
	tone     float64
	lfo      float64
	beat     int // frames per beat
	position int
	note     uint8
	playing  bool

	audio  [][]float32
	events []bridge.NoteEvent
}

// blockPeriod returns the wall clock time one block of frames covers at
// rate. It rejects settings that would stall or overflow the host clock.
func blockPeriod(rate float64, block int, bpm float64) (time.Duration, error) {
	if block <= 0 {
		return 0, fmt.Errorf("block size must be positive, got %d", block)
	}
	if !(rate > 0) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("sample rate must be positive, got %g", rate)
	}
	if !(bpm > 0) || math.IsInf(bpm, 0) {
		return 0, fmt.Errorf("bpm must be positive, got %g", bpm)
	}
	period := time.Duration(float64(block) / rate * float64(time.Second))
	if period <= 0 {
		return 0, fmt.Errorf("block of %d frames at %g Hz is shorter than a nanosecond", block, rate)
	}
	return period, nil
}

func newHost(rate float64, block int, tone, bpm, lfo float64) *host {
	h := &host{
		rate:   rate,
		block:  block,
		tone:   tone,
		lfo:    lfo,
		beat:   int(rate * 60 / bpm),
		note:   60,
		audio:  [][]float32{make([]float32, block), make([]float32, block)},
		events: make([]bridge.NoteEvent, 0, 4),
	}
	if h.beat <= 0 {
		h.beat = block
	}
	return h
}

// next renders the following block and the note events falling into it.
func (h *host) next() ([][]float32, []bridge.NoteEvent) {
	h.events = h.events[:0]
	for i := 0; i < h.block; i++ {
		pos := h.position + i
		if pos%h.beat == 0 {
			h.toggleNote(uint32(i))
		}
		v := 0.0
		if h.playing {
			v = 0.5 * math.Sin(2*math.Pi*h.tone*float64(pos)/h.rate)
		}
		h.audio[0][i] = float32(v)
		h.audio[1][i] = float32(v)
	}
	h.position += h.block
	return h.audio, h.events
}

func (h *host) toggleNote(timing uint32) {
	if h.playing {
		h.events = append(h.events, bridge.NoteEvent{Kind: bridge.NoteEventOff, Timing: timing, Note: h.note})
		h.note = 60 + (h.note-60+7)%24
	} else {
		h.events = append(h.events, bridge.NoteEvent{Kind: bridge.NoteEventOn, Timing: timing, Note: h.note, Velocity: 0.8})
	}
	h.playing = !h.playing
}

// automate moves every parameter along a phase shifted sine at the LFO rate.
func (h *host) automate(p *bridge.ParamTracker) {
	t := float64(h.position) / h.rate
	for i := 0; i < p.Len(); i++ {
		phase := float64(i) / float64(p.Len())
		p.Set(i, float32(0.5+0.5*math.Sin(2*math.Pi*(h.lfo*t+phase))))
	}
}
