package main

import (
	"math"
	"testing"
	"time"

	"github.com/chabad360/osc-bridge/bridge"
)

func TestHostSchedulesNotes(t *testing.T) {
	// one toggle every 1000 frames
	h := newHost(1000, 250, 10, 60, 1)

	var kinds []bridge.NoteEventKind
	for i := 0; i < 16; i++ {
		_, events := h.next()
		for _, ev := range events {
			kinds = append(kinds, ev.Kind)
			if ev.Timing != 0 {
				t.Errorf("block %d: Timing = %d, want 0", i, ev.Timing)
			}
		}
	}

	want := []bridge.NoteEventKind{bridge.NoteEventOn, bridge.NoteEventOff, bridge.NoteEventOn, bridge.NoteEventOff}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %v, want %v", i, kinds[i], want[i])
		}
	}
}

func TestHostSilentBetweenNotes(t *testing.T) {
	h := newHost(1000, 1000, 10, 60, 1)

	audio, _ := h.next()
	if audio[0][25] == 0 {
		t.Error("no tone while a note is held")
	}
	audio, _ = h.next()
	for i, v := range audio[0] {
		if v != 0 {
			t.Fatalf("sample %d = %v while no note is held", i, v)
		}
	}
}

func TestHostAutomation(t *testing.T) {
	h := newHost(48000, 512, 440, 120, 0.25)
	p := bridge.NewParamTracker(bridge.DefaultParams())

	h.automate(p)
	for i := 0; i < p.Len(); i++ {
		if v := p.Value(i); v < 0 || v > 1 {
			t.Errorf("param %d = %v out of range", i, v)
		}
		if !p.Dirty(i) {
			t.Errorf("param %d not marked dirty", i)
		}
	}
}

func TestBlockPeriod(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		block   int
		bpm     float64
		want    time.Duration
		wantErr bool
	}{
		{"default", 48000, 480, 120, 10 * time.Millisecond, false},
		{"zero block", 48000, 0, 120, 0, true},
		{"negative block", 48000, -1, 120, 0, true},
		{"zero rate", 0, 512, 120, 0, true},
		{"negative rate", -44100, 512, 120, 0, true},
		{"NaN rate", math.NaN(), 512, 120, 0, true},
		{"infinite rate", math.Inf(1), 512, 120, 0, true},
		{"zero bpm", 48000, 512, 0, 0, true},
		{"sub-nanosecond block", 1e12, 1, 120, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := blockPeriod(tt.rate, tt.block, tt.bpm)
			if (err != nil) != tt.wantErr {
				t.Fatalf("blockPeriod() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("blockPeriod() = %v, want %v", got, tt.want)
			}
		})
	}
}
