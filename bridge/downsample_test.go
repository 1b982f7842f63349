package bridge

import (
	"errors"
	"math"
	"testing"

	"github.com/chabad360/osc-bridge/internal/resample"
)

func stereoBlock(frames, offset int, f func(i int) float32) [][]float32 {
	block := [][]float32{make([]float32, frames), make([]float32, frames)}
	for i := 0; i < frames; i++ {
		v := f(offset + i)
		block[0][i] = v
		block[1][i] = -v
	}
	return block
}

func TestDownsampler44100To100(t *testing.T) {
	run := func() []int {
		d, err := NewDownsampler(44100, 100, 512, 2, nil)
		if err != nil {
			t.Fatalf("NewDownsampler() error = %v", err)
		}
		var counts []int
		for b := 0; b < 20; b++ {
			block := stereoBlock(512, b*512, func(i int) float32 {
				return float32(0.5 + 0.25*math.Sin(2*math.Pi*3*float64(i)/44100))
			})
			want := d.OutputLen(512)
			var r recorder
			n, err := d.Process(block, &r)
			if err != nil {
				t.Fatalf("Process() block %d error = %v", b, err)
			}
			if n != len(r.msgs) || n > want {
				t.Fatalf("block %d: sent %d, recorded %d, OutputLen %d", b, n, len(r.msgs), want)
			}
			for _, m := range r.msgs {
				if m.Kind != KindAudioSample || m.Value == 0 {
					t.Fatalf("unexpected message %v", m)
				}
			}
			counts = append(counts, n)
		}
		return counts
	}

	first, second := run(), run()
	total := 0
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("output counts differ between runs: %v vs %v", first, second)
		}
		total += first[i]
	}
	if want := 20 * 512 / 441; total > want {
		t.Errorf("total output %d exceeds %d", total, want)
	}
}

func TestDownsamplerSuppressesZeros(t *testing.T) {
	stats := &Stats{}
	d, err := NewDownsampler(48000, 100, 4800, 2, stats)
	if err != nil {
		t.Fatal(err)
	}

	var r recorder
	for b := 0; b < 4; b++ {
		if _, err = d.Process(stereoBlock(4800, 0, func(int) float32 { return 0 }), &r); err != nil {
			t.Fatal(err)
		}
	}
	if len(r.msgs) != 0 {
		t.Errorf("silence produced %d audio messages", len(r.msgs))
	}
	if got := stats.ZeroSuppressed.Load(); got != 40 {
		t.Errorf("ZeroSuppressed = %d, want 40", got)
	}
}

func TestDownsamplerForwardsFirstChannel(t *testing.T) {
	d, err := NewDownsampler(48000, 1000, 4800, 2, nil)
	if err != nil {
		t.Fatal(err)
	}
	block := [][]float32{make([]float32, 4800), make([]float32, 4800)}
	for i := range block[0] {
		block[0][i] = 0.5
		block[1][i] = -0.5
	}

	var r recorder
	for i := 0; i < 3; i++ {
		r.msgs = r.msgs[:0]
		if _, err = d.Process(block, &r); err != nil {
			t.Fatal(err)
		}
	}
	if len(r.msgs) != 100 {
		t.Fatalf("sent %d samples, want 100", len(r.msgs))
	}
	for _, m := range r.msgs {
		if m.Value <= 0 {
			t.Fatalf("sample %v is not from the first channel", m.Value)
		}
	}
}

func TestDownsamplerStopsOnSendError(t *testing.T) {
	d, err := NewDownsampler(44100, 100, 4410, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	block := [][]float32{make([]float32, 4410)}
	for i := range block[0] {
		block[0][i] = 0.5
	}

	full := &failing{err: ErrChannelFull}
	n, err := d.Process(block, full)
	if !errors.Is(err, ErrChannelFull) || n != 0 {
		t.Fatalf("Process() = %d, %v, want 0, ErrChannelFull", n, err)
	}
	if full.calls != 1 {
		t.Errorf("TrySend called %d times after failure, want 1", full.calls)
	}
}

func TestNewDownsamplerInvalidRatio(t *testing.T) {
	tests := []struct {
		in, out int
	}{
		{100, 44100},
		{44100, 0},
		{44100, 44100},
	}
	for _, tt := range tests {
		d, err := NewDownsampler(tt.in, tt.out, 512, 2, nil)
		if err == nil || d != nil {
			t.Errorf("NewDownsampler(%d, %d) = %v, %v, want error", tt.in, tt.out, d, err)
		}
	}
	if _, err := NewDownsampler(100, 44100, 512, 2, nil); !errors.Is(err, resample.ErrInvalidRatio) {
		t.Errorf("error = %v, want ErrInvalidRatio", err)
	}
}
