package bridge

import (
	"fmt"

	"github.com/chabad360/osc-bridge/internal/resample"
)

// Downsampler turns audio blocks into AudioSample messages at a control
// rate. Only the first channel is forwarded. Exact zeros are treated as
// silence and not sent.
type Downsampler struct {
	r     *resample.Resampler
	stats *Stats
}

// NewDownsampler creates a Downsampler from the host sample rate to
// outRate for blocks of up to maxBlock frames. stats may be nil.
func NewDownsampler(inRate, outRate, maxBlock, channels int, stats *Stats) (*Downsampler, error) {
	r, err := resample.New(inRate, outRate, maxBlock, channels)
	if err != nil {
		return nil, fmt.Errorf("bridge: downsampler: %w", err)
	}
	if stats == nil {
		stats = &Stats{}
	}
	return &Downsampler{r: r, stats: stats}, nil
}

// Process resamples block, block[channel][frame], and sends every non-zero
// sample of the first output channel. It stops at the first send error and
// returns it with the number of samples sent.
func (d *Downsampler) Process(block [][]float32, s Sender) (sent int, err error) {
	out, err := d.r.Process(block)
	if err != nil {
		return 0, err
	}
	if len(out) == 0 {
		return 0, nil
	}

	for _, v := range out[0] {
		if v == 0 {
			d.stats.ZeroSuppressed.Add(1)
			continue
		}
		if err = s.TrySend(AudioSample(v)); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

// OutputLen returns how many samples the next Process call produces for a
// block of frames, before zero suppression.
func (d *Downsampler) OutputLen(frames int) int {
	return d.r.OutputLen(frames)
}

// Reset drops buffered audio and filter history.
func (d *Downsampler) Reset() {
	d.r.Reset()
}
