package resample

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

var (
	// ErrInvalidRate indicates a non-positive input or output sample rate.
	ErrInvalidRate = errors.New("resample: invalid sample rate")
	// ErrInvalidRatio indicates a rate pair that cannot be downsampled with
	// bounded chunk and FFT sizes.
	ErrInvalidRatio = errors.New("resample: invalid ratio")
	// ErrInvalidLayout indicates a non-positive channel count or block size.
	ErrInvalidLayout = errors.New("resample: invalid channel layout")
	// ErrBlockTooLarge is returned by Process for blocks larger than the
	// maximum block size given to New.
	ErrBlockTooLarge = errors.New("resample: block exceeds maximum size")
	// ErrChannelMismatch is returned by Process when the block layout does
	// not match the configured channel count.
	ErrChannelMismatch = errors.New("resample: channel count mismatch")
)

const (
	defaultMinChunk    = 64
	defaultCutoffScale = 0.9
	defaultTapsPerStep = 8

	maxChunk = 1 << 16
	maxTaps  = 1<<14 + 1
)

type config struct {
	taps        int
	cutoffScale float64
	minChunk    int
}

// Option configures the resampler.
type Option func(*config)

// WithTaps overrides the low-pass filter length. Even values are rounded up
// to the next odd length.
func WithTaps(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.taps = n
		}
	}
}

// WithCutoffScale overrides the cutoff as a fraction in (0, 1] of the output
// Nyquist frequency.
func WithCutoffScale(v float64) Option {
	return func(cfg *config) {
		if v > 0 && v <= 1 {
			cfg.cutoffScale = v
		}
	}
}

// WithMinChunk sets the minimum number of input frames per chunk.
func WithMinChunk(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.minChunk = n
		}
	}
}

// Resampler converts planar float32 audio from inRate to a lower outRate.
// It keeps filter history and partial chunks between calls and is meant to
// be owned by a single goroutine.
type Resampler struct {
	inRate   int
	outRate  int
	channels int
	maxBlock int

	chunkIn  int
	chunkOut int
	taps     int
	fftSize  int

	plan      *algofft.Plan[complex128]
	kernelFFT []complex128
	work      []complex128
	freq      []complex128

	// decimation positions inside a filtered chunk
	pos  []int
	frac []float64

	history [][]float64
	pending [][]float64
	filled  int

	out [][]float32
}

// New creates a resampler from inRate to outRate for blocks of at most
// maxBlock frames with the given number of channels.
func New(inRate, outRate, maxBlock, channels int, opts ...Option) (*Resampler, error) {
	if inRate <= 0 || outRate <= 0 {
		return nil, fmt.Errorf("%w: %d -> %d", ErrInvalidRate, inRate, outRate)
	}
	if outRate >= inRate {
		return nil, fmt.Errorf("%w: %d -> %d is not a downsampling ratio", ErrInvalidRatio, inRate, outRate)
	}
	if channels <= 0 || maxBlock <= 0 {
		return nil, fmt.Errorf("%w: %d channels, %d frames", ErrInvalidLayout, channels, maxBlock)
	}

	cfg := config{cutoffScale: defaultCutoffScale, minChunk: defaultMinChunk}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	g := gcd(inRate, outRate)
	a, b := inRate/g, outRate/g
	k := (cfg.minChunk + a - 1) / a
	chunkIn, chunkOut := a*k, b*k
	if chunkIn > maxChunk {
		return nil, fmt.Errorf("%w: %d -> %d needs chunks of %d frames", ErrInvalidRatio, inRate, outRate, chunkIn)
	}

	taps := cfg.taps
	if taps == 0 {
		taps = defaultTapsPerStep*((inRate+outRate-1)/outRate) + 1
	}
	if taps%2 == 0 {
		taps++
	}
	if taps > maxTaps {
		taps = maxTaps
	}

	fftSize := nextPowerOf2(chunkIn + taps - 1)
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("resample: failed to create FFT plan: %w", err)
	}

	r := &Resampler{
		inRate:    inRate,
		outRate:   outRate,
		channels:  channels,
		maxBlock:  maxBlock,
		chunkIn:   chunkIn,
		chunkOut:  chunkOut,
		taps:      taps,
		fftSize:   fftSize,
		plan:      plan,
		kernelFFT: make([]complex128, fftSize),
		work:      make([]complex128, fftSize),
		freq:      make([]complex128, fftSize),
		pos:       make([]int, chunkOut),
		frac:      make([]float64, chunkOut),
		history:   make([][]float64, channels),
		pending:   make([][]float64, channels),
		out:       make([][]float32, channels),
	}

	outCap := (maxBlock/chunkIn + 1) * chunkOut
	for ch := 0; ch < channels; ch++ {
		r.history[ch] = make([]float64, taps-1)
		r.pending[ch] = make([]float64, chunkIn)
		r.out[ch] = make([]float32, 0, outCap)
	}

	// Output j of a chunk sits at input position j*chunkIn/chunkOut.
	for j := 0; j < chunkOut; j++ {
		num := j * chunkIn
		r.pos[j] = num / chunkOut
		r.frac[j] = float64(num%chunkOut) / float64(chunkOut)
	}

	cutoff := cfg.cutoffScale * 0.5 * float64(outRate) / float64(inRate)
	if err = r.designKernel(cutoff); err != nil {
		return nil, err
	}

	return r, nil
}

// designKernel computes the frequency response of a Blackman windowed-sinc
// low-pass with unity DC gain. cutoff is normalized to the input rate.
func (r *Resampler) designKernel(cutoff float64) error {
	h := make([]float64, r.taps)
	w := make([]float64, r.taps)
	m := float64(r.taps-1) / 2

	for n := range h {
		x := float64(n) - m
		if x == 0 {
			h[n] = 2 * cutoff
		} else {
			h[n] = math.Sin(2*math.Pi*cutoff*x) / (math.Pi * x)
		}
		phi := 2 * math.Pi * float64(n) / float64(r.taps-1)
		w[n] = 0.42 - 0.5*math.Cos(phi) + 0.08*math.Cos(2*phi)
	}
	vecmath.MulBlockInPlace(h, w)

	var sum float64
	for _, v := range h {
		sum += v
	}
	if sum == 0 {
		return fmt.Errorf("%w: degenerate filter", ErrInvalidRatio)
	}
	vecmath.ScaleBlock(h, h, 1/sum)

	padded := make([]complex128, r.fftSize)
	for i, v := range h {
		padded[i] = complex(v, 0)
	}

	if err := r.plan.Forward(r.kernelFFT, padded); err != nil {
		return fmt.Errorf("resample: failed to compute kernel FFT: %w", err)
	}
	return nil
}

// Process consumes one block of planar audio, block[channel][frame], and
// returns the output frames completed by it, out[channel][frame]. The
// returned slices are owned by the Resampler and valid until the next call.
func (r *Resampler) Process(block [][]float32) ([][]float32, error) {
	if len(block) != r.channels {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrChannelMismatch, len(block), r.channels)
	}
	frames := len(block[0])
	for _, ch := range block[1:] {
		if len(ch) != frames {
			return nil, fmt.Errorf("%w: ragged block", ErrChannelMismatch)
		}
	}
	if frames > r.maxBlock {
		return nil, fmt.Errorf("%w: %d > %d", ErrBlockTooLarge, frames, r.maxBlock)
	}

	for ch := range r.out {
		r.out[ch] = r.out[ch][:0]
	}

	for i := 0; i < frames; {
		n := min(r.chunkIn-r.filled, frames-i)
		for ch, in := range block {
			dst := r.pending[ch][r.filled : r.filled+n]
			for k, v := range in[i : i+n] {
				dst[k] = float64(v)
			}
		}
		r.filled += n
		i += n

		if r.filled == r.chunkIn {
			if err := r.processChunk(); err != nil {
				return r.out, err
			}
			r.filled = 0
		}
	}

	return r.out, nil
}

// processChunk filters the pending chunk of every channel and appends
// chunkOut decimated frames to the output buffers.
func (r *Resampler) processChunk() error {
	hist := r.taps - 1

	for ch := 0; ch < r.channels; ch++ {
		history, pending := r.history[ch], r.pending[ch]

		for i, v := range history {
			r.work[i] = complex(v, 0)
		}
		for i, v := range pending {
			r.work[hist+i] = complex(v, 0)
		}
		for i := hist + r.chunkIn; i < r.fftSize; i++ {
			r.work[i] = 0
		}

		if err := r.plan.Forward(r.freq, r.work); err != nil {
			return fmt.Errorf("resample: forward FFT failed: %w", err)
		}
		for i := range r.freq {
			r.freq[i] *= r.kernelFFT[i]
		}
		if err := r.plan.Inverse(r.work, r.freq); err != nil {
			return fmt.Errorf("resample: inverse FFT failed: %w", err)
		}

		// The first hist samples are circular convolution artifacts.
		valid := r.work[hist:]
		for j, p := range r.pos {
			f := r.frac[j]
			y := real(valid[p])
			if f != 0 {
				y = (1-f)*y + f*real(valid[p+1])
			}
			r.out[ch] = append(r.out[ch], float32(y))
		}

		if r.chunkIn >= hist {
			copy(history, pending[r.chunkIn-hist:])
		} else {
			copy(history, history[r.chunkIn:])
			copy(history[hist-r.chunkIn:], pending)
		}
	}

	return nil
}

// Reset clears filter history and any buffered partial chunk.
func (r *Resampler) Reset() {
	for ch := range r.history {
		clear(r.history[ch])
		clear(r.pending[ch])
		r.out[ch] = r.out[ch][:0]
	}
	r.filled = 0
}

// OutputLen returns the number of frames the next Process call will return
// for a block of the given number of frames.
func (r *Resampler) OutputLen(frames int) int {
	if frames <= 0 {
		return 0
	}
	return (r.filled + frames) / r.chunkIn * r.chunkOut
}

// ChunkSize returns the fixed number of input and output frames per chunk.
func (r *Resampler) ChunkSize() (in, out int) {
	return r.chunkIn, r.chunkOut
}

// Rates returns the input and output sample rates.
func (r *Resampler) Rates() (in, out int) {
	return r.inRate, r.outRate
}

// Channels returns the configured channel count.
func (r *Resampler) Channels() int { return r.channels }

// Taps returns the low-pass filter length.
func (r *Resampler) Taps() int { return r.taps }

// FFTSize returns the FFT size used per chunk.
func (r *Resampler) FFTSize() int { return r.fftSize }

// Latency returns the filter group delay in input frames.
func (r *Resampler) Latency() int { return (r.taps - 1) / 2 }

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func nextPowerOf2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
