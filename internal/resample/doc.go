// Package resample provides a streaming fixed-ratio downsampler for turning
// audio-rate blocks into control-rate samples.
//
// The conversion works on fixed chunks: every chunkIn input frames produce
// exactly chunkOut output frames, where chunkIn/chunkOut is the reduced
// inRate/outRate ratio scaled to a minimum chunk size. Input blocks of any
// size up to the configured maximum are buffered until a chunk is complete,
// so the number of output frames for a call depends only on the total
// number of frames fed so far.
//
// Each chunk is band-limited with a windowed-sinc low-pass applied in the
// frequency domain (overlap-save FFT convolution) and then decimated by
// linear interpolation at the fixed output positions.
//
// All buffers are allocated in New; Process does not allocate.
package resample
