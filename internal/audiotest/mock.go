// SPDX-License-Identifier: EPL-2.0

// Package audiotest has sample sources for tests. It does not import the
// audio package so that package's own tests can use it.
package audiotest

import (
	"io"
	"math"
	"sync/atomic"
)

// Waveform returns the value of one sample of one channel.
type Waveform func(frame, channel int) float32

// MockSource generates frames from a Waveform. It satisfies audio.Source.
type MockSource struct {
	sampleRate int
	channels   int
	frames     int // total per channel
	pos        int
	wave       Waveform

	failAt  int // frame at which reads fail, <0 never
	failErr error
	closes  *atomic.Int32
}

// NewMockSource returns a source of frames frames.
func NewMockSource(sampleRate, channels, frames int, wave Waveform) *MockSource {
	return &MockSource{
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		wave:       wave,
		failAt:     -1,
		closes:     new(atomic.Int32),
	}
}

func NewSilentSource(sampleRate, channels, frames int) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(int, int) float32 { return 0 })
}

func NewSineSource(sampleRate, channels, frames int, freq float64) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(frame, _ int) float32 {
		return float32(math.Sin(2 * math.Pi * freq * float64(frame) / float64(sampleRate)))
	})
}

func NewConstantSource(sampleRate, channels, frames int, v float32) *MockSource {
	return NewMockSource(sampleRate, channels, frames, func(int, int) float32 { return v })
}

// FailAt makes reads return err once frame has been reached.
func (m *MockSource) FailAt(frame int, err error) *MockSource {
	m.failAt = frame
	m.failErr = err
	return m
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }

// Close counts calls; see Closes.
func (m *MockSource) Close() error {
	m.closes.Add(1)
	return nil
}

// Closes returns how many times Close was called.
func (m *MockSource) Closes() int { return int(m.closes.Load()) }

// Reset rewinds to the first frame.
func (m *MockSource) Reset() { m.pos = 0 }

// ReadSamples fills whole frames of dst and returns io.EOF with the last
// ones.
func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.failAt >= 0 && m.pos >= m.failAt {
		return 0, m.failErr
	}
	if m.pos >= m.frames {
		return 0, io.EOF
	}

	n := min(len(dst)/m.channels, m.frames-m.pos)
	if m.failAt >= 0 {
		n = min(n, m.failAt-m.pos)
	}
	for f := range n {
		for ch := range m.channels {
			dst[f*m.channels+ch] = m.wave(m.pos+f, ch)
		}
	}
	m.pos += n

	if m.pos >= m.frames {
		return n * m.channels, io.EOF
	}
	return n * m.channels, nil
}

type source interface {
	SampleRate() int
	Channels() int
	BufSize() int
	Close() error
	ReadSamples(dst []float32) (int, error)
}

// ChunkedSource returns at most size samples per read from src, ignoring
// frame boundaries, the way stream decoders may.
type ChunkedSource struct {
	src     source
	size    int
	scratch []float32
	buf     []float32
	err     error
}

func NewChunkedSource(src source, size int) *ChunkedSource {
	return &ChunkedSource{
		src:     src,
		size:    max(size, 1),
		scratch: make([]float32, 64*max(src.Channels(), 1)),
	}
}

func (c *ChunkedSource) SampleRate() int { return c.src.SampleRate() }
func (c *ChunkedSource) Channels() int   { return c.src.Channels() }
func (c *ChunkedSource) BufSize() int    { return c.size }
func (c *ChunkedSource) Close() error    { return c.src.Close() }

func (c *ChunkedSource) ReadSamples(dst []float32) (int, error) {
	for len(c.buf) == 0 && c.err == nil {
		n, err := c.src.ReadSamples(c.scratch)
		c.buf = append(c.buf, c.scratch[:n]...)
		c.err = err
	}

	n := copy(dst[:min(len(dst), c.size)], c.buf)
	c.buf = c.buf[n:]
	if len(c.buf) == 0 && c.err != nil {
		return n, c.err
	}
	return n, nil
}
