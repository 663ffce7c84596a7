// SPDX-License-Identifier: EPL-2.0

package track

import (
	"errors"
	"io"

	"github.com/decred/slog"
	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/formats"
	"github.com/ik5/soundbridge/formats/ffmpeg"
)

const (
	// DefaultFramesPerRead is the frame count returned by one ReadSamples.
	DefaultFramesPerRead = 1024

	outChannels = 2
	// maxEmptyReads bounds decoder reads that return nothing without EOF.
	// Past it the decoder is considered stuck.
	maxEmptyReads = 8
)

// Option configures a Context.
type Option func(*Context)

// WithRegistry decodes through r instead of the default registry.
func WithRegistry(r *audio.Registry) Option {
	return func(c *Context) { c.registry = r }
}

// WithFramesPerRead sets how many frames ReadSamples returns at most.
func WithFramesPerRead(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.framesPerRead = n
		}
	}
}

// WithGain sets a linear gain applied to every decoded sample.
func WithGain(g float32) Option {
	return func(c *Context) { c.gain = max(g, 0) }
}

// WithSampleRate resamples to rate. Zero keeps the decoder's rate.
func WithSampleRate(rate int) Option {
	return func(c *Context) { c.fixedRate = max(rate, 0) }
}

func WithLogger(log slog.Logger) Option {
	return func(c *Context) {
		if log != nil {
			c.log = log
		}
	}
}

// Context is one media file loaded into a file player. Decoded audio is
// always interleaved stereo float32 at the decoder's rate, unless a fixed
// rate was requested.
//
// A Context is owned by one goroutine at a time and is not safe for
// concurrent use.
type Context struct {
	path          string
	registry      *audio.Registry
	framesPerRead int
	gain          float32
	fixedRate     int
	log           slog.Logger

	state      State
	src        audio.Source
	sampleRate int
	eof        bool

	// tail holds the samples of a frame split across two decoder reads.
	tail  [outChannels]float32
	tailN int

	samples []float32
	data    []byte
}

// New creates a stopped Context for path. Nothing is opened until the
// first play request.
func New(path string, opts ...Option) *Context {
	c := &Context{
		path:          path,
		framesPerRead: DefaultFramesPerRead,
		gain:          1,
		log:           slog.Disabled,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.registry == nil {
		c.registry = formats.NewRegistry(ffmpeg.Decoder{})
	}
	return c
}

func (c *Context) Path() string  { return c.path }
func (c *Context) State() State  { return c.state }
func (c *Context) Channels() int { return outChannels }

// SampleRate of the decoded audio. It keeps the last value after the
// track is closed and is 0 before the first successful play.
func (c *Context) SampleRate() int { return c.sampleRate }

// Closed reports whether all decode resources are released.
func (c *Context) Closed() bool { return c.src == nil }

// Play opens the file if needed and moves to Playing. On failure every
// partially opened resource is released, the state is Stopped and a
// *DecodeError is returned.
func (c *Context) Play() error {
	if c.src != nil {
		c.state = Playing
		return nil
	}

	src, err := c.registry.Open(c.path)
	if err != nil {
		return c.fail("open", err)
	}
	if src.SampleRate() <= 0 || src.Channels() <= 0 {
		src.Close()
		return c.fail("probe", ErrNoAudioStream)
	}

	if src.Channels() != outChannels {
		c.log.Debugf("Mixing %d channels of %s to stereo", src.Channels(), c.path)
		src = audio.NewStereoMixer(src)
	}
	if c.fixedRate > 0 && c.fixedRate != src.SampleRate() {
		c.log.Debugf("Resampling %s from %d Hz to %d Hz", c.path, src.SampleRate(), c.fixedRate)
		src = audio.NewResampler(src, c.fixedRate)
	}

	c.src = src
	c.eof = false
	c.sampleRate = src.SampleRate()
	c.state = Playing
	c.log.Debugf("Opened %s at %d Hz", c.path, c.sampleRate)
	return nil
}

func (c *Context) fail(op string, err error) error {
	c.release()
	c.state = Stopped
	return &DecodeError{Path: c.path, Op: op, Err: err}
}

func (c *Context) release() {
	if c.src == nil {
		return
	}
	if err := c.src.Close(); err != nil {
		c.log.Warnf("Closing %s: %v", c.path, err)
	}
	c.src = nil
	c.tailN = 0
	c.log.Debugf("Released %s", c.path)
}

// Stop releases every decode resource. Calling it again does nothing.
func (c *Context) Stop() {
	c.release()
	c.state = Stopped
}

// SetState requests a state change. Stopped always stops. From Stopped
// any other request plays; while active any other request toggles
// between Playing and Paused.
func (c *Context) SetState(s State) error {
	if s == Stopped {
		c.Stop()
		return nil
	}
	switch c.state {
	case Stopped:
		return c.Play()
	case Playing:
		c.state = Paused
	case Paused:
		c.state = Playing
	}
	return nil
}

// ReadSamples returns the next chunk of decoded audio. The frame data is
// reused by the next call. At the end of the file it releases the decoder
// and returns an empty frame with a nil error; a stopped track keeps
// returning empty frames. A decode failure stops the track and returns a
// *DecodeError.
func (c *Context) ReadSamples() (audio.Frame, error) {
	if c.src == nil {
		return audio.Frame{SampleRate: c.sampleRate, Channels: outChannels}, nil
	}
	if c.eof {
		c.release()
		return audio.Frame{SampleRate: c.sampleRate, Channels: outChannels}, nil
	}

	want := c.framesPerRead * outChannels
	if len(c.samples) != want+outChannels {
		c.samples = make([]float32, want+outChannels)
		c.data = make([]byte, want*4)
	}

	// Decoders count samples, not frames. A split frame is carried into
	// the next read so channels stay aligned.
	head := copy(c.samples, c.tail[:c.tailN])
	c.tailN = 0

	var (
		n     = head
		err   error
		empty int
	)
	for n < outChannels && err == nil {
		var k int
		k, err = c.src.ReadSamples(c.samples[n : head+want])
		n += k
		if k > 0 || err != nil {
			continue
		}
		if empty++; empty == maxEmptyReads {
			return audio.Frame{}, c.fail("read", io.ErrNoProgress)
		}
	}

	rem := n % outChannels
	n -= rem
	if rem > 0 && err == nil {
		c.tailN = copy(c.tail[:], c.samples[n:n+rem])
	}

	switch {
	case errors.Is(err, io.EOF):
		c.eof = true
	case err != nil:
		return audio.Frame{}, c.fail("read", err)
	}
	if n == 0 {
		c.release()
		c.log.Debugf("End of %s", c.path)
		return audio.Frame{SampleRate: c.sampleRate, Channels: outChannels}, nil
	}

	audio.ApplyGain(c.samples[:n], c.gain)
	audio.PutFloat32s(c.data, c.samples[:n])

	return audio.Frame{
		Data:        c.data[:n*4],
		SampleCount: n / outChannels,
		SampleRate:  c.sampleRate,
		Channels:    outChannels,
	}, nil
}
