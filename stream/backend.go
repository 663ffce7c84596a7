// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"time"

	"github.com/decred/slog"
	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/device"
)

// Defaults for Options fields left zero.
const (
	DefaultBuffer       = 200 * time.Millisecond
	DefaultStallTimeout = time.Second
	// MinBufferBytes keeps room for at least a few decoder frames.
	MinBufferBytes = 32 * 1024
)

// Backend is a platform audio API.
type Backend interface {
	device.Enumerator

	// OpenOutput opens and starts a playback stream.
	OpenOutput(dev device.Device, f audio.Format, opts Options) (Output, error)
	// OpenInput opens and starts a capture stream.
	OpenInput(dev device.Device, f audio.Format, opts Options) (Input, error)

	Name() string
	Close() error
}

// Options tune a device stream.
type Options struct {
	// Buffer is the length of the ring buffer between the caller and the
	// device callback.
	Buffer time.Duration
	// StallTimeout is how long a started stream may go without a device
	// callback before it is reported stopped. Negative disables the check.
	StallTimeout time.Duration
	Log          slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Buffer <= 0 {
		o.Buffer = DefaultBuffer
	}
	if o.StallTimeout == 0 {
		o.StallTimeout = DefaultStallTimeout
	}
	if o.Log == nil {
		o.Log = slog.Disabled
	}
	return o
}

// bufferBytes sizes a ring for f, rounded to whole frames.
func (o Options) bufferBytes(f audio.Format) int {
	n := max(f.BytesFor(o.Buffer), MinBufferBytes)
	if fb := f.BytesPerFrame(); fb > 0 {
		n -= n % fb
	}
	return n
}

// Output is an open playback stream. Write never blocks; it takes what
// fits in the buffer.
type Output interface {
	Format() audio.Format
	Write(p []byte) int
	Free() int
	Buffered() int
	Size() int
	// SetVolume sets a linear gain in [0,1] applied as samples leave the
	// buffer.
	SetVolume(v float32)
	// Stopped reports whether the stream is no longer running, asked to or
	// not.
	Stopped() bool
	Stop() error
	Close() error
}

// Input is an open capture stream. Read never blocks.
type Input interface {
	Format() audio.Format
	Read(p []byte) int
	Buffered() int
	Size() int
	Stopped() bool
	Stop() error
	Close() error
}
