// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/device"
	"github.com/ik5/soundbridge/utils"
)

// Sink owns one playback stream. Construction never fails: when the device
// cannot be opened the error is kept and every operation becomes a no-op
// until the Sink is closed and a new one is made.
type Sink struct {
	role   device.Role
	dev    device.Device
	format audio.Format
	out    Output
	err    error
	closed bool
	volume float32
	log    slog.Logger
}

// NewSink opens dev for role with format f.
func NewSink(b Backend, role device.Role, dev device.Device, f audio.Format, opts Options) *Sink {
	opts = opts.withDefaults()
	s := &Sink{role: role, dev: dev, format: f, volume: 1, log: opts.Log}

	switch {
	case dev.IsNull():
		s.err = s.wrap("open", ErrNoDevice)
	case !dev.Supports(device.Output):
		s.err = s.wrap("open", fmt.Errorf("%w: device has no output channels", ErrChannelLayout))
	default:
		if err := f.Validate(); err != nil {
			s.err = s.wrap("open", fmt.Errorf("%w: %w", ErrFormatNotSupported, err))
			break
		}
		out, err := b.OpenOutput(dev, f, opts)
		if err != nil {
			s.err = s.wrap("open", err)
			break
		}
		s.out = out
	}

	if s.err != nil {
		s.log.Warnf("Cannot open %s sink: %v", role, s.err)
	} else {
		s.log.Debugf("Opened %s sink on %s at %s", role, dev, f)
	}
	return s
}

func (s *Sink) wrap(op string, err error) error {
	return &DeviceError{Role: s.role, Device: s.dev, Op: op, Err: err}
}

func (s *Sink) Role() device.Role     { return s.role }
func (s *Sink) Device() device.Device { return s.dev }
func (s *Sink) Format() audio.Format  { return s.format }
func (s *Sink) Volume() float32       { return s.volume }
func (s *Sink) usable() bool          { return s.out != nil && !s.closed && s.err == nil && !s.out.Stopped() }
func (s *Sink) Size() int {
	if s.out == nil {
		return 0
	}
	return s.out.Size()
}

// Err returns the open error, or a DeviceError wrapping ErrStreamStopped
// when the stream stopped without being closed.
func (s *Sink) Err() error {
	if s.err != nil {
		return s.err
	}
	if s.out != nil && !s.closed && s.out.Stopped() {
		return s.wrap("play", ErrStreamStopped)
	}
	return nil
}

// Message is Err as text, or "" for a healthy sink.
func (s *Sink) Message() string {
	if err := s.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// Write queues p and returns how many bytes were taken. Callers wait for
// room first; a dead sink takes nothing.
func (s *Sink) Write(p []byte) int {
	if !s.usable() {
		return 0
	}
	return s.out.Write(p)
}

// BytesFree is the buffer room left; 0 for a dead sink.
func (s *Sink) BytesFree() int {
	if !s.usable() {
		return 0
	}
	return s.out.Free()
}

// Full reports whether fewer than n bytes are free. A dead sink is full.
func (s *Sink) Full(n int) bool { return s.BytesFree() < n }

// Drained reports whether everything written has been played. A dead sink
// has nothing left to play.
func (s *Sink) Drained() bool {
	if !s.usable() {
		return true
	}
	return s.out.Buffered() == 0
}

// SetVolume sets a linear gain in [0,1]. It is remembered even when the
// sink is dead.
func (s *Sink) SetVolume(v float32) {
	s.volume = utils.ClampGain(v)
	if s.out != nil && !s.closed {
		s.out.SetVolume(s.volume)
	}
}

// WaitFree waits until n bytes are free.
func (s *Sink) WaitFree(ctx context.Context, n int, poll, timeout time.Duration) error {
	if err := s.Err(); err != nil {
		return err
	}
	if s.closed {
		return s.wrap("write", ErrClosed)
	}
	if n > s.out.Size() {
		return s.wrap("write", fmt.Errorf("%w: %d > %d", ErrChunkTooLarge, n, s.out.Size()))
	}
	err := waitFor(ctx, func() bool { return s.out.Free() >= n }, s.Err, poll, timeout)
	if err == ErrTimeout {
		return s.wrap("write", err)
	}
	return err
}

// WaitDrained waits until the buffer is empty or the sink dies.
func (s *Sink) WaitDrained(ctx context.Context, poll, timeout time.Duration) error {
	err := waitFor(ctx, s.Drained, func() error { return nil }, poll, timeout)
	if err == ErrTimeout {
		return s.wrap("drain", err)
	}
	return err
}

// Close stops the stream and releases it. Safe to call more than once.
func (s *Sink) Close() {
	if s.out == nil || s.closed {
		s.closed = true
		return
	}
	s.closed = true
	if err := s.out.Stop(); err != nil {
		s.log.Warnf("Stopping %s sink on %s: %v", s.role, s.dev, err)
	}
	if err := s.out.Close(); err != nil {
		s.log.Warnf("Closing %s sink on %s: %v", s.role, s.dev, err)
	}
	s.log.Debugf("Closed %s sink on %s", s.role, s.dev)
}
