// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/device"
)

// Source owns one capture stream, with the same never-fail construction as
// Sink.
type Source struct {
	dev    device.Device
	format audio.Format
	in     Input
	err    error
	closed bool
	log    slog.Logger
}

// NewSource opens dev for capture with format f.
func NewSource(b Backend, dev device.Device, f audio.Format, opts Options) *Source {
	opts = opts.withDefaults()
	s := &Source{dev: dev, format: f, log: opts.Log}

	switch {
	case dev.IsNull():
		s.err = s.wrap("open", ErrNoDevice)
	case !dev.Supports(device.Input):
		s.err = s.wrap("open", fmt.Errorf("%w: device has no input channels", ErrChannelLayout))
	default:
		if err := f.Validate(); err != nil {
			s.err = s.wrap("open", fmt.Errorf("%w: %w", ErrFormatNotSupported, err))
			break
		}
		in, err := b.OpenInput(dev, f, opts)
		if err != nil {
			s.err = s.wrap("open", err)
			break
		}
		s.in = in
	}

	if s.err != nil {
		s.log.Warnf("Cannot open source: %v", s.err)
	} else {
		s.log.Debugf("Opened source on %s at %s", dev, f)
	}
	return s
}

func (s *Source) wrap(op string, err error) error {
	return &DeviceError{Role: device.RoleInput, Device: s.dev, Op: op, Err: err}
}

func (s *Source) Device() device.Device { return s.dev }
func (s *Source) Format() audio.Format  { return s.format }
func (s *Source) usable() bool          { return s.in != nil && !s.closed && s.err == nil && !s.in.Stopped() }

func (s *Source) Err() error {
	if s.err != nil {
		return s.err
	}
	if s.in != nil && !s.closed && s.in.Stopped() {
		return s.wrap("capture", ErrStreamStopped)
	}
	return nil
}

func (s *Source) Message() string {
	if err := s.Err(); err != nil {
		return err.Error()
	}
	return ""
}

// Read copies up to len(p) captured bytes into p, in whole frames.
func (s *Source) Read(p []byte) int {
	if !s.usable() {
		return 0
	}
	return s.in.Read(p)
}

// Available returns the captured bytes waiting to be read.
func (s *Source) Available() int {
	if !s.usable() {
		return 0
	}
	return s.in.Buffered()
}

// WaitAvailable waits until n bytes have been captured.
func (s *Source) WaitAvailable(ctx context.Context, n int, poll, timeout time.Duration) error {
	if err := s.Err(); err != nil {
		return err
	}
	if s.closed {
		return s.wrap("capture", ErrClosed)
	}
	if n > s.in.Size() {
		return s.wrap("capture", fmt.Errorf("%w: %d > %d", ErrChunkTooLarge, n, s.in.Size()))
	}
	err := waitFor(ctx, func() bool { return s.in.Buffered() >= n }, s.Err, poll, timeout)
	if err == ErrTimeout {
		return s.wrap("capture", err)
	}
	return err
}

// Close stops the stream and releases it. Safe to call more than once.
func (s *Source) Close() {
	if s.in == nil || s.closed {
		s.closed = true
		return
	}
	s.closed = true
	if err := s.in.Stop(); err != nil {
		s.log.Warnf("Stopping source on %s: %v", s.dev, err)
	}
	if err := s.in.Close(); err != nil {
		s.log.Warnf("Closing source on %s: %v", s.dev, err)
	}
	s.log.Debugf("Closed source on %s", s.dev)
}
