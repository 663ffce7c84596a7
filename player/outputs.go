// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"errors"

	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/device"
	"github.com/ik5/soundbridge/stream"
)

// outputs are the sinks one loop writes to, one per enabled output role.
type outputs []*stream.Sink

// openOutputs opens a sink for every enabled output role. On error the
// sinks opened so far are closed.
func openOutputs(opts Options, f audio.Format, volume float32) (outputs, error) {
	var outs outputs
	for _, role := range device.OutputRoles {
		if !opts.Devices.Enabled(role) {
			continue
		}
		s := stream.NewSink(opts.Backend, role, opts.Devices.Selected(role), f, opts.Stream)
		if err := s.Err(); err != nil {
			s.Close()
			outs.close()
			return nil, err
		}
		s.SetVolume(volume)
		outs = append(outs, s)
	}
	return outs, nil
}

// alive returns the first sink error.
func (o outputs) alive() error {
	for _, s := range o {
		if err := s.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (o outputs) setVolume(v float32) {
	for _, s := range o {
		s.SetVolume(v)
	}
}

// write waits for room on every sink, then writes p to each in pieces no
// larger than a sink buffer.
func (o outputs) write(ctx context.Context, p []byte, opts Options) error {
	for len(p) > 0 {
		n := len(p)
		for _, s := range o {
			n = min(n, s.Size())
		}
		for _, s := range o {
			if err := s.WaitFree(ctx, n, opts.PollInterval, opts.DrainTimeout); err != nil {
				return err
			}
		}
		for _, s := range o {
			if w := s.Write(p[:n]); w < n {
				opts.Log.Warnf("Short write to %s sink: %d of %d bytes", s.Role(), w, n)
			}
		}
		p = p[n:]
	}
	return nil
}

// drain waits until every sink played what it was given. Sinks that do
// not drain within the timeout are logged and left.
func (o outputs) drain(ctx context.Context, opts Options) {
	for _, s := range o {
		err := s.WaitDrained(ctx, opts.PollInterval, opts.DrainTimeout)
		switch {
		case errors.Is(err, stream.ErrTimeout):
			opts.Log.Warnf("%s sink did not drain within %v", s.Role(), opts.DrainTimeout)
		case err != nil:
			opts.Log.Debugf("Drain of %s sink ended: %v", s.Role(), err)
		}
	}
}

func (o *outputs) close() {
	for _, s := range *o {
		s.Close()
	}
	*o = nil
}
