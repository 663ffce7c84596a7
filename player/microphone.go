// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/ik5/soundbridge/device"
	"github.com/ik5/soundbridge/stream"
)

// Microphone forwards the input device to the enabled output devices.
type Microphone struct {
	opts   Options
	events Events

	running    atomic.Bool
	mustUpdate atomic.Bool
	chunks     atomic.Int64
}

func NewMicrophone(opts Options, events Events) *Microphone {
	return &Microphone{opts: opts.withDefaults(), events: events}
}

func (m *Microphone) Kind() Kind     { return KindMicrophone }
func (m *Microphone) Stop()          { m.running.Store(false) }
func (m *Microphone) UpdateDevices() { m.mustUpdate.Store(true) }

// Chunks returns how many chunks were forwarded since creation.
func (m *Microphone) Chunks() int64 { return m.chunks.Load() }

func (m *Microphone) Run(ctx context.Context) (err error) {
	var (
		src  *stream.Source
		outs outputs
	)
	log := m.opts.Log

	m.running.Store(true)
	m.mustUpdate.Store(true)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("microphone player panic: %v", r)
		}
		if src != nil {
			src.Close()
		}
		outs.close()
		m.running.Store(false)
		if err != nil {
			log.Errorf("Microphone player: %v", err)
			m.events.err(err)
		}
		log.Debugf("Microphone player stopped")
	}()

	var chunk []byte
	for m.running.Load() && ctx.Err() == nil {
		if m.mustUpdate.Swap(false) {
			if src != nil {
				src.Close()
				src = nil
			}
			outs.close()
			if src, outs, err = m.open(); err != nil {
				return err
			}
			if src != nil {
				fb := src.Format().BytesPerFrame()
				chunk = make([]byte, max(fb, m.opts.ChunkBytes-m.opts.ChunkBytes%fb))
			}
		}

		// input disabled: idle until told otherwise
		if src == nil {
			sleep(ctx, m.opts.PollInterval)
			continue
		}

		if err := src.WaitAvailable(ctx, len(chunk), m.opts.PollInterval, m.opts.DrainTimeout); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		n := src.Read(chunk)
		if err := outs.alive(); err != nil {
			return err
		}
		if err := outs.write(ctx, chunk[:n], m.opts); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		m.chunks.Add(1)
	}
	return nil
}

// open opens the input and every enabled output at the input's format. A
// disabled input yields a nil source and no sinks.
func (m *Microphone) open() (*stream.Source, outputs, error) {
	reg := m.opts.Devices
	if !reg.Enabled(device.RoleInput) {
		m.opts.Log.Debugf("Microphone input disabled")
		return nil, nil, nil
	}

	in := reg.Selected(device.RoleInput)
	src := stream.NewSource(m.opts.Backend, in, in.PreferredFormat(device.Input), m.opts.Stream)
	if err := src.Err(); err != nil {
		src.Close()
		return nil, nil, err
	}

	outs, err := openOutputs(m.opts, src.Format(), 1)
	if err != nil {
		src.Close()
		return nil, nil, err
	}
	m.opts.Log.Debugf("Microphone %s feeding %d outputs at %s", in, len(outs), src.Format())
	return src, outs, nil
}
