// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/track"
	"github.com/ik5/soundbridge/utils"
)

// DefaultVolume is the initial gain of a file player.
const DefaultVolume = 0.3

// MediaFile plays one loaded track to the enabled output devices.
type MediaFile struct {
	opts      Options
	events    Events
	trackOpts []track.Option

	mu    sync.Mutex
	track *track.Context

	running    atomic.Bool
	mustUpdate atomic.Bool
	state      atomic.Int32  // track.State mirror for callers
	volume     atomic.Uint32 // float32 bits

	pendingState  mailbox[track.State]
	pendingVolume mailbox[float32]
}

// NewMediaFile creates a player with no track. trackOpts are passed to
// every track it loads.
func NewMediaFile(opts Options, events Events, trackOpts ...track.Option) *MediaFile {
	m := &MediaFile{
		opts:          opts.withDefaults(),
		events:        events,
		trackOpts:     trackOpts,
		pendingState:  newMailbox[track.State](),
		pendingVolume: newMailbox[float32](),
	}
	m.volume.Store(math.Float32bits(DefaultVolume))
	return m
}

func (m *MediaFile) Kind() Kind     { return KindMediaFile }
func (m *MediaFile) Stop()          { m.running.Store(false) }
func (m *MediaFile) UpdateDevices() { m.mustUpdate.Store(true) }

// State is the last state the track reported. It lags the loop.
func (m *MediaFile) State() track.State { return track.State(m.state.Load()) }

// Volume is the stored output gain.
func (m *MediaFile) Volume() float32 { return math.Float32frombits(m.volume.Load()) }

// Track returns the loaded track path, or "".
func (m *MediaFile) Track() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.track == nil {
		return ""
	}
	return m.track.Path()
}

// SetNewTrack releases the current track and loads path in the Stopped
// state. The loop must not be running.
func (m *MediaFile) SetNewTrack(path string) {
	m.mu.Lock()
	if m.track != nil {
		m.track.Stop()
	}
	m.track = track.New(path, m.trackOpts...)
	m.mu.Unlock()

	m.pendingState.Take()
	m.state.Store(int32(track.Stopped))
	m.opts.Log.Debugf("Loaded %s", path)
	m.events.state(track.Stopped)
}

// discardPending drops a state request left over from a previous run.
func (m *MediaFile) discardPending() { m.pendingState.Take() }

// SetTrackState queues a state request for the running loop. Only the
// latest request is kept.
func (m *MediaFile) SetTrackState(s track.State) { m.pendingState.Put(s) }

// SetVolume stores the gain and hands it to the loop, which applies it to
// open sinks. It is valid with no track loaded.
func (m *MediaFile) SetVolume(v float32) {
	v = utils.ClampGain(v)
	m.volume.Store(math.Float32bits(v))
	m.pendingVolume.Put(v)
}

// setState mirrors s and notifies when it changed.
func (m *MediaFile) setState(s track.State) {
	if track.State(m.state.Swap(int32(s))) != s {
		m.events.state(s)
	}
}

// Run plays the loaded track until it ends, is stopped or fails. With no
// track it returns at once. The track is Stopped when Run returns.
func (m *MediaFile) Run(ctx context.Context) (err error) {
	m.mu.Lock()
	tr := m.track
	m.mu.Unlock()
	if tr == nil {
		m.opts.Log.Debugf("No track loaded")
		return nil
	}

	log := m.opts.Log
	var outs outputs

	m.running.Store(true)
	m.mustUpdate.Store(true)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("media player panic: %v", r)
		}
		outs.close()
		tr.Stop()
		m.setState(track.Stopped)
		m.running.Store(false)
		if err != nil {
			log.Errorf("Media player %s: %v", tr.Path(), err)
			m.events.err(err)
		}
	}()

	if err := tr.SetState(track.Playing); err != nil {
		return err
	}
	m.setState(tr.State())

	for m.running.Load() && ctx.Err() == nil && tr.State() != track.Stopped {
		if m.mustUpdate.Swap(false) {
			outs.close()
			f := audio.Format{SampleRate: tr.SampleRate(), Channels: tr.Channels(), Sample: audio.Float32}
			if outs, err = openOutputs(m.opts, f, m.Volume()); err != nil {
				return err
			}
			log.Debugf("Playing %s to %d outputs at %s", tr.Path(), len(outs), f)
		}

		if err := outs.alive(); err != nil {
			return err
		}
		if v, ok := m.pendingVolume.Take(); ok {
			outs.setVolume(v)
		}
		if s, ok := m.pendingState.Take(); ok {
			if err := tr.SetState(s); err != nil {
				return err
			}
			m.setState(tr.State())
		}

		switch tr.State() {
		case track.Paused:
			sleep(ctx, m.opts.PollInterval)
			continue
		case track.Stopped:
			continue
		}

		frame, err := tr.ReadSamples()
		if err != nil {
			return err
		}
		if frame.Empty() {
			outs.drain(ctx, m.opts)
			tr.Stop()
			m.setState(track.Stopped)
			log.Debugf("Track %s ended", tr.Path())
			m.events.ended()
			return nil
		}
		if err := outs.write(ctx, frame.Data, m.opts); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}
