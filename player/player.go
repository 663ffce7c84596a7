// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/ik5/soundbridge/device"
	"github.com/ik5/soundbridge/stream"
	"github.com/ik5/soundbridge/track"
)

// Defaults for Options fields left zero.
const (
	DefaultChunkBytes   = 1024
	DefaultPollInterval = 2 * time.Millisecond
	DefaultDrainTimeout = 5 * time.Second
)

// Kind tags the two player variants.
type Kind int

const (
	KindMicrophone Kind = iota
	KindMediaFile
)

func (k Kind) String() string {
	switch k {
	case KindMicrophone:
		return "microphone"
	case KindMediaFile:
		return "media file"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Player is a device loop run by a Manager.
type Player interface {
	Kind() Kind
	// Run blocks until the loop ends. Errors are reported through Events
	// before they are returned.
	Run(ctx context.Context) error
	// Stop asks the loop to end at its next iteration.
	Stop()
	// UpdateDevices asks the loop to reopen its streams against the
	// current device selection.
	UpdateDevices()
}

// Events are called from the player goroutine.
type Events struct {
	OnError        func(error)
	OnTrackEnded   func()
	OnStateChanged func(track.State)
}

func (e Events) err(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}

func (e Events) ended() {
	if e.OnTrackEnded != nil {
		e.OnTrackEnded()
	}
}

func (e Events) state(s track.State) {
	if e.OnStateChanged != nil {
		e.OnStateChanged(s)
	}
}

// Options are shared by both players.
type Options struct {
	Backend stream.Backend
	Devices *device.Registry
	Stream  stream.Options

	// ChunkBytes is how much microphone audio moves per iteration.
	ChunkBytes int
	// PollInterval caps the backoff while waiting for buffer room.
	PollInterval time.Duration
	// DrainTimeout bounds every wait on a device buffer, including the
	// drain at the end of a track.
	DrainTimeout time.Duration

	Log slog.Logger
}

func (o Options) withDefaults() Options {
	if o.ChunkBytes <= 0 {
		o.ChunkBytes = DefaultChunkBytes
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = DefaultDrainTimeout
	}
	if o.Log == nil {
		o.Log = slog.Disabled
	}
	if o.Stream.Log == nil {
		o.Stream.Log = o.Log
	}
	return o
}

// sleep waits d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
