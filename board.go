// SPDX-License-Identifier: EPL-2.0

package soundbridge

import (
	"errors"
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/ik5/soundbridge/device"
	"github.com/ik5/soundbridge/formats"
	"github.com/ik5/soundbridge/formats/ffmpeg"
	"github.com/ik5/soundbridge/internal/logger"
	"github.com/ik5/soundbridge/player"
	"github.com/ik5/soundbridge/stream"
	"github.com/ik5/soundbridge/track"
)

// PlayerID names one player of a Board.
type PlayerID int

// Microphone is the microphone passthrough player.
const Microphone PlayerID = 0

// File returns the ID of the i-th media file player, counting from 0.
func File(i int) PlayerID { return PlayerID(i + 1) }

func (id PlayerID) String() string {
	if id == Microphone {
		return "microphone"
	}
	return fmt.Sprintf("file %d", int(id)-1)
}

// Notifications are called from player goroutines. Each callback may be
// nil.
type Notifications struct {
	OnError             func(id PlayerID, message string)
	OnTrackEnded        func(id PlayerID)
	OnTrackStateChanged func(id PlayerID, s track.State)
}

// Board is the soundboard: one microphone player and a fixed number of
// media file players sharing a device registry and an audio backend.
type Board struct {
	cfg      Config
	backend  stream.Backend
	devices  *device.Registry
	managers []*player.Manager
	log      slog.Logger

	mu     sync.Mutex
	closed bool
}

// New enumerates devices and builds the players. The backend is closed by
// Board.Close.
func New(cfg Config, backend stream.Backend, n Notifications) (*Board, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrInvalidConfig)
	}

	b := &Board{
		cfg:     cfg,
		backend: backend,
		devices: device.NewRegistry(backend, cfg.logger(logger.Devices)),
		log:     cfg.logger(logger.Board),
	}
	if err := b.devices.Refresh(); err != nil {
		return nil, err
	}

	opts := player.Options{
		Backend: backend,
		Devices: b.devices,
		Stream: stream.Options{
			Buffer:       cfg.Buffer,
			StallTimeout: cfg.StallTimeout,
			Log:          cfg.logger(logger.Streams),
		},
		ChunkBytes:   cfg.ChunkBytes,
		PollInterval: cfg.PollInterval,
		DrainTimeout: cfg.DrainTimeout,
		Log:          cfg.logger(logger.Players),
	}

	registry := formats.NewRegistry(ffmpeg.Decoder{Binary: cfg.FFmpegPath})
	trackOpts := []track.Option{
		track.WithRegistry(registry),
		track.WithFramesPerRead(cfg.FramesPerRead),
		track.WithGain(cfg.TrackGain),
		track.WithSampleRate(cfg.ResampleRate),
		track.WithLogger(cfg.logger(logger.Tracks)),
	}

	b.managers = append(b.managers,
		player.NewManager(player.NewMicrophone(opts, b.events(Microphone, n)), opts.Log))
	for i := range cfg.FilePlayers {
		mf := player.NewMediaFile(opts, b.events(File(i), n), trackOpts...)
		mf.SetVolume(cfg.Volume)
		b.managers = append(b.managers, player.NewManager(mf, opts.Log))
	}

	// a new selection reopens the streams of running players
	b.devices.OnSelectionChanged(func(role device.Role, d device.Device) {
		b.log.Infof("Selected %s device: %s", role, d)
		b.updateDevices()
	})

	b.log.Infof("Soundboard ready on %s with %d file players", backend.Name(), cfg.FilePlayers)
	return b, nil
}

func (b *Board) events(id PlayerID, n Notifications) player.Events {
	return player.Events{
		OnError: func(err error) {
			b.log.Errorf("%s player: %v", id, err)
			if n.OnError != nil {
				n.OnError(id, err.Error())
			}
		},
		OnTrackEnded: func() {
			if n.OnTrackEnded != nil {
				n.OnTrackEnded(id)
			}
		},
		OnStateChanged: func(s track.State) {
			b.log.Debugf("%s player is %s", id, s)
			if n.OnTrackStateChanged != nil {
				n.OnTrackStateChanged(id, s)
			}
		},
	}
}

func (b *Board) manager(id PlayerID) (*player.Manager, error) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if id < 0 || int(id) >= len(b.managers) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPlayer, int(id))
	}
	return b.managers[id], nil
}

// FilePlayers returns the number of media file players.
func (b *Board) FilePlayers() int { return len(b.managers) - 1 }

// StartPlayer starts a player. Starting a running file player toggles
// between playing and paused.
func (b *Board) StartPlayer(id PlayerID) error {
	m, err := b.manager(id)
	if err != nil {
		return err
	}
	return m.Start()
}

// StopPlayer asks a player to stop and returns at once. Use
// WaitPlayerStopped to know when its devices are released.
func (b *Board) StopPlayer(id PlayerID) error {
	m, err := b.manager(id)
	if err != nil {
		return err
	}
	m.Stop()
	return nil
}

// WaitPlayerStopped blocks until the player's loop has returned and
// reports the error that ended it, already sent to OnError.
func (b *Board) WaitPlayerStopped(id PlayerID) error {
	m, err := b.manager(id)
	if err != nil {
		return err
	}
	return m.Wait()
}

// PlayerRunning reports whether a player's loop is active.
func (b *Board) PlayerRunning(id PlayerID) bool {
	m, err := b.manager(id)
	return err == nil && m.Running()
}

// SetTrack stops a file player, waits for it and loads path.
func (b *Board) SetTrack(id PlayerID, path string) error {
	m, err := b.manager(id)
	if err != nil {
		return err
	}
	return m.SetTrack(path)
}

// SetTrackState requests a track state. A play request starts a stopped
// file player.
func (b *Board) SetTrackState(id PlayerID, s track.State) error {
	m, err := b.manager(id)
	if err != nil {
		return err
	}
	return m.SetTrackState(s)
}

func (b *Board) SetTrackVolume(id PlayerID, v float32) error {
	m, err := b.manager(id)
	if err != nil {
		return err
	}
	return m.SetTrackVolume(v)
}

// TrackState returns the last reported state of a player.
func (b *Board) TrackState(id PlayerID) (track.State, error) {
	m, err := b.manager(id)
	if err != nil {
		return track.Stopped, err
	}
	return m.State(), nil
}

// RefreshDevices re-enumerates devices and makes every running player
// reopen its streams.
func (b *Board) RefreshDevices() error {
	if err := b.devices.Refresh(); err != nil {
		return err
	}
	b.updateDevices()
	return nil
}

// SelectDevice selects the index-th device of the role's direction.
func (b *Board) SelectDevice(role device.Role, index int) error {
	return b.devices.Select(role, index)
}

// SelectDeviceByName selects the first device named name for role.
func (b *Board) SelectDeviceByName(role device.Role, name string) error {
	return b.devices.SelectByName(role, name)
}

// EnableDevice turns a role on or off for every player.
func (b *Board) EnableDevice(role device.Role, on bool) {
	if b.devices.Enabled(role) == on {
		return
	}
	b.devices.SetEnabled(role, on)
	b.updateDevices()
}

// Devices lists the devices of a direction.
func (b *Board) Devices(dir device.Direction) []device.Device { return b.devices.List(dir) }

// SelectedDevice returns the device of role, or device.Null.
func (b *Board) SelectedDevice(role device.Role) device.Device { return b.devices.Selected(role) }

func (b *Board) updateDevices() {
	for _, m := range b.managers {
		m.UpdateDevices()
	}
}

// Close stops every player, waits for them and closes the backend.
func (b *Board) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	var errs []error
	for _, m := range b.managers {
		m.Stop()
	}
	for _, m := range b.managers {
		if err := m.Close(); err != nil {
			b.log.Debugf("Player ended with: %v", err)
		}
	}
	if err := b.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close %s backend: %w", b.backend.Name(), err))
	}
	b.log.Infof("Soundboard closed")
	return errors.Join(errs...)
}
