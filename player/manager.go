// SPDX-License-Identifier: EPL-2.0

package player

import (
	"context"
	"errors"
	"sync"

	"github.com/decred/slog"
	"github.com/ik5/soundbridge/track"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNotMediaPlayer = errors.New("not a media file player")
	ErrManagerClosed  = errors.New("player manager closed")
)

// Manager owns the goroutine of one player. At most one run is active;
// a Start after Stop waits for the previous run to finish first.
type Manager struct {
	player Player
	log    slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu sync.Mutex
	// runMu orders g.Go against g.Wait.
	runMu     sync.Mutex
	g         errgroup.Group
	gen       uint64
	active    bool
	stopping  bool
	runCancel context.CancelFunc
	lastErr   error
	closed    bool
}

func NewManager(p Player, log slog.Logger) *Manager {
	if log == nil {
		log = slog.Disabled
	}
	m := &Manager{player: p, log: log}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.g.SetLimit(1)
	return m
}

func (m *Manager) Player() Player { return m.player }

func (m *Manager) media() (*MediaFile, error) {
	mf, ok := m.player.(*MediaFile)
	if !ok {
		return nil, ErrNotMediaPlayer
	}
	return mf, nil
}

// Running reports whether a run is active and not asked to stop.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active && !m.stopping
}

// Start runs the player. A media player that is already running toggles
// between playing and paused instead.
func (m *Manager) Start() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	if m.active && !m.stopping {
		m.mu.Unlock()
		if mf, ok := m.player.(*MediaFile); ok {
			mf.SetTrackState(track.Playing)
		}
		return nil
	}

	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(m.ctx)
	m.active, m.stopping, m.runCancel = true, false, cancel
	if mf, ok := m.player.(*MediaFile); ok {
		mf.discardPending()
	}
	m.mu.Unlock()

	m.log.Debugf("Starting %s player", m.player.Kind())
	m.runMu.Lock()
	defer m.runMu.Unlock()
	// blocks until a previous run has returned
	m.g.Go(func() error {
		err := m.player.Run(ctx)
		cancel()

		m.mu.Lock()
		m.lastErr = err
		if m.gen == gen {
			m.active, m.stopping = false, false
		}
		m.mu.Unlock()

		m.log.Debugf("%s player run ended", m.player.Kind())
		return nil
	})
	return nil
}

// Stop asks the player to stop without waiting.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return
	}
	m.stopping = true
	m.player.Stop()
	if m.runCancel != nil {
		m.runCancel()
	}
}

// Wait blocks until the current run, if any, has returned and reports the
// error it ended with.
func (m *Manager) Wait() error {
	m.runMu.Lock()
	_ = m.g.Wait()
	m.runMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Manager) StopAndWait() error {
	m.Stop()
	return m.Wait()
}

func (m *Manager) UpdateDevices() { m.player.UpdateDevices() }

// SetTrack stops the media player, waits for it and loads path.
func (m *Manager) SetTrack(path string) error {
	mf, err := m.media()
	if err != nil {
		return err
	}
	_ = m.StopAndWait()
	mf.SetNewTrack(path)
	return nil
}

// SetTrackState requests s. A play request on a stopped player starts it.
func (m *Manager) SetTrackState(s track.State) error {
	mf, err := m.media()
	if err != nil {
		return err
	}
	if m.Running() {
		mf.SetTrackState(s)
		return nil
	}
	if s == track.Stopped {
		return nil
	}
	return m.Start()
}

func (m *Manager) SetTrackVolume(v float32) error {
	mf, err := m.media()
	if err != nil {
		return err
	}
	mf.SetVolume(v)
	return nil
}

// State is the track state of a media player, or Playing/Stopped for the
// microphone depending on whether it runs.
func (m *Manager) State() track.State {
	if mf, ok := m.player.(*MediaFile); ok {
		return mf.State()
	}
	if m.Running() {
		return track.Playing
	}
	return track.Stopped
}

// Close stops the player, waits for it and refuses further starts.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.Stop()
	m.cancel()
	return m.Wait()
}
