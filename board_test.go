// SPDX-License-Identifier: EPL-2.0

package soundbridge_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ik5/soundbridge"
	"github.com/ik5/soundbridge/device"
	"github.com/ik5/soundbridge/formats/wav"
	"github.com/ik5/soundbridge/stream"
	"github.com/ik5/soundbridge/stream/streamtest"
	"github.com/ik5/soundbridge/track"
)

type notes struct {
	mu     sync.Mutex
	errs   map[soundbridge.PlayerID][]string
	ended  map[soundbridge.PlayerID]int
	states map[soundbridge.PlayerID][]track.State
}

func newNotes() *notes {
	return &notes{
		errs:   map[soundbridge.PlayerID][]string{},
		ended:  map[soundbridge.PlayerID]int{},
		states: map[soundbridge.PlayerID][]track.State{},
	}
}

func (n *notes) callbacks() soundbridge.Notifications {
	return soundbridge.Notifications{
		OnError: func(id soundbridge.PlayerID, msg string) {
			n.mu.Lock()
			n.errs[id] = append(n.errs[id], msg)
			n.mu.Unlock()
		},
		OnTrackEnded: func(id soundbridge.PlayerID) {
			n.mu.Lock()
			n.ended[id]++
			n.mu.Unlock()
		},
		OnTrackStateChanged: func(id soundbridge.PlayerID, s track.State) {
			n.mu.Lock()
			n.states[id] = append(n.states[id], s)
			n.mu.Unlock()
		},
	}
}

func (n *notes) errors(id soundbridge.PlayerID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errs[id]...)
}

func (n *notes) endedCount(id soundbridge.PlayerID) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ended[id]
}

func (n *notes) statesOf(id soundbridge.PlayerID) []track.State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]track.State(nil), n.states[id]...)
}

func testConfig() soundbridge.Config {
	cfg := soundbridge.DefaultConfig()
	cfg.FilePlayers = 2
	cfg.PollInterval = time.Millisecond
	cfg.DrainTimeout = time.Second
	return cfg
}

func newBoard(t *testing.T) (*soundbridge.Board, *streamtest.Backend, *notes) {
	t.Helper()
	backend := streamtest.New(streamtest.Devices())
	n := newNotes()
	b, err := soundbridge.New(testConfig(), backend, n.callbacks())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b, backend, n
}

func writeClip(t *testing.T, frames int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := wav.WriteWAV16(f, 44100, 2, make([]int16, frames*2)); err != nil {
		t.Fatal(err)
	}
	return path
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*soundbridge.Config)
	}{
		{"negative players", func(c *soundbridge.Config) { c.FilePlayers = -1 }},
		{"zero chunk", func(c *soundbridge.Config) { c.ChunkBytes = 0 }},
		{"loud volume", func(c *soundbridge.Config) { c.Volume = 2 }},
		{"zero buffer", func(c *soundbridge.Config) { c.Buffer = 0 }},
		{"negative rate", func(c *soundbridge.Config) { c.ResampleRate = -8000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := soundbridge.DefaultConfig()
			tt.modify(&cfg)
			_, err := soundbridge.New(cfg, streamtest.New(streamtest.Devices()), soundbridge.Notifications{})
			if !errors.Is(err, soundbridge.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want %v", err, soundbridge.ErrInvalidConfig)
			}
		})
	}
}

func TestNew_EnumerationFails(t *testing.T) {
	t.Parallel()

	backend := streamtest.New(nil)
	backend.SetListError(errors.New("audio service down"))
	if _, err := soundbridge.New(testConfig(), backend, soundbridge.Notifications{}); err == nil {
		t.Error("New() error = nil, want enumeration error")
	}
}

func TestPlayerID_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id   soundbridge.PlayerID
		want string
	}{
		{soundbridge.Microphone, "microphone"},
		{soundbridge.File(0), "file 0"},
		{soundbridge.File(3), "file 3"},
	}
	for _, tt := range tests {
		if got := tt.id.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestBoard_UnknownPlayer(t *testing.T) {
	t.Parallel()

	b, _, _ := newBoard(t)
	for _, id := range []soundbridge.PlayerID{-1, soundbridge.File(2)} {
		if err := b.StartPlayer(id); !errors.Is(err, soundbridge.ErrUnknownPlayer) {
			t.Errorf("StartPlayer(%d) error = %v, want %v", id, err, soundbridge.ErrUnknownPlayer)
		}
	}
	if b.FilePlayers() != 2 {
		t.Errorf("FilePlayers() = %d, want 2", b.FilePlayers())
	}
}

func TestBoard_PlayTrack(t *testing.T) {
	t.Parallel()

	b, backend, n := newBoard(t)
	id := soundbridge.File(1)

	if err := b.SetTrackVolume(id, 0.3); err != nil {
		t.Fatalf("SetTrackVolume() with no track error = %v", err)
	}
	if err := b.SetTrack(id, writeClip(t, 4000)); err != nil {
		t.Fatalf("SetTrack() error = %v", err)
	}
	if s, _ := b.TrackState(id); s != track.Stopped {
		t.Fatalf("TrackState() = %v, want %v", s, track.Stopped)
	}
	if err := b.SetTrackState(id, track.Playing); err != nil {
		t.Fatalf("SetTrackState() error = %v", err)
	}

	waitFor(t, "track end", func() bool { return n.endedCount(id) == 1 })
	if err := b.WaitPlayerStopped(id); err != nil {
		t.Fatalf("WaitPlayerStopped() error = %v", err)
	}

	want := []track.State{track.Stopped, track.Playing, track.Stopped}
	got := n.statesOf(id)
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if n.endedCount(id) != 1 {
		t.Errorf("ended %d times, want 1", n.endedCount(id))
	}
	for _, idx := range []int{1, 2} {
		if got := len(backend.LastOutput(idx).Played()); got != 4000*8 {
			t.Errorf("device %d played %d bytes, want %d", idx, got, 4000*8)
		}
	}
	if errs := n.errors(id); len(errs) != 0 {
		t.Errorf("errors = %v, want none", errs)
	}
}

func TestBoard_DecodeErrorNotifies(t *testing.T) {
	t.Parallel()

	b, _, n := newBoard(t)
	id := soundbridge.File(0)
	if err := b.SetTrack(id, filepath.Join(t.TempDir(), "nope.wav")); err != nil {
		t.Fatal(err)
	}
	if err := b.StartPlayer(id); err != nil {
		t.Fatal(err)
	}
	err := b.WaitPlayerStopped(id)
	if !errors.Is(err, track.ErrDecode) {
		t.Fatalf("WaitPlayerStopped() error = %v, want %v", err, track.ErrDecode)
	}
	if errs := n.errors(id); len(errs) != 1 || errs[0] != err.Error() {
		t.Errorf("notified %q, want [%q]", errs, err.Error())
	}

	// a file player with no track does nothing
	if err := b.StartPlayer(soundbridge.File(1)); err != nil {
		t.Fatal(err)
	}
	if err := b.WaitPlayerStopped(soundbridge.File(1)); err != nil {
		t.Errorf("WaitPlayerStopped() error = %v, want nil", err)
	}
}

func TestBoard_MicrophoneDeviceChanges(t *testing.T) {
	t.Parallel()

	b, backend, n := newBoard(t)
	backend.Discard(true)

	if err := b.StartPlayer(soundbridge.Microphone); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "microphone audio", func() bool {
		out := backend.LastOutput(2)
		return out != nil && out.PlayedBytes() > 0
	})

	if err := b.RefreshDevices(); err != nil {
		t.Fatalf("RefreshDevices() error = %v", err)
	}
	waitFor(t, "reopened input", func() bool { return len(backend.Inputs(0)) == 2 })

	// the headset takes over as input
	if err := b.SelectDeviceByName(device.RoleInput, "Headset"); err != nil {
		t.Fatalf("SelectDeviceByName() error = %v", err)
	}
	waitFor(t, "headset input", func() bool { return backend.LastInput(3) != nil })
	// initial open, refresh, new input
	waitFor(t, "speakers reopened", func() bool { return len(backend.Outputs(2)) == 3 })

	b.EnableDevice(device.RolePhysical, false)
	waitFor(t, "input reopened without speakers", func() bool { return len(backend.Inputs(3)) == 2 })
	if got := len(backend.Outputs(2)); got != 3 {
		t.Errorf("speakers opened %d times after disabling, want 3", got)
	}

	if err := b.StopPlayer(soundbridge.Microphone); err != nil {
		t.Fatal(err)
	}
	if err := b.WaitPlayerStopped(soundbridge.Microphone); err != nil {
		t.Fatalf("WaitPlayerStopped() error = %v", err)
	}
	if backend.OpenCount() != 0 {
		t.Errorf("OpenCount() = %d, want 0", backend.OpenCount())
	}
	if errs := n.errors(soundbridge.Microphone); len(errs) != 0 {
		t.Errorf("errors = %v, want none", errs)
	}
}

func TestBoard_MicrophoneLosesDevice(t *testing.T) {
	t.Parallel()

	b, backend, n := newBoard(t)
	backend.Discard(true)
	if err := b.StartPlayer(soundbridge.Microphone); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "microphone input", func() bool { return backend.LastInput(0) != nil })

	backend.LastInput(0).Kill()
	err := b.WaitPlayerStopped(soundbridge.Microphone)
	if !errors.Is(err, stream.ErrStreamStopped) {
		t.Fatalf("WaitPlayerStopped() error = %v, want %v", err, stream.ErrStreamStopped)
	}
	if got := len(n.errors(soundbridge.Microphone)); got != 1 {
		t.Errorf("got %d error notifications, want 1", got)
	}
	if b.PlayerRunning(soundbridge.Microphone) {
		t.Error("PlayerRunning() = true after the device died")
	}
}

func TestBoard_Devices(t *testing.T) {
	t.Parallel()

	b, _, _ := newBoard(t)
	if got := len(b.Devices(device.Input)); got != 3 {
		t.Errorf("len(Devices(Input)) = %d, want 3", got)
	}
	if got := len(b.Devices(device.Output)); got != 3 {
		t.Errorf("len(Devices(Output)) = %d, want 3", got)
	}
	if err := b.SelectDevice(device.RoleCable, 2); err != nil {
		t.Fatalf("SelectDevice() error = %v", err)
	}
	if got := b.SelectedDevice(device.RoleCable).Name; got != "Headset" {
		t.Errorf("SelectedDevice(cable) = %q, want Headset", got)
	}
	if err := b.SelectDevice(device.RoleCable, 9); err == nil {
		t.Error("SelectDevice(9) error = nil, want error")
	}
}

func TestBoard_Close(t *testing.T) {
	t.Parallel()

	backend := streamtest.New(streamtest.Devices())
	backend.Discard(true)
	b, err := soundbridge.New(testConfig(), backend, soundbridge.Notifications{})
	if err != nil {
		t.Fatal(err)
	}
	if err := b.StartPlayer(soundbridge.Microphone); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "microphone input", func() bool { return backend.LastInput(0) != nil })

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if backend.OpenCount() != 0 {
		t.Errorf("OpenCount() = %d, want 0", backend.OpenCount())
	}
	if err := b.StartPlayer(soundbridge.Microphone); !errors.Is(err, soundbridge.ErrClosed) {
		t.Errorf("StartPlayer() after Close error = %v, want %v", err, soundbridge.ErrClosed)
	}
}
