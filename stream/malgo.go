// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/gen2brain/malgo"
	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/device"
)

const (
	malgoChannels = 2
	malgoRate     = 48000
)

// Malgo is a Backend on top of miniaudio. Capture devices are listed first,
// then playback devices; a physical device with both shows up twice.
type Malgo struct {
	mu      sync.Mutex
	log     slog.Logger
	ctx     *malgo.AllocatedContext
	entries []malgoEntry
	closed  bool
}

type malgoEntry struct {
	kind malgo.DeviceType
	info malgo.DeviceInfo
}

// NewMalgo creates a miniaudio context.
func NewMalgo(log slog.Logger) (*Malgo, error) {
	if log == nil {
		log = slog.Disabled
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		log.Tracef("miniaudio: %s", msg)
	})
	if err != nil {
		return nil, fmt.Errorf("initialize malgo context: %w", err)
	}
	return &Malgo{log: log, ctx: ctx}, nil
}

func (m *Malgo) Name() string { return "malgo" }

func (m *Malgo) Devices() ([]device.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}

	m.entries = m.entries[:0]
	var out []device.Device
	for _, kind := range []malgo.DeviceType{malgo.Capture, malgo.Playback} {
		infos, err := m.ctx.Devices(kind)
		if err != nil {
			return nil, fmt.Errorf("list %s devices: %w", kindName(kind), err)
		}
		for _, info := range infos {
			d := device.Device{
				Index:             len(m.entries),
				ID:                kindName(kind) + ":" + hex.EncodeToString(info.ID[:]),
				Name:              info.Name(),
				HostAPI:           "miniaudio",
				DefaultSampleRate: malgoRate,
			}
			if kind == malgo.Capture {
				d.MaxInputChannels = malgoChannels
				d.DefaultInput = info.IsDefault != 0
			} else {
				d.MaxOutputChannels = malgoChannels
				d.DefaultOutput = info.IsDefault != 0
			}
			m.entries = append(m.entries, malgoEntry{kind: kind, info: info})
			out = append(out, d)
		}
	}
	m.log.Debugf("miniaudio has %d devices", len(out))
	return out, nil
}

func kindName(kind malgo.DeviceType) string {
	if kind == malgo.Capture {
		return "capture"
	}
	return "playback"
}

func (m *Malgo) resolve(dev device.Device, kind malgo.DeviceType) (malgoEntry, error) {
	if m.closed {
		return malgoEntry{}, ErrClosed
	}
	if dev.Index < 0 || dev.Index >= len(m.entries) {
		return malgoEntry{}, ErrStaleDevice
	}
	e := m.entries[dev.Index]
	if e.kind != kind || e.info.Name() != dev.Name {
		return malgoEntry{}, ErrStaleDevice
	}
	return e, nil
}

func malgoFormat(t audio.SampleType) (malgo.FormatType, error) {
	switch t {
	case audio.Float32:
		return malgo.FormatF32, nil
	case audio.Int16:
		return malgo.FormatS16, nil
	}
	return malgo.FormatUnknown, fmt.Errorf("%w: sample type %s", ErrFormatNotSupported, t)
}

func (m *Malgo) OpenOutput(dev device.Device, f audio.Format, opts Options) (Output, error) {
	return m.open(dev, malgo.Playback, f, opts)
}

func (m *Malgo) OpenInput(dev device.Device, f audio.Format, opts Options) (Input, error) {
	return m.open(dev, malgo.Capture, f, opts)
}

func (m *Malgo) open(dev device.Device, kind malgo.DeviceType, f audio.Format, opts Options) (*malgoStream, error) {
	opts = opts.withDefaults()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, err := m.resolve(dev, kind)
	if err != nil {
		return nil, err
	}
	if f.Channels > malgoChannels {
		return nil, fmt.Errorf("%w: %d channels requested", ErrChannelLayout, f.Channels)
	}
	format, err := malgoFormat(f.Sample)
	if err != nil {
		return nil, err
	}

	c := newCore(f, opts)
	cfg := malgo.DefaultDeviceConfig(kind)
	cfg.SampleRate = uint32(f.SampleRate)
	cfg.Alsa.NoMMap = 1

	var data malgo.DataProc
	if kind == malgo.Playback {
		cfg.Playback.Format = format
		cfg.Playback.Channels = uint32(f.Channels)
		cfg.Playback.DeviceID = e.info.ID.Pointer()
		data = func(out, _ []byte, _ uint32) { c.render(out) }
	} else {
		cfg.Capture.Format = format
		cfg.Capture.Channels = uint32(f.Channels)
		cfg.Capture.DeviceID = e.info.ID.Pointer()
		data = func(_, in []byte, _ uint32) { c.capture(in) }
	}

	d, err := malgo.InitDevice(m.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: data,
		Stop: c.markDied,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormatNotSupported, err)
	}
	if err := d.Start(); err != nil {
		d.Uninit()
		return nil, fmt.Errorf("start device: %w", err)
	}
	c.markStarted()

	return &malgoStream{core: c, dev: d}, nil
}

func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	err := m.ctx.Uninit()
	m.ctx.Free()
	return err
}

type malgoStream struct {
	*core
	dev  *malgo.Device
	once sync.Once
}

func (s *malgoStream) Stop() error {
	s.markStopping()
	return s.dev.Stop()
}

func (s *malgoStream) Close() error {
	s.once.Do(func() {
		s.markStopping()
		s.dev.Uninit()
	})
	return nil
}
