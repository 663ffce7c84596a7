// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"fmt"
	"sync"

	"github.com/decred/slog"
	"github.com/gordonklaus/portaudio"
	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/device"
)

// PortAudio is a Backend on top of the PortAudio library. Only devices of
// the default host API are listed so that a device shows up once.
type PortAudio struct {
	mu      sync.Mutex
	log     slog.Logger
	devices []*portaudio.DeviceInfo
	open    int
	listed  bool
	closed  bool
}

// NewPortAudio initializes PortAudio. Close must be called to terminate it.
func NewPortAudio(log slog.Logger) (*PortAudio, error) {
	if log == nil {
		log = slog.Disabled
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize portaudio: %w", err)
	}
	return &PortAudio{log: log}, nil
}

func (p *PortAudio) Name() string { return "portaudio" }

// Devices lists the endpoints of the default host API. PortAudio caches
// its device list at initialization, so when no stream is open the library
// is restarted to pick up hardware changes.
func (p *PortAudio) Devices() ([]device.Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if p.listed && p.open == 0 {
		if err := portaudio.Terminate(); err != nil {
			p.log.Warnf("Terminating portaudio for rescan: %v", err)
		}
		if err := portaudio.Initialize(); err != nil {
			p.closed = true
			return nil, fmt.Errorf("reinitialize portaudio: %w", err)
		}
	}
	p.listed = true

	host, err := portaudio.DefaultHostApi()
	if err != nil {
		return nil, fmt.Errorf("default host api: %w", err)
	}
	all, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}

	p.devices = p.devices[:0]
	var out []device.Device
	for _, info := range all {
		if info.HostApi == nil || info.HostApi.Type != host.Type {
			continue
		}
		d := device.Device{
			Index:             len(p.devices),
			ID:                fmt.Sprintf("pa:%s:%s", host.Name, info.Name),
			Name:              info.Name,
			HostAPI:           host.Name,
			MaxInputChannels:  info.MaxInputChannels,
			MaxOutputChannels: info.MaxOutputChannels,
			DefaultSampleRate: info.DefaultSampleRate,
			InputLatency:      info.DefaultHighInputLatency,
			OutputLatency:     info.DefaultHighOutputLatency,
			DefaultInput:      host.DefaultInputDevice != nil && host.DefaultInputDevice.Name == info.Name,
			DefaultOutput:     host.DefaultOutputDevice != nil && host.DefaultOutputDevice.Name == info.Name,
		}
		p.devices = append(p.devices, info)
		out = append(out, d)
	}
	p.log.Debugf("PortAudio host %s has %d devices", host.Name, len(out))
	return out, nil
}

// resolve maps a snapshot back to the library's device, failing when the
// list changed since the snapshot was taken.
func (p *PortAudio) resolve(dev device.Device, dir device.Direction, channels int) (*portaudio.DeviceInfo, error) {
	if p.closed {
		return nil, ErrClosed
	}
	if dev.Index < 0 || dev.Index >= len(p.devices) || p.devices[dev.Index].Name != dev.Name {
		return nil, ErrStaleDevice
	}
	info := p.devices[dev.Index]
	maxCh := info.MaxOutputChannels
	if dir == device.Input {
		maxCh = info.MaxInputChannels
	}
	if channels > maxCh {
		return nil, fmt.Errorf("%w: %d channels requested, device has %d", ErrChannelLayout, channels, maxCh)
	}
	return info, nil
}

func (p *PortAudio) OpenOutput(dev device.Device, f audio.Format, opts Options) (Output, error) {
	return p.openStream(dev, device.Output, f, opts)
}

func (p *PortAudio) OpenInput(dev device.Device, f audio.Format, opts Options) (Input, error) {
	return p.openStream(dev, device.Input, f, opts)
}

func (p *PortAudio) openStream(dev device.Device, dir device.Direction, f audio.Format, opts Options) (*paStream, error) {
	opts = opts.withDefaults()

	p.mu.Lock()
	defer p.mu.Unlock()

	info, err := p.resolve(dev, dir, f.Channels)
	if err != nil {
		return nil, err
	}

	c := newCore(f, opts)
	params := portaudio.StreamParameters{
		SampleRate:      float64(f.SampleRate),
		FramesPerBuffer: 0, // let the host pick
	}
	sp := portaudio.StreamDeviceParameters{Device: info, Channels: f.Channels}

	var callback any
	if dir == device.Output {
		sp.Latency = info.DefaultHighOutputLatency
		params.Output = sp
		switch f.Sample {
		case audio.Float32:
			callback = c.renderFloat32
		case audio.Int16:
			callback = c.renderInt16
		}
	} else {
		sp.Latency = info.DefaultHighInputLatency
		params.Input = sp
		switch f.Sample {
		case audio.Float32:
			callback = c.captureFloat32
		case audio.Int16:
			callback = c.captureInt16
		}
	}
	if callback == nil {
		return nil, fmt.Errorf("%w: %s", ErrFormatNotSupported, f)
	}

	s, err := portaudio.OpenStream(params, callback)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormatNotSupported, err)
	}
	if err := s.Start(); err != nil {
		s.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	c.markStarted()
	p.open++

	return &paStream{core: c, stream: s, owner: p}, nil
}

func (p *PortAudio) release() {
	p.mu.Lock()
	p.open--
	p.mu.Unlock()
}

// Close terminates PortAudio. Streams must be closed first.
func (p *PortAudio) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if p.open > 0 {
		p.log.Warnf("Terminating portaudio with %d streams open", p.open)
	}
	return portaudio.Terminate()
}

type paStream struct {
	*core
	stream *portaudio.Stream
	owner  *PortAudio
	once   sync.Once
}

func (s *paStream) Stop() error {
	s.markStopping()
	return s.stream.Stop()
}

func (s *paStream) Close() error {
	var err error
	s.once.Do(func() {
		s.markStopping()
		err = s.stream.Close()
		s.owner.release()
	})
	return err
}
