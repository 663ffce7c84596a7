// SPDX-License-Identifier: EPL-2.0

// Package streamtest provides an in-memory stream.Backend for tests.
package streamtest

import (
	"errors"
	"sync"

	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/device"
	"github.com/ik5/soundbridge/stream"
)

// Devices returns a small device set: a default microphone, a virtual
// cable, default speakers and a headset with both directions.
func Devices() []device.Device {
	return []device.Device{
		{Index: 0, ID: "fake:mic", Name: "Microphone", HostAPI: "fake", MaxInputChannels: 1, DefaultSampleRate: 48000, DefaultInput: true},
		{Index: 1, ID: "fake:cable", Name: "Virtual Cable", HostAPI: "fake", MaxInputChannels: 2, MaxOutputChannels: 2, DefaultSampleRate: 48000},
		{Index: 2, ID: "fake:speakers", Name: "Speakers", HostAPI: "fake", MaxOutputChannels: 2, DefaultSampleRate: 44100, DefaultOutput: true},
		{Index: 3, ID: "fake:headset", Name: "Headset", HostAPI: "fake", MaxInputChannels: 1, MaxOutputChannels: 2, DefaultSampleRate: 48000},
	}
}

// Backend is a fake stream.Backend. Outputs consume written audio at once
// unless Hold is set.
type Backend struct {
	mu       sync.Mutex
	devices  []device.Device
	listErr  error
	failOpen map[int]error
	hold     bool
	discard  bool
	outputs  map[int][]*Output
	inputs   map[int][]*Input
	lists    int
	closed   bool
}

// New returns a Backend listing devs.
func New(devs []device.Device) *Backend {
	return &Backend{
		devices:  devs,
		failOpen: map[int]error{},
		outputs:  map[int][]*Output{},
		inputs:   map[int][]*Input{},
	}
}

func (b *Backend) Name() string { return "fake" }

func (b *Backend) SetDevices(devs []device.Device) {
	b.mu.Lock()
	b.devices = devs
	b.mu.Unlock()
}

// SetListError makes Devices fail with err until cleared with nil.
func (b *Backend) SetListError(err error) {
	b.mu.Lock()
	b.listErr = err
	b.mu.Unlock()
}

// FailOpen makes opening the device at index fail with err.
func (b *Backend) FailOpen(index int, err error) {
	b.mu.Lock()
	if err == nil {
		delete(b.failOpen, index)
	} else {
		b.failOpen[index] = err
	}
	b.mu.Unlock()
}

// Hold makes new outputs keep written audio buffered until Release.
func (b *Backend) Hold(on bool) {
	b.mu.Lock()
	b.hold = on
	b.mu.Unlock()
}

// Discard makes new outputs count played bytes without keeping them.
func (b *Backend) Discard(on bool) {
	b.mu.Lock()
	b.discard = on
	b.mu.Unlock()
}

// Lists returns how many times Devices was called.
func (b *Backend) Lists() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lists
}

func (b *Backend) Devices() ([]device.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lists++
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]device.Device(nil), b.devices...), nil
}

// Outputs returns every output opened on the device at index.
func (b *Backend) Outputs(index int) []*Output {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Output(nil), b.outputs[index]...)
}

// LastOutput returns the most recent output on index, or nil.
func (b *Backend) LastOutput(index int) *Output {
	outs := b.Outputs(index)
	if len(outs) == 0 {
		return nil
	}
	return outs[len(outs)-1]
}

// Inputs returns every input opened on the device at index.
func (b *Backend) Inputs(index int) []*Input {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Input(nil), b.inputs[index]...)
}

// LastInput returns the most recent input on index, or nil.
func (b *Backend) LastInput(index int) *Input {
	ins := b.Inputs(index)
	if len(ins) == 0 {
		return nil
	}
	return ins[len(ins)-1]
}

// OpenCount returns the streams on any device not yet closed.
func (b *Backend) OpenCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, outs := range b.outputs {
		for _, o := range outs {
			if !o.Closed() {
				n++
			}
		}
	}
	for _, ins := range b.inputs {
		for _, in := range ins {
			if !in.Closed() {
				n++
			}
		}
	}
	return n
}

func (b *Backend) check(dev device.Device, dir device.Direction, f audio.Format) error {
	if b.closed {
		return stream.ErrClosed
	}
	if err := b.failOpen[dev.Index]; err != nil {
		return err
	}
	if dev.Index < 0 || dev.Index >= len(b.devices) || b.devices[dev.Index].Name != dev.Name {
		return stream.ErrStaleDevice
	}
	if f.Channels > b.devices[dev.Index].MaxChannels(dir) {
		return stream.ErrChannelLayout
	}
	return nil
}

func bufferSize(f audio.Format, opts stream.Options) int {
	d := opts.Buffer
	if d <= 0 {
		d = stream.DefaultBuffer
	}
	n := max(f.BytesFor(d), stream.MinBufferBytes)
	return n - n%f.BytesPerFrame()
}

func (b *Backend) OpenOutput(dev device.Device, f audio.Format, opts stream.Options) (stream.Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(dev, device.Output, f); err != nil {
		return nil, err
	}
	o := &Output{format: f, size: bufferSize(f, opts), hold: b.hold, discard: b.discard, volume: 1}
	b.outputs[dev.Index] = append(b.outputs[dev.Index], o)
	return o, nil
}

func (b *Backend) OpenInput(dev device.Device, f audio.Format, opts stream.Options) (stream.Input, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check(dev, device.Input, f); err != nil {
		return nil, err
	}
	in := &Input{format: f, size: bufferSize(f, opts), fill: 0x11}
	b.inputs[dev.Index] = append(b.inputs[dev.Index], in)
	return in, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("fake backend closed twice")
	}
	b.closed = true
	return nil
}

// Output is a fake playback stream.
type Output struct {
	mu      sync.Mutex
	format  audio.Format
	size    int
	hold    bool
	pending []byte
	played  []byte
	writes  int
	volume  float32
	dead    bool
	stopped bool
	closed  bool
}

func (o *Output) Format() audio.Format { return o.format }
func (o *Output) Size() int            { return o.size }

func (o *Output) Write(p []byte) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.dead || o.stopped || o.closed {
		return 0
	}
	n := min(len(p), o.size-len(o.pending))
	switch {
	case o.hold:
		o.pending = append(o.pending, p[:n]...)
	case !o.discard:
		o.played = append(o.played, p[:n]...)
	}
	if !o.hold {
		o.total += n
	}
	o.writes++
	return n
}

func (o *Output) Free() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size - len(o.pending)
}

func (o *Output) Buffered() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

func (o *Output) SetVolume(v float32) {
	o.mu.Lock()
	o.volume = v
	o.mu.Unlock()
}

func (o *Output) Volume() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// Release plays everything buffered while held and stops holding.
func (o *Output) Release() {
	o.mu.Lock()
	o.total += len(o.pending)
	if !o.discard {
		o.played = append(o.played, o.pending...)
	}
	o.pending = nil
	o.hold = false
	o.mu.Unlock()
}

// Kill makes the stream stop as if the device went away.
func (o *Output) Kill() {
	o.mu.Lock()
	o.dead = true
	o.mu.Unlock()
}

// Played returns a copy of the audio consumed so far.
func (o *Output) Played() []byte {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]byte(nil), o.played...)
}

// PlayedBytes counts every byte consumed, kept or not.
func (o *Output) PlayedBytes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.total
}

// Writes returns how many Write calls took data.
func (o *Output) Writes() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.writes
}

func (o *Output) Stopped() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dead || o.stopped || o.closed
}

func (o *Output) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *Output) Stop() error {
	o.mu.Lock()
	o.stopped = true
	o.mu.Unlock()
	return nil
}

func (o *Output) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

// Input is a fake capture stream with an endless supply of a fixed byte.
type Input struct {
	mu      sync.Mutex
	format  audio.Format
	size    int
	fill    byte
	read    int
	dead    bool
	stopped bool
	closed  bool
}

func (in *Input) Format() audio.Format { return in.format }
func (in *Input) Size() int            { return in.size }

func (in *Input) Read(p []byte) int {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.dead || in.stopped || in.closed {
		return 0
	}
	n := min(len(p), in.size)
	n -= n % in.format.BytesPerFrame()
	for i := range p[:n] {
		p[i] = in.fill
	}
	in.read += n
	return n
}

func (in *Input) Buffered() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.dead || in.stopped || in.closed {
		return 0
	}
	return in.size
}

// SetFill changes the byte produced by Read.
func (in *Input) SetFill(b byte) {
	in.mu.Lock()
	in.fill = b
	in.mu.Unlock()
}

// BytesRead returns the total handed out by Read.
func (in *Input) BytesRead() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.read
}

func (in *Input) Kill() {
	in.mu.Lock()
	in.dead = true
	in.mu.Unlock()
}

func (in *Input) Stopped() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.dead || in.stopped || in.closed
}

func (in *Input) Closed() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.closed
}

func (in *Input) Stop() error {
	in.mu.Lock()
	in.stopped = true
	in.mu.Unlock()
	return nil
}

func (in *Input) Close() error {
	in.mu.Lock()
	in.closed = true
	in.mu.Unlock()
	return nil
}
