// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"time"
)

// SampleType is the on-the-wire representation of one sample.
type SampleType int

const (
	Float32 SampleType = iota
	Int16
)

func (t SampleType) String() string {
	switch t {
	case Float32:
		return "f32"
	case Int16:
		return "s16"
	default:
		return fmt.Sprintf("SampleType(%d)", int(t))
	}
}

// Size returns bytes per sample.
func (t SampleType) Size() int {
	if t == Int16 {
		return 2
	}
	return 4
}

// Format describes an interleaved PCM stream. Two formats are compatible
// only when they are equal.
type Format struct {
	SampleRate int
	Channels   int
	Sample     SampleType
}

func (f Format) Equal(o Format) bool { return f == o }

// BytesPerFrame is the size of one sample for every channel.
func (f Format) BytesPerFrame() int { return f.Channels * f.Sample.Size() }

// BytesFor returns the byte length of d worth of audio, rounded down to a
// whole frame.
func (f Format) BytesFor(d time.Duration) int {
	frames := int(int64(f.SampleRate) * int64(d) / int64(time.Second))
	return frames * f.BytesPerFrame()
}

func (f Format) Validate() error {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, f)
	}
	if f.Sample != Float32 && f.Sample != Int16 {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, f)
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch/%s", f.SampleRate, f.Channels, f.Sample)
}

// Frame is a chunk of interleaved little-endian samples. A frame with
// SampleCount <= 0 marks the end of the stream and carries no payload.
type Frame struct {
	Data        []byte
	SampleCount int // per channel
	SampleRate  int
	Channels    int
}

func (f Frame) Empty() bool { return f.SampleCount <= 0 }
