// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"math"
	"testing"
	"time"

	"github.com/ik5/soundbridge/audio"
)

func TestCore_RenderAppliesGain(t *testing.T) {
	t.Parallel()

	f := audio.Format{SampleRate: 48000, Channels: 2, Sample: audio.Float32}
	c := newCore(f, Options{}.withDefaults())
	c.markStarted()

	in := make([]byte, 16)
	audio.PutFloat32s(in, []float32{0.5, -0.5, 1, 0.25})
	if n := c.Write(in); n != 16 {
		t.Fatalf("Write() = %d, want 16", n)
	}
	c.SetVolume(0.5)

	out := make([]float32, 6)
	c.renderFloat32(out)
	want := []float32{0.25, -0.25, 0.5, 0.125, 0, 0}
	for i := range want {
		if math.Abs(float64(out[i]-want[i])) > 1e-6 {
			t.Errorf("out[%d] = %v, want %v", i, out[i], want[i])
		}
	}
	if c.Buffered() != 0 {
		t.Errorf("Buffered() = %d, want 0", c.Buffered())
	}
}

func TestCore_RenderInt16(t *testing.T) {
	t.Parallel()

	f := audio.Format{SampleRate: 48000, Channels: 1, Sample: audio.Int16}
	c := newCore(f, Options{}.withDefaults())
	c.markStarted()

	in := make([]byte, 4)
	audio.PutInt16s(in, []int16{1000, -2000})
	c.Write(in)
	c.SetVolume(0.5)

	out := make([]int16, 2)
	c.renderInt16(out)
	if out[0] < 499 || out[0] > 501 || out[1] < -1001 || out[1] > -999 {
		t.Errorf("renderInt16() = %v, want about [500 -1000]", out)
	}
}

func TestCore_Stopped(t *testing.T) {
	t.Parallel()

	f := audio.Format{SampleRate: 48000, Channels: 2, Sample: audio.Float32}

	c := newCore(f, Options{StallTimeout: 10 * time.Millisecond}.withDefaults())
	if !c.Stopped() {
		t.Error("Stopped() = false before start")
	}
	c.markStarted()
	if c.Stopped() {
		t.Error("Stopped() = true right after start")
	}
	time.Sleep(30 * time.Millisecond)
	if !c.Stopped() {
		t.Error("Stopped() = false after a stall")
	}
	if n := c.Write(make([]byte, 8)); n != 0 {
		t.Errorf("Write() on stopped core = %d, want 0", n)
	}

	c = newCore(f, Options{StallTimeout: -1}.withDefaults())
	c.markStarted()
	c.markStopping()
	c.markDied()
	if !c.Stopped() || c.died.Load() {
		t.Errorf("Stopped()/died = %v/%v, want true/false for a requested stop", c.Stopped(), c.died.Load())
	}
}

func TestCore_CaptureDropsOverflow(t *testing.T) {
	t.Parallel()

	f := audio.Format{SampleRate: 8000, Channels: 1, Sample: audio.Float32}
	c := newCore(f, Options{StallTimeout: -1}.withDefaults())
	c.markStarted()

	in := make([]float32, c.Size()/4+10)
	c.captureFloat32(in)
	if c.dropped.Load() != 40 {
		t.Errorf("dropped = %d, want 40", c.dropped.Load())
	}

	buf := make([]byte, 6)
	if n := c.Read(buf); n != 4 {
		t.Errorf("Read() = %d, want 4 (whole frames)", n)
	}
}

func TestOptions_BufferBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
		f    audio.Format
		want int
	}{
		{"minimum", Options{Buffer: time.Millisecond}, audio.Format{SampleRate: 48000, Channels: 2, Sample: audio.Float32}, MinBufferBytes},
		{"200ms stereo float", Options{}, audio.Format{SampleRate: 48000, Channels: 2, Sample: audio.Float32}, 76800},
		{"rounded to frames", Options{}, audio.Format{SampleRate: 8000, Channels: 3, Sample: audio.Int16}, 32766},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.opts.withDefaults().bufferBytes(tt.f); got != tt.want {
				t.Errorf("bufferBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}
