// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/soundbridge/internal/audiotest"
)

func drain(t *testing.T, src Source, chunk int) []float32 {
	t.Helper()

	buf := make([]float32, chunk)
	var out []float32
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestResampler_Metadata(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 2, 1000), 8000)
	if r.SampleRate() != 8000 {
		t.Errorf("SampleRate() = %d, want 8000", r.SampleRate())
	}
	if r.Channels() != 2 {
		t.Errorf("Channels() = %d, want 2", r.Channels())
	}
}

func TestResampler_SameRateIsIdentity(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(8000, 2, 50, func(sample, channel int) float32 {
		return float32(sample*2+channel) / 1000
	})
	got := drain(t, NewResampler(src, 8000), 30)

	if len(got) != 100 {
		t.Fatalf("len = %d, want 100", len(got))
	}
	for i, v := range got {
		want := float32(i) / 1000
		if math.Abs(float64(v-want)) > 1e-6 {
			t.Fatalf("sample %d = %v, want %v", i, v, want)
		}
	}
}

func TestResampler_Length(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to int
		frames   int
		want     int
	}{
		{"down 44.1k to 8k", 44100, 8000, 44100, 8000},
		{"up 8k to 48k", 8000, 48000, 8000, 48000},
		{"48k to 44.1k", 48000, 44100, 4800, 4410},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSineSource(tt.from, 1, tt.frames, 440)
			got := len(drain(t, NewResampler(src, tt.to), 1024))
			tolerance := tt.want / 100
			if got < tt.want-tolerance || got > tt.want+tolerance {
				t.Errorf("output frames = %d, want %d±%d", got, tt.want, tolerance)
			}
		})
	}
}

func TestResampler_PreservesLevel(t *testing.T) {
	t.Parallel()

	got := drain(t, NewResampler(audiotest.NewConstantSource(22050, 2, 2000, 0.5), 48000), 512)
	for i, v := range got {
		if math.Abs(float64(v-0.5)) > 1e-4 {
			t.Fatalf("sample %d = %v, want 0.5", i, v)
		}
	}
}

func TestResampler_EmptySource(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 2, 0), 8000)
	n, err := r.ReadSamples(make([]float32, 16))
	if n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestResampler_InvalidDst(t *testing.T) {
	t.Parallel()

	r := NewResampler(audiotest.NewSilentSource(44100, 2, 10), 8000)
	if _, err := r.ReadSamples(make([]float32, 3)); !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadSamples() error = %v, want ErrInvalidDstSize", err)
	}
}

func TestResampler_SourceError(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(8000, 1, 100).FailAt(0, errors.New("device gone"))
	r := NewResampler(src, 16000)
	if _, err := r.ReadSamples(make([]float32, 8)); err == nil || err == io.EOF {
		t.Errorf("ReadSamples() error = %v, want source error", err)
	}
}

func BenchmarkResampler(b *testing.B) {
	buf := make([]float32, 2048)
	b.ReportAllocs()
	for range b.N {
		r := NewResampler(audiotest.NewSineSource(44100, 2, 4096, 440), 48000)
		for {
			if _, err := r.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
