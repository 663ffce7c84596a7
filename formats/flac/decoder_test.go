// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/mewkiz/flac/frame"
)

type mockFrames struct {
	frames []*frame.Frame
	err    error
}

func (m *mockFrames) ParseNext() (*frame.Frame, error) {
	if len(m.frames) == 0 {
		if m.err != nil {
			return nil, m.err
		}
		return nil, io.EOF
	}
	f := m.frames[0]
	m.frames = m.frames[1:]
	return f, nil
}

func stereoFrame(left, right []int32) *frame.Frame {
	return &frame.Frame{
		Header: frame.Header{BlockSize: uint16(len(left))},
		Subframes: []*frame.Subframe{
			{Samples: left},
			{Samples: right},
		},
	}
}

func TestSource_Interleaves(t *testing.T) {
	t.Parallel()

	s := &source{
		dec: &mockFrames{frames: []*frame.Frame{
			stereoFrame([]int32{0, 16384}, []int32{-16384, 8192}),
			stereoFrame([]int32{-32768}, []int32{32767}),
		}},
		sampleRate: 44100,
		channels:   2,
		scale:      1.0 / 32768,
	}

	want := []float32{0, -0.5, 0.5, 0.25, -1, 32767.0 / 32768}
	var got []float32
	buf := make([]float32, 4)
	for {
		n, err := s.ReadSamples(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}

	if len(got) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSource_Errors(t *testing.T) {
	t.Parallel()

	boom := errors.New("crc mismatch")
	s := &source{dec: &mockFrames{err: boom}, channels: 2, scale: 1}
	if _, err := s.ReadSamples(make([]float32, 4)); !errors.Is(err, boom) {
		t.Errorf("ReadSamples() error = %v, want %v", err, boom)
	}

	mono := &frame.Frame{
		Header:    frame.Header{BlockSize: 1},
		Subframes: []*frame.Subframe{{Samples: []int32{1}}},
	}
	s = &source{dec: &mockFrames{frames: []*frame.Frame{mono}}, channels: 2, scale: 1}
	if _, err := s.ReadSamples(make([]float32, 4)); !errors.Is(err, ErrChannelMismatch) {
		t.Errorf("ReadSamples() error = %v, want ErrChannelMismatch", err)
	}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := (Decoder{}).Decode(bytes.NewReader([]byte("not flac"))); err == nil {
		t.Error("Decode() error = nil, want error")
	}
}
