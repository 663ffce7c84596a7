// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"fmt"
	"io"

	"github.com/ik5/soundbridge/audio"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
)

// frameReader is the part of flac.Stream used by source, to allow testing.
type frameReader interface {
	ParseNext() (*frame.Frame, error)
}

type source struct {
	dec        frameReader
	sampleRate int
	channels   int
	scale      float32

	pending []float32
	pos     int
	eof     bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.pending) }

func (s *source) ReadSamples(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		if s.pos >= len(s.pending) {
			if s.eof {
				break
			}
			if err := s.decodeFrame(); err != nil {
				return n, err
			}
			continue
		}
		c := copy(dst[n:], s.pending[s.pos:])
		s.pos += c
		n += c
	}

	if n == 0 && s.eof {
		return 0, io.EOF
	}
	return n, nil
}

func (s *source) decodeFrame() error {
	f, err := s.dec.ParseNext()
	if err == io.EOF {
		s.eof = true
		return nil
	}
	if err != nil {
		s.eof = true
		return fmt.Errorf("%w", err)
	}
	if len(f.Subframes) != s.channels {
		s.eof = true
		return ErrChannelMismatch
	}

	size := int(f.BlockSize) * s.channels
	if cap(s.pending) < size {
		s.pending = make([]float32, size)
	}
	s.pending = s.pending[:size]
	s.pos = 0

	for c, sub := range f.Subframes {
		for i, v := range sub.Samples[:f.BlockSize] {
			s.pending[i*s.channels+c] = float32(v) * s.scale
		}
	}
	return nil
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	info := stream.Info
	if info.NChannels < 1 || info.SampleRate < 1 {
		return nil, ErrUnsupportedLayout
	}
	if info.BitsPerSample < 4 || info.BitsPerSample > 32 {
		return nil, ErrUnsupportedBitDepth
	}

	return &source{
		dec:        stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		scale:      1 / float32(int64(1)<<(info.BitsPerSample-1)),
	}, nil
}
