// SPDX-License-Identifier: EPL-2.0

package mp3

import (
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/utils"
)

// go-mp3 always produces interleaved stereo 16-bit little-endian PCM.
const channels = 2

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec     mp3Reader
	buf     []byte
	pcm     []int16
	pending []byte // trailing odd byte from the previous read
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return cap(s.buf) / 2 }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	want := len(dst) * 2
	if cap(s.buf) < want {
		s.buf = make([]byte, want)
		s.pcm = make([]int16, len(dst))
	}
	s.buf = s.buf[:want]

	off := copy(s.buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.dec.Read(s.buf[off:])
	n += off
	if n%2 == 1 {
		s.pending = append(s.pending, s.buf[n-1])
		n--
	}
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("%w", err)
		}
		return 0, err
	}

	samples := audio.Int16s(s.pcm[:n/2], s.buf[:n])
	for i := range samples {
		dst[i] = utils.Int16ToFloat32(s.pcm[i])
	}

	if err != nil && err != io.EOF {
		return samples, fmt.Errorf("%w", err)
	}
	return samples, err
}

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return newSource(dec), nil
}

func newSource(dec mp3Reader) *source {
	return &source{
		dec:     dec,
		buf:     make([]byte, 8192),
		pcm:     make([]int16, 4096),
		pending: make([]byte, 0, 1),
	}
}
