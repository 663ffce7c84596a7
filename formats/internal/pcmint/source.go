// SPDX-License-Identifier: EPL-2.0

// Package pcmint adapts go-audio integer PCM decoders to audio.Source.
package pcmint

import (
	"bytes"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
)

// Reader is the part of the go-audio wav and aiff decoders used here.
type Reader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source converts integer PCM of a fixed bit depth to float32.
type Source struct {
	dec        Reader
	format     *goaudio.Format
	sampleRate int
	channels   int
	scale      float32
	offset     int
	buf        *goaudio.IntBuffer
}

// New wraps dec. unsigned8 marks 8-bit data stored as unsigned bytes, the
// WAV convention.
func New(dec Reader, format *goaudio.Format, bitDepth int, unsigned8 bool) *Source {
	s := &Source{
		dec:        dec,
		format:     format,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		scale:      1 / float32(int64(1)<<(bitDepth-1)),
	}
	if bitDepth == 8 && unsigned8 {
		s.offset = 128
	}
	return s
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) Close() error    { return nil }

func (s *Source) BufSize() int {
	if s.buf != nil {
		return cap(s.buf.Data)
	}
	return 4096
}

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if s.buf == nil || cap(s.buf.Data) < len(dst) {
		s.buf = &goaudio.IntBuffer{
			Data:   make([]int, len(dst)),
			Format: s.format,
		}
	}
	s.buf.Data = s.buf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.buf)
	if n == 0 {
		if err != nil && err != io.EOF {
			return 0, fmt.Errorf("%w", err)
		}
		return 0, io.EOF
	}

	for i := range n {
		dst[i] = float32(s.buf.Data[i]-s.offset) * s.scale
	}

	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w", err)
	}
	if n < len(dst) || err == io.EOF {
		return n, io.EOF
	}
	return n, nil
}

// Seekable returns r as an io.ReadSeeker, buffering it in memory when r
// cannot seek. go-audio decoders need to seek between chunks.
func Seekable(r io.Reader) (io.ReadSeeker, error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, nil
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return bytes.NewReader(data), nil
}

// ValidDepth reports whether bitDepth is one New can scale.
func ValidDepth(bitDepth int) bool {
	switch bitDepth {
	case 8, 16, 24, 32:
		return true
	}
	return false
}
