// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// StereoMixer presents any source as two interleaved channels. Mono is
// duplicated to both sides; wider layouts fold even channels left and odd
// channels right.
type StereoMixer struct {
	src Source
	tmp []float32
	// rest is the start of a frame the source split across reads.
	rest []float32
}

func NewStereoMixer(src Source) *StereoMixer {
	return &StereoMixer{
		src: src,
		tmp: make([]float32, 4096),
	}
}

func (m *StereoMixer) SampleRate() int { return m.src.SampleRate() }
func (m *StereoMixer) Channels() int   { return 2 }
func (m *StereoMixer) BufSize() int    { return m.src.BufSize() }

func (m *StereoMixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (m *StereoMixer) ReadSamples(dst []float32) (int, error) {
	if len(dst)%2 != 0 {
		return 0, ErrInvalidDstSize
	}
	channels := m.src.Channels()
	if channels == 2 {
		return m.src.ReadSamples(dst)
	}
	if len(dst) == 0 {
		return 0, nil
	}

	frames := len(dst) / 2
	need := frames * channels
	if cap(m.tmp) < need {
		m.tmp = make([]float32, need)
	}
	m.tmp = m.tmp[:need]

	head := copy(m.tmp, m.rest)
	m.rest = m.rest[:0]
	n, err := m.src.ReadSamples(m.tmp[head:])
	n += head
	got := n / channels
	if err == nil && n > got*channels {
		m.rest = append(m.rest, m.tmp[got*channels:n]...)
	}

	if channels == 1 {
		for f := range got {
			dst[2*f] = m.tmp[f]
			dst[2*f+1] = m.tmp[f]
		}
		return got * 2, err
	}

	left := float32(1) / float32((channels+1)/2)
	right := float32(1) / float32(channels/2)
	for f := range got {
		var l, r float32
		base := f * channels
		for c := 0; c < channels; c++ {
			if c%2 == 0 {
				l += m.tmp[base+c]
			} else {
				r += m.tmp[base+c]
			}
		}
		dst[2*f] = l * left
		dst[2*f+1] = r * right
	}

	return got * 2, err
}
