// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/soundbridge/utils"
)

// maxEmptyReads bounds how many (0, nil) reads from the source are tolerated
// before it is treated as exhausted.
const maxEmptyReads = 8

// Resampler streams from src to a target sample rate using cubic
// interpolation. Works on interleaved samples; preserves channel count.
type Resampler struct {
	src      Source
	rate     int
	channels int
	step     float64 // source frames per output frame

	// four frame window: t-1, t0, t+1, t+2
	win    []float32
	valid  [4]bool
	primed bool
	pos    float64

	in           []float32
	inPos, inLen int
	eof          bool
	err          error
}

func NewResampler(src Source, dstRate int) *Resampler {
	ch := src.Channels()
	return &Resampler{
		src:      src,
		rate:     dstRate,
		channels: ch,
		step:     float64(src.SampleRate()) / float64(dstRate),
		win:      make([]float32, 4*ch),
		in:       make([]float32, 1024*ch),
	}
}

func (r *Resampler) SampleRate() int { return r.rate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// ReadSamples produces samples at the target rate. dst length must be a
// multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if !r.primed {
		r.prime()
	}

	n := 0
	for n < len(dst) {
		for r.pos >= 1 {
			r.pos--
			r.shift()
		}
		if !r.valid[1] {
			break
		}

		x := float32(r.pos)
		for c := 0; c < r.channels; c++ {
			dst[n+c] = utils.CubicInterpolate(r.at(0, c), r.at(1, c), r.at(2, c), r.at(3, c), x)
		}
		n += r.channels
		r.pos += r.step
	}

	if n == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	return n, nil
}

func (r *Resampler) at(slot, c int) float32 { return r.win[slot*r.channels+c] }

func (r *Resampler) slot(i int) []float32 {
	return r.win[i*r.channels : (i+1)*r.channels]
}

func (r *Resampler) prime() {
	r.primed = true
	if !r.next(r.slot(1)) {
		return
	}
	copy(r.slot(0), r.slot(1))
	r.valid[0], r.valid[1] = true, true
	for i := 2; i < 4; i++ {
		r.load(i)
	}
}

func (r *Resampler) shift() {
	copy(r.win, r.win[r.channels:])
	copy(r.valid[:], r.valid[1:])
	r.load(3)
}

// load fills slot i from the source, or repeats slot i-1 past the end.
func (r *Resampler) load(i int) {
	if r.next(r.slot(i)) {
		r.valid[i] = true
		return
	}
	copy(r.slot(i), r.slot(i-1))
	r.valid[i] = false
}

func (r *Resampler) next(frame []float32) bool {
	empty := 0
	for r.inPos+r.channels > r.inLen {
		if r.eof {
			return false
		}
		n, err := r.src.ReadSamples(r.in)
		n -= n % r.channels
		r.inPos, r.inLen = 0, n
		switch {
		case err == io.EOF:
			r.eof = true
		case err != nil:
			r.eof = true
			r.err = fmt.Errorf("%w", err)
		case n == 0:
			empty++
			if empty >= maxEmptyReads {
				r.eof = true
			}
		}
	}
	copy(frame, r.in[r.inPos:r.inPos+r.channels])
	r.inPos += r.channels
	return true
}
