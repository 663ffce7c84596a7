// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"math"

	"github.com/ik5/soundbridge/utils"
)

// PutFloat32s encodes src as little-endian float32 into dst and returns the
// number of bytes written. dst must hold len(src)*4 bytes.
func PutFloat32s(dst []byte, src []float32) int {
	for i, v := range src {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
	return len(src) * 4
}

// Float32s decodes little-endian float32 samples from src into dst and
// returns the number of samples decoded.
func Float32s(dst []float32, src []byte) int {
	n := min(len(dst), len(src)/4)
	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
	return n
}

// PutInt16s encodes src as little-endian int16 into dst.
func PutInt16s(dst []byte, src []int16) int {
	for i, v := range src {
		binary.LittleEndian.PutUint16(dst[i*2:], uint16(v))
	}
	return len(src) * 2
}

// Int16s decodes little-endian int16 samples from src into dst.
func Int16s(dst []int16, src []byte) int {
	n := min(len(dst), len(src)/2)
	for i := range n {
		dst[i] = int16(binary.LittleEndian.Uint16(src[i*2:]))
	}
	return n
}

// ApplyGain scales samples in place and clips to [-1,1]. A gain of 1 is a
// no-op.
func ApplyGain(samples []float32, gain float32) {
	if gain == 1 {
		return
	}
	for i, v := range samples {
		v *= gain
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		samples[i] = v
	}
}

// ApplyGainInt16 scales int16 samples in place with saturation.
func ApplyGainInt16(samples []int16, gain float32) {
	if gain == 1 {
		return
	}
	for i, v := range samples {
		samples[i] = utils.Float32ToInt16(utils.Int16ToFloat32(v) * gain)
	}
}
