// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"io"

	gowav "github.com/go-audio/wav"
	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/formats/internal/pcmint"
)

// wavPCM is the integer PCM format tag.
const wavPCM = 1

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, err := pcmint.Seekable(r)
	if err != nil {
		return nil, err
	}

	dec := gowav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	if dec.WavAudioFormat != wavPCM {
		return nil, ErrOnlyPCMSupported
	}

	bitDepth := int(dec.BitDepth)
	if !pcmint.ValidDepth(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}

	format := dec.Format()
	if format == nil || format.NumChannels < 1 || format.SampleRate < 1 {
		return nil, ErrUnsupportedWavLayout
	}

	if err := dec.FwdToPCM(); err != nil {
		return nil, ErrUnsupportedWavChunks
	}

	return pcmint.New(dec, format, bitDepth, true), nil
}
