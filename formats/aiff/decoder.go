// SPDX-License-Identifier: EPL-2.0

package aiff

import (
	"io"

	goaiff "github.com/go-audio/aiff"
	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/formats/internal/pcmint"
)

type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	rs, err := pcmint.Seekable(r)
	if err != nil {
		return nil, err
	}

	dec := goaiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	bitDepth := int(dec.BitDepth)
	if !pcmint.ValidDepth(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}

	format := dec.Format()
	if format == nil || format.NumChannels < 1 || format.SampleRate < 1 {
		return nil, ErrUnsupportedAiffLayout
	}

	// AIFF stores 8-bit samples signed.
	return pcmint.New(dec, format, bitDepth, false), nil
}
