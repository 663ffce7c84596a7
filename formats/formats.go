// SPDX-License-Identifier: EPL-2.0

// Package formats wires every decoder in this module into one registry.
package formats

import (
	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/formats/aiff"
	"github.com/ik5/soundbridge/formats/flac"
	"github.com/ik5/soundbridge/formats/mp3"
	"github.com/ik5/soundbridge/formats/vorbis"
	"github.com/ik5/soundbridge/formats/wav"
)

// NewRegistry returns a registry with the native Go decoders. fallback, if
// not nil, handles every other extension.
func NewRegistry(fallback audio.FileDecoder) *audio.Registry {
	reg := audio.NewRegistry()

	reg.Register("wav", wav.Decoder{})
	reg.Register("wave", wav.Decoder{})
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{})
	reg.Register("oga", vorbis.Decoder{})
	reg.Register("aif", aiff.Decoder{})
	reg.Register("aiff", aiff.Decoder{})
	reg.Register("flac", flac.Decoder{})

	if fallback != nil {
		reg.SetFallback(fallback)
	}
	return reg
}
