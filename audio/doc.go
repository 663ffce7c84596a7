// SPDX-License-Identifier: EPL-2.0

// Package audio provides the sample-level building blocks of the pipeline.
//
//   - Source interface for decoded audio
//   - Registry that maps file extensions to decoders
//   - Format and Frame, the stream description and the unit handed between stages
//   - StereoMixer for channel normalization
//   - Resampler for optional sample rate conversion
//   - PCM byte conversion and gain
//
// # Source Interface
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// Samples are interleaved float32 in [-1,1]. ReadSamples returns io.EOF when
// the stream is finished.
//
// # Registry
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	src, err := reg.Open("clip.wav")
//
// Open owns the file it opened; closing the Source closes it.
//
// # Frames
//
// A Frame carries interleaved little-endian float32 bytes. A Frame with
// SampleCount <= 0 is the end of stream marker and never carries a partial
// payload.
package audio
