// SPDX-License-Identifier: EPL-2.0

// Package wav decodes RIFF/WAVE files through go-audio/wav and writes
// canonical 16-bit PCM WAV files.
//
// Integer PCM at 8, 16, 24 and 32 bits is supported. IEEE float and
// compressed WAV payloads are rejected with ErrOnlyPCMSupported.
//
//	src, err := wav.Decoder{}.Decode(f)
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
// WriteWAV16 produces files the decoder reads back, which makes it handy for
// generating fixtures.
package wav
