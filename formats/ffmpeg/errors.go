// SPDX-License-Identifier: EPL-2.0

package ffmpeg

import "errors"

var (
	ErrProbe         = errors.New("ffprobe failed")
	ErrNoAudioStream = errors.New("no audio stream found")
	ErrUnknownRate   = errors.New("cannot determine sample rate of piped input")
	ErrStart         = errors.New("cannot start ffmpeg")
	ErrDecode        = errors.New("ffmpeg decode failed")
)
