// SPDX-License-Identifier: EPL-2.0

// Package ffmpeg decodes any container the ffmpeg binary understands by
// piping raw f32le stereo PCM out of a child process. It is registered as
// the fallback decoder for extensions without a native Go decoder, such as
// mp4, m4a, aac and webm.
//
// The sample rate is taken from ffprobe so the native rate of the file is
// preserved.
package ffmpeg
