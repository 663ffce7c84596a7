// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III audio through hajimehoshi/go-mp3.
//
// go-mp3 always yields stereo, so the returned Source reports two channels
// even for mono files.
package mp3
