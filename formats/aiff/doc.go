// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF files through go-audio/aiff.
//
// Uncompressed integer PCM at 8, 16, 24 and 32 bits is supported. The
// decoder needs to seek; non-seekable readers are buffered in memory first.
package aiff
