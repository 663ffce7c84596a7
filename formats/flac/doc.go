// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC files through mewkiz/flac, one frame at a time.
package flac
