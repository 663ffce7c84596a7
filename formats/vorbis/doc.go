// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files through jfreymuth/oggvorbis.
package vorbis
