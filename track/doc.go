// SPDX-License-Identifier: EPL-2.0

// Package track decodes one media file for a file player.
//
// A Context starts Stopped and opens its decoder on the first play
// request:
//
//	Stopped --play--> Playing <--toggle--> Paused
//	   ^                 |                   |
//	   +------stop-------+-------------------+
//
// Any request other than Stopped made while Playing or Paused toggles
// between the two, which is what a single play/pause button needs.
package track
