// SPDX-License-Identifier: EPL-2.0

package track

import "fmt"

// State is the playback state of a track.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ParseState is the inverse of String.
func ParseState(s string) (State, error) {
	switch s {
	case "stopped":
		return Stopped, nil
	case "playing":
		return Playing, nil
	case "paused":
		return Paused, nil
	}
	return Stopped, fmt.Errorf("unknown track state %q", s)
}
