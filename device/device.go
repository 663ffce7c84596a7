// SPDX-License-Identifier: EPL-2.0

package device

import (
	"fmt"
	"time"

	"github.com/ik5/soundbridge/audio"
)

// Direction of an audio endpoint.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	switch d {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Role is the logical slot a device fills for the players.
type Role int

const (
	// RoleInput is the capture device (microphone).
	RoleInput Role = iota
	// RoleCable is the virtual cable output other programs listen to.
	RoleCable
	// RolePhysical is the output the user hears (speakers, headphones).
	RolePhysical
)

// Roles lists every role in display order.
var Roles = []Role{RoleInput, RoleCable, RolePhysical}

// OutputRoles lists the roles players write to.
var OutputRoles = []Role{RoleCable, RolePhysical}

func (r Role) Direction() Direction {
	if r == RoleInput {
		return Input
	}
	return Output
}

func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleCable:
		return "cable"
	case RolePhysical:
		return "physical"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Device is a snapshot of an endpoint taken at enumeration time. It goes
// stale when hardware changes; only a refresh or a dead stream reveals that.
type Device struct {
	// Index is the backend's handle for the device; -1 for the null device.
	Index int
	// ID is a backend specific identifier, stable across refreshes when the
	// backend supports it.
	ID      string
	Name    string
	HostAPI string

	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	InputLatency      time.Duration
	OutputLatency     time.Duration

	// DefaultInput and DefaultOutput mark the system defaults.
	DefaultInput  bool
	DefaultOutput bool
}

// Null is returned when no device exists for a role.
var Null = Device{Index: -1, Name: "none"}

func (d Device) IsNull() bool { return d.Index < 0 }

// Supports reports whether the device has channels in direction dir.
func (d Device) Supports(dir Direction) bool {
	if dir == Input {
		return d.MaxInputChannels > 0
	}
	return d.MaxOutputChannels > 0
}

// MaxChannels returns the channel count for dir.
func (d Device) MaxChannels(dir Direction) int {
	if dir == Input {
		return d.MaxInputChannels
	}
	return d.MaxOutputChannels
}

// PreferredFormat is the device's native rate as float32 with up to two
// channels.
func (d Device) PreferredFormat(dir Direction) audio.Format {
	rate := int(d.DefaultSampleRate)
	if rate <= 0 {
		rate = 48000
	}
	return audio.Format{
		SampleRate: rate,
		Channels:   max(1, min(2, d.MaxChannels(dir))),
		Sample:     audio.Float32,
	}
}

// Same reports whether d and o describe the same endpoint.
func (d Device) Same(o Device) bool {
	return d.Index == o.Index && d.ID == o.ID && d.Name == o.Name
}

func (d Device) String() string {
	if d.IsNull() {
		return "<no device>"
	}
	return fmt.Sprintf("#%d %s", d.Index, d.Name)
}

// Enumerator lists the devices currently known to the platform, both
// directions in one list.
type Enumerator interface {
	Devices() ([]Device, error)
}
