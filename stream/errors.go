// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"errors"
	"fmt"

	"github.com/ik5/soundbridge/device"
)

var (
	ErrNoDevice           = errors.New("no audio device available")
	ErrStaleDevice        = errors.New("device list is stale, refresh devices")
	ErrFormatNotSupported = errors.New("stream format not supported")
	ErrChannelLayout      = errors.New("unsupported channel layout")
	ErrStreamStopped      = errors.New("audio stream suddenly stopped")
	ErrTimeout            = errors.New("timed out waiting for audio buffer")
	ErrChunkTooLarge      = errors.New("chunk larger than stream buffer")
	ErrClosed             = errors.New("backend closed")
)

// DeviceError is a failure tied to one device stream. Configuration
// problems wrap ErrFormatNotSupported or ErrChannelLayout.
type DeviceError struct {
	Role   device.Role
	Device device.Device
	Op     string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s device %s: %s: %v", e.Role, e.Device, e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// IsConfiguration reports whether err is a format or layout mismatch.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrFormatNotSupported) || errors.Is(err, ErrChannelLayout)
}
