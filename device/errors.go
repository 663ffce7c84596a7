// SPDX-License-Identifier: EPL-2.0

package device

import "errors"

var (
	ErrIndexOutOfRange = errors.New("device index out of range")
	ErrNotFound        = errors.New("device not found")
	ErrUnknownRole     = errors.New("unknown device role")
)
