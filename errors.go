// SPDX-License-Identifier: EPL-2.0

package soundbridge

import "errors"

var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrClosed        = errors.New("board closed")
)
