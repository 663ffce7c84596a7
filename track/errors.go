// SPDX-License-Identifier: EPL-2.0

package track

import (
	"errors"
	"fmt"
)

var (
	ErrDecode        = errors.New("decode error")
	ErrNoAudioStream = errors.New("no audio stream found")
)

// DecodeError reports a failure to open or decode a track. It matches
// ErrDecode with errors.Is.
type DecodeError struct {
	Path string
	Op   string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s: %v", e.Path, e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
