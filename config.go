// SPDX-License-Identifier: EPL-2.0

package soundbridge

import (
	"fmt"
	"time"

	"github.com/decred/slog"
	"github.com/ik5/soundbridge/player"
	"github.com/ik5/soundbridge/stream"
	"github.com/ik5/soundbridge/track"
)

// Config tunes a Board. Use DefaultConfig and change what you need.
type Config struct {
	// FilePlayers is the number of media file players.
	FilePlayers int
	// ChunkBytes is the microphone transfer size.
	ChunkBytes int
	// FramesPerRead is the decoder read size of file players.
	FramesPerRead int
	// Buffer is the length of every device ring buffer.
	Buffer time.Duration
	// PollInterval caps the backoff of buffer waits.
	PollInterval time.Duration
	// DrainTimeout bounds buffer waits and the end of track drain.
	DrainTimeout time.Duration
	// StallTimeout is how long a device may skip callbacks before its
	// stream counts as stopped.
	StallTimeout time.Duration
	// Volume is the initial gain of file players.
	Volume float32
	// TrackGain is applied by the decoder before the output volume.
	TrackGain float32
	// ResampleRate, when set, resamples every track to this rate.
	ResampleRate int
	// FFmpegPath is the ffmpeg binary for formats without a native
	// decoder. Empty uses ffmpeg from PATH.
	FFmpegPath string

	// Logger returns the logger of a subsystem; nil disables logging.
	Logger func(subsystem string) slog.Logger
}

func DefaultConfig() Config {
	return Config{
		FilePlayers:   4,
		ChunkBytes:    player.DefaultChunkBytes,
		FramesPerRead: track.DefaultFramesPerRead,
		Buffer:        stream.DefaultBuffer,
		PollInterval:  player.DefaultPollInterval,
		DrainTimeout:  player.DefaultDrainTimeout,
		StallTimeout:  stream.DefaultStallTimeout,
		Volume:        player.DefaultVolume,
		TrackGain:     1,
	}
}

// Validate reports the first field out of range.
func (c Config) Validate() error {
	switch {
	case c.FilePlayers < 0:
		return fmt.Errorf("%w: FilePlayers %d", ErrInvalidConfig, c.FilePlayers)
	case c.ChunkBytes <= 0:
		return fmt.Errorf("%w: ChunkBytes %d", ErrInvalidConfig, c.ChunkBytes)
	case c.FramesPerRead <= 0:
		return fmt.Errorf("%w: FramesPerRead %d", ErrInvalidConfig, c.FramesPerRead)
	case c.Buffer <= 0:
		return fmt.Errorf("%w: Buffer %v", ErrInvalidConfig, c.Buffer)
	case c.PollInterval <= 0:
		return fmt.Errorf("%w: PollInterval %v", ErrInvalidConfig, c.PollInterval)
	case c.DrainTimeout <= 0:
		return fmt.Errorf("%w: DrainTimeout %v", ErrInvalidConfig, c.DrainTimeout)
	case c.Volume < 0 || c.Volume > 1:
		return fmt.Errorf("%w: Volume %v", ErrInvalidConfig, c.Volume)
	case c.TrackGain < 0:
		return fmt.Errorf("%w: TrackGain %v", ErrInvalidConfig, c.TrackGain)
	case c.ResampleRate < 0:
		return fmt.Errorf("%w: ResampleRate %d", ErrInvalidConfig, c.ResampleRate)
	}
	return nil
}

func (c Config) logger(tag string) slog.Logger {
	if c.Logger == nil {
		return slog.Disabled
	}
	if lg := c.Logger(tag); lg != nil {
		return lg
	}
	return slog.Disabled
}
