// SPDX-License-Identifier: EPL-2.0

// Package config reads the soundbridge settings from an optional .env file
// and SOUNDBRIDGE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ik5/soundbridge"
	"github.com/joho/godotenv"
)

// Prefix of every variable.
const Prefix = "SOUNDBRIDGE_"

// Backends that Parse accepts.
const (
	BackendPortAudio = "portaudio"
	BackendMalgo     = "malgo"
)

var ErrInvalidValue = errors.New("invalid configuration value")

// Config is everything the command needs to build a board.
type Config struct {
	Board    soundbridge.Config
	Backend  string
	LogLevel string
}

// Default is the configuration with no variables set.
func Default() Config {
	return Config{
		Board:    soundbridge.DefaultConfig(),
		Backend:  BackendPortAudio,
		LogLevel: "info",
	}
}

// Load reads files into the environment, skipping missing ones and never
// overriding variables already set, then parses the environment.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		err := godotenv.Load(f)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse(os.LookupEnv)
}

// Parse builds a Config from lookup, which has the signature of
// os.LookupEnv.
func Parse(lookup func(string) (string, bool)) (Config, error) {
	c := Default()
	p := parser{lookup: lookup}

	c.Backend = strings.ToLower(p.str("BACKEND", c.Backend))
	c.LogLevel = strings.ToLower(p.str("LOG_LEVEL", c.LogLevel))

	b := &c.Board
	b.FilePlayers = p.int("FILE_PLAYERS", b.FilePlayers)
	b.ChunkBytes = p.int("CHUNK_BYTES", b.ChunkBytes)
	b.FramesPerRead = p.int("FRAMES_PER_READ", b.FramesPerRead)
	b.Buffer = time.Duration(p.int("BUFFER_MS", int(b.Buffer/time.Millisecond))) * time.Millisecond
	b.PollInterval = p.duration("POLL_INTERVAL", b.PollInterval)
	b.DrainTimeout = p.duration("DRAIN_TIMEOUT", b.DrainTimeout)
	b.StallTimeout = p.duration("STALL_TIMEOUT", b.StallTimeout)
	b.Volume = p.float("VOLUME", b.Volume)
	b.TrackGain = p.float("TRACK_GAIN", b.TrackGain)
	b.ResampleRate = p.int("RESAMPLE_RATE", b.ResampleRate)
	b.FFmpegPath = p.str("FFMPEG_PATH", b.FFmpegPath)

	if p.err != nil {
		return Config{}, p.err
	}

	switch c.Backend {
	case BackendPortAudio, BackendMalgo:
	default:
		return Config{}, fmt.Errorf("%w: %sBACKEND=%q", ErrInvalidValue, Prefix, c.Backend)
	}
	if err := b.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidValue, err)
	}
	return c, nil
}

// parser keeps the first error so fields can be read in a row.
type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) raw(name string) (string, bool) {
	v, ok := p.lookup(Prefix + name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) fail(name, v string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s%s=%q: %w", ErrInvalidValue, Prefix, name, v, err)
	}
}

func (p *parser) str(name, def string) string {
	if v, ok := p.raw(name); ok {
		return v
	}
	return def
}

func (p *parser) int(name string, def int) int {
	v, ok := p.raw(name)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(name, v, err)
		return def
	}
	return n
}

func (p *parser) float(name string, def float32) float32 {
	v, ok := p.raw(name)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		p.fail(name, v, err)
		return def
	}
	return float32(f)
}

func (p *parser) duration(name string, def time.Duration) time.Duration {
	v, ok := p.raw(name)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(name, v, err)
		return def
	}
	return d
}
