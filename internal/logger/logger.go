// SPDX-License-Identifier: EPL-2.0

// Package logger owns the slog backend and the subsystem loggers handed to
// the rest of the module.
package logger

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/decred/slog"
)

// Subsystem tags.
const (
	Board   = "BRDG"
	Players = "PLYR"
	Streams = "STRM"
	Devices = "DEVS"
	Tracks  = "TRCK"
)

// Loggers hands out one logger per subsystem, all sharing a backend and a
// level.
type Loggers struct {
	mtx     sync.Mutex
	backend *slog.Backend
	level   slog.Level
	subs    map[string]slog.Logger
}

// New creates loggers writing to w at the given level name ("trace",
// "debug", "info", "warn", "error", "critical", "off").
func New(w io.Writer, level string) (*Loggers, error) {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}
	if w == nil {
		w = os.Stderr
	}
	return &Loggers{
		backend: slog.NewBackend(w),
		level:   lvl,
		subs:    make(map[string]slog.Logger),
	}, nil
}

// Logger returns the logger for tag, creating it on first use.
func (l *Loggers) Logger(tag string) slog.Logger {
	if l == nil {
		return slog.Disabled
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if lg, ok := l.subs[tag]; ok {
		return lg
	}
	lg := l.backend.Logger(tag)
	lg.SetLevel(l.level)
	l.subs[tag] = lg
	return lg
}

// SetLevel changes the level of every subsystem logger.
func (l *Loggers) SetLevel(level string) error {
	lvl, ok := slog.LevelFromString(level)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLevel, level)
	}

	l.mtx.Lock()
	defer l.mtx.Unlock()

	l.level = lvl
	for _, lg := range l.subs {
		lg.SetLevel(lvl)
	}
	return nil
}

// Subsystems lists the tags created so far.
func (l *Loggers) Subsystems() []string {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	tags := make([]string, 0, len(l.subs))
	for t := range l.subs {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// OrDisabled returns lg, or slog.Disabled when lg is nil.
func OrDisabled(lg slog.Logger) slog.Logger {
	if lg == nil {
		return slog.Disabled
	}
	return lg
}
