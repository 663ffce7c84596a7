// SPDX-License-Identifier: EPL-2.0

// Command soundbridge routes a microphone and sound clips to a virtual
// cable output.
//
//	soundbridge -list
//	soundbridge -mic -no-physical -cable "CABLE Input" -play airhorn.mp3
//
// Every enabled output is shared by both players, so -mic alone also plays
// the microphone on the speakers. Pass -no-physical to keep it off them.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/decred/slog"
	"github.com/ik5/soundbridge"
	"github.com/ik5/soundbridge/device"
	"github.com/ik5/soundbridge/internal/config"
	"github.com/ik5/soundbridge/internal/logger"
	"github.com/ik5/soundbridge/stream"
	"github.com/ik5/soundbridge/track"
)

var (
	envFile  = flag.String("env", ".env", "Optional dotenv file with SOUNDBRIDGE_* settings")
	backendF = flag.String("backend", "", "Audio backend: portaudio or malgo (default from SOUNDBRIDGE_BACKEND)")
	list     = flag.Bool("list", false, "List audio devices and exit")
	mic      = flag.Bool("mic", false, "Forward the microphone to every enabled output, speakers included unless -no-physical is set")
	play     = flag.String("play", "", "Media file to play once")
	input    = flag.String("input", "", "Input device name (default: system default)")
	cable    = flag.String("cable", "", "Virtual cable output name (default: first output)")
	output   = flag.String("output", "", "Physical output name (default: system default)")
	noOutput = flag.Bool("no-physical", false, "Do not play to the physical output; avoids microphone feedback with -mic")
	volume   = flag.Float64("volume", -1, "File player volume in [0,1] (default from SOUNDBRIDGE_VOLUME)")
	logLevel = flag.String("log-level", "", "Log level (default from SOUNDBRIDGE_LOG_LEVEL)")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "soundbridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*envFile)
	if err != nil {
		return err
	}
	if *backendF != "" {
		cfg.Backend = *backendF
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *volume >= 0 {
		cfg.Board.Volume = float32(*volume)
	}

	logs, err := logger.New(os.Stderr, cfg.LogLevel)
	if err != nil {
		return err
	}
	cfg.Board.Logger = logs.Logger
	log := logs.Logger(logger.Board)

	backend, err := openBackend(cfg.Backend, logs.Logger(logger.Streams))
	if err != nil {
		return err
	}

	if *list {
		defer backend.Close()
		return listDevices(backend)
	}

	ended := make(chan struct{}, 1)
	failed := make(chan error, 1)
	board, err := soundbridge.New(cfg.Board, backend, soundbridge.Notifications{
		OnError: func(id soundbridge.PlayerID, msg string) {
			select {
			case failed <- fmt.Errorf("%s: %s", id, msg):
			default:
			}
		},
		OnTrackEnded: func(soundbridge.PlayerID) {
			select {
			case ended <- struct{}{}:
			default:
			}
		},
	})
	if err != nil {
		backend.Close()
		return err
	}
	defer board.Close()

	if err := selectDevices(board); err != nil {
		return err
	}
	for _, role := range device.Roles {
		log.Infof("%s: %s", role, board.SelectedDevice(role))
	}

	if !*mic && *play == "" {
		return errors.New("nothing to do: pass -mic and/or -play (see -h)")
	}
	if *mic {
		if !*noOutput {
			log.Warnf("Microphone also plays on %s; pass -no-physical to avoid feedback",
				board.SelectedDevice(device.RolePhysical))
		}
		if err := board.StartPlayer(soundbridge.Microphone); err != nil {
			return err
		}
	}
	if *play != "" {
		id := soundbridge.File(0)
		if err := board.SetTrack(id, *play); err != nil {
			return err
		}
		if err := board.SetTrackState(id, track.Playing); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			log.Infof("Interrupted, shutting down")
			return nil
		case err := <-failed:
			return err
		case <-ended:
			log.Infof("Track finished")
			if !*mic {
				return nil
			}
		}
	}
}

func openBackend(name string, log slog.Logger) (stream.Backend, error) {
	switch name {
	case config.BackendMalgo:
		m, err := stream.NewMalgo(log)
		if err != nil {
			return nil, err
		}
		return m, nil
	case config.BackendPortAudio:
		p, err := stream.NewPortAudio(log)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

func selectDevices(board *soundbridge.Board) error {
	byName := []struct {
		role device.Role
		name string
	}{
		{device.RoleInput, *input},
		{device.RoleCable, *cable},
		{device.RolePhysical, *output},
	}
	for _, s := range byName {
		if s.name == "" {
			continue
		}
		if err := board.SelectDeviceByName(s.role, s.name); err != nil {
			return err
		}
	}
	if *noOutput {
		board.EnableDevice(device.RolePhysical, false)
	}
	return nil
}

func listDevices(backend stream.Backend) error {
	devs, err := backend.Devices()
	if err != nil {
		return err
	}
	fmt.Printf("%s devices:\n", backend.Name())
	for _, d := range devs {
		var flags string
		if d.DefaultInput {
			flags += " [default input]"
		}
		if d.DefaultOutput {
			flags += " [default output]"
		}
		fmt.Printf("  %2d  %-40s in:%d out:%d %6.0f Hz%s\n",
			d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate, flags)
	}
	return nil
}
