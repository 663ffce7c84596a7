// SPDX-License-Identifier: EPL-2.0

// Package soundbridge is the core of a desktop soundboard.
//
// A Board owns one microphone player and a number of media file players.
// The microphone player forwards the selected input device to a virtual
// cable output, and optionally to the physical output, so other programs
// hear the user's voice. Each file player decodes one track (WAV, MP3,
// Ogg Vorbis, AIFF and FLAC natively, anything else through ffmpeg) and
// plays it to the same outputs.
//
// The host UI drives the board through a small set of operations and
// receives notifications from the player goroutines:
//
//	board, err := soundbridge.New(soundbridge.DefaultConfig(), backend, soundbridge.Notifications{
//		OnError: func(id soundbridge.PlayerID, msg string) { log.Printf("%s: %s", id, msg) },
//	})
//	if err != nil {
//		return err
//	}
//	defer board.Close()
//
//	board.SetTrack(soundbridge.File(0), "airhorn.mp3")
//	board.SetTrackState(soundbridge.File(0), track.Playing)
//
// # Devices
//
// Devices are listed once at New and again on RefreshDevices. Three roles
// are selected from the lists: the input, the cable output and the
// physical output. Each role can be disabled. A refresh or a new
// selection makes running players reopen their streams at their next
// iteration.
//
// # Errors
//
// A device failure (no device, unsupported format, a stream that stops by
// itself) ends the player loop and is reported once through OnError. A
// decode failure stops the track. In both cases every stream and decoder
// the loop opened is released, and the player can be started again.
package soundbridge
