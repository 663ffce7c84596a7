// SPDX-License-Identifier: EPL-2.0

// Package stream opens audio device streams for the players.
//
// A Backend (PortAudio or miniaudio) lists devices and opens callback
// driven streams. Each stream owns a byte ring buffer between the caller
// and the device callback: Write and Read never block, underruns play
// silence, and volume is applied as samples leave the buffer.
//
// Sink and Source wrap one stream each. They never fail at construction;
// a stream that could not be opened, or that stopped on its own, reports
// a *DeviceError from Err and turns every other call into a no-op.
//
//	sink := stream.NewSink(backend, device.RoleCable, dev, format, stream.Options{})
//	defer sink.Close()
//	if err := sink.WaitFree(ctx, len(chunk), 2*time.Millisecond, 5*time.Second); err != nil {
//		return err
//	}
//	sink.Write(chunk)
package stream
