// SPDX-License-Identifier: EPL-2.0

// Package player runs the device loops of the soundboard.
//
// A Microphone forwards captured audio to the enabled outputs. A
// MediaFile decodes one track and writes it to the same outputs. Both
// loops are cooperative: Stop and UpdateDevices set flags read once per
// iteration, and requests from other goroutines (track state, volume)
// go through single-slot mailboxes where the latest value wins.
//
// A Manager owns the goroutine of one player. It never runs two loops of
// the same player at once: a Start issued while a stopped loop is still
// unwinding waits for it to return.
package player
