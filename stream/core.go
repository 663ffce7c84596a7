// SPDX-License-Identifier: EPL-2.0

package stream

import (
	"encoding/binary"
	"math"
	"sync/atomic"
	"time"

	"github.com/ik5/soundbridge/audio"
	"github.com/ik5/soundbridge/utils"
)

// core is the state shared by a device callback and the goroutine using
// the stream: the ring buffer, the gain and liveness tracking.
type core struct {
	format audio.Format
	ring   *RingBuffer
	stall  time.Duration

	volume     atomic.Uint32 // float32 bits
	started    atomic.Bool
	stopping   atomic.Bool
	died       atomic.Bool
	lastTick   atomic.Int64 // unix nanos of the last callback
	dropped    atomic.Int64
	callbacks  atomic.Int64
	renderBuf  []byte // callback goroutine only
	captureBuf []byte // callback goroutine only
}

func newCore(f audio.Format, opts Options) *core {
	c := &core{
		format: f,
		ring:   NewRingBuffer(opts.bufferBytes(f)),
		stall:  opts.StallTimeout,
	}
	c.volume.Store(math.Float32bits(1))
	return c
}

func (c *core) Format() audio.Format { return c.format }
func (c *core) Free() int            { return c.ring.Free() }
func (c *core) Buffered() int        { return c.ring.Len() }
func (c *core) Size() int            { return c.ring.Cap() }

func (c *core) Write(p []byte) int {
	if c.Stopped() {
		return 0
	}
	return c.ring.Write(p)
}

func (c *core) Read(p []byte) int {
	if c.Stopped() && c.ring.Len() == 0 {
		return 0
	}
	n := c.ring.Read(p)
	return n - n%c.format.BytesPerFrame()
}

func (c *core) SetVolume(v float32) {
	c.volume.Store(math.Float32bits(utils.ClampGain(v)))
}

func (c *core) gain() float32 { return math.Float32frombits(c.volume.Load()) }

func (c *core) markStarted() {
	c.lastTick.Store(time.Now().UnixNano())
	c.started.Store(true)
}

func (c *core) markStopping() { c.stopping.Store(true) }

// markDied records that the platform stopped the stream on its own.
func (c *core) markDied() {
	if !c.stopping.Load() {
		c.died.Store(true)
	}
}

func (c *core) tick() {
	c.lastTick.Store(time.Now().UnixNano())
	c.callbacks.Add(1)
}

func (c *core) Stopped() bool {
	if c.died.Load() || c.stopping.Load() || !c.started.Load() {
		return true
	}
	if c.stall > 0 {
		idle := time.Since(time.Unix(0, c.lastTick.Load()))
		if idle > c.stall {
			c.died.Store(true)
			return true
		}
	}
	return false
}

// render fills dst (raw device bytes) from the ring and applies the gain.
func (c *core) render(dst []byte) {
	c.tick()
	c.ring.Read(dst)
	scaleBytes(dst, c.format.Sample, c.gain())
}

func (c *core) renderFloat32(out []float32) {
	need := len(out) * 4
	if cap(c.renderBuf) < need {
		c.renderBuf = make([]byte, need)
	}
	buf := c.renderBuf[:need]
	c.render(buf)
	audio.Float32s(out, buf)
}

func (c *core) renderInt16(out []int16) {
	need := len(out) * 2
	if cap(c.renderBuf) < need {
		c.renderBuf = make([]byte, need)
	}
	buf := c.renderBuf[:need]
	c.render(buf)
	audio.Int16s(out, buf)
}

// capture pushes raw device bytes into the ring, dropping what does not fit.
func (c *core) capture(src []byte) {
	c.tick()
	if n := c.ring.Write(src); n < len(src) {
		c.dropped.Add(int64(len(src) - n))
	}
}

func (c *core) captureFloat32(in []float32) {
	need := len(in) * 4
	if cap(c.captureBuf) < need {
		c.captureBuf = make([]byte, need)
	}
	buf := c.captureBuf[:need]
	audio.PutFloat32s(buf, in)
	c.capture(buf)
}

func (c *core) captureInt16(in []int16) {
	need := len(in) * 2
	if cap(c.captureBuf) < need {
		c.captureBuf = make([]byte, need)
	}
	buf := c.captureBuf[:need]
	audio.PutInt16s(buf, in)
	c.capture(buf)
}

// scaleBytes applies gain to little-endian samples in place.
func scaleBytes(b []byte, t audio.SampleType, gain float32) {
	if gain == 1 {
		return
	}
	switch t {
	case audio.Float32:
		for i := 0; i+4 <= len(b); i += 4 {
			v := math.Float32frombits(binary.LittleEndian.Uint32(b[i:])) * gain
			v = max(-1, min(1, v))
			binary.LittleEndian.PutUint32(b[i:], math.Float32bits(v))
		}
	case audio.Int16:
		for i := 0; i+2 <= len(b); i += 2 {
			v := utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(b[i:]))) * gain
			binary.LittleEndian.PutUint16(b[i:], uint16(utils.Float32ToInt16(v)))
		}
	}
}
