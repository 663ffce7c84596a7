// SPDX-License-Identifier: EPL-2.0

package ffmpeg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/ik5/soundbridge/audio"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// Output layout requested from ffmpeg: interleaved stereo float32.
const (
	outChannels = 2
	outFormat   = "f32le"
)

// Decoder runs the ffmpeg binary to decode anything it can open. The
// native sample rate of the first audio stream is kept.
type Decoder struct {
	// Binary is the ffmpeg executable; empty means "ffmpeg" on PATH.
	Binary string
	// Probe returns the sample rate of the first audio stream in path.
	// Nil uses ffprobe.
	Probe func(path string) (int, error)
}

func (d Decoder) DecodeFile(path string) (audio.Source, error) {
	probe := d.Probe
	if probe == nil {
		probe = ProbeSampleRate
	}
	rate, err := probe(path)
	if err != nil {
		return nil, err
	}

	stream := ffmpeg.Input(path).
		Output("pipe:", ffmpeg.KwArgs{
			"f":  outFormat,
			"ac": outChannels,
			"ar": rate,
			"vn": "",
		})
	if d.Binary != "" {
		stream.SetFfmpegPath(d.Binary)
	}

	return start(stream.Compile(), rate)
}

// Decode feeds r to ffmpeg on stdin. The stream must carry enough header
// information for ffmpeg to detect the container.
func (d Decoder) Decode(r io.Reader) (audio.Source, error) {
	named, ok := r.(interface{ Name() string })
	if !ok {
		return nil, ErrUnknownRate
	}
	probe := d.Probe
	if probe == nil {
		probe = ProbeSampleRate
	}
	rate, err := probe(named.Name())
	if err != nil {
		return nil, err
	}

	stream := ffmpeg.Input("pipe:").
		Output("pipe:", ffmpeg.KwArgs{"f": outFormat, "ac": outChannels, "ar": rate}).
		WithInput(r)
	if d.Binary != "" {
		stream.SetFfmpegPath(d.Binary)
	}

	return start(stream.Compile(), rate)
}

func start(cmd *exec.Cmd, rate int) (*source, error) {
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	s := &source{cmd: cmd, out: out, rate: rate, buf: make([]byte, 16384)}
	cmd.Stderr = &s.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}
	return s, nil
}

type source struct {
	cmd    *exec.Cmd
	out    io.ReadCloser
	stderr bytes.Buffer
	rate   int

	buf  []byte
	tail int // bytes of a partial sample kept at the front of buf

	closeOnce sync.Once
	closeErr  error
}

func (s *source) SampleRate() int { return s.rate }
func (s *source) Channels() int   { return outChannels }
func (s *source) BufSize() int    { return len(s.buf) / 4 }

func (s *source) ReadSamples(dst []float32) (int, error) {
	want := len(dst) * 4
	if cap(s.buf) < want {
		nb := make([]byte, want)
		copy(nb, s.buf[:s.tail])
		s.buf = nb
	}
	s.buf = s.buf[:want]

	n, err := s.out.Read(s.buf[s.tail:])
	n += s.tail
	whole := n - n%4
	samples := audio.Float32s(dst, s.buf[:whole])
	s.tail = copy(s.buf, s.buf[whole:n])

	if err == io.EOF {
		if werr := s.wait(); werr != nil {
			return samples, werr
		}
		if samples == 0 {
			return 0, io.EOF
		}
		return samples, nil
	}
	if err != nil {
		return samples, fmt.Errorf("%w", err)
	}
	return samples, nil
}

func (s *source) wait() error {
	s.closeOnce.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			s.closeErr = fmt.Errorf("%w: %w: %s", ErrDecode, err, lastLine(s.stderr.Bytes()))
		}
	})
	return s.closeErr
}

func (s *source) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			s.cmd.Process.Kill()
		}
		s.cmd.Wait()
	})
	return nil
}

func lastLine(b []byte) string {
	b = bytes.TrimSpace(b)
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		b = b[i+1:]
	}
	return string(b)
}

type probeResult struct {
	Streams []struct {
		CodecType  string `json:"codec_type"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
}

// ProbeSampleRate asks ffprobe for the sample rate of the first audio
// stream in path.
func ProbeSampleRate(path string) (int, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProbe, err)
	}
	return parseProbe([]byte(out))
}

func parseProbe(data []byte) (int, error) {
	var res probeResult
	if err := json.Unmarshal(data, &res); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProbe, err)
	}
	for _, st := range res.Streams {
		if st.CodecType != "audio" {
			continue
		}
		rate, err := strconv.Atoi(st.SampleRate)
		if err != nil || rate <= 0 {
			return 0, fmt.Errorf("%w: sample rate %q", ErrProbe, st.SampleRate)
		}
		return rate, nil
	}
	return 0, ErrNoAudioStream
}
