// SPDX-License-Identifier: EPL-2.0

package ffmpeg

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ik5/soundbridge/audio"
)

func TestParseProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		json    string
		want    int
		wantErr error
	}{
		{
			name: "audio after video",
			json: `{"streams":[{"codec_type":"video"},{"codec_type":"audio","sample_rate":"48000"}]}`,
			want: 48000,
		},
		{
			name:    "no audio",
			json:    `{"streams":[{"codec_type":"video"}]}`,
			wantErr: ErrNoAudioStream,
		},
		{
			name:    "bad rate",
			json:    `{"streams":[{"codec_type":"audio","sample_rate":"fast"}]}`,
			wantErr: ErrProbe,
		},
		{
			name:    "not json",
			json:    `ffprobe: command not found`,
			wantErr: ErrProbe,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseProbe([]byte(tt.json))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("parseProbe() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProbe() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseProbe() = %d, want %d", got, tt.want)
			}
		})
	}
}

// fakeFFmpeg writes a shell script that ignores its arguments and prints
// the given PCM bytes.
func fakeFFmpeg(t *testing.T, pcm []byte) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in needs a POSIX shell")
	}
	dir := t.TempDir()
	data := filepath.Join(dir, "pcm.raw")
	if err := os.WriteFile(data, pcm, 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	bin := filepath.Join(dir, "ffmpeg")
	script := "#!/bin/sh\ncat '" + data + "'\n"
	if err := os.WriteFile(bin, []byte(script), 0o700); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return bin
}

func TestDecoder_DecodeFile(t *testing.T) {
	t.Parallel()

	want := []float32{0.5, -0.25, 0.125, 1}
	pcm := make([]byte, len(want)*4)
	audio.PutFloat32s(pcm, want)

	d := Decoder{
		Binary: fakeFFmpeg(t, pcm),
		Probe:  func(string) (int, error) { return 32000, nil },
	}
	src, err := d.DecodeFile("clip.m4a")
	if err != nil {
		t.Fatalf("DecodeFile() error = %v", err)
	}
	defer src.Close()

	if src.SampleRate() != 32000 || src.Channels() != 2 {
		t.Errorf("format = %d/%d, want 32000/2", src.SampleRate(), src.Channels())
	}

	var got []float32
	buf := make([]float32, 3)
	for {
		n, err := src.ReadSamples(buf)
		got = append(got, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDecoder_Errors(t *testing.T) {
	t.Parallel()

	probeErr := errors.New("probe failed")
	d := Decoder{Probe: func(string) (int, error) { return 0, probeErr }}
	if _, err := d.DecodeFile("x.webm"); !errors.Is(err, probeErr) {
		t.Errorf("DecodeFile() error = %v, want %v", err, probeErr)
	}

	d = Decoder{
		Binary: filepath.Join(t.TempDir(), "no-such-ffmpeg"),
		Probe:  func(string) (int, error) { return 44100, nil },
	}
	if _, err := d.DecodeFile("x.webm"); !errors.Is(err, ErrStart) {
		t.Errorf("DecodeFile() error = %v, want ErrStart", err)
	}

	if _, err := d.Decode(strings.NewReader("data")); !errors.Is(err, ErrUnknownRate) {
		t.Errorf("Decode(unnamed reader) error = %v, want ErrUnknownRate", err)
	}
}
