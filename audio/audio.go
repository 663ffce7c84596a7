// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	BufSize() int

	// Close releases any resources.
	Close() error
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// FileDecoder constructs a Source straight from a path. Decoders that drive
// an external process or need random access to the file implement it.
type FileDecoder interface {
	DecodeFile(path string) (Source, error)
}

// Registry maps lower-case file extensions (without the dot) to decoders.
// Extensions with no registered decoder go to the fallback, if any.
type Registry struct {
	codecs   map[string]Decoder
	fallback FileDecoder

	mtx *sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
		mtx:    &sync.RWMutex{},
	}
}

func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[normalizeExt(format)] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	d, ok := r.codecs[normalizeExt(format)]
	return d, ok
}

// SetFallback sets the decoder used for unknown extensions.
func (r *Registry) SetFallback(d FileDecoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.fallback = d
}

// Formats lists the registered extensions.
func (r *Registry) Formats() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	return out
}

// Open picks a decoder by the extension of path and returns a Source that
// owns the underlying file. Closing the Source closes the file.
func (r *Registry) Open(path string) (Source, error) {
	ext := normalizeExt(filepath.Ext(path))

	r.mtx.RLock()
	d, ok := r.codecs[ext]
	fallback := r.fallback
	r.mtx.RUnlock()

	if !ok {
		if fallback == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
		}
		return fallback.DecodeFile(path)
	}

	if fd, isFile := d.(FileDecoder); isFile {
		return fd.DecodeFile(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	src, err := d.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode %s: %w", ext, err)
	}

	return &fileSource{Source: src, f: f}, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

type fileSource struct {
	Source
	f *os.File
}

func (s *fileSource) Close() error {
	srcErr := s.Source.Close()
	fErr := s.f.Close()
	if srcErr != nil {
		return fmt.Errorf("%w", srcErr)
	}
	if fErr != nil {
		return fmt.Errorf("%w", fErr)
	}
	return nil
}
