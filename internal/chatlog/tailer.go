package chatlog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"sync"

	"github.com/SteelMorgan/chatlog-notifier/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// LineHandler receives complete lines in file order
type LineHandler func(line string)

// Option configures a Tailer
type Option func(*Tailer) error

// WithHandler sets the receiver of complete lines
func WithHandler(h LineHandler) Option {
	return func(t *Tailer) error {
		t.handler = h
		return nil
	}
}

// WithEncoding sets the file charset by WHATWG name (e.g. "windows-1252")
func WithEncoding(name string) Option {
	return func(t *Tailer) error {
		enc, err := LookupEncoding(name)
		if err != nil {
			return err
		}
		t.encoding = enc
		return nil
	}
}

// asciiProbe covers the bytes the tailer and classifier rely on
const asciiProbe = "\n\r :[]();0123456789azAZ"

// LookupEncoding resolves a WHATWG charset name. Only encodings that keep ASCII
// bytes unchanged are accepted, since records are split on '\n' before decoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	encoded, err := enc.NewEncoder().String(asciiProbe)
	if err != nil || encoded != asciiProbe {
		return nil, fmt.Errorf("encoding %q is not ASCII-compatible", name)
	}
	return enc, nil
}

// WithMetrics records read and reset counters
func WithMetrics(m *metrics.Pipeline) Option {
	return func(t *Tailer) error {
		t.metrics = m
		return nil
	}
}

// Tailer follows a single growing chat log file.
// All state is guarded by mu; OnChange may be called from any goroutine.
type Tailer struct {
	path     string
	handler  LineHandler
	encoding encoding.Encoding
	metrics  *metrics.Pipeline

	mu      sync.Mutex
	file    *os.File
	info    os.FileInfo // identity of the open file
	readPos int64       // bytes consumed from file, including partial
	partial []byte      // unterminated tail of the last read
	closed  bool
}

// Open opens the chat log and positions at its current end.
// Content already in the file is never delivered.
func Open(path string, opts ...Option) (*Tailer, error) {
	t := &Tailer{path: path}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}

	if err := t.open(); err != nil {
		return nil, err
	}
	t.readPos = t.info.Size()

	log.Info().
		Str("file", path).
		Int64("offset", t.readPos).
		Msg("Chat log opened, skipping existing content")

	return t, nil
}

func (t *Tailer) open() error {
	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &NotFoundError{Path: t.path, Err: err}
		}
		return &AccessError{Path: t.path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return &AccessError{Path: t.path, Err: err}
	}
	if info.IsDir() {
		f.Close()
		return &AccessError{Path: t.path, Err: fmt.Errorf("is a directory")}
	}

	t.file = f
	t.info = info
	return nil
}

// OnChange reads everything appended since the last call and hands complete lines to the handler.
// It is invoked by the watcher on every file notification; spurious calls are harmless.
func (t *Tailer) OnChange() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}

	if err := t.checkIdentity(); err != nil {
		return err
	}
	return t.readAppended()
}

// readAppended reads from readPos to the end of the open handle
func (t *Tailer) readAppended() error {
	info, err := t.file.Stat()
	if err != nil {
		return &AccessError{Path: t.path, Err: err}
	}
	if info.Size() < t.readPos {
		log.Info().
			Str("file", t.path).
			Int64("offset", t.readPos).
			Int64("size", info.Size()).
			Msg("Chat log truncated, reading from start")
		t.reset()
	}
	if info.Size() == t.readPos {
		return nil
	}

	data, err := io.ReadAll(io.NewSectionReader(t.file, t.readPos, math.MaxInt64-t.readPos))
	if err != nil {
		return fmt.Errorf("failed to read chat log: %w", err)
	}
	t.readPos += int64(len(data))
	t.emit(data)
	return nil
}

// checkIdentity reopens the path when the file was replaced (rotation or recreation)
func (t *Tailer) checkIdentity() error {
	current, err := os.Stat(t.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Removed and not yet recreated; keep draining the old handle
			return nil
		}
		return &AccessError{Path: t.path, Err: err}
	}
	if os.SameFile(current, t.info) {
		return nil
	}

	log.Info().Str("file", t.path).Msg("Chat log replaced, reopening")

	// lines completed in the old file before the switch still belong to the stream
	if err := t.readAppended(); err != nil {
		log.Warn().Err(err).Msg("Failed to drain replaced chat log")
	}

	old := t.file
	if err := t.open(); err != nil {
		return err
	}
	old.Close()
	t.reset()
	return nil
}

func (t *Tailer) reset() {
	t.readPos = 0
	t.partial = nil
	t.metrics.RecordTailReset()
}

// emit splits buffered bytes into lines; the unterminated remainder is kept for the next read
func (t *Tailer) emit(data []byte) {
	buf := data
	if len(t.partial) > 0 {
		buf = append(t.partial, data...)
	}

	lines := 0
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(buf[:i], []byte{'\r'})
		buf = buf[i+1:]
		if len(line) == 0 {
			continue
		}
		lines++
		if t.handler != nil {
			t.handler(t.decode(line))
		}
	}

	t.partial = append([]byte(nil), buf...)
	t.metrics.RecordLinesRead(lines)
}

func (t *Tailer) decode(line []byte) string {
	if t.encoding == nil {
		return string(line)
	}
	s, err := t.encoding.NewDecoder().Bytes(line)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to decode chat line, passing raw bytes")
		return string(line)
	}
	return string(s)
}

// Offset returns the file position just past the last complete line
func (t *Tailer) Offset() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readPos - int64(len(t.partial))
}

// Path returns the tailed file path
func (t *Tailer) Path() string {
	return t.path
}

// Close releases the file. Safe to call more than once.
func (t *Tailer) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	if t.file == nil {
		return nil
	}
	return t.file.Close()
}
