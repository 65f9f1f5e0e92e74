package router

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileSink appends plain text to a size-rotated file. Clear starts a new file.
type FileSink struct {
	mu     sync.Mutex
	path   string
	out    *lumberjack.Logger
	closed bool
}

// NewFileSink creates a sink writing to <dir>/<channel>.log
func NewFileSink(dir string, ch domain.Channel) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, strings.ToLower(ch.String())+".log")
	return &FileSink{
		path: path,
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 5,
		},
	}, nil
}

// Path returns the current output file
func (s *FileSink) Path() string {
	return s.path
}

// WriteOutput implements Sink; color is ignored
func (s *FileSink) WriteOutput(text string, _ domain.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if _, err := s.out.Write([]byte(text)); err != nil {
		log.Warn().Err(err).Str("file", s.path).Msg("Channel file write failed")
	}
}

// Clear implements Sink by rotating the file
func (s *FileSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if err := s.out.Rotate(); err != nil {
		log.Warn().Err(err).Str("file", s.path).Msg("Channel file rotation failed")
	}
}

// Ready implements Sink
func (s *FileSink) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Close closes the file; later writes are dropped
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.out.Close()
}
