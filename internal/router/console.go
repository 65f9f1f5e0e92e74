package router

import (
	"io"
	"strings"
	"sync"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
)

const clearScreen = "\x1b[H\x1b[2J"

// ConsoleSink writes colored text to a terminal
type ConsoleSink struct {
	mu       sync.Mutex
	out      io.Writer
	renderer *lipgloss.Renderer
	noColor  bool
	styles   map[domain.Color]lipgloss.Style
}

// NewConsoleSink creates a console sink on out. noColor disables styling and screen clearing.
func NewConsoleSink(out io.Writer, noColor bool) *ConsoleSink {
	return &ConsoleSink{
		out:      out,
		renderer: lipgloss.NewRenderer(out),
		noColor:  noColor,
		styles:   make(map[domain.Color]lipgloss.Style),
	}
}

// WriteOutput implements Sink
func (s *ConsoleSink) WriteOutput(text string, color domain.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.noColor && color != "" {
		// render without the line break so styling does not pad an empty trailing line
		body, nl := strings.CutSuffix(text, "\n")
		text = s.style(color).Render(body)
		if nl {
			text += "\n"
		}
	}

	if _, err := io.WriteString(s.out, text); err != nil {
		log.Warn().Err(err).Msg("Console write failed")
	}
}

func (s *ConsoleSink) style(color domain.Color) lipgloss.Style {
	st, ok := s.styles[color]
	if !ok {
		st = s.renderer.NewStyle().
			Foreground(lipgloss.Color(string(color))).
			TabWidth(lipgloss.NoTabConversion)
		s.styles[color] = st
	}
	return st
}

// Clear implements Sink
func (s *ConsoleSink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.noColor {
		return
	}
	_, _ = io.WriteString(s.out, clearScreen)
}

// Ready implements Sink
func (s *ConsoleSink) Ready() bool {
	return s.out != nil
}
