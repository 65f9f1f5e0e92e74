package router

import "github.com/SteelMorgan/chatlog-notifier/internal/domain"

// Sink is a display target for colored chat text.
// Sinks are only called from the dispatcher goroutine.
type Sink interface {
	// WriteOutput appends text in the given color
	WriteOutput(text string, color domain.Color)

	// Clear removes everything written so far
	Clear()

	// Ready reports whether the sink can accept output; writes to a sink that is not ready are dropped
	Ready() bool
}
