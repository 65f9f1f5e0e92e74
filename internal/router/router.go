package router

import (
	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/SteelMorgan/chatlog-notifier/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Router fans processed lines out to the catch-all sink and the line's channel sink.
// It is not safe for concurrent use; the Dispatcher owns it.
type Router struct {
	sinks   map[domain.Channel]Sink
	metrics *metrics.Pipeline
}

// NewRouter creates a router with no sinks
func NewRouter() *Router {
	return &Router{sinks: make(map[domain.Channel]Sink)}
}

// WithMetrics attaches delivery counters
func (r *Router) WithMetrics(m *metrics.Pipeline) *Router {
	r.metrics = m
	return r
}

// Register binds sink to ch, replacing any previous binding
func (r *Router) Register(ch domain.Channel, sink Sink) {
	if sink == nil {
		delete(r.sinks, ch)
		return
	}
	r.sinks[ch] = sink
}

// Deliver writes the line's segments to the All sink and, when the line has a
// dedicated channel, to that channel's sink. Sinks that are not ready are skipped.
func (r *Router) Deliver(line domain.ProcessedLine) {
	r.deliverTo(domain.ChannelAll, line)
	if line.Channel.IsSet() && !line.Channel.IsCatchAll() {
		r.deliverTo(line.Channel, line)
	}
}

func (r *Router) deliverTo(ch domain.Channel, line domain.ProcessedLine) {
	sink, ok := r.sinks[ch]
	if !ok {
		return
	}
	if !sink.Ready() {
		r.metrics.RecordSkipped(ch)
		log.Trace().Str("channel", ch.String()).Msg("Sink not ready, line skipped")
		return
	}
	for _, seg := range line.Segments() {
		sink.WriteOutput(seg.Text, seg.Color)
	}
	r.metrics.RecordDelivered(ch)
}

// Clear clears every ready sink once, even if bound to several channels
func (r *Router) Clear() {
	seen := make(map[Sink]bool, len(r.sinks))
	for _, ch := range domain.Channels() {
		sink, ok := r.sinks[ch]
		if !ok || seen[sink] {
			continue
		}
		seen[sink] = true
		if sink.Ready() {
			sink.Clear()
		}
	}
}
