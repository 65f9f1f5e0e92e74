package metrics

import (
	"time"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names
const (
	MetricLinesRead       = "chatlog_lines_read_total"
	MetricTailResets      = "chatlog_tail_resets_total"
	MetricLinesDelivered  = "chatlog_lines_delivered_total"
	MetricSinkSkipped     = "chatlog_sink_skipped_total"
	MetricLinkLookups     = "chatlog_link_lookups_total"
	MetricLookupDuration  = "chatlog_link_lookup_duration_seconds"
	LabelChannel          = "channel"
	LabelResult           = "result"
	LookupResultCacheHit  = "cache_hit"
	LookupResultResolved  = "resolved"
	LookupResultFailed    = "failed"
	defaultChannelLabel   = "none"
)

// Pipeline tracks chat pipeline metrics. A nil *Pipeline is valid and records nothing.
type Pipeline struct {
	linesRead      *prometheus.CounterVec
	tailResets     *prometheus.CounterVec
	linesDelivered *prometheus.CounterVec
	sinkSkipped    *prometheus.CounterVec
	linkLookups    *prometheus.CounterVec
	lookupDuration *prometheus.HistogramVec
}

// lookupBuckets spans a cache-warm CDN hit up to the request timeout
var lookupBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// NewPipeline registers the pipeline metrics on collector
func NewPipeline(collector *Collector) *Pipeline {
	return &Pipeline{
		linesRead: collector.Counter(MetricLinesRead,
			"Total number of complete lines read from the chat log"),
		tailResets: collector.Counter(MetricTailResets,
			"Number of times the tailer restarted from offset 0 (truncation or rotation)"),
		linesDelivered: collector.Counter(MetricLinesDelivered,
			"Lines written to a sink, by channel", LabelChannel),
		sinkSkipped: collector.Counter(MetricSinkSkipped,
			"Lines dropped because the sink was not ready, by channel", LabelChannel),
		linkLookups: collector.Counter(MetricLinkLookups,
			"Item link lookups by result", LabelResult),
		lookupDuration: collector.Histogram(MetricLookupDuration,
			"Duration of remote item link lookups", lookupBuckets),
	}
}

// RecordLinesRead adds n read lines
func (p *Pipeline) RecordLinesRead(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.linesRead.WithLabelValues().Add(float64(n))
}

// RecordTailReset counts a restart from offset 0
func (p *Pipeline) RecordTailReset() {
	if p == nil {
		return
	}
	p.tailResets.WithLabelValues().Inc()
}

// RecordDelivered counts a line written to the sink of ch
func (p *Pipeline) RecordDelivered(ch domain.Channel) {
	if p == nil {
		return
	}
	p.linesDelivered.WithLabelValues(channelLabel(ch)).Inc()
}

// RecordSkipped counts a line dropped for a sink that was not ready
func (p *Pipeline) RecordSkipped(ch domain.Channel) {
	if p == nil {
		return
	}
	p.sinkSkipped.WithLabelValues(channelLabel(ch)).Inc()
}

// RecordLookup counts a lookup outcome; duration is observed for remote lookups only
func (p *Pipeline) RecordLookup(result string, duration time.Duration) {
	if p == nil {
		return
	}
	p.linkLookups.WithLabelValues(result).Inc()
	if result != LookupResultCacheHit {
		p.lookupDuration.WithLabelValues().Observe(duration.Seconds())
	}
}

func channelLabel(ch domain.Channel) string {
	if !ch.IsSet() {
		return defaultChannelLabel
	}
	return ch.String()
}
