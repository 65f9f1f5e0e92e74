package service

import (
	"fmt"
	"io"

	"github.com/SteelMorgan/chatlog-notifier/internal/config"
	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/SteelMorgan/chatlog-notifier/internal/links"
	"github.com/SteelMorgan/chatlog-notifier/internal/metrics"
	"github.com/SteelMorgan/chatlog-notifier/internal/router"
	"github.com/rs/zerolog/log"
)

// BuildResolver creates the cached HTTP item resolver described by cfg.
// Close the resolver on shutdown to release the cache.
func BuildResolver(cfg *config.Config, m *metrics.Pipeline) (*links.CachedResolver, error) {
	httpResolver, err := links.NewHTTPResolver(links.HTTPResolverConfig{
		URLTemplate:   cfg.LookupURL,
		TitleSuffix:   cfg.TitleSuffix,
		Timeout:       cfg.LookupTimeout,
		RatePerSecond: cfg.LookupRate,
		Retry:         cfg.RetryConfig(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create link resolver: %w", err)
	}

	var cache links.Cache
	if cfg.LinkCachePath != "" {
		bc, err := links.NewBoltCache(cfg.LinkCachePath)
		if err != nil {
			return nil, err
		}
		cache = bc
	} else {
		cache = links.NewMemoryCache()
	}

	return links.NewCachedResolver(httpResolver, cache, m), nil
}

// BuildSinks creates the console sink for All and, when OutputDir is set,
// one file sink per channel. Close the returned closers on shutdown.
func BuildSinks(cfg *config.Config, console io.Writer) (map[domain.Channel]router.Sink, []io.Closer, error) {
	consoleSink := router.NewConsoleSink(console, cfg.NoColor)
	sinks := map[domain.Channel]router.Sink{
		domain.ChannelAll: consoleSink,
	}

	if cfg.OutputDir == "" {
		return sinks, nil, nil
	}

	var closers []io.Closer
	for _, ch := range domain.Channels() {
		fs, err := router.NewFileSink(cfg.OutputDir, ch)
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, nil, err
		}
		closers = append(closers, fs)

		if ch.IsCatchAll() {
			sinks[ch] = &teeSink{sinks: []router.Sink{consoleSink, fs}}
		} else {
			sinks[ch] = fs
		}

		log.Info().
			Str("channel", ch.String()).
			Str("file", fs.Path()).
			Msg("Channel output file")
	}

	return sinks, closers, nil
}

// teeSink writes to several sinks; it is ready while any of them is
type teeSink struct {
	sinks []router.Sink
}

func (t *teeSink) WriteOutput(text string, color domain.Color) {
	for _, s := range t.sinks {
		if s.Ready() {
			s.WriteOutput(text, color)
		}
	}
}

func (t *teeSink) Clear() {
	for _, s := range t.sinks {
		if s.Ready() {
			s.Clear()
		}
	}
}

func (t *teeSink) Ready() bool {
	for _, s := range t.sinks {
		if s.Ready() {
			return true
		}
	}
	return false
}
