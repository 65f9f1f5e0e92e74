package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SteelMorgan/chatlog-notifier/internal/chat"
	"github.com/SteelMorgan/chatlog-notifier/internal/chatlog"
	"github.com/SteelMorgan/chatlog-notifier/internal/config"
	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/SteelMorgan/chatlog-notifier/internal/links"
	"github.com/SteelMorgan/chatlog-notifier/internal/mapping"
	"github.com/SteelMorgan/chatlog-notifier/internal/metrics"
	"github.com/SteelMorgan/chatlog-notifier/internal/router"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const clearTimeout = 2 * time.Second

// Deps are the collaborators the service does not build itself
type Deps struct {
	Rules    mapping.RuleSet
	Resolver links.Resolver // nil leaves item links unresolved
	Sinks    map[domain.Channel]router.Sink
	Metrics  *metrics.Pipeline
}

// Service tails the chat log and routes each new line to the sinks.
// Tailer, processing worker and dispatcher run on separate goroutines joined by a queue.
type Service struct {
	tailer     *chatlog.Tailer
	watcher    *chatlog.Watcher
	queue      *chatlog.Queue
	processor  *chat.Processor
	dispatcher *router.Dispatcher
}

// New opens the chat log and wires the pipeline. Open failures are returned as
// chatlog.NotFoundError or chatlog.AccessError.
func New(cfg *config.Config, deps Deps) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	queue := chatlog.NewQueue()
	tailer, err := chatlog.Open(cfg.ChatLogPath,
		chatlog.WithHandler(queue.Push),
		chatlog.WithEncoding(cfg.ChatLogEncoding),
		chatlog.WithMetrics(deps.Metrics),
	)
	if err != nil {
		return nil, err
	}

	r := router.NewRouter().WithMetrics(deps.Metrics)
	for ch, sink := range deps.Sinks {
		r.Register(ch, sink)
	}

	return &Service{
		tailer:     tailer,
		watcher:    chatlog.NewWatcher(tailer, cfg.PollInterval),
		queue:      queue,
		processor:  chat.NewProcessor(chat.NewClassifier(deps.Rules), links.NewRewriter(deps.Resolver)),
		dispatcher: router.NewDispatcher(r, 0),
	}, nil
}

// Run blocks until ctx is cancelled (returns nil) or tailing fails fatally (returns the error).
func (s *Service) Run(ctx context.Context) error {
	log.Info().Str("file", s.tailer.Path()).Msg("Notifier service starting...")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.dispatcher.Run(gctx)
	})

	g.Go(func() error {
		defer s.queue.Close()
		return s.watcher.Run(gctx)
	})

	g.Go(func() error {
		return s.process(gctx)
	})

	err := g.Wait()
	if cerr := s.tailer.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("Failed to close chat log")
	}

	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		log.Info().Msg("Notifier service stopped")
		return nil
	}
	return err
}

// process runs the per-line pipeline; one bad line never stops the loop
func (s *Service) process(ctx context.Context) error {
	for {
		raw, ok := s.queue.Pop(ctx)
		if !ok {
			return ctx.Err()
		}

		line, ok := s.processLine(ctx, raw)
		if !ok {
			continue
		}
		if err := s.dispatcher.Submit(ctx, line); err != nil {
			return err
		}
	}
}

func (s *Service) processLine(ctx context.Context, raw string) (line domain.ProcessedLine, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("line", raw).
				Msg("Chat line processing panicked, skipping")
			ok = false
		}
	}()
	return s.processor.Process(ctx, raw), true
}

// Clear empties every ready sink
func (s *Service) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), clearTimeout)
	defer cancel()

	if err := s.dispatcher.Clear(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to clear sinks")
		return
	}
	log.Info().Msg("Sinks cleared")
}
