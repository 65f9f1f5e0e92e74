package router

import (
	"context"
	"errors"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
	"github.com/rs/zerolog/log"
)

// ErrStopped is returned by Submit after the dispatcher has exited
var ErrStopped = errors.New("dispatcher stopped")

const defaultBuffer = 256

type command struct {
	line  domain.ProcessedLine
	clear bool
}

// Dispatcher serializes every sink call onto one goroutine
type Dispatcher struct {
	router *Router
	cmds   chan command
	done   chan struct{}
}

// NewDispatcher creates a dispatcher for r. buffer <= 0 uses a default.
func NewDispatcher(r *Router, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Dispatcher{
		router: r,
		cmds:   make(chan command, buffer),
		done:   make(chan struct{}),
	}
}

// Run processes submitted lines until ctx is done. Lines already buffered are delivered first.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)

	log.Debug().Msg("Dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.drain()
			log.Debug().Msg("Dispatcher stopped")
			return ctx.Err()
		case cmd := <-d.cmds:
			d.handle(cmd)
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case cmd := <-d.cmds:
			d.handle(cmd)
		default:
			return
		}
	}
}

func (d *Dispatcher) handle(cmd command) {
	if cmd.clear {
		d.router.Clear()
		return
	}
	d.router.Deliver(cmd.line)
}

// Submit hands line to the dispatcher goroutine
func (d *Dispatcher) Submit(ctx context.Context, line domain.ProcessedLine) error {
	return d.send(ctx, command{line: line})
}

// Clear asks the dispatcher goroutine to clear every sink
func (d *Dispatcher) Clear(ctx context.Context) error {
	return d.send(ctx, command{clear: true})
}

func (d *Dispatcher) send(ctx context.Context, cmd command) error {
	select {
	case <-d.done:
		return ErrStopped
	default:
	}

	select {
	case d.cmds <- cmd:
		return nil
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}
