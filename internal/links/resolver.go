package links

import (
	"context"
	"errors"
	"fmt"

	"github.com/SteelMorgan/chatlog-notifier/internal/domain"
)

// ErrNotFound means the lookup succeeded at transport level but yielded no display text
var ErrNotFound = errors.New("not found")

// ErrUnsupported is returned for link kinds a resolver cannot handle
var ErrUnsupported = errors.New("unsupported link kind")

// LookupError wraps every resolution failure. Callers treat it as recoverable.
type LookupError struct {
	Kind domain.LinkKind
	ID   string
	Err  error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %s %q: %v", e.Kind, e.ID, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Resolver turns a typed link id into display text
type Resolver interface {
	Resolve(ctx context.Context, kind domain.LinkKind, id string) (string, error)
}

// ResolverFunc adapts a function to the Resolver interface
type ResolverFunc func(ctx context.Context, kind domain.LinkKind, id string) (string, error)

// Resolve calls f
func (f ResolverFunc) Resolve(ctx context.Context, kind domain.LinkKind, id string) (string, error) {
	return f(ctx, kind, id)
}
