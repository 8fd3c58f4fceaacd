// Package featurectx carries the feature resolution outcome through a
// request's context so handlers deep in the tree can read it without having
// it passed along explicitly.
package featurectx

import (
	"context"
	"net/http"
	"sync"

	"github.com/matt-riley/moneycoach/internal/resolution"
)

type contextKey struct{}

// ConfigurationError is the panic value of [FromContext] when no provider is
// in scope. It signals a wiring mistake, not a runtime condition.
type ConfigurationError struct {
	Op string
}

func (e *ConfigurationError) Error() string {
	return "featurectx: " + e.Op + " must be used within a provider"
}

// Snapshot is a provided outcome. Providers hand out the same *Snapshot for as
// long as the outcome does not change, so consumers can key caches on it.
type Snapshot struct {
	Outcome resolution.Outcome
}

// NewContext returns a copy of ctx that provides outcome to its descendants.
func NewContext(ctx context.Context, outcome resolution.Outcome) context.Context {
	return WithSnapshot(ctx, &Snapshot{Outcome: outcome})
}

// WithSnapshot returns a copy of ctx that provides snap to its descendants.
func WithSnapshot(ctx context.Context, snap *Snapshot) context.Context {
	return context.WithValue(ctx, contextKey{}, snap)
}

// Lookup returns the provided snapshot, if any.
func Lookup(ctx context.Context) (*Snapshot, bool) {
	snap, ok := ctx.Value(contextKey{}).(*Snapshot)
	return snap, ok && snap != nil
}

// FromContext returns the provided outcome. It panics with a
// *ConfigurationError when ctx has no provider.
func FromContext(ctx context.Context) resolution.Outcome {
	snap, ok := Lookup(ctx)
	if !ok {
		panic(&ConfigurationError{Op: "FromContext"})
	}
	return snap.Outcome
}

// Source supplies the current outcome.
type Source interface {
	Outcome() resolution.Outcome
}

// Provider memoizes snapshots of a changing outcome.
type Provider struct {
	mu   sync.Mutex
	last *Snapshot
}

// Snapshot returns the previous snapshot when outcome is equal to it and a
// new one otherwise.
func (p *Provider) Snapshot(outcome resolution.Outcome) *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last != nil && p.last.Outcome.Equal(outcome) {
		return p.last
	}
	p.last = &Snapshot{Outcome: outcome}
	return p.last
}

// Middleware provides the current outcome of source to every request.
func (p *Provider) Middleware(source Source) func(http.Handler) http.Handler {
	if source == nil {
		panic("outcome source is nil")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			snap := p.Snapshot(source.Outcome())
			next.ServeHTTP(w, r.WithContext(WithSnapshot(r.Context(), snap)))
		})
	}
}
