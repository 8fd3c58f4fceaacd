// Package resolution turns a partner ID into an [Outcome] by fetching and
// decoding the partner's feature payload.
//
// Every attempt gets a sequence number. When attempts overlap, only the most
// recent one may publish its result; earlier results are dropped as stale.
// Earlier requests are not cancelled.
package resolution

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matt-riley/moneycoach/internal/core"
)

// FallbackFailureMessage is the Failed message used when the fetch error has
// no description of its own.
const FallbackFailureMessage = "Failed to fetch enabled features"

const tracerName = "github.com/matt-riley/moneycoach/internal/resolution"

var errFetchPanicked = errors.New(FallbackFailureMessage)

// Fetcher retrieves the raw feature payload of a partner.
type Fetcher interface {
	FetchFeatures(ctx context.Context, partnerID string) (core.RawFeaturePayload, error)
}

// Recorder receives resolver metrics.
type Recorder interface {
	RecordFetch(success bool, duration time.Duration)
	RecordOutcome(state string)
	RecordStale()
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver registers fn to be called with every outcome change.
// Observers run synchronously while the resolver is locked and must not call
// back into it.
func WithObserver(fn func(Outcome)) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.observers = append(r.observers, fn)
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(recorder Recorder) Option {
	return func(r *Resolver) {
		r.metrics = recorder
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *Resolver) {
		if tracer != nil {
			r.tracer = tracer
		}
	}
}

// Resolver owns the resolution outcome for one partner at a time.
type Resolver struct {
	fetcher   Fetcher
	logger    *slog.Logger
	metrics   Recorder
	tracer    trace.Tracer
	observers []func(Outcome)

	mu        sync.Mutex
	outcome   Outcome
	partnerID string
	seq       uint64
}

// New returns a Resolver in the Loading state. It panics if fetcher is nil.
func New(fetcher Fetcher, opts ...Option) *Resolver {
	if fetcher == nil {
		panic("fetcher is nil")
	}

	r := &Resolver{
		fetcher: fetcher,
		logger:  slog.Default(),
		tracer:  otel.Tracer(tracerName),
		outcome: Loading(),
	}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Outcome returns the current outcome.
func (r *Resolver) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcome
}

// PartnerID returns the partner ID of the latest Resolve call.
func (r *Resolver) PartnerID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.partnerID
}

// Resolve moves to Loading, fetches and decodes the features of partnerID and
// publishes Ready or Failed. It returns the outcome current when the call
// finishes, which is a newer attempt's outcome if this one went stale.
//
// An empty or whitespace-only partnerID publishes Loading and issues no
// fetch; the resolver stays Loading until a non-blank ID is resolved.
func (r *Resolver) Resolve(ctx context.Context, partnerID string) Outcome {
	r.mu.Lock()
	r.partnerID = partnerID
	r.seq++
	seq := r.seq
	r.publishLocked(Loading())
	r.mu.Unlock()

	if strings.TrimSpace(partnerID) == "" {
		r.logger.DebugContext(ctx, "no partner id, skipping feature fetch")
		return Loading()
	}

	return r.attempt(ctx, seq, partnerID)
}

// Refetch re-runs [Resolver.Resolve] with the partner ID of the latest call.
func (r *Resolver) Refetch(ctx context.Context) Outcome {
	return r.Resolve(ctx, r.PartnerID())
}

func (r *Resolver) attempt(ctx context.Context, seq uint64, partnerID string) Outcome {
	ctx, span := r.tracer.Start(ctx, "resolution.Resolve",
		trace.WithAttributes(attribute.String("partner.id", partnerID)))
	defer span.End()

	start := time.Now()
	payload, err := r.fetch(ctx, partnerID)
	if r.metrics != nil {
		r.metrics.RecordFetch(err == nil, time.Since(start))
	}

	var next Outcome
	if err != nil {
		message := failureMessage(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, message)
		next = Failed(message)
	} else {
		next = Ready(core.DecodeFeatures(payload))
	}

	r.mu.Lock()
	if seq != r.seq {
		current := r.outcome
		r.mu.Unlock()

		span.SetAttributes(attribute.Bool("resolution.stale", true))
		r.logger.DebugContext(ctx, "dropping stale feature resolution",
			slog.String("partner_id", partnerID),
			slog.String("state", next.State().String()),
		)
		if r.metrics != nil {
			r.metrics.RecordStale()
		}
		return current
	}
	r.publishLocked(next)
	r.mu.Unlock()

	span.SetAttributes(attribute.String("resolution.state", next.State().String()))
	if message, failed := next.Message(); failed {
		r.logger.ErrorContext(ctx, "feature resolution failed",
			slog.String("partner_id", partnerID),
			slog.String("error", message),
		)
	} else {
		r.logger.InfoContext(ctx, "features resolved",
			slog.String("partner_id", partnerID),
			slog.Int("enabled", len(next.features.Names)),
		)
	}

	return next
}

// fetch calls the fetcher. A panicking fetcher settles the attempt as Failed
// rather than crashing the caller.
func (r *Resolver) fetch(ctx context.Context, partnerID string) (payload core.RawFeaturePayload, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "feature fetcher panicked", slog.Any("panic", rec))
			if recErr, ok := rec.(error); ok {
				err = recErr
				return
			}
			err = errFetchPanicked
		}
	}()

	return r.fetcher.FetchFeatures(ctx, partnerID)
}

func (r *Resolver) publishLocked(next Outcome) {
	if r.outcome.Equal(next) {
		return
	}
	r.outcome = next

	if r.metrics != nil {
		r.metrics.RecordOutcome(next.State().String())
	}
	for _, fn := range r.observers {
		fn(next)
	}
}

func failureMessage(err error) string {
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return FallbackFailureMessage
	}
	return err.Error()
}
