// Package router implements the Session Router: given an opaque bearer
// credential (or its absence), it determines the single authoritative
// navigation destination for the shell by querying the identity endpoint
// and mapping its tagged result onto the closed Destination set.
//
// The policy is fail-open: a resolution pass always ends in a valid
// destination, never a dead end. Failures land on Onboarding, a rejected
// credential lands on Login, and diagnostic errors ride along without ever
// blocking navigation.
package router

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/divedesk/divegate/identity"
	apperrors "github.com/divedesk/divegate/internal/errors"
	"github.com/divedesk/divegate/internal/utils"
)

const defaultResolveTimeout = 5 * time.Second

// Outcome is the navigation surface of one resolution pass. Err is
// diagnostic only and never blocks navigation. Me is the request-scoped
// identity snapshot backing the pass; consumers may use it for navigation
// filtering but must not cache it across navigation decisions.
type Outcome struct {
	Destination Destination
	Resolved    bool
	Err         error
	Me          identity.Me
}

// Recorder receives resolution outcomes for metrics.
type Recorder interface {
	RecordResolution(destination Destination, kind identity.Kind, elapsed time.Duration)
}

// Resolver computes destinations from credential state. It is safe for
// concurrent use: duplicated concurrent passes for the same credential
// share one network call, and only the most recently started pass commits
// its result.
type Resolver struct {
	client         identity.Client
	timeout        time.Duration
	retryTransient bool
	metrics        Recorder

	group singleflight.Group

	mu      sync.Mutex
	gen     uint64
	current Outcome
}

// ResolverOption modifies the Resolver instance.
type ResolverOption func(*Resolver)

// WithTimeout bounds a single resolution pass. Expiry falls into the
// fail-open path.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = d
	}
}

// WithTransportRetry enables one retry after a transient transport
// failure. The final fallback is still fail-open toward Onboarding.
func WithTransportRetry(enabled bool) ResolverOption {
	return func(r *Resolver) {
		r.retryTransient = enabled
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) ResolverOption {
	return func(r *Resolver) {
		r.metrics = rec
	}
}

// New creates a Resolver over the given identity client.
func New(client identity.Client, options ...ResolverOption) (*Resolver, error) {
	if client == nil {
		return nil, errors.New("[router.New] identity client is required")
	}

	resolver := &Resolver{
		client:         client,
		timeout:        defaultResolveTimeout,
		retryTransient: true,
	}

	for _, opt := range options {
		opt(resolver)
	}

	return resolver, nil
}

// Resolve runs one resolution pass and returns its outcome.
//
// With no credential the pass is terminal: Login, zero network calls.
// Otherwise exactly one identity fetch is issued for the logical pass;
// concurrent duplicate invocations join the in-flight fetch instead of
// issuing their own. If ctx is cancelled before the fetch completes, the
// pass commits nothing and returns an unresolved outcome.
func (r *Resolver) Resolve(ctx context.Context, credential string) Outcome {
	gen := r.nextGen()

	if credential == "" {
		outcome := Outcome{Destination: DestinationLogin, Resolved: true}
		r.commit(gen, outcome)
		return outcome
	}

	start := time.Now()

	ch := r.group.DoChan(credential, func() (interface{}, error) {
		// Detached from the first caller's cancellation: a duplicate
		// invocation that outlives it still needs the result.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
		defer cancel()

		result := r.client.FetchMe(fetchCtx, credential)
		if result.Retryable && r.retryTransient {
			result = r.client.FetchMe(fetchCtx, credential)
		}
		return result, nil
	})

	select {
	case <-ctx.Done():
		// Caller went away before resolution completed. Suppress the
		// state update entirely.
		return Outcome{Resolved: false, Err: ctx.Err()}

	case res := <-ch:
		result := res.Val.(identity.Result)
		outcome := outcomeFromResult(result)
		outcome.Resolved = true

		if outcome.Err != nil {
			log.Warn().
				Err(outcome.Err).
				Str("kind", result.Kind.String()).
				Str("destination", outcome.Destination.String()).
				Msg("resolution failed open")
		}

		r.commit(gen, outcome)
		if r.metrics != nil {
			r.metrics.RecordResolution(outcome.Destination, result.Kind, time.Since(start))
		}
		return outcome
	}
}

// Current returns the most recently committed outcome. The committed state
// backs the generation accounting and is process-wide, last-writer-wins
// across all requests: treat it as a diagnostic surface, never as the
// navigation state of any particular user. Request handlers must use the
// Outcome returned by their own Resolve call. Before the first completed
// pass the zero Outcome is returned with Resolved false.
func (r *Resolver) Current() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Reset discards the committed outcome and invalidates in-flight passes.
// Called at sign-out so a stale destination cannot leak into the next
// session.
func (r *Resolver) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.current = Outcome{}
}

func (r *Resolver) nextGen() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	return r.gen
}

// commit stores the outcome unless a newer pass has started since this one
// began; late results are discarded.
func (r *Resolver) commit(gen uint64, outcome Outcome) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return false
	}
	r.current = outcome
	return true
}

// outcomeFromResult maps the tagged identity result onto a destination.
func outcomeFromResult(result identity.Result) Outcome {
	switch result.Kind {
	case identity.KindUnauthenticated:
		// 401 wins over everything else. A normal state, not an error.
		return Outcome{Destination: DestinationLogin}

	case identity.KindServerError, identity.KindMalformed:
		return Outcome{Destination: DestinationOnboarding, Err: result.Err}
	}

	me := result.Me
	if !me.OK {
		// Unresolved identity means "needs setup", not an error.
		return Outcome{Destination: DestinationOnboarding, Me: me}
	}

	switch me.RoutingHint {
	case identity.HintAdmin:
		return Outcome{Destination: DestinationAdminHome, Me: me}
	case identity.HintDashboard:
		return Outcome{Destination: DestinationOperatorDashboard, Me: me}
	case identity.HintOnboarding:
		return Outcome{Destination: DestinationOnboarding, Me: me}
	}

	// Hint absent or unrecognized: fall back to the completion flag.
	var diag error
	if me.RoutingHint != "" {
		diag = errors.Wrap(apperrors.ErrAmbiguousHint, string(me.RoutingHint))
	}
	if utils.Value(me.Onboarding.IsComplete) {
		return Outcome{Destination: DestinationOperatorDashboard, Me: me, Err: diag}
	}
	return Outcome{Destination: DestinationOnboarding, Me: me, Err: diag}
}
