package router_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/divedesk/divegate/identity"
	"github.com/divedesk/divegate/identity/identityfake"
	apperrors "github.com/divedesk/divegate/internal/errors"
	"github.com/divedesk/divegate/internal/utils"
	"github.com/divedesk/divegate/router"
)

const (
	testCredential = "opaque-bearer-token"
)

func newResolver(t *testing.T, client identity.Client, options ...router.ResolverOption) *router.Resolver {
	t.Helper()

	resolver, err := router.New(client, options...)
	require.NoError(t, err)
	return resolver
}

func okResult(hint identity.Hint) identity.Result {
	return identity.Result{
		Kind: identity.KindOK,
		Me:   identity.Me{OK: true, RoutingHint: hint},
	}
}

func TestNewRequiresClient(t *testing.T) {
	_, err := router.New(nil)
	require.Error(t, err)
}

func TestResolveNoCredential(t *testing.T) {
	fake := identityfake.NewFakeClient()
	resolver := newResolver(t, fake)

	outcome := resolver.Resolve(context.Background(), "")

	require.True(t, outcome.Resolved)
	require.Equal(t, router.DestinationLogin, outcome.Destination)
	require.NoError(t, outcome.Err)
	require.Equal(t, 0, fake.Calls(), "no credential must mean no network call")
}

func TestResolveRejectedCredential(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, identity.Result{
		Kind: identity.KindUnauthenticated,
		Err:  apperrors.ErrUnauthenticated,
	})
	resolver := newResolver(t, fake)

	outcome := resolver.Resolve(context.Background(), testCredential)

	require.True(t, outcome.Resolved)
	require.Equal(t, router.DestinationLogin, outcome.Destination)
	require.NoError(t, outcome.Err, "a rejected credential is a normal state, not an error")
}

func TestResolveRoutingHints(t *testing.T) {
	tests := []struct {
		name string
		hint identity.Hint
		want router.Destination
	}{
		{name: "admin hint", hint: identity.HintAdmin, want: router.DestinationAdminHome},
		{name: "dashboard hint", hint: identity.HintDashboard, want: router.DestinationOperatorDashboard},
		{name: "onboarding hint", hint: identity.HintOnboarding, want: router.DestinationOnboarding},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := identityfake.NewFakeClient()
			fake.ScriptFor(testCredential, okResult(tc.hint))
			resolver := newResolver(t, fake)

			outcome := resolver.Resolve(context.Background(), testCredential)

			require.True(t, outcome.Resolved)
			require.Equal(t, tc.want, outcome.Destination)
			require.NoError(t, outcome.Err)
		})
	}
}

func TestResolveCompletionFlagFallback(t *testing.T) {
	tests := []struct {
		name       string
		isComplete *bool
		want       router.Destination
	}{
		{name: "complete", isComplete: utils.Ptr(true), want: router.DestinationOperatorDashboard},
		{name: "incomplete", isComplete: utils.Ptr(false), want: router.DestinationOnboarding},
		{name: "absent", isComplete: nil, want: router.DestinationOnboarding},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fake := identityfake.NewFakeClient()
			fake.ScriptFor(testCredential, identity.Result{
				Kind: identity.KindOK,
				Me: identity.Me{
					OK:         true,
					Onboarding: identity.OnboardingState{IsComplete: tc.isComplete},
				},
			})
			resolver := newResolver(t, fake)

			outcome := resolver.Resolve(context.Background(), testCredential)

			require.True(t, outcome.Resolved)
			require.Equal(t, tc.want, outcome.Destination)
		})
	}
}

func TestResolveUnrecognizedHintRecordsDiagnostic(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, identity.Result{
		Kind: identity.KindOK,
		Me: identity.Me{
			OK:          true,
			RoutingHint: identity.Hint("legacy-tier-3"),
			Onboarding:  identity.OnboardingState{IsComplete: utils.Ptr(true)},
		},
	})
	resolver := newResolver(t, fake)

	outcome := resolver.Resolve(context.Background(), testCredential)

	require.True(t, outcome.Resolved)
	require.Equal(t, router.DestinationOperatorDashboard, outcome.Destination)
	require.ErrorIs(t, outcome.Err, apperrors.ErrAmbiguousHint)
}

func TestResolveUnresolvedIdentityNeedsSetup(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, identity.Result{
		Kind: identity.KindOK,
		Me:   identity.Me{OK: false},
	})
	resolver := newResolver(t, fake)

	outcome := resolver.Resolve(context.Background(), testCredential)

	require.True(t, outcome.Resolved)
	require.Equal(t, router.DestinationOnboarding, outcome.Destination)
	require.NoError(t, outcome.Err)
}

func TestResolveFailsOpenOnServerError(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, identity.Result{
		Kind: identity.KindServerError,
		Err:  apperrors.ErrServerUnavailable,
	})
	resolver := newResolver(t, fake)

	outcome := resolver.Resolve(context.Background(), testCredential)

	require.True(t, outcome.Resolved)
	require.Equal(t, router.DestinationOnboarding, outcome.Destination)
	require.ErrorIs(t, outcome.Err, apperrors.ErrServerUnavailable)
	require.Equal(t, outcome, resolver.Current())
}

func TestResolveFailsOpenOnMalformedResponse(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, identity.Result{
		Kind: identity.KindMalformed,
		Err:  apperrors.ErrMalformedResponse,
	})
	resolver := newResolver(t, fake)

	outcome := resolver.Resolve(context.Background(), testCredential)

	require.True(t, outcome.Resolved)
	require.Equal(t, router.DestinationOnboarding, outcome.Destination)
	require.ErrorIs(t, outcome.Err, apperrors.ErrMalformedResponse)
}

func TestResolveRetriesTransientFailureOnce(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.Script(
		identity.Result{Kind: identity.KindServerError, Err: apperrors.ErrServerUnavailable, Retryable: true},
		okResult(identity.HintAdmin),
	)
	resolver := newResolver(t, fake)

	outcome := resolver.Resolve(context.Background(), testCredential)

	require.Equal(t, router.DestinationAdminHome, outcome.Destination)
	require.Equal(t, 2, fake.Calls())
}

func TestResolveRetryDisabled(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.Script(
		identity.Result{Kind: identity.KindServerError, Err: apperrors.ErrServerUnavailable, Retryable: true},
		okResult(identity.HintAdmin),
	)
	resolver := newResolver(t, fake, router.WithTransportRetry(false))

	outcome := resolver.Resolve(context.Background(), testCredential)

	require.Equal(t, router.DestinationOnboarding, outcome.Destination)
	require.Equal(t, 1, fake.Calls())
}

func TestResolveTimeoutFailsOpen(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, okResult(identity.HintAdmin))
	release := fake.Gate(testCredential)
	defer release()

	resolver := newResolver(t, fake, router.WithTimeout(150*time.Millisecond))

	outcome := resolver.Resolve(context.Background(), testCredential)

	require.True(t, outcome.Resolved)
	require.Equal(t, router.DestinationOnboarding, outcome.Destination)
	require.ErrorIs(t, outcome.Err, context.DeadlineExceeded)
	require.Equal(t, 1, fake.Calls(), "an expired pass must not retry")
}

func TestResolveLatestPassWins(t *testing.T) {
	staleCred := "stale-credential"
	freshCred := "fresh-credential"

	fake := identityfake.NewFakeClient()
	fake.ScriptFor(staleCred, okResult(identity.HintDashboard))
	fake.ScriptFor(freshCred, okResult(identity.HintAdmin))
	release := fake.Gate(staleCred)
	started := fake.NotifyStarted()

	resolver := newResolver(t, fake)

	var wg sync.WaitGroup
	var staleOutcome router.Outcome
	wg.Add(1)
	go func() {
		defer wg.Done()
		staleOutcome = resolver.Resolve(context.Background(), staleCred)
	}()
	<-started

	// Second pass starts while the first is still in flight and commits
	freshOutcome := resolver.Resolve(context.Background(), freshCred)
	require.Equal(t, router.DestinationAdminHome, freshOutcome.Destination)

	// The stale pass finishes late; its result must be discarded
	release()
	wg.Wait()
	require.Equal(t, router.DestinationOperatorDashboard, staleOutcome.Destination)
	require.Equal(t, router.DestinationAdminHome, resolver.Current().Destination)
}

func TestResolveConcurrentDuplicatesShareOneCall(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, okResult(identity.HintDashboard))
	release := fake.Gate(testCredential)
	started := fake.NotifyStarted()

	resolver := newResolver(t, fake)

	var wg sync.WaitGroup
	outcomes := make([]router.Outcome, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i] = resolver.Resolve(context.Background(), testCredential)
		}(i)
	}

	<-started
	// Give the duplicate invocation time to join the in-flight fetch
	time.Sleep(100 * time.Millisecond)
	release()
	wg.Wait()

	require.Equal(t, 1, fake.Calls(), "duplicated concurrent passes must share one network call")
	require.Equal(t, outcomes[0].Destination, outcomes[1].Destination)
	require.Equal(t, router.DestinationOperatorDashboard, outcomes[0].Destination)
}

func TestResolveSequentialPassesRefetch(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, okResult(identity.HintDashboard))
	resolver := newResolver(t, fake)

	first := resolver.Resolve(context.Background(), testCredential)
	second := resolver.Resolve(context.Background(), testCredential)

	require.Equal(t, first.Destination, second.Destination)
	// The snapshot is never cached: each pass fetches fresh
	require.Equal(t, 2, fake.Calls())
}

func TestResolveCancelledPassCommitsNothing(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, okResult(identity.HintAdmin))
	release := fake.Gate(testCredential)
	started := fake.NotifyStarted()

	resolver := newResolver(t, fake)

	ctx, cancel := context.WithCancel(context.Background())
	var outcome router.Outcome
	done := make(chan struct{})
	go func() {
		defer close(done)
		outcome = resolver.Resolve(ctx, testCredential)
	}()

	<-started
	cancel()
	<-done

	require.False(t, outcome.Resolved)
	require.ErrorIs(t, outcome.Err, context.Canceled)
	require.False(t, resolver.Current().Resolved, "a cancelled pass must not commit state")

	release()
}

func TestResetDiscardsCommittedOutcome(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, okResult(identity.HintDashboard))
	resolver := newResolver(t, fake)

	resolver.Resolve(context.Background(), testCredential)
	require.True(t, resolver.Current().Resolved)

	resolver.Reset()
	require.False(t, resolver.Current().Resolved)
}

type recordedResolution struct {
	destination router.Destination
	kind        identity.Kind
}

type fakeRecorder struct {
	mu       sync.Mutex
	recorded []recordedResolution
}

func (f *fakeRecorder) RecordResolution(destination router.Destination, kind identity.Kind, elapsed time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, recordedResolution{destination: destination, kind: kind})
}

func TestResolveRecordsMetrics(t *testing.T) {
	fake := identityfake.NewFakeClient()
	fake.ScriptFor(testCredential, okResult(identity.HintAdmin))
	recorder := &fakeRecorder{}
	resolver := newResolver(t, fake, router.WithRecorder(recorder))

	resolver.Resolve(context.Background(), testCredential)

	require.Len(t, recorder.recorded, 1)
	require.Equal(t, router.DestinationAdminHome, recorder.recorded[0].destination)
	require.Equal(t, identity.KindOK, recorder.recorded[0].kind)
}
