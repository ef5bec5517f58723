package identityfake

import (
	"context"
	"sync"

	"github.com/divedesk/divegate/identity"
)

var _ identity.Client = (*FakeClient)(nil)

// FakeClient is an in-memory identity.Client for tests. Results are served
// from a scripted queue; the last scripted result repeats once the queue is
// exhausted. Individual credentials can be gated so tests can hold a fetch
// in flight and release it deterministically.
type FakeClient struct {
	mu      sync.Mutex
	queue   []identity.Result
	byCred  map[string]identity.Result
	gates   map[string]chan struct{}
	calls   int
	started chan struct{}
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		byCred: make(map[string]identity.Result),
		gates:  make(map[string]chan struct{}),
	}
}

// Script appends results to the queue, served in order.
func (f *FakeClient) Script(results ...identity.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, results...)
}

// ScriptFor pins a result to a specific credential, taking priority over
// the queue.
func (f *FakeClient) ScriptFor(credential string, result identity.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byCred[credential] = result
}

// Gate makes fetches for credential block until the returned function is
// called.
func (f *FakeClient) Gate(credential string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[credential] = ch
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

// NotifyStarted returns a channel that receives once per fetch, as the
// fetch begins.
func (f *FakeClient) NotifyStarted() <-chan struct{} {
	ch := make(chan struct{}, 16)
	f.mu.Lock()
	f.started = ch
	f.mu.Unlock()
	return ch
}

// Calls reports how many fetches have been issued.
func (f *FakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *FakeClient) FetchMe(ctx context.Context, credential string) identity.Result {
	f.mu.Lock()
	f.calls++
	gate := f.gates[credential]
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return identity.Result{
				Kind:      identity.KindServerError,
				Err:       ctx.Err(),
				Retryable: false,
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if result, ok := f.byCred[credential]; ok {
		return result
	}
	if len(f.queue) == 0 {
		return identity.Result{Kind: identity.KindOK, Me: identity.Me{OK: true}}
	}
	result := f.queue[0]
	if len(f.queue) > 1 {
		f.queue = f.queue[1:]
	}
	return result
}
