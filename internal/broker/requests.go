package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// RequestCorrelator matches an outstanding service request to the response
// that eventually arrives for it, the same role original_source's
// EventManager.Wait/Resume pairing plays for _MakeRequest: a request is
// forwarded to the provider under a fresh id, and the goroutine that sent
// it blocks on a channel keyed by that id until the provider's response
// message resolves it (or the provider disconnects and nothing ever will).
type RequestCorrelator struct {
	mu      sync.Mutex
	waiters map[string]chan any
}

func NewRequestCorrelator() *RequestCorrelator {
	return &RequestCorrelator{waiters: map[string]chan any{}}
}

// NewRequestID mints a fresh correlation id for one outstanding request.
func (rc *RequestCorrelator) NewRequestID() string { return uuid.NewString() }

// Wait blocks until Resolve(requestID, ...) is called or ctx is cancelled.
// There is no retry on the core side: a disconnected provider simply never
// resolves, and the caller's context timeout (or the client's own
// disconnect) is what ends the wait.
func (rc *RequestCorrelator) Wait(ctx context.Context, requestID string) (any, error) {
	ch := make(chan any, 1)
	rc.mu.Lock()
	rc.waiters[requestID] = ch
	rc.mu.Unlock()

	defer func() {
		rc.mu.Lock()
		delete(rc.waiters, requestID)
		rc.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case v := <-ch:
		return v, nil
	}
}

// Resolve delivers response to whichever Wait call is pending for
// requestID. A response with no matching waiter (late, or for a request
// that already timed out) is silently dropped.
func (rc *RequestCorrelator) Resolve(requestID string, response any) {
	rc.mu.Lock()
	ch, ok := rc.waiters[requestID]
	delete(rc.waiters, requestID)
	rc.mu.Unlock()
	if !ok {
		return
	}
	select {
	case ch <- response:
	default:
	}
}

// ErrNoProvider is returned by a request-forwarding path when no client has
// registered as the named service's provider.
type ErrNoProvider struct{ ServiceName string }

func (e *ErrNoProvider) Error() string {
	return fmt.Sprintf("service %q is not registered", e.ServiceName)
}
