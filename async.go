package lumina

import (
	"context"
	"fmt"
)

// Async is the handle for a traced call running on its own goroutine. The
// span settles when the call settles, whether or not anyone waits on the
// handle; Wait only reports the outcome.
type Async[T any] struct {
	done   chan struct{}
	result T
	err    error
}

// Done returns a channel that is closed once the call has settled.
func (a *Async[T]) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the call settles or ctx is done. Cancelling ctx abandons
// the wait, not the call: the goroutine keeps running and the span is still
// recorded.
func (a *Async[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-a.done:
		return a.result, a.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func startAsync[T any](ctx context.Context, c *Client, name string, call callOptions, fn Func[T], llm bool) *Async[T] {
	a := &Async[T]{done: make(chan struct{})}
	go func() {
		defer close(a.done)
		defer func() {
			// run has already closed the span with an error status; a panic
			// on a background goroutine surfaces as an error on the handle
			// instead of tearing the process down.
			if r := recover(); r != nil {
				a.err = fmt.Errorf("traced call panicked: %v", r)
			}
		}()
		a.result, a.err = run(ctx, c, name, call, fn, llm)
	}()
	return a
}
