package host

import (
	"context"
	"sync"

	"github.com/umi-eng/hftwo/pkg/command"
)

// PendingResponse is a handle to an in-flight request.
//
// It resolves exactly once: to the matched response, a decode error, a
// timeout, or cancellation.
type PendingResponse struct {
	once sync.Once
	done chan struct{}
	resp *command.Response
	err  error
}

func newPending() *PendingResponse {
	return &PendingResponse{
		done: make(chan struct{}),
	}
}

// complete resolves the pending response (ResultFunc shape)
func (p *PendingResponse) complete(resp *command.Response, err error) {
	p.once.Do(func() {
		p.resp = resp
		p.err = err
		close(p.done)
	})
}

// Done returns a channel closed when the request resolves
func (p *PendingResponse) Done() <-chan struct{} {
	return p.done
}

// Await blocks until the request resolves or the context is done
func (p *PendingResponse) Await(ctx context.Context) (*command.Response, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Result returns the outcome without blocking.
// resolved is false while the request is still in flight.
func (p *PendingResponse) Result() (resp *command.Response, resolved bool, err error) {
	select {
	case <-p.done:
		return p.resp, true, p.err
	default:
		return nil, false, nil
	}
}
