package tasks

import "context"

// Pending tracks the backend confirmation of an optimistic mutation.
type Pending struct {
	TaskID string

	done chan struct{}
	err  error
}

func newPending(taskID string) *Pending {
	return &Pending{TaskID: taskID, done: make(chan struct{})}
}

func (p *Pending) finish(err error) {
	p.err = err
	close(p.done)
}

// Done is closed once the backend call has returned.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Err returns the backend error, or nil while the call is in flight.
func (p *Pending) Err() error {
	select {
	case <-p.done:
		return p.err
	default:
		return nil
	}
}

// Wait blocks until the backend call finishes or ctx ends.
func (p *Pending) Wait(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
