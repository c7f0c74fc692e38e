// README: Recorder is an in-process Observer that keeps every event it receives.
package broker

import (
	"sync"
	"time"
)

type Recorder struct {
	id     string
	mu     sync.Mutex
	events []Event
	fail   error
	notify chan struct{}
}

func NewRecorder(id string) *Recorder {
	return &Recorder{id: id, notify: make(chan struct{}, 1)}
}

func (r *Recorder) ID() string { return r.id }

func (r *Recorder) Deliver(evt Event) error {
	r.mu.Lock()
	if r.fail != nil {
		err := r.fail
		r.mu.Unlock()
		return err
	}
	r.events = append(r.events, evt)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// FailWith makes subsequent deliveries return err. nil restores delivery.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.fail = err
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Types() []EventType {
	events := r.Events()
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// WaitFor blocks until at least n events arrived or timeout elapsed.
func (r *Recorder) WaitFor(n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if r.Len() >= n {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return r.Len() >= n
		}
	}
}
