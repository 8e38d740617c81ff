package orchestrator

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ServiceStatus is one row of the reporter's read-only view.
type ServiceStatus struct {
	Service   string
	Container string
	Phase     ServicePhase
	Restarts  int
	Err       string
	UpdatedAt time.Time
}

// Reporter holds the current status of every managed service and fans
// snapshots out to watchers. It is the only read surface the orchestrator
// exposes; nothing mutates orchestrator state through it.
type Reporter struct {
	mu       sync.Mutex
	statuses map[string]ServiceStatus
	watchers map[int]chan []ServiceStatus
	nextID   int
}

func NewReporter() *Reporter {
	return &Reporter{
		statuses: make(map[string]ServiceStatus),
		watchers: make(map[int]chan []ServiceStatus),
	}
}

// Snapshot returns a copy of all statuses, sorted by service name.
func (r *Reporter) Snapshot() []ServiceStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Get returns the status of one service.
func (r *Reporter) Get(service string) (ServiceStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.statuses[service]
	return st, ok
}

// Watch subscribes to state changes. Each change delivers a full snapshot;
// sends are non-blocking, so a slow consumer may skip intermediate
// snapshots but always observes the latest on its next receive. The
// channel closes when ctx is done.
func (r *Reporter) Watch(ctx context.Context) <-chan []ServiceStatus {
	ch := make(chan []ServiceStatus, 64)

	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.watchers[id] = ch
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.watchers, id)
		r.mu.Unlock()
		close(ch)
	}()

	return ch
}

// WaitFor blocks until pred holds for the named service or ctx is done.
// A short re-check tick guards against dropped watch sends.
func (r *Reporter) WaitFor(ctx context.Context, service string, pred func(ServiceStatus) bool) (ServiceStatus, error) {
	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	ch := r.Watch(watchCtx)

	if st, ok := r.Get(service); ok && pred(st) {
		return st, nil
	}

	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ServiceStatus{}, ctx.Err()
		case <-tick.C:
			if st, ok := r.Get(service); ok && pred(st) {
				return st, nil
			}
		case snap, ok := <-ch:
			if !ok {
				return ServiceStatus{}, ctx.Err()
			}
			for _, st := range snap {
				if st.Service == service && pred(st) {
					return st, nil
				}
			}
		}
	}
}

func (r *Reporter) set(st ServiceStatus) {
	r.mu.Lock()
	r.statuses[st.Service] = st
	snap := r.snapshotLocked()
	for _, ch := range r.watchers {
		select {
		case ch <- snap:
		default:
		}
	}
	r.mu.Unlock()
}

func (r *Reporter) snapshotLocked() []ServiceStatus {
	out := make([]ServiceStatus, 0, len(r.statuses))
	for _, st := range r.statuses {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out
}
