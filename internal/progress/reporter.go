// Package progress tracks download task lifecycle and broadcasts it to
// observers. Delivery is fire-and-forget: a slow observer drops events,
// it never blocks or fails the download engine.
package progress

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// TaskID identifies one tracked task.
type TaskID string

// MergeFunc is a post-merge callback attached to a task. It receives the
// paths the task's streams produced and assembles them into output.
type MergeFunc func(ctx context.Context, inputs []string, output string) error

// Task is a point-in-time snapshot of one tracked task.
type Task struct {
	ID          TaskID
	Description string
	Total       int64 // 0 when unknown
	Completed   int64
	Visible     bool
	PostMerge   MergeFunc
}

// Update carries the fields of one task update. Nil pointers leave the
// corresponding field untouched.
type Update struct {
	Visible   *bool
	Advance   int64
	Total     *int64
	PostMerge MergeFunc
}

// EventType classifies reporter events.
type EventType string

const (
	EventTaskAdded   EventType = "task.added"
	EventTaskUpdated EventType = "task.updated"
)

// Event is one lifecycle notification delivered to observers.
type Event struct {
	Type EventType
	Task Task
}

// Reporter is the progress event hub. Multiple observers may subscribe to
// the same stream (a terminal renderer, a broadcast relay).
type Reporter struct {
	mu        sync.RWMutex
	tasks     map[TaskID]*taskState
	observers []chan Event
	closed    bool
}

type taskState struct {
	Task
	completed atomic.Int64
}

// NewReporter creates a Reporter.
func NewReporter() *Reporter {
	return &Reporter{tasks: make(map[TaskID]*taskState)}
}

// AddTask registers a new visible task and announces it.
func (r *Reporter) AddTask(description string, total int64) TaskID {
	id := TaskID(uuid.NewString())
	st := &taskState{Task: Task{
		ID:          id,
		Description: description,
		Total:       total,
		Visible:     true,
	}}

	r.mu.Lock()
	r.tasks[id] = st
	snap := st.snapshot()
	r.mu.Unlock()

	r.publish(Event{Type: EventTaskAdded, Task: snap})
	return id
}

// Update applies an update to a task and announces the new state.
// Unknown task IDs are ignored.
func (r *Reporter) Update(id TaskID, u Update) {
	r.mu.Lock()
	st, ok := r.tasks[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	if u.Visible != nil {
		st.Visible = *u.Visible
	}
	if u.Total != nil {
		st.Total = *u.Total
	}
	if u.PostMerge != nil {
		st.PostMerge = u.PostMerge
	}
	if u.Advance != 0 {
		st.completed.Add(u.Advance)
	}
	// snapshot before releasing the lock so a concurrent Update can
	// never be observed half-applied
	snap := st.snapshot()
	r.mu.Unlock()

	r.publish(Event{Type: EventTaskUpdated, Task: snap})
}

// Task returns a snapshot of one task.
func (r *Reporter) Task(id TaskID) (Task, bool) {
	r.mu.RLock()
	st, ok := r.tasks[id]
	r.mu.RUnlock()
	if !ok {
		return Task{}, false
	}
	return st.snapshot(), true
}

// Subscribe returns a buffered event channel. Events that don't fit the
// buffer are dropped for that observer only.
func (r *Reporter) Subscribe(buffer int) <-chan Event {
	ch := make(chan Event, buffer)
	r.mu.Lock()
	r.observers = append(r.observers, ch)
	r.mu.Unlock()
	return ch
}

// Close closes all observer channels.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for _, ch := range r.observers {
		close(ch)
	}
	r.observers = nil
}

func (r *Reporter) publish(e Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	for _, ch := range r.observers {
		select {
		case ch <- e:
		default:
			// observer is behind, drop
		}
	}
}

func (st *taskState) snapshot() Task {
	t := st.Task
	t.Completed = st.completed.Load()
	return t
}

// Tracker reports byte progress for one task. It is safe for concurrent
// use by the parallel stream fetches of that task.
type Tracker interface {
	Write(p []byte) (int, error)
	// Rewind backs out progress from a failed attempt that will be retried.
	Rewind(n int64)
}

// Tracker returns a byte tracker bound to one task.
func (r *Reporter) Tracker(id TaskID) Tracker {
	return &taskTracker{r: r, id: id}
}

type taskTracker struct {
	r  *Reporter
	id TaskID
}

func (t *taskTracker) Write(p []byte) (int, error) {
	t.r.Update(t.id, Update{Advance: int64(len(p))})
	return len(p), nil
}

func (t *taskTracker) Rewind(n int64) {
	t.r.Update(t.id, Update{Advance: -n})
}
