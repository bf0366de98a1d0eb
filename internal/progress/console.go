package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// Console renders reporter events as terminal progress bars, one per
// visible task. It is one observer among possibly several.
type Console struct {
	out    io.Writer
	mu     sync.Mutex
	bars   map[TaskID]*progressbar.ProgressBar
	last   map[TaskID]int64
	done   chan struct{}
	events <-chan Event
}

// NewConsole subscribes a console renderer to r. Call Run to start it.
func NewConsole(r *Reporter, out io.Writer) *Console {
	return &Console{
		out:    out,
		bars:   make(map[TaskID]*progressbar.ProgressBar),
		last:   make(map[TaskID]int64),
		done:   make(chan struct{}),
		events: r.Subscribe(1024),
	}
}

// Run consumes events until the reporter closes. Blocking; run it in its
// own goroutine.
func (c *Console) Run() {
	defer close(c.done)
	for e := range c.events {
		switch e.Type {
		case EventTaskAdded:
			c.add(e.Task)
		case EventTaskUpdated:
			c.update(e.Task)
		}
	}
}

// Wait blocks until the renderer has drained its event stream.
func (c *Console) Wait() { <-c.done }

func (c *Console) add(t Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bars[t.ID] = progressbar.NewOptions64(
		max(t.Total, -1),
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription(t.Description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionClearOnFinish(),
	)
	c.last[t.ID] = 0
}

func (c *Console) update(t Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	bar, ok := c.bars[t.ID]
	if !ok {
		return
	}
	if !t.Visible {
		_ = bar.Finish()
		delete(c.bars, t.ID)
		delete(c.last, t.ID)
		fmt.Fprintf(c.out, "%s  %s\n", t.Description, humanize.Bytes(uint64(max(t.Completed, 0))))
		return
	}
	if t.Total > 0 {
		bar.ChangeMax64(t.Total)
	}
	_ = bar.Add64(t.Completed - c.last[t.ID])
	c.last[t.ID] = t.Completed
}
