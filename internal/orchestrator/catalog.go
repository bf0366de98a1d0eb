package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/hbollon/go-edlib"

	"github.com/AndyXFuture/bilix-meta/internal/api"
)

// categoryCatalog memoizes the remote category listing for the lifetime
// of one Engine. The mutex doubles as single-flight: concurrent walks
// asking for a category share one catalog fetch.
type categoryCatalog struct {
	mu  sync.Mutex
	tid map[string]int
}

// resolve maps a category name to its TID, fetching the catalog on first
// use. Unknown names fail with a fuzzy near-match suggestion.
func (c *categoryCatalog) resolve(ctx context.Context, r api.Resolver, name string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tid == nil {
		cats, err := r.Categories(ctx)
		if err != nil {
			return 0, err
		}
		c.tid = make(map[string]int)
		for _, ch := range cats {
			c.tid[ch.Name] = ch.TID
			for _, sub := range ch.Sub {
				c.tid[sub.Name] = sub.TID
			}
		}
	}

	if tid, ok := c.tid[name]; ok {
		return tid, nil
	}

	names := make([]string, 0, len(c.tid))
	for n := range c.tid {
		names = append(names, n)
	}
	if near, err := edlib.FuzzySearchThreshold(name, names, 0.8, edlib.JaroWinkler); err == nil && near != "" {
		return 0, fmt.Errorf("unknown category %q, did you mean %q", name, near)
	}
	return 0, fmt.Errorf("unknown category %q", name)
}
