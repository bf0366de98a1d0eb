package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/AndyXFuture/bilix-meta/internal/api"
	"github.com/AndyXFuture/bilix-meta/internal/ledger"
	"github.com/AndyXFuture/bilix-meta/internal/naming"
)

// pageSizes are the per-kind page sizes the remote endpoints serve.
var pageSizes = map[api.Kind]int{
	api.KindFavorites:  20,
	api.KindCollection: 30,
	api.KindSeriesList: 30,
	api.KindCreator:    30,
	api.KindCategory:   30,
}

// dirPrefixes label collection directories by origin so unrelated walks
// into the same root never collide.
var dirPrefixes = map[api.Kind]string{
	api.KindFavorites:  "【收藏夹】",
	api.KindCollection: "【合集】",
	api.KindSeriesList: "【视频列表】",
	api.KindCreator:    "【up】",
	api.KindCategory:   "【分区】",
}

// Walk enumerates a catalog-like handle and downloads up to num of its
// items. Pages and entries are fetched concurrently; per-entry failures
// are contained. The returned error covers only the first page, whose
// failure means the whole walk is unroutable.
func (e *Engine) Walk(ctx context.Context, h api.Handle, num int, filters api.PageFilters, opts Options) error {
	var catName string
	if h.Kind == api.KindCategory {
		catName = h.ID
		tid, err := e.catalog.resolve(ctx, e.resolver, h.ID)
		if err != nil {
			return err
		}
		h.ID = strconv.Itoa(tid)
	}

	ps := pageSizes[h.Kind]
	if ps == 0 {
		return fmt.Errorf("%w: %s", api.ErrNoHandler, h.Kind)
	}
	first, err := e.resolvePage(ctx, h, 1, ps, filters)
	if err != nil {
		return fmt.Errorf("resolve %s page: %w", h.Kind, err)
	}
	if catName != "" {
		// directory carries the human name, not the numeric id
		first.Name = catName
	}

	dir := e.root
	dirName := collectionDirName(h.Kind, first)
	if e.hierarchy {
		dir = filepath.Join(e.root, dirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create collection dir: %w", err)
		}
	}
	if opts.Ledger != nil {
		id, err := opts.Ledger.UpsertCollection(dirName)
		if err != nil {
			return fmt.Errorf("register collection: %w", err)
		}
		opts.CollectionID = id
	}

	total := first.Total
	if num > 0 && num < total {
		total = num
	}
	pages := (total + ps - 1) / ps

	var wg sync.WaitGroup
	for p := 1; p <= pages; p++ {
		take := total - (p-1)*ps
		if take > ps {
			take = ps
		}
		if p == 1 {
			e.walkEntries(ctx, &wg, dir, first, take, opts)
			continue
		}
		wg.Add(1)
		go func(p, take int) {
			defer wg.Done()
			page, err := e.resolvePage(ctx, h, p, ps, filters)
			if err != nil {
				e.warnItem(dirName, fmt.Sprintf("page %d", p), err)
				return
			}
			e.walkEntries(ctx, &wg, dir, page, take, opts)
		}(p, take)
	}
	wg.Wait()
	return ctx.Err()
}

// walkEntries launches up to take entry downloads from one resolved page.
// Entries already completed according to the ledger are skipped before
// any resolution call.
func (e *Engine) walkEntries(ctx context.Context, wg *sync.WaitGroup, dir string, page api.CollectionPage, take int, opts Options) {
	if take > len(page.ItemIDs) {
		take = len(page.ItemIDs)
	}
	for i := 0; i < take; i++ {
		id := page.ItemIDs[i]
		name := ""
		if i < len(page.ItemNames) {
			name = page.ItemNames[i]
		}
		if e.walkerSkip(id, name, opts) {
			e.logger.Info("已存在", "item", id, "name", name)
			continue
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			url := "https://www.bilibili.com/video/" + id
			_ = e.downloadSeries(ctx, dir, url, opts)
		}(id)
	}
}

// walkerSkip consults the ledger by listing name before resolving the
// entry. Multi-part items record per-part names instead and fall through
// to the per-item skip policy after resolution.
func (e *Engine) walkerSkip(id, name string, opts Options) bool {
	if opts.Ledger == nil || name == "" {
		return false
	}
	key := ledger.Key{ItemID: id, Name: naming.LegalTitle(" ", name), CollectionID: opts.CollectionID}
	flags, err := opts.Ledger.Lookup(key)
	return err == nil && flags.Video
}

func (e *Engine) resolvePage(ctx context.Context, h api.Handle, page, ps int, filters api.PageFilters) (api.CollectionPage, error) {
	if err := e.apiSem.Acquire(ctx, 1); err != nil {
		return api.CollectionPage{}, err
	}
	defer e.apiSem.Release(1)
	return e.resolver.ResolveCollectionPage(ctx, h, page, ps, filters)
}

func collectionDirName(kind api.Kind, first api.CollectionPage) string {
	prefix := dirPrefixes[kind]
	switch kind {
	case api.KindFavorites:
		return naming.Sanitize(prefix + naming.LegalTitle("-", first.OwnerName, first.Name))
	case api.KindCreator:
		name := first.OwnerName
		if name == "" {
			name = first.Name
		}
		return naming.Sanitize(prefix + name)
	default:
		return naming.Sanitize(prefix + first.Name)
	}
}
