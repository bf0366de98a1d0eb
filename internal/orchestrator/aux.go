package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/AndyXFuture/bilix-meta/internal/api"
	"github.com/AndyXFuture/bilix-meta/internal/naming"
	"github.com/AndyXFuture/bilix-meta/internal/nfo"
)

// auxResult reports which auxiliary artifacts for an item are present on
// disk after the fetch, whether freshly downloaded or already there.
type auxResult struct {
	cover    bool
	subtitle bool
	caption  bool
	metadata bool
}

// fetchAux downloads the requested auxiliary artifacts concurrently.
// Each artifact fails independently with a warning.
func (e *Engine) fetchAux(ctx context.Context, info *api.ItemDescriptor, opts Options, itemDir, pName, stem string) auxResult {
	var res auxResult
	run := func(enabled bool, dst *bool, fn func() error) {
		if !enabled {
			return
		}
		if err := fn(); err != nil {
			e.warnItem(info.BVID, "auxiliary fetch", err)
			return
		}
		*dst = true
	}

	done := make(chan struct{}, 4)
	go func() { run(opts.Cover, &res.cover, func() error { return e.fetchCover(ctx, info, itemDir, opts.Update) }); done <- struct{}{} }()
	go func() { run(opts.Subtitle, &res.subtitle, func() error { return e.fetchSubtitles(ctx, info, itemDir, pName, opts.Update) }); done <- struct{}{} }()
	go func() { run(opts.Caption, &res.caption, func() error { return e.fetchCaptions(ctx, info, opts, itemDir, pName) }); done <- struct{}{} }()
	go func() { run(opts.Meta, &res.metadata, func() error { return e.writeMetadata(ctx, info, itemDir, opts.Update) }); done <- struct{}{} }()
	for i := 0; i < 4; i++ {
		<-done
	}
	return res
}

func (e *Engine) fetchCover(ctx context.Context, info *api.ItemDescriptor, itemDir string, update bool) error {
	dest := naming.CoverPath(itemDir, info.BVID)
	if exists(dest) && !update {
		return nil
	}
	_, err := e.fetcher.Static(ctx, []string{info.CoverURL}, dest, nil)
	return err
}

func (e *Engine) fetchSubtitles(ctx context.Context, info *api.ItemDescriptor, itemDir, pName string, update bool) error {
	tracks, err := e.resolver.ResolveSubtitles(ctx, info.BVID, info.CurrentPart().CID)
	if err != nil {
		return err
	}
	for _, t := range tracks {
		dest := naming.SubtitlePath(itemDir, info.BVID, pName, t.Label)
		if exists(dest) && !update {
			continue
		}
		if _, err := e.fetcher.Static(ctx, []string{t.URL}, dest, api.JSONToSRT); err != nil {
			return err
		}
	}
	return nil
}

// fetchCaptions concatenates every caption segment into one artifact,
// converting it when a hook is configured.
func (e *Engine) fetchCaptions(ctx context.Context, info *api.ItemDescriptor, opts Options, itemDir, pName string) error {
	suffix := ".pb"
	if opts.CaptionConvert != nil {
		suffix = ".ass"
	}
	dest := naming.CaptionPath(itemDir, info.BVID, pName, suffix)
	if exists(dest) && !opts.Update {
		return nil
	}

	urls, err := e.resolver.ResolveCaptionURLs(ctx, info.AID, info.CurrentPart().CID)
	if err != nil {
		return err
	}
	var merged []byte
	for _, u := range urls {
		body, err := e.fetcher.Bytes(ctx, []string{u})
		if err != nil {
			return err
		}
		merged = append(merged, body...)
	}
	if opts.CaptionConvert != nil {
		if merged, err = opts.CaptionConvert(merged); err != nil {
			return err
		}
	}
	tmp := dest + ".part"
	if err := os.WriteFile(tmp, merged, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}

// writeMetadata renders the NFO document and saves one shared portrait
// per credited person.
func (e *Engine) writeMetadata(ctx context.Context, info *api.ItemDescriptor, itemDir string, update bool) error {
	dest := naming.MetadataPath(itemDir, info.BVID)
	if !exists(dest) || update {
		doc := nfo.FromItem(info, info.CurrentPart().URL, e.peopleRoot)
		if err := doc.Write(dest); err != nil {
			return err
		}
	}

	people := info.Staff
	if len(people) == 0 {
		people = []api.Person{info.Owner}
	}
	for _, p := range people {
		if p.Name == "" || p.PortraitURL == "" {
			continue
		}
		dir := naming.PersonDir(e.peopleRoot, p.Name)
		portrait := filepath.Join(dir, "folder.jpg")
		if exists(portrait) && !update {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		if _, err := e.fetcher.Static(ctx, []string{p.PortraitURL}, portrait, nil); err != nil {
			e.warnItem(p.Name, "portrait fetch", err)
		}
	}
	return nil
}
