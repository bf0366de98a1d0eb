package orchestrator

import (
	"path/filepath"

	"github.com/AndyXFuture/bilix-meta/internal/ledger"
	"github.com/AndyXFuture/bilix-meta/internal/naming"
)

// mediaSuffixes are extensions the media artifact may carry depending on
// the variant actually served.
var mediaSuffixes = map[string]bool{
	".mp4": true, ".flv": true,
	".m4a": true, ".aac": true, ".flac": true, ".eac3": true,
}

// skipDecision reports whether the whole item can be skipped before any
// task is created or network call made. It requires both a ledger record
// and the artifacts on disk, so manually deleted files are re-fetched
// even when the ledger still remembers them. Auxiliary paths derive from
// the item id and part name, never from stem: stem carries the clip
// window suffix while aux artifacts are shared across clips.
func (e *Engine) skipDecision(itemDir, finalPath, stem, pName string, key ledger.Key, opts Options) bool {
	if opts.Ledger == nil {
		return false
	}
	flags, err := opts.Ledger.Lookup(key)
	if err != nil {
		return false
	}

	if !flags.Video {
		return false
	}
	if opts.OnlyAudio {
		if !anyMediaArtifact(itemDir, stem) {
			return false
		}
	} else if !exists(finalPath) {
		return false
	}

	if opts.Cover && !(flags.Cover && exists(filepath.Join(itemDir, key.ItemID+"-fanart.jpg"))) {
		return false
	}
	if opts.Subtitle {
		pattern := filepath.Join(itemDir, naming.LegalTitle(".", key.ItemID, pName)+".*.zh.srt")
		if !(flags.Subtitle && anyGlob(pattern)) {
			return false
		}
	}
	if opts.Caption {
		suffix := ".pb"
		if opts.CaptionConvert != nil {
			suffix = ".ass"
		}
		if !(flags.Caption && exists(naming.CaptionPath(itemDir, key.ItemID, pName, suffix))) {
			return false
		}
	}
	if opts.Meta && !(flags.Metadata && exists(filepath.Join(itemDir, key.ItemID+".nfo"))) {
		return false
	}
	return true
}

// anyMediaArtifact reports whether some playable artifact with the item's
// stem already exists, whatever container the variant used.
func anyMediaArtifact(dir, stem string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, stem+"*"))
	if err != nil {
		return false
	}
	for _, m := range matches {
		if mediaSuffixes[filepath.Ext(m)] {
			return true
		}
	}
	return false
}

func anyGlob(pattern string) bool {
	matches, err := filepath.Glob(pattern)
	return err == nil && len(matches) > 0
}
