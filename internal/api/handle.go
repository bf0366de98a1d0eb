package api

import (
	"fmt"
	"regexp"
)

// Kind classifies a resource handle.
type Kind string

const (
	KindItem       Kind = "item"       // single video page
	KindSeries     Kind = "series"     // all parts of a multi-part item
	KindFavorites  Kind = "favorites"  // saved-items list
	KindCollection Kind = "collection" // curated collection
	KindSeriesList Kind = "serieslist" // creator-ordered video list
	KindCreator    Kind = "creator"    // creator's catalog
	KindCategory   Kind = "category"   // category feed, addressed by name
)

// Handle is an opaque resource identifier plus its resolved kind.
// Immutable once parsed.
type Handle struct {
	Kind Kind
	URL  string
	MID  string // creator id, when present in the URL
	ID   string // fav/collection/list id or category TID
}

var (
	favPattern     = regexp.MustCompile(`^https?://space\.bilibili\.com/(\d+)/favlist\?fid=(\d+)`)
	listPattern    = regexp.MustCompile(`^https?://space\.bilibili\.com/(\d+)/channel/seriesdetail\?sid=(\d+)`)
	collectPattern = regexp.MustCompile(`^https?://space\.bilibili\.com/(\d+)/channel/collectiondetail\?sid=(\d+)`)
	spacePattern   = regexp.MustCompile(`^https?://space\.bilibili\.com/(\d+)`)
	videoPattern   = regexp.MustCompile(`^https?://([A-Za-z0-9-]+\.)*(bilibili\.com|b23\.tv)`)
)

// ParseHandle classifies a URL. Order matters: space sub-pages must be
// checked before the bare creator-space pattern.
func ParseHandle(url string) (Handle, error) {
	if m := favPattern.FindStringSubmatch(url); m != nil {
		return Handle{Kind: KindFavorites, URL: url, MID: m[1], ID: m[2]}, nil
	}
	if m := listPattern.FindStringSubmatch(url); m != nil {
		return Handle{Kind: KindSeriesList, URL: url, MID: m[1], ID: m[2]}, nil
	}
	if m := collectPattern.FindStringSubmatch(url); m != nil {
		return Handle{Kind: KindCollection, URL: url, MID: m[1], ID: m[2]}, nil
	}
	if m := spacePattern.FindStringSubmatch(url); m != nil {
		return Handle{Kind: KindCreator, URL: url, MID: m[1]}, nil
	}
	if videoPattern.MatchString(url) {
		return Handle{Kind: KindSeries, URL: url}, nil
	}
	return Handle{}, fmt.Errorf("%w: %s", ErrNoHandler, url)
}
