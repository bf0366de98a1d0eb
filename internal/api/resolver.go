package api

import "context"

//go:generate mockgen -destination=mocks/resolver.go -package=mocks . Resolver

// Resolver is the narrow contract the download engine depends on.
type Resolver interface {
	// ResolveItem resolves one video page URL into a descriptor with the
	// stream catalog for the part the URL points at.
	ResolveItem(ctx context.Context, url string) (*ItemDescriptor, error)

	// ResolveCollectionPage resolves one page of a catalog-like handle
	// (favorites, creator, collection, series list, category).
	ResolveCollectionPage(ctx context.Context, h Handle, page, pageSize int, f PageFilters) (CollectionPage, error)

	// ResolveSubtitles lists the subtitle tracks for one part.
	ResolveSubtitles(ctx context.Context, bvid string, cid int64) ([]SubtitleTrack, error)

	// ResolveCaptionURLs lists the caption (danmaku) segment URLs for one part.
	ResolveCaptionURLs(ctx context.Context, aid, cid int64) ([]string, error)

	// Categories returns the service's category catalog.
	Categories(ctx context.Context) (map[string]Category, error)
}
