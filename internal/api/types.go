// Package api resolves bilibili resources into item descriptors and
// stream catalogs. It is the only package that talks to the remote API.
package api

import (
	"time"

	"github.com/AndyXFuture/bilix-meta/internal/media"
)

// ItemDescriptor is one addressable downloadable unit, read-only after
// resolution. Streams describe the part the resolved URL points at.
type ItemDescriptor struct {
	Title    string
	BVID     string
	AID      int64
	CoverURL string
	Desc     string
	Genre    string
	Tags     []string

	Owner Person
	Staff []Person

	PubDate  time.Time
	Created  time.Time
	Duration time.Duration

	// Parts is the ordered page list; Part indexes the one this
	// descriptor's Streams belong to.
	Parts []PartDescriptor
	Part  int

	Streams media.StreamSet
}

// CurrentPart returns the part the descriptor was resolved for.
func (d *ItemDescriptor) CurrentPart() *PartDescriptor {
	return &d.Parts[d.Part]
}

// PartDescriptor is one sub-unit of an item. The Item back-reference never
// owns the descriptor.
type PartDescriptor struct {
	Name  string
	Index int
	CID   int64
	URL   string
	Item  *ItemDescriptor
}

// Person is a creator or staff member attached to an item.
type Person struct {
	Name        string
	MID         int64
	Role        string
	PortraitURL string
}

// CollectionPage is one resolved page of a catalog-like resource.
type CollectionPage struct {
	Name      string
	OwnerName string
	Total     int
	ItemIDs   []string
	ItemNames []string
}

// PageFilters narrows a collection page resolution. Keyword filtering is
// performed by the remote service, not locally.
type PageFilters struct {
	Keyword string
	Order   string
	Days    int
}

// SubtitleTrack is one downloadable subtitle listing entry.
type SubtitleTrack struct {
	URL   string
	Label string
}

// Category is one entry of the service's category catalog.
type Category struct {
	Name string
	TID  int
	Sub  []Category
}
