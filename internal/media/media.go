// Package media models stream variants and picks the best match for a
// requested quality and codec preference.
package media

// Kind partitions the streams available for one part by media type.
type Kind string

const (
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindSubtitle Kind = "subtitle"
	KindCaption  Kind = "caption"
	KindCover    Kind = "cover"
	KindMuxed    Kind = "muxed" // container-muxed legacy fallback
)

// ByteRange is an inclusive byte span inside a segmented container.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the span size in bytes.
func (r ByteRange) Length() int64 { return r.End - r.Start + 1 }

// SegmentBase carries the byte ranges needed for precise clipping of a
// segmented container: the initialization data and the segment index table.
type SegmentBase struct {
	Initialization ByteRange
	Index          ByteRange
}

// Variant is one concrete encoded rendition of a stream.
type Variant struct {
	QualityID   int    // service quality tier id (higher is better)
	Quality     string // human label, e.g. "1080P 高清"
	Codec       string // codec tag, e.g. "avc1.640032"
	Suffix      string // container suffix including dot, e.g. ".mp4"
	URLs        []string
	SegmentBase *SegmentBase
	Width       int
	Height      int
}

// StreamSet is everything the service offers for one part. Video and audio
// are ordered best-first. Muxed holds the legacy durl parts, in play order,
// for content the service does not serve as separate streams.
type StreamSet struct {
	Video []Variant
	Audio []Variant
	Muxed []Variant
}
