package fetch

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/AndyXFuture/bilix-meta/internal/media"
)

// errNoIndex is returned when the index byte range holds no segment index box.
var errNoIndex = errors.New("no segment index box in index range")

// segment is one media subsegment described by the index table, with its
// presentation window in seconds and its absolute byte range.
type segment struct {
	Start float64
	End   float64
	Range media.ByteRange
}

// parseIndex reads the segment index ("sidx") box from the index range
// body and maps each reference to an absolute byte range. indexEnd is the
// file offset of the last index byte; referenced media follows it.
func parseIndex(data []byte, indexEnd int64) ([]segment, error) {
	box, err := findBox(data, "sidx")
	if err != nil {
		return nil, err
	}
	if len(box) < 12 {
		return nil, fmt.Errorf("segment index truncated: %d bytes", len(box))
	}

	version := box[0]
	p := 4 // version + flags
	p += 4 // reference_ID
	timescale := binary.BigEndian.Uint32(box[p:])
	p += 4

	var earliest, firstOffset uint64
	if version == 0 {
		if len(box) < p+8+4 {
			return nil, fmt.Errorf("segment index truncated: %d bytes", len(box))
		}
		earliest = uint64(binary.BigEndian.Uint32(box[p:]))
		firstOffset = uint64(binary.BigEndian.Uint32(box[p+4:]))
		p += 8
	} else {
		if len(box) < p+16+4 {
			return nil, fmt.Errorf("segment index truncated: %d bytes", len(box))
		}
		earliest = binary.BigEndian.Uint64(box[p:])
		firstOffset = binary.BigEndian.Uint64(box[p+8:])
		p += 16
	}

	p += 2 // reserved
	count := int(binary.BigEndian.Uint16(box[p:]))
	p += 2
	if len(box) < p+count*12 {
		return nil, fmt.Errorf("segment index truncated: %d refs, %d bytes", count, len(box))
	}
	if timescale == 0 {
		return nil, errors.New("segment index has zero timescale")
	}

	segs := make([]segment, 0, count)
	t := earliest
	offset := indexEnd + 1 + int64(firstOffset)
	for i := 0; i < count; i++ {
		sizeWord := binary.BigEndian.Uint32(box[p:])
		duration := binary.BigEndian.Uint32(box[p+4:])
		p += 12

		size := int64(sizeWord & 0x7fffffff) // high bit flags a nested index
		segs = append(segs, segment{
			Start: float64(t) / float64(timescale),
			End:   float64(t+uint64(duration)) / float64(timescale),
			Range: media.ByteRange{Start: offset, End: offset + size - 1},
		})
		t += uint64(duration)
		offset += size
	}
	return segs, nil
}

// findBox walks top-level MP4 boxes in data and returns the payload of the
// first box with the given type.
func findBox(data []byte, boxType string) ([]byte, error) {
	for p := 0; p+8 <= len(data); {
		size := int(binary.BigEndian.Uint32(data[p:]))
		typ := string(data[p+4 : p+8])
		if size < 8 || p+size > len(data) {
			break
		}
		if typ == boxType {
			return data[p+8 : p+size], nil
		}
		p += size
	}
	return nil, errNoIndex
}
