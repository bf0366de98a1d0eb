package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// subtitleDoc is the JSON document behind a SubtitleTrack URL.
type subtitleDoc struct {
	Body []struct {
		From    float64 `json:"from"`
		To      float64 `json:"to"`
		Content string  `json:"content"`
	} `json:"body"`
}

// JSONToSRT converts the service's subtitle JSON document to SubRip text.
func JSONToSRT(data []byte) ([]byte, error) {
	var doc subtitleDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode subtitle: %w", err)
	}
	var b strings.Builder
	for i, line := range doc.Body {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(line.From), srtTimestamp(line.To), line.Content)
	}
	return []byte(b.String()), nil
}

func srtTimestamp(sec float64) string {
	ms := int64(sec * 1000)
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}
