package api_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndyXFuture/bilix-meta/internal/api"
)

func TestParseHandle(t *testing.T) {
	tests := []struct {
		name string
		url  string
		kind api.Kind
		mid  string
		id   string
	}{
		{
			name: "favorites",
			url:  "https://space.bilibili.com/123456/favlist?fid=789",
			kind: api.KindFavorites,
			mid:  "123456",
			id:   "789",
		},
		{
			name: "series list",
			url:  "https://space.bilibili.com/123456/channel/seriesdetail?sid=42",
			kind: api.KindSeriesList,
			mid:  "123456",
			id:   "42",
		},
		{
			name: "collection",
			url:  "https://space.bilibili.com/123456/channel/collectiondetail?sid=630",
			kind: api.KindCollection,
			mid:  "123456",
			id:   "630",
		},
		{
			name: "creator space",
			url:  "https://space.bilibili.com/123456",
			kind: api.KindCreator,
			mid:  "123456",
		},
		{
			name: "video page",
			url:  "https://www.bilibili.com/video/BV1xx411c7mD",
			kind: api.KindSeries,
		},
		{
			name: "short link",
			url:  "https://b23.tv/abc123",
			kind: api.KindSeries,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := api.ParseHandle(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, h.Kind)
			assert.Equal(t, tt.mid, h.MID)
			assert.Equal(t, tt.id, h.ID)
			assert.Equal(t, tt.url, h.URL)
		})
	}
}

func TestParseHandle_Unroutable(t *testing.T) {
	_, err := api.ParseHandle("https://example.com/watch?v=nope")
	assert.ErrorIs(t, err, api.ErrNoHandler)
}
