package nfo_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndyXFuture/bilix-meta/internal/api"
	"github.com/AndyXFuture/bilix-meta/internal/nfo"
)

func testItem() *api.ItemDescriptor {
	d := &api.ItemDescriptor{
		Title:    "test video",
		BVID:     "BV1xx411c7mD",
		Desc:     "a description",
		Genre:    "音乐",
		Tags:     []string{"tag1", "tag2"},
		Owner:    api.Person{Name: "someone", MID: 42},
		PubDate:  time.Date(2023, 4, 5, 12, 0, 0, 0, time.UTC),
		Created:  time.Date(2023, 4, 6, 12, 0, 0, 0, time.UTC),
		Duration: 95 * time.Second,
	}
	d.Parts = []api.PartDescriptor{{Name: "P1", Item: d}}
	return d
}

func TestFromItem_OwnerFallback(t *testing.T) {
	m := nfo.FromItem(testItem(), "https://www.bilibili.com/video/BV1xx411c7mD?p=1", "People")

	assert.Equal(t, "test video P1", m.Title)
	assert.Equal(t, "2023-04-05", m.Premiered)
	assert.Equal(t, "2023-04-06", m.ReleaseDate)
	assert.Equal(t, "2023", m.Year)
	assert.Equal(t, "95秒", m.Runtime)
	assert.Equal(t, "BV1xx411c7mD", m.ID)
	assert.Equal(t, "bilibili", m.Studio)

	// no staff credited: the owner stands in
	require.Len(t, m.Actors, 1)
	assert.Equal(t, "someone", m.Actors[0].Name)
	assert.Equal(t, "UP主", m.Actors[0].Type)
	assert.Equal(t, filepath.ToSlash(filepath.Join("People", "s", "someone", "folder.jpg")), m.Actors[0].Thumb)
}

func TestFromItem_Staff(t *testing.T) {
	d := testItem()
	d.Staff = []api.Person{
		{Name: "director", MID: 1, Role: "导演"},
		{Name: "singer", MID: 2, Role: "演唱"},
	}

	m := nfo.FromItem(d, "", "People")
	require.Len(t, m.Actors, 2)
	assert.Equal(t, "Producer", m.Actors[0].Type)
	assert.Equal(t, "导演", m.Actors[0].Role)
	assert.Equal(t, 1, m.Actors[1].SortOrder)
}

func TestWrite(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "BV1xx411c7mD.nfo")
	m := nfo.FromItem(testItem(), "", "People")
	require.NoError(t, m.Write(dest))

	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(body), `<?xml version="1.0" encoding="UTF-8"?>`)
	assert.Contains(t, string(body), "<title>test video P1</title>")
	assert.Contains(t, string(body), "<tag>tag1</tag>")
	assert.Contains(t, string(body), "<customrating>CN</customrating>")
}