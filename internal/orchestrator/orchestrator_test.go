package orchestrator_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/AndyXFuture/bilix-meta/internal/api"
	"github.com/AndyXFuture/bilix-meta/internal/api/mocks"
	"github.com/AndyXFuture/bilix-meta/internal/fetch"
	"github.com/AndyXFuture/bilix-meta/internal/ledger"
	"github.com/AndyXFuture/bilix-meta/internal/media"
	"github.com/AndyXFuture/bilix-meta/internal/merge"
	"github.com/AndyXFuture/bilix-meta/internal/orchestrator"
	"github.com/AndyXFuture/bilix-meta/internal/progress"
)

// testLogger returns a discard logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mediaServer serves fixed stream bodies and counts hits.
func mediaServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		fmt.Fprintf(w, "body of %s", r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testEngine(t *testing.T, resolver api.Resolver, root string) *orchestrator.Engine {
	t.Helper()
	return orchestrator.New(orchestrator.Config{
		Resolver:  resolver,
		Fetcher:   fetch.New(fetch.Options{RetryBudget: 1, Logger: testLogger()}),
		Merger:    merge.New("true"),
		Reporter:  progress.NewReporter(),
		Logger:    testLogger(),
		Root:      root,
		Hierarchy: true,
	})
}

// dashItem builds a resolved single-part descriptor whose streams point
// at srvURL. withAudio controls whether an audio variant is offered.
func dashItem(srvURL string, withAudio bool) *api.ItemDescriptor {
	d := &api.ItemDescriptor{
		Title: "test video",
		BVID:  "BV1xx411c7mD",
		AID:   170001,
		Streams: media.StreamSet{
			Video: []media.Variant{{
				QualityID: 80, Quality: "1080P 高清", Codec: "avc1.640032",
				Suffix: ".mp4", URLs: []string{srvURL + "/v.m4s"},
			}},
		},
	}
	if withAudio {
		d.Streams.Audio = []media.Variant{{
			QualityID: 30280, Codec: "mp4a.40.2",
			Suffix: ".m4a", URLs: []string{srvURL + "/a.m4s"},
		}}
	}
	d.Parts = []api.PartDescriptor{{
		Name: "", CID: 1001,
		URL:  "https://www.bilibili.com/video/BV1xx411c7mD?p=1",
		Item: d,
	}}
	return d
}

const itemURL = "https://www.bilibili.com/video/BV1xx411c7mD"

// segmentedStream lays out a synthetic indexed stream of three 1-second
// segments and returns the full file, its segment base, and the bytes a
// clip of [1.5, 2.5] must produce (init plus the last two segments).
func segmentedStream() (file []byte, base media.SegmentBase, clipped []byte) {
	init := bytes.Repeat([]byte{'I'}, 100)
	segs := [][]byte{
		bytes.Repeat([]byte{'A'}, 10),
		bytes.Repeat([]byte{'B'}, 20),
		bytes.Repeat([]byte{'C'}, 30),
	}

	size := 32 + 12*len(segs)
	sidx := make([]byte, size)
	binary.BigEndian.PutUint32(sidx[0:], uint32(size))
	copy(sidx[4:], "sidx")
	binary.BigEndian.PutUint32(sidx[12:], 1)    // reference_ID
	binary.BigEndian.PutUint32(sidx[16:], 1000) // timescale
	binary.BigEndian.PutUint16(sidx[30:], uint16(len(segs)))
	p := 32
	for _, s := range segs {
		binary.BigEndian.PutUint32(sidx[p:], uint32(len(s)))
		binary.BigEndian.PutUint32(sidx[p+4:], 1000)
		p += 12
	}

	file = append(file, init...)
	file = append(file, sidx...)
	for _, s := range segs {
		file = append(file, s...)
	}

	base = media.SegmentBase{
		Initialization: media.ByteRange{Start: 0, End: int64(len(init)) - 1},
		Index:          media.ByteRange{Start: int64(len(init)), End: int64(len(init)+len(sidx)) - 1},
	}
	clipped = append(clipped, init...)
	clipped = append(clipped, segs[1]...)
	clipped = append(clipped, segs[2]...)
	return file, base, clipped
}

// rangeOnlyServer serves the stream honoring Range headers and counts
// requests that arrive without one.
func rangeOnlyServer(t *testing.T, file []byte, plain *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") == "" {
			plain.Add(1)
		}
		http.ServeContent(w, r, "stream.m4s", time.Unix(0, 0), bytes.NewReader(file))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloadItem_TimeRangeVideoOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	file, base, clipped := segmentedStream()
	var plain atomic.Int32
	srv := rangeOnlyServer(t, file, &plain)
	root := t.TempDir()

	d := dashItem(srv.URL, false)
	d.Streams.Video[0].SegmentBase = &base

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveItem(gomock.Any(), itemURL).Return(d, nil)

	e := testEngine(t, resolver, root)
	window := [2]float64{1.5, 2.5}
	require.NoError(t, e.DownloadItem(context.Background(), itemURL, orchestrator.Options{TimeRange: &window}))

	final := filepath.Join(root, "test video 0m1s-0m2s - BV1xx411c7mD", "BV1xx411c7mD.0m1s-0m2s.mp4")
	got, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, clipped, got)
	// every fetch in clip mode is a ranged one
	assert.Zero(t, plain.Load())
}

func TestDownloadItem_TimeRangeOnlyAudio(t *testing.T) {
	ctrl := gomock.NewController(t)
	file, base, clipped := segmentedStream()
	var plain atomic.Int32
	srv := rangeOnlyServer(t, file, &plain)
	root := t.TempDir()

	d := dashItem(srv.URL, true)
	d.Streams.Audio[0].SegmentBase = &base

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveItem(gomock.Any(), itemURL).Return(d, nil)

	e := testEngine(t, resolver, root)
	window := [2]float64{1.5, 2.5}
	require.NoError(t, e.DownloadItem(context.Background(), itemURL,
		orchestrator.Options{OnlyAudio: true, TimeRange: &window}))

	dest := filepath.Join(root, "test video 0m1s-0m2s - BV1xx411c7mD", "BV1xx411c7mD.0m1s-0m2s.m4a")
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, clipped, got)
	assert.Zero(t, plain.Load())
}

func TestDownloadItem_DashCombine(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := mediaServer(t, nil)
	root := t.TempDir()

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveItem(gomock.Any(), itemURL).Return(dashItem(srv.URL, true), nil)

	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer led.Close()

	e := testEngine(t, resolver, root)
	require.NoError(t, e.DownloadItem(context.Background(), itemURL, orchestrator.Options{Ledger: led}))

	itemDir := filepath.Join(root, "test video - BV1xx411c7mD")
	// the merge step consumed both stream files
	_, err = os.Stat(filepath.Join(itemDir, "BV1xx411c7mD-v.mp4"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(itemDir, "BV1xx411c7mD-a.m4a"))
	assert.True(t, os.IsNotExist(err))

	flags, err := led.Lookup(ledger.Key{ItemID: "BV1xx411c7mD", Name: "test video"})
	require.NoError(t, err)
	assert.True(t, flags.Video)
}

func TestDownloadItem_SkipSecondRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	var hits atomic.Int32
	srv := mediaServer(t, &hits)
	root := t.TempDir()

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveItem(gomock.Any(), itemURL).
		Return(dashItem(srv.URL, false), nil).Times(2)

	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer led.Close()

	e := testEngine(t, resolver, root)
	opts := orchestrator.Options{Ledger: led}

	require.NoError(t, e.DownloadItem(context.Background(), itemURL, opts))
	assert.Equal(t, int32(1), hits.Load())

	final := filepath.Join(root, "test video - BV1xx411c7mD", "BV1xx411c7mD.mp4")
	_, err = os.Stat(final)
	require.NoError(t, err)

	// second run resolves but touches no stream URL
	require.NoError(t, e.DownloadItem(context.Background(), itemURL, opts))
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloadItem_NoLedgerDiskIdempotence(t *testing.T) {
	ctrl := gomock.NewController(t)
	var hits atomic.Int32
	srv := mediaServer(t, &hits)
	root := t.TempDir()

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveItem(gomock.Any(), itemURL).
		Return(dashItem(srv.URL, false), nil).Times(2)

	e := testEngine(t, resolver, root)
	require.NoError(t, e.DownloadItem(context.Background(), itemURL, orchestrator.Options{}))
	assert.Equal(t, int32(1), hits.Load())

	// without a ledger the on-disk artifact alone prevents a refetch
	require.NoError(t, e.DownloadItem(context.Background(), itemURL, orchestrator.Options{}))
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloadItem_UpdateBypassesSkip(t *testing.T) {
	ctrl := gomock.NewController(t)
	var hits atomic.Int32
	srv := mediaServer(t, &hits)
	root := t.TempDir()

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveItem(gomock.Any(), itemURL).
		Return(dashItem(srv.URL, false), nil).Times(2)

	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer led.Close()

	e := testEngine(t, resolver, root)
	require.NoError(t, e.DownloadItem(context.Background(), itemURL, orchestrator.Options{Ledger: led}))
	require.NoError(t, e.DownloadItem(context.Background(), itemURL, orchestrator.Options{Ledger: led, Update: true}))
	assert.Equal(t, int32(2), hits.Load())
}

func TestDownloadItem_NoStreams(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	d := dashItem("http://unused", false)
	d.Streams = media.StreamSet{}

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveItem(gomock.Any(), itemURL).Return(d, nil)

	e := testEngine(t, resolver, root)
	// stream-less items warn and are contained, not fatal
	require.NoError(t, e.DownloadItem(context.Background(), itemURL, orchestrator.Options{}))

	final := filepath.Join(root, "test video - BV1xx411c7mD", "BV1xx411c7mD.mp4")
	_, err := os.Stat(final)
	assert.True(t, os.IsNotExist(err))
}

func TestDownloadSeries_ResolveFailureContained(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveItem(gomock.Any(), itemURL).
		Return(nil, errors.New("api down"))

	e := testEngine(t, resolver, t.TempDir())
	assert.NoError(t, e.DownloadSeries(context.Background(), itemURL, orchestrator.Options{}))
}

func TestDownloadSeries_FansOutParts(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := mediaServer(t, nil)
	root := t.TempDir()

	series := dashItem(srv.URL, false)
	series.Parts = nil
	for i := 1; i <= 3; i++ {
		series.Parts = append(series.Parts, api.PartDescriptor{
			Name: fmt.Sprintf("P%d", i), CID: int64(1000 + i),
			URL:  fmt.Sprintf("https://www.bilibili.com/video/BV1xx411c7mD?p=%d", i),
			Item: series,
		})
	}

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveItem(gomock.Any(), itemURL).Return(series, nil)
	// parts other than the resolved one are re-resolved via their page URL
	for i := 2; i <= 3; i++ {
		part := dashItem(srv.URL, false)
		part.Parts = series.Parts
		part.Part = i - 1
		resolver.EXPECT().ResolveItem(gomock.Any(), series.Parts[i-1].URL).Return(part, nil)
	}

	e := testEngine(t, resolver, root)
	require.NoError(t, e.DownloadSeries(context.Background(), itemURL, orchestrator.Options{}))

	seriesDir := filepath.Join(root, "test video")
	for i := 1; i <= 3; i++ {
		name := fmt.Sprintf("test video P%d - BV1xx411c7mD", i)
		final := filepath.Join(seriesDir, name, fmt.Sprintf("BV1xx411c7mD.P%d.mp4", i))
		_, err := os.Stat(final)
		assert.NoError(t, err, "part %d artifact", i)
	}
}

func TestDownloadSeries_PartRange(t *testing.T) {
	ctrl := gomock.NewController(t)
	srv := mediaServer(t, nil)
	root := t.TempDir()

	series := dashItem(srv.URL, false)
	series.Parts = nil
	for i := 1; i <= 3; i++ {
		series.Parts = append(series.Parts, api.PartDescriptor{
			Name: fmt.Sprintf("P%d", i), CID: int64(1000 + i),
			URL:  fmt.Sprintf("https://www.bilibili.com/video/BV1xx411c7mD?p=%d", i),
			Item: series,
		})
	}

	second := dashItem(srv.URL, false)
	second.Parts = series.Parts
	second.Part = 1

	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().ResolveItem(gomock.Any(), itemURL).Return(series, nil)
	resolver.EXPECT().ResolveItem(gomock.Any(), series.Parts[1].URL).Return(second, nil)

	e := testEngine(t, resolver, root)
	r := [2]int{2, 2}
	require.NoError(t, e.DownloadSeries(context.Background(), itemURL, orchestrator.Options{PartRange: &r}))

	seriesDir := filepath.Join(root, "test video")
	_, err := os.Stat(filepath.Join(seriesDir, "test video P2 - BV1xx411c7mD", "BV1xx411c7mD.P2.mp4"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(seriesDir, "test video P1 - BV1xx411c7mD"))
	assert.True(t, os.IsNotExist(err))
}

func TestWalk_Pagination(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	page1 := api.CollectionPage{Name: "favs", OwnerName: "owner", Total: 45}
	for i := 0; i < 20; i++ {
		page1.ItemIDs = append(page1.ItemIDs, fmt.Sprintf("BV1aa%07d", i))
		page1.ItemNames = append(page1.ItemNames, fmt.Sprintf("item %d", i))
	}
	page2 := api.CollectionPage{Name: "favs", OwnerName: "owner", Total: 45}
	for i := 20; i < 40; i++ {
		page2.ItemIDs = append(page2.ItemIDs, fmt.Sprintf("BV1aa%07d", i))
		page2.ItemNames = append(page2.ItemNames, fmt.Sprintf("item %d", i))
	}

	resolver := mocks.NewMockResolver(ctrl)
	h := api.Handle{Kind: api.KindFavorites, ID: "789"}
	resolver.EXPECT().ResolveCollectionPage(gomock.Any(), h, 1, 20, gomock.Any()).Return(page1, nil)
	resolver.EXPECT().ResolveCollectionPage(gomock.Any(), h, 2, 20, gomock.Any()).Return(page2, nil)
	// 20 from the full first page, 10 from the clipped second page
	resolver.EXPECT().ResolveItem(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("unavailable")).Times(30)

	e := testEngine(t, resolver, root)
	require.NoError(t, e.Walk(context.Background(), h, 30, api.PageFilters{}, orchestrator.Options{}))

	_, err := os.Stat(filepath.Join(root, "【收藏夹】owner-favs"))
	assert.NoError(t, err)
}

func TestWalk_LedgerPreSkip(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	led, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer led.Close()

	page := api.CollectionPage{
		Name: "favs", OwnerName: "owner", Total: 2,
		ItemIDs:   []string{"BV1aa411c7aa", "BV1bb411c7bb"},
		ItemNames: []string{"done already", "fresh"},
	}

	resolver := mocks.NewMockResolver(ctrl)
	h := api.Handle{Kind: api.KindFavorites, ID: "789"}
	resolver.EXPECT().ResolveCollectionPage(gomock.Any(), h, 1, 20, gomock.Any()).Return(page, nil)
	// only the fresh entry reaches resolution
	resolver.EXPECT().ResolveItem(gomock.Any(), "https://www.bilibili.com/video/BV1bb411c7bb").
		Return(nil, errors.New("unavailable"))

	// pre-seed the record the walker checks against
	colID, err := led.UpsertCollection("【收藏夹】owner-favs")
	require.NoError(t, err)
	require.NoError(t, led.Record(
		ledger.Key{ItemID: "BV1aa411c7aa", Name: "done already", CollectionID: colID},
		ledger.Flags{Video: true}))

	e := testEngine(t, resolver, root)
	require.NoError(t, e.Walk(context.Background(), h, 10, api.PageFilters{}, orchestrator.Options{Ledger: led}))
}

func TestWalk_CategoryResolution(t *testing.T) {
	ctrl := gomock.NewController(t)
	root := t.TempDir()

	cats := map[string]api.Category{
		"舞蹈": {Name: "舞蹈", TID: 129, Sub: []api.Category{{Name: "宅舞", TID: 20}}},
	}

	resolver := mocks.NewMockResolver(ctrl)
	// the catalog is fetched once and memoized across walks
	resolver.EXPECT().Categories(gomock.Any()).Return(cats, nil).Times(1)
	resolver.EXPECT().
		ResolveCollectionPage(gomock.Any(), api.Handle{Kind: api.KindCategory, ID: "20"}, 1, 30, gomock.Any()).
		Return(api.CollectionPage{Name: "20", Total: 0}, nil).Times(2)

	e := testEngine(t, resolver, root)
	h := api.Handle{Kind: api.KindCategory, ID: "宅舞"}
	require.NoError(t, e.Walk(context.Background(), h, 10, api.PageFilters{}, orchestrator.Options{}))
	require.NoError(t, e.Walk(context.Background(), h, 10, api.PageFilters{}, orchestrator.Options{}))

	// the directory carries the human name, not the numeric id
	_, err := os.Stat(filepath.Join(root, "【分区】宅舞"))
	assert.NoError(t, err)
}

func TestWalk_UnknownCategorySuggests(t *testing.T) {
	ctrl := gomock.NewController(t)

	cats := map[string]api.Category{
		"舞蹈": {Name: "舞蹈", TID: 129},
	}
	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().Categories(gomock.Any()).Return(cats, nil)

	e := testEngine(t, resolver, t.TempDir())
	err := e.Walk(context.Background(),
		api.Handle{Kind: api.KindCategory, ID: "舞蹈区"}, 10, api.PageFilters{}, orchestrator.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "舞蹈")
}

func TestWalk_FirstPageFailureIsFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	h := api.Handle{Kind: api.KindFavorites, ID: "789"}
	resolver.EXPECT().ResolveCollectionPage(gomock.Any(), h, 1, 20, gomock.Any()).
		Return(api.CollectionPage{}, errors.New("api down"))

	e := testEngine(t, resolver, t.TempDir())
	err := e.Walk(context.Background(), h, 10, api.PageFilters{}, orchestrator.Options{})
	assert.Error(t, err)
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, orchestrator.StateResolving.CanTransitionTo(orchestrator.StateSelecting))
	assert.True(t, orchestrator.StateSelecting.CanTransitionTo(orchestrator.StateSkipped))
	assert.True(t, orchestrator.StateFetching.CanTransitionTo(orchestrator.StateMerging))
	assert.True(t, orchestrator.StateMerging.CanTransitionTo(orchestrator.StateCompleted))

	assert.False(t, orchestrator.StateResolving.CanTransitionTo(orchestrator.StateFetching))
	assert.False(t, orchestrator.StateCompleted.CanTransitionTo(orchestrator.StateFetching))
	assert.False(t, orchestrator.StateSkipped.CanTransitionTo(orchestrator.StateResolving))

	assert.True(t, orchestrator.StateFailed.IsTerminal())
	assert.False(t, orchestrator.StateFetching.IsTerminal())
}
