package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AndyXFuture/bilix-meta/internal/media"
)

const (
	defaultBaseURL   = "https://api.bilibili.com"
	defaultSearchURL = "https://s.search.bilibili.com"

	// fnval bitmask requesting DASH, 4K, and lossless audio.
	playURLFnval = 4048
)

// Client talks to the bilibili REST API.
type Client struct {
	baseURL    string
	searchURL  string
	sessData   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithSearchURL sets a custom search/category base URL (for testing).
func WithSearchURL(u string) Option {
	return func(c *Client) { c.searchURL = u }
}

// WithSessData sets the SESSDATA session cookie. Higher quality tiers are
// only offered to authenticated sessions.
func WithSessData(s string) Option {
	return func(c *Client) { c.sessData = s }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates an API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		searchURL: defaultSearchURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// envelope is the common response wrapper.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// get performs an authenticated GET and unwraps the response envelope.
func (c *Client) get(ctx context.Context, rawURL string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Referer", "https://www.bilibili.com")
	req.Header.Set("User-Agent", "Mozilla/5.0")
	if c.sessData != "" {
		req.AddCookie(&http.Cookie{Name: "SESSDATA", Value: c.sessData})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %s", ErrAPI, resp.Status)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if err := mapCode(env.Code, env.Message); err != nil {
		return err
	}
	if data != nil {
		if err := json.Unmarshal(env.Data, data); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

// mapCode translates service error codes into the package taxonomy.
func mapCode(code int, msg string) error {
	switch code {
	case 0:
		return nil
	case -404, 62002, 62004, 62012:
		// missing, private, under review, or region/privilege locked
		return fmt.Errorf("%w: %s (code %d)", ErrResourceUnavailable, msg, code)
	case -352:
		return fmt.Errorf("%w: risk control rejected the request", ErrAPI)
	default:
		return fmt.Errorf("%w: %s (code %d)", ErrAPI, msg, code)
	}
}

// parseVideoURL extracts the bvid and the 1-based part number from a URL.
func parseVideoURL(raw string) (bvid string, part int, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s", ErrNoHandler, raw)
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if strings.HasPrefix(seg, "BV") && len(seg) == 12 {
			bvid = seg
			break
		}
	}
	if bvid == "" {
		return "", 0, fmt.Errorf("%w: no video id in %s", ErrNoHandler, raw)
	}
	part = 1
	if p := u.Query().Get("p"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			part = n
		}
	}
	return bvid, part, nil
}

type viewData struct {
	BVID    string `json:"bvid"`
	AID     int64  `json:"aid"`
	Title   string `json:"title"`
	Desc    string `json:"desc"`
	Pic     string `json:"pic"`
	TName   string `json:"tname"`
	PubDate int64  `json:"pubdate"`
	CTime   int64  `json:"ctime"`
	Seconds int64  `json:"duration"`
	Owner   struct {
		MID  int64  `json:"mid"`
		Name string `json:"name"`
		Face string `json:"face"`
	} `json:"owner"`
	Staff []struct {
		MID   int64  `json:"mid"`
		Name  string `json:"name"`
		Title string `json:"title"`
		Face  string `json:"face"`
	} `json:"staff"`
	Pages []struct {
		CID  int64  `json:"cid"`
		Page int    `json:"page"`
		Part string `json:"part"`
	} `json:"pages"`
}

// ResolveItem implements Resolver.
func (c *Client) ResolveItem(ctx context.Context, rawURL string) (*ItemDescriptor, error) {
	bvid, part, err := parseVideoURL(rawURL)
	if err != nil {
		return nil, err
	}

	var view viewData
	viewURL := fmt.Sprintf("%s/x/web-interface/view?bvid=%s", c.baseURL, bvid)
	if err := c.get(ctx, viewURL, &view); err != nil {
		return nil, fmt.Errorf("resolve %s: %w", bvid, err)
	}
	if len(view.Pages) == 0 {
		// festival and interactive pages come back without a page list
		return nil, fmt.Errorf("resolve %s: %w: no pages", bvid, ErrUnsupported)
	}
	if part > len(view.Pages) {
		part = 1
	}

	d := &ItemDescriptor{
		Title:    view.Title,
		BVID:     view.BVID,
		AID:      view.AID,
		CoverURL: view.Pic,
		Desc:     view.Desc,
		Genre:    view.TName,
		Owner:    Person{Name: view.Owner.Name, MID: view.Owner.MID, PortraitURL: view.Owner.Face},
		PubDate:  time.Unix(view.PubDate, 0),
		Created:  time.Unix(view.CTime, 0),
		Duration: time.Duration(view.Seconds) * time.Second,
		Part:     part - 1,
	}
	for _, s := range view.Staff {
		d.Staff = append(d.Staff, Person{Name: s.Name, MID: s.MID, Role: s.Title, PortraitURL: s.Face})
	}
	for i, p := range view.Pages {
		d.Parts = append(d.Parts, PartDescriptor{
			Name:  p.Part,
			Index: i,
			CID:   p.CID,
			URL:   fmt.Sprintf("https://www.bilibili.com/video/%s?p=%d", view.BVID, i+1),
			Item:  d,
		})
	}

	streams, err := c.resolveStreams(ctx, d.BVID, d.CurrentPart().CID)
	if err != nil {
		return nil, fmt.Errorf("resolve %s streams: %w", bvid, err)
	}
	d.Streams = streams
	return d, nil
}

type playData struct {
	Dash *struct {
		Video []dashMedia `json:"video"`
		Audio []dashMedia `json:"audio"`
	} `json:"dash"`
	DURL []struct {
		URL       string   `json:"url"`
		BackupURL []string `json:"backup_url"`
	} `json:"durl"`
	Format            string   `json:"format"`
	AcceptQuality     []int    `json:"accept_quality"`
	AcceptDescription []string `json:"accept_description"`
}

type dashMedia struct {
	ID          int      `json:"id"`
	BaseURL     string   `json:"base_url"`
	BackupURL   []string `json:"backup_url"`
	MimeType    string   `json:"mime_type"`
	Codecs      string   `json:"codecs"`
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	SegmentBase struct {
		Initialization string `json:"initialization"`
		IndexRange     string `json:"index_range"`
	} `json:"segment_base"`
}

func (c *Client) resolveStreams(ctx context.Context, bvid string, cid int64) (media.StreamSet, error) {
	var play playData
	playURL := fmt.Sprintf("%s/x/player/playurl?bvid=%s&cid=%d&fnval=%d&fourk=1",
		c.baseURL, bvid, cid, playURLFnval)
	if err := c.get(ctx, playURL, &play); err != nil {
		return media.StreamSet{}, err
	}

	var set media.StreamSet
	if play.Dash != nil {
		labels := qualityLabels(play.AcceptQuality, play.AcceptDescription)
		for _, v := range play.Dash.Video {
			set.Video = append(set.Video, dashVariant(v, labels))
		}
		for _, a := range play.Dash.Audio {
			set.Audio = append(set.Audio, dashVariant(a, nil))
		}
		return set, nil
	}
	for _, d := range play.DURL {
		suffix := ".mp4"
		if strings.Contains(play.Format, "flv") {
			suffix = ".flv"
		}
		set.Muxed = append(set.Muxed, media.Variant{
			Suffix: suffix,
			URLs:   append([]string{d.URL}, d.BackupURL...),
		})
	}
	return set, nil
}

func qualityLabels(ids []int, descs []string) map[int]string {
	labels := make(map[int]string, len(ids))
	for i, id := range ids {
		if i < len(descs) {
			labels[id] = descs[i]
		}
	}
	return labels
}

func dashVariant(m dashMedia, labels map[int]string) media.Variant {
	v := media.Variant{
		QualityID: m.ID,
		Quality:   labels[m.ID],
		Codec:     m.Codecs,
		Suffix:    suffixFromMime(m.MimeType),
		URLs:      append([]string{m.BaseURL}, m.BackupURL...),
		Width:     m.Width,
		Height:    m.Height,
	}
	if init, idx, ok := parseRanges(m.SegmentBase.Initialization, m.SegmentBase.IndexRange); ok {
		v.SegmentBase = &media.SegmentBase{Initialization: init, Index: idx}
	}
	return v
}

func suffixFromMime(mime string) string {
	switch {
	case strings.Contains(mime, "audio"):
		return ".m4a"
	default:
		return ".mp4"
	}
}

// parseRanges reads "start-end" byte range pairs from the segment base.
func parseRanges(init, index string) (media.ByteRange, media.ByteRange, bool) {
	i, ok1 := parseRange(init)
	x, ok2 := parseRange(index)
	return i, x, ok1 && ok2
}

func parseRange(s string) (media.ByteRange, bool) {
	start, end, found := strings.Cut(s, "-")
	if !found {
		return media.ByteRange{}, false
	}
	a, err1 := strconv.ParseInt(start, 10, 64)
	b, err2 := strconv.ParseInt(end, 10, 64)
	if err1 != nil || err2 != nil || b < a {
		return media.ByteRange{}, false
	}
	return media.ByteRange{Start: a, End: b}, true
}
