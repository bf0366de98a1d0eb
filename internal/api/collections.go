package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ResolveCollectionPage implements Resolver. One call resolves one page;
// pagination policy belongs to the caller.
func (c *Client) ResolveCollectionPage(ctx context.Context, h Handle, page, pageSize int, f PageFilters) (CollectionPage, error) {
	switch h.Kind {
	case KindFavorites:
		return c.favoritesPage(ctx, h.ID, page, pageSize, f.Keyword)
	case KindCreator:
		return c.creatorPage(ctx, h.MID, page, pageSize, f)
	case KindCollection:
		return c.seasonPage(ctx, h, page, pageSize, true)
	case KindSeriesList:
		return c.seasonPage(ctx, h, page, pageSize, false)
	case KindCategory:
		return c.categoryPage(ctx, h.ID, page, pageSize, f)
	default:
		return CollectionPage{}, fmt.Errorf("%w: %s is not a collection kind", ErrUnsupported, h.Kind)
	}
}

func (c *Client) favoritesPage(ctx context.Context, fid string, page, pageSize int, keyword string) (CollectionPage, error) {
	var data struct {
		Info struct {
			Title      string `json:"title"`
			MediaCount int    `json:"media_count"`
			Upper      struct {
				Name string `json:"name"`
			} `json:"upper"`
		} `json:"info"`
		Medias []struct {
			BVID  string `json:"bvid"`
			Title string `json:"title"`
		} `json:"medias"`
	}
	u := fmt.Sprintf("%s/x/v3/fav/resource/list?media_id=%s&pn=%d&ps=%d&keyword=%s",
		c.baseURL, fid, page, pageSize, url.QueryEscape(keyword))
	if err := c.get(ctx, u, &data); err != nil {
		return CollectionPage{}, fmt.Errorf("favorites %s page %d: %w", fid, page, err)
	}
	p := CollectionPage{
		Name:      data.Info.Title,
		OwnerName: data.Info.Upper.Name,
		Total:     data.Info.MediaCount,
	}
	for _, m := range data.Medias {
		p.ItemIDs = append(p.ItemIDs, m.BVID)
		p.ItemNames = append(p.ItemNames, m.Title)
	}
	return p, nil
}

func (c *Client) creatorPage(ctx context.Context, mid string, page, pageSize int, f PageFilters) (CollectionPage, error) {
	var data struct {
		List struct {
			VList []struct {
				BVID   string `json:"bvid"`
				Title  string `json:"title"`
				Author string `json:"author"`
			} `json:"vlist"`
		} `json:"list"`
		Page struct {
			Count int `json:"count"`
		} `json:"page"`
	}
	order := f.Order
	if order == "" {
		order = "pubdate"
	}
	u := fmt.Sprintf("%s/x/space/arc/search?mid=%s&pn=%d&ps=%d&order=%s&keyword=%s",
		c.baseURL, mid, page, pageSize, order, url.QueryEscape(f.Keyword))
	if err := c.get(ctx, u, &data); err != nil {
		return CollectionPage{}, fmt.Errorf("creator %s page %d: %w", mid, page, err)
	}
	p := CollectionPage{Total: data.Page.Count}
	for _, v := range data.List.VList {
		if p.OwnerName == "" {
			p.OwnerName = v.Author
		}
		p.ItemIDs = append(p.ItemIDs, v.BVID)
		p.ItemNames = append(p.ItemNames, v.Title)
	}
	p.Name = p.OwnerName
	return p, nil
}

// seasonPage resolves curated collections and ordered series lists, which
// share a response shape behind different endpoints.
func (c *Client) seasonPage(ctx context.Context, h Handle, page, pageSize int, collection bool) (CollectionPage, error) {
	var data struct {
		Meta struct {
			Name  string `json:"name"`
			Total int    `json:"total"`
		} `json:"meta"`
		Archives []struct {
			BVID  string `json:"bvid"`
			Title string `json:"title"`
		} `json:"archives"`
		Page struct {
			Total int `json:"total"`
		} `json:"page"`
	}
	var u string
	if collection {
		u = fmt.Sprintf("%s/x/polymer/space/seasons_archives_list?mid=%s&season_id=%s&page_num=%d&page_size=%d",
			c.baseURL, h.MID, h.ID, page, pageSize)
	} else {
		u = fmt.Sprintf("%s/x/series/archives?mid=%s&series_id=%s&pn=%d&ps=%d",
			c.baseURL, h.MID, h.ID, page, pageSize)
	}
	if err := c.get(ctx, u, &data); err != nil {
		return CollectionPage{}, fmt.Errorf("collection %s page %d: %w", h.ID, page, err)
	}
	total := data.Meta.Total
	if total == 0 {
		total = data.Page.Total
	}
	p := CollectionPage{Name: data.Meta.Name, Total: total}
	for _, a := range data.Archives {
		p.ItemIDs = append(p.ItemIDs, a.BVID)
		p.ItemNames = append(p.ItemNames, a.Title)
	}
	return p, nil
}

func (c *Client) categoryPage(ctx context.Context, tid string, page, pageSize int, f PageFilters) (CollectionPage, error) {
	days := f.Days
	if days <= 0 {
		days = 7
	}
	order := f.Order
	if order == "" {
		order = "click"
	}
	to := time.Now()
	from := to.AddDate(0, 0, -days)
	u := fmt.Sprintf("%s/cate/search?main_ver=v3&search_type=video&view_type=hot_rank&cate_id=%s&page=%d&pagesize=%d&order=%s&keyword=%s&time_from=%s&time_to=%s",
		c.searchURL, tid, page, pageSize, order, url.QueryEscape(f.Keyword),
		from.Format("20060102"), to.Format("20060102"))

	// The search host answers without the envelope wrapper.
	var data struct {
		NumResults int `json:"numResults"`
		Result     []struct {
			BVID  string `json:"bvid"`
			Title string `json:"title"`
		} `json:"result"`
	}
	if err := c.getRaw(ctx, u, &data); err != nil {
		return CollectionPage{}, fmt.Errorf("category %s page %d: %w", tid, page, err)
	}
	p := CollectionPage{Name: tid, Total: data.NumResults}
	for _, r := range data.Result {
		p.ItemIDs = append(p.ItemIDs, r.BVID)
		p.ItemNames = append(p.ItemNames, r.Title)
	}
	return p, nil
}

// ResolveSubtitles implements Resolver.
func (c *Client) ResolveSubtitles(ctx context.Context, bvid string, cid int64) ([]SubtitleTrack, error) {
	var data struct {
		Subtitle struct {
			Subtitles []struct {
				LanDoc      string `json:"lan_doc"`
				SubtitleURL string `json:"subtitle_url"`
			} `json:"subtitles"`
		} `json:"subtitle"`
	}
	u := fmt.Sprintf("%s/x/player/v2?bvid=%s&cid=%d", c.baseURL, bvid, cid)
	if err := c.get(ctx, u, &data); err != nil {
		return nil, fmt.Errorf("subtitles for %s: %w", bvid, err)
	}
	var tracks []SubtitleTrack
	for _, s := range data.Subtitle.Subtitles {
		u := s.SubtitleURL
		if len(u) >= 2 && u[:2] == "//" {
			u = "https:" + u
		}
		tracks = append(tracks, SubtitleTrack{URL: u, Label: s.LanDoc})
	}
	return tracks, nil
}

// ResolveCaptionURLs implements Resolver. The caption stream is chunked
// into six-minute protobuf segments.
func (c *Client) ResolveCaptionURLs(ctx context.Context, aid, cid int64) ([]string, error) {
	var data struct {
		DmSge struct {
			Total int `json:"total"`
		} `json:"dm_sge"`
	}
	u := fmt.Sprintf("%s/x/v2/dm/web/view?type=1&oid=%d&pid=%d", c.baseURL, cid, aid)
	if err := c.get(ctx, u, &data); err != nil {
		return nil, fmt.Errorf("caption segments for %d: %w", cid, err)
	}
	total := data.DmSge.Total
	if total <= 0 {
		total = 1
	}
	urls := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		urls = append(urls, fmt.Sprintf("%s/x/v2/dm/web/seg.so?type=1&oid=%d&pid=%d&segment_index=%d",
			c.baseURL, cid, aid, i))
	}
	return urls, nil
}

// Categories implements Resolver.
func (c *Client) Categories(ctx context.Context) (map[string]Category, error) {
	var data struct {
		Channels []struct {
			Name string `json:"name"`
			TID  int    `json:"tid"`
			Sub  []struct {
				Name string `json:"name"`
				TID  int    `json:"tid"`
			} `json:"sub"`
		} `json:"channels"`
	}
	u := fmt.Sprintf("%s/x/web-interface/channel/meta", c.baseURL)
	if err := c.get(ctx, u, &data); err != nil {
		return nil, fmt.Errorf("category catalog: %w", err)
	}
	cats := make(map[string]Category, len(data.Channels))
	for _, ch := range data.Channels {
		cat := Category{Name: ch.Name, TID: ch.TID}
		for _, s := range ch.Sub {
			cat.Sub = append(cat.Sub, Category{Name: s.Name, TID: s.TID})
		}
		cats[ch.Name] = cat
	}
	return cats, nil
}

// getRaw fetches a JSON body that is not wrapped in the code/data envelope.
func (c *Client) getRaw(ctx context.Context, rawURL string, data any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Referer", "https://www.bilibili.com")
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %s", ErrAPI, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(data); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
