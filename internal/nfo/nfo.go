// Package nfo writes library metadata documents for downloaded items.
package nfo

import (
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/AndyXFuture/bilix-meta/internal/api"
	"github.com/AndyXFuture/bilix-meta/internal/naming"
)

// Movie is the metadata document media servers index alongside the video.
type Movie struct {
	XMLName      xml.Name `xml:"movie"`
	Plot         string   `xml:"plot"`
	Title        string   `xml:"title"`
	Trailer      string   `xml:"trailer"`
	Premiered    string   `xml:"premiered"`
	ReleaseDate  string   `xml:"releasedate"`
	Aired        string   `xml:"aired"`
	Year         string   `xml:"year"`
	MPAA         string   `xml:"mpaa"`
	CustomRating string   `xml:"customrating"`
	Country      string   `xml:"country"`
	Runtime      string   `xml:"runtime"`
	ID           string   `xml:"id"`
	Genre        string   `xml:"genre"`
	Studio       string   `xml:"studio"`
	Tags         []string `xml:"tag"`
	Actors       []Actor  `xml:"actor"`
}

// Actor is one credited person.
type Actor struct {
	Name      string `xml:"name"`
	MID       string `xml:"mid"`
	Role      string `xml:"role,omitempty"`
	Type      string `xml:"type"`
	SortOrder int    `xml:"sortorder"`
	Thumb     string `xml:"thumb"`
}

// FromItem builds the document for one resolved item. pageURL is the item
// page, thumbRoot the library-relative prefix for actor portrait paths.
func FromItem(d *api.ItemDescriptor, pageURL, thumbRoot string) *Movie {
	day := "2006-01-02"
	m := &Movie{
		Plot:         d.Desc,
		Title:        naming.LegalTitle(" ", d.Title, d.CurrentPart().Name),
		Trailer:      pageURL,
		Premiered:    d.PubDate.Format(day),
		ReleaseDate:  d.Created.Format(day),
		Aired:        d.PubDate.Format(day),
		Year:         d.PubDate.Format("2006"),
		MPAA:         "PG",
		CustomRating: "CN",
		Country:      "中国",
		Runtime:      fmt.Sprintf("%d秒", int(d.Duration.Seconds())),
		ID:           d.BVID,
		Genre:        d.Genre,
		Studio:       "bilibili",
		Tags:         d.Tags,
	}

	people := d.Staff
	if len(people) == 0 {
		people = []api.Person{{Name: d.Owner.Name, MID: d.Owner.MID, Role: "UP主"}}
	}
	for i, p := range people {
		kind := "Producer"
		if len(d.Staff) == 0 {
			kind = "UP主"
		}
		m.Actors = append(m.Actors, Actor{
			Name:      p.Name,
			MID:       strconv.FormatInt(p.MID, 10),
			Role:      p.Role,
			Type:      kind,
			SortOrder: i,
			Thumb:     path.Join(thumbRoot, thumbBucket(p.Name), p.Name, "folder.jpg"),
		})
	}
	return m
}

func thumbBucket(name string) string {
	if r := []rune(name); len(r) > 0 {
		return string(r[0])
	}
	return name
}

// Write marshals the document to dest with an XML declaration.
func (m *Movie) Write(dest string) error {
	body, err := xml.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal nfo: %w", err)
	}
	out := append([]byte(xml.Header), body...)
	out = append(out, '\n')
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}
