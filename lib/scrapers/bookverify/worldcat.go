package bookverify

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"grazopac-backend/lib/htmlutil"
	"grazopac-backend/lib/restyutil"
)

const DefaultWorldCatURL = "https://search.worldcat.org"

// WorldCat exposes no anonymous API, so this source scrapes the
// server-rendered search page for the ISBN.
type WorldCat struct {
	base   string
	client *resty.Client
}

func NewWorldCat(base string) *WorldCat {
	if base == "" {
		base = DefaultWorldCatURL
	}
	client := resty.New()
	restyutil.InstrumentClient(client, "scrapers/bookverify/worldcat", nil)
	return &WorldCat{base: base, client: client}
}

func (w *WorldCat) Name() string { return "worldcat" }

func (w *WorldCat) Lookup(ctx context.Context, isbn string) (Record, error) {
	res, err := w.client.R().
		SetContext(ctx).
		SetQueryParam("q", "bn:"+isbn).
		Get(w.base + "/search")
	if err != nil {
		return Record{}, err
	}
	if res.StatusCode() != 200 {
		return Record{}, fmt.Errorf("worldcat answered status %d", res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return Record{}, err
	}

	first := doc.Find("li.result").First()
	if first.Length() == 0 {
		return Record{}, ErrNotFound
	}

	record := Record{
		Title: htmlutil.CleanText(first.Find("div.name a").First().Text()),
	}
	if record.Title == "" {
		return Record{}, ErrNotFound
	}

	authorText := htmlutil.CleanText(first.Find("div.author").First().Text())
	for _, author := range strings.Split(authorText, ";") {
		author = strings.TrimSpace(author)
		if author != "" {
			record.Authors = append(record.Authors, author)
		}
	}
	if year, ok := htmlutil.FindYear(htmlutil.CleanText(first.Find("div.publication").First().Text())); ok {
		record.Year = year
	}
	return record, nil
}
