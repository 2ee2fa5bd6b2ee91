package bookverify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"grazopac-backend/lib/htmlutil"
	"grazopac-backend/lib/restyutil"
)

const DefaultGoogleBooksURL = "https://www.googleapis.com"

type GoogleBooks struct {
	base   string
	client *resty.Client
}

func NewGoogleBooks(base string) *GoogleBooks {
	if base == "" {
		base = DefaultGoogleBooksURL
	}
	client := resty.New()
	restyutil.InstrumentClient(client, "scrapers/bookverify/googlebooks", nil)
	return &GoogleBooks{base: base, client: client}
}

func (g *GoogleBooks) Name() string { return "googlebooks" }

type googleBooksVolumes struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title         string   `json:"title"`
			Authors       []string `json:"authors"`
			PublishedDate string   `json:"publishedDate"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (g *GoogleBooks) Lookup(ctx context.Context, isbn string) (Record, error) {
	res, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("q", "isbn:"+isbn).
		Get(g.base + "/books/v1/volumes")
	if err != nil {
		return Record{}, err
	}
	if res.StatusCode() != 200 {
		return Record{}, fmt.Errorf("google books answered status %d", res.StatusCode())
	}

	var volumes googleBooksVolumes
	if err := json.Unmarshal(res.Body(), &volumes); err != nil {
		return Record{}, fmt.Errorf("decode google books response: %w", err)
	}
	if volumes.TotalItems == 0 || len(volumes.Items) == 0 {
		return Record{}, ErrNotFound
	}

	info := volumes.Items[0].VolumeInfo
	record := Record{
		Title:   info.Title,
		Authors: info.Authors,
	}
	if year, ok := htmlutil.FindYear(info.PublishedDate); ok {
		record.Year = year
	}
	return record, nil
}
