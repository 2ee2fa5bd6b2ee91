package bookverify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-resty/resty/v2"

	"grazopac-backend/lib/htmlutil"
	"grazopac-backend/lib/restyutil"
)

const DefaultOpenLibraryURL = "https://openlibrary.org"

type OpenLibrary struct {
	base   string
	client *resty.Client
}

// NewOpenLibrary uses the public endpoint when base is empty.
func NewOpenLibrary(base string) *OpenLibrary {
	if base == "" {
		base = DefaultOpenLibraryURL
	}
	client := resty.New()
	restyutil.InstrumentClient(client, "scrapers/bookverify/openlibrary", nil)
	return &OpenLibrary{base: base, client: client}
}

func (o *OpenLibrary) Name() string { return "openlibrary" }

type openLibraryEdition struct {
	Title       string `json:"title"`
	PublishDate string `json:"publish_date"`
	Authors     []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

func (o *OpenLibrary) Lookup(ctx context.Context, isbn string) (Record, error) {
	bibkey := "ISBN:" + isbn
	res, err := o.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"bibkeys": bibkey,
			"format":  "json",
			"jscmd":   "data",
		}).
		Get(o.base + "/api/books")
	if err != nil {
		return Record{}, err
	}
	if res.StatusCode() != 200 {
		return Record{}, fmt.Errorf("openlibrary answered status %d", res.StatusCode())
	}

	var editions map[string]openLibraryEdition
	if err := json.Unmarshal(res.Body(), &editions); err != nil {
		return Record{}, fmt.Errorf("decode openlibrary response: %w", err)
	}

	edition, ok := editions[bibkey]
	if !ok || edition.Title == "" {
		return Record{}, ErrNotFound
	}

	record := Record{Title: edition.Title}
	for _, author := range edition.Authors {
		record.Authors = append(record.Authors, author.Name)
	}
	if year, ok := htmlutil.FindYear(edition.PublishDate); ok {
		record.Year = year
	}
	return record, nil
}
