package webopac

import (
	"regexp"
	"strings"
	"time"
)

type QueryKind string

const (
	KindKeyword QueryKind = "keyword"
	KindTitle   QueryKind = "title"
	KindAuthor  QueryKind = "author"
	KindISBN    QueryKind = "isbn"
)

// Query is a single catalog lookup. Identity (and therefore cache
// identity) is the kind plus the normalized text; the issue time is
// informational only.
type Query struct {
	Text     string
	Kind     QueryKind
	IssuedAt time.Time
}

func NewQuery(text string, kind QueryKind) Query {
	if kind == "" {
		kind = KindKeyword
	}
	return Query{
		Text:     text,
		Kind:     kind,
		IssuedAt: time.Now(),
	}
}

var queryWhitespace = regexp.MustCompile(`\s+`)

func (q Query) normalizedText() string {
	return queryWhitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(q.Text)), " ")
}

func (q Query) Identity() string {
	return string(q.Kind) + ":" + q.normalizedText()
}

type StrategyKind string

const (
	StrategyHTTP    StrategyKind = "http"
	StrategyBrowser StrategyKind = "browser"
)

// RawPage is the markup a strategy produced, plus provenance. It is
// consumed by the normalizer and discarded; it is never cached.
type RawPage struct {
	HTML     string
	Strategy StrategyKind
	Status   int
	Latency  time.Duration
}

type CopyStatus string

const (
	StatusAvailable  CopyStatus = "Available"
	StatusCheckedOut CopyStatus = "CheckedOut"
	StatusProcessing CopyStatus = "Processing"
	StatusLost       CopyStatus = "Lost"
	StatusDamaged    CopyStatus = "Damaged"
	StatusUnknown    CopyStatus = "Unknown"
)

// Copy is one physical item under a catalog record. Barcode is unique
// within a Book. RawStatus keeps the source's status text verbatim so
// an Unknown mapping is never lossy.
type Copy struct {
	Branch       string
	Section      string
	CallNumber   string
	Status       CopyStatus
	RawStatus    string
	Barcode      string
	Reservations int
	DueDate      *time.Time
}

type Book struct {
	Title         string
	Authors       []string
	ISBN          string
	Publisher     string
	Year          int
	MediumType    string
	Language      string
	Series        string
	OriginalTitle string
	PageCount     int
	Keywords      []string
	Description   string
	CoverURL      string
	CatalogID     string
	URL           string
	Copies        []Copy
}

// ResultSet preserves the source's result ordering. Fallback records
// that the browser strategy produced the data after the HTTP attempt
// came back without rendering markers.
type ResultSet struct {
	Query         Query
	TotalHits     int
	Books         []Book
	FetchDuration time.Duration
	FromCache     bool
	Fallback      bool
}
