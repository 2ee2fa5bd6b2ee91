// Package bookverify cross-checks catalog records against public
// bibliographic sources. A record is verified when at least one
// source returns a title close enough to the catalog title for the
// same ISBN.
package bookverify

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/attribute"

	"grazopac-backend/lib/scrapers/webopac"
)

// ErrNotFound means a source answered but has no record for the ISBN.
var ErrNotFound = errors.New("no record for this isbn")

// Record is the bibliographic data a single source holds for an ISBN.
type Record struct {
	Title   string
	Authors []string
	Year    int
}

type Source interface {
	Name() string
	Lookup(ctx context.Context, isbn string) (Record, error)
}

// Match is one source's verdict on a catalog record.
type Match struct {
	Source     string
	Record     Record
	TitleScore float64
	Verified   bool
	Err        error
}

type Report struct {
	ISBN     string
	Title    string
	Matches  []Match
	Verified bool
}

// titles agreeing at or above this Jaro-Winkler similarity count as
// the same work; subtitle and punctuation drift stays well above it
const defaultThreshold = 0.85

type Verifier struct {
	sources   []Source
	threshold float64
}

func NewVerifier(sources ...Source) *Verifier {
	return &Verifier{
		sources:   sources,
		threshold: defaultThreshold,
	}
}

var titleNoise = regexp.MustCompile(`[^\p{L}\p{N} ]+`)

// normalizeTitle strips punctuation and case so similarity reflects
// the words, not the styling.
func normalizeTitle(title string) string {
	cleaned := titleNoise.ReplaceAllString(strings.ToLower(title), " ")
	return strings.Join(strings.Fields(cleaned), " ")
}

func titleSimilarity(a, b string) float64 {
	return matchr.JaroWinkler(normalizeTitle(a), normalizeTitle(b), true)
}

// Verify checks the book against every source. Individual source
// failures are recorded in the matching entry, not fatal; the report
// is only an error when the book carries no valid ISBN.
func (v *Verifier) Verify(ctx context.Context, book webopac.Book) (Report, error) {
	ctx, span := tracer.Start(ctx, "verifier:Verify")
	defer span.End()
	span.SetAttributes(
		attribute.String("isbn", book.ISBN),
		attribute.String("title", book.Title),
	)

	if !webopac.ValidISBN(book.ISBN) {
		return Report{}, errors.New("record carries no valid isbn to verify against")
	}

	report := Report{
		ISBN:  book.ISBN,
		Title: book.Title,
	}
	for _, source := range v.sources {
		match := Match{Source: source.Name()}

		record, err := source.Lookup(ctx, book.ISBN)
		if err != nil {
			slog.WarnContext(ctx, "bibliographic source lookup failed",
				"source", source.Name(), "isbn", book.ISBN, "err", err)
			match.Err = err
			report.Matches = append(report.Matches, match)
			continue
		}

		match.Record = record
		match.TitleScore = titleSimilarity(book.Title, record.Title)
		match.Verified = match.TitleScore >= v.threshold
		if match.Verified {
			report.Verified = true
		}
		report.Matches = append(report.Matches, match)
	}

	slog.InfoContext(ctx, "verification finished",
		"isbn", book.ISBN,
		"verified", report.Verified,
		"sources", len(report.Matches),
	)
	return report, nil
}
