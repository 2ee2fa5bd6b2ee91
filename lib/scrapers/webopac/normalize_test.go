package webopac

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var testBase *url.URL

func init() {
	var err error
	testBase, err = url.Parse("https://stadtbibliothek.graz.at")
	if err != nil {
		panic(err)
	}
}

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestHasResultMarkers(t *testing.T) {
	require.True(t, hasResultMarkers(loadFixture(t, "search_harry_potter.html")))
	require.False(t, hasResultMarkers(`<html><body><div id="app"></div><script src="/bundle.js"></script></body></html>`))
}

func TestParseSearchResults(t *testing.T) {
	page := RawPage{HTML: loadFixture(t, "search_harry_potter.html"), Strategy: StrategyHTTP, Status: 200}
	query := NewQuery("Harry Potter", KindKeyword)

	result, err := ParseSearchResults(page, query, testBase)
	require.NoError(t, err)

	require.Equal(t, 259, result.TotalHits)
	require.Len(t, result.Books, 3)

	first := result.Books[0]
	require.Equal(t, "Harry Potter und der Stein der Weisen", first.Title)
	require.Equal(t, []string{"Rowling, J. K."}, first.Authors)
	require.Equal(t, "105973", first.CatalogID)
	require.Equal(t, "Buch", first.MediumType)
	require.Equal(t, 1998, first.Year)
	require.Equal(t, "https://stadtbibliothek.graz.at/Mediensuche/Einfache-Suche?id=105973", first.URL)
	require.Equal(t, "https://stadtbibliothek.graz.at/covers/105973.jpg", first.CoverURL)

	// result ordering is source-defined and preserved
	require.Equal(t, "Harry Potter und die Kammer des Schreckens", result.Books[1].Title)
	require.Equal(t, "Hörbuch", result.Books[2].MediumType)
}

func TestParseSearchResultsNoContainer(t *testing.T) {
	page := RawPage{HTML: `<html><body><p>bitte warten...</p></body></html>`}
	_, err := ParseSearchResults(page, NewQuery("x", KindKeyword), testBase)

	var incomplete *ParseIncompleteError
	require.ErrorAs(t, err, &incomplete)
}

func TestParseDetail(t *testing.T) {
	page := RawPage{HTML: loadFixture(t, "detail_gregs_tagebuch.html"), Strategy: StrategyBrowser}

	book, err := ParseDetail(page, testBase)
	require.NoError(t, err)

	require.Equal(t, "Gregs Tagebuch - Von Idioten umzingelt!", book.Title)
	require.Equal(t, []string{"Kinney, Jeff"}, book.Authors)
	require.Equal(t, "978-3-8332-3580-1", book.ISBN)
	require.Equal(t, "Baumhaus Verlag", book.Publisher)
	require.Equal(t, 2008, book.Year)
	require.Equal(t, "Diary of a wimpy kid", book.OriginalTitle)
	require.Equal(t, "Deutsch", book.Language)
	require.Equal(t, 148, book.PageCount)
	require.Equal(t, "Buch", book.MediumType)
	require.Equal(t, "204511", book.CatalogID)
	// keyword list is unique; the fixture repeats "Schule"
	require.ElementsMatch(t, []string{"Comic-Roman", "Schule", "Freundschaft"}, book.Keywords)

	require.Len(t, book.Copies, 3)

	available := book.Copies[0]
	require.Equal(t, "Zanklhof", available.Branch)
	require.Equal(t, "Kinderbibliothek", available.Section)
	require.Equal(t, "JE KIN", available.CallNumber)
	require.Equal(t, "204511001", available.Barcode)
	require.Equal(t, StatusAvailable, available.Status)
	require.Nil(t, available.DueDate)

	checkedOut := book.Copies[1]
	require.Equal(t, StatusCheckedOut, checkedOut.Status)
	require.Equal(t, 2, checkedOut.Reservations)
	require.NotNil(t, checkedOut.DueDate)
	require.Equal(t, time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC), *checkedOut.DueDate)

	// unrecognized status text maps to Unknown with the raw text kept
	unknown := book.Copies[2]
	require.Equal(t, StatusUnknown, unknown.Status)
	require.Equal(t, "wird umgebunden", unknown.RawStatus)
}

func TestParseDetailMissingLabels(t *testing.T) {
	page := RawPage{HTML: `
		<div class="media-details">
			<h1 class="media-title">Ein Buch ohne Originaltitel</h1>
			<dl class="media-data">
				<dt>Verfasser</dt><dd>Musterfrau, Maxi</dd>
				<dt>Jahr</dt><dd>2010</dd>
			</dl>
		</div>`}

	book, err := ParseDetail(page, testBase)
	require.NoError(t, err)
	require.Equal(t, "Ein Buch ohne Originaltitel", book.Title)
	require.Equal(t, 2010, book.Year)
	require.Empty(t, book.OriginalTitle)
	require.Empty(t, book.Language)
	require.Zero(t, book.PageCount)
}

func TestParseDetailUnparsableNumbers(t *testing.T) {
	page := RawPage{HTML: `
		<div class="media-details">
			<h1 class="media-title">Seltsames Buch</h1>
			<dl class="media-data">
				<dt>Umfang</dt><dd>ohne Angabe</dd>
				<dt>Jahr</dt><dd>o. J.</dd>
			</dl>
		</div>`}

	book, err := ParseDetail(page, testBase)
	require.NoError(t, err)
	require.Zero(t, book.PageCount)
	require.Zero(t, book.Year)
}

func TestParseDetailNothingExtractable(t *testing.T) {
	page := RawPage{HTML: `<html><body><div class="dnn_content"></div></body></html>`}
	_, err := ParseDetail(page, testBase)

	var incomplete *ParseIncompleteError
	require.ErrorAs(t, err, &incomplete)
}

const copiesCanonical = `
<div class="media-details">
	<h1 class="media-title">T</h1>
	<table class="copies">
		<thead><tr>
			<th>Zweigstelle</th><th>Signatur</th><th>Barcode</th><th>Status</th>
		</tr></thead>
		<tbody>
			<tr><td>Zanklhof</td><td>DR ROW</td><td>10001</td><td>verfügbar</td></tr>
			<tr><td>Graz Süd</td><td>DR ROW</td><td>10002</td><td>entliehen</td></tr>
		</tbody>
	</table>
</div>`

const copiesShuffled = `
<div class="media-details">
	<h1 class="media-title">T</h1>
	<table class="copies">
		<thead><tr>
			<th>Status</th><th>Barcode</th><th>Zweigstelle</th><th>Signatur</th>
		</tr></thead>
		<tbody>
			<tr><td>verfügbar</td><td>10001</td><td>Zanklhof</td><td>DR ROW</td></tr>
			<tr><td>entliehen</td><td>10002</td><td>Graz Süd</td><td>DR ROW</td></tr>
		</tbody>
	</table>
</div>`

// shuffling the column order must not change the extracted copies
func TestParseCopiesColumnOrder(t *testing.T) {
	canonical, err := ParseDetail(RawPage{HTML: copiesCanonical}, testBase)
	require.NoError(t, err)
	shuffled, err := ParseDetail(RawPage{HTML: copiesShuffled}, testBase)
	require.NoError(t, err)

	require.Len(t, canonical.Copies, 2)
	if diff := cmp.Diff(canonical.Copies, shuffled.Copies); diff != "" {
		t.Fatalf("copies differ (-canonical +shuffled):\n%s", diff)
	}
}

func TestStatusFromText(t *testing.T) {
	testCases := []struct {
		text   string
		expect CopyStatus
	}{
		{text: "verfügbar", expect: StatusAvailable},
		{text: "heute entliehen", expect: StatusCheckedOut},
		{text: "in Bearbeitung", expect: StatusProcessing},
		{text: "vermisst", expect: StatusLost},
		{text: "beschädigt gemeldet", expect: StatusDamaged},
		{text: "wird umgebunden", expect: StatusUnknown},
		{text: "", expect: StatusUnknown},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, statusFromText(test.text), "text %q", test.text)
	}
}
