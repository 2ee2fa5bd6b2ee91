package bookverify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"grazopac-backend/lib/scrapers/webopac"
	"grazopac-backend/lib/telemetry"
)

const testISBN = "9783833235801"

func TestNormalizeTitle(t *testing.T) {
	require.Equal(t,
		"gregs tagebuch von idioten umzingelt",
		normalizeTitle("Gregs Tagebuch - Von Idioten umzingelt!"))
	require.Equal(t,
		normalizeTitle("Harry Potter und der Stein der Weisen"),
		normalizeTitle("  HARRY POTTER und der Stein   der Weisen."))
}

func TestTitleSimilarity(t *testing.T) {
	require.GreaterOrEqual(t,
		titleSimilarity(
			"Gregs Tagebuch - Von Idioten umzingelt!",
			"Gregs Tagebuch: Von Idioten umzingelt",
		), defaultThreshold)
	require.Less(t,
		titleSimilarity(
			"Gregs Tagebuch - Von Idioten umzingelt!",
			"Der Zauberberg",
		), defaultThreshold)
}

func TestOpenLibraryLookup(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:bookverify")
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/books", r.URL.Path)
		require.Equal(t, "ISBN:"+testISBN, r.URL.Query().Get("bibkeys"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"ISBN:` + testISBN + `": {
				"title": "Gregs Tagebuch: Von Idioten umzingelt",
				"publish_date": "2008",
				"authors": [{"name": "Jeff Kinney"}]
			}
		}`))
	}))
	defer server.Close()

	record, err := NewOpenLibrary(server.URL).Lookup(context.Background(), testISBN)
	require.NoError(t, err)
	require.Equal(t, "Gregs Tagebuch: Von Idioten umzingelt", record.Title)
	require.Equal(t, []string{"Jeff Kinney"}, record.Authors)
	require.Equal(t, 2008, record.Year)
}

func TestOpenLibraryNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	_, err := NewOpenLibrary(server.URL).Lookup(context.Background(), testISBN)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGoogleBooksLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/books/v1/volumes", r.URL.Path)
		require.Equal(t, "isbn:"+testISBN, r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"totalItems": 1,
			"items": [{
				"volumeInfo": {
					"title": "Gregs Tagebuch - Von Idioten umzingelt!",
					"authors": ["Jeff Kinney"],
					"publishedDate": "2008-01-15"
				}
			}]
		}`))
	}))
	defer server.Close()

	record, err := NewGoogleBooks(server.URL).Lookup(context.Background(), testISBN)
	require.NoError(t, err)
	require.Equal(t, "Gregs Tagebuch - Von Idioten umzingelt!", record.Title)
	require.Equal(t, 2008, record.Year)
}

func TestGoogleBooksNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"totalItems": 0}`))
	}))
	defer server.Close()

	_, err := NewGoogleBooks(server.URL).Lookup(context.Background(), testISBN)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestWorldCatLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "bn:"+testISBN, r.URL.Query().Get("q"))
		w.Write([]byte(`<html><body><ul>
			<li class="result">
				<div class="name"><a href="/title/1">Gregs Tagebuch, Von Idioten umzingelt</a></div>
				<div class="author">Jeff Kinney; Collin Hauge</div>
				<div class="publication">Baumhaus Verlag, 2008</div>
			</li>
		</ul></body></html>`))
	}))
	defer server.Close()

	record, err := NewWorldCat(server.URL).Lookup(context.Background(), testISBN)
	require.NoError(t, err)
	require.Equal(t, "Gregs Tagebuch, Von Idioten umzingelt", record.Title)
	require.Equal(t, []string{"Jeff Kinney", "Collin Hauge"}, record.Authors)
	require.Equal(t, 2008, record.Year)
}

func TestWorldCatNoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>Keine Treffer</p></body></html>`))
	}))
	defer server.Close()

	_, err := NewWorldCat(server.URL).Lookup(context.Background(), testISBN)
	require.ErrorIs(t, err, ErrNotFound)
}

type stubSource struct {
	name   string
	record Record
	err    error
}

func (s stubSource) Name() string { return s.name }

func (s stubSource) Lookup(ctx context.Context, isbn string) (Record, error) {
	return s.record, s.err
}

func TestVerify(t *testing.T) {
	book := webopac.Book{
		Title: "Gregs Tagebuch - Von Idioten umzingelt!",
		ISBN:  "978-3-8332-3580-1",
	}

	verifier := NewVerifier(
		stubSource{name: "agrees", record: Record{Title: "Gregs Tagebuch: Von Idioten umzingelt"}},
		stubSource{name: "disagrees", record: Record{Title: "Der Zauberberg"}},
		stubSource{name: "broken", err: errors.New("connection refused")},
	)

	report, err := verifier.Verify(context.Background(), book)
	require.NoError(t, err)
	require.True(t, report.Verified)
	require.Len(t, report.Matches, 3)

	require.True(t, report.Matches[0].Verified)
	require.False(t, report.Matches[1].Verified)
	require.Error(t, report.Matches[2].Err)
}

func TestVerifyRequiresISBN(t *testing.T) {
	verifier := NewVerifier()
	_, err := verifier.Verify(context.Background(), webopac.Book{Title: "Unverifizierbar"})
	require.Error(t, err)
}
