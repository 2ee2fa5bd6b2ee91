package webopac

import (
	"context"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"grazopac-backend/lib/restyutil"
)

const searchPath = "/Mediensuche/Einfache-Suche"

const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// the search endpoint takes the query as a single parameter whose
// name selects the search kind
func searchQueryParam(kind QueryKind) string {
	switch kind {
	case KindTitle:
		return "title"
	case KindAuthor:
		return "author"
	case KindISBN:
		return "isbn"
	default:
		return "search"
	}
}

func searchURL(base *url.URL, q Query) (string, error) {
	link, err := base.Parse(searchPath)
	if err != nil {
		return "", err
	}
	values := url.Values{}
	values.Set(searchQueryParam(q.Kind), q.Text)
	link.RawQuery = values.Encode()
	return link.String(), nil
}

func detailURL(base *url.URL, catalogId string) (string, error) {
	link, err := base.Parse(searchPath)
	if err != nil {
		return "", err
	}
	values := url.Values{}
	values.Set("id", catalogId)
	link.RawQuery = values.Encode()
	return link.String(), nil
}

// httpFetcher is the stateless request/parse strategy. It issues a
// single GET against the search endpoint and hands back the raw
// markup; deciding whether that markup is usable is the
// orchestrator's job.
type httpFetcher struct {
	base *url.URL
	http *resty.Client
}

func newHTTPFetcher(base *url.URL, timeout time.Duration) (*httpFetcher, error) {
	client := resty.New()
	client.SetBaseURL(base.String())
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", desktopUserAgent)
	client.SetHeader("accept-language", "de-AT,de;q=0.9")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(base.Hostname()))
	client.SetTimeout(timeout)

	restyutil.InstrumentClient(client, "scrapers/webopac/http", debugOutput)

	return &httpFetcher{base: base, http: client}, nil
}

// interstitial pages served in place of content when the site's
// anti-automation layer triggers; these are transient
var interstitialMarkers = []string{
	"cf-browser-verification",
	"Just a moment...",
}

func (f *httpFetcher) Fetch(ctx context.Context, q Query) (RawPage, error) {
	link, err := searchURL(f.base, q)
	if err != nil {
		return RawPage{}, err
	}

	started := time.Now()
	res, err := f.http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		return RawPage{}, &TransientError{Strategy: StrategyHTTP, Err: err}
	}

	page := RawPage{
		HTML:     string(res.Body()),
		Strategy: StrategyHTTP,
		Status:   res.StatusCode(),
		Latency:  time.Since(started),
	}

	status := res.StatusCode()
	if status >= 500 || status == 429 {
		return RawPage{}, &TransientError{Strategy: StrategyHTTP, Status: status, Err: errStatus(status)}
	}
	for _, marker := range interstitialMarkers {
		if strings.Contains(page.HTML, marker) {
			return RawPage{}, &TransientError{Strategy: StrategyHTTP, Status: status, Err: errInterstitial}
		}
	}
	if status >= 400 {
		return RawPage{}, errStatus(status)
	}
	return page, nil
}
