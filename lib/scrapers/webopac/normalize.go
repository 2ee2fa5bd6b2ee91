package webopac

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"grazopac-backend/lib/htmlutil"
)

// resultContainerSelector is the rendering marker: when the search
// response carries this container the page was server-rendered and the
// HTTP strategy's markup is usable as-is. Its absence means the site
// decided to render client-side for this query shape.
const resultContainerSelector = "div.search-result-list"

func hasResultMarkers(markup string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return false
	}
	return doc.Find(resultContainerSelector).Length() > 0
}

var catalogIdPattern = regexp.MustCompile(`[?&](?:id|mednr)=(\d+)`)

func catalogIdFromHref(href string) string {
	groups := catalogIdPattern.FindStringSubmatch(href)
	if len(groups) < 2 {
		return ""
	}
	return groups[1]
}

func absolutize(base *url.URL, href string) string {
	if base == nil || href == "" {
		return href
	}
	link, err := base.Parse(href)
	if err != nil {
		return href
	}
	return link.String()
}

// ParseSearchResults maps a search results page into a ResultSet. The
// source's result ordering is preserved. The caller is responsible for
// checking rendering markers first; a page without the result
// container parses as incomplete.
func ParseSearchResults(page RawPage, query Query, base *url.URL) (ResultSet, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return ResultSet{}, err
	}

	container := doc.Find(resultContainerSelector)
	if container.Length() == 0 {
		return ResultSet{}, &ParseIncompleteError{Context: "search"}
	}

	result := ResultSet{Query: query}

	countText := htmlutil.CleanText(container.Find("span.result-count").First().Text())
	if hits, ok := htmlutil.LeadingInt(countText); ok {
		result.TotalHits = hits
	}

	container.Find("div.result-item").Each(func(_ int, item *goquery.Selection) {
		titleLink := item.Find("a.title").First()
		title := htmlutil.CleanText(titleLink.Text())
		if title == "" {
			return
		}

		book := Book{Title: title}

		href := titleLink.AttrOr("href", "")
		book.URL = absolutize(base, href)
		book.CatalogID = catalogIdFromHref(href)

		if author := htmlutil.CleanText(item.Find("span.author").First().Text()); author != "" {
			book.Authors = splitListField(author)
		}
		book.MediumType = htmlutil.CleanText(item.Find("span.medium-type").First().Text())
		if year, ok := htmlutil.FindYear(item.Text()); ok {
			book.Year = year
		}
		if cover := item.Find("img.cover").First().AttrOr("src", ""); cover != "" {
			book.CoverURL = absolutize(base, cover)
		}

		result.Books = append(result.Books, book)
	})

	if result.TotalHits == 0 {
		result.TotalHits = len(result.Books)
	}
	return result, nil
}

// ParseDetail maps a detail page, with its "more information" section
// expanded, into a Book. Extraction is label-driven: a label absent
// from the page leaves the field unset, an unparsable numeric field is
// skipped, and only a page with nothing extractable at all fails.
func ParseDetail(page RawPage, base *url.URL) (Book, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return Book{}, err
	}

	details := doc.Find("div.media-details")
	book := Book{
		Title:     htmlutil.CleanText(details.Find("h1.media-title").First().Text()),
		CatalogID: details.AttrOr("data-mednr", ""),
	}

	matched := 0
	details.Find("dl.media-data dt").Each(func(_ int, label *goquery.Selection) {
		value := htmlutil.CleanText(label.NextFiltered("dd").Text())
		if value == "" {
			return
		}
		field, known := DetailLabels[strings.ToLower(htmlutil.CleanText(label.Text()))]
		if !known {
			return
		}
		matched++

		switch field {
		case fieldTitle:
			if book.Title == "" {
				book.Title = value
			}
		case fieldAuthor:
			book.Authors = splitListField(value)
		case fieldISBN:
			book.ISBN = value
		case fieldPublisher:
			book.Publisher = value
		case fieldYear:
			if year, ok := htmlutil.FindYear(value); ok {
				book.Year = year
			}
		case fieldMedium:
			book.MediumType = value
		case fieldLanguage:
			book.Language = value
		case fieldSeries:
			book.Series = value
		case fieldOriginalTitle:
			book.OriginalTitle = value
		case fieldPageCount:
			if pages, ok := htmlutil.LeadingInt(value); ok {
				book.PageCount = pages
			}
		case fieldKeywords:
			book.Keywords = uniqueKeywords(splitListField(value))
		case fieldDescription:
			book.Description = value
		}
	})

	if cover := details.Find("img.cover").First().AttrOr("src", ""); cover != "" {
		book.CoverURL = absolutize(base, cover)
	}

	book.Copies = parseCopies(details)

	if book.Title == "" && matched == 0 && len(book.Copies) == 0 {
		return Book{}, &ParseIncompleteError{Context: "detail"}
	}
	return book, nil
}

// parseCopies extracts the per-item availability table row-wise,
// mapping cells to fields through the header text so column
// reordering is harmless.
func parseCopies(details *goquery.Selection) []Copy {
	table := details.Find("table.copies").First()
	if table.Length() == 0 {
		return nil
	}

	columns := map[int]copyColumn{}
	table.Find("thead th").Each(func(i int, header *goquery.Selection) {
		name := strings.ToLower(htmlutil.CleanText(header.Text()))
		if column, known := CopyColumns[name]; known {
			columns[i] = column
		}
	})
	if len(columns) == 0 {
		return nil
	}

	var copies []Copy
	table.Find("tbody tr").Each(func(_ int, row *goquery.Selection) {
		var c Copy
		c.Status = StatusUnknown
		filled := false

		row.Find("td").Each(func(i int, cell *goquery.Selection) {
			column, known := columns[i]
			if !known {
				return
			}
			value := htmlutil.CleanText(cell.Text())
			if value == "" {
				return
			}
			filled = true

			switch column {
			case columnBranch:
				c.Branch = value
			case columnSection:
				c.Section = value
			case columnCallNumber:
				c.CallNumber = value
			case columnStatus:
				c.RawStatus = value
				c.Status = statusFromText(value)
			case columnBarcode:
				c.Barcode = value
			case columnReservations:
				if n, ok := htmlutil.LeadingInt(value); ok {
					c.Reservations = n
				}
			case columnDueDate:
				if due, err := time.Parse("02.01.2006", value); err == nil {
					c.DueDate = &due
				}
			}
		})

		if filled {
			copies = append(copies, c)
		}
	})
	return copies
}

func splitListField(value string) []string {
	var parts []string
	for _, part := range strings.Split(value, ";") {
		part = strings.TrimSpace(part)
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// keyword lists are unordered and unique
func uniqueKeywords(keywords []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, keyword := range keywords {
		if _, dup := seen[keyword]; dup {
			continue
		}
		seen[keyword] = struct{}{}
		out = append(out, keyword)
	}
	return out
}
