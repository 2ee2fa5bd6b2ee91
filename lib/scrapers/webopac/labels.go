package webopac

import "strings"

// The detail page presents an unordered set of label/value pairs in
// German. Extraction is driven entirely by these tables so the site's
// vocabulary stays inspectable in one place instead of being scattered
// through the normalizer.

type detailField int

const (
	fieldTitle detailField = iota
	fieldAuthor
	fieldISBN
	fieldPublisher
	fieldYear
	fieldMedium
	fieldLanguage
	fieldSeries
	fieldOriginalTitle
	fieldPageCount
	fieldKeywords
	fieldDescription
)

var DetailLabels = map[string]detailField{
	"titel":         fieldTitle,
	"verfasser":     fieldAuthor,
	"autor":         fieldAuthor,
	"isbn":          fieldISBN,
	"verlag":        fieldPublisher,
	"jahr":          fieldYear,
	"mediengruppe":  fieldMedium,
	"medienart":     fieldMedium,
	"sprache":       fieldLanguage,
	"reihe":         fieldSeries,
	"originaltitel": fieldOriginalTitle,
	"umfang":        fieldPageCount,
	"schlagwörter":  fieldKeywords,
	"schlagworte":   fieldKeywords,
	"annotation":    fieldDescription,
	"inhalt":        fieldDescription,
}

type copyColumn int

const (
	columnBranch copyColumn = iota
	columnSection
	columnCallNumber
	columnStatus
	columnBarcode
	columnReservations
	columnDueDate
)

// The copies table maps column headers to fields by header text, so a
// reordered table still lands every cell in the right place.
var CopyColumns = map[string]copyColumn{
	"zweigstelle":     columnBranch,
	"bibliothek":      columnBranch,
	"standort":        columnSection,
	"standorte":       columnSection,
	"abteilung":       columnSection,
	"signatur":        columnCallNumber,
	"status":          columnStatus,
	"verfügbarkeit":   columnStatus,
	"barcode":         columnBarcode,
	"mediennummer":    columnBarcode,
	"vorbestellungen": columnReservations,
	"reservierungen":  columnReservations,
	"rückgabe":        columnDueDate,
	"frist":           columnDueDate,
	"entliehen bis":   columnDueDate,
}

var copyStatuses = map[string]CopyStatus{
	"verfügbar":       StatusAvailable,
	"ausleihbar":      StatusAvailable,
	"entliehen":       StatusCheckedOut,
	"ausgeliehen":     StatusCheckedOut,
	"in bearbeitung":  StatusProcessing,
	"in einarbeitung": StatusProcessing,
	"vermisst":        StatusLost,
	"verloren":        StatusLost,
	"beschädigt":      StatusDamaged,
}

// statusFromText maps the source's status text onto the enum. Anything
// unrecognized becomes StatusUnknown with the raw text preserved by
// the caller; it never fails.
func statusFromText(text string) CopyStatus {
	normalized := strings.ToLower(strings.TrimSpace(text))
	for term, status := range copyStatuses {
		if strings.Contains(normalized, term) {
			return status
		}
	}
	return StatusUnknown
}
