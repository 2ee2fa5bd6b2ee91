package webopac

import (
	"fmt"
	"strings"
)

const maxQueryLength = 200

// ValidateQuery rejects queries the remote site can never answer
// before any request budget is spent on them.
func ValidateQuery(q Query) error {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return fmt.Errorf("query text is empty")
	}
	if len(text) > maxQueryLength {
		return fmt.Errorf("query text exceeds %d characters", maxQueryLength)
	}

	switch q.Kind {
	case KindKeyword, KindTitle, KindAuthor:
		return nil
	case KindISBN:
		if !ValidISBN(text) {
			return fmt.Errorf("%q is not a valid ISBN-10 or ISBN-13", text)
		}
		return nil
	default:
		return fmt.Errorf("unknown query kind %q", q.Kind)
	}
}

// ValidISBN checks the ISBN-10 or ISBN-13 checksum; separators are
// ignored.
func ValidISBN(isbn string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' {
			return -1
		}
		return r
	}, isbn)

	switch len(cleaned) {
	case 10:
		return validISBN10(cleaned)
	case 13:
		return validISBN13(cleaned)
	}
	return false
}

func validISBN10(isbn string) bool {
	sum := 0
	for i, c := range isbn {
		var digit int
		switch {
		case c >= '0' && c <= '9':
			digit = int(c - '0')
		case (c == 'X' || c == 'x') && i == 9:
			digit = 10
		default:
			return false
		}
		sum += digit * (10 - i)
	}
	return sum%11 == 0
}

func validISBN13(isbn string) bool {
	sum := 0
	for i, c := range isbn {
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	return sum%10 == 0
}
