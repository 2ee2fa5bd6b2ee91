package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

// collapses runs of whitespace, strips non-printable runes and
// trims the result. scraped label/value text always goes through
// this before comparison.
func CleanText(s string) string {
	var printable strings.Builder
	for _, c := range s {
		if unicode.IsPrint(c) {
			printable.WriteRune(c)
		} else {
			printable.WriteRune(' ')
		}
	}
	s = printable.String()
	s = innerWhitespace.ReplaceAllString(s, " ")
	return strings.Trim(s, " \t\n")
}

var digits = regexp.MustCompile(`\d+`)

// pulls the first integer out of surrounding text, e.g. "148 S." -> 148.
// ok is false when the text carries no digits.
func LeadingInt(s string) (int, bool) {
	match := digits.FindString(s)
	if match == "" {
		return 0, false
	}
	n := 0
	for _, c := range match {
		n = n*10 + int(c-'0')
	}
	return n, true
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// finds a plausible publication year in surrounding text.
func FindYear(s string) (int, bool) {
	match := yearPattern.FindString(s)
	if match == "" {
		return 0, false
	}
	return int(match[0]-'0')*1000 + int(match[1]-'0')*100 + int(match[2]-'0')*10 + int(match[3]-'0'), true
}
