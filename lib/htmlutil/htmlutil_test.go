package htmlutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestGetText(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(
		`<div>Harry <b>Potter</b> und der <i>Stein</i> der Weisen</div>`,
	))
	if err != nil {
		t.Fatal(err)
	}
	require.Contains(t, GetText(doc), "Harry Potter und der Stein der Weisen")
}

func TestCleanText(t *testing.T) {
	testCases := []struct {
		in     string
		expect string
	}{
		{in: "  Rowling,   J. K.\n", expect: "Rowling, J. K."},
		{in: "\tVerfasser: Kinney", expect: "Verfasser: Kinney"},
		{in: "plain", expect: "plain"},
	}
	for _, test := range testCases {
		require.Equal(t, test.expect, CleanText(test.in))
	}
}

func TestLeadingInt(t *testing.T) {
	n, ok := LeadingInt("148 S. : zahlr. Ill.")
	require.True(t, ok)
	require.Equal(t, 148, n)

	_, ok = LeadingInt("ohne Angabe")
	require.False(t, ok)
}

func TestFindYear(t *testing.T) {
	y, ok := FindYear("Baumhaus, 2008")
	require.True(t, ok)
	require.Equal(t, 2008, y)

	_, ok = FindYear("Baumhaus Verlag")
	require.False(t, ok)
}
