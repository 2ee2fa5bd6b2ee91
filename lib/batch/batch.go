// Package batch loads query manifests for unattended catalog runs.
// Manifests come as CSV or JSON; malformed rows are collected and
// reported, never fatal, so one bad line cannot sink a long run.
package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"grazopac-backend/lib/scrapers/webopac"
)

type Item struct {
	Line  int
	Query webopac.Query
}

type Problem struct {
	Line   int
	Reason string
}

type Manifest struct {
	Items    []Item
	Problems []Problem
}

func parseKind(s string) (webopac.QueryKind, bool) {
	switch webopac.QueryKind(strings.ToLower(strings.TrimSpace(s))) {
	case webopac.KindKeyword:
		return webopac.KindKeyword, true
	case webopac.KindTitle:
		return webopac.KindTitle, true
	case webopac.KindAuthor:
		return webopac.KindAuthor, true
	case webopac.KindISBN:
		return webopac.KindISBN, true
	case "":
		return webopac.KindKeyword, true
	}
	return "", false
}

func (m *Manifest) add(line int, text, kind string) {
	parsedKind, ok := parseKind(kind)
	if !ok {
		m.Problems = append(m.Problems, Problem{
			Line:   line,
			Reason: fmt.Sprintf("unknown query kind %q", kind),
		})
		return
	}

	query := webopac.NewQuery(strings.TrimSpace(text), parsedKind)
	if err := webopac.ValidateQuery(query); err != nil {
		m.Problems = append(m.Problems, Problem{Line: line, Reason: err.Error()})
		return
	}
	m.Items = append(m.Items, Item{Line: line, Query: query})
}

// ParseCSV reads rows of "text,kind". The kind column may be omitted
// (keyword is assumed) and a leading header row is skipped.
func ParseCSV(r io.Reader) (Manifest, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var manifest Manifest
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			manifest.Problems = append(manifest.Problems, Problem{
				Line:   line,
				Reason: err.Error(),
			})
			continue
		}
		if len(record) == 0 {
			continue
		}

		text := record[0]
		kind := ""
		if len(record) > 1 {
			kind = record[1]
		}

		if line == 1 && isHeader(text, kind) {
			continue
		}
		manifest.add(line, text, kind)
	}
	return manifest, nil
}

func isHeader(text, kind string) bool {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "text", "query", "suchbegriff":
	default:
		return false
	}
	kind = strings.TrimSpace(kind)
	if kind == "" || strings.EqualFold(kind, "kind") {
		return true
	}
	_, known := parseKind(kind)
	return !known
}

type jsonEntry struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
}

// ParseJSON reads an array of {"text": ..., "kind": ...} objects.
func ParseJSON(r io.Reader) (Manifest, error) {
	var entries []jsonEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return Manifest{}, fmt.Errorf("decode query manifest: %w", err)
	}

	var manifest Manifest
	for i, entry := range entries {
		manifest.add(i+1, entry.Text, entry.Kind)
	}
	return manifest, nil
}

// Load reads a manifest file, dispatching on the file extension.
func Load(path string) (Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Manifest{}, err
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(file)
	case ".json":
		return ParseJSON(file)
	}
	return Manifest{}, fmt.Errorf("unsupported manifest format %q", filepath.Ext(path))
}
