// Package preprocess turns raw event records into embeddable event
// descriptions by parsing knowledge-graph mention fields.
package preprocess

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/RRaffay/nuntium-em/internal/gdelt"
)

// SchemaError reports a mention column that is empty across every record of a
// non-empty batch, which indicates an upstream extract problem rather than a
// quiet news window.
type SchemaError struct {
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch: column %s is empty across the whole batch", e.Column)
}

// Caps bound how many parsed entities of each kind flow into a description.
type Caps struct {
	Persons       int
	Organizations int
	Locations     int
	Themes        int
}

func DefaultCaps() Caps {
	return Caps{Persons: 10, Organizations: 10, Locations: 10, Themes: 4}
}

// Document is one preprocessed record ready for embedding.
type Document struct {
	Record        gdelt.RawRecord
	Persons       []string
	Organizations []string
	Locations     []string
	Themes        []string
	Description   string
}

// ParseMentions extracts entity names from a semicolon-delimited mention
// field. For locations the name is the third #-delimited element of each
// mention; for every other kind it is the token before the first comma with
// spaces replaced by underscores. Duplicates keep their first occurrence.
func ParseMentions(raw, kind string) []string {
	if raw == "" {
		return nil
	}
	mentions := strings.Split(raw, ";")
	seen := make(map[string]struct{}, len(mentions))
	var names []string
	for _, mention := range mentions {
		var name string
		if kind == "location" {
			parts := strings.Split(mention, "#")
			if len(parts) <= 2 {
				continue
			}
			name = parts[2]
		} else {
			name = strings.ReplaceAll(strings.SplitN(mention, ",", 2)[0], " ", "_")
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

func capped(names []string, n int) []string {
	if n > 0 && len(names) > n {
		return names[:n]
	}
	return names
}

// Describe renders the stable description fed to the embedder. The field
// order never changes so that embeddings of identical records are identical.
func Describe(rec gdelt.RawRecord, persons, organizations, locations, themes []string) string {
	var b strings.Builder
	b.WriteString("Event Codes: EventCode ")
	b.WriteString(rec.EventCode)
	b.WriteString(", EventBaseCode ")
	b.WriteString(rec.EventBaseCode)
	b.WriteString(", EventRootCode ")
	b.WriteString(rec.EventRootCode)
	b.WriteString(". GoldsteinScale: ")
	b.WriteString(formatScore(rec.GoldsteinScale))
	b.WriteString(". AvgTone: ")
	b.WriteString(formatScore(rec.AvgTone))
	b.WriteString(". QuadClass: ")
	b.WriteString(strconv.Itoa(rec.QuadClass))
	b.WriteString(". Persons: ")
	b.WriteString(strings.Join(persons, ", "))
	b.WriteString(". Organizations: ")
	b.WriteString(strings.Join(organizations, ", "))
	b.WriteString(". Locations: ")
	b.WriteString(strings.Join(locations, ", "))
	b.WriteString(". Themes: ")
	b.WriteString(strings.Join(themes, ", "))
	return b.String()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Run preprocesses a batch. An empty batch yields an empty slice; a non-empty
// batch in which a mention column is empty everywhere yields a SchemaError.
func Run(records []gdelt.RawRecord, caps Caps) ([]Document, error) {
	if len(records) == 0 {
		return []Document{}, nil
	}

	columns := []struct {
		name  string
		value func(gdelt.RawRecord) string
	}{
		{"V2Persons", func(r gdelt.RawRecord) string { return r.V2Persons }},
		{"V2Organizations", func(r gdelt.RawRecord) string { return r.V2Organizations }},
		{"V2Locations", func(r gdelt.RawRecord) string { return r.V2Locations }},
		{"V2Themes", func(r gdelt.RawRecord) string { return r.V2Themes }},
	}
	for _, col := range columns {
		allEmpty := true
		for _, rec := range records {
			if strings.TrimSpace(col.value(rec)) != "" {
				allEmpty = false
				break
			}
		}
		if allEmpty {
			return nil, &SchemaError{Column: col.name}
		}
	}

	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		persons := capped(ParseMentions(rec.V2Persons, "person"), caps.Persons)
		organizations := capped(ParseMentions(rec.V2Organizations, "organization"), caps.Organizations)
		locations := capped(ParseMentions(rec.V2Locations, "location"), caps.Locations)
		themes := capped(ParseMentions(rec.V2Themes, "theme"), caps.Themes)

		docs = append(docs, Document{
			Record:        rec,
			Persons:       persons,
			Organizations: organizations,
			Locations:     locations,
			Themes:        themes,
			Description:   Describe(rec, persons, organizations, locations, themes),
		})
	}
	return docs, nil
}
