// Package pipeline orchestrates the per-case enrichment run: filter and
// rank the document catalog, walk documents through extraction, derive
// the financials, and persist the outcome.
package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/equityline/caseenrich/internal/model"
)

// fileKeywords is the document-name taxonomy: canonical filing concepts
// plus the clerk abbreviations that show up in event names. Matched
// case-insensitively as substrings. The same taxonomy applies to every
// case category; category-specific lists are an extension point.
var fileKeywords = []string{
	"affidavit of service", "service affidavit", "note", "promissory note", "aos",
	"foreclosure notice of hearing", "notice of hearing", "notice of foreclosure sale", "nos",
	"notice of foreclosure", "noh", "deed of trust", "trust deed",
	"guardian ad litem", "gal",
	"lien", "statement of account", "soa", "notice of sale", "service aff", "loan", "loan mod", "loan modification",
	"return of service", "service returns", "complaint", "lis pendens", "lp", "legacy complete case scan",
}

// matchesTaxonomy reports whether a document name names a filing type the
// pipeline cares about.
func matchesTaxonomy(name string) bool {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return false
	}
	for _, keyword := range fileKeywords {
		if strings.Contains(normalized, keyword) {
			return true
		}
	}
	return false
}

// FilterAndRank keeps the taxonomy-matching documents and orders them most
// recent first. An unparsable event date is fatal for the whole case.
func FilterAndRank(docs []model.DocumentDescriptor) ([]model.DocumentDescriptor, error) {
	type dated struct {
		doc  model.DocumentDescriptor
		when time.Time
	}
	matched := make([]dated, 0, len(docs))
	for _, d := range docs {
		if !matchesTaxonomy(d.Name) {
			continue
		}
		when, err := d.EventTime()
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: document %q has unparsable date %q", d.Name, d.EventDate)
		}
		matched = append(matched, dated{doc: d, when: when})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].when.After(matched[j].when)
	})

	out := make([]model.DocumentDescriptor, len(matched))
	for i, m := range matched {
		out[i] = m.doc
	}
	return out, nil
}
