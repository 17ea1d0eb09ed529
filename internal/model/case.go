// Package model defines the core domain types shared across the enrichment
// pipeline: case records, document descriptors, the accumulated extraction
// state, and the persisted property/tax records.
package model

import (
	"strings"
	"time"
)

// CaseCategory is the two-letter case-type prefix embedded in a case number.
type CaseCategory string

// Known case categories from the portal's numbering scheme.
const (
	CategorySpecialProceeding CaseCategory = "SP"
	CategoryCivil             CaseCategory = "CV"
	CategoryMiscellaneous     CaseCategory = "M0"
	CategoryUnknown           CaseCategory = ""
)

// CaseRecord is one row of the case intake table. The pipeline updates it at
// most once per run and never deletes it.
type CaseRecord struct {
	CaseNumber        string
	Category          CaseCategory
	County            string
	Status            string
	Active            bool
	RedFlag           bool
	RedFlagReason     string
	Classification    string
	ParseFailed       bool
	ParseFailedReason string
	CreatedAt         time.Time
}

// ParseCategory extracts the case-type prefix from a case number of the form
// YY<PREFIX><digits>-<countycode>, e.g. "25SP001130-090" -> SP.
func ParseCategory(caseNumber string) CaseCategory {
	if len(caseNumber) < 4 {
		return CategoryUnknown
	}
	switch prefix := CaseCategory(caseNumber[2:4]); prefix {
	case CategorySpecialProceeding, CategoryCivil, CategoryMiscellaneous:
		return prefix
	default:
		return CategoryUnknown
	}
}

// CountyCode returns the three-digit county code suffix of a case number,
// or "" if the case number does not carry one.
func CountyCode(caseNumber string) string {
	idx := strings.LastIndex(caseNumber, "-")
	if idx < 0 || len(caseNumber)-idx-1 != 3 {
		return ""
	}
	return caseNumber[idx+1:]
}

// DocumentDescriptor identifies one retrievable document within a case's
// event history. Descriptors are produced by the catalog fetch, consumed
// within a single run, and never persisted.
type DocumentDescriptor struct {
	CaseNumber       string
	PortalCaseID     string
	Name             string
	FragmentIDs      []string
	NodeIDs          []string
	TypeDescription  string
	EventDescription string
	EventDate        string // MM/DD/YYYY as reported by the portal
}

// eventDateLayout is the canonical portal date format.
const eventDateLayout = "01/02/2006"

// EventTime parses the descriptor's event date. The format is canonical from
// the upstream source; a parse failure is fatal for the whole case.
func (d DocumentDescriptor) EventTime() (time.Time, error) {
	return time.Parse(eventDateLayout, d.EventDate)
}
