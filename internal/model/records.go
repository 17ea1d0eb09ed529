package model

import "time"

// CaseUpdate is the final per-case update applied to the intake table.
// RedFlag is stored as the schema's "Yes"/"No" string to stay compatible
// with downstream consumers of the original table.
type CaseUpdate struct {
	CaseNumber           string
	ExtractedCaseStatus  string
	FilingDate           *time.Time
	CourtType            string
	ComplexityScore      *int
	ManualFlag           bool
	ClassificationReason string
	ExtractedCaseType    string
	ParseFailed          bool
	ActiveIndicator      bool
	RedFlag              string
	RedFlagReason        string
}

// PropertyRecord is one property_info row. One row is written per
// defendant; the property-level columns repeat across them.
type PropertyRecord struct {
	ID                   string
	CaseNumber           string
	PropertyAddress      string
	ParcelOrTaxID        string
	OwnerName            string
	FirstName            string
	LastName             string
	OwnerMailingAddress  string
	MailingAddress       string
	MailingCity          string
	MailingState         string
	ZipCode              string
	OwnerDeceased        *bool
	OwnerDeceasedReason  string
	OwnerOtherCaseNumber string
	DeedBookNumber       string
	DeedPageNumber       string
	MortgageBalance      *int64
	NumberOfHeirs        string
	PropertyUseType      string
	ManualReview         bool
	ManualReviewReason   string
}

// TaxRecord is the single tax_info row written per case.
type TaxRecord struct {
	ID                 string
	CaseNumber         string
	AmountOwed         int64
	ParcelOrTaxID      string
	TotalTaxValue      *int64
	TaxDueOrLienAmount *int64
	MortgageBalance    *int64
	ManualReview       bool
	ManualReviewReason string
}

// FinalResult bundles everything persisted in one transaction for a case
// that completed without a red flag.
type FinalResult struct {
	Case       CaseUpdate
	Properties []PropertyRecord
	Tax        TaxRecord
}

// EquityCandidate joins a case's tax and property rows for the
// supplemental parcel match. Cases already carrying an equity status are
// not candidates.
type EquityCandidate struct {
	CaseNumber      string
	PropertyAddress string
	MailingAddress  string
	ParcelID        string
	DeedBook        string
	DeedPage        string
	AmountOwed      int64
}
