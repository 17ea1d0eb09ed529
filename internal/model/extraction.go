package model

// ExtractionState is the structured summary accumulated across a case's
// documents. The JSON tags are the contract with the language model; the
// field casing is inconsistent because the schema grew organically and
// changing it would invalidate the prompt examples.
type ExtractionState struct {
	PropertyInfo         PropertyInfo   `json:"Property_Info"`
	TaxInfo              TaxInfo        `json:"Tax_Info"`
	DealEvaluation       DealEvaluation `json:"Deal_Evaluation"`
	OwnerOtherCaseNumber []FlexString   `json:"Owner_Other_Case_Numbers"`
	RedFlag              FlexBool       `json:"red_flag"`
	RedFlagReason        FlexString     `json:"red_flag_reason"`
	ActiveIndicator      FlexBool       `json:"active_indicator"`
}

// IsZero reports whether the state still carries no extracted content.
func (s ExtractionState) IsZero() bool {
	return s.PropertyInfo.PropertyAddress.IsBlank() &&
		s.PropertyInfo.ParcelID.IsBlank() &&
		len(s.PropertyInfo.Defendants) == 0 &&
		s.TaxInfo.TotalTaxAmount.IsBlank() &&
		s.TaxInfo.TotalLienAmount.IsBlank() &&
		s.DealEvaluation.CaseSummary.IsBlank()
}

// PropertyInfo holds the subject-property facts.
type PropertyInfo struct {
	PropertyAddress    FlexString  `json:"Property_address"`
	ParcelID           FlexString  `json:"Parcel_ID"`
	County             FlexString  `json:"County"`
	DeedBookNumber     FlexString  `json:"Deed_Book_Number"`
	DeedPageNumber     FlexString  `json:"Deed_Page_Number"`
	MortgageBalance    FlexString  `json:"Mortgage_Balance"`
	MortgageYear       FlexString  `json:"Mortgage_Year"`
	HeirFlag           FlexBool    `json:"Heir_Flag"`
	HeirCountEstimated FlexString  `json:"Heir_Count_Estimated"`
	ProbateClue        FlexBool    `json:"Probate_Clue"`
	PlaintiffName      FlexString  `json:"Plaintiff_Name"`
	Defendants         []Defendant `json:"Defendants"`
	PropertyUseType    FlexString  `json:"Property_Use_Type"`
}

// Defendant is one named party on the respondent side.
type Defendant struct {
	Name         DefendantName    `json:"Name"`
	Address      DefendantAddress `json:"Address"`
	DeceasedInfo DeceasedInfo     `json:"Deceased_Info"`
}

// DefendantName carries the full and split name forms.
type DefendantName struct {
	FullName  FlexString `json:"Full_Name"`
	FirstName FlexString `json:"First_Name"`
	LastName  FlexString `json:"Last_Name"`
}

// DefendantAddress is the defendant's mailing address as filed.
type DefendantAddress struct {
	MailingAddress FlexString `json:"Mailing_Address"`
	MailingCity    FlexString `json:"Mailing_City"`
	MailingState   FlexString `json:"Mailing_State"`
	ZipCode        FlexString `json:"Zip_Code"`
}

// DeceasedInfo records whether the defendant is reported deceased. The
// model answers true, false, or an explicit "None" when the documents say
// nothing, so the raw value is kept and resolved lazily.
type DeceasedInfo struct {
	Deceased FlexString `json:"Deceased"`
	Detail   FlexString `json:"Deceased_Info"`
}

// Known resolves the deceased flag to a nullable boolean: nil when the
// documents were silent.
func (d DeceasedInfo) Known() *bool {
	if d.Deceased.IsBlank() {
		return nil
	}
	var b FlexBool
	// UnmarshalJSON on a quoted copy reuses the one truthiness table.
	_ = b.UnmarshalJSON([]byte(`"` + d.Deceased.String() + `"`))
	v := b.Bool()
	return &v
}

// TaxInfo holds the monetary obligations found in the documents, still in
// the model's string form.
type TaxInfo struct {
	TotalTaxAmount  FlexString `json:"Total_Tax_Amount"`
	TotalLienAmount FlexString `json:"Total_Lien_Amount"`
}

// DealEvaluation is the model's qualitative read of the case.
type DealEvaluation struct {
	CaseType             FlexString `json:"case_type"`
	ComplexityScore      FlexInt    `json:"complexity_score"`
	FlagManualReview     FlexBool   `json:"flag_manual_review"`
	ClassificationReason FlexString `json:"classification_reason"`
	CaseSummary          FlexString `json:"case_summary"`
	FiledDate            FlexString `json:"Filed_date"`
	Status               FlexString `json:"Status"`
	CourtType            FlexString `json:"Court_type"`
}
