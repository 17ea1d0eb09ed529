package pipeline

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/equityline/caseenrich/internal/model"
)

// filedDateLayouts are the forms the extractor emits for filing dates.
var filedDateLayouts = []string{
	"January 2, 2006",
	"01/02/2006",
	"2006-01-02",
}

// hoaPatterns flag classifications that slipped past the prompt's
// disqualifying rules.
var hoaPatterns = []string{"HOA", "Homeowner", "Condo", "Guardian", "company"}

// IsExcludedClassification reports whether the classification or red-flag
// reason names a case type the pipeline should not have kept.
func IsExcludedClassification(classificationReason, redFlagReason string) bool {
	for _, p := range hoaPatterns {
		lower := strings.ToLower(p)
		if strings.Contains(strings.ToLower(classificationReason), lower) ||
			strings.Contains(strings.ToLower(redFlagReason), lower) {
			return true
		}
	}
	return false
}

// parseFiledDate accepts the extractor's date forms. Blank is nil;
// unparsable is fatal for the case.
func parseFiledDate(raw model.FlexString) (*time.Time, error) {
	if raw.IsBlank() {
		return nil, nil
	}
	for _, layout := range filedDateLayouts {
		if t, err := time.Parse(layout, raw.String()); err == nil {
			return &t, nil
		}
	}
	return nil, eris.Errorf("pipeline: unparsable filed date %q", raw.String())
}

// parseAmount converts an extracted money string to nullable whole
// dollars. Blank is nil; a present but unparsable value is fatal.
func parseAmount(raw model.FlexString, field string) (*int64, error) {
	if raw.IsBlank() {
		return nil, nil
	}
	v, ok := model.ParseMoney(raw.String())
	if !ok {
		return nil, eris.Errorf("pipeline: unparsable %s %q", field, raw.String())
	}
	return &v, nil
}

// Derive turns the final extraction state into the persisted records:
// the case update, one property row per defendant, and the tax row.
func Derive(caseNumber string, state *model.ExtractionState) (*model.FinalResult, error) {
	deal := state.DealEvaluation

	filedDate, err := parseFiledDate(deal.FiledDate)
	if err != nil {
		return nil, err
	}
	mortgage, err := parseAmount(state.PropertyInfo.MortgageBalance, "mortgage balance")
	if err != nil {
		return nil, err
	}
	taxValue, err := parseAmount(state.TaxInfo.TotalTaxAmount, "total tax amount")
	if err != nil {
		return nil, err
	}
	lien, err := parseAmount(state.TaxInfo.TotalLienAmount, "lien amount")
	if err != nil {
		return nil, err
	}

	// A payoff figure often restates the mortgage inside the tax or lien
	// total; when the stated amount exceeds the mortgage, the overlap is
	// removed before aggregation.
	if mortgage != nil && taxValue != nil && *taxValue > *mortgage {
		v := *taxValue - *mortgage
		taxValue = &v
	}
	if mortgage != nil && lien != nil && *lien > *mortgage {
		v := *lien - *mortgage
		lien = &v
	}

	amountOwed := orZero(mortgage) + orZero(taxValue) + orZero(lien)

	parcel := strings.ReplaceAll(state.PropertyInfo.ParcelID.String(), "-", "")

	taxReview, taxReason := false, ""
	if amountOwed == 0 {
		taxReview, taxReason = true, "AMOUNT OWED IS EMPTY"
	}
	propReview, propReason := false, ""
	if state.PropertyInfo.PropertyAddress.IsBlank() && parcel == "" {
		propReview, propReason = true, "EMPTY PROPERTY ADDRESS AND PARCEL NO"
	}

	otherCases := make([]string, 0, len(state.OwnerOtherCaseNumber))
	for _, c := range state.OwnerOtherCaseNumber {
		if !c.IsBlank() {
			otherCases = append(otherCases, c.String())
		}
	}
	otherCasesJoined := strings.Join(otherCases, ", ")

	properties := make([]model.PropertyRecord, 0, len(state.PropertyInfo.Defendants))
	for _, defendant := range state.PropertyInfo.Defendants {
		addr := defendant.Address
		parts := make([]string, 0, 4)
		for _, p := range []model.FlexString{addr.MailingAddress, addr.MailingCity, addr.MailingState, addr.ZipCode} {
			if !p.IsBlank() {
				parts = append(parts, p.String())
			}
		}
		properties = append(properties, model.PropertyRecord{
			ID:                   uuid.NewString(),
			CaseNumber:           caseNumber,
			PropertyAddress:      state.PropertyInfo.PropertyAddress.String(),
			ParcelOrTaxID:        parcel,
			OwnerName:            strings.ToUpper(defendant.Name.FullName.String()),
			FirstName:            strings.ToUpper(defendant.Name.FirstName.String()),
			LastName:             strings.ToUpper(defendant.Name.LastName.String()),
			OwnerMailingAddress:  strings.ToUpper(strings.Join(parts, ", ")),
			MailingAddress:       strings.ToUpper(addr.MailingAddress.String()),
			MailingCity:          strings.ToUpper(addr.MailingCity.String()),
			MailingState:         strings.ToUpper(addr.MailingState.String()),
			ZipCode:              addr.ZipCode.String(),
			OwnerDeceased:        defendant.DeceasedInfo.Known(),
			OwnerDeceasedReason:  defendant.DeceasedInfo.Detail.String(),
			OwnerOtherCaseNumber: otherCasesJoined,
			DeedBookNumber:       state.PropertyInfo.DeedBookNumber.String(),
			DeedPageNumber:       state.PropertyInfo.DeedPageNumber.String(),
			MortgageBalance:      mortgage,
			NumberOfHeirs:        state.PropertyInfo.HeirCountEstimated.String(),
			PropertyUseType:      state.PropertyInfo.PropertyUseType.String(),
			ManualReview:         propReview,
			ManualReviewReason:   propReason,
		})
	}

	redFlag := "No"
	if state.RedFlag.Bool() {
		redFlag = "Yes"
	}

	return &model.FinalResult{
		Case: model.CaseUpdate{
			CaseNumber:           caseNumber,
			ExtractedCaseStatus:  deal.Status.String(),
			FilingDate:           filedDate,
			CourtType:            deal.CourtType.String(),
			ComplexityScore:      deal.ComplexityScore.Ptr(),
			ManualFlag:           deal.FlagManualReview.Bool(),
			ClassificationReason: deal.CaseSummary.String(),
			ExtractedCaseType:    deal.CaseType.String(),
			ParseFailed:          false,
			ActiveIndicator:      state.ActiveIndicator.Bool(),
			RedFlag:              redFlag,
			RedFlagReason:        state.RedFlagReason.String(),
		},
		Properties: properties,
		Tax: model.TaxRecord{
			ID:                 uuid.NewString(),
			CaseNumber:         caseNumber,
			AmountOwed:         amountOwed,
			ParcelOrTaxID:      parcel,
			TotalTaxValue:      taxValue,
			TaxDueOrLienAmount: lien,
			MortgageBalance:    mortgage,
			ManualReview:       taxReview,
			ManualReviewReason: taxReason,
		},
	}, nil
}

func orZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
