package model

// EquityStatus buckets the spread between assessed parcel value and total
// amount owed.
type EquityStatus string

// Equity tiers. StatusNone marks spreads too small (or negative) to act on.
const (
	StatusHigh EquityStatus = "HIGH"
	StatusMid  EquityStatus = "MID"
	StatusLow  EquityStatus = "LOW"
	StatusNone EquityStatus = ""
)

// ComputeEquity derives the equity spread and its tier from an assessed
// parcel value and the case's amount owed, both in whole dollars.
func ComputeEquity(parcelValue, amountOwed int64) (int64, EquityStatus) {
	equity := parcelValue - amountOwed
	return equity, TierFor(equity)
}

// ParcelMatch is the outcome of a successful parcel-dataset match: the
// assessed value, the derived equity, and the dataset's own identifying
// fields, persisted alongside the extracted ones for comparison.
type ParcelMatch struct {
	AssessedValue  int64
	Equity         int64
	Status         EquityStatus
	ParcelNumber   string
	OwnerName      string
	OwnerFirstName string
	OwnerLastName  string
	MailingAddress string
}

// TierFor maps an equity spread to its status tier.
func TierFor(equity int64) EquityStatus {
	switch {
	case equity >= 100_000:
		return StatusHigh
	case equity >= 50_000:
		return StatusMid
	case equity > 1_000:
		return StatusLow
	default:
		return StatusNone
	}
}
