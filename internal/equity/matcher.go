package equity

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/equityline/caseenrich/internal/model"
)

// MatchStore is the persistence surface of the equity pass.
type MatchStore interface {
	EquityCandidates(ctx context.Context) ([]model.EquityCandidate, error)
	ApplyEquity(ctx context.Context, caseNumber string, match model.ParcelMatch) error
	MarkEquityUnmatched(ctx context.Context, caseNumber string) error
}

// DatasetSource yields the indexed parcel dataset for a county code.
type DatasetSource interface {
	County(ctx context.Context, countyID string) (*Dataset, error)
}

// Stats counts the outcomes of one matching run.
type Stats struct {
	Matched   int
	Unmatched int
	Skipped   int
	Failed    int
}

// Matcher runs the supplemental equity pass over enriched cases.
type Matcher struct {
	store    MatchStore
	datasets DatasetSource
}

// NewMatcher wires the store and dataset loader into a matcher.
func NewMatcher(store MatchStore, datasets DatasetSource) *Matcher {
	return &Matcher{store: store, datasets: datasets}
}

// Run matches every candidate case. A failing case is counted and skipped;
// only context cancellation stops the pass.
func (m *Matcher) Run(ctx context.Context) (Stats, error) {
	var stats Stats

	candidates, err := m.store.EquityCandidates(ctx)
	if err != nil {
		return stats, err
	}
	zap.L().Info("equity pass started", zap.Int("candidates", len(candidates)))

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return stats, eris.Wrap(err, "equity: pass canceled")
		}
		if err := m.matchCase(ctx, c, &stats); err != nil {
			stats.Failed++
			zap.L().Error("equity match failed",
				zap.String("case_number", c.CaseNumber),
				zap.Error(err))
		}
	}

	zap.L().Info("equity pass finished",
		zap.Int("matched", stats.Matched),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return stats, nil
}

// matchCase walks the lookup chain for one case and records the outcome.
func (m *Matcher) matchCase(ctx context.Context, c model.EquityCandidate, stats *Stats) error {
	if c.AmountOwed == 0 {
		stats.Skipped++
		zap.L().Debug("skipping case with no amount owed",
			zap.String("case_number", c.CaseNumber))
		return nil
	}

	countyID := model.CountyCode(c.CaseNumber)
	ds, err := m.datasets.County(ctx, countyID)
	if err != nil {
		return err
	}

	parcel := lookup(ds, c, countyID)
	if parcel == nil {
		stats.Unmatched++
		zap.L().Info("no parcel match, routing to manual review",
			zap.String("case_number", c.CaseNumber))
		return m.store.MarkEquityUnmatched(ctx, c.CaseNumber)
	}

	assessed := int64(parcel.AssessedValue)
	equity, status := model.ComputeEquity(assessed, c.AmountOwed)
	zap.L().Info("parcel matched",
		zap.String("case_number", c.CaseNumber),
		zap.String("parcel", parcel.ParcelNumber),
		zap.Int64("assessed_value", assessed),
		zap.Int64("equity", equity),
		zap.String("equity_status", string(status)))

	stats.Matched++
	return m.store.ApplyEquity(ctx, c.CaseNumber, model.ParcelMatch{
		AssessedValue:  assessed,
		Equity:         equity,
		Status:         status,
		ParcelNumber:   parcel.ParcelNumber,
		OwnerName:      parcel.OwnerName,
		OwnerFirstName: parcel.OwnerFirstName,
		OwnerLastName:  parcel.OwnerLastName,
		MailingAddress: parcel.MailingAddress,
	})
}

// lookup tries the match chain in order: site address, mailing address,
// parcel number, deed book/page. First hit wins.
func lookup(ds *Dataset, c model.EquityCandidate, countyID string) *Parcel {
	if c.PropertyAddress != "" {
		normalized := NormalizeForCounty(
			NormalizeAddress(StreetAddress(c.PropertyAddress)), countyID)
		if p, ok := ds.BySiteAddress(normalized); ok {
			return p
		}
		if p, ok := ds.ByMailingAddress(normalized); ok {
			return p
		}
	}
	if c.ParcelID != "" {
		if p, ok := ds.ByParcelNumber(c.ParcelID); ok {
			return p
		}
	}
	if c.DeedBook != "" && c.DeedPage != "" {
		if p, ok := ds.ByBookPage(c.DeedBook + "-" + c.DeedPage); ok {
			return p
		}
	}
	return nil
}
