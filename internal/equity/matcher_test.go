package equity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityline/caseenrich/internal/model"
)

type fakeMatchStore struct {
	candidates []model.EquityCandidate
	applied    map[string]model.ParcelMatch
	unmatched  []string
}

func newFakeMatchStore(candidates ...model.EquityCandidate) *fakeMatchStore {
	return &fakeMatchStore{
		candidates: candidates,
		applied:    map[string]model.ParcelMatch{},
	}
}

func (f *fakeMatchStore) EquityCandidates(ctx context.Context) ([]model.EquityCandidate, error) {
	return f.candidates, nil
}

func (f *fakeMatchStore) ApplyEquity(ctx context.Context, caseNumber string, match model.ParcelMatch) error {
	f.applied[caseNumber] = match
	return nil
}

func (f *fakeMatchStore) MarkEquityUnmatched(ctx context.Context, caseNumber string) error {
	f.unmatched = append(f.unmatched, caseNumber)
	return nil
}

type fakeDatasets struct {
	ds *Dataset
}

func (f *fakeDatasets) County(ctx context.Context, countyID string) (*Dataset, error) {
	return f.ds, nil
}

func testDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := newDataset("910", []byte(parcelGeoJSON))
	require.NoError(t, err)
	return ds
}

func TestMatcher_SiteAddressMatch(t *testing.T) {
	t.Parallel()

	store := newFakeMatchStore(model.EquityCandidate{
		CaseNumber:      "24SP000321-910",
		PropertyAddress: "204 Oakwood Avenue, Raleigh, NC 27601",
		AmountOwed:      62500,
	})
	m := NewMatcher(store, &fakeDatasets{ds: testDataset(t)})

	stats, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Stats{Matched: 1}, stats)

	match := store.applied["24SP000321-910"]
	assert.Equal(t, int64(250000), match.AssessedValue)
	assert.Equal(t, int64(187500), match.Equity)
	assert.Equal(t, model.StatusHigh, match.Status)
	assert.Equal(t, "SMITH, JANE Q", match.OwnerName)
}

func TestMatcher_ParcelNumberFallback(t *testing.T) {
	t.Parallel()

	store := newFakeMatchStore(model.EquityCandidate{
		CaseNumber:      "24SP000400-910",
		PropertyAddress: "1 UNKNOWN WAY",
		ParcelID:        "1704999999",
		AmountOwed:      90000,
	})
	m := NewMatcher(store, &fakeDatasets{ds: testDataset(t)})

	stats, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	match := store.applied["24SP000400-910"]
	assert.Equal(t, int64(98000), match.AssessedValue)
	assert.Equal(t, int64(8000), match.Equity)
	assert.Equal(t, model.StatusLow, match.Status)
}

func TestMatcher_BookPageFallback(t *testing.T) {
	t.Parallel()

	store := newFakeMatchStore(model.EquityCandidate{
		CaseNumber: "24SP000500-910",
		DeedBook:   "33649",
		DeedPage:   "924",
		AmountOwed: 200000,
	})
	m := NewMatcher(store, &fakeDatasets{ds: testDataset(t)})

	stats, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	match := store.applied["24SP000500-910"]
	assert.Equal(t, int64(50000), match.Equity)
	assert.Equal(t, model.StatusMid, match.Status)
}

func TestMatcher_UnmatchedGoesToManualReview(t *testing.T) {
	t.Parallel()

	store := newFakeMatchStore(model.EquityCandidate{
		CaseNumber:      "24SP000600-910",
		PropertyAddress: "1 NOWHERE LN",
		ParcelID:        "0000000000",
		DeedBook:        "1",
		DeedPage:        "1",
		AmountOwed:      10000,
	})
	m := NewMatcher(store, &fakeDatasets{ds: testDataset(t)})

	stats, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Unmatched)
	assert.Equal(t, []string{"24SP000600-910"}, store.unmatched)
	assert.Empty(t, store.applied)
}

func TestMatcher_SkipsZeroAmountOwed(t *testing.T) {
	t.Parallel()

	store := newFakeMatchStore(model.EquityCandidate{
		CaseNumber:      "24SP000700-910",
		PropertyAddress: "204 Oakwood Avenue",
		AmountOwed:      0,
	})
	m := NewMatcher(store, &fakeDatasets{ds: testDataset(t)})

	stats, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Empty(t, store.applied)
	assert.Empty(t, store.unmatched)
}
