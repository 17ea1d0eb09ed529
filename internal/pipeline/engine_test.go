package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityline/caseenrich/internal/model"
	"github.com/equityline/caseenrich/internal/storage"
)

type fakeDownloader struct {
	calls int
	err   error
}

func (f *fakeDownloader) Download(ctx context.Context, d model.DocumentDescriptor) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.4 " + d.Name), nil
}

type fakeArchive struct {
	puts     []string
	removals []string
	putErr   error
}

func (f *fakeArchive) Put(ctx context.Context, key string, content []byte) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeArchive) RemoveAll(ctx context.Context, prefix string) error {
	f.removals = append(f.removals, prefix)
	return nil
}

type fakeTexts struct {
	text string
	err  error
}

func (f *fakeTexts) Extract(ctx context.Context, localPath, remoteKey string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

// scriptedExtractor returns pre-built states in order and records the
// prior state passed with each call.
type scriptedExtractor struct {
	states []*model.ExtractionState
	priors []*model.ExtractionState
	err    error
}

func (s *scriptedExtractor) Extract(ctx context.Context, docText string, prior *model.ExtractionState) (*model.ExtractionState, error) {
	s.priors = append(s.priors, prior)
	if s.err != nil {
		return nil, s.err
	}
	state := s.states[len(s.priors)-1]
	return state, nil
}

func testDocs(n int) []model.DocumentDescriptor {
	docs := make([]model.DocumentDescriptor, 0, n)
	names := []string{"Notice of Hearing", "Deed of Trust", "Complaint"}
	dates := []string{"03/20/2024", "02/10/2024", "01/15/2024"}
	for i := 0; i < n; i++ {
		docs = append(docs, model.DocumentDescriptor{
			CaseNumber:  "24SP000321-910",
			Name:        names[i],
			EventDate:   dates[i],
			FragmentIDs: []string{"frag"},
		})
	}
	return docs
}

func TestWalk_CarriesStateForward(t *testing.T) {
	stateA := &model.ExtractionState{}
	stateA.PropertyInfo.PropertyAddress = "204 Oakwood Ave"
	stateB := &model.ExtractionState{}
	stateB.PropertyInfo.PropertyAddress = "204 Oakwood Ave"
	stateB.TaxInfo.TotalTaxAmount = "12500"

	downloads := &fakeDownloader{}
	archive := &fakeArchive{}
	extractor := &scriptedExtractor{states: []*model.ExtractionState{stateA, stateB}}
	engine := NewEngine(downloads, archive, &fakeTexts{text: "NOTICE ..."}, extractor, t.TempDir())

	runDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := engine.Walk(context.Background(), runDate, testDocs(2))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.False(t, result.RedFlagged)
	assert.Same(t, stateB, result.State)

	require.Len(t, extractor.priors, 2)
	assert.Nil(t, extractor.priors[0], "first document has no prior state")
	assert.Same(t, stateA, extractor.priors[1], "second call carries the first result")

	require.Len(t, archive.puts, 2)
	assert.Equal(t, storage.ObjectKey(runDate, testDocs(2)[0]), archive.puts[0])
	assert.Empty(t, archive.removals)
}

func TestWalk_RedFlagStopsEarlyAndDropsArchive(t *testing.T) {
	flagged := &model.ExtractionState{RedFlag: true, RedFlagReason: "HOA foreclosure"}

	downloads := &fakeDownloader{}
	archive := &fakeArchive{}
	extractor := &scriptedExtractor{states: []*model.ExtractionState{flagged}}
	engine := NewEngine(downloads, archive, &fakeTexts{text: "text"}, extractor, t.TempDir())

	runDate := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	result, err := engine.Walk(context.Background(), runDate, testDocs(3))
	require.NoError(t, err)

	assert.True(t, result.RedFlagged)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, downloads.calls, "remaining documents are not fetched")
	require.Len(t, archive.removals, 1)
	assert.Equal(t, storage.CasePrefix(runDate, "24SP000321-910"), archive.removals[0])
}

func TestWalk_DownloadErrorAborts(t *testing.T) {
	downloads := &fakeDownloader{err: eris.New("portal: unexpected status 500")}
	extractor := &scriptedExtractor{}
	engine := NewEngine(downloads, &fakeArchive{}, &fakeTexts{text: "text"}, extractor, t.TempDir())

	_, err := engine.Walk(context.Background(), time.Now(), testDocs(1))
	require.Error(t, err)
	assert.Empty(t, extractor.priors, "extraction never runs")
}

func TestWalk_TextErrorAborts(t *testing.T) {
	texts := &fakeTexts{err: eris.New("ocr: job failed")}
	engine := NewEngine(&fakeDownloader{}, &fakeArchive{}, texts, &scriptedExtractor{}, t.TempDir())

	_, err := engine.Walk(context.Background(), time.Now(), testDocs(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Notice of Hearing")
}
