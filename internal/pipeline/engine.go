package pipeline

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/equityline/caseenrich/internal/extract"
	"github.com/equityline/caseenrich/internal/model"
	"github.com/equityline/caseenrich/internal/storage"
)

// Downloader fetches one document's PDF bytes.
type Downloader interface {
	Download(ctx context.Context, d model.DocumentDescriptor) ([]byte, error)
}

// Archive is the object-store surface the walk needs: archive each PDF,
// and drop a case's archived set when it red-flags.
type Archive interface {
	Put(ctx context.Context, key string, content []byte) error
	RemoveAll(ctx context.Context, prefix string) error
}

// TextSource turns a downloaded PDF into text, by direct read or OCR.
type TextSource interface {
	Extract(ctx context.Context, localPath, remoteKey string) (string, error)
}

// WalkResult is the outcome of one case's document walk.
type WalkResult struct {
	// State is the extraction state after the last processed document.
	State *model.ExtractionState
	// RedFlagged means the walk stopped early on a disqualifying finding.
	RedFlagged bool
	// Processed counts documents that went through the model.
	Processed int
}

// Engine walks a case's ranked documents through download, archival, text
// extraction, and incremental model extraction.
type Engine struct {
	downloads Downloader
	archive   Archive
	texts     TextSource
	extractor extract.Extractor
	tempDir   string
}

// NewEngine wires the per-document stages together. tempDir holds the
// transient local PDF copies.
func NewEngine(downloads Downloader, archive Archive, texts TextSource, extractor extract.Extractor, tempDir string) *Engine {
	return &Engine{
		downloads: downloads,
		archive:   archive,
		texts:     texts,
		extractor: extractor,
		tempDir:   tempDir,
	}
}

// Walk processes docs in order, carrying the extraction state forward.
// Each model response replaces the state wholesale. A red flag stops the
// walk immediately: remaining documents are never fetched and the case's
// archived objects are removed. Any stage error aborts the whole case.
func (e *Engine) Walk(ctx context.Context, runDate time.Time, docs []model.DocumentDescriptor) (*WalkResult, error) {
	var state *model.ExtractionState
	result := &WalkResult{}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pipeline: walk canceled")
		}

		text, err := e.documentText(ctx, runDate, doc)
		if err != nil {
			return nil, err
		}

		state, err = e.extractor.Extract(ctx, text, state)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: extract document %q", doc.Name)
		}
		result.Processed++

		if state.RedFlag.Bool() {
			zap.L().Info("case red-flagged, stopping document walk",
				zap.String("case_number", doc.CaseNumber),
				zap.String("document", doc.Name),
				zap.String("reason", state.RedFlagReason.String()),
				zap.Int("processed", result.Processed))
			e.dropArchived(ctx, runDate, doc.CaseNumber)
			result.State = state
			result.RedFlagged = true
			return result, nil
		}
	}

	result.State = state
	return result, nil
}

// documentText downloads one document, archives it, and returns its text.
func (e *Engine) documentText(ctx context.Context, runDate time.Time, doc model.DocumentDescriptor) (string, error) {
	content, err := e.downloads.Download(ctx, doc)
	if err != nil {
		return "", err
	}

	key := storage.ObjectKey(runDate, doc)
	if err := e.archive.Put(ctx, key, content); err != nil {
		return "", err
	}

	path, cleanup, err := e.writeTemp(content)
	if err != nil {
		return "", err
	}
	defer cleanup()

	text, err := e.texts.Extract(ctx, path, key)
	if err != nil {
		return "", eris.Wrapf(err, "pipeline: text for document %q", doc.Name)
	}
	return text, nil
}

// writeTemp stores the PDF bytes locally for the direct-read path.
func (e *Engine) writeTemp(content []byte) (string, func(), error) {
	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return "", nil, eris.Wrapf(err, "pipeline: create temp dir %s", e.tempDir)
	}
	f, err := os.CreateTemp(e.tempDir, "doc-*.pdf")
	if err != nil {
		return "", nil, eris.Wrap(err, "pipeline: create temp file")
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", nil, eris.Wrap(err, "pipeline: write temp file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", nil, eris.Wrap(err, "pipeline: close temp file")
	}
	path := f.Name()
	return path, func() { _ = os.Remove(path) }, nil
}

// dropArchived removes a red-flagged case's archived documents. Failure is
// logged but does not fail the case; the red-flag outcome still stands.
func (e *Engine) dropArchived(ctx context.Context, runDate time.Time, caseNumber string) {
	prefix := storage.CasePrefix(runDate, caseNumber)
	if err := e.archive.RemoveAll(ctx, prefix); err != nil {
		zap.L().Warn("failed to remove archived documents for red-flagged case",
			zap.String("case_number", caseNumber),
			zap.String("prefix", prefix),
			zap.Error(err))
	}
}
