// Package ocr extracts text from case PDFs. Born-digital documents are
// read directly; scanned documents are routed to an asynchronous OCR
// service working off the archived object-storage copy.
package ocr

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Sentinel errors. Both abort the whole case.
var (
	// ErrOCRJobFailed means the async OCR job reported FAILED or never
	// finished within the poll budget.
	ErrOCRJobFailed = eris.New("ocr: job failed")
	// ErrTextExtractionEmpty means extraction succeeded but produced no
	// usable text.
	ErrTextExtractionEmpty = eris.New("ocr: extracted text is empty")
)

// Remote runs OCR against an archived object and returns its text.
type Remote interface {
	TextFromObject(ctx context.Context, key string) (string, error)
}

// Dispatcher routes each PDF to direct text extraction or the remote OCR
// service based on whether it carries raster images.
type Dispatcher struct {
	remote Remote

	// hooks for tests; production uses the pdf-backed implementations.
	detect func(path string) (bool, error)
	direct func(path string) (string, error)
}

// NewDispatcher creates a dispatcher backed by the given OCR service.
func NewDispatcher(remote Remote) *Dispatcher {
	return &Dispatcher{
		remote: remote,
		detect: hasImages,
		direct: extractDirect,
	}
}

// Extract returns the document's text. localPath is the downloaded PDF;
// remoteKey is its object-storage copy, used only when OCR is needed.
func (d *Dispatcher) Extract(ctx context.Context, localPath, remoteKey string) (string, error) {
	scanned, err := d.detect(localPath)
	if err != nil {
		return "", err
	}

	var text string
	if scanned {
		zap.L().Debug("pdf carries images, using remote ocr",
			zap.String("path", localPath),
			zap.String("key", remoteKey))
		text, err = d.remote.TextFromObject(ctx, remoteKey)
	} else {
		text, err = d.direct(localPath)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", eris.Wrapf(ErrTextExtractionEmpty, "%s", localPath)
	}
	return text, nil
}
