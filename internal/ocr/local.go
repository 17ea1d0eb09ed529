package ocr

import (
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// extractDirect reads a born-digital PDF's text page by page.
func extractDirect(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "ocr: open pdf %s", path)
	}
	defer func() { _ = f.Close() }()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", eris.Wrapf(err, "ocr: extract page %d of %s", i, path)
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// hasImages reports whether any page's XObject resources include a raster
// image, the signal that the document is a scan.
func hasImages(path string) (bool, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return false, eris.Wrapf(err, "ocr: open pdf %s", path)
	}
	defer func() { _ = f.Close() }()

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		xobjects := page.V.Key("Resources").Key("XObject")
		if xobjects.IsNull() {
			continue
		}
		for _, name := range xobjects.Keys() {
			if xobjects.Key(name).Key("Subtype").Name() == "Image" {
				return true, nil
			}
		}
	}
	return false, nil
}
