// Package equity matches enriched cases against county parcel datasets to
// derive assessed value and equity tier.
package equity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// counties maps the case-number county code to the parcel dataset name.
var counties = map[string]string{
	"910": "wake",
	"890": "union",
	"120": "cabarrus",
	"670": "orange",
	"180": "chatham",
	"400": "guilford",
	"500": "johnston",
	"640": "newhanover",
	"090": "brunswick",
	"000": "alamance",
	"750": "randolph",
	"590": "mecklenburg",
	"310": "durham",
}

// Parcel is one feature's properties from the county parcel export.
type Parcel struct {
	ParcelNumber    string  `json:"PARNO"`
	AltParcelNumber string  `json:"ALTPARNO"`
	AssessedValue   float64 `json:"PARVAL"`
	SourceRef       string  `json:"SOURCEREF"`
	SiteAddress     string  `json:"SITEADD"`
	MailingAddress  string  `json:"MAILADD"`
	OwnerName       string  `json:"OWNNAME"`
	OwnerFirstName  string  `json:"OWNFRST"`
	OwnerLastName   string  `json:"OWNLAST"`
	City            string  `json:"SCITY"`
}

type featureCollection struct {
	Features []struct {
		Properties Parcel `json:"properties"`
	} `json:"features"`
}

// Dataset is one county's parcel export indexed for the match chain: site
// address, mailing address, parcel number (and alternate), and the deed
// book/page reference.
type Dataset struct {
	countyID   string
	bySite     map[string]*Parcel
	byMail     map[string]*Parcel
	byParcel   map[string]*Parcel
	byBookPage map[string]*Parcel
}

func newDataset(countyID string, raw []byte) (*Dataset, error) {
	var fc featureCollection
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, eris.Wrapf(err, "equity: decode parcel dataset for county %s", countyID)
	}

	d := &Dataset{
		countyID:   countyID,
		bySite:     make(map[string]*Parcel, len(fc.Features)),
		byMail:     make(map[string]*Parcel, len(fc.Features)),
		byParcel:   make(map[string]*Parcel, len(fc.Features)),
		byBookPage: make(map[string]*Parcel, len(fc.Features)),
	}
	for i := range fc.Features {
		p := &fc.Features[i].Properties
		if p.SiteAddress != "" {
			d.bySite[p.SiteAddress] = p
		}
		if p.MailingAddress != "" {
			d.byMail[p.MailingAddress] = p
		}
		if p.ParcelNumber != "" {
			d.byParcel[p.ParcelNumber] = p
		}
		if p.AltParcelNumber != "" {
			d.byParcel[p.AltParcelNumber] = p
		}
		if key, ok := bookPageKey(p.SourceRef); ok {
			d.byBookPage[key] = p
		}
	}
	return d, nil
}

// bookPageKey turns a SOURCEREF like "33649/924" into the lookup key
// "33649-924".
func bookPageKey(sourceRef string) (string, bool) {
	book, page, found := strings.Cut(sourceRef, "/")
	if !found {
		return "", false
	}
	book = strings.TrimSpace(book)
	page = strings.TrimSpace(page)
	if book == "" || page == "" {
		return "", false
	}
	return book + "-" + page, true
}

// Size reports the number of indexed site addresses.
func (d *Dataset) Size() int { return len(d.bySite) }

// BySiteAddress looks up a parcel by its normalized site address.
func (d *Dataset) BySiteAddress(address string) (*Parcel, bool) {
	p, ok := d.bySite[address]
	return p, ok
}

// ByMailingAddress looks up a parcel by its owner mailing address.
func (d *Dataset) ByMailingAddress(address string) (*Parcel, bool) {
	p, ok := d.byMail[address]
	return p, ok
}

// ByParcelNumber looks up a parcel by primary or alternate parcel number.
func (d *Dataset) ByParcelNumber(parcelID string) (*Parcel, bool) {
	p, ok := d.byParcel[parcelID]
	return p, ok
}

// ByBookPage looks up a parcel by "book-page" deed reference.
func (d *Dataset) ByBookPage(key string) (*Parcel, bool) {
	p, ok := d.byBookPage[key]
	return p, ok
}

// ObjectGetter fetches a raw object from the archive bucket.
type ObjectGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Loader fetches county parcel datasets from object storage, caching the
// raw export on local disk and the parsed indexes in memory. Exports run
// tens of megabytes, so a run touching many cases in one county pays the
// parse cost once.
type Loader struct {
	store    ObjectGetter
	cacheDir string

	mu       sync.Mutex
	datasets map[string]*Dataset
}

// NewLoader creates a dataset loader caching under cacheDir.
func NewLoader(store ObjectGetter, cacheDir string) *Loader {
	return &Loader{
		store:    store,
		cacheDir: cacheDir,
		datasets: make(map[string]*Dataset),
	}
}

// County returns the indexed dataset for a county code.
func (l *Loader) County(ctx context.Context, countyID string) (*Dataset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ds, ok := l.datasets[countyID]; ok {
		return ds, nil
	}

	name, ok := counties[countyID]
	if !ok {
		return nil, eris.Errorf("equity: unknown county code %q", countyID)
	}

	localPath := filepath.Join(l.cacheDir, countyID+"_parcels.geojson")
	raw, err := os.ReadFile(localPath)
	if err != nil {
		key := fmt.Sprintf("%s_%s_geojson/nc_%s_parcels_poly.geojson", name, countyID, name)
		zap.L().Info("fetching parcel dataset",
			zap.String("county", name),
			zap.String("key", key))
		raw, err = l.store.Get(ctx, key)
		if err != nil {
			return nil, eris.Wrapf(err, "equity: fetch parcel dataset for county %s", countyID)
		}
		if err := l.writeCache(localPath, raw); err != nil {
			zap.L().Warn("failed to cache parcel dataset locally", zap.Error(err))
		}
	}

	ds, err := newDataset(countyID, raw)
	if err != nil {
		return nil, err
	}
	l.datasets[countyID] = ds
	return ds, nil
}

func (l *Loader) writeCache(path string, raw []byte) error {
	if err := os.MkdirAll(l.cacheDir, 0o755); err != nil {
		return eris.Wrapf(err, "equity: create cache dir %s", l.cacheDir)
	}
	return eris.Wrapf(os.WriteFile(path, raw, 0o644), "equity: write cache %s", path)
}
