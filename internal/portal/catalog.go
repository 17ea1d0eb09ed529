package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/equityline/caseenrich/internal/model"
	"github.com/equityline/caseenrich/internal/resilience"
)

// caseEventsResponse mirrors the portal's register-of-actions payload. Only
// the fields the flattening needs are declared.
type caseEventsResponse struct {
	CaseID string          `json:"CaseId"`
	Events []caseEventItem `json:"Events"`
}

type caseEventItem struct {
	Event caseEvent `json:"Event"`
}

type caseEvent struct {
	TypeID    eventTypeID     `json:"TypeId"`
	Date      string          `json:"Date"`
	Documents []eventDocument `json:"Documents"`
}

type eventTypeID struct {
	Description string `json:"Description"`
}

type eventDocument struct {
	DocumentName     string            `json:"DocumentName"`
	DocumentTypeID   eventTypeID       `json:"DocumentTypeID"`
	DocumentVersions []documentVersion `json:"DocumentVersions"`
	ParentLinks      []parentLink      `json:"ParentLinks"`
}

type documentVersion struct {
	DocumentFragments []documentFragment `json:"DocumentFragments"`
}

type documentFragment struct {
	DocumentFragmentID string `json:"DocumentFragmentID"`
}

type parentLink struct {
	NodeID string `json:"NodeID"`
}

// CatalogOption configures the catalog client.
type CatalogOption func(*Catalog)

// WithCatalogHTTPClient sets a custom HTTP client.
func WithCatalogHTTPClient(hc *http.Client) CatalogOption {
	return func(c *Catalog) {
		c.http = hc
	}
}

// WithCatalogPageSize sets the $top parameter of the events request.
func WithCatalogPageSize(n int) CatalogOption {
	return func(c *Catalog) {
		c.pageSize = n
	}
}

// WithCatalogRetry overrides the transport retry policy.
func WithCatalogRetry(cfg resilience.RetryConfig) CatalogOption {
	return func(c *Catalog) {
		c.retry = cfg
	}
}

// Catalog fetches a case's document catalog and downloads individual
// documents.
type Catalog struct {
	baseURL     string
	downloadURL string
	pageSize    int
	http        *http.Client
	retry       resilience.RetryConfig
}

// NewCatalog creates a catalog client. baseURL is the register-of-actions
// service root; downloadURL is the document-viewer display endpoint.
func NewCatalog(baseURL, downloadURL string, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		baseURL:     baseURL,
		downloadURL: downloadURL,
		pageSize:    50,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	c.retry = resilience.DefaultRetryConfig()
	c.retry.OnRetry = resilience.RetryLogger("portal", "catalog")
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Events fetches the case's event catalog and flattens it into document
// descriptors, one per event, keeping only events that carry at least one
// retrievable fragment.
func (c *Catalog) Events(ctx context.Context, caseNumber, portalCaseID string) ([]model.DocumentDescriptor, error) {
	reqURL := fmt.Sprintf("%s/CaseEvents('%s')?mode=portalembed&$top=%d&$skip=0",
		c.baseURL, portalCaseID, c.pageSize)

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, eris.Wrapf(ErrCatalogFetch, "case %s: %v", caseNumber, err)
	}

	var payload caseEventsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, eris.Wrapf(ErrCatalogFetch, "case %s: decode events: %v", caseNumber, err)
	}

	return flattenEvents(caseNumber, payload), nil
}

// flattenEvents walks event -> document -> version -> fragment and keeps
// one descriptor per event that has a fragment to download.
func flattenEvents(caseNumber string, payload caseEventsResponse) []model.DocumentDescriptor {
	descriptors := make([]model.DocumentDescriptor, 0, len(payload.Events))
	for _, item := range payload.Events {
		d := model.DocumentDescriptor{
			CaseNumber:       caseNumber,
			PortalCaseID:     payload.CaseID,
			EventDescription: item.Event.TypeID.Description,
			EventDate:        item.Event.Date,
		}
		for _, doc := range item.Event.Documents {
			if d.Name == "" {
				d.Name = doc.DocumentName
			}
			d.TypeDescription = doc.DocumentTypeID.Description
			for _, version := range doc.DocumentVersions {
				for _, fragment := range version.DocumentFragments {
					if fragment.DocumentFragmentID != "" {
						d.FragmentIDs = append(d.FragmentIDs, fragment.DocumentFragmentID)
					}
				}
			}
			for _, link := range doc.ParentLinks {
				if link.NodeID != "" {
					d.NodeIDs = append(d.NodeIDs, link.NodeID)
				}
			}
		}
		if len(d.FragmentIDs) > 0 {
			descriptors = append(descriptors, d)
		}
	}
	return descriptors
}

// DownloadURL builds the document-viewer URL for one descriptor.
func (c *Catalog) DownloadURL(d model.DocumentDescriptor) string {
	q := url.Values{}
	if len(d.FragmentIDs) > 0 {
		q.Set("documentID", d.FragmentIDs[0])
	}
	q.Set("caseNum", d.CaseNumber)
	if len(d.NodeIDs) > 0 {
		q.Set("locationId", d.NodeIDs[0])
	}
	q.Set("caseId", d.PortalCaseID)
	q.Set("docTypeId", "1418")
	q.Set("isVersionId", "false")
	q.Set("docType", d.TypeDescription)
	q.Set("docName", d.Name)
	q.Set("eventName", d.EventDescription)
	return c.downloadURL + "?" + q.Encode()
}

// Download fetches the document's PDF bytes, retrying transport transients.
func (c *Catalog) Download(ctx context.Context, d model.DocumentDescriptor) ([]byte, error) {
	body, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, c.DownloadURL(d))
	})
	if err != nil {
		return nil, eris.Wrapf(err, "portal: download document %q for case %s", d.Name, d.CaseNumber)
	}
	return body, nil
}

func (c *Catalog) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "portal: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "portal: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		statusErr := eris.Errorf("portal: unexpected status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}
	return body, nil
}
