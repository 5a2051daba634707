package fiscal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/facturacion/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
)

// HTTPCertificateStatusFetcher asks the tax-authority gateway whether a
// company's digital certificate is still active. Responses are consumed
// through CertificateStatusCache; this type only knows how to fetch.
type HTTPCertificateStatusFetcher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPCertificateStatusFetcher creates a fetcher against the gateway base
// URL. A nil client falls back to a 10 second timeout default.
func NewHTTPCertificateStatusFetcher(baseURL string, client *http.Client) *HTTPCertificateStatusFetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPCertificateStatusFetcher{
		baseURL: baseURL,
		client:  client,
	}
}

type certificateStatusResponse struct {
	Active     bool      `json:"active"`
	Authority  string    `json:"authority"`
	ValidUntil time.Time `json:"valid_until"`
	Detail     string    `json:"detail"`
}

// FetchCertificateStatus implements cache.CertificateStatusFetcher
func (f *HTTPCertificateStatusFetcher) FetchCertificateStatus(ctx context.Context, companyID uuid.UUID) (cache.CertificateStatus, error) {
	endpoint, err := url.JoinPath(f.baseURL, "certificates", companyID.String(), "status")
	if err != nil {
		return cache.CertificateStatus{}, fmt.Errorf("failed to build certificate status URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return cache.CertificateStatus{}, fmt.Errorf("failed to build certificate status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return cache.CertificateStatus{}, fmt.Errorf("certificate status request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return cache.CertificateStatus{}, fmt.Errorf("certificate status request returned %d", resp.StatusCode)
	}

	var body certificateStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return cache.CertificateStatus{}, fmt.Errorf("failed to decode certificate status: %w", err)
	}

	return cache.CertificateStatus{
		Active:     body.Active,
		Authority:  body.Authority,
		ValidUntil: body.ValidUntil,
		Detail:     body.Detail,
	}, nil
}

var _ cache.CertificateStatusFetcher = (*HTTPCertificateStatusFetcher)(nil)
