package cache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CertificateStatus is the fiscal authority's answer about a company's
// e-invoicing certificate
type CertificateStatus struct {
	Active     bool      `json:"active"`
	Authority  string    `json:"authority"`
	ValidUntil time.Time `json:"valid_until"`
	Detail     string    `json:"detail,omitempty"`
}

// CertificateStatusFetcher asks the fiscal authority for the current status
type CertificateStatusFetcher interface {
	FetchCertificateStatus(ctx context.Context, companyID uuid.UUID) (CertificateStatus, error)
}

// certEntry pairs the cached data with the moment it was fetched. Freshness
// is always decided against FetchedAt, never implied by the entry's presence.
type certEntry struct {
	Data      CertificateStatus
	FetchedAt time.Time
}

// CertificateStatusCache caches per-company certificate status with a fixed
// TTL. A stale entry is treated as a miss; Invalidate drops the entry so the
// next read refetches, e.g. after the company uploads a new certificate.
type CertificateStatusCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]certEntry
	ttl     time.Duration
	fetcher CertificateStatusFetcher
	now     func() time.Time
}

// DefaultCertificateStatusTTL bounds how long a fiscal authority answer is
// trusted without refetching
const DefaultCertificateStatusTTL = 5 * time.Minute

// NewCertificateStatusCache creates a cache around the given fetcher
func NewCertificateStatusCache(fetcher CertificateStatusFetcher, ttl time.Duration) *CertificateStatusCache {
	if ttl <= 0 {
		ttl = DefaultCertificateStatusTTL
	}
	return &CertificateStatusCache{
		entries: make(map[uuid.UUID]certEntry),
		ttl:     ttl,
		fetcher: fetcher,
		now:     time.Now,
	}
}

// Get returns the cached status when fresh, otherwise fetches, stores and
// returns the new value. Fetch errors are returned without poisoning the
// cache; a previously fresh entry stays untouched.
func (c *CertificateStatusCache) Get(ctx context.Context, companyID uuid.UUID) (CertificateStatus, error) {
	c.mu.RLock()
	e, ok := c.entries[companyID]
	c.mu.RUnlock()

	if ok && c.now().Sub(e.FetchedAt) < c.ttl {
		return e.Data, nil
	}

	data, err := c.fetcher.FetchCertificateStatus(ctx, companyID)
	if err != nil {
		return CertificateStatus{}, err
	}

	c.mu.Lock()
	c.entries[companyID] = certEntry{Data: data, FetchedAt: c.now()}
	c.mu.Unlock()

	return data, nil
}

// Peek returns the cached status without fetching. The second return reports
// whether a fresh entry was present.
func (c *CertificateStatusCache) Peek(companyID uuid.UUID) (CertificateStatus, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[companyID]
	if !ok || c.now().Sub(e.FetchedAt) >= c.ttl {
		return CertificateStatus{}, false
	}
	return e.Data, true
}

// Invalidate drops the entry for one company
func (c *CertificateStatusCache) Invalidate(companyID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, companyID)
}

// InvalidateAll drops every entry
func (c *CertificateStatusCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uuid.UUID]certEntry)
}
