package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingFetcher struct {
	calls  int
	status CertificateStatus
	err    error
}

func (f *countingFetcher) FetchCertificateStatus(context.Context, uuid.UUID) (CertificateStatus, error) {
	f.calls++
	if f.err != nil {
		return CertificateStatus{}, f.err
	}
	return f.status, nil
}

func newTestCache(fetcher CertificateStatusFetcher, ttl time.Duration) (*CertificateStatusCache, *time.Time) {
	c := NewCertificateStatusCache(fetcher, ttl)
	current := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }
	return c, &current
}

func TestCertificateStatusCache_FetchesOnMiss(t *testing.T) {
	fetcher := &countingFetcher{status: CertificateStatus{Active: true, Authority: "AFIP"}}
	c, _ := newTestCache(fetcher, time.Minute)
	companyID := uuid.New()

	status, err := c.Get(context.Background(), companyID)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, 1, fetcher.calls)
}

func TestCertificateStatusCache_ServesFreshEntry(t *testing.T) {
	fetcher := &countingFetcher{status: CertificateStatus{Active: true}}
	c, _ := newTestCache(fetcher, time.Minute)
	companyID := uuid.New()

	_, err := c.Get(context.Background(), companyID)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), companyID)
	require.NoError(t, err)

	assert.Equal(t, 1, fetcher.calls)
}

func TestCertificateStatusCache_RefetchesAfterTTL(t *testing.T) {
	fetcher := &countingFetcher{status: CertificateStatus{Active: true}}
	c, now := newTestCache(fetcher, time.Minute)
	companyID := uuid.New()

	_, err := c.Get(context.Background(), companyID)
	require.NoError(t, err)

	*now = now.Add(61 * time.Second)
	_, err = c.Get(context.Background(), companyID)
	require.NoError(t, err)

	assert.Equal(t, 2, fetcher.calls)
}

func TestCertificateStatusCache_FetchErrorKeepsCacheClean(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("gateway timeout")}
	c, _ := newTestCache(fetcher, time.Minute)
	companyID := uuid.New()

	_, err := c.Get(context.Background(), companyID)
	assert.Error(t, err)

	_, ok := c.Peek(companyID)
	assert.False(t, ok)
}

func TestCertificateStatusCache_Invalidate(t *testing.T) {
	fetcher := &countingFetcher{status: CertificateStatus{Active: true}}
	c, _ := newTestCache(fetcher, time.Minute)
	companyID := uuid.New()

	_, err := c.Get(context.Background(), companyID)
	require.NoError(t, err)

	c.Invalidate(companyID)
	_, ok := c.Peek(companyID)
	assert.False(t, ok)

	_, err = c.Get(context.Background(), companyID)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestCertificateStatusCache_InvalidateAll(t *testing.T) {
	fetcher := &countingFetcher{status: CertificateStatus{Active: true}}
	c, _ := newTestCache(fetcher, time.Minute)
	first := uuid.New()
	second := uuid.New()

	_, err := c.Get(context.Background(), first)
	require.NoError(t, err)
	_, err = c.Get(context.Background(), second)
	require.NoError(t, err)

	c.InvalidateAll()

	_, ok := c.Peek(first)
	assert.False(t, ok)
	_, ok = c.Peek(second)
	assert.False(t, ok)
}

func TestCertificateStatusCache_PeekDoesNotFetch(t *testing.T) {
	fetcher := &countingFetcher{status: CertificateStatus{Active: true}}
	c, now := newTestCache(fetcher, time.Minute)
	companyID := uuid.New()

	_, ok := c.Peek(companyID)
	assert.False(t, ok)
	assert.Equal(t, 0, fetcher.calls)

	_, err := c.Get(context.Background(), companyID)
	require.NoError(t, err)

	status, ok := c.Peek(companyID)
	assert.True(t, ok)
	assert.True(t, status.Active)

	// a stale entry is a miss for Peek as well
	*now = now.Add(2 * time.Minute)
	_, ok = c.Peek(companyID)
	assert.False(t, ok)
}

func TestNewCertificateStatusCache_DefaultTTL(t *testing.T) {
	c := NewCertificateStatusCache(&countingFetcher{}, 0)
	assert.Equal(t, DefaultCertificateStatusTTL, c.ttl)
}
