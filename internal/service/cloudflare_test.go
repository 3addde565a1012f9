package service

import (
	"context"
	"errors"
	"testing"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/repository/memrepo"

	"github.com/cloudflare/cloudflare-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudflare struct {
	zones   []cloudflare.Zone
	records map[string][][]cloudflare.DNSRecord // zone id -> pages
	failing map[string]bool
}

func (f *fakeCloudflare) ListZones(context.Context, ...string) ([]cloudflare.Zone, error) {
	return f.zones, nil
}

func (f *fakeCloudflare) ListDNSRecords(_ context.Context, rc *cloudflare.ResourceContainer, params cloudflare.ListDNSRecordsParams) ([]cloudflare.DNSRecord, *cloudflare.ResultInfo, error) {
	if f.failing[rc.Identifier] {
		return nil, nil, errors.New("forbidden")
	}
	pages := f.records[rc.Identifier]
	page := params.Page
	if page < 1 || page > len(pages) {
		return nil, &cloudflare.ResultInfo{Page: page, TotalPages: len(pages)}, nil
	}
	return pages[page-1], &cloudflare.ResultInfo{Page: page, TotalPages: len(pages)}, nil
}

func proxied(v bool) *bool { return &v }

func newFakeCloudflare() *fakeCloudflare {
	return &fakeCloudflare{
		zones: []cloudflare.Zone{{ID: "z1", Name: "example.com"}, {ID: "z2", Name: "broken.io"}},
		records: map[string][][]cloudflare.DNSRecord{
			"z1": {
				{
					{Name: "www.example.com", Type: "A", Proxied: proxied(true)},
					{Name: "example.com", Type: "TXT"},
					{Name: "*.example.com", Type: "CNAME"},
				},
				{
					{Name: "API.example.com", Type: "CNAME"},
					{Name: "www.example.com", Type: "AAAA"},
					{Name: "www.example.com", Type: "A"},
				},
			},
		},
		failing: map[string]bool{"z2": true},
	}
}

func TestFetchHostnames(t *testing.T) {
	s := &CloudflareService{api: newFakeCloudflare(), concurrency: 2}

	hosts, err := s.FetchHostnames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Hostname{
		{Name: "api.example.com", Zone: "example.com"},
		{Name: "www.example.com", Zone: "example.com", Proxied: true},
	}, hosts)
}

func TestDiscover_AddsOnlyUntracked(t *testing.T) {
	certs := memrepo.NewCertificates(domain.Certificate{Domain: "www.example.com", Type: domain.TypeWebPage})
	s := &CloudflareService{Certs: certs, api: newFakeCloudflare(), concurrency: 2}

	stats, err := s.Discover(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Found)
	assert.Equal(t, 1, stats.Added)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, []string{"api.example.com"}, stats.AddedList)

	added, err := certs.GetByDomain(context.Background(), "api.example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.TypeWebPage, added.Type)
	assert.Equal(t, domain.StatusPending, added.Status)
	assert.Nil(t, added.ExpirationDate)
}

func TestNewCloudflareService_RequiresToken(t *testing.T) {
	_, err := NewCloudflareService("", nil, nil, nil)
	assert.ErrorIs(t, err, ErrDiscoveryDisabled)
}
