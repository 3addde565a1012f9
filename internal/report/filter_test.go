package report

import (
	"testing"
	"time"

	"cert-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(days int) *time.Time {
	t := now.Add(time.Duration(days) * 24 * time.Hour)
	return &t
}

func fixtures() []domain.Certificate {
	return []domain.Certificate{
		{ID: primitive.NewObjectID(), Domain: "shop.example.com", Type: domain.TypeWebPage, Status: "active", ExpirationDate: at(90)},
		{ID: primitive.NewObjectID(), Domain: "api.example.com", Type: domain.TypeWebPage, Status: "Active", ExpirationDate: at(10)},
		{ID: primitive.NewObjectID(), Domain: "mobile.acme.io", Type: domain.TypeAppMobile, Status: "active", ExpirationDate: at(3)},
		{ID: primitive.NewObjectID(), Domain: "old.acme.io", Type: domain.TypeWebPage, Status: "inactive", ExpirationDate: at(-5)},
		{ID: primitive.NewObjectID(), Domain: "blank.net", Type: domain.TypeWebPage, Status: "active"},
	}
}

func domains(certs []domain.Certificate) []string {
	out := make([]string, 0, len(certs))
	for _, c := range certs {
		out = append(out, c.Domain)
	}
	return out
}

func TestFilterCertificates_NoFiltersIsIdentity(t *testing.T) {
	all := fixtures()
	got := FilterCertificates(all, CertificateFilter{}, now)
	assert.Equal(t, all, got)
}

func TestFilterCertificates(t *testing.T) {
	tests := []struct {
		name   string
		filter CertificateFilter
		want   []string
	}{
		{
			name:   "domain terms are OR'd and case-insensitive",
			filter: CertificateFilter{Domains: " SHOP , mobile,, "},
			want:   []string{"shop.example.com", "mobile.acme.io"},
		},
		{
			name:   "type",
			filter: CertificateFilter{Type: domain.TypeAppMobile},
			want:   []string{"mobile.acme.io"},
		},
		{
			name:   "status ignores case",
			filter: CertificateFilter{Status: "active"},
			want:   []string{"shop.example.com", "api.example.com", "mobile.acme.io", "blank.net"},
		},
		{
			name:   "inclusive date range",
			filter: CertificateFilter{ExpirationFrom: at(3), ExpirationTo: at(10)},
			want:   []string{"api.example.com", "mobile.acme.io"},
		},
		{
			name:   "lower bound only",
			filter: CertificateFilter{ExpirationFrom: at(10)},
			want:   []string{"shop.example.com", "api.example.com"},
		},
		{
			name:   "expiring only",
			filter: CertificateFilter{IncludeExpiring: true},
			want:   []string{"api.example.com", "mobile.acme.io"},
		},
		{
			name:   "expired only",
			filter: CertificateFilter{IncludeExpired: true},
			want:   []string{"old.acme.io"},
		},
		{
			name:   "expiring and expired are unioned",
			filter: CertificateFilter{IncludeExpiring: true, IncludeExpired: true},
			want:   []string{"api.example.com", "mobile.acme.io", "old.acme.io"},
		},
		{
			name:   "categories are AND'd",
			filter: CertificateFilter{Domains: "acme", IncludeExpiring: true, IncludeExpired: true, Type: domain.TypeWebPage},
			want:   []string{"old.acme.io"},
		},
		{
			name:   "nothing matches",
			filter: CertificateFilter{Domains: "nope"},
			want:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterCertificates(fixtures(), tt.filter, now)
			assert.Equal(t, tt.want, domains(got))
		})
	}
}

func TestUnionByID_Deduplicates(t *testing.T) {
	all := fixtures()
	got := unionByID(all, all[1:3], all[2:4])
	require.Len(t, got, 3)
	assert.Equal(t, []string{"api.example.com", "mobile.acme.io", "old.acme.io"}, domains(got))
}

func TestDomainTerms(t *testing.T) {
	assert.Nil(t, DomainTerms(""))
	assert.Nil(t, DomainTerms(" , ,"))
	assert.Equal(t, []string{"a.com", "b"}, DomainTerms("A.com, B "))
}

func TestFilterClients(t *testing.T) {
	intp := func(v int) *int { return &v }
	fp := func(v float64) *float64 { return &v }
	upd := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	clients := []domain.Client{
		{Name: "Alpha Corp", IsActive: true, Infrastructure: &domain.Infrastructure{
			ComputerCount: intp(40), RAMTotalGB: fp(128), StorageTotalGB: fp(2000), StorageUsedGB: fp(1800),
			ExecutableLastUpdate: &upd,
		}},
		{Name: "Beta LLC", ContactEmail: "ops@beta.test", IsActive: true, Infrastructure: &domain.Infrastructure{
			ComputerCount: intp(5), ExecutableVersion: "v1",
		}},
		{Name: "Gamma", IsActive: false},
	}

	tests := []struct {
		name   string
		filter ClientFilter
		want   []string
	}{
		{"no filters", ClientFilter{}, []string{"Alpha Corp", "Beta LLC", "Gamma"}},
		{"active only", ClientFilter{ActiveOnly: true}, []string{"Alpha Corp", "Beta LLC"}},
		{"search email", ClientFilter{Search: "BETA.test"}, []string{"Beta LLC"}},
		{"min computers", ClientFilter{MinComputers: intp(10)}, []string{"Alpha Corp"}},
		{"max computers", ClientFilter{MaxComputers: intp(10)}, []string{"Beta LLC"}},
		{"min ram", ClientFilter{MinRAMGB: fp(64)}, []string{"Alpha Corp"}},
		{"storage usage", ClientFilter{MinStorageUsePercent: fp(85)}, []string{"Alpha Corp"}},
		{"has infrastructure", ClientFilter{HasInfrastructure: true}, []string{"Alpha Corp", "Beta LLC"}},
		{"recent executables", ClientFilter{Freshness: domain.FreshnessRecent}, []string{"Alpha Corp"}},
		{"undated executables", ClientFilter{Freshness: domain.FreshnessUndated}, []string{"Beta LLC", "Gamma"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterClients(clients, tt.filter, 2025)
			names := make([]string, 0, len(got))
			for _, c := range got {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
