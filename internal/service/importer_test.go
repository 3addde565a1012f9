package service

import (
	"context"
	"testing"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/report"
	"cert-dashboard/internal/repository"
	"cert-dashboard/internal/repository/memrepo"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImport(t *testing.T) {
	certs := memrepo.NewCertificates(domain.Certificate{Domain: "exists.com", Type: domain.TypeWebPage})
	s := NewImportService(certs, nil)

	payload := []byte("domain,type,status,expiration_date,description\n" +
		"one.com,WEB_PAGE,active,2025-09-01,first\n" +
		"exists.com,WEB_PAGE,active,2025-09-01,\n" +
		"bad.com,WEB_PAGE,active,2025-13-45,\n" +
		"app.one.com,APP_MOBILE,,01/10/2025,\n")

	res, err := s.Import(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Imported)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, 2, res.Failed[0].Row)
	assert.Equal(t, "exists.com", res.Failed[0].Domain)
	assert.Contains(t, res.Failed[0].Error, "already exists")
	assert.Equal(t, 3, res.Failed[1].Row)

	app, err := certs.GetByDomain(context.Background(), "app.one.com")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, app.Status)
	assert.Equal(t, "2025-10-01", app.ExpirationDate.Format("2006-01-02"))
}

func TestImport_BadHeader(t *testing.T) {
	s := NewImportService(memrepo.NewCertificates(), nil)

	_, err := s.Import(context.Background(), []byte("name,expires\nx,y\n"))
	assert.ErrorIs(t, err, report.ErrMissingColumns)
}

func TestImport_CaseVariantDomainIsDuplicate(t *testing.T) {
	certs := memrepo.NewCertificates(domain.Certificate{Domain: "shop.example.com", Type: domain.TypeWebPage})
	s := NewImportService(certs, nil)

	payload := []byte("domain,type,status,expiration_date,description\n" +
		"Shop.Example.com,WEB_PAGE,active,2025-09-01,\n")

	res, err := s.Import(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Imported)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "shop.example.com", res.Failed[0].Domain)
	assert.Contains(t, res.Failed[0].Error, "already exists")

	all, err := certs.List(context.Background(), repository.CertificateQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// ctxAwareCerts 模擬真實資料庫：context 取消後寫入會失敗
type ctxAwareCerts struct {
	repository.CertificateRepository
}

func (r ctxAwareCerts) Create(ctx context.Context, cert domain.Certificate) (*domain.Certificate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.CertificateRepository.Create(ctx, cert)
}

func TestImport_SurvivesCallerCancellation(t *testing.T) {
	certs := memrepo.NewCertificates()
	s := NewImportService(ctxAwareCerts{certs}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := s.Import(ctx, []byte("domain,type,status,expiration_date,description\n"+
		"one.com,WEB_PAGE,active,2025-09-01,\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Empty(t, res.Failed)

	_, err = certs.GetByDomain(context.Background(), "one.com")
	assert.NoError(t, err)
}
