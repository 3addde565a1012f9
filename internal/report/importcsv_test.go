package report

import (
	"errors"
	"strings"
	"testing"

	"cert-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseImport_ReorderedHeaderAndExtraColumns(t *testing.T) {
	input := BOM + "Type,Domain,owner,expiration_date,status,description\n" +
		"web_page,a.com,bob,2025-09-01,active,main site\n" +
		"APP_MOBILE,b.app,ann,01/10/2025,,\n"

	rows, err := ParseImport(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.NoError(t, rows[0].Err)
	assert.Equal(t, "a.com", rows[0].Certificate.Domain)
	assert.Equal(t, domain.TypeWebPage, rows[0].Certificate.Type)
	assert.Equal(t, "main site", rows[0].Certificate.Description)
	assert.Equal(t, "2025-09-01", rows[0].Certificate.ExpirationDate.Format("2006-01-02"))

	assert.NoError(t, rows[1].Err)
	assert.Equal(t, domain.TypeAppMobile, rows[1].Certificate.Type)
	assert.Equal(t, domain.StatusActive, rows[1].Certificate.Status)
	assert.Equal(t, "2025-10-01", rows[1].Certificate.ExpirationDate.Format("2006-01-02"))
}

func TestParseImport_BadRowIsReportedNotFatal(t *testing.T) {
	input := "domain,type,status,expiration_date,description\n" +
		"r1.com,WEB_PAGE,active,2025-01-01,\n" +
		"r2.com,WEB_PAGE,active,2025-01-02,\n" +
		"r3.com,WEB_PAGE,active,not-a-date,\n" +
		"\n" +
		"r4.com,WEB_PAGE,active,2025-01-04,\n"

	rows, err := ParseImport(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.NoError(t, rows[0].Err)
	assert.NoError(t, rows[1].Err)
	assert.Error(t, rows[2].Err)
	assert.Equal(t, 3, rows[2].Row)
	assert.NoError(t, rows[3].Err)
	assert.Equal(t, 4, rows[3].Row)
}

func TestParseImport_RowValidation(t *testing.T) {
	input := "domain,type,status,expiration_date,description\n" +
		",WEB_PAGE,active,2025-01-01,\n" +
		"x.com,DESKTOP,active,2025-01-01,\n" +
		"y.com,WEB_PAGE,active,,\n"

	rows, err := ParseImport(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.ErrorContains(t, rows[0].Err, "domain")
	assert.ErrorContains(t, rows[1].Err, "type")
	assert.ErrorContains(t, rows[2].Err, "expiration_date")
}

func TestParseImport_MissingColumns(t *testing.T) {
	_, err := ParseImport(strings.NewReader("domain,type\na.com,WEB_PAGE\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingColumns))
	assert.Contains(t, err.Error(), "status")

	_, err = ParseImport(strings.NewReader(""))
	assert.True(t, errors.Is(err, ErrMissingColumns))
}

func TestParseImport_NormalizesDomain(t *testing.T) {
	input := "domain,type,status,expiration_date,description\n" +
		"  Shop.Example.COM ,WEB_PAGE,active,2025-01-01,\n"

	rows, err := ParseImport(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, rows[0].Err)
	assert.Equal(t, "shop.example.com", rows[0].Certificate.Domain)
}
