package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/insight"

	"github.com/goccy/go-json"
)

// BOM 讓 Excel 以 UTF-8 開啟 CSV
const BOM = "\xEF\xBB\xBF"

const dateLayout = "2006-01-02"

// FileName 匯出檔名：<base>-<YYYY-MM-DD>.<ext>
func FileName(base, ext string, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", base, now.Format(dateLayout), ext)
}

// 逗號換成分號，換行換成空白，欄位不加引號也不會破壞列結構
var csvFieldReplacer = strings.NewReplacer(",", ";", "\r\n", " ", "\n", " ", "\r", " ")

// CSV 欄位內的逗號一律換成分號後直接以逗號串接 (不加引號)，開頭加上 BOM
func CSV(header []string, rows [][]string) []byte {
	var b strings.Builder
	b.WriteString(BOM)
	writeCSVLine(&b, header)
	for _, row := range rows {
		writeCSVLine(&b, row)
	}
	return []byte(b.String())
}

func writeCSVLine(b *strings.Builder, fields []string) {
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(csvFieldReplacer.Replace(field))
	}
	b.WriteByte('\n')
}

var certificateHeader = []string{"Domain", "Type", "Status", "Expiration Date", "Days Remaining", "Urgency", "Description"}

// CertificatesCSV 憑證報表
func CertificatesCSV(certs []domain.Certificate, now time.Time) []byte {
	rows := make([][]string, 0, len(certs))
	for _, c := range certs {
		days, urgency := insight.ClassifyPtr(c.ExpirationDate, now)
		expiration, remaining := "", ""
		if urgency != domain.UrgencyUnknown {
			expiration = c.ExpirationDate.Format(dateLayout)
			remaining = strconv.Itoa(days)
		}
		rows = append(rows, []string{
			c.Domain,
			string(c.Type),
			c.Status,
			expiration,
			remaining,
			string(urgency),
			c.Description,
		})
	}
	return CSV(certificateHeader, rows)
}

var clientHeader = []string{
	"Client", "Contact", "Email", "Active", "Computers", "Servers",
	"RAM Total (GB)", "RAM Used (GB)", "Storage Total (GB)", "Storage Used (GB)",
	"Executable Version", "Executable Last Update", "Executable Resolved Date", "Executable Status",
}

// ClientsCSV 客戶設備報表
func ClientsCSV(clients []domain.Client, currentYear int) []byte {
	rows := make([][]string, 0, len(clients))
	for _, c := range clients {
		v := insight.ViewClient(c, currentYear)
		row := []string{c.Name, c.ContactName, c.ContactEmail, strconv.FormatBool(c.IsActive)}

		infra := c.Infrastructure
		if infra == nil {
			infra = &domain.Infrastructure{}
		}
		row = append(row,
			formatInt(infra.ComputerCount),
			formatInt(infra.ServerCount),
			formatFloat(infra.RAMTotalGB),
			formatFloat(infra.RAMUsedGB),
			formatFloat(infra.StorageTotalGB),
			formatFloat(infra.StorageUsedGB),
			infra.ExecutableVersion,
			formatDate(infra.ExecutableLastUpdate),
			formatDate(v.ExecutableResolvedDate),
			string(v.ExecutableFreshness),
		)
		rows = append(rows, row)
	}
	return CSV(clientHeader, rows)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// CertificateDocument 憑證 JSON 報表，summary 為篩選後的統計
type CertificateDocument struct {
	GeneratedAt  time.Time                 `json:"generated_at"`
	Filters      CertificateFilter         `json:"filters"`
	Summary      domain.CertificateSummary `json:"summary"`
	Certificates []domain.CertificateView  `json:"certificates"`
}

// ClientDocument 客戶 JSON 報表
type ClientDocument struct {
	GeneratedAt time.Time            `json:"generated_at"`
	Filters     ClientFilter         `json:"filters"`
	Summary     domain.ClientSummary `json:"summary"`
	Clients     []domain.ClientView  `json:"clients"`
}

func CertificatesDocument(certs []domain.Certificate, f CertificateFilter, now time.Time) CertificateDocument {
	return CertificateDocument{
		GeneratedAt:  now,
		Filters:      f,
		Summary:      insight.SummarizeCertificates(certs, now),
		Certificates: insight.ViewCertificates(certs, now),
	}
}

func ClientsDocument(clients []domain.Client, f ClientFilter, now time.Time) ClientDocument {
	return ClientDocument{
		GeneratedAt: now,
		Filters:     f,
		Summary:     insight.SummarizeClients(clients, now.Year()),
		Clients:     insight.ViewClients(clients, now.Year()),
	}
}

// JSON 兩格縮排
func JSON(doc any) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}
