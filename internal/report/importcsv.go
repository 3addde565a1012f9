package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cert-dashboard/internal/domain"
)

// ImportColumns 匯入檔必須包含的表頭 (順序不限，多的欄位忽略)
var ImportColumns = []string{"domain", "type", "status", "expiration_date", "description"}

var ErrMissingColumns = errors.New("import file is missing required columns")

var importDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
}

// ImportRow 單一資料列的解析結果；Err 不為 nil 時該列會被略過
type ImportRow struct {
	Row         int // 資料列序號，從 1 開始 (不含表頭)
	Certificate domain.Certificate
	Err         error
}

// ParseImport 解析匯入用 CSV。只有表頭或檔案本身錯誤才回傳 error，
// 單列的問題記在 ImportRow.Err。
func ParseImport(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMissingColumns)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, BOM)
		}
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, col := range ImportColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	var rows []ImportRow
	for n := 1; ; n++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// 格式壞掉的那一列記錄下來，繼續讀下一列
			rows = append(rows, ImportRow{Row: n, Err: err})
			continue
		}
		if isBlank(record) {
			n--
			continue
		}

		get := func(col string) string {
			i := index[col]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		cert, err := certificateFromRow(get)
		rows = append(rows, ImportRow{Row: n, Certificate: cert, Err: err})
	}
	return rows, nil
}

func certificateFromRow(get func(string) string) (domain.Certificate, error) {
	cert := domain.Certificate{
		Domain:      strings.ToLower(strings.TrimSpace(get("domain"))),
		Status:      get("status"),
		Description: get("description"),
	}
	if cert.Domain == "" {
		return cert, errors.New("domain is required")
	}

	t, ok := domain.ParseCertificateType(get("type"))
	if !ok {
		return cert, fmt.Errorf("invalid type %q", get("type"))
	}
	cert.Type = t

	exp, err := ParseDate(get("expiration_date"))
	if err != nil {
		return cert, err
	}
	cert.ExpirationDate = &exp

	if cert.Status == "" {
		cert.Status = domain.StatusActive
	}
	return cert, nil
}

// ParseDate 依序嘗試匯入支援的日期格式
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("expiration_date is required")
	}
	for _, layout := range importDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid expiration_date %q", s)
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
