package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"cert-dashboard/internal/repository"
	"cert-dashboard/internal/report"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ImportFailure 匯入失敗的單列
type ImportFailure struct {
	Row    int    `json:"row"`
	Domain string `json:"domain"`
	Error  string `json:"error"`
}

type ImportResult struct {
	Total    int             `json:"total"`
	Imported int             `json:"imported"`
	Failed   []ImportFailure `json:"failed"`
}

type ImportService struct {
	Certs    repository.CertificateRepository
	Notifier *NotifierService

	group singleflight.Group
}

func NewImportService(certs repository.CertificateRepository, notifier *NotifierService) *ImportService {
	return &ImportService{Certs: certs, Notifier: notifier}
}

// Import 逐列建立憑證，失敗的列記錄後略過。
// 同一份檔案在前一次還沒跑完時重送，會直接共用前一次的結果。
func (s *ImportService) Import(ctx context.Context, payload []byte) (*ImportResult, error) {
	sum := sha256.Sum256(payload)
	key := hex.EncodeToString(sum[:])

	// 共用的那次匯入不能跟著第一個呼叫者斷線而取消
	shareCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.importCSV(shareCtx, payload)
	})
	if shared {
		logrus.Warnf("⚠️ [Import] 偵測到重複送出的匯入請求，共用同一次結果 (%s)", key[:12])
	}
	if err != nil {
		return nil, err
	}
	return v.(*ImportResult), nil
}

func (s *ImportService) importCSV(ctx context.Context, payload []byte) (*ImportResult, error) {
	rows, err := report.ParseImport(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Total: len(rows), Failed: []ImportFailure{}}
	for _, row := range rows {
		err := row.Err
		if err == nil {
			_, err = s.Certs.Create(ctx, row.Certificate)
			if errors.Is(err, repository.ErrDuplicate) {
				err = fmt.Errorf("domain %q already exists", row.Certificate.Domain)
			}
		}
		if err != nil {
			logrus.Warnf("[Import] 第 %d 列略過 (%s): %v", row.Row, row.Certificate.Domain, err)
			result.Failed = append(result.Failed, ImportFailure{Row: row.Row, Domain: row.Certificate.Domain, Error: err.Error()})
			continue
		}
		result.Imported++
	}

	logrus.Infof("📦 [Import] 匯入完成: 共 %d 列，成功 %d，失敗 %d", result.Total, result.Imported, len(result.Failed))
	if s.Notifier != nil && result.Imported > 0 {
		s.Notifier.NotifyOperation(ctx, EventImport, "",
			fmt.Sprintf("總列數: %d\n成功: %d\n失敗: %d", result.Total, result.Imported, len(result.Failed)))
	}
	return result, nil
}
