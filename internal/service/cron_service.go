package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cert-dashboard/internal/repository"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	JobExpiryCheck = "expiry_check"
	JobScan        = "scan"
	JobSync        = "sync"
)

// CheckStats 到期檢查統計
type CheckStats struct {
	Checked int `json:"checked"`
	Alerted int `json:"alerted"`
	Failed  int `json:"failed"`
}

type CronService struct {
	Cron      *cron.Cron
	Settings  repository.SettingsRepository
	Certs     repository.CertificateRepository
	Notifier  *NotifierService
	Scanner   *ScannerService
	Discovery *CloudflareService // 未設定 Cloudflare token 時為 nil

	mu       sync.Mutex
	EntryIDs map[string]cron.EntryID
}

func NewCronService(settings repository.SettingsRepository, certs repository.CertificateRepository, notifier *NotifierService, scanner *ScannerService, discovery *CloudflareService) *CronService {
	logger := cron.PrintfLogger(logrus.StandardLogger())
	return &CronService{
		// 上一輪還沒跑完就跳過這一輪
		Cron:      cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		Settings:  settings,
		Certs:     certs,
		Notifier:  notifier,
		Scanner:   scanner,
		Discovery: discovery,
		EntryIDs:  make(map[string]cron.EntryID),
	}
}

// ValidateSchedule 檢查標準 5 欄位 Cron 表達式
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", spec, err)
	}
	return nil
}

// Start 啟動排程
func (s *CronService) Start(ctx context.Context) {
	s.ReloadJobs(ctx)
	s.Cron.Start()
}

// Stop 等待執行中的任務結束
func (s *CronService) Stop() {
	<-s.Cron.Stop().Done()
}

// ReloadJobs 重新讀取資料庫設定並排程，儲存設定後呼叫
func (s *CronService) ReloadJobs(ctx context.Context) {
	settings, err := s.Settings.Get(ctx)
	if err != nil {
		logrus.Errorf("無法讀取設定，略過排程啟動: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// 1. 清除舊任務
	for _, id := range s.EntryIDs {
		s.Cron.Remove(id)
	}
	s.EntryIDs = make(map[string]cron.EntryID)

	// 2. 到期檢查
	if settings.CheckEnabled {
		s.registerJob(JobExpiryCheck, settings.CheckSchedule, func() {
			if _, err := s.PerformExpiryCheck(context.Background(), time.Now()); err != nil {
				logrus.Errorf("❌ [Cron] 到期檢查失敗: %v", err)
			}
		})
	}

	// 3. 網站憑證掃描
	if settings.ScanEnabled && s.Scanner != nil {
		s.registerJob(JobScan, settings.ScanSchedule, func() {
			if _, err := s.Scanner.ScanAll(context.Background()); err != nil {
				logrus.Errorf("❌ [Cron] 憑證掃描失敗: %v", err)
			}
		})
	}

	// 4. Cloudflare 主機名稱探索
	if settings.SyncEnabled {
		if s.Discovery == nil {
			logrus.Warn("⚠️ [Cron] 已開啟 Cloudflare 探索，但未設定 API Token，略過")
		} else {
			s.registerJob(JobSync, settings.SyncSchedule, func() {
				if _, err := s.Discovery.Discover(context.Background()); err != nil {
					logrus.Errorf("❌ [Cron] Cloudflare 探索失敗: %v", err)
				}
			})
		}
	}
}

// registerJob 呼叫端需持有 mu
func (s *CronService) registerJob(name, schedule string, cmd func()) {
	id, err := s.Cron.AddFunc(schedule, cmd)
	if err != nil {
		logrus.Errorf("排程註冊失敗 [%s]: %v", name, err)
		return
	}
	s.EntryIDs[name] = id
	logrus.Infof("已排程自動任務 [%s]: %s", name, schedule)
}

// Jobs 目前已排程的任務名稱與下次執行時間
func (s *CronService) Jobs() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make(map[string]time.Time, len(s.EntryIDs))
	for name, id := range s.EntryIDs {
		jobs[name] = s.Cron.Entry(id).Next
	}
	return jobs
}

// PerformExpiryCheck 對所有憑證分級並發送需要的告警
func (s *CronService) PerformExpiryCheck(ctx context.Context, now time.Time) (CheckStats, error) {
	logrus.Info("🚀 [Cron] 開始執行到期檢查...")

	settings, err := s.Settings.Get(ctx)
	if err != nil {
		return CheckStats{}, err
	}
	certs, err := s.Certs.List(ctx, repository.CertificateQuery{})
	if err != nil {
		return CheckStats{}, err
	}

	stats := CheckStats{Checked: len(certs)}
	for _, c := range certs {
		alerted, err := s.Notifier.CheckAndNotify(ctx, c, settings, now)
		if err != nil {
			stats.Failed++
			logrus.Errorf("❌ [Cron] %s 告警失敗: %v", c.Domain, err)
			continue
		}
		if alerted {
			stats.Alerted++
		}
	}

	logrus.Infof("🏁 [Cron] 到期檢查完成: 共 %d，告警 %d，失敗 %d", stats.Checked, stats.Alerted, stats.Failed)
	return stats, nil
}
