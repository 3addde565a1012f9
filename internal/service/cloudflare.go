package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/repository"

	"github.com/cloudflare/cloudflare-go"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

var ErrDiscoveryDisabled = errors.New("cloudflare api token is not configured")

const dnsPageSize = 100

// cloudflareAPI *cloudflare.API 中用到的部分
type cloudflareAPI interface {
	ListZones(ctx context.Context, z ...string) ([]cloudflare.Zone, error)
	ListDNSRecords(ctx context.Context, rc *cloudflare.ResourceContainer, params cloudflare.ListDNSRecordsParams) ([]cloudflare.DNSRecord, *cloudflare.ResultInfo, error)
}

// Hostname Cloudflare 上找到的 A / CNAME 紀錄
type Hostname struct {
	Name    string `json:"name"`
	Zone    string `json:"zone"`
	Proxied bool   `json:"proxied"`
}

// DiscoveryStats 一次探索的結果
type DiscoveryStats struct {
	Found     int      `json:"found"`
	Added     int      `json:"added"`
	AddedList []string `json:"added_list"`
	Skipped   int      `json:"skipped"` // 已在追蹤清單中
	Failed    int      `json:"failed"`
	Duration  string   `json:"duration"`
}

type CloudflareService struct {
	Certs    repository.CertificateRepository
	Scanner  *ScannerService
	Notifier *NotifierService

	api         cloudflareAPI
	concurrency int
}

// NewCloudflareService token 為空時回傳 ErrDiscoveryDisabled
func NewCloudflareService(token string, certs repository.CertificateRepository, scanner *ScannerService, notifier *NotifierService) (*CloudflareService, error) {
	if token == "" {
		return nil, ErrDiscoveryDisabled
	}
	api, err := cloudflare.NewWithAPIToken(token)
	if err != nil {
		return nil, err
	}
	return &CloudflareService{Certs: certs, Scanner: scanner, Notifier: notifier, api: api, concurrency: 5}, nil
}

// FetchHostnames 列出所有 Zone 下的 A 與 CNAME 主機名稱 (已去重並排序)
func (s *CloudflareService) FetchHostnames(ctx context.Context) ([]Hostname, error) {
	zones, err := s.api.ListZones(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var hosts []Hostname

	for _, zone := range zones {
		logrus.Infof("🔍 [Cloudflare] 正在掃描 Zone: %s", zone.Name)

		for page := 1; ; page++ {
			params := cloudflare.ListDNSRecordsParams{
				ResultInfo: cloudflare.ResultInfo{Page: page, PerPage: dnsPageSize},
			}
			records, info, err := s.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zone.ID), params)
			if err != nil {
				logrus.Errorf("❌ [Cloudflare] 無法獲取 Zone %s 的紀錄: %v", zone.Name, err)
				break
			}

			for _, record := range records {
				// 只監控 A 和 CNAME；萬用字元無法連線檢查
				if record.Type != "A" && record.Type != "CNAME" {
					continue
				}
				name := strings.ToLower(strings.TrimSuffix(record.Name, "."))
				if strings.HasPrefix(name, "*.") || seen[name] {
					continue
				}
				seen[name] = true
				hosts = append(hosts, Hostname{
					Name:    name,
					Zone:    zone.Name,
					Proxied: record.Proxied != nil && *record.Proxied,
				})
			}

			if info == nil || info.TotalPages <= page || len(records) == 0 {
				break
			}
		}
	}

	sort.Slice(hosts, func(i, j int) bool { return hosts[i].Name < hosts[j].Name })
	logrus.Infof("☁️ [Cloudflare] 共找到 %d 個主機名稱", len(hosts))
	return hosts, nil
}

// Discover 把尚未追蹤的主機名稱建成 WEB_PAGE 憑證。
// 新項目會先連線取得到期日，取不到則以 pending 狀態建立，等下一次掃描補上。
func (s *CloudflareService) Discover(ctx context.Context) (DiscoveryStats, error) {
	start := time.Now()
	stats := DiscoveryStats{AddedList: []string{}}

	hosts, err := s.FetchHostnames(ctx)
	if err != nil {
		return stats, err
	}
	stats.Found = len(hosts)

	existing, err := s.Certs.List(ctx, repository.CertificateQuery{})
	if err != nil {
		return stats, err
	}
	tracked := make(map[string]bool, len(existing))
	for _, c := range existing {
		tracked[strings.ToLower(c.Domain)] = true
	}

	var mu sync.Mutex
	p := pool.New().WithMaxGoroutines(s.concurrency)
	for _, h := range hosts {
		if tracked[h.Name] {
			stats.Skipped++
			continue
		}
		p.Go(func() {
			cert := s.newCertificate(ctx, h)
			_, err := s.Certs.Create(ctx, cert)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(err, repository.ErrDuplicate):
				stats.Skipped++
			case err != nil:
				stats.Failed++
				logrus.Errorf("❌ [Cloudflare] 建立 %s 失敗: %v", h.Name, err)
			default:
				stats.Added++
				stats.AddedList = append(stats.AddedList, h.Name)
			}
		})
	}
	p.Wait()

	sort.Strings(stats.AddedList)
	stats.Duration = time.Since(start).Round(time.Millisecond).String()
	logrus.Infof("🏁 [Cloudflare] 探索完成: 找到 %d，新增 %d，略過 %d，失敗 %d", stats.Found, stats.Added, stats.Skipped, stats.Failed)

	if stats.Added > 0 && s.Notifier != nil {
		s.Notifier.NotifyOperation(ctx, EventAdd, fmt.Sprintf("%d 個主機名稱", stats.Added), "來源: Cloudflare\n"+strings.Join(stats.AddedList, "\n"))
	}
	return stats, nil
}

func (s *CloudflareService) newCertificate(ctx context.Context, h Hostname) domain.Certificate {
	cert := domain.Certificate{
		Domain:      h.Name,
		Type:        domain.TypeWebPage,
		Status:      domain.StatusPending,
		Description: "Cloudflare zone " + h.Zone,
	}
	if s.Scanner == nil {
		return cert
	}

	probe, err := s.Scanner.Probe(ctx, h.Name)
	if err != nil {
		logrus.Warnf("⚠️ [Cloudflare] %s 無法取得憑證，先以 pending 建立: %v", h.Name, err)
		return cert
	}
	notAfter := probe.NotAfter
	now := time.Now()
	cert.ExpirationDate = &notAfter
	cert.Issuer = probe.Issuer
	cert.LastCheckAt = now
	cert.Status = domain.StatusActive
	return cert
}
