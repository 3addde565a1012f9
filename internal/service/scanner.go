package service

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/insight"
	"cert-dashboard/internal/repository"

	"github.com/cenkalti/backoff/v5"
	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/net/publicsuffix"
)

var (
	// ErrNotProbeable 只有 WEB_PAGE 憑證可以即時連線檢查
	ErrNotProbeable = errors.New("only WEB_PAGE certificates can be probed")
	ErrEmptyTarget  = errors.New("target host is required")
)

const probeAttempts = 3

// ProbeResult 一次 TLS 握手取得的伺服器憑證資訊
type ProbeResult struct {
	Host          string    `json:"host"`
	Port          string    `json:"port"`
	Subject       string    `json:"subject"`
	Issuer        string    `json:"issuer"`
	NotBefore     time.Time `json:"not_before"`
	NotAfter      time.Time `json:"not_after"`
	DNSNames      []string  `json:"dns_names"`
	TLSVersion    string    `json:"tls_version"`
	HostnameMatch bool      `json:"hostname_match"`
	LatencyMS     int64     `json:"latency_ms"`
}

// RefreshResult 單張憑證重新檢查的結果
type RefreshResult struct {
	Certificate *domain.Certificate `json:"certificate"`
	Probe       *ProbeResult        `json:"probe"`
	Renewed     bool                `json:"renewed"` // 伺服器上的憑證到期日比資料庫晚
	Changed     bool                `json:"changed"`
}

// ScanStats 批次掃描統計
type ScanStats struct {
	Total    int    `json:"total"`
	Updated  int    `json:"updated"`
	Renewed  int    `json:"renewed"`
	Failed   int    `json:"failed"`
	Duration string `json:"duration"`
}

// InspectResult 工具頁即時查詢，不寫入資料庫
type InspectResult struct {
	Target         string         `json:"target"`
	Probe          *ProbeResult   `json:"probe,omitempty"`
	ProbeError     string         `json:"probe_error,omitempty"`
	DaysRemaining  *int           `json:"days_remaining,omitempty"`
	Urgency        domain.Urgency `json:"urgency"`
	RootDomain     string         `json:"root_domain"`
	DomainExpiry   *time.Time     `json:"domain_expiry,omitempty"`
	DomainDaysLeft *int           `json:"domain_days_left,omitempty"`
	WhoisError     string         `json:"whois_error,omitempty"`
}

type ScannerService struct {
	Certs    repository.CertificateRepository
	Notifier *NotifierService

	concurrency   int
	timeout       time.Duration
	retryInterval time.Duration

	handshake func(ctx context.Context, host, port string) (*ProbeResult, error)
	lookup    func(domain string) (string, error)
}

func NewScannerService(certs repository.CertificateRepository, notifier *NotifierService, concurrency int, timeout time.Duration) *ScannerService {
	if concurrency <= 0 {
		concurrency = 1
	}
	s := &ScannerService{
		Certs:         certs,
		Notifier:      notifier,
		concurrency:   concurrency,
		timeout:       timeout,
		retryInterval: 2 * time.Second,
		lookup: func(domain string) (string, error) {
			return whois.Whois(domain)
		},
	}
	s.handshake = s.checkSSLHandshake
	return s
}

// ParseTarget 接受 "host"、"host:port" 或完整 URL，預設 443
func ParseTarget(target string) (host, port string, err error) {
	t := strings.TrimSpace(target)
	t = strings.TrimPrefix(strings.TrimPrefix(t, "https://"), "http://")
	if i := strings.IndexAny(t, "/?#"); i >= 0 {
		t = t[:i]
	}
	if t == "" {
		return "", "", ErrEmptyTarget
	}
	if h, p, splitErr := net.SplitHostPort(t); splitErr == nil {
		return strings.ToLower(h), p, nil
	}
	return strings.ToLower(t), "443", nil
}

// Probe 連線取得憑證，失敗時以指數退避重試 (DNS 查不到不重試)
func (s *ScannerService) Probe(ctx context.Context, target string) (*ProbeResult, error) {
	host, port, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.retryInterval

	return backoff.Retry(ctx, func() (*ProbeResult, error) {
		res, err := s.handshake(ctx, host, port)
		if err != nil {
			var dnsErr *net.DNSError
			if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
				return nil, backoff.Permanent(err)
			}
			logrus.Debugf("[Scanner] %s:%s 連線失敗，準備重試: %v", host, port, err)
			return nil, err
		}
		return res, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(probeAttempts))
}

// checkSSLHandshake 建立 TLS 連線並解析憑證
func (s *ScannerService) checkSSLHandshake(ctx context.Context, host, port string) (*ProbeResult, error) {
	start := time.Now()
	dialer := &net.Dialer{Timeout: s.timeout, KeepAlive: -1}

	rawConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, err
	}
	defer rawConn.Close()

	// 設定 Deadline 防止 Handshake 卡死
	_ = rawConn.SetDeadline(time.Now().Add(s.timeout))

	// 只想看日期，信任鏈錯誤不擋
	conn := tls.Client(rawConn, &tls.Config{
		InsecureSkipVerify: true,
		ServerName:         host,
	})
	if err := conn.HandshakeContext(ctx); err != nil {
		return nil, err
	}

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, fmt.Errorf("no certificate presented by %s", host)
	}
	cert := state.PeerCertificates[0]

	res := &ProbeResult{
		Host:          host,
		Port:          port,
		Subject:       firstNonEmpty(cert.Subject.CommonName, cert.Subject.Organization...),
		Issuer:        firstNonEmpty(cert.Issuer.CommonName, cert.Issuer.Organization...),
		NotBefore:     cert.NotBefore,
		NotAfter:      cert.NotAfter,
		DNSNames:      cert.DNSNames,
		TLSVersion:    tls.VersionName(state.Version),
		HostnameMatch: cert.VerifyHostname(host) == nil,
		LatencyMS:     time.Since(start).Milliseconds(),
	}
	return res, nil
}

func firstNonEmpty(first string, rest ...string) string {
	if first != "" {
		return first
	}
	for _, v := range rest {
		if v != "" {
			return v
		}
	}
	return ""
}

// RefreshCertificate 對單張 WEB_PAGE 憑證做即時檢查並回寫到期日與簽發者
func (s *ScannerService) RefreshCertificate(ctx context.Context, id string) (*RefreshResult, error) {
	cert, err := s.Certs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, *cert)
}

func (s *ScannerService) refresh(ctx context.Context, cert domain.Certificate) (*RefreshResult, error) {
	if cert.Type != domain.TypeWebPage {
		return nil, ErrNotProbeable
	}

	now := time.Now()
	id := cert.ID.Hex()
	probe, err := s.Probe(ctx, cert.Domain)
	if err != nil {
		// 連線失敗也記錄檢查時間
		if _, uerr := s.Certs.Update(ctx, id, domain.CertificatePatch{LastCheckAt: &now}); uerr != nil {
			logrus.Warnf("[Scanner] 無法更新檢查時間 %s: %v", cert.Domain, uerr)
		}
		return nil, fmt.Errorf("probe %s: %w", cert.Domain, err)
	}

	patch := domain.CertificatePatch{LastCheckAt: &now}
	result := &RefreshResult{Probe: probe}

	if probe.Issuer != "" && probe.Issuer != cert.Issuer {
		patch.Issuer = &probe.Issuer
		result.Changed = true
	}
	if cert.ExpirationDate == nil || !cert.ExpirationDate.Equal(probe.NotAfter) {
		notAfter := probe.NotAfter
		patch.ExpirationDate = &notAfter
		result.Changed = true
		result.Renewed = cert.ExpirationDate != nil && probe.NotAfter.After(*cert.ExpirationDate)
	}

	updated, err := s.Certs.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	result.Certificate = updated

	if result.Renewed {
		logrus.Infof("♻️ [Scanner] 偵測到憑證更新: %s (%s -> %s)", cert.Domain,
			cert.ExpirationDate.Format("2006-01-02"), probe.NotAfter.Format("2006-01-02"))
		if s.Notifier != nil {
			s.Notifier.NotifyOperation(ctx, EventRenew, cert.Domain, fmt.Sprintf("📅 新到期日: %s\n🏢 簽發者: %s",
				probe.NotAfter.Format("2006-01-02"), probe.Issuer))
		}
	}
	return result, nil
}

// ScanAll 併發檢查所有 WEB_PAGE 憑證
func (s *ScannerService) ScanAll(ctx context.Context) (ScanStats, error) {
	start := time.Now()
	certs, err := s.Certs.List(ctx, repository.CertificateQuery{Type: domain.TypeWebPage})
	if err != nil {
		return ScanStats{}, err
	}

	logrus.Infof("🚀 [Scanner] 開始掃描 %d 個網站憑證 (併發 %d)...", len(certs), s.concurrency)

	stats := ScanStats{Total: len(certs)}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(s.concurrency)
	for _, c := range certs {
		p.Go(func() {
			res, err := s.refresh(ctx, c)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				stats.Failed++
				logrus.Warnf("XXX [Scanner] %s: %v", c.Domain, err)
			case res.Renewed:
				stats.Renewed++
				stats.Updated++
			case res.Changed:
				stats.Updated++
			}
		})
	}
	p.Wait()

	stats.Duration = time.Since(start).Round(time.Millisecond).String()
	logrus.Infof("🏁 [Scanner] 掃描完成: 共 %d，更新 %d，續簽 %d，失敗 %d (耗時 %s)",
		stats.Total, stats.Updated, stats.Renewed, stats.Failed, stats.Duration)
	return stats, nil
}

// Inspect 即時查詢 TLS 憑證與網域註冊到期日，兩者任一失敗都不影響另一個
func (s *ScannerService) Inspect(ctx context.Context, target string) (*InspectResult, error) {
	host, _, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	result := &InspectResult{Target: target, Urgency: domain.UrgencyUnknown, RootDomain: rootDomain(host)}

	if probe, err := s.Probe(ctx, target); err != nil {
		result.ProbeError = err.Error()
	} else {
		days, urgency := insight.Classify(probe.NotAfter, now)
		result.Probe = probe
		result.DaysRemaining = &days
		result.Urgency = urgency
	}

	if expiry, err := s.fetchWhoisExpiry(result.RootDomain); err != nil {
		logrus.Warnf("[Scanner] WHOIS 查詢失敗 %s: %v", result.RootDomain, err)
		result.WhoisError = err.Error()
	} else {
		days := insight.DaysUntil(expiry, now)
		result.DomainExpiry = &expiry
		result.DomainDaysLeft = &days
	}
	return result, nil
}

func rootDomain(host string) string {
	root, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// localhost 或 IP
		return host
	}
	return root
}

func (s *ScannerService) fetchWhoisExpiry(name string) (time.Time, error) {
	raw, err := s.lookup(name)
	if err != nil {
		return time.Time{}, err
	}
	result, err := whoisparser.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	if result.Domain == nil || result.Domain.ExpirationDate == "" {
		return time.Time{}, errors.New("no expiration date found")
	}
	return parseWhoisTime(result.Domain.ExpirationDate)
}

var whoisLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05.00Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

// parseWhoisTime 各註冊局格式不一，TWNIC 會多帶 " (UTC+8)"
func parseWhoisTime(dateStr string) (time.Time, error) {
	if idx := strings.Index(dateStr, " ("); idx != -1 {
		dateStr = dateStr[:idx]
	}
	dateStr = strings.TrimSpace(dateStr)
	for _, layout := range whoisLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown date format: %s", dateStr)
}
