// Package insight 將原始資料換算成儀表板用的衍生值 (剩餘天數、分級、統計)。
// 這裡都是純函式，不碰資料庫，輸入有問題時退化成 UNKNOWN / UNDATED 而不是報錯。
package insight

import (
	"math"
	"time"

	"cert-dashboard/internal/domain"
)

const (
	CriticalDays = 7
	WarningDays  = 30
)

const day = 24 * time.Hour

// DaysUntil 無條件進位，剩 12.1 小時算 1 天
func DaysUntil(expiration, now time.Time) int {
	days := math.Ceil(float64(expiration.Sub(now)) / float64(day))
	if days == 0 {
		return 0 // 避免 -0
	}
	return int(days)
}

// Classify 依剩餘天數分級：
//
//	已過期 (expiration < now)   -> EXPIRED
//	未過期且 days <= 7          -> CRITICAL
//	7 < days <= 30              -> WARNING
//	days > 30                   -> SAFE
func Classify(expiration, now time.Time) (int, domain.Urgency) {
	if expiration.IsZero() {
		return 0, domain.UrgencyUnknown
	}
	days := DaysUntil(expiration, now)
	switch {
	case expiration.Before(now):
		return days, domain.UrgencyExpired
	case days <= CriticalDays:
		return days, domain.UrgencyCritical
	case days <= WarningDays:
		return days, domain.UrgencyWarning
	default:
		return days, domain.UrgencySafe
	}
}

// ClassifyPtr nil 代表沒有過期日
func ClassifyPtr(expiration *time.Time, now time.Time) (int, domain.Urgency) {
	if expiration == nil {
		return 0, domain.UrgencyUnknown
	}
	return Classify(*expiration, now)
}

// ViewCertificate 附上即時計算欄位
func ViewCertificate(c domain.Certificate, now time.Time) domain.CertificateView {
	days, urgency := ClassifyPtr(c.ExpirationDate, now)
	return domain.CertificateView{Certificate: c, DaysRemaining: days, Urgency: urgency}
}

func ViewCertificates(certs []domain.Certificate, now time.Time) []domain.CertificateView {
	views := make([]domain.CertificateView, 0, len(certs))
	for _, c := range certs {
		views = append(views, ViewCertificate(c, now))
	}
	return views
}
