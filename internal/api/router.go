package api

import (
	"cert-dashboard/internal/domain"
	"cert-dashboard/internal/repository"
	"cert-dashboard/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Deps 組裝 Router 所需的 Repository 與 Service
type Deps struct {
	Certs         repository.CertificateRepository
	Clients       repository.ClientRepository
	Settings      repository.SettingsRepository
	Notifications repository.NotificationRepository

	Auth      *service.AuthService
	Notifier  *service.NotifierService
	Scanner   *service.ScannerService
	Importer  *service.ImportService
	Cron      *service.CronService
	Discovery *service.CloudflareService // 可為 nil
}

func NewRouter(d Deps) *gin.Engine {
	// 驗證錯誤使用 json 欄位名稱
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}

	certs := NewCertificateHandler(d.Certs, d.Scanner, d.Importer, d.Notifier)
	clients := NewClientHandler(d.Clients)
	dashboard := NewDashboardHandler(d.Certs, d.Clients)
	reports := NewReportHandler(d.Certs, d.Clients)
	notifications := NewNotificationHandler(d.Notifications)
	settings := NewSettingsHandler(d.Settings, d.Notifier, d.Cron)
	tools := NewToolHandler(d.Scanner)
	discovery := NewDiscoveryHandler(d.Discovery)
	users := NewUserHandler(d.Auth)
	auth := NewAuthHandler(d.Auth)

	r := gin.Default()
	r.Use(CORS())

	r.GET("/healthz", Healthz)
	r.POST("/api/login", auth.Login)

	// API V1 Group (受保護)
	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(d.Auth))

	v1.GET("/me", auth.Me)

	viewCerts := RequireCapability(domain.CapViewCertificates)
	manageCerts := RequireCapability(domain.CapManageCertificates)
	{
		v1.GET("/certificates", viewCerts, certs.ListCertificates)
		v1.GET("/certificates/:id", viewCerts, certs.GetCertificate)
		v1.POST("/certificates", manageCerts, certs.CreateCertificate)
		v1.PATCH("/certificates/:id", manageCerts, certs.UpdateCertificate)
		v1.DELETE("/certificates/:id", manageCerts, certs.DeleteCertificate)
		v1.POST("/certificates/import", manageCerts, certs.ImportCertificates)
		v1.POST("/certificates/scan", manageCerts, certs.ScanCertificates)
		v1.POST("/certificates/:id/refresh", manageCerts, certs.RefreshCertificate)
		v1.POST("/discovery/cloudflare", manageCerts, discovery.SyncCloudflare)

		v1.GET("/dashboard/certificates", viewCerts, dashboard.CertificateStats)

		v1.GET("/notifications", viewCerts, notifications.ListNotifications)
		v1.POST("/notifications/read-all", viewCerts, notifications.MarkAllRead)
		v1.POST("/notifications/:id/read", viewCerts, notifications.MarkRead)
		v1.DELETE("/notifications", viewCerts, notifications.ClearNotifications)

		v1.POST("/tools/decode-cert", viewCerts, tools.DecodeCertificate)
		v1.GET("/tools/inspect", viewCerts, tools.Inspect)
	}

	viewClients := RequireCapability(domain.CapViewClients)
	manageClients := RequireCapability(domain.CapManageClients)
	{
		v1.GET("/clients", viewClients, clients.ListClients)
		v1.GET("/clients/:id", viewClients, clients.GetClient)
		v1.POST("/clients", manageClients, clients.CreateClient)
		v1.PATCH("/clients/:id", manageClients, clients.UpdateClient)
		v1.PUT("/clients/:id/infrastructure", manageClients, clients.UpdateInfrastructure)
		v1.DELETE("/clients/:id", manageClients, clients.DeleteClient)

		v1.GET("/dashboard/clients", viewClients, dashboard.ClientStats)
	}

	// 匯出檔案另外檢查 export_reports
	viewReports := RequireCapability(domain.CapViewReports)
	v1.GET("/reports/certificates", viewReports, reports.CertificateReport)
	v1.GET("/reports/clients", viewReports, reports.ClientReport)

	manageSettings := RequireCapability(domain.CapManageSettings)
	{
		v1.GET("/settings", manageSettings, settings.GetSettings)
		v1.PUT("/settings", manageSettings, settings.SaveSettings)
		v1.DELETE("/settings", manageSettings, settings.ResetSettings)
		v1.POST("/settings/test", manageSettings, settings.TestNotification)
	}

	manageUsers := RequireCapability(domain.CapManageUsers)
	{
		v1.GET("/users", manageUsers, users.ListUsers)
		v1.POST("/users", manageUsers, users.CreateUser)
		v1.PATCH("/users/:id", manageUsers, users.UpdateUser)
		v1.DELETE("/users/:id", manageUsers, users.DeleteUser)
	}

	return r
}
