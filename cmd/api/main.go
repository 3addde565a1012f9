package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cert-dashboard/internal/api"
	"cert-dashboard/internal/conf"
	"cert-dashboard/internal/database"
	"cert-dashboard/internal/repository"
	"cert-dashboard/internal/service"

	"github.com/sirupsen/logrus"
)

func main() {
	// 設定 Log 格式
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})

	// 1. Config
	cfg, err := conf.LoadConfig()
	if err != nil {
		logrus.Fatalf("Config error: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("未知的 log.level %q，使用 info", cfg.Log.Level)
		logrus.SetLevel(logrus.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Database
	mongoClient, err := database.Connect(cfg.MongoDB)
	if err != nil {
		logrus.Fatalf("Database error: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())

	db := mongoClient.Database(cfg.MongoDB.Database)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		logrus.Fatalf("Index error: %v", err)
	}

	// 3. Dependency Injection (依賴注入)
	// Repo -> Service -> Handler
	certRepo := repository.NewMongoCertificateRepo(db)
	clientRepo := repository.NewMongoClientRepo(db)
	settingsRepo := repository.NewMongoSettingsRepo(db)
	notificationRepo := repository.NewMongoNotificationRepo(db)
	userRepo := repository.NewMongoUserRepo(db)

	// 初始化基礎 Service (順序很重要)
	notifierService := service.NewNotifierService(settingsRepo, certRepo, notificationRepo)
	scannerService := service.NewScannerService(certRepo, notifierService, cfg.Scanner.Concurrency, cfg.Scanner.Timeout)
	importService := service.NewImportService(certRepo, notifierService)

	// Cloudflare 為選用功能，未設定 token 時關閉探索
	cfService, err := service.NewCloudflareService(cfg.Cloudflare.APIToken, certRepo, scannerService, notifierService)
	switch {
	case errors.Is(err, service.ErrDiscoveryDisabled):
		logrus.Warn("⚠️ 未設定 Cloudflare API Token，主機名稱探索已停用")
	case err != nil:
		logrus.Fatalf("Cloudflare error: %v", err)
	}

	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err := authService.BootstrapAdmin(ctx, cfg.Auth.AdminPassword); err != nil {
		logrus.Fatalf("Bootstrap admin error: %v", err)
	}

	cronService := service.NewCronService(settingsRepo, certRepo, notifierService, scannerService, cfService)
	cronService.Start(ctx)
	defer cronService.Stop()

	// 4. Gin Router Setup
	router := api.NewRouter(api.Deps{
		Certs:         certRepo,
		Clients:       clientRepo,
		Settings:      settingsRepo,
		Notifications: notificationRepo,
		Auth:          authService,
		Notifier:      notifierService,
		Scanner:       scannerService,
		Importer:      importService,
		Cron:          cronService,
		Discovery:     cfService,
	})

	// 5. Start Server
	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logrus.Infof("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Server startup failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("收到關閉訊號，正在停止服務...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Server shutdown error: %v", err)
	}
}
