package conf

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	MongoDB    MongoConfig
	Auth       AuthConfig
	Cloudflare CloudflareConfig
	Log        LogConfig
	Scanner    ScannerConfig
}

type ServerConfig struct {
	Port string
}

type MongoConfig struct {
	URI      string
	Database string
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	AdminPassword string        `mapstructure:"admin_password"` // 空值時首次啟動會隨機產生
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

type CloudflareConfig struct {
	APIToken string `mapstructure:"api_token"`
}

type LogConfig struct {
	Level string
}

type ScannerConfig struct {
	Concurrency int
	Timeout     time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	v.SetDefault("mongodb.database", "cert_dashboard")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("log.level", "info")
	v.SetDefault("scanner.concurrency", 10)
	v.SetDefault("scanner.timeout", "5s")
}

// LoadConfig 讀取 ./config/config.yaml，環境變數優先 (e.g. MONGODB_URI、AUTH_JWT_SECRET)
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AddConfigPath("./config") // 設定檔路徑
	v.SetConfigName("config")   // 檔名
	v.SetConfigType("yaml")     // 格式
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // 允許讀取環境變數

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		logrus.Warn("⚠️ 找不到設定檔，使用預設值與環境變數")
	}

	// AutomaticEnv 只對有 key 的設定生效，沒有預設值的欄位要先綁定
	for _, key := range []string{"auth.jwt_secret", "auth.admin_password", "cloudflare.api_token"} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}
	if cfg.Scanner.Concurrency <= 0 {
		cfg.Scanner.Concurrency = 1
	}

	logrus.Info("設定檔讀取成功")
	return &cfg, nil
}
