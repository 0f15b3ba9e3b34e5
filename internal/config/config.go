package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	RecordStore   RecordStoreConfig `json:"record_store"`
	Mail          MailConfig       `json:"mail"`
	OTP           OTPConfig        `json:"otp"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	ImageCache    ImageCacheConfig `json:"image_cache"`
	Snapshot      SnapshotConfig   `json:"snapshot_store"`
}

type RecordStoreConfig struct {
	BaseURL        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type OTPConfig struct {
	// Recipient is the fixed destination for every deletion code.
	Recipient string `json:"recipient"`
	// Store selects the challenge store backend: "memory" or "sql".
	Store  string `json:"store"`
	Driver string `json:"driver"`
	DSN    string `json:"dsn"`
	// SendCooldownSeconds throttles repeated issuance per client+key;
	// 0 disables the throttle.
	SendCooldownSeconds int `json:"send_cooldown_seconds"`
}

type ImageCacheConfig struct {
	Entries    int `json:"entries"`
	TTLSeconds int `json:"ttl_seconds"`
}

type SnapshotConfig struct {
	// Type is "local", "s3" or empty to disable snapshot uploads.
	Type      string   `json:"type"`
	Dir       string   `json:"dir"`
	PublicURL string   `json:"public_url"`
	S3        S3Config `json:"s3"`
}

type S3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	PublicURL string `json:"public_url"`
	UseSSL    bool   `json:"use_ssl"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.RecordStore.BaseURL == "" {
		return nil, fmt.Errorf("record_store.base_url is required")
	}
	if cfg.RecordStore.TimeoutSeconds == 0 {
		cfg.RecordStore.TimeoutSeconds = 10
	}
	if cfg.OTP.Recipient == "" {
		return nil, fmt.Errorf("otp.recipient is required")
	}
	if cfg.OTP.Store == "" {
		cfg.OTP.Store = "memory"
	}
	switch cfg.OTP.Store {
	case "memory":
	case "sql":
		if cfg.OTP.Driver == "" {
			cfg.OTP.Driver = "sqlite"
		}
		if cfg.OTP.Driver != "sqlite" && cfg.OTP.Driver != "postgres" {
			return nil, fmt.Errorf("otp.driver must be sqlite or postgres")
		}
		if cfg.OTP.DSN == "" {
			return nil, fmt.Errorf("otp.dsn is required for the sql store")
		}
	default:
		return nil, fmt.Errorf("otp.store must be memory or sql")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.ImageCache.Entries == 0 {
		cfg.ImageCache.Entries = 256
	}
	if cfg.ImageCache.TTLSeconds == 0 {
		cfg.ImageCache.TTLSeconds = 3600
	}
	switch cfg.Snapshot.Type {
	case "":
	case "local":
		if cfg.Snapshot.Dir == "" {
			return nil, fmt.Errorf("snapshot_store.dir is required for local store")
		}
	case "s3":
		if cfg.Snapshot.S3.Endpoint == "" || cfg.Snapshot.S3.Bucket == "" || cfg.Snapshot.S3.SecretID == "" || cfg.Snapshot.S3.SecretKey == "" {
			return nil, fmt.Errorf("snapshot_store.s3 endpoint/bucket/secret_id/secret_key are required for s3 store")
		}
		if cfg.Snapshot.S3.Region == "" {
			cfg.Snapshot.S3.Region = "cn"
		}
	default:
		return nil, fmt.Errorf("snapshot_store.type must be local or s3")
	}
	return &cfg, nil
}
