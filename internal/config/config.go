package config

import "time"

// Config is the uploader's full runtime configuration.
type Config struct {
	Service    ServiceConfig    `mapstructure:"service"`
	Upload     UploadConfig     `mapstructure:"upload"`
	Log        LogConfig        `mapstructure:"log"`
	Storage    StorageConfig    `mapstructure:"storage"`
	StatusHTTP StatusHTTPConfig `mapstructure:"status_http"`
	Watch      WatchConfig      `mapstructure:"watch"`
	History    HistoryConfig    `mapstructure:"history"`
}

// ServiceConfig points at the Service REST API.
type ServiceConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	ContactEmail   string        `mapstructure:"contact_email"`
	AppVersion     string        `mapstructure:"app_version"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// UploadConfig tunes uploads. Only Workers is read, as the multipart part
// concurrency; the driver always uses the fixed upload.PartSize, and
// PartSize and TempDir are not read.
type UploadConfig struct {
	PartSize int64  `mapstructure:"part_size"`
	Workers  int    `mapstructure:"workers"`
	TempDir  string `mapstructure:"temp_dir"`
}

// LogConfig controls the global logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// StorageConfig selects the backing object store used by cmd/devservice's
// fixture implementation of the Service.
type StorageConfig struct {
	Type  string             `mapstructure:"type"` // "local" or "s3"
	Local LocalStorageConfig `mapstructure:"local"`
	S3    S3StorageConfig    `mapstructure:"s3"`
}

// LocalStorageConfig configures the filesystem-backed fixture store.
type LocalStorageConfig struct {
	BasePath string `mapstructure:"base_path"`
}

// S3StorageConfig configures the S3/MinIO-backed fixture store.
type S3StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	PublicURL       string `mapstructure:"public_url"`
}

// StatusHTTPConfig controls the optional progress status server.
type StatusHTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// WatchConfig controls the optional directory-watch mode.
type WatchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Directory string `mapstructure:"directory"`
}

// HistoryConfig controls the publication history ledger.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// Load reads config.yaml (if present) plus environment overrides and
// populates every tunable with a sane default, following the same
// SetDefault/BindEnv shape the rest of the corpus uses.
func Load(configPath string) (*Config, error) {
	v, err := load(configPath, "config")
	if err != nil {
		return nil, err
	}

	v.SetDefault("service.base_url", "https://api.vrchat.cloud/api/1")
	v.SetDefault("service.contact_email", "support@example.invalid")
	v.SetDefault("service.app_version", "1.0.0")
	v.SetDefault("service.request_timeout", 60*time.Second)
	v.BindEnv("service.base_url", "THIRD3D_SERVICE_BASE_URL")
	v.BindEnv("service.contact_email", "THIRD3D_CONTACT_EMAIL")

	v.SetDefault("upload.part_size", 10*1024*1024)
	v.SetDefault("upload.workers", 4)
	v.SetDefault("upload.temp_dir", "")
	v.BindEnv("upload.workers", "THIRD3D_UPLOAD_WORKERS")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
	v.BindEnv("log.level", "THIRD3D_LOG_LEVEL")

	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local.base_path", "./devservice-data")
	v.SetDefault("storage.s3.use_path_style", true)
	v.BindEnv("storage.s3.access_key_id", "THIRD3D_S3_ACCESS_KEY_ID")
	v.BindEnv("storage.s3.secret_access_key", "THIRD3D_S3_SECRET_ACCESS_KEY")

	v.SetDefault("status_http.enabled", false)
	v.SetDefault("status_http.addr", ":8089")

	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.directory", "")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.db_path", "./third3d-history.db")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
