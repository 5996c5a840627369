package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	S3       S3Config       `mapstructure:"s3"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Metadata MetadataConfig `mapstructure:"metadata"`
}

type ServerConfig struct {
	Address        string        `mapstructure:"address"`
	Mode           string        `mapstructure:"mode"` // gin mode: debug, release, test
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

// DatabaseConfig selects the local store. "sqlite" keeps everything in a single
// file next to the binary; "mongo" talks to a MongoDB server.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	URI    string `mapstructure:"uri"`
	Name   string `mapstructure:"name"`
}

// StorageConfig selects where media binaries live.
type StorageConfig struct {
	Driver         string        `mapstructure:"driver"` // local or s3
	LocalPath      string        `mapstructure:"local_path"`
	BaseURL        string        `mapstructure:"base_url"` // public prefix for local files
	PresignTTL     time.Duration `mapstructure:"presign_ttl"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	HandleCache    int           `mapstructure:"handle_cache"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// JWTConfig defines JWT specific configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// AuthConfig holds the bcrypt hash of the owner's password.
// Leaving it empty disables authentication entirely.
type AuthConfig struct {
	PasswordHash string `mapstructure:"password_hash"`
}

// QueueConfig configures the key-value slot that persists pending offline actions.
type QueueConfig struct {
	Slot          string        `mapstructure:"slot"` // file or redis
	Dir           string        `mapstructure:"dir"`
	Key           string        `mapstructure:"key"`
	RedisURL      string        `mapstructure:"redis_url"`
	ReplaySpacing time.Duration `mapstructure:"replay_spacing"`
}

// SyncConfig controls connectivity detection and replay of pending actions.
type SyncConfig struct {
	ProbeURL       string        `mapstructure:"probe_url"`
	ProbeInterval  time.Duration `mapstructure:"probe_interval"`
	StabilizeDelay time.Duration `mapstructure:"stabilize_delay"`
	RemoteURL      string        `mapstructure:"remote_url"`
	StartOnline    bool          `mapstructure:"start_online"`
}

type MetadataConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRedirects int           `mapstructure:"max_redirects"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// server.address -> SERVER_ADDRESS
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if errors.As(err, &notFound) {
		// No file; defaults and env vars only.
		err = nil
	} else if err != nil {
		return
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/gym-manager.db")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "gym_manager")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_path", "data/media")
	v.SetDefault("storage.base_url", "/files")
	v.SetDefault("storage.presign_ttl", "15m")
	v.SetDefault("storage.max_upload_bytes", 100<<20)
	v.SetDefault("storage.handle_cache", 512)

	v.SetDefault("s3.use_ssl", true)

	v.SetDefault("jwt.expiration", "24h")

	v.SetDefault("queue.slot", "file")
	v.SetDefault("queue.dir", "data")
	v.SetDefault("queue.key", "offline-pending-actions")
	v.SetDefault("queue.replay_spacing", "100ms")

	v.SetDefault("sync.probe_interval", "15s")
	v.SetDefault("sync.stabilize_delay", "2s")
	v.SetDefault("sync.start_online", true)

	v.SetDefault("metadata.timeout", "10s")
	v.SetDefault("metadata.max_redirects", 5)
	v.SetDefault("metadata.user_agent", "Gym Manager App (+https://github.com/ahmadsoran/gym-manager-app-web-offline)")
}
