package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// The values are read by Viper from a config file or environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	S3       S3Config       `mapstructure:"s3"`
	Share    ShareConfig    `mapstructure:"share"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Log      LogConfig      `mapstructure:"log"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
	// GinMode is passed to gin.SetMode (debug, release, test).
	GinMode string `mapstructure:"gin_mode"`
}

type DatabaseConfig struct {
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	// Disabled skips archiving of replaced assignments.
	Disabled bool `mapstructure:"disabled"`
}

// ShareConfig configures the client share link.
type ShareConfig struct {
	Secret        string        `mapstructure:"secret"`
	Expiration    time.Duration `mapstructure:"expiration"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
}

type SyncConfig struct {
	// Transport is "poll" (redis) or "push" (mongo change stream).
	Transport        string        `mapstructure:"transport"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxCommitRetries int           `mapstructure:"max_commit_retries"`
	// StateTTL bounds how long a published assignment stays in redis.
	StateTTL time.Duration `mapstructure:"state_ttl"`
}

const (
	TransportPoll = "poll"
	TransportPush = "push"
)

type LogConfig struct {
	Level    string `mapstructure:"level"`
	JSON     bool   `mapstructure:"json"`
	File     string `mapstructure:"file"`
	ToStdout bool   `mapstructure:"to_stdout"`
}

type CatalogConfig struct {
	CacheMegabytes int           `mapstructure:"cache_megabytes"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Use replacer for nested keys e.g., sync.poll_interval -> SYNC_POLL_INTERVAL
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(`.`, `_`))

	setDefaults(v)

	err = v.ReadInConfig()
	// A missing file is fine, defaults and env vars still apply
	if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		err = nil
	} else if err != nil {
		return
	}

	// Duration strings ("2s", "720h") are decoded straight into time.Duration fields
	err = v.Unmarshal(&config)
	if err != nil {
		return
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.gin_mode", "release")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "coach_progression")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("s3.use_ssl", true)
	v.SetDefault("s3.disabled", false)
	v.SetDefault("share.secret", "")
	v.SetDefault("share.expiration", "720h")
	v.SetDefault("share.rate_per_minute", 120)
	v.SetDefault("sync.transport", TransportPoll)
	v.SetDefault("sync.poll_interval", "2s")
	v.SetDefault("sync.max_commit_retries", 3)
	v.SetDefault("sync.state_ttl", "168h")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.to_stdout", true)
	v.SetDefault("catalog.cache_megabytes", 16)
	v.SetDefault("catalog.cache_ttl", "10m")
}
