package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Security SecurityConfig `mapstructure:"security"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Store    StoreConfig    `mapstructure:"store"`
	Engine   EngineConfig   `mapstructure:"engine"`
}

type ServerConfig struct {
	Host  string `mapstructure:"host"`
	Port  int    `mapstructure:"port"`
	Debug bool   `mapstructure:"debug"`
}

type SecurityConfig struct {
	// JWTSecret signs host tokens. Empty disables bearer auth on the API.
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	// AllowedIPs lists client IPs or CIDRs allowed to reach the API.
	AllowedIPs []string `mapstructure:"allowed_ips"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql | memory
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

// StoreConfig selects the backend of each save slot: db | cache | file.
type StoreConfig struct {
	Primary    string `mapstructure:"primary"`
	Backup     string `mapstructure:"backup"`
	FileDir    string `mapstructure:"file_dir"`
	MaxBackups int    `mapstructure:"max_backups"`
}

type EngineConfig struct {
	TickInterval      time.Duration `mapstructure:"tick_interval"`
	IdleNotifyMinutes int64         `mapstructure:"idle_notify_minutes"`
	NotifyChannel     string        `mapstructure:"notify_channel"`
	JournalBuffer     int           `mapstructure:"journal_buffer"`
	JournalBatch      int           `mapstructure:"journal_batch"`
	JournalFlush      time.Duration `mapstructure:"journal_flush"`
}

// Load reads config from the given YAML file path. An empty path yields the
// defaults, still overridable through CODEPALS_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("codepals")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 7420)
	v.SetDefault("server.debug", false)
	v.SetDefault("security.jwt_secret", "")
	v.SetDefault("security.jwt_ttl_h", "720h")
	v.SetDefault("security.rate_limit_rps", 50)
	v.SetDefault("security.rate_limit_burst", 100)
	v.SetDefault("security.allowed_ips", []string{"127.0.0.1", "::1"})
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/codepals.db")
	v.SetDefault("database.mysql_dsn", "")
	v.SetDefault("database.mysql_max_open", 10)
	v.SetDefault("database.mysql_max_idle", 2)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 64)
	v.SetDefault("store.primary", "db")
	v.SetDefault("store.backup", "file")
	v.SetDefault("store.file_dir", "./data/saves")
	v.SetDefault("store.max_backups", 5)
	v.SetDefault("engine.tick_interval", "30s")
	v.SetDefault("engine.idle_notify_minutes", 60)
	v.SetDefault("engine.notify_channel", "codepals:notify")
	v.SetDefault("engine.journal_buffer", 256)
	v.SetDefault("engine.journal_batch", 50)
	v.SetDefault("engine.journal_flush", "5s")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
