// Package config 从 YAML 文件与 CHILDSVC_ 前缀的环境变量加载服务配置
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	httpx "childsvc/http"
	"childsvc/logging"
	"childsvc/patterns/retry"
	"childsvc/security"
	"childsvc/storage/database"
	"childsvc/storage/mongostore"
	"childsvc/storage/redisstore"
)

// EnvConfigFile 显式指定配置文件路径的环境变量
const EnvConfigFile = "CHILDSVC_CONFIG_FILE"

// 存储驱动
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
)

// Config 服务完整配置
type Config struct {
	Server  httpx.WebConfig `mapstructure:"server"`
	Log     LogConfig       `mapstructure:"log"`
	Store   StoreConfig     `mapstructure:"store"`
	Auth    security.Config `mapstructure:"auth"`
	NATS    NATSConfig      `mapstructure:"nats"`
	Metrics MetricsConfig   `mapstructure:"metrics"`
	API     APIConfig       `mapstructure:"api"`

	// StartupRetry 启动时连接存储与 NATS 的重试策略
	StartupRetry retry.Config `mapstructure:"startup_retry"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Prefix string `mapstructure:"prefix"`
}

// StoreConfig 实体存储配置；Driver 决定使用哪一段
type StoreConfig struct {
	Driver string            `mapstructure:"driver"`
	SQL    database.DBConfig `mapstructure:"sql"`
	Redis  redisstore.Config `mapstructure:"redis"`
	Mongo  mongostore.Config `mapstructure:"mongo"`
}

// NATSConfig 结果通知配置；URL 为空时不发布
type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// Enabled 是否启用通知
func (c NATSConfig) Enabled() bool { return c.URL != "" }

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// APIConfig REST 资源配置
type APIConfig struct {
	AppName        string `mapstructure:"app_name"`
	BasePath       string `mapstructure:"base_path"`
	LocationPrefix string `mapstructure:"location_prefix"`
	StrictDelete   bool   `mapstructure:"strict_delete"`
}

// Load 加载配置。path 为空时依次查找 $CHILDSVC_CONFIG_FILE 与 ., ./configs, /etc/childsvc 下的 childsvc.yaml；
// 配置文件不存在不视为错误
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("childsvc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/childsvc")
	}

	v.SetEnvPrefix("CHILDSVC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Server.Engine {
	case "basic", "gin":
	default:
		return fmt.Errorf("unsupported server engine %q", c.Server.Engine)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.Store.SQL.Database == "" {
			return fmt.Errorf("store.sql.database cannot be empty for driver %s", c.Store.Driver)
		}
	case DriverRedis:
		if err := c.Store.Redis.Validate(); err != nil {
			return err
		}
	case DriverMongo:
		if err := c.Store.Mongo.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr cannot be empty when metrics are enabled")
	}
	if !strings.HasPrefix(c.API.BasePath, "/") {
		return fmt.Errorf("api.base_path must start with /")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.engine", "basic")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.prefix", "childsvc")

	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.sql.driver", "")
	v.SetDefault("store.sql.database", "")
	v.SetDefault("store.sql.max_open_conns", 10)
	v.SetDefault("store.sql.max_idle_conns", 5)
	v.SetDefault("store.sql.conn_max_lifetime", 300)
	v.SetDefault("store.sql.conn_max_idle_time", 60)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.password", "")
	v.SetDefault("store.redis.db", 0)
	v.SetDefault("store.redis.prefix", "childsvc")
	v.SetDefault("store.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo.database", "childsvc")
	v.SetDefault("store.mongo.collection", "child")
	v.SetDefault("store.mongo.timeout", 10)
	v.SetDefault("store.mongo.max_pool_size", 100)

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "childsvc")
	v.SetDefault("auth.protected_paths", []string{"/api"})
	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "childsvc")
	v.SetDefault("nats.timeout", 5*time.Second)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("api.app_name", "childsvc")
	v.SetDefault("api.base_path", "/api/child")
	v.SetDefault("api.location_prefix", "")
	v.SetDefault("api.strict_delete", false)

	v.SetDefault("startup_retry.max_attempts", 5)
	v.SetDefault("startup_retry.initial_delay", 200*time.Millisecond)
	v.SetDefault("startup_retry.backoff_factor", 2.0)
	v.SetDefault("startup_retry.max_delay", 5*time.Second)
}
