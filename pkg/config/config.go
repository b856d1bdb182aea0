package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	Redis     RedisConfig     `mapstructure:"redis"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RBAC      RBACConfig      `mapstructure:"rbac"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Recurring RecurringConfig `mapstructure:"recurring"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	AllowOrigins   []string      `mapstructure:"allow_origins"`
}

type DatabaseConfig struct {
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	Database              string        `mapstructure:"database"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnections        int           `mapstructure:"max_connections"`
	MaxIdleConnections    int           `mapstructure:"max_idle_connections"`
	ConnectionMaxLifetime time.Duration `mapstructure:"connection_max_lifetime"`
	AutoMigrate           bool          `mapstructure:"auto_migrate"`
	LogSQL                bool          `mapstructure:"log_sql"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Name    string `mapstructure:"name"`
}

type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Secret  string `mapstructure:"secret"`
	// 关闭鉴权时从该请求头读取用户ID，仅用于本地调试
	DevUserHeader string `mapstructure:"dev_user_header"`
}

// RBACConfig 角色集合，统一注入到策略和事件分发
type RBACConfig struct {
	Mode              string   `mapstructure:"mode"`          // off | unit | group
	ApproverMode      string   `mapstructure:"approver_mode"` // supervisor | template_role
	PrivilegedRoleIDs []uint64 `mapstructure:"privileged_role_ids"`
}

type NotifyConfig struct {
	ExternalChannel  string        `mapstructure:"external_channel"`
	NotifiableEvents []string      `mapstructure:"notifiable_events"`
	AllowListUserIDs []uint64      `mapstructure:"allow_list_user_ids"`
	DropSelfEvents   []string      `mapstructure:"drop_self_events"`
	Publisher        string        `mapstructure:"publisher"` // redis | nats | none
	Topic            string        `mapstructure:"topic"`
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`
	BatchSize        int           `mapstructure:"batch_size"`
	RatePerSecond    float64       `mapstructure:"rate_per_second"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
}

type RecurringConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Cron        string        `mapstructure:"cron"`
	Timezone    string        `mapstructure:"timezone"`
	LockKey     string        `mapstructure:"lock_key"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
	// 周期任务的默认指派范围
	DefaultScope string `mapstructure:"default_scope"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Location 解析配置的时区，空值使用 Local
func (c RecurringConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.max_header_bytes", 1048576)
	v.SetDefault("server.allow_origins", []string{"*"})

	// 未设置默认值的键不会被 Unmarshal 从环境变量读取
	v.SetDefault("database.user", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "taskflow")
	v.SetDefault("database.log_sql", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.max_connections", 20)
	v.SetDefault("database.max_idle_connections", 10)
	v.SetDefault("database.connection_max_lifetime", "1h")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("nats.name", "taskflow")

	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.dev_user_header", "X-User-ID")

	v.SetDefault("rbac.mode", "unit")
	v.SetDefault("rbac.approver_mode", "supervisor")
	v.SetDefault("rbac.privileged_role_ids", []uint64{})

	v.SetDefault("notify.external_channel", "telegram")
	v.SetDefault("notify.notifiable_events", []string{"TASK_CREATED", "REPORT_SUBMITTED", "APPROVED", "REJECTED"})
	v.SetDefault("notify.allow_list_user_ids", []uint64{})
	v.SetDefault("notify.drop_self_events", []string{})
	v.SetDefault("notify.publisher", "none")
	v.SetDefault("notify.topic", "taskflow.notifications")
	v.SetDefault("notify.dispatch_interval", "10s")
	v.SetDefault("notify.batch_size", 100)
	v.SetDefault("notify.rate_per_second", 20)
	v.SetDefault("notify.max_attempts", 10)

	v.SetDefault("recurring.enabled", true)
	v.SetDefault("recurring.cron", "0 */15 * * * *")
	v.SetDefault("recurring.timezone", "")
	v.SetDefault("recurring.lock_key", "taskflow_recurring_run")
	v.SetDefault("recurring.lock_timeout", "10s")
	v.SetDefault("recurring.default_scope", "functional")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load 读取配置文件，环境变量 TASKFLOW_* 覆盖文件中的值
func Load(configPath string) (*Config, error) {
	// .env 可选，不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TASKFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 环境变量里的列表是逗号分隔的字符串
	cfg.RBAC.PrivilegedRoleIDs = uint64List(v.Get("rbac.privileged_role_ids"))
	cfg.Notify.AllowListUserIDs = uint64List(v.Get("notify.allow_list_user_ids"))
	cfg.Notify.NotifiableEvents = stringList(v.Get("notify.notifiable_events"))
	cfg.Notify.DropSelfEvents = stringList(v.Get("notify.drop_self_events"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.RBAC.Mode {
	case "off", "unit", "group":
	default:
		return fmt.Errorf("invalid rbac.mode %q", c.RBAC.Mode)
	}
	switch c.RBAC.ApproverMode {
	case "supervisor", "template_role":
	default:
		return fmt.Errorf("invalid rbac.approver_mode %q", c.RBAC.ApproverMode)
	}
	switch c.Notify.Publisher {
	case "none", "redis", "nats":
	default:
		return fmt.Errorf("invalid notify.publisher %q", c.Notify.Publisher)
	}
	if c.Auth.Enabled && c.Auth.Secret == "" {
		return errors.New("auth.secret is required when auth is enabled")
	}
	if _, err := c.Recurring.Location(); err != nil {
		return fmt.Errorf("invalid recurring.timezone: %w", err)
	}
	return nil
}

func uint64List(raw any) []uint64 {
	if s, ok := raw.(string); ok {
		raw = splitCSV(s)
	}
	ints := cast.ToIntSlice(raw)
	out := make([]uint64, 0, len(ints))
	for _, v := range ints {
		if v > 0 {
			out = append(out, uint64(v))
		}
	}
	return out
}

func stringList(raw any) []string {
	if s, ok := raw.(string); ok {
		return splitCSV(s)
	}
	return cast.ToStringSlice(raw)
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
