package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Planning PlanningConfig `mapstructure:"planning"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port             int        `mapstructure:"port"`
	BaseURL          string     `mapstructure:"base_url"`
	BodyLimitBytes   int64      `mapstructure:"body_limit_bytes"`
	UploadLimitBytes int64      `mapstructure:"upload_limit_bytes"` // multipart（ICS 导入）
	CORS             CORSConfig `mapstructure:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 配置（幂等键、跨实例排课锁、限流）
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 校验配置（Token 由外部认证服务签发）
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlotConfig 每日固定时间段
type SlotConfig struct {
	Label string `mapstructure:"label"`
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// PlanningConfig 排课核心配置
type PlanningConfig struct {
	TermStart          string        `mapstructure:"term_start"` // 第1周周一，YYYY-MM-DD
	Weeks              int           `mapstructure:"weeks"`
	MaxDay             int           `mapstructure:"max_day"` // 1=周一 … 6=周六
	AvailabilityPolicy string        `mapstructure:"availability_policy"`
	Slots              []SlotConfig  `mapstructure:"slots"`
	IdempotencyTTL     time.Duration `mapstructure:"idempotency_ttl"`
	LockTTL            time.Duration `mapstructure:"lock_ttl"`
}

// TermStartDate 解析学期起始日期
func (c *PlanningConfig) TermStartDate() (time.Time, error) {
	return time.ParseInLocation("2006-01-02", c.TermStart, time.Local)
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.body_limit_bytes", 1<<20)
	v.SetDefault("server.upload_limit_bytes", 5<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "campus_planning")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/Paris")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "campus-auth")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("planning.term_start", "2025-09-01")
	v.SetDefault("planning.weeks", 52)
	v.SetDefault("planning.max_day", 6)
	v.SetDefault("planning.availability_policy", "open")
	v.SetDefault("planning.slots", []map[string]string{
		{"label": "08:00-10:00", "start": "08:00", "end": "10:00"},
		{"label": "10:00-12:00", "start": "10:00", "end": "12:00"},
		{"label": "14:00-16:00", "start": "14:00", "end": "16:00"},
		{"label": "16:00-18:00", "start": "16:00", "end": "18:00"},
		{"label": "18:00-20:00", "start": "18:00", "end": "20:00"},
	})
	v.SetDefault("planning.idempotency_ttl", "24h")
	v.SetDefault("planning.lock_ttl", "10s")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PLANNING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	return c.Planning.Validate()
}

// Validate 校验排课配置
func (c *PlanningConfig) Validate() error {
	if _, err := c.TermStartDate(); err != nil {
		return fmt.Errorf("配置校验失败: planning.term_start 格式应为 YYYY-MM-DD: %w", err)
	}
	if c.Weeks < 1 || c.Weeks > 52 {
		return fmt.Errorf("配置校验失败: planning.weeks 必须在 1-52 之间")
	}
	if c.MaxDay < 1 || c.MaxDay > 6 {
		return fmt.Errorf("配置校验失败: planning.max_day 必须在 1-6 之间")
	}
	switch c.AvailabilityPolicy {
	case "open", "strict":
	default:
		return fmt.Errorf("配置校验失败: planning.availability_policy 只能为 open 或 strict")
	}
	if len(c.Slots) == 0 {
		return fmt.Errorf("配置校验失败: planning.slots 不能为空")
	}
	prevEnd := ""
	for i, s := range c.Slots {
		if !isClock(s.Start) || !isClock(s.End) || s.Start >= s.End {
			return fmt.Errorf("配置校验失败: planning.slots[%d] 时间无效", i)
		}
		// 按开始时间升序且互不重叠
		if prevEnd != "" && s.Start < prevEnd {
			return fmt.Errorf("配置校验失败: planning.slots[%d] 与前一时间段重叠", i)
		}
		prevEnd = s.End
	}
	return nil
}

func isClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil && len(s) == 5
}
