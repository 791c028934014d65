package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
	CORSOrigins     []string // 为空时允许全部来源
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
}

type LogRotate struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level  string
	JSON   bool
	Rotate LogRotate
}

type JWT struct {
	Secret             string
	Issuer             string
	AccessTokenTTLMin  int
	RefreshTokenTTLMin int
}

type Redis struct {
	Enable     bool   `mapstructure:"enable"`
	Addr       string `mapstructure:"addr"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	BookTTLSec int    `mapstructure:"book_ttl_sec"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
	PrepareStmt        bool
}

type MQ struct {
	Enable bool   `mapstructure:"enable"`
	URL    string `mapstructure:"url"`
	Queue  string `mapstructure:"queue"`
}

type Limits struct {
	RPS          float64
	PerIP        bool // true 时每个客户端 IP 一个令牌桶
	Burst        int
	MaxInflight  int64
	MaxBodyBytes int64
	TimeoutSec   int
}

// Library 业务配置：关系删除策略 cascade / restrict
type Library struct {
	UserLoansOnDelete string `mapstructure:"user_loans_on_delete"`
	BookLoansOnDelete string `mapstructure:"book_loans_on_delete"`
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	DB      DB
	Redis   Redis   `mapstructure:"redis"`
	MQ      MQ      `mapstructure:"mq"`
	Limits  Limits
	Library Library `mapstructure:"library"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "library-lending")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.issuer", "library-lending")
	v.SetDefault("jwt.accesstokenttlmin", 30)
	v.SetDefault("jwt.refreshtokenttlmin", 7*24*60)
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:library.db?_busy_timeout=5000")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.automigrate", true)
	v.SetDefault("db.loglevel", "warn")
	v.SetDefault("db.preparestmt", true)
	v.SetDefault("redis.book_ttl_sec", 300)
	v.SetDefault("mq.queue", "library.loans")
	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.maxinflight", 300)
	v.SetDefault("limits.maxbodybytes", 1<<20)
	v.SetDefault("limits.timeoutsec", 10)
	v.SetDefault("library.user_loans_on_delete", "cascade")
	v.SetDefault("library.book_loans_on_delete", "cascade")
}

// Load 读取 yaml，APP_ 前缀环境变量覆盖（APP_JWT_SECRET 对应 jwt.secret）
func Load(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.JWT.Secret == "" {
		return nil, fmt.Errorf("config: jwt.secret is required")
	}
	return &c, nil
}
