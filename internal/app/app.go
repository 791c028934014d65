// Package app 按配置组装数据库、缓存、消息、令牌与服务，供 cmd 复用
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"library-lending/internal/core/auth"
	"library-lending/internal/core/cache"
	"library-lending/internal/core/config"
	"library-lending/internal/core/database"
	"library-lending/internal/core/events"
	"library-lending/internal/domain"
	"library-lending/internal/service"
)

type App struct {
	Cfg       *config.Config
	Log       *zap.Logger
	DB        *gorm.DB
	Cache     *cache.Cache // redis 未启用时为 nil
	Publisher events.Publisher
	JWT       *auth.JWTer
	Services  *service.Services
}

// Options Registerer 为 nil 时不注册业务指标
type Options struct {
	Registerer prometheus.Registerer
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger, o Options) (*App, error) {
	policies, err := deletePolicies(cfg.Library)
	if err != nil {
		return nil, err
	}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
		PrepareStmt:        cfg.DB.PrepareStmt,
		Log:                log,
	})
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	log.Info("database connected", zap.String("driver", cfg.DB.Driver), zap.String("dsn", database.MaskDSN(cfg.DB.DSN)))

	a := &App{Cfg: cfg, Log: log, DB: db, Publisher: events.Nop{}}

	if cfg.Redis.Enable {
		a.Cache = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := a.Cache.Ping(ctx); err != nil {
			// 缓存只做加速，连不上继续启动
			log.Warn("redis unreachable, reads fall back to db", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
	}

	if cfg.MQ.Enable {
		p, err := events.NewRabbitPublisher(cfg.MQ.URL, cfg.MQ.Queue)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("rabbitmq: %w", err)
		}
		a.Publisher = p
		log.Info("loan events enabled", zap.String("queue", cfg.MQ.Queue))
	}

	a.JWT = &auth.JWTer{
		Secret:     []byte(cfg.JWT.Secret),
		Issuer:     cfg.JWT.Issuer,
		TTL:        time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWT.RefreshTokenTTLMin) * time.Minute,
	}

	a.Services = service.New(service.Deps{
		DB:        db,
		Cache:     a.Cache,
		Publisher: a.Publisher,
		JWT:       a.JWT,
		Log:       log,
		Policies:  policies,
		BookTTL:   time.Duration(cfg.Redis.BookTTLSec) * time.Second,
		Metrics:   service.NewMetrics(o.Registerer),
	})
	return a, nil
}

func (a *App) Migrate() error {
	if err := database.Migrate(a.DB, domain.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	a.Log.Info("automigrate done")
	return nil
}

func (a *App) Close() {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	_ = a.Cache.Close()
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func deletePolicies(l config.Library) (domain.DeletePolicies, error) {
	u, err := domain.ParseDeletePolicy(l.UserLoansOnDelete)
	if err != nil {
		return domain.DeletePolicies{}, fmt.Errorf("library.user_loans_on_delete: %w", err)
	}
	b, err := domain.ParseDeletePolicy(l.BookLoansOnDelete)
	if err != nil {
		return domain.DeletePolicies{}, fmt.Errorf("library.book_loans_on_delete: %w", err)
	}
	return domain.DeletePolicies{UserLoans: u, BookLoans: b}, nil
}
