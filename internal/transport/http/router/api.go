package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"library-lending/internal/core/auth"
	"library-lending/internal/core/cache"
	"library-lending/internal/core/config"
	"library-lending/internal/core/server"
	"library-lending/internal/service"
	httpez "library-lending/internal/transport/http/ez"
	mdw "library-lending/internal/transport/http/middleware"
	resp "library-lending/internal/transport/http/response"
)

// Deps 路由所需依赖，由 main 组装后传入
type Deps struct {
	Log      *zap.Logger
	DB       *gorm.DB
	Cache    *cache.Cache
	JWT      *auth.JWTer
	Services *service.Services
	Limits   config.Limits
	Server   server.Options
}

// Module 业务模块挂载自己的路由
type Module interface {
	Mount(e httpez.EZ)
}

func NewAPIEngine(d Deps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	httpez.InitValidator()

	d.Server.SkipPaths = append(d.Server.SkipPaths, "/health", "/metrics")
	r := server.NewRouter(d.Log, d.Server)

	l := d.Limits
	chain := []gin.HandlerFunc{mdw.RequestID()}
	switch {
	case l.RPS > 0 && l.PerIP:
		chain = append(chain, mdw.RateLimitPerIP(rate.Limit(l.RPS), max(l.Burst, 1)))
	case l.RPS > 0:
		chain = append(chain, mdw.RateLimit(rate.Limit(l.RPS), max(l.Burst, 1)))
	}
	if l.MaxInflight > 0 {
		chain = append(chain, mdw.ConcurrencyLimit(l.MaxInflight))
	}
	if l.MaxBodyBytes > 0 {
		chain = append(chain, mdw.MaxBodyBytes(l.MaxBodyBytes))
	}
	if l.TimeoutSec > 0 {
		chain = append(chain, mdw.Timeout(time.Duration(l.TimeoutSec)*time.Second))
	}
	chain = append(chain, mdw.SimpleRecovery(d.Log), mdw.Metrics(), mdw.AccessLog(d.Log.Named("http")))
	r.Use(chain...)

	r.GET("/health", health(d))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, resp.Error(resp.CodeNotFound, "route not found"))
	})

	api := r.Group("/api/v1")
	api.Use(mdw.Authenticate(d.JWT, d.Services.Users))
	e := httpez.New(api, d.Log.Named("api"))

	s := d.Services
	mods := []Module{
		authModule{auth: s.Auth},
		profileModule{users: s.Users},
		bookModule{books: s.Books, loans: s.Loans},
		loanModule{loans: s.Loans},
		userModule{users: s.Users},
	}
	for _, m := range mods {
		m.Mount(e)
	}
	return r
}

// health db 不通返回 503；redis 不通只标记 degraded（读缓存会回源）
func health(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		out := gin.H{"db": "ok"}
		if d.DB != nil {
			sqlDB, err := d.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, resp.Error(resp.CodeUnavailable, "unhealthy").
					WithDetails(map[string]string{"db": "down"}))
				return
			}
		}
		if d.Cache != nil {
			out["redis"] = "ok"
			if err := d.Cache.Ping(ctx); err != nil {
				out["redis"] = "degraded"
			}
		}
		c.JSON(http.StatusOK, resp.OK(out))
	}
}
