package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"library-lending/internal/core/auth"
	"library-lending/internal/core/cache"
	"library-lending/internal/core/events"
	"library-lending/internal/domain"
	"library-lending/internal/repo"
)

// Deps 服务依赖全部显式注入，没有包级可变状态
type Deps struct {
	DB        *gorm.DB
	Cache     *cache.Cache // 可为 nil
	Publisher events.Publisher
	JWT       *auth.JWTer
	Log       *zap.Logger
	Clock     func() time.Time
	Policies  domain.DeletePolicies
	BookTTL   time.Duration
	Metrics   *Metrics
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.BookTTL <= 0 {
		d.BookTTL = 5 * time.Minute
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics(nil)
	}
	return d
}

// Services 路由层一次性拿到全部服务
type Services struct {
	Books *BookService
	Loans *LoanService
	Users *UserService
	Auth  *AuthService
}

func New(d Deps) *Services {
	d = d.withDefaults()
	users := NewUserService(d)
	return &Services{
		Books: NewBookService(d),
		Loans: NewLoanService(d),
		Users: users,
		Auth:  NewAuthService(d, users),
	}
}

func bookKey(id string) string { return "book:" + id }

func invalidateBooks(ctx context.Context, c *cache.Cache, ids ...string) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = bookKey(id)
	}
	c.Invalidate(context.WithoutCancel(ctx), keys...)
}

type repos struct {
	users *repo.UserRepo
	books *repo.BookRepo
	loans *repo.LoanRepo
}

func reposOf(db *gorm.DB) repos {
	return repos{users: repo.NewUserRepo(db), books: repo.NewBookRepo(db), loans: repo.NewLoanRepo(db)}
}
