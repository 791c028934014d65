package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"library-lending/internal/core/auth"
	"library-lending/internal/core/cache"
	"library-lending/internal/core/database"
	"library-lending/internal/core/events"
	"library-lending/internal/domain"
	"library-lending/internal/policy"
	"library-lending/pkg/utils"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []events.LoanEvent
}

func (r *recorder) Publish(_ context.Context, ev events.LoanEvent) error {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	return nil
}

func (r *recorder) Close() {}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	db    *gorm.DB
	clock *fakeClock
	pub   *recorder
	mr    *miniredis.Miniredis
	svc   *Services
	admin policy.Actor
}

type option func(*Deps)

func withPolicies(p domain.DeletePolicies) option { return func(d *Deps) { d.Policies = p } }

// onDisk 文件库 + 多连接，让并发事务真正重叠
func onDisk(t *testing.T) option {
	return func(d *Deps) {
		d.DB = openDB(t, "file:"+filepath.Join(t.TempDir(), "library.db")+"?_busy_timeout=5000", 20)
	}
}

func openDB(t *testing.T, dsn string, conns int) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          dsn,
		MaxOpenConns: conns,
		MaxIdleConns: conns,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newFixture(t *testing.T, opts ...option) *fixture {
	t.Helper()
	var d Deps
	for _, o := range opts {
		o(&d)
	}
	if d.DB == nil {
		d.DB = openDB(t, "file:"+uuid.NewString()+"?mode=memory&cache=shared", 1)
	}
	db := d.DB
	require.NoError(t, database.Migrate(db, domain.Models()...))

	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })

	clock := &fakeClock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	pub := &recorder{}
	d.Cache = c
	d.Publisher = pub
	d.Clock = clock.Now
	d.JWT = &auth.JWTer{Secret: []byte("test-secret"), Issuer: "library-test", TTL: time.Hour, RefreshTTL: 24 * time.Hour, Now: clock.Now}
	f := &fixture{db: db, clock: clock, pub: pub, mr: mr, svc: New(d)}
	f.admin = f.actor(t, f.user(t, "admin", domain.RoleAdmin))
	return f
}

func (f *fixture) user(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()
	u, err := f.svc.Users.create(context.Background(), NewUser{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret-" + name,
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) actor(t *testing.T, u *domain.User) policy.Actor {
	t.Helper()
	a, err := f.svc.Users.ResolveActor(context.Background(), u.ID)
	require.NoError(t, err)
	return a
}

func (f *fixture) book(t *testing.T, title string) *domain.Book {
	t.Helper()
	b, err := f.svc.Books.Create(context.Background(), f.admin, BookInput{
		Title:     title,
		Author:    "Anon",
		ISBN:      newISBN(),
		PageCount: 200,
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) reload(t *testing.T, id string) *domain.Book {
	t.Helper()
	var b domain.Book
	require.NoError(t, f.db.First(&b, "id = ?", id).Error)
	return &b
}

func (f *fixture) outstanding(t *testing.T, bookID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.Loan{}).Where("book_id = ? AND returned_at IS NULL", bookID).Count(&n).Error)
	return n
}

func newISBN() string {
	return "978" + utils.NewID()[:10]
}
