package repo

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"library-lending/internal/core/database"
	"library-lending/internal/domain"
	"library-lending/pkg/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{
		Driver:       "sqlite",
		DSN:          "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		MaxOpenConns: 1,
		LogLevel:     "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, domain.Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func seedBook(t *testing.T, r *BookRepo, title, isbn string) *domain.Book {
	t.Helper()
	b := &domain.Book{ID: utils.NewID(), Title: title, Author: "Anon", ISBN: isbn, PageCount: 100, Available: true}
	require.NoError(t, r.Create(context.Background(), b))
	return b
}

func seedUser(t *testing.T, r *UserRepo, name string) *domain.User {
	t.Helper()
	u := &domain.User{ID: utils.NewID(), Username: name, Email: name + "@example.com", PasswordHash: "x", Role: domain.RoleUser, IsActive: true}
	require.NoError(t, r.Create(context.Background(), u))
	return u
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Size: DefaultPageSize}, Page{}.Normalize())
	assert.Equal(t, Page{Page: 3, Size: MaxPageSize}, Page{Page: 3, Size: 1000}.Normalize())
	assert.Equal(t, 40, Page{Page: 3, Size: 20}.Offset())
}

func TestBookRepoCRUDAndFilters(t *testing.T) {
	ctx := context.Background()
	r := NewBookRepo(newTestDB(t))
	dune := seedBook(t, r, "Dune", "9780441013593")
	seedBook(t, r, "Children of Dune", "9780441104024")
	seedBook(t, r, "Neuromancer", "9780441569595")

	_, err := r.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrBookNotFound)

	res, err := r.List(ctx, BookFilter{Title: "dune"}, Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Equal(t, "Children of Dune", res.Items[0].Title)

	ok, err := r.TakeAvailable(ctx, dune.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = r.TakeAvailable(ctx, dune.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	avail := false
	res, err = r.List(ctx, BookFilter{Available: &avail}, Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, dune.ID, res.Items[0].ID)

	require.NoError(t, r.MarkAvailable(ctx, dune.ID))
	got, err := r.FindByID(ctx, dune.ID)
	require.NoError(t, err)
	assert.True(t, got.Available)

	require.NoError(t, r.Update(ctx, dune.ID, map[string]any{"title": "Dune (1965)", "available": false}))
	got, err = r.FindByID(ctx, dune.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune (1965)", got.Title)
	assert.True(t, got.Available)

	assert.ErrorIs(t, r.Update(ctx, "missing", map[string]any{"title": "x"}), domain.ErrBookNotFound)
	require.NoError(t, r.Delete(ctx, dune.ID))
	assert.ErrorIs(t, r.Delete(ctx, dune.ID), domain.ErrBookNotFound)
}

func TestBookRepoDuplicateISBN(t *testing.T) {
	r := NewBookRepo(newTestDB(t))
	seedBook(t, r, "Dune", "9780441013593")
	err := r.Create(context.Background(), &domain.Book{ID: utils.NewID(), Title: "Copy", Author: "A", ISBN: "9780441013593", PageCount: 1, Available: true})
	var dup *domain.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "isbn", dup.Field)
}

func TestUserRepo(t *testing.T) {
	ctx := context.Background()
	r := NewUserRepo(newTestDB(t))
	alice := seedUser(t, r, "alice")
	seedUser(t, r, "bob")

	err := r.Create(ctx, &domain.User{ID: utils.NewID(), Username: "alice", PasswordHash: "x"})
	var dup *domain.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "username", dup.Field)

	got, err := r.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)
	_, err = r.FindByUsername(ctx, "carol")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	res, err := r.List(ctx, "BOB", Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "bob", res.Items[0].Username)

	require.NoError(t, r.Update(ctx, alice.ID, map[string]any{"is_active": false}))
	got, err = r.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, r.Delete(ctx, alice.ID))
	_, err = r.FindByID(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLoanRepoLifecycleAndFilters(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	users, books, loans := NewUserRepo(db), NewBookRepo(db), NewLoanRepo(db)
	u := seedUser(t, users, "alice")
	b1 := seedBook(t, books, "Dune", "9780441013593")
	b2 := seedBook(t, books, "Emma", "9780141439587")

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l1 := &domain.Loan{ID: utils.NewID(), UserID: u.ID, BookID: b1.ID, BorrowedAt: t0}
	l2 := &domain.Loan{ID: utils.NewID(), UserID: u.ID, BookID: b2.ID, BorrowedAt: t0.Add(48 * time.Hour)}
	require.NoError(t, loans.Create(ctx, l1))
	require.NoError(t, loans.Create(ctx, l2))

	open, err := loans.FindOutstanding(ctx, u.ID, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, l1.ID, open.ID)

	ok, err := loans.MarkReturned(ctx, l1.ID, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = loans.MarkReturned(ctx, l1.ID, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = loans.FindOutstanding(ctx, u.ID, b1.ID)
	assert.ErrorIs(t, err, domain.ErrNoActiveLoan)

	got, err := loans.FindByID(ctx, l1.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ReturnedAt)
	require.NotNil(t, got.Book)
	assert.Equal(t, "Dune", got.Book.Title)
	assert.Equal(t, "alice", got.User.Username)

	all, err := loans.List(ctx, LoanFilter{}, Page{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	assert.Equal(t, l2.ID, all.Items[0].ID)

	active := true
	res, err := loans.List(ctx, LoanFilter{IsActive: &active}, Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, l2.ID, res.Items[0].ID)

	after := t0.Add(24 * time.Hour)
	res, err = loans.List(ctx, LoanFilter{BorrowedAfter: &after}, Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, l2.ID, res.Items[0].ID)

	res, err = loans.List(ctx, LoanFilter{BookID: b1.ID}, Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	ids, err := loans.OutstandingBookIDs(ctx, ByUser, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{b2.ID}, ids)

	n, err := loans.CountBy(ctx, ByUser, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	require.NoError(t, loans.DeleteBy(ctx, ByBook, b1.ID))
	n, err = loans.CountBy(ctx, ByUser, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.ErrorIs(t, loans.Delete(ctx, l1.ID), domain.ErrLoanNotFound)
}
