package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-lending/internal/domain"
	"library-lending/internal/policy"
	"library-lending/internal/repo"
)

func TestBookCatalogAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.actor(t, f.user(t, "alice", domain.RoleUser))
	f.book(t, "Dune")
	f.book(t, "Emma")

	res, err := f.svc.Books.List(ctx, policy.Anonymous, repo.BookFilter{}, repo.Page{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)
	assert.Equal(t, "Dune", res.Items[0].Title)

	var denied *policy.DeniedError
	_, err = f.svc.Books.Create(ctx, policy.Anonymous, BookInput{Title: "X", Author: "Y", ISBN: newISBN(), PageCount: 1})
	require.ErrorAs(t, err, &denied)
	assert.False(t, denied.Authenticated)
	_, err = f.svc.Books.Create(ctx, alice, BookInput{Title: "X", Author: "Y", ISBN: newISBN(), PageCount: 1})
	require.ErrorAs(t, err, &denied)
	assert.True(t, denied.Authenticated)
}

func TestBookGetIsCachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.actor(t, f.user(t, "alice", domain.RoleUser))
	b := f.book(t, "Dune")

	got, err := f.svc.Books.Get(ctx, policy.Anonymous, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Available)
	assert.True(t, f.mr.Exists("library:book:"+b.ID))

	_, err = f.svc.Loans.Borrow(ctx, alice, b.ID)
	require.NoError(t, err)
	assert.False(t, f.mr.Exists("library:book:"+b.ID))

	got, err = f.svc.Books.Get(ctx, policy.Anonymous, b.ID)
	require.NoError(t, err)
	assert.False(t, got.Available)

	_, err = f.svc.Books.Get(ctx, policy.Anonymous, "missing")
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
	assert.False(t, f.mr.Exists("library:book:missing"))
}

func TestBookUpdateKeepsAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.actor(t, f.user(t, "alice", domain.RoleUser))
	b := f.book(t, "Dune")
	_, err := f.svc.Loans.Borrow(ctx, alice, b.ID)
	require.NoError(t, err)

	got, err := f.svc.Books.Update(ctx, f.admin, b.ID, BookPatch{Title: ptr("Dune Messiah"), PageCount: ptr(256)})
	require.NoError(t, err)
	assert.Equal(t, "Dune Messiah", got.Title)
	assert.Equal(t, 256, got.PageCount)
	assert.False(t, got.Available)

	_, err = f.svc.Books.Update(ctx, f.admin, "missing", BookPatch{Title: ptr("x")})
	assert.ErrorIs(t, err, domain.ErrBookNotFound)
}

func TestBookDuplicateISBN(t *testing.T) {
	f := newFixture(t)
	b := f.book(t, "Dune")
	_, err := f.svc.Books.Create(context.Background(), f.admin, BookInput{Title: "Dune", Author: "Herbert", ISBN: b.ISBN, PageCount: 412})
	var dup *domain.DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "isbn", dup.Field)
}

func TestDeleteBookPolicies(t *testing.T) {
	ctx := context.Background()

	t.Run("cascade", func(t *testing.T) {
		f := newFixture(t)
		alice := f.actor(t, f.user(t, "alice", domain.RoleUser))
		b := f.book(t, "Dune")
		_, err := f.svc.Loans.Borrow(ctx, alice, b.ID)
		require.NoError(t, err)

		require.NoError(t, f.svc.Books.Delete(ctx, f.admin, b.ID))
		res, err := f.svc.Loans.List(ctx, f.admin, repo.LoanFilter{BookID: b.ID}, repo.Page{})
		require.NoError(t, err)
		assert.Zero(t, res.Total)
		assert.ErrorIs(t, f.svc.Books.Delete(ctx, f.admin, b.ID), domain.ErrBookNotFound)
	})

	t.Run("restrict", func(t *testing.T) {
		f := newFixture(t, withPolicies(domain.DeletePolicies{BookLoans: domain.DeleteRestrict}))
		alice := f.actor(t, f.user(t, "alice", domain.RoleUser))
		b := f.book(t, "Dune")
		_, err := f.svc.Loans.Borrow(ctx, alice, b.ID)
		require.NoError(t, err)

		assert.ErrorIs(t, f.svc.Books.Delete(ctx, f.admin, b.ID), domain.ErrHasLoans)
		_, err = f.svc.Books.Get(ctx, f.admin, b.ID)
		assert.NoError(t, err)
	})
}
