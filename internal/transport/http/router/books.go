package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-lending/internal/domain"
	"library-lending/internal/policy"
	"library-lending/internal/repo"
	"library-lending/internal/service"
	httpez "library-lending/internal/transport/http/ez"
)

type bookModule struct {
	books *service.BookService
	loans *service.LoanService
}

type bookListQ struct {
	repo.BookFilter
	repo.Page
}

func (m bookModule) Mount(e httpez.EZ) {
	httpez.RegisterAction(e, httpez.Action[bookListQ, *repo.Result[domain.Book]]{
		Method: http.MethodGet,
		Path:   "/books",
		Binder: httpez.BindQuery,
		Handler: func(c *gin.Context, a policy.Actor, in *bookListQ) (*repo.Result[domain.Book], error) {
			return m.books.List(c.Request.Context(), a, in.BookFilter, in.Page)
		},
	})

	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.Book]{
		Method: http.MethodGet,
		Path:   "/books/:id",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (*domain.Book, error) {
			return m.books.Get(c.Request.Context(), a, c.Param("id"))
		},
	})

	httpez.RegisterAction(e, httpez.Action[service.BookInput, *domain.Book]{
		Method: http.MethodPost,
		Path:   "/books",
		Binder: httpez.BindJSON,
		Perm:   &httpez.Perm{Action: policy.ActionCreate, Resource: policy.ResourceBook},
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, a policy.Actor, in *service.BookInput) (*domain.Book, error) {
			return m.books.Create(c.Request.Context(), a, *in)
		},
	})

	update := func(c *gin.Context, a policy.Actor, in *service.BookPatch) (*domain.Book, error) {
		return m.books.Update(c.Request.Context(), a, c.Param("id"), *in)
	}
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		httpez.RegisterAction(e, httpez.Action[service.BookPatch, *domain.Book]{
			Method:  method,
			Path:    "/books/:id",
			Binder:  httpez.BindJSON,
			Perm:    &httpez.Perm{Action: policy.ActionUpdate, Resource: policy.ResourceBook},
			Handler: update,
		})
	}

	httpez.RegisterAction(e, httpez.Action[struct{}, struct{}]{
		Method: http.MethodDelete,
		Path:   "/books/:id",
		Binder: httpez.BindNone,
		Perm:   &httpez.Perm{Action: policy.ActionDelete, Resource: policy.ResourceBook},
		Status: http.StatusNoContent,
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (struct{}, error) {
			return struct{}{}, m.books.Delete(c.Request.Context(), a, c.Param("id"))
		},
	})

	// 借书时书不存在按 400 处理，与“不可借”同级
	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.Loan]{
		Method: http.MethodPost,
		Path:   "/books/:id/borrow",
		Binder: httpez.BindNone,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (*domain.Loan, error) {
			loan, err := m.loans.Borrow(c.Request.Context(), a, c.Param("id"))
			if errors.Is(err, domain.ErrBookNotFound) {
				return nil, httpez.BadRequest(err.Error())
			}
			return loan, err
		},
	})

	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.Loan]{
		Method: http.MethodPost,
		Path:   "/books/:id/return",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (*domain.Loan, error) {
			return m.loans.Return(c.Request.Context(), a, c.Param("id"))
		},
	})
}
