package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-lending/internal/domain"
	"library-lending/internal/policy"
	"library-lending/internal/repo"
	"library-lending/internal/service"
	httpez "library-lending/internal/transport/http/ez"
)

type loanModule struct{ loans *service.LoanService }

type loanListQ struct {
	repo.LoanFilter
	repo.Page
}

func (m loanModule) Mount(e httpez.EZ) {
	httpez.RegisterAction(e, httpez.Action[loanListQ, *repo.Result[domain.Loan]]{
		Method: http.MethodGet,
		Path:   "/loans",
		Binder: httpez.BindQuery,
		Perm:   &httpez.Perm{Action: policy.ActionList, Resource: policy.ResourceLoan},
		Handler: func(c *gin.Context, a policy.Actor, in *loanListQ) (*repo.Result[domain.Loan], error) {
			return m.loans.List(c.Request.Context(), a, in.LoanFilter, in.Page)
		},
	})

	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.Loan]{
		Method: http.MethodGet,
		Path:   "/loans/:id",
		Binder: httpez.BindNone,
		Perm:   &httpez.Perm{Action: policy.ActionRead, Resource: policy.ResourceLoan},
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (*domain.Loan, error) {
			return m.loans.Get(c.Request.Context(), a, c.Param("id"))
		},
	})

	httpez.RegisterAction(e, httpez.Action[struct{}, struct{}]{
		Method: http.MethodDelete,
		Path:   "/loans/:id",
		Binder: httpez.BindNone,
		Perm:   &httpez.Perm{Action: policy.ActionDelete, Resource: policy.ResourceLoan},
		Status: http.StatusNoContent,
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (struct{}, error) {
			return struct{}{}, m.loans.Delete(c.Request.Context(), a, c.Param("id"))
		},
	})
}
