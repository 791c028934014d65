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

// userModule 管理端用户接口，全部要求 admin
type userModule struct{ users *service.UserService }

type userListQ struct {
	Q string `form:"q"`
	repo.Page
}

func (m userModule) Mount(e httpez.EZ) {
	userPerm := func(a policy.Action) *httpez.Perm {
		return &httpez.Perm{Action: a, Resource: policy.ResourceUser}
	}

	httpez.RegisterAction(e, httpez.Action[userListQ, *repo.Result[domain.User]]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Perm:   userPerm(policy.ActionList),
		Handler: func(c *gin.Context, a policy.Actor, in *userListQ) (*repo.Result[domain.User], error) {
			return m.users.List(c.Request.Context(), a, in.Q, in.Page)
		},
	})

	httpez.RegisterAction(e, httpez.Action[service.NewUser, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users",
		Binder: httpez.BindJSON,
		Perm:   userPerm(policy.ActionCreate),
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, a policy.Actor, in *service.NewUser) (*domain.User, error) {
			return m.users.Create(c.Request.Context(), a, *in)
		},
	})

	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Perm:   userPerm(policy.ActionRead),
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (*domain.User, error) {
			return m.users.Get(c.Request.Context(), a, c.Param("id"))
		},
	})

	update := func(c *gin.Context, a policy.Actor, in *service.UserPatch) (*domain.User, error) {
		return m.users.Update(c.Request.Context(), a, c.Param("id"), *in)
	}
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		httpez.RegisterAction(e, httpez.Action[service.UserPatch, *domain.User]{
			Method:  method,
			Path:    "/users/:id",
			Binder:  httpez.BindJSON,
			Perm:    userPerm(policy.ActionUpdate),
			Handler: update,
		})
	}

	httpez.RegisterAction(e, httpez.Action[struct{}, struct{}]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: httpez.BindNone,
		Perm:   userPerm(policy.ActionDelete),
		Status: http.StatusNoContent,
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (struct{}, error) {
			return struct{}{}, m.users.Delete(c.Request.Context(), a, c.Param("id"))
		},
	})

	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users/:id/deactivate",
		Binder: httpez.BindNone,
		Perm:   userPerm(policy.ActionDeactivate),
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (*domain.User, error) {
			return m.users.Deactivate(c.Request.Context(), a, c.Param("id"))
		},
	})

	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodPost,
		Path:   "/users/:id/reactivate",
		Binder: httpez.BindNone,
		Perm:   userPerm(policy.ActionReactivate),
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (*domain.User, error) {
			return m.users.Reactivate(c.Request.Context(), a, c.Param("id"))
		},
	})
}
