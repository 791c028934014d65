package router

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"library-lending/internal/domain"
	"library-lending/internal/policy"
	"library-lending/internal/service"
	httpez "library-lending/internal/transport/http/ez"
)

type authModule struct{ auth *service.AuthService }

type refreshIn struct {
	Refresh string `json:"refresh" binding:"required"`
}

func (m authModule) Mount(e httpez.EZ) {
	httpez.RegisterAction(e, httpez.Action[service.RegisterInput, *service.Session]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: httpez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, _ policy.Actor, in *service.RegisterInput) (*service.Session, error) {
			return m.auth.Register(c.Request.Context(), *in)
		},
	})

	httpez.RegisterAction(e, httpez.Action[service.LoginInput, *service.Session]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ policy.Actor, in *service.LoginInput) (*service.Session, error) {
			s, err := m.auth.Login(c.Request.Context(), *in)
			if errors.Is(err, domain.ErrInvalidCredential) || errors.Is(err, domain.ErrInactiveAccount) {
				return nil, httpez.Unauthorized("invalid credentials")
			}
			return s, err
		},
	})

	httpez.RegisterAction(e, httpez.Action[refreshIn, *service.Session]{
		Method: http.MethodPost,
		Path:   "/auth/refresh",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, _ policy.Actor, in *refreshIn) (*service.Session, error) {
			s, err := m.auth.Refresh(c.Request.Context(), in.Refresh)
			if err != nil && domain.IsNotFound(err) {
				return nil, httpez.Unauthorized("invalid token")
			}
			return s, err
		},
	})
}
