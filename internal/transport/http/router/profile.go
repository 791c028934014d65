package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-lending/internal/domain"
	"library-lending/internal/policy"
	"library-lending/internal/service"
	httpez "library-lending/internal/transport/http/ez"
)

type profileModule struct{ users *service.UserService }

type changePasswordIn struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

func (m profileModule) Mount(e httpez.EZ) {
	httpez.RegisterAction(e, httpez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/profile",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, a policy.Actor, _ *struct{}) (*domain.User, error) {
			return m.users.Get(c.Request.Context(), a, a.UserID)
		},
	})

	update := func(c *gin.Context, a policy.Actor, in *service.UserPatch) (*domain.User, error) {
		return m.users.Update(c.Request.Context(), a, a.UserID, *in)
	}
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		httpez.RegisterAction(e, httpez.Action[service.UserPatch, *domain.User]{
			Method:  method,
			Path:    "/profile",
			Binder:  httpez.BindJSON,
			Handler: update,
		})
	}

	httpez.RegisterAction(e, httpez.Action[changePasswordIn, map[string]string]{
		Method: http.MethodPost,
		Path:   "/change-password",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, a policy.Actor, in *changePasswordIn) (map[string]string, error) {
			if err := m.users.ChangePassword(c.Request.Context(), a, in.OldPassword, in.NewPassword); err != nil {
				return nil, err
			}
			return map[string]string{"message": "password updated"}, nil
		},
	})
}
