package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"library-lending/internal/core/auth"
	"library-lending/internal/domain"
	"library-lending/internal/policy"
	resp "library-lending/internal/transport/http/response"
)

const (
	KeyActor  = "actor"
	KeyUserID = "userId"
)

type ActorResolver interface {
	ResolveActor(ctx context.Context, uid string) (policy.Actor, error)
}

// Authenticate 没有 Authorization 头按匿名放行；带了就必须有效，
// 角色 / 是否停用以库中当前值为准
func Authenticate(j *auth.JWTer, users ActorResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if ah == "" {
			c.Set(KeyActor, policy.Anonymous)
			c.Next()
			return
		}
		if !strings.HasPrefix(ah, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "malformed authorization header"))
			return
		}
		claims, err := j.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		actor, err := users.ResolveActor(c.Request.Context(), claims.UID)
		switch {
		case err == nil:
		case domain.IsNotFound(err), errors.Is(err, domain.ErrInactiveAccount):
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "account unavailable"))
			return
		default:
			// 其余为存储错误，500 并由 AccessLog 记录
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, resp.Error(resp.CodeServerError, "internal error"))
			return
		}
		c.Set(KeyActor, actor)
		c.Set(KeyUserID, actor.UserID)
		c.Next()
	}
}

func ActorFrom(c *gin.Context) policy.Actor {
	if v, ok := c.Get(KeyActor); ok {
		if a, ok := v.(policy.Actor); ok {
			return a
		}
	}
	return policy.Anonymous
}
