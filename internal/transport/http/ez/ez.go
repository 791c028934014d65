// Package ez 一行注册带绑定、鉴权预检、错误映射的接口
package ez

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"library-lending/internal/policy"
	mdw "library-lending/internal/transport/http/middleware"
	resp "library-lending/internal/transport/http/response"
)

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，自己从 c.Param 取
)

// Perm 资源级预检，在绑定入参之前执行；属主相关的判断留给 service
type Perm struct {
	Action   policy.Action
	Resource policy.Resource
}

// Action I 入参，O 出参
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Perm    *Perm
	Status  int // 成功状态码，默认 200；204 不写 body
	Handler func(c *gin.Context, actor policy.Actor, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		actor := mdw.ActorFrom(c)

		// 1) 预检
		if a.Perm != nil {
			if err := policy.Authorize(actor, a.Perm.Action, policy.On(a.Perm.Resource)); err != nil {
				e.Fail(c, err)
				return
			}
		}

		// 2) 绑定入参
		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		default:
		}
		if bindErr != nil {
			if mdw.IsBodyTooLarge(bindErr) {
				mdw.AbortTooLarge(c)
				return
			}
			e.Fail(c, Invalid(bindErr))
			return
		}

		// 3) 执行
		out, err := a.Handler(c, actor, &in)
		if err != nil {
			e.Fail(c, err)
			return
		}
		if status == http.StatusNoContent {
			c.Status(status)
			return
		}
		c.JSON(status, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

// Fail 统一错误输出；5xx 记日志，不把内部错误透给客户端
func (e EZ) Fail(c *gin.Context, err error) {
	ae := FromError(err)
	if ae.Code >= http.StatusInternalServerError {
		_ = c.Error(err)
		e.log.Error("request failed",
			zap.String("rid", c.GetString(mdw.KeyRequestID)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(ae.Code, resp.Error(ae.Code, ae.Error()).WithDetails(ae.Details))
}
