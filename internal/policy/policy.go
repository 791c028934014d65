// Package policy 纯函数鉴权：(actor, action, target) -> allow / deny
package policy

import (
	"fmt"

	"library-lending/internal/domain"
)

type Action int

const (
	ActionRead Action = iota
	ActionList
	ActionCreate
	ActionUpdate
	ActionDelete
	ActionBorrow
	ActionReturn
	ActionDeactivate
	ActionReactivate
	ActionChangePassword
)

var actionNames = [...]string{
	ActionRead:           "read",
	ActionList:           "list",
	ActionCreate:         "create",
	ActionUpdate:         "update",
	ActionDelete:         "delete",
	ActionBorrow:         "borrow",
	ActionReturn:         "return",
	ActionDeactivate:     "deactivate",
	ActionReactivate:     "reactivate",
	ActionChangePassword: "change_password",
}

func (a Action) String() string {
	if a >= 0 && int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("Action(%d)", int(a))
}

type Resource int

const (
	ResourceBook Resource = iota
	ResourceUser
	ResourceLoan
)

func (r Resource) String() string {
	switch r {
	case ResourceBook:
		return "book"
	case ResourceUser:
		return "user"
	case ResourceLoan:
		return "loan"
	}
	return fmt.Sprintf("Resource(%d)", int(r))
}

// 自助修改资料时不允许出现的字段
const (
	FieldRole     = "role"
	FieldIsActive = "is_active"
)

// Actor 请求发起方；匿名时 Authenticated=false
type Actor struct {
	UserID        string
	Role          domain.Role
	Authenticated bool
}

var Anonymous = Actor{}

func (a Actor) IsAdmin() bool { return a.Authenticated && a.Role == domain.RoleAdmin }

// Target 被操作资源；OwnerID 仅 User 资源使用，Fields 为本次要写入的字段
type Target struct {
	Resource Resource
	OwnerID  string
	Fields   []string
}

func On(r Resource) Target { return Target{Resource: r} }

// Can 规则按优先级：admin 全放行 > 匿名只读书 > 注册用户（借还书、自己的资料） > 其余拒绝
func Can(actor Actor, action Action, t Target) bool {
	if actor.IsAdmin() {
		return true
	}
	if !actor.Authenticated {
		return t.Resource == ResourceBook && isRead(action)
	}
	switch t.Resource {
	case ResourceBook:
		switch action {
		case ActionRead, ActionList, ActionBorrow, ActionReturn:
			return true
		case ActionCreate, ActionUpdate, ActionDelete, ActionDeactivate, ActionReactivate, ActionChangePassword:
			return false
		}
	case ResourceUser:
		if t.OwnerID == "" || t.OwnerID != actor.UserID {
			return false
		}
		switch action {
		case ActionRead, ActionChangePassword:
			return true
		case ActionUpdate:
			return !touchesPrivileged(t.Fields)
		case ActionList, ActionCreate, ActionDelete, ActionBorrow, ActionReturn, ActionDeactivate, ActionReactivate:
			return false
		}
	case ResourceLoan:
		return false
	}
	return false
}

// Authorize 同 Can，拒绝时返回 *DeniedError
func Authorize(actor Actor, action Action, t Target) error {
	if Can(actor, action, t) {
		return nil
	}
	return &DeniedError{Action: action, Resource: t.Resource, Authenticated: actor.Authenticated}
}

func isRead(a Action) bool { return a == ActionRead || a == ActionList }

func touchesPrivileged(fields []string) bool {
	for _, f := range fields {
		if f == FieldRole || f == FieldIsActive {
			return true
		}
	}
	return false
}

// DeniedError 传输层据 Authenticated 区分 401 / 403
type DeniedError struct {
	Action        Action
	Resource      Resource
	Authenticated bool
}

func (e *DeniedError) Error() string {
	if !e.Authenticated {
		return fmt.Sprintf("authentication required to %s %s", e.Action, e.Resource)
	}
	return fmt.Sprintf("not allowed to %s %s", e.Action, e.Resource)
}
