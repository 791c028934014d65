package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"library-lending/internal/core/cache"
	"library-lending/internal/domain"
	"library-lending/internal/policy"
	"library-lending/internal/repo"
	"library-lending/pkg/utils"
)

// UserPatch 资料修改；Role / IsActive 出现即视为特权字段
type UserPatch struct {
	Username    *string `json:"username" binding:"omitempty,min=1,max=150"`
	Email       *string `json:"email" binding:"omitempty,email"`
	PhoneNumber *string `json:"phone_number" binding:"omitempty,max=15"`
	Role        *string `json:"role" binding:"omitempty,oneof=user admin"`
	IsActive    *bool   `json:"is_active"`
}

// Fields 本次要写的 json 字段名，交给 policy 判断
func (p UserPatch) Fields() []string {
	var f []string
	if p.Username != nil {
		f = append(f, "username")
	}
	if p.Email != nil {
		f = append(f, "email")
	}
	if p.PhoneNumber != nil {
		f = append(f, "phone_number")
	}
	if p.Role != nil {
		f = append(f, policy.FieldRole)
	}
	if p.IsActive != nil {
		f = append(f, policy.FieldIsActive)
	}
	return f
}

func (p UserPatch) columns() map[string]any {
	m := map[string]any{}
	if p.Username != nil {
		m["username"] = strings.TrimSpace(*p.Username)
	}
	if p.Email != nil {
		m["email"] = *p.Email
	}
	if p.PhoneNumber != nil {
		m["phone_number"] = *p.PhoneNumber
	}
	if p.Role != nil {
		m["role"] = domain.Role(*p.Role)
	}
	if p.IsActive != nil {
		m["is_active"] = *p.IsActive
	}
	return m
}

type NewUser struct {
	Username    string      `json:"username" binding:"required,max=150"`
	Email       string      `json:"email" binding:"omitempty,email"`
	PhoneNumber string      `json:"phone_number" binding:"omitempty,max=15"`
	Password    string      `json:"password" binding:"required,min=6"`
	Role        domain.Role `json:"role" binding:"omitempty,oneof=user admin"`
}

type UserService struct {
	db     *gorm.DB
	r      repos
	cache  *cache.Cache
	policy domain.DeletePolicy
	log    *zap.Logger
}

func NewUserService(d Deps) *UserService {
	d = d.withDefaults()
	return &UserService{
		db:     d.DB,
		r:      reposOf(d.DB),
		cache:  d.Cache,
		policy: d.Policies.UserLoans,
		log:    d.Log.Named("user"),
	}
}

func ownUser(id string) policy.Target {
	return policy.Target{Resource: policy.ResourceUser, OwnerID: id}
}

// ResolveActor 每次请求按库中当前状态构造 Actor，停用账号视为未认证
func (s *UserService) ResolveActor(ctx context.Context, uid string) (policy.Actor, error) {
	u, err := s.r.users.FindByID(ctx, uid)
	if err != nil {
		return policy.Anonymous, err
	}
	if !u.IsActive {
		return policy.Anonymous, domain.ErrInactiveAccount
	}
	return policy.Actor{UserID: u.ID, Role: u.Role, Authenticated: true}, nil
}

// Create 管理员建号（含角色）；注册走 AuthService 固定为 user
func (s *UserService) Create(ctx context.Context, actor policy.Actor, in NewUser) (*domain.User, error) {
	if err := policy.Authorize(actor, policy.ActionCreate, policy.On(policy.ResourceUser)); err != nil {
		return nil, err
	}
	return s.create(ctx, in)
}

func (s *UserService) create(ctx context.Context, in NewUser) (*domain.User, error) {
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if !in.Role.Valid() {
		return nil, fmt.Errorf("unknown role %q", in.Role)
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:           utils.NewID(),
		Username:     strings.TrimSpace(in.Username),
		Email:        in.Email,
		PhoneNumber:  in.PhoneNumber,
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.r.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *UserService) Get(ctx context.Context, actor policy.Actor, id string) (*domain.User, error) {
	if err := policy.Authorize(actor, policy.ActionRead, ownUser(id)); err != nil {
		return nil, err
	}
	return s.r.users.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, actor policy.Actor, q string, p repo.Page) (*repo.Result[domain.User], error) {
	if err := policy.Authorize(actor, policy.ActionList, policy.On(policy.ResourceUser)); err != nil {
		return nil, err
	}
	return s.r.users.List(ctx, q, p)
}

// Update 自助修改与管理员修改共用；是否允许写 role / is_active 由 policy 决定
func (s *UserService) Update(ctx context.Context, actor policy.Actor, id string, in UserPatch) (*domain.User, error) {
	t := ownUser(id)
	t.Fields = in.Fields()
	if err := policy.Authorize(actor, policy.ActionUpdate, t); err != nil {
		return nil, err
	}
	if _, err := s.r.users.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.r.users.Update(ctx, id, in.columns()); err != nil {
		return nil, err
	}
	return s.r.users.FindByID(ctx, id)
}

func (s *UserService) Deactivate(ctx context.Context, actor policy.Actor, id string) (*domain.User, error) {
	return s.setActive(ctx, actor, policy.ActionDeactivate, id, false)
}

func (s *UserService) Reactivate(ctx context.Context, actor policy.Actor, id string) (*domain.User, error) {
	return s.setActive(ctx, actor, policy.ActionReactivate, id, true)
}

func (s *UserService) setActive(ctx context.Context, actor policy.Actor, act policy.Action, id string, active bool) (*domain.User, error) {
	if err := policy.Authorize(actor, act, ownUser(id)); err != nil {
		return nil, err
	}
	if _, err := s.r.users.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.r.users.Update(ctx, id, map[string]any{"is_active": active}); err != nil {
		return nil, err
	}
	s.log.Info("user active changed", zap.String("user_id", id), zap.Bool("active", active))
	return s.r.users.FindByID(ctx, id)
}

// Delete cascade 删除其借阅，未归还的书恢复可借；restrict 有借阅时拒绝
func (s *UserService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	if err := policy.Authorize(actor, policy.ActionDelete, ownUser(id)); err != nil {
		return err
	}
	var released []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, loans := s.r.users.WithTx(tx), s.r.loans.WithTx(tx)
		if _, err := users.FindByID(ctx, id); err != nil {
			return err
		}
		switch s.policy {
		case domain.DeleteRestrict:
			n, err := loans.CountBy(ctx, repo.ByUser, id)
			if err != nil {
				return err
			}
			if n > 0 {
				return domain.ErrHasLoans
			}
		case domain.DeleteCascade:
			ids, err := loans.OutstandingBookIDs(ctx, repo.ByUser, id)
			if err != nil {
				return err
			}
			if err := loans.DeleteBy(ctx, repo.ByUser, id); err != nil {
				return err
			}
			if err := s.r.books.WithTx(tx).MarkAvailable(ctx, ids...); err != nil {
				return err
			}
			released = ids
		}
		return users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	invalidateBooks(ctx, s.cache, released...)
	s.log.Info("user deleted", zap.String("user_id", id), zap.Stringer("policy", s.policy), zap.Int("released_books", len(released)))
	return nil
}

// ChangePassword 旧密码不匹配时不做任何修改
func (s *UserService) ChangePassword(ctx context.Context, actor policy.Actor, oldPassword, newPassword string) error {
	if err := policy.Authorize(actor, policy.ActionChangePassword, ownUser(actor.UserID)); err != nil {
		return err
	}
	u, err := s.r.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(oldPassword, u.PasswordHash) {
		return domain.ErrInvalidCredential
	}
	hash, err := utils.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.r.users.Update(ctx, u.ID, map[string]any{"password_hash": hash}); err != nil {
		return err
	}
	s.log.Info("password changed", zap.String("user_id", u.ID))
	return nil
}

// authenticate 登录校验；未知用户与密码错误返回同一个错误
func (s *UserService) authenticate(ctx context.Context, username, password string) (*domain.User, error) {
	u, err := s.r.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrInvalidCredential
		}
		return nil, err
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredential
	}
	if !u.IsActive {
		return nil, domain.ErrInactiveAccount
	}
	return u, nil
}
