package service

import (
	"context"

	"go.uber.org/zap"

	"library-lending/internal/core/auth"
	"library-lending/internal/domain"
)

type RegisterInput struct {
	Username    string `json:"username" binding:"required,max=150"`
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=15"`
	Password    string `json:"password" binding:"required,min=6"`
}

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type Session struct {
	User   *domain.User `json:"user"`
	Tokens auth.Pair    `json:"tokens"`
}

type AuthService struct {
	users *UserService
	jwt   *auth.JWTer
	log   *zap.Logger
}

func NewAuthService(d Deps, users *UserService) *AuthService {
	d = d.withDefaults()
	return &AuthService{users: users, jwt: d.JWT, log: d.Log.Named("auth")}
}

// Register 自助注册固定为普通用户，请求中的 role 不生效
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	u, err := s.users.create(ctx, NewUser{
		Username:    in.Username,
		Email:       in.Email,
		PhoneNumber: in.PhoneNumber,
		Password:    in.Password,
		Role:        domain.RoleUser,
	})
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.users.authenticate(ctx, in.Username, in.Password)
	if err != nil {
		s.log.Info("login rejected", zap.String("username", in.Username), zap.Error(err))
		return nil, err
	}
	return s.session(u)
}

// Refresh 角色按库中当前值重新签发
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	actor, err := s.users.ResolveActor(ctx, claims.UID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.r.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

func (s *AuthService) session(u *domain.User) (*Session, error) {
	pair, err := s.jwt.IssuePair(u.ID, string(u.Role))
	if err != nil {
		return nil, err
	}
	return &Session{User: u, Tokens: pair}, nil
}
