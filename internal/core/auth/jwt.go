package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

type Claims struct {
	UID  string    `json:"uid"`
	Role string    `json:"role"` // "user" or "admin"
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Pair 登录 / 注册返回的令牌对
type Pair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type JWTer struct {
	Secret     []byte
	Issuer     string
	TTL        time.Duration // access token
	RefreshTTL time.Duration
	Now        func() time.Time // 为空时 time.Now
}

func (j *JWTer) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

func (j *JWTer) Issue(uid, role string) (string, error) {
	tok, _, err := j.issue(uid, role, TokenAccess, j.TTL)
	return tok, err
}

func (j *JWTer) IssuePair(uid, role string) (Pair, error) {
	access, aexp, err := j.issue(uid, role, TokenAccess, j.TTL)
	if err != nil {
		return Pair{}, err
	}
	refresh, rexp, err := j.issue(uid, role, TokenRefresh, j.RefreshTTL)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh, AccessExpiresAt: aexp, RefreshExpiresAt: rexp}, nil
}

func (j *JWTer) issue(uid, role string, typ TokenType, ttl time.Duration) (string, time.Time, error) {
	now := j.now()
	exp := now.Add(ttl)
	claims := Claims{
		UID:  uid,
		Role: role,
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.Secret)
	return s, exp, err
}

// Parse 只接受 access token
func (j *JWTer) Parse(tokenStr string) (*Claims, error) { return j.parse(tokenStr, TokenAccess) }

func (j *JWTer) ParseRefresh(tokenStr string) (*Claims, error) { return j.parse(tokenStr, TokenRefresh) }

func (j *JWTer) parse(tokenStr string, want TokenType) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(60*time.Second), jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	if c.Type != want {
		return nil, ErrWrongTokenType
	}
	return c, nil
}
