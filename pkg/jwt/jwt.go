package jwt

import (
	"cmms/pkg/config"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer          = "CMMS"
	defaultDuration = 24 * time.Hour
)

// Claims 令牌声明，租户ID随令牌下发，鉴权时与库中用户比对
type Claims struct {
	UserID   uint   `json:"user_id"`
	TenantID uint   `json:"tenant_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Token 签发结果
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

type Manager struct {
	secret   []byte
	duration time.Duration
	now      func() time.Time
}

func NewManager(secret string, duration time.Duration) *Manager {
	return &Manager{secret: []byte(secret), duration: duration, now: time.Now}
}

// FromConfig 按配置创建，有效期解析失败时使用 24h
func FromConfig(cfg config.JWTConfig) *Manager {
	duration, err := time.ParseDuration(cfg.TokenDuration)
	if err != nil || duration <= 0 {
		duration = defaultDuration
	}
	return NewManager(cfg.SecretKey, duration)
}

func (m *Manager) Duration() time.Duration {
	return m.duration
}

// Issue 签发令牌
func (m *Manager) Issue(userID, tenantID uint, username string) (*Token, error) {
	now := m.now()
	token := &Token{ID: uuid.NewString(), ExpiresAt: now.Add(m.duration)}
	claims := Claims{
		UserID:   userID,
		TenantID: tenantID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.ID,
			Issuer:    issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	token.Value = value
	return token, nil
}

// Verify 校验签名、签发方和有效期
func (m *Manager) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if claims.UserID == 0 || claims.TenantID == 0 {
		return nil, errors.New("令牌缺少用户或租户信息")
	}
	return claims, nil
}

// Refresh 用未过期的令牌换取新令牌，allow 返回错误时不签发
func (m *Manager) Refresh(raw string, allow func(*Claims) error) (*Token, error) {
	claims, err := m.Verify(raw)
	if err != nil {
		return nil, err
	}
	if allow != nil {
		if err := allow(claims); err != nil {
			return nil, err
		}
	}
	return m.Issue(claims.UserID, claims.TenantID, claims.Username)
}
