package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken 无效的令牌
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken 令牌已过期
	ErrExpiredToken = errors.New("token expired")
)

// Claims 读取令牌的自定义声明。令牌只授予单个邮箱的读取权限。
type Claims struct {
	LocalPart string `json:"local_part"`
	jwt.RegisteredClaims
}

// Manager 读取令牌管理器。持有凭证的客户端可以换取短期令牌，
// 之后的读取请求不必每次携带邮箱密码。
type Manager struct {
	secret []byte
	issuer string
	expiry time.Duration
}

// NewManager 创建读取令牌管理器
func NewManager(secret, issuer string, expiry time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
	}
}

// Generate 为邮箱签发读取令牌，返回令牌与有效秒数
func (m *Manager) Generate(localPart string) (string, int64, error) {
	now := time.Now()
	claims := Claims{
		LocalPart: localPart,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   localPart,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, int64(m.expiry.Seconds()), nil
}

// Validate 验证令牌并返回其授权的邮箱前缀
func (m *Manager) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.LocalPart == "" {
		return "", ErrInvalidToken
	}
	return claims.LocalPart, nil
}
