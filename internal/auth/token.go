package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("无效的令牌")

// Claims 只携带 subject（用户 ID）和令牌 ID，不携带角色，角色必须在每次请求时重新查询
type Claims struct {
	jwt.RegisteredClaims
}

type Tokens struct {
	secret     []byte
	expiration time.Duration
	now        func() time.Time
}

func NewTokens(secret string, expiration time.Duration) *Tokens {
	return &Tokens{
		secret:     []byte(secret),
		expiration: expiration,
		now:        time.Now,
	}
}

// Issue 为 subjectID 签发令牌，返回令牌字符串以及令牌 ID 和过期时间（注销时使用）
func (t *Tokens) Issue(subjectID string) (string, string, time.Time, error) {
	now := t.now()
	expiresAt := now.Add(t.expiration)
	tokenID := uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   subjectID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	})

	ss, err := token.SignedString(t.secret)
	if err != nil {
		return "", "", time.Time{}, err
	}

	return ss, tokenID, expiresAt, nil
}

func (t *Tokens) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(tk *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
