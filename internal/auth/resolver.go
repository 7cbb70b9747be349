package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

type UserFinder interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Identity 是一次请求中已认证的调用者，User 为本次请求时从存储中读取的最新记录
type Identity struct {
	User      *domain.User
	TokenID   string
	ExpiresAt time.Time
}

type Resolver struct {
	tokens      *Tokens
	users       UserFinder
	revocations Revocations
}

func NewResolver(tokens *Tokens, users UserFinder, revocations Revocations) *Resolver {
	return &Resolver{
		tokens:      tokens,
		users:       users,
		revocations: revocations,
	}
}

// BearerToken 从 Authorization 头中取出令牌，格式不正确时返回空字符串
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Resolve 先校验令牌得到 subject，再从存储中读取该用户的当前角色
func (r *Resolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	claims, err := r.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	if r.revocations != nil && claims.ID != "" {
		revoked, err := r.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, domain.ErrUnauthenticated
		}
	}

	user, err := r.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}

	identity := &Identity{
		User:    user,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}

	return identity, nil
}

// Login 校验邮箱和密码并签发令牌；邮箱不存在和密码错误返回同一个错误，避免暴露账户是否存在
func (r *Resolver) Login(ctx context.Context, email, password string) (string, error) {
	user, err := r.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	token, _, _, err := r.tokens.Issue(user.ID)
	return token, err
}

// Logout 使当前令牌在剩余有效期内失效
func (r *Resolver) Logout(ctx context.Context, identity *Identity) error {
	if r.revocations == nil || identity.TokenID == "" {
		return nil
	}
	return r.revocations.Revoke(ctx, identity.TokenID, time.Until(identity.ExpiresAt))
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
