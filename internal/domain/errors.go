package domain

import "errors"

var (
	ErrNotFound           = errors.New("记录不存在")
	ErrUnauthenticated    = errors.New("用户未登录或令牌无效")
	ErrInvalidCredentials = errors.New("邮箱不存在或密码错误")
	ErrForbidden          = errors.New("权限不足")
	ErrEmailTaken         = errors.New("邮箱已存在")
)
