package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/course-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/policy"
)

type ContextKey string

var (
	IdentityCtx    ContextKey = "identity"
	CourseOwnerCtx ContextKey = "courseOwner"
)

func identityFrom(r *http.Request) *auth.Identity {
	identity, _ := r.Context().Value(IdentityCtx).(*auth.Identity)
	return identity
}

// actorFrom 返回当前请求的调用者，未登录时返回匿名调用者
func actorFrom(r *http.Request) policy.Actor {
	identity := identityFrom(r)
	if identity == nil || identity.User == nil {
		return policy.Actor{}
	}
	return policy.Actor{ID: identity.User.ID, Role: identity.User.Role}
}
