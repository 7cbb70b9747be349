package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
)

type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
}

func (rw *ResponseWriter) WriteHeader(statusCode int) {
	rw.StatusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (h *Handler) logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &ResponseWriter{ResponseWriter: w, StatusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		duration := time.Since(start)
		slog.Info("已处理请求", "status", rw.StatusCode, "ip", r.RemoteAddr, "method", r.Method, "path", r.URL.Path, "duration", duration)
	})
}

func (h *Handler) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				h.internalServerError(w, r, fmt.Errorf("panic: %v", err))
				stackTrace := string(debug.Stack())
				fmt.Print(stackTrace) // 这里如果用 slog 的话会很乱
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) resolveIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	token := auth.BearerToken(r.Header.Get("Authorization"))

	identity, err := h.resolver.Resolve(r.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthenticated):
			h.errorResponse(w, r, http.StatusUnauthorized, "用户未登录或令牌无效")
		default:
			h.internalServerError(w, r, err)
		}
		return nil, false
	}

	return identity, true
}

// authenticate 要求请求携带有效的 Bearer 令牌，并把本次请求中读取到的用户（含当前角色）放入 context
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := h.resolveIdentity(w, r)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), IdentityCtx, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// identify 与 authenticate 使用相同的认证流程，区别只是没有 Authorization 头时以匿名身份继续
func (h *Handler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			next.ServeHTTP(w, r)
			return
		}

		identity, ok := h.resolveIdentity(w, r)
		if !ok {
			return
		}

		ctx := context.WithValue(r.Context(), IdentityCtx, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// courseOwner 查出课程当前保存的教师 ID，后续的权限判断只以这个值为准
func (h *Handler) courseOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		courseID := chi.URLParam(r, "id")

		instructorID, err := h.store.GetCourseInstructorID(r.Context(), courseID)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				h.errorResponse(w, r, http.StatusNotFound, "课程不存在")
			default:
				h.internalServerError(w, r, err)
			}
			return
		}

		ctx := context.WithValue(r.Context(), CourseOwnerCtx, instructorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
