package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/policy"
)

type CreateUserResponse struct {
	ID   string `json:"id"`
	Link string `json:"link"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name" validate:"required"`
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role" validate:"omitempty,oneof=admin instructor student"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	role := domain.Role(req.Role)
	if role == "" {
		role = domain.RoleStudent
	}

	// 只有管理员可以创建管理员和教师账号
	if err := policy.Authorize(policy.ActionCreateUser, actorFrom(r), policy.Resource{RequestedRole: role}); err != nil {
		h.serviceError(w, r, err)
		return
	}

	isExists, err := h.store.CheckEmailIfExists(r.Context(), req.Email)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if isExists {
		h.errorResponse(w, r, http.StatusBadRequest, domain.ErrEmailTaken.Error())
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         role,
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		h.serviceError(w, r, err)
		return
	}

	// 欢迎邮件发送失败不影响注册结果，只记录日志
	if h.mail != nil {
		mailMessage := domain.MailMessage{
			Type: "create_user",
			To:   user.Email,
			Data: domain.CreateUserMailData{
				Name: user.Name,
				Role: user.Role,
			},
		}
		if err := h.mail.PublishMail(r.Context(), mailMessage); err != nil {
			h.logInternalServerError(r, err)
		}
	}

	h.writeJSON(w, r, http.StatusCreated, CreateUserResponse{
		ID:   user.ID,
		Link: "/users/" + user.ID,
	})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	token, err := h.resolver.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(policy.ActionLogout, actorFrom(r), policy.Resource{}); err != nil {
		h.serviceError(w, r, err)
		return
	}

	if err := h.resolver.Logout(r.Context(), identityFrom(r)); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, MessageResponse{Message: "登出成功"})
}

func (h *Handler) GetAllUsers(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(policy.ActionListUsers, actorFrom(r), policy.Resource{}); err != nil {
		h.serviceError(w, r, err)
		return
	}

	users, err := h.store.GetAllUsers(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string][]*domain.User{"users": users})
}

func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, http.StatusNotFound, "用户不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := policy.Authorize(policy.ActionReadProfile, actorFrom(r), policy.Resource{TargetID: user.ID}); err != nil {
		h.serviceError(w, r, err)
		return
	}

	// 返回内容取决于被查看用户的角色：教师返回所授课程，学生返回所选课程
	profile := map[string]any{"user": user}

	switch user.Role {
	case domain.RoleInstructor:
		courses, err := h.store.GetCoursesByInstructor(r.Context(), user.ID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		profile["courses_teach"] = courses
	case domain.RoleStudent:
		courses, err := h.store.GetCoursesByStudent(r.Context(), user.ID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		profile["courses_enroll"] = courses
	}

	h.writeJSON(w, r, http.StatusOK, profile)
}
