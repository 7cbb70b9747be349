package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/policy"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/roster"
)

type CoursePage struct {
	Courses     []*domain.Course `json:"courses"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	PageSize    int              `json:"pageSize"`
	TotalCount  int64            `json:"totalCount"`
}

func (h *Handler) pageSize() int {
	if h.config.Course.PageSize < 1 {
		return 10
	}
	return h.config.Course.PageSize
}

func (h *Handler) GetCourses(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(policy.ActionListCourses, actorFrom(r), policy.Resource{}); err != nil {
		h.serviceError(w, r, err)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize := h.pageSize()

	total, err := h.store.CountCourses(r.Context())
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	// 超出最后一页时直接返回空列表，page 很大时 (page-1)*pageSize 会溢出
	courses := make([]*domain.Course, 0)
	if page <= totalPages {
		courses, err = h.store.GetCoursesPage(r.Context(), (page-1)*pageSize, pageSize)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	h.writeJSON(w, r, http.StatusOK, CoursePage{
		Courses:     courses,
		TotalPages:  totalPages,
		CurrentPage: page,
		PageSize:    pageSize,
		TotalCount:  total,
	})
}

func (h *Handler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	var req domain.Course

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 创建课程时还没有持久化的教师，只能使用请求体中的 instructorId
	if err := policy.Authorize(policy.ActionCreateCourse, actorFrom(r), policy.Resource{OwnerID: req.InstructorID}); err != nil {
		h.serviceError(w, r, err)
		return
	}

	req.ID = ""
	if err := h.store.CreateCourse(r.Context(), &req); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, map[string]string{"id": req.ID})
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(policy.ActionReadCourse, actorFrom(r), policy.Resource{}); err != nil {
		h.serviceError(w, r, err)
		return
	}

	course, err := h.store.GetCourseByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, http.StatusNotFound, "课程不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.writeJSON(w, r, http.StatusOK, course)
}

// authorizeCourse 使用 courseOwner 中间件查出的教师 ID 进行权限判断
func (h *Handler) authorizeCourse(w http.ResponseWriter, r *http.Request, action policy.Action) bool {
	owner, _ := r.Context().Value(CourseOwnerCtx).(string)
	if err := policy.Authorize(action, actorFrom(r), policy.Resource{OwnerID: owner}); err != nil {
		h.serviceError(w, r, err)
		return false
	}
	return true
}

func (h *Handler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeCourse(w, r, policy.ActionUpdateCourse) {
		return
	}

	var patch domain.CoursePatch

	if err := h.readJSON(r, &patch); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(patch); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if patch.IsEmpty() {
		h.badRequest(w, r, errors.New("请求体中没有可更新的字段"))
		return
	}

	course, err := h.store.GetCourseByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	patch.Apply(course)
	if err := h.validate.Struct(course); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.store.UpdateCourse(r.Context(), course); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, MessageResponse{Message: "课程更新成功"})
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeCourse(w, r, policy.ActionDeleteCourse) {
		return
	}

	if err := h.store.DeleteCourse(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, MessageResponse{Message: "课程删除成功"})
}

func (h *Handler) GetCourseStudents(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeCourse(w, r, policy.ActionViewRoster) {
		return
	}

	course, err := h.store.GetCourseByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	students, err := h.roster.Resolve(r.Context(), course.StudentIDs)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, map[string][]*domain.User{"students": students})
}

func (h *Handler) UpdateCourseStudents(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeCourse(w, r, policy.ActionEditRoster) {
		return
	}

	var req struct {
		Add    *[]string `json:"add" validate:"required"`
		Remove *[]string `json:"remove" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	course, err := h.enrollment.SetEnrollment(r.Context(), chi.URLParam(r, "id"), *req.Add, *req.Remove)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, course)
}

func (h *Handler) GetCourseRoster(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeCourse(w, r, policy.ActionExportRoster) {
		return
	}

	csv, err := h.roster.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", roster.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+roster.FileName+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(csv); err != nil {
		h.logInternalServerError(r, err)
	}
}

func (h *Handler) GetCourseAssignments(w http.ResponseWriter, r *http.Request) {
	if err := policy.Authorize(policy.ActionReadAssignments, actorFrom(r), policy.Resource{}); err != nil {
		h.serviceError(w, r, err)
		return
	}

	courseID := chi.URLParam(r, "id")
	if _, err := h.store.GetCourseByID(r.Context(), courseID); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			h.errorResponse(w, r, http.StatusNotFound, "课程不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	assignments, err := h.store.GetAssignmentsByCourse(r.Context(), courseID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, assignments)
}
