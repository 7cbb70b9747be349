package handler

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
)

func TestGetCourses_Paging(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 25; i++ {
		ts.createCourse("inst-1")
	}

	tests := []struct {
		query       string
		wantPage    int
		wantCourses int
	}{
		{"?page=3", 3, 5},
		{"?page=1", 1, 10},
		{"", 1, 10},
		{"?page=0", 1, 10},
		{"?page=-4", 1, 10},
		{"?page=abc", 1, 10},
		{"?page=9", 9, 0},
		{"?page=9223372036854775807", math.MaxInt64, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := ts.do(http.MethodGet, "/courses"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)

			page := decode[CoursePage](t, resp)
			assert.Equal(t, tt.wantPage, page.CurrentPage)
			assert.Len(t, page.Courses, tt.wantCourses)
			assert.Equal(t, 3, page.TotalPages)
			assert.Equal(t, 10, page.PageSize)
			assert.EqualValues(t, 25, page.TotalCount)
		})
	}
}

func TestCreateCourse(t *testing.T) {
	ts := newTestServer(t)
	_, adminToken := ts.createUser("管理员", "admin@example.edu", domain.RoleAdmin)
	inst, instToken := ts.createUser("张伟", "zw@example.edu", domain.RoleInstructor)
	stu, stuToken := ts.createUser("李娜", "ln@example.edu", domain.RoleStudent)

	body := func(instructorID string) map[string]any {
		return map[string]any{
			"subject": "CS", "number": "101", "title": "程序设计", "term": "2026 春季",
			"instructorId": instructorID, "studentIds": []string{},
		}
	}

	t.Run("instructor for self", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses", instToken, body(inst.ID))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		created := decode[map[string]string](t, resp)

		course, err := ts.store.GetCourseByID(context.Background(), created["id"])
		require.NoError(t, err)
		assert.Equal(t, inst.ID, course.InstructorID)
	})

	t.Run("instructor for someone else", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses", instToken, body("other"))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("admin for anyone", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses", adminToken, body(inst.ID))
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("student", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses", stuToken, body(stu.ID))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("anonymous", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses", "", body(inst.ID))
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing instructorId", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses", adminToken, body(""))
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.NotEmpty(t, decode[ErrorResponse](t, resp).Error)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses", adminToken, "{")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetCourse(t *testing.T) {
	ts := newTestServer(t)
	course := ts.createCourse("inst-1", "s1")

	resp := ts.do(http.MethodGet, "/courses/"+course.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[domain.Course](t, resp)
	assert.Equal(t, course.ID, got.ID)
	assert.Equal(t, []string{"s1"}, got.StudentIDs)

	resp = ts.do(http.MethodGet, "/courses/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateCourse(t *testing.T) {
	ts := newTestServer(t)
	owner, ownerToken := ts.createUser("张伟", "zw@example.edu", domain.RoleInstructor)
	_, otherToken := ts.createUser("王芳", "wf@example.edu", domain.RoleInstructor)
	_, adminToken := ts.createUser("管理员", "admin@example.edu", domain.RoleAdmin)
	course := ts.createCourse(owner.ID)

	t.Run("other instructor is forbidden and nothing changes", func(t *testing.T) {
		resp := ts.do(http.MethodPatch, "/courses/"+course.ID, otherToken, map[string]string{"title": "改名"})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		stored, err := ts.store.GetCourseByID(context.Background(), course.ID)
		require.NoError(t, err)
		assert.Equal(t, "程序设计", stored.Title)
	})

	t.Run("owner merges present fields only", func(t *testing.T) {
		resp := ts.do(http.MethodPatch, "/courses/"+course.ID, ownerToken, map[string]string{"title": "高级程序设计"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		stored, err := ts.store.GetCourseByID(context.Background(), course.ID)
		require.NoError(t, err)
		assert.Equal(t, "高级程序设计", stored.Title)
		assert.Equal(t, "CS", stored.Subject)
		assert.Equal(t, owner.ID, stored.InstructorID)
	})

	t.Run("admin", func(t *testing.T) {
		resp := ts.do(http.MethodPatch, "/courses/"+course.ID, adminToken, map[string]string{"term": "2026 秋季"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("empty patch", func(t *testing.T) {
		resp := ts.do(http.MethodPatch, "/courses/"+course.ID, ownerToken, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown course is 404 before permission", func(t *testing.T) {
		resp := ts.do(http.MethodPatch, "/courses/nope", otherToken, map[string]string{"title": "x"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("permission before validation", func(t *testing.T) {
		resp := ts.do(http.MethodPatch, "/courses/"+course.ID, otherToken, "{")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("no token", func(t *testing.T) {
		resp := ts.do(http.MethodPatch, "/courses/"+course.ID, "", map[string]string{"title": "x"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestUpdateCourse_RoleChangeTakesEffect(t *testing.T) {
	ts := newTestServer(t)
	inst, token := ts.createUser("张伟", "zw@example.edu", domain.RoleInstructor)
	course := ts.createCourse(inst.ID)

	resp := ts.do(http.MethodPatch, "/courses/"+course.ID, token, map[string]string{"title": "第一次"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 同一个令牌，角色被降级后立即失去权限
	require.NoError(t, ts.store.SetUserRole(inst.ID, domain.RoleStudent))

	resp = ts.do(http.MethodPatch, "/courses/"+course.ID, token, map[string]string{"title": "第二次"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDeleteCourse(t *testing.T) {
	ts := newTestServer(t)
	owner, ownerToken := ts.createUser("张伟", "zw@example.edu", domain.RoleInstructor)
	_, otherToken := ts.createUser("王芳", "wf@example.edu", domain.RoleInstructor)
	_, stuToken := ts.createUser("李娜", "ln@example.edu", domain.RoleStudent)
	course := ts.createCourse(owner.ID)

	resp := ts.do(http.MethodDelete, "/courses/"+course.ID, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_, err := ts.store.GetCourseByID(context.Background(), course.ID)
	require.NoError(t, err)

	resp = ts.do(http.MethodDelete, "/courses/"+course.ID, stuToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_, err = ts.store.GetCourseByID(context.Background(), course.ID)
	require.NoError(t, err)

	resp = ts.do(http.MethodDelete, "/courses/"+course.ID, ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(http.MethodDelete, "/courses/"+course.ID, ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCourseStudents(t *testing.T) {
	ts := newTestServer(t)
	owner, ownerToken := ts.createUser("张伟", "zw@example.edu", domain.RoleInstructor)
	_, otherToken := ts.createUser("王芳", "wf@example.edu", domain.RoleInstructor)
	s1, _ := ts.createUser("李娜", "ln@example.edu", domain.RoleStudent)
	s2, _ := ts.createUser("刘洋", "ly@example.edu", domain.RoleStudent)
	course := ts.createCourse(owner.ID, "old")

	t.Run("replace by add minus remove", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses/"+course.ID+"/students", ownerToken, map[string][]string{
			"add":    {s2.ID, s1.ID, "ghost"},
			"remove": {"ghost"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{s2.ID, s1.ID}, decode[domain.Course](t, resp).StudentIDs)
	})

	t.Run("list keeps roster order", func(t *testing.T) {
		resp := ts.do(http.MethodGet, "/courses/"+course.ID+"/students", ownerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		students := decode[map[string][]domain.User](t, resp)["students"]
		require.Len(t, students, 2)
		assert.Equal(t, s2.ID, students[0].ID)
		assert.Equal(t, s1.ID, students[1].ID)
	})

	t.Run("missing remove field", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses/"+course.ID+"/students", ownerToken, map[string][]string{
			"add": {s1.ID},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("empty id is rejected without write", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses/"+course.ID+"/students", ownerToken, map[string][]string{
			"add":    {""},
			"remove": {},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		stored, err := ts.store.GetCourseByID(context.Background(), course.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{s2.ID, s1.ID}, stored.StudentIDs)
	})

	t.Run("other instructor", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses/"+course.ID+"/students", otherToken, map[string][]string{
			"add": {}, "remove": {},
		})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp = ts.do(http.MethodGet, "/courses/"+course.ID+"/students", otherToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("empty edit clears roster", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/courses/"+course.ID+"/students", ownerToken, map[string][]string{
			"add": {}, "remove": {},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, decode[domain.Course](t, resp).StudentIDs)
	})
}

func TestCourseRoster(t *testing.T) {
	ts := newTestServer(t)
	owner, ownerToken := ts.createUser("张伟", "zw@example.edu", domain.RoleInstructor)
	_, stuToken := ts.createUser("学生", "stu@example.edu", domain.RoleStudent)
	s1, _ := ts.createUser("李娜", "ln@example.edu", domain.RoleStudent)
	s2, _ := ts.createUser("刘洋", "ly@example.edu", domain.RoleStudent)

	t.Run("csv in roster order", func(t *testing.T) {
		course := ts.createCourse(owner.ID, s1.ID, s2.ID)

		resp := ts.do(http.MethodGet, "/courses/"+course.ID+"/roster", ownerToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
		assert.Equal(t, `attachment; filename="studentList.csv"`, resp.Header.Get("Content-Disposition"))

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		want := fmt.Sprintf("id,name,email\r\n%s,李娜,ln@example.edu\r\n%s,刘洋,ly@example.edu\r\n", s1.ID, s2.ID)
		assert.Equal(t, want, string(body))
	})

	t.Run("missing student is named", func(t *testing.T) {
		course := ts.createCourse(owner.ID, s1.ID, "S2-gone")

		resp := ts.do(http.MethodGet, "/courses/"+course.ID+"/roster", ownerToken, nil)
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
		assert.Contains(t, decode[ErrorResponse](t, resp).Error, "S2-gone")
	})

	t.Run("student is forbidden", func(t *testing.T) {
		course := ts.createCourse(owner.ID)
		resp := ts.do(http.MethodGet, "/courses/"+course.ID+"/roster", stuToken, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown course", func(t *testing.T) {
		resp := ts.do(http.MethodGet, "/courses/nope/roster", ownerToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestGetCourseAssignments(t *testing.T) {
	ts := newTestServer(t)
	course := ts.createCourse("inst-1")
	require.NoError(t, ts.store.CreateAssignment(context.Background(), &domain.Assignment{CourseID: course.ID, Title: "作业 1", Points: 10}))

	resp := ts.do(http.MethodGet, "/courses/"+course.ID+"/assignments", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assignments := decode[[]domain.Assignment](t, resp)
	require.Len(t, assignments, 1)
	assert.Equal(t, "作业 1", assignments[0].Title)

	resp = ts.do(http.MethodGet, "/courses/nope/assignments", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
