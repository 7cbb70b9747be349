package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
)

func TestMemoryRepository_Users(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()

	u := &domain.User{Name: "张伟", Email: "zw@example.edu", Role: domain.RoleStudent}
	require.NoError(t, m.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)

	assert.ErrorIs(t, m.CreateUser(ctx, &domain.User{Email: "zw@example.edu"}), domain.ErrEmailTaken)

	got, err := m.GetUserByEmail(ctx, "zw@example.edu")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// 返回的是副本，修改不影响存储
	got.Role = domain.RoleAdmin
	again, err := m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleStudent, again.Role)

	require.NoError(t, m.SetUserRole(u.ID, domain.RoleInstructor))
	again, err = m.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleInstructor, again.Role)

	_, err = m.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryRepository_CoursesPaging(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, m.CreateCourse(ctx, &domain.Course{Title: fmt.Sprintf("课程 %d", i), InstructorID: "i1"}))
	}

	total, err := m.CountCourses(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)

	page, err := m.GetCoursesPage(ctx, 20, 10)
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, "课程 20", page[0].Title)

	page, err = m.GetCoursesPage(ctx, 30, 10)
	require.NoError(t, err)
	assert.Empty(t, page)

	// 负的 offset 按 0 处理
	page, err = m.GetCoursesPage(ctx, -20, 10)
	require.NoError(t, err)
	require.Len(t, page, 10)
	assert.Equal(t, "课程 0", page[0].Title)
}

func TestMemoryRepository_CourseLifecycle(t *testing.T) {
	m := NewMemoryRepository()
	ctx := context.Background()

	c := &domain.Course{Title: "程序设计", InstructorID: "i1", StudentIDs: []string{"s1", "s2"}}
	require.NoError(t, m.CreateCourse(ctx, c))
	require.NoError(t, m.CreateAssignment(ctx, &domain.Assignment{CourseID: c.ID, Title: "作业 1"}))

	owner, err := m.GetCourseInstructorID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "i1", owner)

	byStudent, err := m.GetCoursesByStudent(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, byStudent, 1)

	byInstructor, err := m.GetCoursesByInstructor(ctx, "i2")
	require.NoError(t, err)
	assert.Empty(t, byInstructor)

	c.StudentIDs = []string{"s3"}
	require.NoError(t, m.UpdateCourse(ctx, c))
	byStudent, err = m.GetCoursesByStudent(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, byStudent)

	require.NoError(t, m.DeleteCourse(ctx, c.ID))
	assert.ErrorIs(t, m.DeleteCourse(ctx, c.ID), domain.ErrNotFound)
	assert.ErrorIs(t, m.UpdateCourse(ctx, c), domain.ErrNotFound)

	assignments, err := m.GetAssignmentsByCourse(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, assignments)

	assert.ErrorIs(t, m.CreateAssignment(ctx, &domain.Assignment{CourseID: c.ID}), domain.ErrNotFound)
}
