package enrollment

import (
	"context"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
)

type CourseStore interface {
	GetCourseByID(ctx context.Context, id string) (*domain.Course, error)
	UpdateCourse(ctx context.Context, course *domain.Course) error
}

type Manager struct {
	courses  CourseStore
	validate *validator.Validate
}

func NewManager(courses CourseStore, validate *validator.Validate) *Manager {
	return &Manager{
		courses:  courses,
		validate: validate,
	}
}

// Roster 计算新的选课名单：只由 add 构成，去掉出现在 remove 中的 ID。
// 原名单不会被合并进来，add 中的重复项也不会被去重。
func Roster(add, remove []string) []string {
	roster := make([]string, 0, len(add))
	for _, id := range add {
		if slices.Contains(remove, id) {
			continue
		}
		roster = append(roster, id)
	}
	return roster
}

// SetEnrollment 用 Roster 的结果替换课程的 studentIds，校验通过后按课程 ID 写回并返回更新后的课程。
// 校验失败时返回 validator.ValidationErrors，此时不会写入。
func (m *Manager) SetEnrollment(ctx context.Context, courseID string, add, remove []string) (*domain.Course, error) {
	course, err := m.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	candidate := *course
	candidate.StudentIDs = Roster(add, remove)

	if err := m.validate.Struct(candidate); err != nil {
		return nil, err
	}

	if err := m.courses.UpdateCourse(ctx, &candidate); err != nil {
		return nil, err
	}

	return &candidate, nil
}
