package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
)

// MemoryRepository 把所有数据保存在进程内存中，用于本地开发（DATABASE_DRIVER=memory）和测试
type MemoryRepository struct {
	mu          sync.RWMutex
	users       map[string]*domain.User
	courses     map[string]*domain.Course
	courseOrder []string
	assignments []*domain.Assignment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		users:   make(map[string]*domain.User),
		courses: make(map[string]*domain.Course),
	}
}

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func copyCourse(c *domain.Course) *domain.Course {
	cp := *c
	cp.StudentIDs = slices.Clone(c.StudentIDs)
	if cp.StudentIDs == nil {
		cp.StudentIDs = make([]string, 0)
	}
	return &cp
}

func (m *MemoryRepository) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now()
	m.users[user.ID] = copyUser(user)

	return nil
}

func (m *MemoryRepository) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyUser(u), nil
}

func (m *MemoryRepository) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryRepository) CheckEmailIfExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetUserByEmail(ctx, email)
	return err == nil, nil
}

func (m *MemoryRepository) GetAllUsers(_ context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// SetUserRole 直接修改用户角色，管理端没有对应接口，供运维脚本和测试使用
func (m *MemoryRepository) SetUserRole(id string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	u.Role = role
	return nil
}

func (m *MemoryRepository) CountCourses(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return int64(len(m.courseOrder)), nil
}

func (m *MemoryRepository) GetCoursesPage(_ context.Context, offset, limit int) ([]*domain.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}

	courses := make([]*domain.Course, 0)
	for i := offset; i < len(m.courseOrder) && len(courses) < limit; i++ {
		courses = append(courses, copyCourse(m.courses[m.courseOrder[i]]))
	}
	return courses, nil
}

func (m *MemoryRepository) filterCourses(keep func(c *domain.Course) bool) []*domain.Course {
	m.mu.RLock()
	defer m.mu.RUnlock()

	courses := make([]*domain.Course, 0)
	for _, id := range m.courseOrder {
		if c := m.courses[id]; keep(c) {
			courses = append(courses, copyCourse(c))
		}
	}
	return courses
}

func (m *MemoryRepository) GetCoursesByInstructor(_ context.Context, instructorID string) ([]*domain.Course, error) {
	return m.filterCourses(func(c *domain.Course) bool {
		return c.InstructorID == instructorID
	}), nil
}

func (m *MemoryRepository) GetCoursesByStudent(_ context.Context, studentID string) ([]*domain.Course, error) {
	return m.filterCourses(func(c *domain.Course) bool {
		return slices.Contains(c.StudentIDs, studentID)
	}), nil
}

func (m *MemoryRepository) CreateCourse(_ context.Context, course *domain.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	course.ID = uuid.NewString()
	if course.StudentIDs == nil {
		course.StudentIDs = make([]string, 0)
	}
	m.courses[course.ID] = copyCourse(course)
	m.courseOrder = append(m.courseOrder, course.ID)

	return nil
}

func (m *MemoryRepository) GetCourseByID(_ context.Context, id string) (*domain.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.courses[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyCourse(c), nil
}

func (m *MemoryRepository) GetCourseInstructorID(ctx context.Context, id string) (string, error) {
	c, err := m.GetCourseByID(ctx, id)
	if err != nil {
		return "", err
	}
	return c.InstructorID, nil
}

func (m *MemoryRepository) UpdateCourse(_ context.Context, course *domain.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.courses[course.ID]; !ok {
		return domain.ErrNotFound
	}
	m.courses[course.ID] = copyCourse(course)

	return nil
}

func (m *MemoryRepository) DeleteCourse(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.courses[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.courses, id)
	m.courseOrder = slices.DeleteFunc(m.courseOrder, func(v string) bool { return v == id })
	m.assignments = slices.DeleteFunc(m.assignments, func(a *domain.Assignment) bool { return a.CourseID == id })

	return nil
}

func (m *MemoryRepository) CreateAssignment(_ context.Context, assignment *domain.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.courses[assignment.CourseID]; !ok {
		return domain.ErrNotFound
	}
	assignment.ID = uuid.NewString()
	a := *assignment
	m.assignments = append(m.assignments, &a)

	return nil
}

func (m *MemoryRepository) GetAssignmentsByCourse(_ context.Context, courseID string) ([]*domain.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	assignments := make([]*domain.Assignment, 0)
	for _, a := range m.assignments {
		if a.CourseID == courseID {
			cp := *a
			assignments = append(assignments, &cp)
		}
	}
	return assignments, nil
}
