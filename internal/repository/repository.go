package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/course-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
)

// Store 是 handler 和各个服务所依赖的存储接口，postgres、mongo 和内存三种实现均满足该接口。
// 查询不到记录时统一返回 domain.ErrNotFound。
type Store interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CheckEmailIfExists(ctx context.Context, email string) (bool, error)
	GetAllUsers(ctx context.Context) ([]*domain.User, error)

	CountCourses(ctx context.Context) (int64, error)
	GetCoursesPage(ctx context.Context, offset, limit int) ([]*domain.Course, error)
	CreateCourse(ctx context.Context, course *domain.Course) error
	GetCourseByID(ctx context.Context, id string) (*domain.Course, error)
	GetCourseInstructorID(ctx context.Context, id string) (string, error)
	GetCoursesByInstructor(ctx context.Context, instructorID string) ([]*domain.Course, error)
	GetCoursesByStudent(ctx context.Context, studentID string) ([]*domain.Course, error)
	UpdateCourse(ctx context.Context, course *domain.Course) error
	DeleteCourse(ctx context.Context, id string) error

	CreateAssignment(ctx context.Context, assignment *domain.Assignment) error
	GetAssignmentsByCourse(ctx context.Context, courseID string) ([]*domain.Assignment, error)
}

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

func (r *Repository) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MongoRepository)(nil)
	_ Store = (*MemoryRepository)(nil)
)
