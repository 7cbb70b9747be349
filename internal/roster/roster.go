package roster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
	"golang.org/x/sync/errgroup"
)

const (
	ContentType = "text/csv"
	FileName    = "studentList.csv"
)

type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

type CourseStore interface {
	GetCourseByID(ctx context.Context, id string) (*domain.Course, error)
}

// MissingStudentError 表示名单中的某个学生 ID 找不到对应的用户
type MissingStudentError struct {
	ID string
}

func (e *MissingStudentError) Error() string {
	return fmt.Sprintf("学生 %s 不存在", e.ID)
}

func (e *MissingStudentError) Unwrap() error {
	return domain.ErrNotFound
}

type Exporter struct {
	courses     CourseStore
	users       UserStore
	concurrency int
}

func NewExporter(courses CourseStore, users UserStore, concurrency int) *Exporter {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Exporter{
		courses:     courses,
		users:       users,
		concurrency: concurrency,
	}
}

// Resolve 按名单顺序取出每个学生的用户记录。查询可以并发进行，但结果按原顺序排列；
// 任意一个查询失败时整体失败，返回名单中位置最靠前的那个错误。
func (e *Exporter) Resolve(ctx context.Context, ids []string) ([]*domain.User, error) {
	users := make([]*domain.User, len(ids))
	errs := make([]error, len(ids))

	g := errgroup.Group{}
	g.SetLimit(e.concurrency)

	for i, id := range ids {
		g.Go(func() error {
			user, err := e.users.GetUserByID(ctx, id)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					err = &MissingStudentError{ID: id}
				}
				errs[i] = err
				return nil
			}
			users[i] = user
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return users, nil
}

// Export 生成课程的学生名单 CSV。字段之间直接用逗号拼接，不做引号转义
func (e *Exporter) Export(ctx context.Context, courseID string) ([]byte, error) {
	course, err := e.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	students, err := e.Resolve(ctx, course.StudentIDs)
	if err != nil {
		return nil, err
	}

	return Render(students), nil
}

func Render(students []*domain.User) []byte {
	var buf bytes.Buffer
	buf.WriteString(strings.Join([]string{"id", "name", "email"}, ","))
	buf.WriteString("\r\n")
	for _, s := range students {
		buf.WriteString(strings.Join([]string{s.ID, s.Name, s.Email}, ","))
		buf.WriteString("\r\n")
	}
	return buf.Bytes()
}
