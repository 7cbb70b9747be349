package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
)

// student_ids 以 jsonb 数组的形式保存，数组顺序即名单顺序
const courseColumns = `id, subject, number, title, term, instructor_id, student_ids`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourse(s rowScanner) (*domain.Course, error) {
	course := &domain.Course{}
	var studentIDs []byte

	dst := []any{&course.ID, &course.Subject, &course.Number, &course.Title, &course.Term, &course.InstructorID, &studentIDs}
	if err := s.Scan(dst...); err != nil {
		return nil, err
	}

	course.StudentIDs = make([]string, 0)
	if len(studentIDs) > 0 {
		if err := json.Unmarshal(studentIDs, &course.StudentIDs); err != nil {
			return nil, err
		}
	}

	return course, nil
}

func (r *Repository) queryCourses(ctx context.Context, query string, args ...any) ([]*domain.Course, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	courses := make([]*domain.Course, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return courses, nil
}

func (r *Repository) CountCourses(ctx context.Context) (int64, error) {
	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var total int64
	if err := r.dbpool.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses`).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}

func (r *Repository) GetCoursesPage(ctx context.Context, offset, limit int) ([]*domain.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		ORDER BY created_at, id
		OFFSET $1 LIMIT $2
	`

	return r.queryCourses(ctx, query, offset, limit)
}

func (r *Repository) GetCoursesByInstructor(ctx context.Context, instructorID string) ([]*domain.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE instructor_id = $1
		ORDER BY created_at, id
	`

	return r.queryCourses(ctx, query, instructorID)
}

func (r *Repository) GetCoursesByStudent(ctx context.Context, studentID string) ([]*domain.Course, error) {
	query := `
		SELECT ` + courseColumns + `
		FROM courses
		WHERE student_ids @> jsonb_build_array($1::text)
		ORDER BY created_at, id
	`

	return r.queryCourses(ctx, query, studentID)
}

func (r *Repository) GetCourseByID(ctx context.Context, id string) (*domain.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	query := `
		SELECT ` + courseColumns + `
		FROM courses WHERE id = $1
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	course, err := scanCourse(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return course, nil
}

func (r *Repository) GetCourseInstructorID(ctx context.Context, id string) (string, error) {
	if _, err := uuid.Parse(id); err != nil {
		return "", domain.ErrNotFound
	}

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	var instructorID string
	if err := r.dbpool.QueryRowContext(ctx, `SELECT instructor_id FROM courses WHERE id = $1`, id).Scan(&instructorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}

	return instructorID, nil
}

func (r *Repository) CreateCourse(ctx context.Context, course *domain.Course) error {
	if course.StudentIDs == nil {
		course.StudentIDs = make([]string, 0)
	}
	studentIDs, err := json.Marshal(course.StudentIDs)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO courses (id, subject, number, title, term, instructor_id, student_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	id := uuid.NewString()
	args := []any{id, course.Subject, course.Number, course.Title, course.Term, course.InstructorID, string(studentIDs)}
	if _, err := r.dbpool.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	course.ID = id

	return nil
}

// UpdateCourse 按 id 覆盖整条课程记录，不做版本校验，并发写入时以最后一次为准
func (r *Repository) UpdateCourse(ctx context.Context, course *domain.Course) error {
	if _, err := uuid.Parse(course.ID); err != nil {
		return domain.ErrNotFound
	}

	if course.StudentIDs == nil {
		course.StudentIDs = make([]string, 0)
	}
	studentIDs, err := json.Marshal(course.StudentIDs)
	if err != nil {
		return err
	}

	query := `
		UPDATE courses
		SET
			subject = $1,
			number = $2,
			title = $3,
			term = $4,
			instructor_id = $5,
			student_ids = $6::jsonb
		WHERE id = $7
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	args := []any{course.Subject, course.Number, course.Title, course.Term, course.InstructorID, string(studentIDs), course.ID}
	result, err := r.dbpool.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

func (r *Repository) DeleteCourse(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
