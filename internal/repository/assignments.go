package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
)

func (r *Repository) GetAssignmentsByCourse(ctx context.Context, courseID string) ([]*domain.Assignment, error) {
	assignments := make([]*domain.Assignment, 0)
	if _, err := uuid.Parse(courseID); err != nil {
		return assignments, nil
	}

	query := `
		SELECT id, course_id, title, points, due
		FROM assignments
		WHERE course_id = $1
		ORDER BY due, id
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		a := &domain.Assignment{}
		if err := rows.Scan(&a.ID, &a.CourseID, &a.Title, &a.Points, &a.Due); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) CreateAssignment(ctx context.Context, assignment *domain.Assignment) error {
	if _, err := uuid.Parse(assignment.CourseID); err != nil {
		return domain.ErrNotFound
	}

	query := `
		INSERT INTO assignments (id, course_id, title, points, due)
		VALUES ($1, $2, $3, $4, $5)
	`

	ctx, cancel := r.queryContext(ctx)
	defer cancel()

	id := uuid.NewString()
	args := []any{id, assignment.CourseID, assignment.Title, assignment.Points, assignment.Due}
	if _, err := r.dbpool.ExecContext(ctx, query, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "assignments_course_id_fkey" {
			return domain.ErrNotFound
		}
		return err
	}
	assignment.ID = id

	return nil
}
