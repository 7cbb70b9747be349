package repository

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/repository/migrations"
)

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
