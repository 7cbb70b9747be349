package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/course-manager/backend/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open 根据 DATABASE_DRIVER 创建存储，返回的 close 函数用于在退出时释放连接
func Open(cfg *config.Config) (Store, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	switch cfg.Database.Driver {
	case "postgres":
		dbpool, err := sql.Open("pgx", cfg.Database.DSN)
		if err != nil {
			return nil, nil, err
		}

		dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

		// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
		if err := dbpool.PingContext(ctx); err != nil {
			_ = dbpool.Close()
			return nil, nil, err
		}

		if err := RunMigrations(ctx, dbpool); err != nil {
			_ = dbpool.Close()
			return nil, nil, fmt.Errorf("数据库迁移失败: %w", err)
		}

		return NewRepository(cfg, dbpool), func() { _ = dbpool.Close() }, nil
	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Database.DSN))
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }

		if err := client.Ping(ctx, nil); err != nil {
			closeFn()
			return nil, nil, err
		}

		repo := NewMongoRepository(cfg, client.Database(cfg.Database.Name))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("无法创建索引: %w", err)
		}

		return repo, closeFn, nil
	case "memory":
		return NewMemoryRepository(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}
}
