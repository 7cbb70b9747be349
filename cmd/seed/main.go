package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/sysu-ecnc-dev/course-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/seed"
)

func main() {
	var op int
	var n int
	var role string
	var studentsPerCourse int
	var courseID string
	var file string

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入随机用户, 2: 插入随机课程, 3: 插入随机作业, 4: 从 CSV 导入用户)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&role, "role", string(domain.RoleStudent), "随机用户的角色 (admin, instructor, student)")
	flag.IntVar(&studentsPerCourse, "students", 20, "每门课程最多选课的学生数量")
	flag.StringVar(&courseID, "course-id", "", "插入作业的课程 ID")
	flag.StringVar(&file, "file", "./internal/seed/data/users.csv", "导入用户的 CSV 文件路径")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Database.Driver == "memory" {
		logger.Error("内存存储不会持久化，无法用于插入数据")
		os.Exit(1)
	}

	store, closeStore, err := repository.Open(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	ctx := context.Background()

	// 执行操作
	switch op {
	case 0:
		logger.Error("未指定操作")
	case 1:
		users, err := seed.SeedUsers(ctx, store, n, domain.Role(role), cfg.Seed.User.Password, cfg.Email.UserDomain)
		if err != nil {
			logger.Error("无法插入随机用户", slog.String("error", err.Error()))
			return
		}
		logger.Info("插入用户成功", slog.Int("count", len(users)))
	case 2:
		courses, err := seed.SeedCourses(ctx, store, n, studentsPerCourse)
		if err != nil {
			logger.Error("无法插入随机课程", slog.String("error", err.Error()))
			return
		}
		logger.Info("插入课程成功", slog.Int("count", len(courses)))
	case 3:
		cnt, err := seed.SeedAssignments(ctx, store, courseID, n)
		if err != nil {
			logger.Error("无法插入随机作业", slog.String("course_id", courseID), slog.String("error", err.Error()))
			return
		}
		logger.Info("插入作业成功", slog.Int("count", cnt))
	case 4:
		f, err := os.Open(file)
		if err != nil {
			logger.Error("打开文件失败", slog.String("error", err.Error()))
			return
		}
		defer f.Close()

		passwordHash, err := auth.HashPassword(cfg.Seed.User.Password)
		if err != nil {
			logger.Error("无法生成密码哈希", slog.String("error", err.Error()))
			return
		}

		if _, err := seed.ImportUsers(ctx, store, f, passwordHash); err != nil {
			logger.Error("导入用户失败", slog.String("error", err.Error()))
		}
	default:
		logger.Error("指定的操作非法")
	}
}
