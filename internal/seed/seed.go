package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/repository"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/utils"
)

// 导入文件必须包含的列
var importHeaders = []string{"姓名", "邮箱", "角色"}

var validRoles = []domain.Role{domain.RoleAdmin, domain.RoleInstructor, domain.RoleStudent}

// SeedUsers 插入 n 个指定角色的随机用户，返回成功插入的用户
func SeedUsers(ctx context.Context, store repository.Store, n int, role domain.Role, password, emailDomain string) ([]*domain.User, error) {
	if n <= 0 {
		return nil, errors.New("请输入合法的用户数量")
	}
	if !slices.Contains(validRoles, role) {
		return nil, fmt.Errorf("非法的角色: %s", role)
	}

	users := make([]*domain.User, 0, n)
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(password, emailDomain, role)
		if err != nil {
			return users, err
		}

		if err := store.CreateUser(ctx, user); err != nil {
			// 随机生成的邮箱可能重复，跳过即可
			slog.Error("无法插入用户", slog.String("error", err.Error()))
			continue
		}

		users = append(users, user)
	}

	return users, nil
}

// SeedCourses 插入 n 门课程，授课教师从已有的 instructor 中随机选择，
// 每门课程从已有的 student 中随机选出最多 studentsPerCourse 个学生
func SeedCourses(ctx context.Context, store repository.Store, n, studentsPerCourse int) ([]*domain.Course, error) {
	if n <= 0 {
		return nil, errors.New("请输入合法的课程数量")
	}

	users, err := store.GetAllUsers(ctx)
	if err != nil {
		return nil, err
	}

	var instructorIDs, studentIDs []string
	for _, u := range users {
		switch u.Role {
		case domain.RoleInstructor:
			instructorIDs = append(instructorIDs, u.ID)
		case domain.RoleStudent:
			studentIDs = append(studentIDs, u.ID)
		}
	}
	if len(instructorIDs) == 0 {
		return nil, errors.New("数据库中没有教师，请先插入教师")
	}

	courses := make([]*domain.Course, 0, n)
	for i := 0; i < n; i++ {
		course := utils.GenerateRandomCourse(utils.GenerateRandomSubset(instructorIDs, 1)[0])
		course.StudentIDs = utils.GenerateRandomSubset(studentIDs, studentsPerCourse)

		if err := store.CreateCourse(ctx, course); err != nil {
			slog.Error("无法插入课程", slog.String("error", err.Error()))
			continue
		}

		courses = append(courses, course)
	}

	return courses, nil
}

// SeedAssignments 为课程插入 n 个作业
func SeedAssignments(ctx context.Context, store repository.Store, courseID string, n int) (int, error) {
	if n <= 0 {
		return 0, errors.New("请输入合法的作业数量")
	}

	if _, err := store.GetCourseByID(ctx, courseID); err != nil {
		return 0, err
	}

	cnt := 0
	for i := 1; i <= n; i++ {
		if err := store.CreateAssignment(ctx, utils.GenerateRandomAssignment(courseID, i)); err != nil {
			slog.Error("无法插入作业", slog.String("error", err.Error()))
			continue
		}
		cnt++
	}

	return cnt, nil
}

// ImportUsers 从 CSV 中导入真实用户，表头需包含 姓名、邮箱、角色 三列。
// 已存在的邮箱会被跳过，返回新插入的用户数量。
func ImportUsers(ctx context.Context, store repository.Store, r io.Reader, passwordHash string) (int, error) {
	reader := csv.NewReader(r)

	// 读取表头
	headers, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("读取表头失败: %w", err)
	}
	for _, h := range importHeaders {
		if !slices.Contains(headers, h) {
			return 0, fmt.Errorf("没有找到列: %s", h)
		}
	}

	cnt := 0
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return cnt, fmt.Errorf("读取文件失败: %w", err)
		}

		record := make(map[string]string)
		for i, value := range row {
			record[headers[i]] = value
		}

		role := domain.Role(record["角色"])
		if record["邮箱"] == "" || !slices.Contains(validRoles, role) {
			slog.Error("记录不合法", "record", record)
			continue
		}

		exists, err := store.CheckEmailIfExists(ctx, record["邮箱"])
		if err != nil {
			return cnt, err
		}
		if exists {
			continue
		}

		user := &domain.User{
			Name:         record["姓名"],
			Email:        record["邮箱"],
			PasswordHash: passwordHash,
			Role:         role,
		}
		if err := store.CreateUser(ctx, user); err != nil {
			slog.Error("插入用户失败", "error", err)
			continue
		}
		cnt++
	}

	slog.Info("导入用户完成", slog.Int("count", cnt))
	return cnt, nil
}
