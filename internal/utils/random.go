package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/mozillazg/go-pinyin"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/auth"
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "庆",
	"建", "丹", "彬", "凤", "旭", "宁", "乐", "成", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

var digits = "0123456789"

// 从中文姓名生成邮箱的本地部分，例如 "张伟" -> "zhw42"
func GenerateEmailLocalPart(chineseName string) string {
	syllables := pinyin.LazyConvert(chineseName, nil)
	local := ""

	for _, s := range syllables {
		length := rand.Intn(len(s)) + 1
		local += s[:length]
	}

	digitsLength := rand.Intn(3) + 1
	for i := 0; i < digitsLength; i++ {
		local += string(digits[rand.Intn(len(digits))])
	}

	return local
}

func GenerateRandomUser(password string, emailDomainName string, role domain.Role) (*domain.User, error) {
	name := GenerateRandomChineseName()
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	return &domain.User{
		Name:         name,
		Email:        GenerateEmailLocalPart(name) + "@" + emailDomainName,
		PasswordHash: passwordHash,
		Role:         role,
	}, nil
}

var subjects = []string{"CS", "MATH", "PHYS", "CHEM", "ECON", "HIST"}
var titleWords = []string{
	"程序设计", "数据结构", "线性代数", "概率论", "操作系统", "计算机网络",
	"数据库系统", "编译原理", "大学物理", "宏观经济学", "中国近代史",
}
var terms = []string{"2025 秋季", "2026 春季", "2026 秋季"}

func GenerateRandomCourse(instructorID string) *domain.Course {
	return &domain.Course{
		Subject:      subjects[rand.Intn(len(subjects))],
		Number:       fmt.Sprintf("%d%02d", rand.Intn(4)+1, rand.Intn(100)),
		Title:        titleWords[rand.Intn(len(titleWords))],
		Term:         terms[rand.Intn(len(terms))],
		InstructorID: instructorID,
		StudentIDs:   []string{},
	}
}

// 使用 Fisher-Yates 洗牌算法从 ids 中随机取出最多 n 个不重复的元素
func GenerateRandomSubset(ids []string, n int) []string {
	idsCopy := append([]string{}, ids...) // 复制数组，避免修改原数组

	for i := len(idsCopy) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		idsCopy[i], idsCopy[j] = idsCopy[j], idsCopy[i]
	}

	if n > len(idsCopy) {
		n = len(idsCopy)
	}
	return idsCopy[:n]
}

func GenerateRandomAssignment(courseID string, index int) *domain.Assignment {
	return &domain.Assignment{
		CourseID: courseID,
		Title:    fmt.Sprintf("作业 %d", index),
		Points:   int32(rand.Intn(10)+1) * 10,
		Due:      time.Now().Add(time.Hour * 24 * time.Duration(7*index+rand.Intn(7))).Truncate(time.Minute),
	}
}
