// Package policy 集中保存所有接口的授权规则，handler 只负责收集事实（调用者、持久化的归属关系等），
// 是否放行统一由这里的规则表决定。
package policy

import (
	"github.com/sysu-ecnc-dev/course-manager/backend/internal/domain"
)

type Action string

const (
	ActionListCourses     Action = "list_courses"
	ActionReadCourse      Action = "read_course"
	ActionReadAssignments Action = "read_assignments"
	ActionCreateCourse    Action = "create_course"
	ActionUpdateCourse    Action = "update_course"
	ActionDeleteCourse    Action = "delete_course"
	ActionViewRoster      Action = "view_roster"
	ActionEditRoster      Action = "edit_roster"
	ActionExportRoster    Action = "export_roster"
	ActionCreateUser      Action = "create_user"
	ActionReadProfile     Action = "read_profile"
	ActionListUsers       Action = "list_users"
	ActionLogout          Action = "logout"
)

// Actor 是发起请求的用户，ID 为空表示匿名调用者
type Actor struct {
	ID   string
	Role domain.Role
}

func (a Actor) IsAnonymous() bool {
	return a.ID == ""
}

// Resource 描述被操作资源中与授权相关的事实
type Resource struct {
	// OwnerID 为课程的教师 ID。创建课程时来自请求体，其余操作必须是数据库中已保存的值
	OwnerID string
	// TargetID 为被访问用户的 ID
	TargetID string
	// RequestedRole 为创建用户时请求的角色
	RequestedRole domain.Role
}

type Rule func(actor Actor, res Resource) bool

func anyone(Actor, Resource) bool {
	return true
}

func authenticated(actor Actor, _ Resource) bool {
	return !actor.IsAnonymous()
}

func adminOnly(actor Actor, _ Resource) bool {
	return !actor.IsAnonymous() && actor.Role == domain.RoleAdmin
}

func adminOrOwningInstructor(actor Actor, res Resource) bool {
	if actor.IsAnonymous() {
		return false
	}
	if actor.Role == domain.RoleAdmin {
		return true
	}
	return actor.Role == domain.RoleInstructor && res.OwnerID != "" && actor.ID == res.OwnerID
}

func selfOnly(actor Actor, res Resource) bool {
	return !actor.IsAnonymous() && actor.ID == res.TargetID
}

func createUser(actor Actor, res Resource) bool {
	switch res.RequestedRole {
	case domain.RoleStudent:
		return true
	case domain.RoleAdmin, domain.RoleInstructor:
		return adminOnly(actor, res)
	default:
		return false
	}
}

var rules = map[Action]Rule{
	ActionListCourses:     anyone,
	ActionReadCourse:      anyone,
	ActionReadAssignments: anyone,
	ActionCreateCourse:    adminOrOwningInstructor,
	ActionUpdateCourse:    adminOrOwningInstructor,
	ActionDeleteCourse:    adminOrOwningInstructor,
	ActionViewRoster:      adminOrOwningInstructor,
	ActionEditRoster:      adminOrOwningInstructor,
	ActionExportRoster:    adminOrOwningInstructor,
	ActionCreateUser:      createUser,
	ActionReadProfile:     selfOnly,
	ActionListUsers:       adminOnly,
	ActionLogout:          authenticated,
}

// Allowed 返回规则表的判定结果，未登记的操作一律拒绝
func Allowed(action Action, actor Actor, res Resource) bool {
	rule, ok := rules[action]
	if !ok {
		return false
	}
	return rule(actor, res)
}

// Authorize 与 Allowed 相同，但在拒绝时返回 domain.ErrForbidden
func Authorize(action Action, actor Actor, res Resource) error {
	if !Allowed(action, actor, res) {
		return domain.ErrForbidden
	}
	return nil
}
