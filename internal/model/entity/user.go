package entity

import (
	"time"
)

// 角色编码
const (
	RoleSystemAdmin     = "system_admin"
	RoleProductionAdmin = "production_admin"
	RoleQualityAdmin    = "quality_admin"
	RoleOperator        = "operator"
)

// User 系统用户
type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:64;not null;uniqueIndex"`
	FullName     string    `json:"full_name" gorm:"size:128"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	IsActive     bool      `json:"is_active" gorm:"not null;default:true"`
	IsSuperuser  bool      `json:"is_superuser" gorm:"not null;default:false"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// 关联
	Roles     []Role    `json:"roles,omitempty" gorm:"many2many:sys_user_role"`
	Processes []Process `json:"processes,omitempty" gorm:"many2many:mes_user_process"`
}

func (User) TableName() string {
	return "sys_user"
}

// RoleCodes 返回用户所有角色编码
func (u *User) RoleCodes() []string {
	codes := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		codes = append(codes, r.Code)
	}
	return codes
}

// ProcessCodes 返回用户所有工序编码
func (u *User) ProcessCodes() []string {
	codes := make([]string, 0, len(u.Processes))
	for _, p := range u.Processes {
		codes = append(codes, p.Code)
	}
	return codes
}

// Role 角色
type Role struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:128;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Role) TableName() string {
	return "sys_role"
}
