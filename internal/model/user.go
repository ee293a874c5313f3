package model

import "github.com/lib/pq"

// AppUser 后台白名单用户表，对应 app_users
type AppUser struct {
	UserID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Email        string  `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	Name         string  `gorm:"type:varchar(200);not null"                     json:"name"`
	PasswordHash string  `gorm:"type:varchar(255);not null"                     json:"-"`
	RoleID       *string `gorm:"type:uuid"                                      json:"role_id,omitempty"`
	RegionID     *string `gorm:"type:uuid"                                      json:"region_id,omitempty"`
	BaseModel

	Role *Role `gorm:"foreignKey:RoleID;references:RoleID" json:"role,omitempty"`
}

// TableName 指定表名
func (AppUser) TableName() string { return "app_users" }

// RoleName 角色名，未分配角色时为空串
func (u *AppUser) RoleName() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Name
}

// Role 角色表，对应 roles
type Role struct {
	RoleID      string         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"role_id"`
	Name        string         `gorm:"type:varchar(50);not null;uniqueIndex"          json:"name"`
	Permissions pq.StringArray `gorm:"type:text[];not null;default:'{}'"              json:"permissions"`
	BaseModel
}

// TableName 指定表名
func (Role) TableName() string { return "roles" }

// Has 角色是否拥有指定权限
func (r *Role) Has(cap Capability) bool {
	if r == nil {
		return false
	}
	if r.Name == RoleAdmin {
		return true
	}
	for _, p := range r.Permissions {
		if p == string(cap) {
			return true
		}
	}
	return false
}
