package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"elevtinget/backend/internal/model"
)

// UserRepository 后台用户数据访问接口
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.AppUser, error)
	GetByEmail(ctx context.Context, email string) (*model.AppUser, error)
}

// userRepo UserRepository 的 GORM 实现
type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.AppUser, error) {
	var user model.AppUser
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("user_id = ?", id).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.AppUser, error) {
	var user model.AppUser
	err := r.db.WithContext(ctx).
		Preload("Role").
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// RoleRepository 角色数据访问接口
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*model.Role, error)
}

type roleRepo struct {
	db *gorm.DB
}

// NewRoleRepo 创建 RoleRepository 实例
func NewRoleRepo(db *gorm.DB) RoleRepository {
	return &roleRepo{db: db}
}

func (r *roleRepo) GetByName(ctx context.Context, name string) (*model.Role, error) {
	var role model.Role
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}
