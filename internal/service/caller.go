package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"elevtinget/backend/internal/model"
	"elevtinget/backend/internal/repository"
	pkgerrors "elevtinget/backend/pkg/errors"
	"elevtinget/backend/pkg/redis"
)

// Caller 当前操作者身份（来自 JWT）
type Caller struct {
	UserID string
	Email  string
	Role   string
}

// Authorizer 权限判定接口
type Authorizer interface {
	Can(ctx context.Context, caller *Caller, cap model.Capability) bool
}

// authorize 权限不足时返回 Unauthorized，必须在任何读写之前调用
func authorize(ctx context.Context, authz Authorizer, caller *Caller, cap model.Capability) error {
	if authz == nil || !authz.Can(ctx, caller, cap) {
		return pkgerrors.Unauthorized("无权执行该操作（需要 %s）", cap)
	}
	return nil
}

// ── 基于角色的权限判定 ──

const permCachePrefix = "perm:role:"

// permissionCache 权限缓存的最小读写集合，*redis.Client 实现该接口
type permissionCache interface {
	GetBytes(ctx context.Context, key string) ([]byte, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RoleAuthorizer 按角色表中的权限列表判定；角色权限可缓存在 Redis 中
type RoleAuthorizer struct {
	repo   *repository.Repository
	cache  permissionCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewRoleAuthorizer 创建 RoleAuthorizer；rdb 为 nil 时不使用缓存
func NewRoleAuthorizer(repo *repository.Repository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RoleAuthorizer {
	a := &RoleAuthorizer{repo: repo, ttl: ttl, logger: logger}
	if rdb != nil {
		a.cache = rdb
	}
	return a
}

func (a *RoleAuthorizer) Can(ctx context.Context, caller *Caller, cap model.Capability) bool {
	if caller == nil || caller.Role == "" {
		return false
	}
	if caller.Role == model.RoleAdmin {
		return true
	}

	perms, err := a.permissions(ctx, caller.Role)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			a.logger.Error("查询角色权限失败", zap.String("role", caller.Role), zap.Error(err))
		}
		return false
	}
	role := &model.Role{Name: caller.Role, Permissions: perms}
	return role.Has(cap)
}

func (a *RoleAuthorizer) permissions(ctx context.Context, roleName string) ([]string, error) {
	key := permCachePrefix + roleName
	if a.cache != nil {
		if b, err := a.cache.GetBytes(ctx, key); err == nil {
			var perms []string
			if json.Unmarshal(b, &perms) == nil {
				return perms, nil
			}
		} else if !errors.Is(err, redis.ErrCacheMiss) {
			a.logger.Warn("读取权限缓存失败", zap.Error(err))
		}
	}

	role, err := a.repo.Role.GetByName(ctx, roleName)
	if err != nil {
		return nil, err
	}
	perms := []string(role.Permissions)

	if a.cache != nil && a.ttl > 0 {
		if b, err := json.Marshal(perms); err == nil {
			if err := a.cache.SetBytes(ctx, key, b, a.ttl); err != nil {
				a.logger.Warn("写入权限缓存失败", zap.Error(err))
			}
		}
	}
	return perms, nil
}
