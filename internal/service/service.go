package service

import (
	"go.uber.org/zap"

	"elevtinget/backend/config"
	"elevtinget/backend/internal/repository"
	"elevtinget/backend/pkg/jwt"
	"elevtinget/backend/pkg/mailer"
	"elevtinget/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth        AuthService
	Case        CaseService
	HMS         HMSService
	Participant ParticipantService
	EventConfig EventConfigService

	Authorizer Authorizer
	Dispatcher *NotificationDispatcher
}

// NewService 创建 Service 聚合；rdb 为 nil 时关闭缓存与 Token 黑名单
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	sender mailer.Sender,
	logger *zap.Logger,
) *Service {
	authz := NewRoleAuthorizer(repo, rdb, cfg.Auth.PermissionCacheTTL, logger)
	cache := newCaseListCache(rdb, cfg.Cache.CaseListTTL, logger)
	dispatcher := NewNotificationDispatcher(repo, sender, &cfg.Outbox, logger)
	loc := cfg.Conference.Location()

	return &Service{
		Auth:        NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Case:        NewCaseService(repo, authz, cache, dispatcher, loc, logger),
		HMS:         NewHMSService(repo, authz, cache, logger),
		Participant: NewParticipantService(repo, authz, logger),
		EventConfig: NewEventConfigService(repo, authz, logger),
		Authorizer:  authz,
		Dispatcher:  dispatcher,
	}
}
