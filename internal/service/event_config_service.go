package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/model"
	"elevtinget/backend/internal/repository"
	pkgerrors "elevtinget/backend/pkg/errors"
)

// ── 会议配置模块业务错误 ──

var (
	ErrEventConfigNotFound = pkgerrors.Configuration("会议配置未初始化")
	ErrEventDateFormat     = pkgerrors.Validation("日期格式应为 YYYY-MM-DD")
	ErrEventDateOrder      = pkgerrors.Validation("结束日期不能早于开始日期")
)

const dateLayout = "2006-01-02"

// EventConfigService 会议配置业务接口
type EventConfigService interface {
	Get(ctx context.Context, caller *Caller) (*dto.EventConfigResponse, error)
	Update(ctx context.Context, req *dto.UpdateEventConfigRequest, caller *Caller) (*dto.EventConfigResponse, error)
	// PublicDates 申请表单使用的公开日期，无需登录
	PublicDates(ctx context.Context) (*dto.PublicEventResponse, error)
}

type eventConfigService struct {
	repo   *repository.Repository
	authz  Authorizer
	logger *zap.Logger
}

// NewEventConfigService 创建 EventConfigService 实例
func NewEventConfigService(repo *repository.Repository, authz Authorizer, logger *zap.Logger) EventConfigService {
	return &eventConfigService{repo: repo, authz: authz, logger: logger}
}

// ────────────────────── Get ──────────────────────

func (s *eventConfigService) Get(ctx context.Context, caller *Caller) (*dto.EventConfigResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapAdminView); err != nil {
		return nil, err
	}
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return toEventConfigResponse(cfg), nil
}

// ────────────────────── Update ──────────────────────

func (s *eventConfigService) Update(ctx context.Context, req *dto.UpdateEventConfigRequest, caller *Caller) (*dto.EventConfigResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapAdminView); err != nil {
		return nil, err
	}
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if req.StartDate != nil {
		d, err := parseOptionalDate(*req.StartDate)
		if err != nil {
			return nil, err
		}
		cfg.StartDate = d
	}
	if req.EndDate != nil {
		d, err := parseOptionalDate(*req.EndDate)
		if err != nil {
			return nil, err
		}
		cfg.EndDate = d
	}
	if req.MailEnabled != nil {
		cfg.MailEnabled = *req.MailEnabled
	}

	if start, ok := cfg.StartIn(time.UTC); ok {
		if end, ok := cfg.EndIn(time.UTC); ok && end.Before(start) {
			return nil, ErrEventDateOrder
		}
	}

	cfg.UpdatedBy = &caller.UserID
	if err := s.repo.EventConfig.Update(ctx, cfg); err != nil {
		s.logger.Error("更新会议配置失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("会议配置已更新",
		zap.String("updated_by", caller.Email),
		zap.Bool("mail_enabled", cfg.MailEnabled),
	)
	return toEventConfigResponse(cfg), nil
}

// ────────────────────── PublicDates ──────────────────────

func (s *eventConfigService) PublicDates(ctx context.Context) (*dto.PublicEventResponse, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.PublicEventResponse{
		StartDate:   formatDate(cfg.StartDate),
		EndDate:     formatDate(cfg.EndDate),
		MaxDayIndex: cfg.MaxDayIndex(),
	}, nil
}

// ── 内部辅助方法 ──

func (s *eventConfigService) load(ctx context.Context) (*model.EventConfig, error) {
	cfg, err := s.repo.EventConfig.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventConfigNotFound
		}
		s.logger.Error("查询会议配置失败", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

// parseOptionalDate 空串表示清除
func parseOptionalDate(s string) (*datatypes.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, ErrEventDateFormat
	}
	d := datatypes.Date(t)
	return &d, nil
}

func formatDate(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return time.Time(*d).Format(dateLayout)
}

func toEventConfigResponse(cfg *model.EventConfig) *dto.EventConfigResponse {
	return &dto.EventConfigResponse{
		StartDate:   formatDate(cfg.StartDate),
		EndDate:     formatDate(cfg.EndDate),
		MailEnabled: cfg.MailEnabled,
		MaxDayIndex: cfg.MaxDayIndex(),
		UpdatedAt:   cfg.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
