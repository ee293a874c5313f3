package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/model"
	"elevtinget/backend/internal/repository"
	pkgerrors "elevtinget/backend/pkg/errors"
)

// ── 请假案件模块业务错误 ──

var (
	ErrCaseNotFound      = pkgerrors.NotFound("请假案件不存在")
	ErrFormReplyNotFound = pkgerrors.NotFound("申请表单不存在")
	ErrWindowInverted    = pkgerrors.Validation("结束时间不能早于开始时间")
	ErrUnreviewRefused   = pkgerrors.Validation("不支持将已审核案件恢复为待审核")
	ErrRejectNeedsReason = pkgerrors.Validation("拒绝时必须填写原因")
)

// notifier 审核后的即时投递，*NotificationDispatcher 实现该接口
type notifier interface {
	Deliver(ctx context.Context, outboxID string) error
}

// CaseService 请假案件业务接口
type CaseService interface {
	Create(ctx context.Context, req *dto.CreateCaseRequest, caller *Caller) (*dto.CaseResponse, error)
	List(ctx context.Context, filterToken string, caller *Caller) ([]dto.CaseResponse, error)
	Get(ctx context.Context, caseID string, caller *Caller) (*dto.CaseResponse, error)
	Review(ctx context.Context, caseID string, req *dto.ReviewCaseRequest, caller *Caller) (*dto.ReviewCaseResponse, error)
	UpdateFormData(ctx context.Context, formReplyID string, req *dto.UpdateFormDataRequest, caller *Caller) (*dto.CaseResponse, error)
	SetSwapped(ctx context.Context, caseID string, swapped bool, caller *Caller) (*dto.CaseResponse, error)
	UpdateComment(ctx context.Context, caseID, comment string, caller *Caller) (*dto.CaseResponse, error)
	Delete(ctx context.Context, caseID string, caller *Caller) error
	Export(ctx context.Context, filterToken string, caller *Caller) (*bytes.Buffer, string, error)
	VerifyParticipant(ctx context.Context, email, badge string) (*dto.VerifyParticipantResponse, error)
}

type caseService struct {
	repo     *repository.Repository
	authz    Authorizer
	cache    *caseListCache
	notifier notifier
	loc      *time.Location
	logger   *zap.Logger
	now      func() time.Time
}

// NewCaseService 创建 CaseService 实例
func NewCaseService(
	repo *repository.Repository,
	authz Authorizer,
	cache *caseListCache,
	n notifier,
	loc *time.Location,
	logger *zap.Logger,
) CaseService {
	if cache == nil {
		cache = newCaseListCache(nil, 0, logger)
	}
	return &caseService{
		repo:     repo,
		authz:    authz,
		cache:    cache,
		notifier: n,
		loc:      loc,
		logger:   logger,
		now:      time.Now,
	}
}

// ────────────────────── Create ──────────────────────

// Create 提交请假申请；自助提交时 caller 为 nil，管理员代为提交时需要 case:write
func (s *caseService) Create(ctx context.Context, req *dto.CreateCaseRequest, caller *Caller) (*dto.CaseResponse, error) {
	if caller != nil {
		if err := authorize(ctx, s.authz, caller, model.CapCaseWrite); err != nil {
			return nil, err
		}
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	// 1. 会议开始日期
	eventCfg, err := s.repo.EventConfig.Get(ctx)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询会议配置失败", zap.Error(err))
		return nil, err
	}
	start, ok := eventCfg.StartIn(s.loc)
	if !ok {
		return nil, ErrStartDateNotConfigured
	}

	// 2. 换算时间窗
	sel := DaySelection{
		FromDay:      *req.FromDay,
		FromTime:     req.FromTime,
		ToTime:       req.ToTime,
		NotReturning: req.NotReturning,
	}
	if req.ToDay != nil {
		sel.ToDay = *req.ToDay
	}
	from, to, err := ResolveLeaveWindow(start, sel, eventCfg.MaxDayIndex())
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, ErrWindowInverted
	}

	// 3. 关联参会者（邮箱 + 胸牌号同时匹配）
	var participantRef *string
	p, err := s.repo.Participant.GetByEmailAndBadge(ctx, req.Email, req.ParticipantID)
	switch {
	case err == nil:
		participantRef = &p.ParticipantObjectID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Error("查询参会者失败", zap.String("email", req.Email), zap.Error(err))
		return nil, err
	}

	form := &model.FormReply{
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.TrimSpace(req.Email),
		Tel:           strings.TrimSpace(req.Tel),
		County:        strings.TrimSpace(req.County),
		Type:          model.ParticipantType(req.Type),
		ParticipantID: strings.TrimSpace(req.ParticipantID),
		From:          &from,
		To:            &to,
		Reason:        req.Reason,
		HasObserver:   req.HasObserver,
		ObserverName:  req.ObserverName,
		ObserverID:    req.ObserverID,
		ObserverTel:   req.ObserverTel,
	}
	form.NormalizeObserver()

	c := &model.Case{ParticipantObjectID: participantRef}
	if caller != nil {
		form.CreatedBy = &caller.UserID
		c.CreatedBy = &caller.UserID
	}

	// 4. 表单与案件在同一事务内创建
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.FormReply.Create(ctx, form); err != nil {
			return err
		}
		c.FormReplyID = form.FormReplyID
		return tx.Case.Create(ctx, c)
	})
	if err != nil {
		s.logger.Error("创建请假案件失败", zap.String("email", form.Email), zap.Error(err))
		return nil, err
	}
	c.FormReply = form

	s.cache.invalidate(ctx)
	s.logger.Info("请假申请已提交",
		zap.String("case_id", c.CaseID),
		zap.Bool("linked_participant", participantRef != nil),
	)

	resp := toCaseResponse(c, s.now())
	return &resp, nil
}

// ────────────────────── List / Get ──────────────────────

func (s *caseService) List(ctx context.Context, filterToken string, caller *Caller) ([]dto.CaseResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapCaseRead); err != nil {
		return nil, err
	}
	filter, err := model.ParseCaseFilter(filterToken)
	if err != nil {
		return nil, err
	}

	now := s.now()
	cases, err := s.listCases(ctx, filter, now)
	if err != nil {
		return nil, err
	}

	result := make([]dto.CaseResponse, 0, len(cases))
	for i := range cases {
		result = append(result, toCaseResponse(&cases[i], now))
	}
	return result, nil
}

// listCases 时间无关的过滤条件优先走缓存
func (s *caseService) listCases(ctx context.Context, filter model.CaseFilter, now time.Time) ([]model.Case, error) {
	cached, key, ok := s.cache.get(ctx, filter)
	if ok {
		return cached, nil
	}
	cases, err := s.repo.Case.List(ctx, filter, now)
	if err != nil {
		s.logger.Error("查询案件列表失败", zap.String("filter", string(filter)), zap.Error(err))
		return nil, err
	}
	s.cache.put(ctx, key, cases)
	return cases, nil
}

func (s *caseService) Get(ctx context.Context, caseID string, caller *Caller) (*dto.CaseResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapCaseRead); err != nil {
		return nil, err
	}
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	resp := toCaseResponse(c, s.now())
	return &resp, nil
}

// ────────────────────── Review ──────────────────────

func (s *caseService) Review(ctx context.Context, caseID string, req *dto.ReviewCaseRequest, caller *Caller) (*dto.ReviewCaseResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapCaseWrite); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	target, _ := model.ParseReviewStatus(req.Status)
	if target == model.ReviewPending {
		return nil, ErrUnreviewRefused
	}
	reason := strings.TrimSpace(req.ReasonRejected)
	if target == model.ReviewRejected && reason == "" {
		return nil, ErrRejectNeedsReason
	}

	now := s.now()
	var (
		reviewed *model.Case
		outboxID string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		c, err := tx.Case.GetByIDForUpdate(ctx, caseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCaseNotFound
			}
			return err
		}
		if req.Version != nil && *req.Version != c.Version {
			return pkgerrors.ErrOptimisticLock
		}
		// 审核通知依赖表单中的姓名与时间窗
		if c.FormReply == nil {
			return ErrFormReplyNotFound
		}

		c.SetReviewStatus(target)
		if target == model.ReviewApproved {
			c.ReasonRejected = ""
		} else {
			c.ReasonRejected = reason
		}
		c.ReviewedBy = &caller.Email
		c.ReviewedAt = &now
		c.UpdatedBy = &caller.UserID
		if err := tx.Case.Update(ctx, c); err != nil {
			return err
		}

		entry, err := renderCaseDecision(c, s.loc, now)
		if err != nil {
			return err
		}
		if entry != nil {
			entry.CreatedBy = &caller.UserID
			if err := tx.Outbox.Create(ctx, entry); err != nil {
				return err
			}
			outboxID = entry.OutboxID
		}
		reviewed = c
		return nil
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrNotFound) && !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("审核案件失败", zap.String("case_id", caseID), zap.Error(err))
		}
		return nil, err
	}

	s.cache.invalidate(ctx)
	s.logger.Info("案件已审核",
		zap.String("case_id", caseID),
		zap.String("status", target.String()),
		zap.String("reviewed_by", caller.Email),
	)

	resp := &dto.ReviewCaseResponse{Case: toCaseResponse(reviewed, now)}

	// 提交后即时投递一次，失败不影响审核结果
	if outboxID != "" && s.notifier != nil {
		if err := s.notifier.Deliver(ctx, outboxID); err != nil {
			s.logger.Warn("审核通知未送达", zap.String("case_id", caseID), zap.Error(err))
			resp.NotificationWarning = notificationWarning(err)
		}
	}
	return resp, nil
}

func notificationWarning(err error) string {
	if msg := pkgerrors.Message(err); msg != "" {
		return msg
	}
	return err.Error()
}

// ────────────────────── UpdateFormData ──────────────────────

// UpdateFormData 管理员整体覆盖表单内容（审核后仍可修改）
func (s *caseService) UpdateFormData(ctx context.Context, formReplyID string, req *dto.UpdateFormDataRequest, caller *Caller) (*dto.CaseResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapCaseWrite); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if req.To.Before(req.From) {
		return nil, ErrWindowInverted
	}

	form, err := s.repo.FormReply.GetByID(ctx, formReplyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFormReplyNotFound
		}
		s.logger.Error("查询申请表单失败", zap.String("form_reply_id", formReplyID), zap.Error(err))
		return nil, err
	}

	from, to := req.From, req.To
	form.Name = strings.TrimSpace(req.Name)
	form.Email = strings.TrimSpace(req.Email)
	form.Tel = strings.TrimSpace(req.Tel)
	form.County = strings.TrimSpace(req.County)
	form.Type = model.ParticipantType(req.Type)
	form.ParticipantID = strings.TrimSpace(req.ParticipantID)
	form.From = &from
	form.To = &to
	form.Reason = req.Reason
	form.HasObserver = req.HasObserver
	form.ObserverName = req.ObserverName
	form.ObserverID = req.ObserverID
	form.ObserverTel = req.ObserverTel
	form.NormalizeObserver()
	form.UpdatedBy = &caller.UserID

	if err := s.repo.FormReply.Update(ctx, form); err != nil {
		s.logger.Error("更新申请表单失败", zap.String("form_reply_id", formReplyID), zap.Error(err))
		return nil, err
	}
	s.cache.invalidate(ctx)

	c, err := s.repo.Case.GetByFormReplyID(ctx, formReplyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	resp := toCaseResponse(c, s.now())
	return &resp, nil
}

// ────────────────────── SetSwapped / UpdateComment ──────────────────────

func (s *caseService) SetSwapped(ctx context.Context, caseID string, swapped bool, caller *Caller) (*dto.CaseResponse, error) {
	return s.mutate(ctx, caseID, caller, func(c *model.Case) { c.IDSwapped = swapped })
}

func (s *caseService) UpdateComment(ctx context.Context, caseID, comment string, caller *Caller) (*dto.CaseResponse, error) {
	if len(comment) > 4000 {
		return nil, pkgerrors.Validation("备注长度不能超过 4000")
	}
	return s.mutate(ctx, caseID, caller, func(c *model.Case) { c.Comment = comment })
}

// mutate 读取案件、修改单个字段并以乐观锁写回
func (s *caseService) mutate(ctx context.Context, caseID string, caller *Caller, apply func(c *model.Case)) (*dto.CaseResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapCaseWrite); err != nil {
		return nil, err
	}
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	apply(c)
	c.UpdatedBy = &caller.UserID
	if err := s.repo.Case.Update(ctx, c); err != nil {
		if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
			s.logger.Error("更新案件失败", zap.String("case_id", caseID), zap.Error(err))
		}
		return nil, err
	}
	s.cache.invalidate(ctx)

	resp := toCaseResponse(c, s.now())
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *caseService) Delete(ctx context.Context, caseID string, caller *Caller) error {
	if err := authorize(ctx, s.authz, caller, model.CapCaseDelete); err != nil {
		return err
	}
	c, err := s.getCase(ctx, caseID)
	if err != nil {
		return err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Outbox.DeleteByCase(ctx, c.CaseID); err != nil {
			return err
		}
		if err := tx.Case.Delete(ctx, c.CaseID); err != nil {
			return err
		}
		return tx.FormReply.Delete(ctx, c.FormReplyID)
	})
	if err != nil {
		s.logger.Error("删除案件失败", zap.String("case_id", caseID), zap.Error(err))
		return err
	}

	s.cache.invalidate(ctx)
	s.logger.Info("案件已删除", zap.String("case_id", caseID), zap.String("deleted_by", caller.Email))
	return nil
}

// ────────────────────── VerifyParticipant ──────────────────────

// VerifyParticipant 自助申请前核验参会者身份，仅返回可自动填充的字段
func (s *caseService) VerifyParticipant(ctx context.Context, email, badge string) (*dto.VerifyParticipantResponse, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(badge) == "" {
		return nil, pkgerrors.Validation("邮箱与胸牌号均为必填项")
	}
	p, err := s.repo.Participant.GetByEmailAndBadge(ctx, email, badge)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("未找到匹配的参会者")
		}
		s.logger.Error("核验参会者失败", zap.Error(err))
		return nil, err
	}
	return &dto.VerifyParticipantResponse{
		Name:          p.Name,
		Email:         p.Email,
		Tel:           p.Tel,
		County:        p.RegionName(),
		ParticipantID: p.ParticipantID,
		Type:          string(p.Type),
	}, nil
}

// ── 内部辅助方法 ──

func (s *caseService) getCase(ctx context.Context, caseID string) (*model.Case, error) {
	c, err := s.repo.Case.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseNotFound
		}
		s.logger.Error("查询案件失败", zap.String("case_id", caseID), zap.Error(err))
		return nil, err
	}
	return c, nil
}

// toCaseResponse 将 model.Case 转换为 dto.CaseResponse，并附带派生状态
func toCaseResponse(c *model.Case, now time.Time) dto.CaseResponse {
	status := model.DeriveStatus(c, now)
	resp := dto.CaseResponse{
		ID:             c.CaseID,
		Status:         string(status),
		StatusLabel:    status.Label(),
		Review:         c.ReviewStatus().String(),
		ReasonRejected: c.ReasonRejected,
		IDSwapped:      c.IDSwapped,
		Comment:        c.Comment,
		ReviewedAt:     c.ReviewedAt,
		HMSFlag:        c.HMSFlag,
		Version:        c.Version,
		CreatedAt:      c.CreatedAt,
	}
	if c.ReviewedBy != nil {
		resp.ReviewedBy = *c.ReviewedBy
	}
	if c.ParticipantObjectID != nil {
		resp.ParticipantRef = *c.ParticipantObjectID
	}
	if c.HMSIncidentID != nil {
		resp.HMSIncidentID = *c.HMSIncidentID
	}
	if f := c.FormReply; f != nil {
		resp.FormReply = &dto.FormReplyResponse{
			ID:            f.FormReplyID,
			Name:          f.Name,
			Email:         f.Email,
			Tel:           f.Tel,
			County:        f.County,
			Type:          string(f.Type),
			ParticipantID: f.ParticipantID,
			From:          f.From,
			To:            f.To,
			Reason:        f.Reason,
			HasObserver:   f.HasObserver,
			ObserverName:  f.ObserverName,
			ObserverID:    f.ObserverID,
			ObserverTel:   f.ObserverTel,
		}
	}
	return resp
}
