package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"elevtinget/backend/internal/dto"
	"elevtinget/backend/internal/model"
	"elevtinget/backend/internal/repository"
	pkgerrors "elevtinget/backend/pkg/errors"
)

// ── HMS 模块业务错误 ──

var (
	ErrIncidentNotFound    = pkgerrors.NotFound("HMS 事件不存在")
	ErrParticipantNotFound = pkgerrors.NotFound("参会者不存在")
	ErrNotHMSCase          = pkgerrors.Validation("该案件不是由 HMS 创建的请假")
)

// HMSService 健康安全事件及其关联请假业务接口
type HMSService interface {
	CreateIncident(ctx context.Context, req *dto.CreateIncidentRequest, caller *Caller) (*dto.IncidentResponse, error)
	GetIncident(ctx context.Context, id string, caller *Caller) (*dto.IncidentResponse, error)
	ListIncidents(ctx context.Context, participantObjectID string, caller *Caller) ([]dto.IncidentResponse, error)
	UpdateIncident(ctx context.Context, id string, req *dto.UpdateIncidentRequest, caller *Caller) (*dto.IncidentResponse, error)
	DeleteIncident(ctx context.Context, id string, caller *Caller) error
	AddAction(ctx context.Context, incidentID string, req *dto.CreateActionRequest, caller *Caller) (*dto.ActionResponse, error)
	ListActions(ctx context.Context, incidentID string, caller *Caller) ([]dto.ActionResponse, error)

	// CreateFromIncident 由 HMS 事件直接创建已批准的请假（不发邮件）。
	// 参会者取自事件创建时关联的 participant，不单独传入；该参会者已不存在时返回 ErrParticipantNotFound。
	CreateFromIncident(ctx context.Context, incidentID string, from, to time.Time, caller *Caller) (*dto.CaseResponse, error)
	// UpdateFromIncident 仅调整请假时间窗
	UpdateFromIncident(ctx context.Context, caseID string, from, to time.Time, caller *Caller) (*dto.CaseResponse, error)
	// RevokeEarly 立即结束请假
	RevokeEarly(ctx context.Context, caseID string, caller *Caller) (*dto.CaseResponse, error)
}

type hmsService struct {
	repo   *repository.Repository
	authz  Authorizer
	cache  *caseListCache
	logger *zap.Logger
	now    func() time.Time
}

// NewHMSService 创建 HMSService 实例
func NewHMSService(repo *repository.Repository, authz Authorizer, cache *caseListCache, logger *zap.Logger) HMSService {
	if cache == nil {
		cache = newCaseListCache(nil, 0, logger)
	}
	return &hmsService{repo: repo, authz: authz, cache: cache, logger: logger, now: time.Now}
}

// ────────────────────── Incident ──────────────────────

func (s *hmsService) CreateIncident(ctx context.Context, req *dto.CreateIncidentRequest, caller *Caller) (*dto.IncidentResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapHSEWrite); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	p, err := s.getParticipant(ctx, req.ParticipantObjectID)
	if err != nil {
		return nil, err
	}

	incident := &model.HMSIncident{
		IncidentType:        model.IncidentType(req.IncidentType),
		Description:         req.Description,
		Location:            req.Location,
		ParticipantObjectID: p.ParticipantObjectID,
		ReportedByID:        &caller.UserID,
	}
	incident.CreatedBy = &caller.UserID

	if err := s.repo.HMS.CreateIncident(ctx, incident); err != nil {
		s.logger.Error("创建 HMS 事件失败", zap.Error(err))
		return nil, err
	}
	incident.Participant = p

	s.logger.Info("HMS 事件已登记",
		zap.String("incident_id", incident.HMSIncidentID),
		zap.String("type", string(incident.IncidentType)),
	)
	resp := toIncidentResponse(incident)
	return &resp, nil
}

func (s *hmsService) GetIncident(ctx context.Context, id string, caller *Caller) (*dto.IncidentResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapHSERead); err != nil {
		return nil, err
	}
	incident, err := s.getIncident(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toIncidentResponse(incident)
	return &resp, nil
}

// ListIncidents participantObjectID 为空时返回全部事件
func (s *hmsService) ListIncidents(ctx context.Context, participantObjectID string, caller *Caller) ([]dto.IncidentResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapHSERead); err != nil {
		return nil, err
	}
	incidents, err := s.repo.HMS.ListIncidents(ctx, participantObjectID)
	if err != nil {
		s.logger.Error("查询 HMS 事件列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.IncidentResponse, 0, len(incidents))
	for i := range incidents {
		result = append(result, toIncidentResponse(&incidents[i]))
	}
	return result, nil
}

func (s *hmsService) UpdateIncident(ctx context.Context, id string, req *dto.UpdateIncidentRequest, caller *Caller) (*dto.IncidentResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapHSEWrite); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	incident, err := s.getIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	incident.IncidentType = model.IncidentType(req.IncidentType)
	incident.Description = req.Description
	incident.Location = req.Location
	incident.UpdatedBy = &caller.UserID

	if err := s.repo.HMS.UpdateIncident(ctx, incident); err != nil {
		s.logger.Error("更新 HMS 事件失败", zap.String("incident_id", id), zap.Error(err))
		return nil, err
	}
	resp := toIncidentResponse(incident)
	return &resp, nil
}

// DeleteIncident 删除事件及其跟进记录；关联的请假案件保留，仅解除关联
func (s *hmsService) DeleteIncident(ctx context.Context, id string, caller *Caller) error {
	if err := authorize(ctx, s.authz, caller, model.CapHSEDelete); err != nil {
		return err
	}
	if _, err := s.getIncident(ctx, id); err != nil {
		return err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Case.UnlinkIncident(ctx, id); err != nil {
			return err
		}
		return tx.HMS.DeleteIncident(ctx, id)
	})
	if err != nil {
		s.logger.Error("删除 HMS 事件失败", zap.String("incident_id", id), zap.Error(err))
		return err
	}
	s.cache.invalidate(ctx)
	return nil
}

// ────────────────────── Action ──────────────────────

func (s *hmsService) AddAction(ctx context.Context, incidentID string, req *dto.CreateActionRequest, caller *Caller) (*dto.ActionResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapHSEWrite); err != nil {
		return nil, err
	}
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if _, err := s.getIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	performedAt := s.now()
	if req.PerformedAt != nil {
		performedAt = *req.PerformedAt
	}
	action := &model.HMSAction{
		HMSIncidentID: incidentID,
		Description:   req.Description,
		PerformedByID: &caller.UserID,
		PerformedAt:   performedAt,
	}
	action.CreatedBy = &caller.UserID

	if err := s.repo.HMS.CreateAction(ctx, action); err != nil {
		s.logger.Error("添加 HMS 跟进记录失败", zap.String("incident_id", incidentID), zap.Error(err))
		return nil, err
	}
	resp := toActionResponse(action)
	return &resp, nil
}

func (s *hmsService) ListActions(ctx context.Context, incidentID string, caller *Caller) ([]dto.ActionResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapHSERead); err != nil {
		return nil, err
	}
	if _, err := s.getIncident(ctx, incidentID); err != nil {
		return nil, err
	}
	actions, err := s.repo.HMS.ListActions(ctx, incidentID)
	if err != nil {
		s.logger.Error("查询 HMS 跟进记录失败", zap.String("incident_id", incidentID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.ActionResponse, 0, len(actions))
	for i := range actions {
		result = append(result, toActionResponse(&actions[i]))
	}
	return result, nil
}

// ────────────────────── HMS 请假 ──────────────────────

func (s *hmsService) CreateFromIncident(ctx context.Context, incidentID string, from, to time.Time, caller *Caller) (*dto.CaseResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapHSEWrite); err != nil {
		return nil, err
	}
	incident, err := s.getIncident(ctx, incidentID)
	if err != nil {
		return nil, err
	}
	p, err := s.getParticipant(ctx, incident.ParticipantObjectID)
	if err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, ErrWindowInverted
	}

	now := s.now()
	// 表单内容为参会者信息快照
	form := &model.FormReply{
		Name:          p.Name,
		Email:         p.Email,
		Tel:           p.Tel,
		County:        p.RegionName(),
		Type:          p.Type,
		ParticipantID: p.ParticipantID,
		From:          &from,
		To:            &to,
		Reason:        model.HMSLeaveReason,
		HasObserver:   false,
	}
	form.CreatedBy = &caller.UserID

	c := &model.Case{
		HMSFlag:             true,
		ReviewedBy:          &caller.Email,
		ReviewedAt:          &now,
		ParticipantObjectID: &p.ParticipantObjectID,
		HMSIncidentID:       &incident.HMSIncidentID,
	}
	c.SetReviewStatus(model.ReviewApproved)
	c.CreatedBy = &caller.UserID

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.FormReply.Create(ctx, form); err != nil {
			return err
		}
		c.FormReplyID = form.FormReplyID
		return tx.Case.Create(ctx, c)
	})
	if err != nil {
		s.logger.Error("创建 HMS 请假失败", zap.String("incident_id", incidentID), zap.Error(err))
		return nil, err
	}
	c.FormReply = form

	s.cache.invalidate(ctx)
	s.logger.Info("HMS 请假已创建",
		zap.String("case_id", c.CaseID),
		zap.String("incident_id", incidentID),
	)
	resp := toCaseResponse(c, now)
	return &resp, nil
}

func (s *hmsService) UpdateFromIncident(ctx context.Context, caseID string, from, to time.Time, caller *Caller) (*dto.CaseResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapHSEWrite); err != nil {
		return nil, err
	}
	if to.Before(from) {
		return nil, ErrWindowInverted
	}
	c, err := s.getHMSCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	return s.moveWindow(ctx, c, from, to)
}

// RevokeEarly to 设为当前时间；若 from 仍在未来则一并设为当前时间，避免时间窗倒置
func (s *hmsService) RevokeEarly(ctx context.Context, caseID string, caller *Caller) (*dto.CaseResponse, error) {
	if err := authorize(ctx, s.authz, caller, model.CapHSEWrite); err != nil {
		return nil, err
	}
	c, err := s.getHMSCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	from := now
	if c.FormReply.From != nil && !c.FormReply.From.After(now) {
		from = *c.FormReply.From
	}
	return s.moveWindow(ctx, c, from, now)
}

func (s *hmsService) moveWindow(ctx context.Context, c *model.Case, from, to time.Time) (*dto.CaseResponse, error) {
	if err := s.repo.FormReply.UpdateWindow(ctx, c.FormReplyID, from, to); err != nil {
		s.logger.Error("更新请假时间失败", zap.String("case_id", c.CaseID), zap.Error(err))
		return nil, err
	}
	c.FormReply.From = &from
	c.FormReply.To = &to
	s.cache.invalidate(ctx)

	resp := toCaseResponse(c, s.now())
	return &resp, nil
}

// ── 内部辅助方法 ──

func (s *hmsService) getIncident(ctx context.Context, id string) (*model.HMSIncident, error) {
	incident, err := s.repo.HMS.GetIncident(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}
		s.logger.Error("查询 HMS 事件失败", zap.String("incident_id", id), zap.Error(err))
		return nil, err
	}
	return incident, nil
}

func (s *hmsService) getParticipant(ctx context.Context, id string) (*model.Participant, error) {
	p, err := s.repo.Participant.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrParticipantNotFound
		}
		s.logger.Error("查询参会者失败", zap.String("participant_object_id", id), zap.Error(err))
		return nil, err
	}
	return p, nil
}

// getHMSCase 只允许调整 HMS 创建的请假
func (s *hmsService) getHMSCase(ctx context.Context, caseID string) (*model.Case, error) {
	c, err := s.repo.Case.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCaseNotFound
		}
		s.logger.Error("查询案件失败", zap.String("case_id", caseID), zap.Error(err))
		return nil, err
	}
	if !c.HMSFlag {
		return nil, ErrNotHMSCase
	}
	if c.FormReply == nil {
		return nil, ErrFormReplyNotFound
	}
	return c, nil
}

func toIncidentResponse(i *model.HMSIncident) dto.IncidentResponse {
	resp := dto.IncidentResponse{
		ID:            i.HMSIncidentID,
		IncidentType:  string(i.IncidentType),
		Description:   i.Description,
		Location:      i.Location,
		ParticipantID: i.ParticipantObjectID,
		CreatedAt:     i.CreatedAt,
	}
	if i.Participant != nil {
		resp.ParticipantName = i.Participant.Name
	}
	if i.ReportedByID != nil {
		resp.ReportedByID = *i.ReportedByID
	}
	for j := range i.Actions {
		resp.Actions = append(resp.Actions, toActionResponse(&i.Actions[j]))
	}
	return resp
}

func toActionResponse(a *model.HMSAction) dto.ActionResponse {
	resp := dto.ActionResponse{
		ID:          a.HMSActionID,
		Description: a.Description,
		PerformedAt: a.PerformedAt,
	}
	if a.PerformedByID != nil {
		resp.PerformedByID = *a.PerformedByID
	}
	return resp
}
