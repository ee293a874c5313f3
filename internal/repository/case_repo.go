package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"elevtinget/backend/internal/model"
	pkgerrors "elevtinget/backend/pkg/errors"
)

// CaseRepository 请假案件数据访问接口
type CaseRepository interface {
	Create(ctx context.Context, c *model.Case) error
	GetByID(ctx context.Context, id string) (*model.Case, error)
	// GetByIDForUpdate 行锁读取，必须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Case, error)
	GetByFormReplyID(ctx context.Context, formReplyID string) (*model.Case, error)
	List(ctx context.Context, filter model.CaseFilter, now time.Time) ([]model.Case, error)
	ListByParticipant(ctx context.Context, participantObjectID string) ([]model.Case, error)
	Update(ctx context.Context, c *model.Case) error
	Delete(ctx context.Context, id string) error
	UnlinkIncident(ctx context.Context, incidentID string) error
}

type caseRepo struct {
	db *gorm.DB
}

// NewCaseRepo 创建 CaseRepository 实例
func NewCaseRepo(db *gorm.DB) CaseRepository {
	return &caseRepo{db: db}
}

// caseFilterSQL 各过滤条件的 SQL 谓词，与 model.CaseFilter.Matches 一一对应
// fr 为 form_replies 别名；时间相关谓词额外要求时间窗合法，与 ERROR 状态互斥
var caseFilterSQL = map[model.CaseFilter]string{
	model.FilterAll:      "",
	model.FilterPending:  "cases.status IS NULL",
	model.FilterApproved: "cases.status = TRUE",
	model.FilterRejected: "cases.status = FALSE",
	model.FilterActive: "cases.status = TRUE AND fr.from_at <= fr.to_at " +
		"AND fr.from_at <= @now AND fr.to_at >= @now",
	model.FilterScheduled: "cases.status = TRUE AND fr.from_at <= fr.to_at " +
		"AND fr.from_at > @now",
	model.FilterExpired: "cases.status = TRUE AND fr.from_at <= fr.to_at " +
		"AND fr.to_at < @now",
	model.FilterRequireAction: "cases.status = TRUE AND fr.from_at <= fr.to_at " +
		"AND fr.from_at <= @now AND fr.to_at >= @now " +
		"AND fr.has_observer = TRUE AND cases.id_swapped = FALSE",
}

// applyCaseFilter 将过滤条件翻译为查询条件
func applyCaseFilter(db *gorm.DB, filter model.CaseFilter, now time.Time) (*gorm.DB, error) {
	cond, ok := caseFilterSQL[filter]
	if !ok {
		return nil, fmt.Errorf("未实现的过滤条件: %s", filter)
	}
	db = db.Joins("JOIN form_replies fr ON fr.form_reply_id = cases.form_reply_id")
	if cond == "" {
		return db, nil
	}
	return db.Where(cond, map[string]interface{}{"now": now}), nil
}

func (r *caseRepo) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("FormReply").
		Preload("Participant").
		Preload("Participant.Region").
		Preload("HMSIncident")
}

func (r *caseRepo) Create(ctx context.Context, c *model.Case) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(c).Error
}

func (r *caseRepo) GetByID(ctx context.Context, id string) (*model.Case, error) {
	var c model.Case
	err := r.preload(r.db.WithContext(ctx)).
		Where("case_id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Case, error) {
	var c model.Case
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("case_id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, err
	}

	var form model.FormReply
	if err := r.db.WithContext(ctx).Where("form_reply_id = ?", c.FormReplyID).First(&form).Error; err == nil {
		c.FormReply = &form
	} else if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepo) GetByFormReplyID(ctx context.Context, formReplyID string) (*model.Case, error) {
	var c model.Case
	err := r.preload(r.db.WithContext(ctx)).
		Where("form_reply_id = ?", formReplyID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *caseRepo) List(ctx context.Context, filter model.CaseFilter, now time.Time) ([]model.Case, error) {
	db, err := applyCaseFilter(r.db.WithContext(ctx).Model(&model.Case{}), filter, now)
	if err != nil {
		return nil, err
	}

	var cases []model.Case
	err = r.preload(db).
		Order("cases.created_at DESC").
		Find(&cases).Error
	if err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *caseRepo) ListByParticipant(ctx context.Context, participantObjectID string) ([]model.Case, error) {
	var cases []model.Case
	err := r.db.WithContext(ctx).
		Preload("FormReply").
		Where("participant_object_id = ?", participantObjectID).
		Order("created_at DESC").
		Find(&cases).Error
	if err != nil {
		return nil, err
	}
	return cases, nil
}

// Update 基于 version 的乐观锁更新
func (r *caseRepo) Update(ctx context.Context, c *model.Case) error {
	oldVersion := c.Version
	result := r.db.WithContext(ctx).
		Model(&model.Case{}).
		Where("case_id = ? AND version = ?", c.CaseID, oldVersion).
		Updates(map[string]interface{}{
			"status":                c.Status,
			"reason_rejected":       c.ReasonRejected,
			"id_swapped":            c.IDSwapped,
			"comment":               c.Comment,
			"reviewed_by":           c.ReviewedBy,
			"reviewed_at":           c.ReviewedAt,
			"participant_object_id": c.ParticipantObjectID,
			"hms_incident_id":       c.HMSIncidentID,
			"updated_by":            c.UpdatedBy,
			"updated_at":            time.Now(),
			"version":               oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	c.Version = oldVersion + 1
	return nil
}

func (r *caseRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("case_id = ?", id).
		Delete(&model.Case{}).Error
}

func (r *caseRepo) UnlinkIncident(ctx context.Context, incidentID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Case{}).
		Where("hms_incident_id = ?", incidentID).
		Update("hms_incident_id", nil).Error
}
