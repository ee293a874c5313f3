package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"elevtinget/backend/internal/model"
)

// HMSRepository HMS 事件与跟进记录数据访问接口
type HMSRepository interface {
	CreateIncident(ctx context.Context, incident *model.HMSIncident) error
	GetIncident(ctx context.Context, id string) (*model.HMSIncident, error)
	ListIncidents(ctx context.Context, participantObjectID string) ([]model.HMSIncident, error)
	UpdateIncident(ctx context.Context, incident *model.HMSIncident) error
	// DeleteIncident 删除事件及其跟进记录，需在事务内调用
	DeleteIncident(ctx context.Context, id string) error
	CreateAction(ctx context.Context, action *model.HMSAction) error
	ListActions(ctx context.Context, incidentID string) ([]model.HMSAction, error)
}

type hmsRepo struct {
	db *gorm.DB
}

// NewHMSRepo 创建 HMSRepository 实例
func NewHMSRepo(db *gorm.DB) HMSRepository {
	return &hmsRepo{db: db}
}

func (r *hmsRepo) CreateIncident(ctx context.Context, incident *model.HMSIncident) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(incident).Error
}

func (r *hmsRepo) GetIncident(ctx context.Context, id string) (*model.HMSIncident, error) {
	var incident model.HMSIncident
	err := r.db.WithContext(ctx).
		Preload("Participant").
		Preload("Actions", func(db *gorm.DB) *gorm.DB {
			return db.Order("performed_at ASC")
		}).
		Where("hms_incident_id = ?", id).
		First(&incident).Error
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

func (r *hmsRepo) ListIncidents(ctx context.Context, participantObjectID string) ([]model.HMSIncident, error) {
	var incidents []model.HMSIncident
	db := r.db.WithContext(ctx).Preload("Participant")
	if participantObjectID != "" {
		db = db.Where("participant_object_id = ?", participantObjectID)
	}
	if err := db.Order("created_at DESC").Find(&incidents).Error; err != nil {
		return nil, err
	}
	return incidents, nil
}

func (r *hmsRepo) UpdateIncident(ctx context.Context, incident *model.HMSIncident) error {
	return r.db.WithContext(ctx).
		Model(&model.HMSIncident{}).
		Where("hms_incident_id = ?", incident.HMSIncidentID).
		Updates(map[string]interface{}{
			"incident_type": incident.IncidentType,
			"description":   incident.Description,
			"location":      incident.Location,
			"updated_by":    incident.UpdatedBy,
		}).Error
}

func (r *hmsRepo) DeleteIncident(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).
		Where("hms_incident_id = ?", id).
		Delete(&model.HMSAction{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("hms_incident_id = ?", id).
		Delete(&model.HMSIncident{}).Error
}

func (r *hmsRepo) CreateAction(ctx context.Context, action *model.HMSAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *hmsRepo) ListActions(ctx context.Context, incidentID string) ([]model.HMSAction, error) {
	var actions []model.HMSAction
	err := r.db.WithContext(ctx).
		Where("hms_incident_id = ?", incidentID).
		Order("performed_at ASC").
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}
