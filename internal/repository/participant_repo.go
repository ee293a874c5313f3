package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"elevtinget/backend/internal/model"
)

// ParticipantRepository 参会者数据访问接口
type ParticipantRepository interface {
	GetByID(ctx context.Context, id string) (*model.Participant, error)
	// GetByEmailAndBadge 邮箱大小写不敏感、胸牌号精确匹配
	GetByEmailAndBadge(ctx context.Context, email, badge string) (*model.Participant, error)
	Search(ctx context.Context, query string, offset, limit int) ([]model.Participant, int64, error)
	// Upsert 按邮箱插入或更新
	Upsert(ctx context.Context, p *model.Participant) error
}

type participantRepo struct {
	db *gorm.DB
}

// NewParticipantRepo 创建 ParticipantRepository 实例
func NewParticipantRepo(db *gorm.DB) ParticipantRepository {
	return &participantRepo{db: db}
}

func (r *participantRepo) GetByID(ctx context.Context, id string) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).
		Preload("Region").
		Preload("Organization").
		Where("participant_object_id = ?", id).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participantRepo) GetByEmailAndBadge(ctx context.Context, email, badge string) (*model.Participant, error) {
	var p model.Participant
	err := r.db.WithContext(ctx).
		Preload("Region").
		Where("LOWER(email) = ? AND participant_id = ?", strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(badge)).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *participantRepo) Search(ctx context.Context, query string, offset, limit int) ([]model.Participant, int64, error) {
	var participants []model.Participant
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Participant{})
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR participant_id = ?", like, like, q)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Region").
		Preload("Organization").
		Offset(offset).Limit(limit).
		Order("name ASC").
		Find(&participants).Error; err != nil {
		return nil, 0, err
	}

	return participants, total, nil
}

func (r *participantRepo) Upsert(ctx context.Context, p *model.Participant) error {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	return r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"participant_id", "name", "tel", "type", "gender", "birth_date",
				"region_id", "organization_id", "family", "family_relation", "family_tel",
				"notes", "updated_at", "updated_by",
			}),
		}).
		Create(p).Error
}
