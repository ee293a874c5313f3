package repository

import (
	"context"

	"gorm.io/gorm"

	"elevtinget/backend/internal/model"
)

// EventConfigRepository 会议配置数据访问接口
type EventConfigRepository interface {
	Get(ctx context.Context) (*model.EventConfig, error)
	Update(ctx context.Context, cfg *model.EventConfig) error
}

type eventConfigRepo struct {
	db *gorm.DB
}

// NewEventConfigRepo 创建 EventConfigRepository 实例
func NewEventConfigRepo(db *gorm.DB) EventConfigRepository {
	return &eventConfigRepo{db: db}
}

func (r *eventConfigRepo) Get(ctx context.Context) (*model.EventConfig, error) {
	var cfg model.EventConfig
	err := r.db.WithContext(ctx).First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *eventConfigRepo) Update(ctx context.Context, cfg *model.EventConfig) error {
	cfg.Singleton = true
	return r.db.WithContext(ctx).Save(cfg).Error
}
