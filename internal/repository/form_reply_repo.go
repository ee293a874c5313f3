package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"elevtinget/backend/internal/model"
)

// FormReplyRepository 请假表单数据访问接口
type FormReplyRepository interface {
	Create(ctx context.Context, f *model.FormReply) error
	GetByID(ctx context.Context, id string) (*model.FormReply, error)
	Update(ctx context.Context, f *model.FormReply) error
	UpdateWindow(ctx context.Context, id string, from, to time.Time) error
	Delete(ctx context.Context, id string) error
}

type formReplyRepo struct {
	db *gorm.DB
}

// NewFormReplyRepo 创建 FormReplyRepository 实例
func NewFormReplyRepo(db *gorm.DB) FormReplyRepository {
	return &formReplyRepo{db: db}
}

func (r *formReplyRepo) Create(ctx context.Context, f *model.FormReply) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *formReplyRepo) GetByID(ctx context.Context, id string) (*model.FormReply, error) {
	var f model.FormReply
	err := r.db.WithContext(ctx).
		Where("form_reply_id = ?", id).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Update 整条覆盖（Select("*") 使零值字段同样写入）
func (r *formReplyRepo) Update(ctx context.Context, f *model.FormReply) error {
	return r.db.WithContext(ctx).
		Model(f).
		Select("*").
		Omit("form_reply_id", "created_at", "created_by").
		Updates(f).Error
}

func (r *formReplyRepo) UpdateWindow(ctx context.Context, id string, from, to time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.FormReply{}).
		Where("form_reply_id = ?", id).
		Updates(map[string]interface{}{
			"from_at": from,
			"to_at":   to,
		}).Error
}

func (r *formReplyRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("form_reply_id = ?", id).
		Delete(&model.FormReply{}).Error
}
