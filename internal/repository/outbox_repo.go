package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"elevtinget/backend/internal/model"
)

// OutboxRepository 通知发件箱数据访问接口
type OutboxRepository interface {
	Create(ctx context.Context, entry *model.NotificationOutbox) error
	GetByID(ctx context.Context, id string) (*model.NotificationOutbox, error)
	// ListDue 取出到期待投递的记录（pending / failed / 认领已过期的 sending，且未超过最大次数）
	ListDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]model.NotificationOutbox, error)
	// Claim 条件更新为 sending，返回 false 表示已被其他投递方认领或已投递
	Claim(ctx context.Context, id string, now, leaseUntil time.Time) (bool, error)
	Update(ctx context.Context, entry *model.NotificationOutbox) error
	DeleteByCase(ctx context.Context, caseID string) error
}

type outboxRepo struct {
	db *gorm.DB
}

// NewOutboxRepo 创建 OutboxRepository 实例
func NewOutboxRepo(db *gorm.DB) OutboxRepository {
	return &outboxRepo{db: db}
}

func (r *outboxRepo) Create(ctx context.Context, entry *model.NotificationOutbox) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *outboxRepo) GetByID(ctx context.Context, id string) (*model.NotificationOutbox, error) {
	var entry model.NotificationOutbox
	err := r.db.WithContext(ctx).
		Where("outbox_id = ?", id).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *outboxRepo) ListDue(ctx context.Context, now time.Time, maxAttempts, limit int) ([]model.NotificationOutbox, error) {
	var entries []model.NotificationOutbox
	err := r.db.WithContext(ctx).
		Where("status IN ? AND next_attempt_at <= ? AND attempts < ?",
			claimableStatuses, now, maxAttempts).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// claimableStatuses sending 仅在认领过期（next_attempt_at <= now）时可再次认领
var claimableStatuses = []model.OutboxStatus{model.OutboxPending, model.OutboxFailed, model.OutboxSending}

func (r *outboxRepo) Claim(ctx context.Context, id string, now, leaseUntil time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.NotificationOutbox{}).
		Where("outbox_id = ? AND status IN ? AND next_attempt_at <= ?", id, claimableStatuses, now).
		Updates(map[string]interface{}{
			"status":          model.OutboxSending,
			"next_attempt_at": leaseUntil,
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *outboxRepo) Update(ctx context.Context, entry *model.NotificationOutbox) error {
	return r.db.WithContext(ctx).
		Model(&model.NotificationOutbox{}).
		Where("outbox_id = ?", entry.OutboxID).
		Updates(map[string]interface{}{
			"status":          entry.Status,
			"attempts":        entry.Attempts,
			"last_error":      entry.LastError,
			"next_attempt_at": entry.NextAttemptAt,
			"sent_at":         entry.SentAt,
			"updated_at":      time.Now(),
		}).Error
}

func (r *outboxRepo) DeleteByCase(ctx context.Context, caseID string) error {
	return r.db.WithContext(ctx).
		Where("case_id = ?", caseID).
		Delete(&model.NotificationOutbox{}).Error
}
