package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Case         CaseRepository
	FormReply    FormReplyRepository
	Participant  ParticipantRepository
	Region       RegionRepository
	Organization OrganizationRepository
	HMS          HMSRepository
	EventConfig  EventConfigRepository
	User         UserRepository
	Role         RoleRepository
	Outbox       OutboxRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Case:         NewCaseRepo(db),
		FormReply:    NewFormReplyRepo(db),
		Participant:  NewParticipantRepo(db),
		Region:       NewRegionRepo(db),
		Organization: NewOrganizationRepo(db),
		HMS:          NewHMSRepo(db),
		EventConfig:  NewEventConfigRepo(db),
		User:         NewUserRepo(db),
		Role:         NewRoleRepo(db),
		Outbox:       NewOutboxRepo(db),
	}
}

// BeginTx 开启事务；未绑定数据库（单元测试中的 mock 聚合）时返回 nil
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到事务连接的 Repository 聚合；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// Transaction 在单个事务内执行 fn，fn 返回错误或 panic 时回滚
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) (err error) {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	if tx == nil {
		return fn(r)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(r.WithTx(tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}
