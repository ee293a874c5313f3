package model

import (
	"time"

	"gorm.io/datatypes"
)

// OutboxKind 通知类型
type OutboxKind string

const (
	OutboxCaseApproved OutboxKind = "case_approved"
	OutboxCaseRejected OutboxKind = "case_rejected"
)

// OutboxStatus 投递状态
type OutboxStatus string

const (
	OutboxPending OutboxStatus = "pending"
	// OutboxSending 已被某个投递方认领，next_attempt_at 为认领到期时间
	OutboxSending OutboxStatus = "sending"
	OutboxSent    OutboxStatus = "sent"
	OutboxSkipped OutboxStatus = "skipped"
	OutboxFailed  OutboxStatus = "failed"
)

// OutboxAttachment 邮件附件（内容随通知一并落库）
type OutboxAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Content     []byte `json:"content"`
}

// NotificationOutbox 通知发件箱表，对应 notification_outbox
// 与审核结果在同一事务内写入，提交后再投递
type NotificationOutbox struct {
	OutboxID      string                                 `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"outbox_id"`
	CaseID        string                                 `gorm:"type:uuid;not null;index"                       json:"case_id"`
	Kind          OutboxKind                             `gorm:"type:varchar(30);not null"                      json:"kind"`
	Recipient     string                                 `gorm:"type:varchar(255);not null"                     json:"recipient"`
	Subject       string                                 `gorm:"type:varchar(255);not null"                     json:"subject"`
	TextBody      string                                 `gorm:"type:text;not null"                             json:"text_body"`
	HTMLBody      string                                 `gorm:"type:text;not null"                             json:"html_body"`
	Attachments   datatypes.JSONType[[]OutboxAttachment] `gorm:"type:jsonb"                                     json:"attachments"`
	Status        OutboxStatus                           `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"`
	Attempts      int                                    `gorm:"not null;default:0"                             json:"attempts"`
	LastError     string                                 `gorm:"type:text"                                      json:"last_error,omitempty"`
	NextAttemptAt time.Time                              `gorm:"type:timestamptz;not null"                      json:"next_attempt_at"`
	SentAt        *time.Time                             `gorm:"type:timestamptz"                               json:"sent_at,omitempty"`
	BaseModel
}

// TableName 指定表名
func (NotificationOutbox) TableName() string { return "notification_outbox" }
