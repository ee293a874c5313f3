package model

import "time"

// FormReply 请假申请表单，对应 form_replies（与 cases 1:1）
type FormReply struct {
	FormReplyID   string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"form_reply_id"`
	Name          string          `gorm:"type:varchar(200);not null"                     json:"name"`
	Email         string          `gorm:"type:varchar(255);not null"                     json:"email"`
	Tel           string          `gorm:"type:varchar(30);not null"                      json:"tel"`
	County        string          `gorm:"type:varchar(100);not null"                     json:"county"`
	Type          ParticipantType `gorm:"type:varchar(20);not null"                      json:"type"`
	ParticipantID string          `gorm:"type:varchar(20);not null"                      json:"participant_id"`
	From          *time.Time      `gorm:"column:from_at;type:timestamptz"                json:"from"`
	To            *time.Time      `gorm:"column:to_at;type:timestamptz"                  json:"to"`
	Reason        string          `gorm:"type:text;not null"                             json:"reason"`
	HasObserver   bool            `gorm:"not null;default:false"                         json:"has_observer"`
	ObserverName  string          `gorm:"type:varchar(200)"                              json:"observer_name,omitempty"`
	ObserverID    string          `gorm:"type:varchar(20)"                               json:"observer_id,omitempty"`
	ObserverTel   string          `gorm:"type:varchar(30)"                               json:"observer_tel,omitempty"`
	BaseModel
}

// TableName 指定表名
func (FormReply) TableName() string { return "form_replies" }

// NormalizeObserver 仅代表（DELEGATE）且声明有观察员时保留观察员信息
func (f *FormReply) NormalizeObserver() {
	if f.HasObserver && f.Type == ParticipantDelegate {
		return
	}
	f.HasObserver = false
	f.ObserverName = ""
	f.ObserverID = ""
	f.ObserverTel = ""
}

// WindowValid 时间窗完整且 to >= from
func (f *FormReply) WindowValid() bool {
	if f.From == nil || f.To == nil {
		return false
	}
	return !f.To.Before(*f.From)
}
