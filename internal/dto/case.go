package dto

import "time"

// ── 请假案件模块 DTO ──

// CreateCaseRequest 提交请假申请（参会者自助或管理员代录）
// 日序号相对会议首日，时间为会议时区的 HH:MM
type CreateCaseRequest struct {
	Name          string `json:"name"           validate:"required,max=200"`
	Email         string `json:"email"          validate:"required,email,max=255"`
	Tel           string `json:"tel"            validate:"required,max=30"`
	County        string `json:"county"         validate:"required,max=100"`
	Type          string `json:"type"           validate:"required,oneof=DELEGATE OBSERVER"`
	ParticipantID string `json:"participant_id" validate:"required,max=20"`
	FromDay       *int   `json:"from_day"       validate:"required,min=0"`
	FromTime      string `json:"from_time"      validate:"required"`
	ToDay         *int   `json:"to_day"         validate:"required_unless=NotReturning true,omitempty,min=0"`
	ToTime        string `json:"to_time"        validate:"required_unless=NotReturning true"`
	NotReturning  bool   `json:"not_returning"`
	Reason        string `json:"reason"         validate:"required"`
	HasObserver   bool   `json:"has_observer"`
	ObserverName  string `json:"observer_name"  validate:"required_if=HasObserver true Type DELEGATE,max=200"`
	ObserverID    string `json:"observer_id"    validate:"required_if=HasObserver true Type DELEGATE,max=20"`
	ObserverTel   string `json:"observer_tel"   validate:"required_if=HasObserver true Type DELEGATE,max=30"`
}

// ReviewCaseRequest 审核请求
// Version 可选，传入时与当前版本不一致则返回冲突
type ReviewCaseRequest struct {
	Status         string `json:"status"          validate:"required,oneof=APPROVED REJECTED PENDING"`
	ReasonRejected string `json:"reason_rejected" validate:"max=2000"`
	Version        *int   `json:"version"`
}

// UpdateFormDataRequest 整体覆盖表单内容，时间为绝对时间
type UpdateFormDataRequest struct {
	Name          string    `json:"name"           validate:"required,max=200"`
	Email         string    `json:"email"          validate:"required,email,max=255"`
	Tel           string    `json:"tel"            validate:"required,max=30"`
	County        string    `json:"county"         validate:"required,max=100"`
	Type          string    `json:"type"           validate:"required,oneof=DELEGATE OBSERVER"`
	ParticipantID string    `json:"participant_id" validate:"required,max=20"`
	From          time.Time `json:"from"           validate:"required"`
	To            time.Time `json:"to"             validate:"required"`
	Reason        string    `json:"reason"         validate:"required"`
	HasObserver   bool      `json:"has_observer"`
	ObserverName  string    `json:"observer_name"  validate:"required_if=HasObserver true Type DELEGATE,max=200"`
	ObserverID    string    `json:"observer_id"    validate:"required_if=HasObserver true Type DELEGATE,max=20"`
	ObserverTel   string    `json:"observer_tel"   validate:"required_if=HasObserver true Type DELEGATE,max=30"`
}

// SetSwappedRequest 记录观察员换牌
type SetSwappedRequest struct {
	Swapped bool `json:"swapped"`
}

// UpdateCommentRequest 更新内部备注
type UpdateCommentRequest struct {
	Comment string `json:"comment" validate:"max=4000"`
}

// FormReplyResponse 表单内容
type FormReplyResponse struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Tel           string     `json:"tel"`
	County        string     `json:"county"`
	Type          string     `json:"type"`
	ParticipantID string     `json:"participant_id"`
	From          *time.Time `json:"from"`
	To            *time.Time `json:"to"`
	Reason        string     `json:"reason"`
	HasObserver   bool       `json:"has_observer"`
	ObserverName  string     `json:"observer_name,omitempty"`
	ObserverID    string     `json:"observer_id,omitempty"`
	ObserverTel   string     `json:"observer_tel,omitempty"`
}

// CaseResponse 案件信息（含派生状态）
type CaseResponse struct {
	ID             string             `json:"id"`
	Status         string             `json:"status"`
	StatusLabel    string             `json:"status_label"`
	Review         string             `json:"review"`
	ReasonRejected string             `json:"reason_rejected,omitempty"`
	IDSwapped      bool               `json:"id_swapped"`
	Comment        string             `json:"comment,omitempty"`
	ReviewedBy     string             `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time         `json:"reviewed_at,omitempty"`
	HMSFlag        bool               `json:"hms_flag"`
	ParticipantRef string             `json:"participant_object_id,omitempty"`
	HMSIncidentID  string             `json:"hms_incident_id,omitempty"`
	Version        int                `json:"version"`
	CreatedAt      time.Time          `json:"created_at"`
	FormReply      *FormReplyResponse `json:"form_reply,omitempty"`
}

// ReviewCaseResponse 审核结果；通知发送失败时附带警告，不影响审核结果
type ReviewCaseResponse struct {
	Case                CaseResponse `json:"case"`
	NotificationWarning string       `json:"notification_warning,omitempty"`
}

// VerifyParticipantResponse 参会者核验结果（仅返回可自动填充的字段）
type VerifyParticipantResponse struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Tel           string `json:"tel"`
	County        string `json:"county"`
	ParticipantID string `json:"participant_id"`
	Type          string `json:"type"`
}
