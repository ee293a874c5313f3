package dto

import "time"

// ── HMS 模块 DTO ──

// CreateIncidentRequest 登记 HMS 事件
type CreateIncidentRequest struct {
	IncidentType        string `json:"incident_type"         validate:"required,oneof=ILLNESS ACCIDENT ALLERGY OTHER"`
	Description         string `json:"description"           validate:"required"`
	Location            string `json:"location"              validate:"max=200"`
	ParticipantObjectID string `json:"participant_object_id" validate:"required,uuid"`
}

// UpdateIncidentRequest 更新 HMS 事件
type UpdateIncidentRequest struct {
	IncidentType string `json:"incident_type" validate:"required,oneof=ILLNESS ACCIDENT ALLERGY OTHER"`
	Description  string `json:"description"   validate:"required"`
	Location     string `json:"location"      validate:"max=200"`
}

// CreateActionRequest 添加跟进记录
type CreateActionRequest struct {
	Description string     `json:"description"  validate:"required"`
	PerformedAt *time.Time `json:"performed_at"`
}

// HMSLeaveRequest 由 HMS 事件创建或调整请假
type HMSLeaveRequest struct {
	From time.Time `json:"from" validate:"required"`
	To   time.Time `json:"to"   validate:"required"`
}

// IncidentResponse 事件信息
type IncidentResponse struct {
	ID              string           `json:"id"`
	IncidentType    string           `json:"incident_type"`
	Description     string           `json:"description"`
	Location        string           `json:"location,omitempty"`
	ParticipantID   string           `json:"participant_object_id"`
	ParticipantName string           `json:"participant_name,omitempty"`
	ReportedByID    string           `json:"reported_by_id,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	Actions         []ActionResponse `json:"actions,omitempty"`
}

// ActionResponse 跟进记录
type ActionResponse struct {
	ID            string    `json:"id"`
	Description   string    `json:"description"`
	PerformedByID string    `json:"performed_by_id,omitempty"`
	PerformedAt   time.Time `json:"performed_at"`
}
