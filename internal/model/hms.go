package model

import "time"

// IncidentType HMS 事件类型
type IncidentType string

const (
	IncidentIllness  IncidentType = "ILLNESS"
	IncidentAccident IncidentType = "ACCIDENT"
	IncidentAllergy  IncidentType = "ALLERGY"
	IncidentOther    IncidentType = "OTHER"
)

// Valid 是否为已知事件类型
func (t IncidentType) Valid() bool {
	switch t {
	case IncidentIllness, IncidentAccident, IncidentAllergy, IncidentOther:
		return true
	}
	return false
}

// HMSLeaveReason HMS 自动创建的请假记录使用的固定事由
const HMSLeaveReason = "Medisinsk Permisjon (HMS)"

// HMSIncident 健康安全事件表，对应 hms_incidents
type HMSIncident struct {
	HMSIncidentID       string       `gorm:"column:hms_incident_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"hms_incident_id"`
	IncidentType        IncidentType `gorm:"type:varchar(20);not null"                                             json:"incident_type"`
	Description         string       `gorm:"type:text;not null"                                                    json:"description"`
	Location            string       `gorm:"type:varchar(200)"                                                     json:"location,omitempty"`
	ParticipantObjectID string       `gorm:"type:uuid;not null;index"                                              json:"participant_object_id"`
	ReportedByID        *string      `gorm:"type:uuid"                                                             json:"reported_by_id,omitempty"`
	BaseModel

	Participant *Participant `gorm:"foreignKey:ParticipantObjectID;references:ParticipantObjectID" json:"participant,omitempty"`
	Actions     []HMSAction  `gorm:"foreignKey:HMSIncidentID;references:HMSIncidentID"             json:"actions,omitempty"`
}

// TableName 指定表名
func (HMSIncident) TableName() string { return "hms_incidents" }

// HMSAction 事件跟进记录表，对应 hms_actions
type HMSAction struct {
	HMSActionID   string    `gorm:"column:hms_action_id;type:uuid;primaryKey;default:gen_random_uuid()" json:"hms_action_id"`
	HMSIncidentID string    `gorm:"column:hms_incident_id;type:uuid;not null;index"                     json:"hms_incident_id"`
	Description   string    `gorm:"type:text;not null"                                                  json:"description"`
	PerformedByID *string   `gorm:"type:uuid"                                                           json:"performed_by_id,omitempty"`
	PerformedAt   time.Time `gorm:"type:timestamptz;not null"                                           json:"performed_at"`
	BaseModel
}

// TableName 指定表名
func (HMSAction) TableName() string { return "hms_actions" }
