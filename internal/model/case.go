package model

import "time"

// ReviewStatus 审核结论（存储层为可空布尔，仅在本文件内转换）
type ReviewStatus int

const (
	ReviewPending ReviewStatus = iota
	ReviewApproved
	ReviewRejected
)

func (s ReviewStatus) String() string {
	switch s {
	case ReviewApproved:
		return "APPROVED"
	case ReviewRejected:
		return "REJECTED"
	default:
		return "PENDING"
	}
}

// ParseReviewStatus 解析审核结论，未知值返回 false
func ParseReviewStatus(s string) (ReviewStatus, bool) {
	switch s {
	case "PENDING":
		return ReviewPending, true
	case "APPROVED":
		return ReviewApproved, true
	case "REJECTED":
		return ReviewRejected, true
	}
	return ReviewPending, false
}

// Case 请假案件表，对应 cases
type Case struct {
	CaseID              string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"case_id"`
	FormReplyID         string     `gorm:"type:uuid;not null;uniqueIndex"                 json:"form_reply_id"`
	Status              *bool      `gorm:"column:status"                                  json:"status"`
	ReasonRejected      string     `gorm:"type:text;not null;default:''"                  json:"reason_rejected"`
	IDSwapped           bool       `gorm:"column:id_swapped;not null;default:false"       json:"id_swapped"`
	Comment             string     `gorm:"type:text;not null;default:''"                  json:"comment"`
	ReviewedBy          *string    `gorm:"type:varchar(255)"                              json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time `gorm:"type:timestamptz"                               json:"reviewed_at,omitempty"`
	HMSFlag             bool       `gorm:"column:hms_flag;not null;default:false"         json:"hms_flag"`
	ParticipantObjectID *string    `gorm:"type:uuid;index"                                json:"participant_object_id,omitempty"`
	HMSIncidentID       *string    `gorm:"column:hms_incident_id;type:uuid;index"         json:"hms_incident_id,omitempty"`
	VersionedModel

	// 关联
	FormReply   *FormReply   `gorm:"foreignKey:FormReplyID;references:FormReplyID"                 json:"form_reply,omitempty"`
	Participant *Participant `gorm:"foreignKey:ParticipantObjectID;references:ParticipantObjectID" json:"participant,omitempty"`
	HMSIncident *HMSIncident `gorm:"foreignKey:HMSIncidentID;references:HMSIncidentID"             json:"hms_incident,omitempty"`
}

// TableName 指定表名
func (Case) TableName() string { return "cases" }

// ReviewStatus 将存储的可空布尔转换为审核结论
func (c *Case) ReviewStatus() ReviewStatus {
	switch {
	case c.Status == nil:
		return ReviewPending
	case *c.Status:
		return ReviewApproved
	default:
		return ReviewRejected
	}
}

// SetReviewStatus 写入审核结论
func (c *Case) SetReviewStatus(s ReviewStatus) {
	switch s {
	case ReviewApproved:
		v := true
		c.Status = &v
	case ReviewRejected:
		v := false
		c.Status = &v
	default:
		c.Status = nil
	}
}
