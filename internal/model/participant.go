package model

import "time"

// ParticipantType 参会者类型
type ParticipantType string

const (
	ParticipantDelegate ParticipantType = "DELEGATE"
	ParticipantObserver ParticipantType = "OBSERVER"
)

// Valid 是否为已知类型
func (t ParticipantType) Valid() bool {
	return t == ParticipantDelegate || t == ParticipantObserver
}

// Participant 参会者表，对应 participants
// ParticipantID 为胸牌编号（展示用），主键为 ParticipantObjectID
type Participant struct {
	ParticipantObjectID string          `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"participant_object_id"`
	ParticipantID       string          `gorm:"type:varchar(20);not null;index"                json:"participant_id"`
	Name                string          `gorm:"type:varchar(200);not null"                     json:"name"`
	Email               string          `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	Tel                 string          `gorm:"type:varchar(30)"                               json:"tel"`
	Type                ParticipantType `gorm:"type:varchar(20);not null;default:'DELEGATE'"   json:"type"`
	Gender              string          `gorm:"type:varchar(30)"                               json:"gender,omitempty"`
	BirthDate           *time.Time      `gorm:"type:date"                                      json:"birth_date,omitempty"`
	RegionID            *string         `gorm:"type:uuid"                                      json:"region_id,omitempty"`
	OrganizationID      *string         `gorm:"type:uuid"                                      json:"organization_id,omitempty"`
	Family              string          `gorm:"type:varchar(200)"                              json:"family,omitempty"`
	FamilyRelation      string          `gorm:"type:varchar(100)"                              json:"family_relation,omitempty"`
	FamilyTel           string          `gorm:"type:varchar(30)"                               json:"family_tel,omitempty"`
	Notes               string          `gorm:"type:text"                                      json:"notes,omitempty"`
	CheckedIn           bool            `gorm:"not null;default:false"                         json:"checked_in"`
	BaseModel

	Region       *Region       `gorm:"foreignKey:RegionID;references:RegionID"             json:"region,omitempty"`
	Organization *Organization `gorm:"foreignKey:OrganizationID;references:OrganizationID" json:"organization,omitempty"`
}

// TableName 指定表名
func (Participant) TableName() string { return "participants" }

// RegionName 所属地区名称，未关联时为空串
func (p *Participant) RegionName() string {
	if p.Region == nil {
		return ""
	}
	return p.Region.Name
}
