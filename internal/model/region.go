package model

// Region 地区表，对应 regions
type Region struct {
	RegionID string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"region_id"`
	Name     string `gorm:"type:varchar(100);not null;uniqueIndex"         json:"name"`
	Internal bool   `gorm:"not null;default:false"                         json:"internal"`
	BaseModel
}

// TableName 指定表名
func (Region) TableName() string { return "regions" }

// Organization 组织表，对应 organizations
type Organization struct {
	OrganizationID string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"organization_id"`
	Name           string  `gorm:"type:varchar(200);not null;uniqueIndex"         json:"name"`
	RegionID       *string `gorm:"type:uuid"                                      json:"region_id,omitempty"`
	CanVote        bool    `gorm:"not null;default:true"                          json:"can_vote"`
	BaseModel

	Region *Region `gorm:"foreignKey:RegionID;references:RegionID" json:"region,omitempty"`
}

// TableName 指定表名
func (Organization) TableName() string { return "organizations" }
