package model

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultConferenceSpan 未配置结束日期时允许的最大日序号（共 7 天）
const DefaultConferenceSpan = 6

// EventConfig 会议配置表，对应 event_config（单行强类型）
type EventConfig struct {
	Singleton   bool            `gorm:"primaryKey;default:true" json:"-"`
	StartDate   *datatypes.Date `gorm:"type:date"               json:"start_date"`
	EndDate     *datatypes.Date `gorm:"type:date"               json:"end_date"`
	MailEnabled bool            `gorm:"not null;default:true"   json:"mail_enabled"`
	BaseModel
}

// TableName 指定表名
func (EventConfig) TableName() string { return "event_config" }

// StartIn 返回会议首日零点（会议时区），未配置时 ok=false
func (c *EventConfig) StartIn(loc *time.Location) (time.Time, bool) {
	if c == nil || c.StartDate == nil {
		return time.Time{}, false
	}
	return dateIn(time.Time(*c.StartDate), loc), true
}

// EndIn 返回会议最后一天零点（会议时区），未配置时 ok=false
func (c *EventConfig) EndIn(loc *time.Location) (time.Time, bool) {
	if c == nil || c.EndDate == nil {
		return time.Time{}, false
	}
	return dateIn(time.Time(*c.EndDate), loc), true
}

// MaxDayIndex 允许的最大日序号：结束日期减开始日期的天数，未配置或无效时为 6
func (c *EventConfig) MaxDayIndex() int {
	start, ok := c.StartIn(time.UTC)
	if !ok {
		return DefaultConferenceSpan
	}
	end, ok := c.EndIn(time.UTC)
	if !ok || end.Before(start) {
		return DefaultConferenceSpan
	}
	return int(end.Sub(start).Hours() / 24)
}

// dateIn 取日期部分，在目标时区重建零点
func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
