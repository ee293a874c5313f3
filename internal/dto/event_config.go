package dto

// ── 会议配置 DTO ──

// UpdateEventConfigRequest 更新会议配置（字段为空表示不修改）
// 日期格式 YYYY-MM-DD，传空串表示清除
type UpdateEventConfigRequest struct {
	StartDate   *string `json:"start_date"`
	EndDate     *string `json:"end_date"`
	MailEnabled *bool   `json:"mail_enabled"`
}

// EventConfigResponse 会议配置
type EventConfigResponse struct {
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	MailEnabled bool   `json:"mail_enabled"`
	MaxDayIndex int    `json:"max_day_index"`
	UpdatedAt   string `json:"updated_at"`
}

// PublicEventResponse 公开的会议日期（申请表单使用）
type PublicEventResponse struct {
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	MaxDayIndex int    `json:"max_day_index"`
}
