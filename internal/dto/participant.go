package dto

// ── 参会者模块 DTO ──

// ParticipantListRequest 参会者搜索
type ParticipantListRequest struct {
	PaginationRequest
	Query string `form:"q"`
}

// ParticipantResponse 参会者信息
type ParticipantResponse struct {
	ID            string `json:"id"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Tel           string `json:"tel,omitempty"`
	Type          string `json:"type"`
	Region        string `json:"region,omitempty"`
	Organization  string `json:"organization,omitempty"`
	CheckedIn     bool   `json:"checked_in"`
}

// ParticipantDetailResponse 参会者详情（含请假与 HMS 记录）
type ParticipantDetailResponse struct {
	ParticipantResponse
	Gender         string             `json:"gender,omitempty"`
	Family         string             `json:"family,omitempty"`
	FamilyRelation string             `json:"family_relation,omitempty"`
	FamilyTel      string             `json:"family_tel,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	Cases          []CaseResponse     `json:"cases"`
	Incidents      []IncidentResponse `json:"incidents"`
}

// ImportParticipantResponse 批量导入结果
type ImportParticipantResponse struct {
	Total   int                      `json:"total"`
	Success int                      `json:"success"`
	Failed  int                      `json:"failed"`
	Errors  []ImportParticipantError `json:"errors,omitempty"`
}

// ImportParticipantError 单行导入失败原因
type ImportParticipantError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
