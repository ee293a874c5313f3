package model

// Capability 权限标识
type Capability string

const (
	CapCaseRead         Capability = "case:read"
	CapCaseWrite        Capability = "case:write"
	CapCaseDelete       Capability = "case:delete"
	CapHSERead          Capability = "hse:read"
	CapHSEWrite         Capability = "hse:write"
	CapHSEDelete        Capability = "hse:delete"
	CapParticipantRead  Capability = "participant:read"
	CapParticipantWrite Capability = "participant:write"
	CapUsersWrite       Capability = "users:write"
	CapAdminView        Capability = "admin:view"
)

// 预置角色名
const (
	RoleAdmin      = "ADMIN"
	RoleKonkom     = "KONKOM"
	RoleSek        = "SEK"
	RoleSekLedelse = "SEK_LEDELSE"
)
