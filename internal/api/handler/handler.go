package handler

import "elevtinget/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	Application *ApplicationHandler
	Case        *CaseHandler
	HMS         *HMSHandler
	Participant *ParticipantHandler
	EventConfig *EventConfigHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Auth),
		Application: NewApplicationHandler(svc.Case, svc.EventConfig),
		Case:        NewCaseHandler(svc.Case),
		HMS:         NewHMSHandler(svc.HMS),
		Participant: NewParticipantHandler(svc.Participant),
		EventConfig: NewEventConfigHandler(svc.EventConfig),
	}
}
