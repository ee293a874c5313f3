package model

import "time"

// CaseStatus 案件的派生状态，每次读取时由存储字段与当前时间计算
type CaseStatus string

const (
	CaseStatusPending   CaseStatus = "PENDING"
	CaseStatusRejected  CaseStatus = "REJECTED"
	CaseStatusScheduled CaseStatus = "SCHEDULED"
	CaseStatusActive    CaseStatus = "ACTIVE"
	CaseStatusExpired   CaseStatus = "EXPIRED"
	CaseStatusSwap      CaseStatus = "SWAP"
	CaseStatusError     CaseStatus = "ERROR"
)

// AllCaseStatuses 全部派生状态
var AllCaseStatuses = []CaseStatus{
	CaseStatusPending,
	CaseStatusRejected,
	CaseStatusScheduled,
	CaseStatusActive,
	CaseStatusExpired,
	CaseStatusSwap,
	CaseStatusError,
}

var caseStatusLabels = map[CaseStatus]string{
	CaseStatusPending:   "Venter på behandling",
	CaseStatusRejected:  "Avvist permisjon",
	CaseStatusScheduled: "Godkjent permisjon",
	CaseStatusActive:    "Aktiv permisjon",
	CaseStatusExpired:   "Utgått permisjon",
	CaseStatusSwap:      "Bytt skiltnummer",
	CaseStatusError:     "En feil har oppstått",
}

// Label 面向参会者与管理员的展示文案（挪威语）
func (s CaseStatus) Label() string {
	return caseStatusLabels[s]
}

// DeriveStatus 计算案件当前状态，按顺序取第一个命中的规则：
//  1. 表单缺失、时间窗不完整或 to < from → ERROR
//  2. 未审核 → PENDING
//  3. 已拒绝 → REJECTED
//  4. 已批准：to < now → EXPIRED；from > now → SCHEDULED；
//     有观察员且未换牌 → SWAP；否则 ACTIVE
func DeriveStatus(c *Case, now time.Time) CaseStatus {
	if c == nil || c.FormReply == nil || !c.FormReply.WindowValid() {
		return CaseStatusError
	}

	switch c.ReviewStatus() {
	case ReviewPending:
		return CaseStatusPending
	case ReviewRejected:
		return CaseStatusRejected
	}

	f := c.FormReply
	switch {
	case f.To.Before(now):
		return CaseStatusExpired
	case f.From.After(now):
		return CaseStatusScheduled
	case f.HasObserver && !c.IDSwapped:
		return CaseStatusSwap
	default:
		return CaseStatusActive
	}
}
