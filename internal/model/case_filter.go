package model

import (
	"strings"
	"time"

	pkgerrors "elevtinget/backend/pkg/errors"
)

// CaseFilter 案件列表过滤条件
type CaseFilter string

const (
	FilterAll           CaseFilter = "ALL"
	FilterPending       CaseFilter = "PENDING"
	FilterApproved      CaseFilter = "APPROVED"
	FilterRejected      CaseFilter = "REJECTED"
	FilterActive        CaseFilter = "ACTIVE"
	FilterScheduled     CaseFilter = "SCHEDULED"
	FilterExpired       CaseFilter = "EXPIRED"
	FilterRequireAction CaseFilter = "REQUIRE_ACTION"
)

// AllCaseFilters 全部过滤条件
var AllCaseFilters = []CaseFilter{
	FilterAll,
	FilterPending,
	FilterApproved,
	FilterRejected,
	FilterActive,
	FilterScheduled,
	FilterExpired,
	FilterRequireAction,
}

// 依赖当前时间的过滤条件与派生状态集合的对应关系
var filterStatuses = map[CaseFilter][]CaseStatus{
	FilterActive:        {CaseStatusActive, CaseStatusSwap},
	FilterScheduled:     {CaseStatusScheduled},
	FilterExpired:       {CaseStatusExpired},
	FilterRequireAction: {CaseStatusSwap},
}

// ParseCaseFilter 解析过滤条件（大小写不敏感），空串视为 ALL
func ParseCaseFilter(token string) (CaseFilter, error) {
	t := CaseFilter(strings.ToUpper(strings.TrimSpace(token)))
	if t == "" {
		return FilterAll, nil
	}
	for _, f := range AllCaseFilters {
		if f == t {
			return f, nil
		}
	}
	return "", pkgerrors.Validation("未知的过滤条件: %s", token)
}

// TimeDependent 结果是否随当前时间变化
func (f CaseFilter) TimeDependent() bool {
	_, ok := filterStatuses[f]
	return ok
}

// Statuses 时间相关过滤条件等价的派生状态集合，其余返回 nil
func (f CaseFilter) Statuses() []CaseStatus {
	return filterStatuses[f]
}

// Matches 判断案件是否满足过滤条件
// 时间窗异常（ERROR）的案件只出现在 ALL 与按审核结论过滤的结果中
func (f CaseFilter) Matches(c *Case, now time.Time) bool {
	switch f {
	case FilterAll:
		return true
	case FilterPending:
		return c.ReviewStatus() == ReviewPending
	case FilterApproved:
		return c.ReviewStatus() == ReviewApproved
	case FilterRejected:
		return c.ReviewStatus() == ReviewRejected
	}

	if c.ReviewStatus() != ReviewApproved || c.FormReply == nil || !c.FormReply.WindowValid() {
		return false
	}
	from, to := *c.FormReply.From, *c.FormReply.To

	switch f {
	case FilterActive:
		return !from.After(now) && !to.Before(now)
	case FilterScheduled:
		return from.After(now)
	case FilterExpired:
		return to.Before(now)
	case FilterRequireAction:
		return c.FormReply.HasObserver && !c.IDSwapped && !from.After(now) && !to.Before(now)
	}
	return false
}
