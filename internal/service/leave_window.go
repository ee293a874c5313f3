package service

import (
	"strconv"
	"strings"
	"time"

	pkgerrors "elevtinget/backend/pkg/errors"
)

// notReturningDay 选择"不再返回"时结束时间固定为首日后第 6 天零点
const notReturningDay = 6

// ErrStartDateNotConfigured 会议开始日期未配置
var ErrStartDateNotConfigured = pkgerrors.Configuration("Systemfeil: Startdato ikke konfigurert.")

// DaySelection 申请表中按"第几天 + 时刻"选择的请假时间
type DaySelection struct {
	FromDay      int
	FromTime     string
	ToDay        int
	ToTime       string
	NotReturning bool
}

// ParseClock 解析 HH:MM（24 小时制）
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return 0, 0, pkgerrors.Validation("时间格式应为 HH:MM: %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, pkgerrors.Validation("小时超出范围: %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, pkgerrors.Validation("分钟超出范围: %q", s)
	}
	return hour, minute, nil
}

// ResolveLeaveWindow 将日序号与时刻换算为绝对时间
// start 为会议首日（其时区即会议时区），maxDay 为允许的最大日序号。
// 不校验 to >= from，由调用方处理。
func ResolveLeaveWindow(start time.Time, sel DaySelection, maxDay int) (from, to time.Time, err error) {
	if sel.FromDay < 0 || sel.FromDay > maxDay {
		return time.Time{}, time.Time{}, pkgerrors.Validation("from_day 超出范围 [0, %d]: %d", maxDay, sel.FromDay)
	}
	fh, fm, err := ParseClock(sel.FromTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from = dayAt(start, sel.FromDay, fh, fm)

	if sel.NotReturning {
		return from, dayAt(start, notReturningDay, 0, 0), nil
	}

	if sel.ToDay < 0 || sel.ToDay > maxDay {
		return time.Time{}, time.Time{}, pkgerrors.Validation("to_day 超出范围 [0, %d]: %d", maxDay, sel.ToDay)
	}
	th, tm, err := ParseClock(sel.ToTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, dayAt(start, sel.ToDay, th, tm), nil
}

// dayAt 首日后第 day 天的 hour:minute（按日历日计算，跨夏令时保持墙上时间）
func dayAt(start time.Time, day, hour, minute int) time.Time {
	y, m, d := start.Date()
	return time.Date(y, m, d+day, hour, minute, 0, 0, start.Location())
}
