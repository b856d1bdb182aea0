package recurring

import (
	"time"

	"github.com/taskflow/server/internal/biz/period"
)

// DueResult 到期判定结果
type DueResult struct {
	Due bool
	// Target 下一个匹配调度的日期；搜索窗口内没有匹配时为零值
	Target time.Time
	// Base today + create_offset_days
	Base       time.Time
	GatePassed bool
	Reason     string
}

const (
	ReasonDue          = "due"
	ReasonNotScheduled = "target_not_today"
	ReasonNoTarget     = "no_target_in_horizon"
	ReasonTimeGate     = "time_gate_not_passed"
	ReasonForced       = "forced"
)

// NextTarget 从 from 开始在调度的搜索窗口内找第一个匹配日期
func NextTarget(s ScheduleParams, from time.Time) (time.Time, bool) {
	from = period.DateOf(from)
	end := s.Horizon(from)
	for d := from; !d.After(end); d = d.AddDate(0, 0, 1) {
		if s.Matches(d) {
			return d, true
		}
	}
	return time.Time{}, false
}

// GatePassed 时间门槛只对真实的今天生效：补跑过去的日期视为已过，未来日期视为未到
func GatePassed(gate *TimeOfDay, now, today time.Time) bool {
	if gate == nil {
		return true
	}
	realToday := period.DateOf(now)
	switch {
	case today.Before(realToday):
		return true
	case today.After(realToday):
		return false
	}
	return gate.Passed(now)
}

// DueCheck today 为生效日期，now 为调度时区下的当前时刻。
// 模板在 today == target - create_offset_days 时到期
func DueCheck(s ScheduleParams, today, now time.Time, createOffsetDays int, ignoreTimeGate bool) DueResult {
	today = period.DateOf(today)
	base := today.AddDate(0, 0, createOffsetDays)
	res := DueResult{Base: base}

	target, ok := NextTarget(s, base)
	if !ok {
		res.Reason = ReasonNoTarget
		return res
	}
	res.Target = target
	if !target.Equal(base) {
		res.Reason = ReasonNotScheduled
		return res
	}

	res.GatePassed = ignoreTimeGate || GatePassed(s.Gate(), now, today)
	if !res.GatePassed {
		res.Reason = ReasonTimeGate
		return res
	}
	res.Due = true
	res.Reason = ReasonDue
	return res
}

// DueDate 任务截止日期：目标日期加 due_offset_days
func (r DueResult) DueDate(dueOffsetDays int) time.Time {
	target := r.Target
	if target.IsZero() {
		target = r.Base
	}
	return target.AddDate(0, 0, dueOffsetDays)
}
