package recurring

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/taskflow/server/internal/biz/period"
	"github.com/taskflow/server/internal/domain/errs"
)

// LastDay bymonthday 中的 -1 表示月末
const LastDay = -1

// TimeOfDay 当天的时间门槛 "HH:MM"
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (*TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("time must be HH:MM, got %q", s)
	}
	return &TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Passed now 的时分是否已到达门槛
func (t TimeOfDay) Passed(now time.Time) bool {
	return now.Hour()*60+now.Minute() >= t.Hour*60+t.Minute
}

// ScheduleParams 按调度类型区分的参数，只能由 ParseSchedule 构造
type ScheduleParams interface {
	Kind() period.Kind
	Gate() *TimeOfDay
	// Matches date 为 UTC 零点的日历日期
	Matches(date time.Time) bool
	// Horizon 从 from 开始向后搜索目标日期的最后一天
	Horizon(from time.Time) time.Time
}

// WeeklySchedule Weekdays 0=周一 ... 6=周日
type WeeklySchedule struct {
	Weekdays []int
	TimeGate *TimeOfDay
}

func (s WeeklySchedule) Kind() period.Kind { return period.Weekly }
func (s WeeklySchedule) Gate() *TimeOfDay  { return s.TimeGate }

func (s WeeklySchedule) Matches(date time.Time) bool {
	return lo.Contains(s.Weekdays, isoWeekday(date))
}

func (s WeeklySchedule) Horizon(from time.Time) time.Time {
	return from.AddDate(0, 0, 6)
}

type MonthlySchedule struct {
	MonthDays []int
	TimeGate  *TimeOfDay
}

func (s MonthlySchedule) Kind() period.Kind { return period.Monthly }
func (s MonthlySchedule) Gate() *TimeOfDay  { return s.TimeGate }

func (s MonthlySchedule) Matches(date time.Time) bool {
	return matchesMonthDay(s.MonthDays, date)
}

// Horizon 本月和下个月
func (s MonthlySchedule) Horizon(from time.Time) time.Time {
	first := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, 2, -1)
}

type YearlySchedule struct {
	Months    []int
	MonthDays []int
	TimeGate  *TimeOfDay
}

func (s YearlySchedule) Kind() period.Kind { return period.Yearly }
func (s YearlySchedule) Gate() *TimeOfDay  { return s.TimeGate }

func (s YearlySchedule) Matches(date time.Time) bool {
	return lo.Contains(s.Months, int(date.Month())) && matchesMonthDay(s.MonthDays, date)
}

// Horizon 今年和明年
func (s YearlySchedule) Horizon(from time.Time) time.Time {
	return time.Date(from.Year()+1, time.December, 31, 0, 0, 0, 0, time.UTC)
}

func isoWeekday(date time.Time) int {
	return (int(date.Weekday()) + 6) % 7
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// matchesMonthDay 超出当月天数的日期按月末处理
func matchesMonthDay(days []int, date time.Time) bool {
	last := daysIn(date.Year(), date.Month())
	for _, d := range days {
		if d == LastDay || d > last {
			if date.Day() == last {
				return true
			}
			continue
		}
		if d == date.Day() {
			return true
		}
	}
	return false
}

// rawSchedule 模板表里存储的 JSON 形状
type rawSchedule struct {
	ByWeekday  []any  `json:"byweekday,omitempty"`
	ByMonthDay []any  `json:"bymonthday,omitempty"`
	ByMonth    []any  `json:"bymonth,omitempty"`
	Time       string `json:"time,omitempty"`
}

var weekdayNames = map[string]int{
	"mo": 0, "mon": 0, "monday": 0,
	"tu": 1, "tue": 1, "tuesday": 1,
	"we": 2, "wed": 2, "wednesday": 2,
	"th": 3, "thu": 3, "thursday": 3,
	"fr": 4, "fri": 4, "friday": 4,
	"sa": 5, "sat": 5, "saturday": 5,
	"su": 6, "sun": 6, "sunday": 6,
}

// ParseSchedule 在边界处一次性校验调度参数
func ParseSchedule(kind period.Kind, raw json.RawMessage) (ScheduleParams, error) {
	var rs rawSchedule
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &rs); err != nil {
			return nil, invalidSchedule(kind, "schedule_params is not a JSON object").WithCause(err)
		}
	}

	var gate *TimeOfDay
	if rs.Time != "" {
		g, err := ParseTimeOfDay(rs.Time)
		if err != nil {
			return nil, invalidSchedule(kind, err.Error())
		}
		gate = g
	}

	switch kind {
	case period.Weekly:
		days, err := parseWeekdays(rs.ByWeekday)
		if err != nil {
			return nil, invalidSchedule(kind, err.Error())
		}
		if len(days) == 0 {
			return nil, invalidSchedule(kind, "byweekday must not be empty")
		}
		return WeeklySchedule{Weekdays: days, TimeGate: gate}, nil
	case period.Monthly:
		days, err := parseMonthDays(rs.ByMonthDay)
		if err != nil {
			return nil, invalidSchedule(kind, err.Error())
		}
		if len(days) == 0 {
			return nil, invalidSchedule(kind, "bymonthday must not be empty")
		}
		return MonthlySchedule{MonthDays: days, TimeGate: gate}, nil
	case period.Yearly:
		months, err := parseInts(rs.ByMonth, 1, 12, "bymonth")
		if err != nil {
			return nil, invalidSchedule(kind, err.Error())
		}
		if len(months) == 0 {
			return nil, invalidSchedule(kind, "bymonth must not be empty")
		}
		days, err := parseMonthDays(rs.ByMonthDay)
		if err != nil {
			return nil, invalidSchedule(kind, err.Error())
		}
		if len(days) == 0 {
			days = []int{1}
		}
		return YearlySchedule{Months: months, MonthDays: days, TimeGate: gate}, nil
	}
	return nil, invalidSchedule(kind, "unknown schedule type")
}

func invalidSchedule(kind period.Kind, reason string) *errs.Error {
	return errs.Validation(errs.CodeTemplateInvalid, "invalid schedule parameters").
		WithReason(reason).
		WithDetail("schedule_type", kind.String())
}

func parseWeekdays(items []any) ([]int, error) {
	out := make([]int, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			if d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]; ok {
				out = append(out, d)
				continue
			}
		}
		d, err := toInt(item)
		if err != nil || d < 0 || d > 6 {
			return nil, fmt.Errorf("byweekday value %v is not a weekday (0=Mon..6=Sun)", item)
		}
		out = append(out, d)
	}
	return normalize(out), nil
}

func parseMonthDays(items []any) ([]int, error) {
	out := make([]int, 0, len(items))
	for _, item := range items {
		d, err := toInt(item)
		if err != nil || d == 0 || d < LastDay || d > 31 {
			return nil, fmt.Errorf("bymonthday value %v must be 1..31 or -1", item)
		}
		out = append(out, d)
	}
	return normalize(out), nil
}

func parseInts(items []any, lower, upper int, field string) ([]int, error) {
	out := make([]int, 0, len(items))
	for _, item := range items {
		v, err := toInt(item)
		if err != nil || v < lower || v > upper {
			return nil, fmt.Errorf("%s value %v must be %d..%d", field, item, lower, upper)
		}
		out = append(out, v)
	}
	return normalize(out), nil
}

// toInt JSON 数字解码为 float64，带小数部分的值直接拒绝
func toInt(item any) (int, error) {
	if f, ok := item.(float64); ok && f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return cast.ToIntE(item)
}

func normalize(v []int) []int {
	v = lo.Uniq(v)
	slices.Sort(v)
	return v
}
