package period

import (
	"fmt"
	"time"
)

// Kind 周期类型，与模板的调度类型一一对应
type Kind string

const (
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
	Yearly  Kind = "yearly"
)

func (k Kind) Valid() bool {
	switch k {
	case Weekly, Monthly, Yearly:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Period 报告周期，(kind, start, end) 唯一，只增不删
type Period struct {
	ID        uint64
	CreatedAt time.Time
	Kind      Kind
	Start     time.Time
	End       time.Time
	Label     string
}

// DateOf 取 t 所在时区的日历日期，统一表示为 UTC 零点
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PreviousBounds 任务总是为 today 之前的那个周期生成
func PreviousBounds(kind Kind, today time.Time) (start, end time.Time, err error) {
	today = DateOf(today)
	switch kind {
	case Weekly:
		return today.AddDate(0, 0, -7), today.AddDate(0, 0, -1), nil
	case Monthly:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -1, 0), first.AddDate(0, 0, -1), nil
	case Yearly:
		y := today.Year() - 1
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC), time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown period kind %q", kind)
}

// Label 周期的展示名
func Label(kind Kind, start, end time.Time) string {
	switch kind {
	case Monthly:
		return fmt.Sprintf("%s %d", start.Month(), start.Year())
	case Yearly:
		return fmt.Sprintf("%d", start.Year())
	default:
		return start.Format("02.01.2006") + "-" + end.Format("02.01.2006")
	}
}
