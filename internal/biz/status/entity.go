package status

// Code 任务状态码
type Code string

const (
	Inbox           Code = "INBOX"
	InProgress      Code = "IN_PROGRESS"
	WaitingReport   Code = "WAITING_REPORT"
	WaitingApproval Code = "WAITING_APPROVAL"
	Done            Code = "DONE"
	Archived        Code = "ARCHIVED"
)

func (c Code) String() string {
	return string(c)
}

// Entry 状态字典条目
type Entry struct {
	ID       uint64
	Code     Code
	Label    string
	Terminal bool
}

// Defaults 迁移时写入 task_statuses 的固定字典
func Defaults() []Entry {
	return []Entry{
		{ID: 1, Code: Inbox, Label: "Inbox"},
		{ID: 2, Code: InProgress, Label: "In progress"},
		{ID: 3, Code: WaitingReport, Label: "Waiting for report"},
		{ID: 4, Code: WaitingApproval, Label: "Waiting for approval"},
		{ID: 5, Code: Done, Label: "Done", Terminal: true},
		{ID: 6, Code: Archived, Label: "Archived", Terminal: true},
	}
}

// Required 启动时必须存在的状态码
func Required() []Code {
	return []Code{Inbox, InProgress, WaitingReport, WaitingApproval, Done, Archived}
}
