package event

// Type 工作流事件类型
type Type string

const (
	TypeTaskCreated     Type = "TASK_CREATED"
	TypeReportSubmitted Type = "REPORT_SUBMITTED"
	TypeApproved        Type = "APPROVED"
	TypeRejected        Type = "REJECTED"
)

func (t Type) String() string {
	return string(t)
}

// IsOutcome 审批结果事件，报告作者总是收到
func (t Type) IsOutcome() bool {
	return t == TypeApproved || t == TypeRejected
}

// ChannelSystem 内置站内通道，写入即视为已送达
const ChannelSystem = "system"

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "SENT"
	DeliveryPending DeliveryStatus = "PENDING"
)
