package errs

import (
	"errors"
	"fmt"
)

// 领域层错误定义

// Kind 错误分类，决定HTTP状态码和调用方的处理方式
type Kind string

const (
	KindForbidden     Kind = "forbidden"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindValidation    Kind = "validation"
	KindConfiguration Kind = "configuration"
)

// 稳定的机器可读错误码，调用方只能根据 code 分支
const (
	CodeTaskNotFound           = "TASK_NOT_FOUND"
	CodeTaskConflictStatus     = "TASK_CONFLICT_STATUS"
	CodeTaskConflictPatch      = "TASK_CONFLICT_PATCH_STATUS"
	CodeTaskConflictNoReport   = "TASK_CONFLICT_NO_REPORT"
	CodeTaskConflictDuplicate  = "TASK_CONFLICT_DUPLICATE_ACTIVE"
	CodeTaskForbiddenExecutor  = "TASK_FORBIDDEN_EXECUTOR_ROLE"
	CodeTaskForbiddenInitiator = "TASK_FORBIDDEN_NOT_INITIATOR"
	CodeTaskForbiddenSelfApp   = "TASK_FORBIDDEN_SELF_APPROVAL"
	CodeTaskForbiddenApprover  = "TASK_FORBIDDEN_APPROVER"
	CodeTaskReportLinkRequired = "TASK_REPORT_LINK_REQUIRED"
	CodeTaskInvalidInput       = "TASK_INVALID_INPUT"
	CodeUserNotFound           = "USER_NOT_FOUND"
	CodeStatusNotFound         = "STATUS_NOT_FOUND"
	CodeTemplateNotFound       = "TEMPLATE_NOT_FOUND"
	CodeTemplateInvalid        = "TEMPLATE_INVALID_SCHEDULE"
	CodeTemplateMissingField   = "TEMPLATE_MISSING_FIELD"
	CodeRunLocked              = "RECURRING_RUN_LOCKED"
)

var (
	ErrDuplicate = errors.New("duplicate record")
	ErrNotLeader = errors.New("run lock is held by another instance")
)

// Error 业务错误，携带 kind/code 以及渲染"为什么"所需的上下文
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Reason  string
	Hint    string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.Message + ": " + e.cause.Error()
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is 同 kind 同 code 视为相等，便于 errors.Is 比较哨兵
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

func (e *Error) WithReason(reason string) *Error {
	e.Reason = reason
	return e
}

func (e *Error) WithHint(hint string) *Error {
	e.Hint = hint
	return e
}

func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Forbidden(code, message string) *Error {
	return New(KindForbidden, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Validation(code, message string) *Error {
	return New(KindValidation, code, message)
}

func Configuration(code, message string) *Error {
	return New(KindConfiguration, code, message)
}

// As 取出错误链上的 *Error
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf 非业务错误返回空串
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Wrapf 追加上下文，errors.As 仍能取出原始业务错误
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
