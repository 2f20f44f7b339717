package grid

import "errors"

// 服务端返回的错误分类，Persistence 的实现需要用 %w 包装这些错误
var (
	ErrConflict     = errors.New("assignment conflict")
	ErrNotFound     = errors.New("assignment not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrTransport    = errors.New("transport failure")
)

// 本地前置条件检查失败时返回的错误
var (
	ErrUnknownTask   = errors.New("unknown task")
	ErrUnknownStaff  = errors.New("unknown staff member")
	ErrInvalidDay    = errors.New("invalid day")
	ErrNoAssignment  = errors.New("no such assignment")
	ErrUnconfirmed   = errors.New("assignment is not saved yet")
	ErrWrongSchedule = errors.New("schedule is not open in this session")
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
	ErrClosed        = errors.New("session closed")
)
