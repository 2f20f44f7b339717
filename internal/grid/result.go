package grid

import (
	"context"
	"errors"
)

type Op string

const (
	OpCreate Op = "create"
	OpRemove Op = "remove"
	OpMove   Op = "move"
	OpSwap   Op = "swap"
	OpClear  Op = "clear"
	OpUndo   Op = "undo"
	OpRedo   Op = "redo"
)

type Status int

const (
	// StatusOK 表示服务端已确认
	StatusOK Status = iota
	// StatusDiscarded 表示服务端确认了，但本地在等待期间已经删除了这条记录，结果被丢弃
	StatusDiscarded
	StatusConflict
	StatusNotFound
	StatusUnauthorized
	StatusTransportError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusDiscarded:
		return "discarded"
	case StatusConflict:
		return "conflict"
	case StatusNotFound:
		return "not_found"
	case StatusUnauthorized:
		return "unauthorized"
	default:
		return "transport_error"
	}
}

// Failed 表示操作被服务端拒绝，本地已回滚或重新加载
func (s Status) Failed() bool {
	return s != StatusOK && s != StatusDiscarded
}

// Classify 把 Persistence 返回的错误归类
func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrConflict):
		return StatusConflict
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return StatusUnauthorized
	default:
		return StatusTransportError
	}
}

// Result 是一次异步操作最终的结果
type Result struct {
	Op     Op
	Status Status
	Key    SlotKey
	Record *Record
	// Affected 是批量操作影响的记录数
	Affected int64
	// Reloaded 表示失败后无法回滚，本地已按服务端的数据重新加载
	Reloaded bool
	Err      error
}

// Pending 代表一个已经在本地生效、正在等待服务端确认的操作
type Pending struct {
	done   chan struct{}
	result Result
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func completed(res Result) *Pending {
	p := newPending()
	p.resolve(res)
	return p
}

func (p *Pending) resolve(res Result) {
	p.result = res
	close(p.done)
}

func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait 阻塞直到服务端确认或拒绝，或者 ctx 结束
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result 阻塞直到操作结束
func (p *Pending) Result() Result {
	<-p.done
	return p.result
}
