package grid

import (
	"context"
	"strings"
)

// Persistence 是排班数据的持久化服务。
// 返回的错误需要包装 ErrConflict、ErrNotFound、ErrUnauthorized 或 ErrTransport 之一，
// 否则一律按 ErrTransport 处理。
type Persistence interface {
	ListAssignments(ctx context.Context, scheduleID int64) ([]Record, error)
	CreateAssignment(ctx context.Context, req CreateRequest) (Record, error)
	UpdateAssignment(ctx context.Context, id int64, req UpdateRequest) (Record, error)
	DeleteAssignment(ctx context.Context, id int64) error
	ClearAssignments(ctx context.Context, scheduleID int64) (int64, error)
}

type CreateRequest struct {
	ScheduleID int64
	TaskID     int64
	StaffID    int64
	Day        Day
	Slot       string
	Notes      string
}

type UpdateRequest struct {
	TaskID  int64
	StaffID int64
	Day     Day
	Slot    string
	Notes   string
}

func updateRequestFor(r Record) UpdateRequest {
	return UpdateRequest{TaskID: r.TaskID, StaffID: r.StaffID, Day: r.Day, Slot: r.Slot, Notes: r.Notes}
}

func createRequestFor(r Record) CreateRequest {
	return CreateRequest{ScheduleID: r.ScheduleID, TaskID: r.TaskID, StaffID: r.StaffID, Day: r.Day, Slot: r.Slot, Notes: r.Notes}
}

// Catalog 是会话可用的任务和员工，用于生成记录中的展示信息
type Catalog struct {
	tasks       map[int64]TaskInfo
	tasksByName map[string]TaskInfo
	staff       map[int64]StaffInfo
	taskOrder   []TaskInfo
	staffOrder  []StaffInfo
}

func NewCatalog(tasks []TaskInfo, staff []StaffInfo) *Catalog {
	c := &Catalog{
		tasks:       make(map[int64]TaskInfo, len(tasks)),
		tasksByName: make(map[string]TaskInfo, len(tasks)),
		staff:       make(map[int64]StaffInfo, len(staff)),
		taskOrder:   append([]TaskInfo(nil), tasks...),
		staffOrder:  append([]StaffInfo(nil), staff...),
	}
	for _, t := range tasks {
		c.tasks[t.ID] = t
		c.tasksByName[t.Name] = t
	}
	for _, s := range staff {
		c.staff[s.ID] = s
	}
	return c
}

func (c *Catalog) Task(id int64) (TaskInfo, bool) {
	t, ok := c.tasks[id]
	return t, ok
}

func (c *Catalog) TaskByName(name string) (TaskInfo, bool) {
	t, ok := c.tasksByName[name]
	return t, ok
}

func (c *Catalog) Staff(id int64) (StaffInfo, bool) {
	s, ok := c.staff[id]
	return s, ok
}

// StaffByName 按名称查找员工，忽略大小写
func (c *Catalog) StaffByName(name string) (StaffInfo, bool) {
	for _, s := range c.staffOrder {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return StaffInfo{}, false
}

// Tasks 按网格中行的顺序返回所有任务
func (c *Catalog) Tasks() []TaskInfo {
	return append([]TaskInfo(nil), c.taskOrder...)
}

// denormalize 补全服务端记录中缺失的展示信息
func (c *Catalog) denormalize(r Record) Record {
	if r.Task.Name == "" {
		if t, ok := c.tasks[r.TaskID]; ok {
			r.Task = t
		}
	}
	if r.Staff.Name == "" {
		if s, ok := c.staff[r.StaffID]; ok {
			r.Staff = s
		}
	}
	return r
}

// BuildSnapshot 把服务端返回的列表转换成以格子为键的快照。
// 同一格子出现多条记录时（例如另一位用户的交换操作只完成了一半），保留 ID 最大的那条。
func (c *Catalog) BuildSnapshot(records []Record) Snapshot {
	snap := make(Snapshot, len(records))
	for _, r := range records {
		r = c.denormalize(r)
		if existing, ok := snap[r.Key()]; ok {
			ev, _ := existing.ID.DurableValue()
			rv, _ := r.ID.DurableValue()
			if ev > rv {
				continue
			}
		}
		snap[r.Key()] = r
	}
	return snap
}
