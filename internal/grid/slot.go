package grid

import (
	"strconv"

	"github.com/google/uuid"
)

// Day 是星期的名称，例如 "Monday"
type Day string

// Days 列出所有合法的星期名称
var Days = []Day{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

func (d Day) Valid() bool {
	for _, day := range Days {
		if d == day {
			return true
		}
	}
	return false
}

// SlotKey 是排班表中一个格子的地址：(星期, 任务名称)
type SlotKey struct {
	Day  Day
	Slot string
}

func (k SlotKey) String() string {
	return string(k.Day) + "-" + k.Slot
}

// ID 是排班记录的标识，要么是服务端分配的持久 ID，要么是本地生成的临时 ID。
// 临时 ID 的记录还没有被服务端确认，不能拿去做更新或删除请求。
type ID struct {
	durable   int64
	ephemeral string
}

// Durable 包装服务端分配的 ID
func Durable(id int64) ID {
	return ID{durable: id}
}

// NewEphemeral 生成一个新的临时 ID
func NewEphemeral() ID {
	return ID{ephemeral: "tmp-" + uuid.NewString()}
}

func (id ID) IsEphemeral() bool {
	return id.ephemeral != ""
}

func (id ID) IsZero() bool {
	return id.durable == 0 && id.ephemeral == ""
}

// DurableValue 返回服务端 ID，临时 ID 返回 false
func (id ID) DurableValue() (int64, bool) {
	if id.IsEphemeral() || id.durable == 0 {
		return 0, false
	}
	return id.durable, true
}

func (id ID) String() string {
	if id.IsEphemeral() {
		return id.ephemeral
	}
	return strconv.FormatInt(id.durable, 10)
}

type TaskInfo struct {
	ID    int64
	Name  string
	Icon  string
	Color string
}

type StaffInfo struct {
	ID    int64
	Name  string
	Color string
}

// Record 表示 "某员工在某排班表的某天负责某任务"。
// Slot 与 Task.Name 相同，Task 和 Staff 是用于渲染的冗余快照。
type Record struct {
	ID         ID
	ScheduleID int64
	TaskID     int64
	StaffID    int64
	Day        Day
	Slot       string
	Notes      string
	Task       TaskInfo
	Staff      StaffInfo
}

func (r Record) Key() SlotKey {
	return SlotKey{Day: r.Day, Slot: r.Slot}
}

// Confirmed 表示记录已经被服务端接受
func (r Record) Confirmed() bool {
	return !r.ID.IsEphemeral()
}

func (r Record) placement() Placement {
	return Placement{ScheduleID: r.ScheduleID, StaffID: r.StaffID, Day: r.Day, Slot: r.Slot}
}

// relocate 返回把记录搬到 task 对应格子后的副本，身份（ID、员工、备注）不变
func (r Record) relocate(day Day, task TaskInfo) Record {
	r.Day = day
	r.Slot = task.Name
	r.TaskID = task.ID
	r.Task = task
	return r
}
