package grid

import "fmt"

// Placement 是冲突检查关心的四元组
type Placement struct {
	ScheduleID int64
	StaffID    int64
	Day        Day
	Slot       string
}

type ConflictError struct {
	Placement Placement
	Existing  ID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("staff %d is already assigned to %s-%s", e.Placement.StaffID, e.Placement.Day, e.Placement.Slot)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// CheckConflict 检查把 p 放进 cells 是否会让同一员工在同一排班表的同一天同一时段出现两次。
// ignore 中的记录不参与比较（例如移动或交换时正在被移动的记录本身）。
// 这只是客户端的快速检查，最终以服务端的唯一约束为准。
func CheckConflict(cells Snapshot, p Placement, ignore ...ID) error {
	for _, r := range cells {
		if isIgnored(r.ID, ignore) {
			continue
		}
		if r.ScheduleID == p.ScheduleID && r.StaffID == p.StaffID && r.Day == p.Day && r.Slot == p.Slot {
			return &ConflictError{Placement: p, Existing: r.ID}
		}
	}
	return nil
}

func isIgnored(id ID, ignore []ID) bool {
	for _, i := range ignore {
		if i == id {
			return true
		}
	}
	return false
}
