package repository

import (
	"github.com/mahuti/tasks/backend/internal/domain"
)

// 排班记录总是带上任务和员工的展示信息一起返回
const assignmentSelect = `
	SELECT
		a.id,
		a.schedule_id,
		a.task_id,
		a.staff_id,
		a.day_of_week,
		a.time_slot,
		a.notes,
		a.created_at,
		t.name,
		t.icon,
		t.color,
		s.name,
		s.color
`

func assignmentDst(a *domain.Assignment) []any {
	return []any{
		&a.ID,
		&a.ScheduleID,
		&a.TaskID,
		&a.StaffID,
		&a.DayOfWeek,
		&a.TimeSlot,
		&a.Notes,
		&a.CreatedAt,
		&a.Task.Name,
		&a.Task.Icon,
		&a.Task.Color,
		&a.Staff.Name,
		&a.Staff.Color,
	}
}

func fillAssignmentRefs(a *domain.Assignment) {
	a.Task.ID = a.TaskID
	a.Staff.ID = a.StaffID
}

func (r *Repository) GetAssignmentsBySchedule(scheduleID int64) ([]*domain.Assignment, error) {
	query := assignmentSelect + `
		FROM schedule_assignments a
		JOIN tasks t ON t.id = a.task_id
		JOIN staff s ON s.id = a.staff_id
		WHERE a.schedule_id = $1
		ORDER BY a.day_of_week, t.sort_order, a.id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assignments := make([]*domain.Assignment, 0)
	for rows.Next() {
		a := &domain.Assignment{}
		if err := rows.Scan(assignmentDst(a)...); err != nil {
			return nil, err
		}
		fillAssignmentRefs(a)
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return assignments, nil
}

func (r *Repository) GetAssignmentByID(id int64) (*domain.Assignment, error) {
	query := assignmentSelect + `
		FROM schedule_assignments a
		JOIN tasks t ON t.id = a.task_id
		JOIN staff s ON s.id = a.staff_id
		WHERE a.id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	a := &domain.Assignment{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(assignmentDst(a)...); err != nil {
		return nil, err
	}
	fillAssignmentRefs(a)

	return a, nil
}

// CreateAssignment 在同一事务中先删除格子里其他员工的记录再插入，一个格子只显示一个人。
// 同一员工重复安排在同一格子时违反 schedule_assignments_staff_slot_key 约束。
// 返回被替换掉的记录数量。
func (r *Repository) CreateAssignment(a *domain.Assignment) (int64, error) {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		DELETE FROM schedule_assignments
		WHERE schedule_id = $1 AND day_of_week = $2 AND time_slot = $3 AND staff_id <> $4
	`
	result, err := tx.ExecContext(ctx, query, a.ScheduleID, a.DayOfWeek, a.TimeSlot, a.StaffID)
	if err != nil {
		return 0, err
	}
	replaced, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	query = `
		WITH a AS (
			INSERT INTO schedule_assignments (schedule_id, task_id, staff_id, day_of_week, time_slot, notes)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING *
		)
	` + assignmentSelect + `
		FROM a
		JOIN tasks t ON t.id = a.task_id
		JOIN staff s ON s.id = a.staff_id
	`
	args := []any{a.ScheduleID, a.TaskID, a.StaffID, a.DayOfWeek, a.TimeSlot, a.Notes}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(assignmentDst(a)...); err != nil {
		return 0, err
	}
	fillAssignmentRefs(a)

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return replaced, nil
}

// UpdateAssignment 修改记录的位置、任务、员工或备注，记录不存在时返回 sql.ErrNoRows
func (r *Repository) UpdateAssignment(a *domain.Assignment) error {
	query := `
		WITH a AS (
			UPDATE schedule_assignments
			SET
				task_id = $1,
				staff_id = $2,
				day_of_week = $3,
				time_slot = $4,
				notes = $5
			WHERE id = $6
			RETURNING *
		)
	` + assignmentSelect + `
		FROM a
		JOIN tasks t ON t.id = a.task_id
		JOIN staff s ON s.id = a.staff_id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{a.TaskID, a.StaffID, a.DayOfWeek, a.TimeSlot, a.Notes, a.ID}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(assignmentDst(a)...); err != nil {
		return err
	}
	fillAssignmentRefs(a)

	return nil
}

func (r *Repository) DeleteAssignment(id int64) error {
	query := `
		DELETE FROM schedule_assignments WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return expectAffected(result)
}

// ClearAssignments 删除排班表中的所有记录并返回删除的数量
func (r *Repository) ClearAssignments(scheduleID int64) (int64, error) {
	query := `
		DELETE FROM schedule_assignments WHERE schedule_id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, scheduleID)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
