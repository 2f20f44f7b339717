package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/mahuti/tasks/backend/internal/domain"
)

const weekTemplateSelect = `
	SELECT
		wt.id,
		wt.name,
		wt.description,
		wt.created_at,
		wt.version,
		e.task_id,
		e.staff_id,
		e.day_of_week,
		e.notes,
		t.name,
		t.icon,
		t.color,
		s.name,
		s.color
	FROM schedule_templates wt
	LEFT JOIN schedule_template_entries e ON e.template_id = wt.id
	LEFT JOIN tasks t ON t.id = e.task_id
	LEFT JOIN staff s ON s.id = e.staff_id
`

// scanWeekTemplates 把 LEFT JOIN 的结果按模板聚合，没有任何格子的模板也会返回
func scanWeekTemplates(rows *sql.Rows) ([]*domain.WeekTemplate, error) {
	templatesMap := make(map[int64]*domain.WeekTemplate)
	order := make([]int64, 0)

	for rows.Next() {
		var row struct {
			ID          int64
			Name        string
			Description string
			CreatedAt   time.Time
			Version     int32

			TaskID     sql.NullInt64
			StaffID    sql.NullInt64
			DayOfWeek  sql.NullInt32
			Notes      sql.NullString
			TaskName   sql.NullString
			TaskIcon   sql.NullString
			TaskColor  sql.NullString
			StaffName  sql.NullString
			StaffColor sql.NullString
		}

		dst := []any{
			&row.ID,
			&row.Name,
			&row.Description,
			&row.CreatedAt,
			&row.Version,
			&row.TaskID,
			&row.StaffID,
			&row.DayOfWeek,
			&row.Notes,
			&row.TaskName,
			&row.TaskIcon,
			&row.TaskColor,
			&row.StaffName,
			&row.StaffColor,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		wt, exists := templatesMap[row.ID]
		if !exists {
			wt = &domain.WeekTemplate{
				ID:          row.ID,
				Name:        row.Name,
				Description: row.Description,
				CreatedAt:   row.CreatedAt,
				Version:     row.Version,
				Entries:     make([]domain.WeekTemplateEntry, 0),
			}
			templatesMap[row.ID] = wt
			order = append(order, row.ID)
		}

		// 模板中没有任何格子
		if !row.TaskID.Valid {
			continue
		}

		wt.Entries = append(wt.Entries, domain.WeekTemplateEntry{
			TaskID:    row.TaskID.Int64,
			StaffID:   row.StaffID.Int64,
			DayOfWeek: row.DayOfWeek.Int32,
			TimeSlot:  row.TaskName.String,
			Notes:     row.Notes.String,
			Task: domain.AssignmentTask{
				ID:    row.TaskID.Int64,
				Name:  row.TaskName.String,
				Icon:  row.TaskIcon.String,
				Color: row.TaskColor.String,
			},
			Staff: domain.AssignmentStaff{
				ID:    row.StaffID.Int64,
				Name:  row.StaffName.String,
				Color: row.StaffColor.String,
			},
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	templates := make([]*domain.WeekTemplate, 0, len(order))
	for _, id := range order {
		wt := templatesMap[id]
		sort.SliceStable(wt.Entries, func(i, j int) bool {
			return wt.Entries[i].DayOfWeek < wt.Entries[j].DayOfWeek
		})
		templates = append(templates, wt)
	}

	return templates, nil
}

func (r *Repository) GetAllWeekTemplates() ([]*domain.WeekTemplate, error) {
	query := weekTemplateSelect + `
		ORDER BY wt.name, t.sort_order, e.id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanWeekTemplates(rows)
}

func (r *Repository) GetWeekTemplateByID(id int64) (*domain.WeekTemplate, error) {
	query := weekTemplateSelect + `
		WHERE wt.id = $1
		ORDER BY t.sort_order, e.id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	return r.getWeekTemplate(ctx, r.dbpool, query, id)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (r *Repository) getWeekTemplate(ctx context.Context, q queryer, query string, id int64) (*domain.WeekTemplate, error) {
	rows, err := q.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templates, err := scanWeekTemplates(rows)
	if err != nil {
		return nil, err
	}
	if len(templates) == 0 {
		return nil, sql.ErrNoRows
	}

	return templates[0], nil
}

// CreateWeekTemplateFromSchedule 把排班表当前的所有格子保存为模板。
// 同一格子有多条记录时只保留最新的一条。
func (r *Repository) CreateWeekTemplateFromSchedule(wt *domain.WeekTemplate, scheduleID int64) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM schedules WHERE id = $1`, scheduleID).Scan(&exists); err != nil {
		return err
	}

	query := `
		INSERT INTO schedule_templates (name, description)
		VALUES ($1, $2)
		RETURNING id
	`
	if err := tx.QueryRowContext(ctx, query, wt.Name, wt.Description).Scan(&wt.ID); err != nil {
		return err
	}

	query = `
		INSERT INTO schedule_template_entries (template_id, task_id, staff_id, day_of_week, notes)
		SELECT DISTINCT ON (day_of_week, task_id) $1, task_id, staff_id, day_of_week, notes
		FROM schedule_assignments
		WHERE schedule_id = $2
		ORDER BY day_of_week, task_id, id DESC
	`
	if _, err := tx.ExecContext(ctx, query, wt.ID, scheduleID); err != nil {
		return err
	}

	created, err := r.getWeekTemplate(ctx, tx, weekTemplateSelect+`
		WHERE wt.id = $1
		ORDER BY t.sort_order, e.id
	`, wt.ID)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	*wt = *created
	return nil
}

func (r *Repository) UpdateWeekTemplate(wt *domain.WeekTemplate) error {
	query := `
		UPDATE schedule_templates
		SET
			name = $1,
			description = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	params := []any{wt.Name, wt.Description, wt.ID, wt.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&wt.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteWeekTemplate(id int64) error {
	query := `
		DELETE FROM schedule_templates WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return expectAffected(result)
}

// ApplyWeekTemplate 用模板替换排班表中的所有记录，返回写入的记录数
func (r *Repository) ApplyWeekTemplate(templateID, scheduleID int64) (int64, error) {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedule_assignments WHERE schedule_id = $1`, scheduleID); err != nil {
		return 0, err
	}

	query := `
		INSERT INTO schedule_assignments (schedule_id, task_id, staff_id, day_of_week, time_slot, notes)
		SELECT $1, e.task_id, e.staff_id, e.day_of_week, t.name, e.notes
		FROM schedule_template_entries e
		JOIN tasks t ON t.id = e.task_id
		WHERE e.template_id = $2
	`
	result, err := tx.ExecContext(ctx, query, scheduleID, templateID)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return n, nil
}
