package repository

import (
	"time"

	"github.com/mahuti/tasks/backend/internal/domain"
)

const scheduleColumns = `id, week_start, week_end, name, created_at, updated_at, version`

func scheduleDst(s *domain.Schedule) []any {
	return []any{&s.ID, &s.WeekStart, &s.WeekEnd, &s.Name, &s.CreatedAt, &s.UpdatedAt, &s.Version}
}

func (r *Repository) GetAllSchedules() ([]*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY week_start DESC`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]*domain.Schedule, 0)
	for rows.Next() {
		s := &domain.Schedule{}
		if err := rows.Scan(scheduleDst(s)...); err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *Repository) GetScheduleByID(id int64) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	s := &domain.Schedule{}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(scheduleDst(s)...); err != nil {
		return nil, err
	}

	return s, nil
}

func (r *Repository) GetScheduleByWeekStart(weekStart time.Time) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE week_start = $1`

	ctx, cancel := r.queryContext()
	defer cancel()

	s := &domain.Schedule{}
	if err := r.dbpool.QueryRowContext(ctx, query, weekStart).Scan(scheduleDst(s)...); err != nil {
		return nil, err
	}

	return s, nil
}

func (r *Repository) CreateSchedule(s *domain.Schedule) error {
	query := `
		INSERT INTO schedules (week_start, week_end, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{s.WeekStart, s.WeekEnd, s.Name}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.Version); err != nil {
		return err
	}

	return nil
}

// EnsureSchedule 返回 weekStart 对应的排班表，不存在时创建。
// 两个客户端同时切换到同一周时，ON CONFLICT 保证只会有一张排班表。
func (r *Repository) EnsureSchedule(weekStart time.Time, name string) (*domain.Schedule, error) {
	query := `
		INSERT INTO schedules (week_start, week_end, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (week_start) DO UPDATE SET week_start = EXCLUDED.week_start
		RETURNING ` + scheduleColumns

	ctx, cancel := r.queryContext()
	defer cancel()

	weekEnd := weekStart.AddDate(0, 0, domain.DaysPerWeek-1)
	s := &domain.Schedule{}
	if err := r.dbpool.QueryRowContext(ctx, query, weekStart, weekEnd, name).Scan(scheduleDst(s)...); err != nil {
		return nil, err
	}

	return s, nil
}

func (r *Repository) UpdateSchedule(s *domain.Schedule) error {
	query := `
		UPDATE schedules
		SET
			name = $1,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING updated_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, s.Name, s.ID, s.Version).Scan(&s.UpdatedAt, &s.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteSchedule(id int64) error {
	query := `
		DELETE FROM schedules WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return expectAffected(result)
}
