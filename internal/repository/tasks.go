package repository

import (
	"github.com/mahuti/tasks/backend/internal/domain"
)

func (r *Repository) GetAllTasks() ([]*domain.Task, error) {
	query := `
		SELECT id, name, icon, category, color, sort_order, created_at, version
		FROM tasks ORDER BY sort_order, id
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		t := &domain.Task{}
		dst := []any{&t.ID, &t.Name, &t.Icon, &t.Category, &t.Color, &t.SortOrder, &t.CreatedAt, &t.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *Repository) GetTaskByID(id int64) (*domain.Task, error) {
	query := `
		SELECT name, icon, category, color, sort_order, created_at, version
		FROM tasks WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	t := &domain.Task{ID: id}
	dst := []any{&t.Name, &t.Icon, &t.Category, &t.Color, &t.SortOrder, &t.CreatedAt, &t.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return t, nil
}

// CreateTask 把新任务排在最后
func (r *Repository) CreateTask(t *domain.Task) error {
	query := `
		INSERT INTO tasks (name, icon, category, color, sort_order)
		VALUES ($1, $2, $3, $4, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM tasks))
		RETURNING id, sort_order, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{t.Name, t.Icon, t.Category, t.Color}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.SortOrder, &t.CreatedAt, &t.Version); err != nil {
		return err
	}

	return nil
}

// UpdateTask 修改任务名称时，已有排班记录的 time_slot 也要一起修改，否则这些记录会找不到所在的行
func (r *Repository) UpdateTask(t *domain.Task) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE tasks
		SET
			name = $1,
			icon = $2,
			category = $3,
			color = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`
	args := []any{t.Name, t.Icon, t.Category, t.Color, t.ID, t.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&t.Version); err != nil {
		return err
	}

	query = `
		UPDATE schedule_assignments SET time_slot = $1 WHERE task_id = $2
	`
	if _, err := tx.ExecContext(ctx, query, t.Name, t.ID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) DeleteTask(id int64) error {
	query := `
		DELETE FROM tasks WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return expectAffected(result)
}

// ReorderTasks 按 ids 的顺序重写 sort_order，ids 中不存在的任务返回 sql.ErrNoRows
func (r *Repository) ReorderTasks(ids []int64) error {
	ctx, cancel := r.transactionContext()
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE tasks SET sort_order = $1, version = version + 1 WHERE id = $2
	`
	for i, id := range ids {
		result, err := tx.ExecContext(ctx, query, i, id)
		if err != nil {
			return err
		}
		if err := expectAffected(result); err != nil {
			return err
		}
	}

	return tx.Commit()
}
