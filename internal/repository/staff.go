package repository

import (
	"github.com/mahuti/tasks/backend/internal/domain"
)

func (r *Repository) GetAllStaff() ([]*domain.Staff, error) {
	query := `
		SELECT id, name, role, color, created_at, version
		FROM staff ORDER BY name
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	staff := make([]*domain.Staff, 0)
	for rows.Next() {
		s := &domain.Staff{}
		if err := rows.Scan(&s.ID, &s.Name, &s.Role, &s.Color, &s.CreatedAt, &s.Version); err != nil {
			return nil, err
		}
		staff = append(staff, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return staff, nil
}

func (r *Repository) GetStaffByID(id int64) (*domain.Staff, error) {
	query := `
		SELECT name, role, color, created_at, version
		FROM staff WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	s := &domain.Staff{ID: id}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&s.Name, &s.Role, &s.Color, &s.CreatedAt, &s.Version); err != nil {
		return nil, err
	}

	return s, nil
}

func (r *Repository) CreateStaff(s *domain.Staff) error {
	query := `
		INSERT INTO staff (name, role, color)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, s.Name, s.Role, s.Color).Scan(&s.ID, &s.CreatedAt, &s.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateStaff(s *domain.Staff) error {
	query := `
		UPDATE staff
		SET
			name = $1,
			role = $2,
			color = $3,
			version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	args := []any{s.Name, s.Role, s.Color, s.ID, s.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&s.Version); err != nil {
		return err
	}

	return nil
}

// DeleteStaff 同时会级联删除该员工的所有排班记录
func (r *Repository) DeleteStaff(id int64) error {
	query := `
		DELETE FROM staff WHERE id = $1
	`

	ctx, cancel := r.queryContext()
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return expectAffected(result)
}
