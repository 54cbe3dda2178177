package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// DepartmentRepository encapsulates department persistence.
type DepartmentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository instantiates repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	const query = `SELECT id, name, code, description, created_at, updated_at FROM departments WHERE id=$1`
	var dept domain.Department
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&dept.ID,
		&dept.Name,
		&dept.Code,
		&dept.Description,
		&dept.CreatedAt,
		&dept.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	const query = `SELECT id, name, code, description, created_at, updated_at FROM departments ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(
			&dept.ID,
			&dept.Name,
			&dept.Code,
			&dept.Description,
			&dept.CreatedAt,
			&dept.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
