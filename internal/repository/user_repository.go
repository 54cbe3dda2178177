package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// UserFilter narrows active-user lookups for notification fan-out.
type UserFilter struct {
	Roles        []domain.Role
	DepartmentID *string
	Limit        int
}

// UserRepository encapsulates user persistence.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	ListActive(ctx context.Context, filter UserFilter) ([]domain.User, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository instantiates repository.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, name, email, role, support_type, department_id, is_active, created_at, updated_at`

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.Role,
		&user.SupportType,
		&user.DepartmentID,
		&user.Active,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ListActive(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	clauses := []string{"is_active = TRUE"}
	args := []any{}

	if len(filter.Roles) > 0 {
		placeholders := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			args = append(args, role)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("role IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s ORDER BY created_at LIMIT %d`,
		userColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUsers(rows)
}

func scanUsers(rows pgx.Rows) ([]domain.User, error) {
	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.Role,
			&user.SupportType,
			&user.DepartmentID,
			&user.Active,
			&user.CreatedAt,
			&user.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}
