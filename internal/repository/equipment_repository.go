package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// EquipmentFilter captures equipment search parameters.
type EquipmentFilter struct {
	DepartmentID  *string
	Statuses      []domain.EquipmentStatus
	CurrentlyDown *bool
	SearchTerm    *string
	Limit         int
	Offset        int
}

// EquipmentRepository encapsulates equipment persistence.
type EquipmentRepository interface {
	Create(ctx context.Context, eq *domain.Equipment) error
	Update(ctx context.Context, eq *domain.Equipment) error
	GetByID(ctx context.Context, id string) (*domain.Equipment, error)
	ListWithFilter(ctx context.Context, filter EquipmentFilter) ([]domain.Equipment, error)
}

type equipmentRepository struct {
	pool *pgxpool.Pool
}

// NewEquipmentRepository instantiates repository.
func NewEquipmentRepository(pool *pgxpool.Pool) EquipmentRepository {
	return &equipmentRepository{pool: pool}
}

const equipmentColumns = `id, asset_tag, device_name, serial_number, status, department_id, criticality,
               repair_count, total_downtime_minutes, is_currently_down, last_downtime_start, created_at, updated_at`

func (r *equipmentRepository) Create(ctx context.Context, eq *domain.Equipment) error {
	const query = `
        INSERT INTO equipment (asset_tag, device_name, serial_number, status, department_id, criticality)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, repair_count, total_downtime_minutes, is_currently_down, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		eq.AssetTag,
		eq.DeviceName,
		eq.SerialNumber,
		eq.Status,
		eq.DepartmentID,
		eq.Criticality,
	).Scan(&eq.ID, &eq.RepairCount, &eq.TotalDowntimeMinutes, &eq.IsCurrentlyDown, &eq.CreatedAt, &eq.UpdatedAt)
}

func (r *equipmentRepository) Update(ctx context.Context, eq *domain.Equipment) error {
	const query = `
        UPDATE equipment SET device_name=$1, serial_number=$2, status=$3, department_id=$4, criticality=$5,
            repair_count=$6, total_downtime_minutes=$7, is_currently_down=$8, last_downtime_start=$9, updated_at=NOW()
        WHERE id=$10`
	cmd, err := r.pool.Exec(ctx, query,
		eq.DeviceName,
		eq.SerialNumber,
		eq.Status,
		eq.DepartmentID,
		eq.Criticality,
		eq.RepairCount,
		eq.TotalDowntimeMinutes,
		eq.IsCurrentlyDown,
		eq.LastDowntimeStart,
		eq.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *equipmentRepository) GetByID(ctx context.Context, id string) (*domain.Equipment, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE id=$1`
	var eq domain.Equipment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&eq.ID,
		&eq.AssetTag,
		&eq.DeviceName,
		&eq.SerialNumber,
		&eq.Status,
		&eq.DepartmentID,
		&eq.Criticality,
		&eq.RepairCount,
		&eq.TotalDowntimeMinutes,
		&eq.IsCurrentlyDown,
		&eq.LastDowntimeStart,
		&eq.CreatedAt,
		&eq.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &eq, nil
}

func (r *equipmentRepository) ListWithFilter(ctx context.Context, filter EquipmentFilter) ([]domain.Equipment, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CurrentlyDown != nil {
		args = append(args, *filter.CurrentlyDown)
		clauses = append(clauses, fmt.Sprintf("is_currently_down=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(device_name) LIKE %s OR LOWER(asset_tag) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM equipment WHERE %s ORDER BY device_name LIMIT %d OFFSET %d`,
		equipmentColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Equipment
	for rows.Next() {
		var eq domain.Equipment
		if err := rows.Scan(
			&eq.ID,
			&eq.AssetTag,
			&eq.DeviceName,
			&eq.SerialNumber,
			&eq.Status,
			&eq.DepartmentID,
			&eq.Criticality,
			&eq.RepairCount,
			&eq.TotalDowntimeMinutes,
			&eq.IsCurrentlyDown,
			&eq.LastDowntimeStart,
			&eq.CreatedAt,
			&eq.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, eq)
	}
	return result, rows.Err()
}
