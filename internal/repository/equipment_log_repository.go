package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// EquipmentLogRepository stores append-only equipment log entries.
type EquipmentLogRepository interface {
	Create(ctx context.Context, entry *domain.EquipmentLog) error
	ListByEquipment(ctx context.Context, equipmentID string, limit, offset int) ([]domain.EquipmentLog, error)
}

type equipmentLogRepository struct {
	pool *pgxpool.Pool
}

// NewEquipmentLogRepository instantiates repository.
func NewEquipmentLogRepository(pool *pgxpool.Pool) EquipmentLogRepository {
	return &equipmentLogRepository{pool: pool}
}

func (r *equipmentLogRepository) Create(ctx context.Context, entry *domain.EquipmentLog) error {
	const query = `
        INSERT INTO equipment_logs (equipment_id, created_by_user_id, log_type, title, description, downtime_minutes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		entry.EquipmentID,
		entry.CreatedByUserID,
		entry.LogType,
		entry.Title,
		entry.Description,
		entry.DowntimeMinutes,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *equipmentLogRepository) ListByEquipment(ctx context.Context, equipmentID string, limit, offset int) ([]domain.EquipmentLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
        SELECT id, equipment_id, created_by_user_id, log_type, title, description, downtime_minutes, created_at
        FROM equipment_logs WHERE equipment_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, equipmentID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EquipmentLog
	for rows.Next() {
		var entry domain.EquipmentLog
		if err := rows.Scan(
			&entry.ID,
			&entry.EquipmentID,
			&entry.CreatedByUserID,
			&entry.LogType,
			&entry.Title,
			&entry.Description,
			&entry.DowntimeMinutes,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
