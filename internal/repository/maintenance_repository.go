package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// MaintenanceFilter captures schedule search parameters.
type MaintenanceFilter struct {
	EquipmentID  *string
	DepartmentID *string
	Active       *bool
	Overdue      bool
	UpcomingDays int
	Limit        int
	Offset       int
}

// MaintenanceRepository encapsulates schedule persistence.
type MaintenanceRepository interface {
	Create(ctx context.Context, schedule *domain.MaintenanceSchedule) error
	GetByID(ctx context.Context, id string) (*domain.MaintenanceSchedule, error)
	Update(ctx context.Context, schedule *domain.MaintenanceSchedule) error
	ListWithFilter(ctx context.Context, filter MaintenanceFilter) ([]domain.MaintenanceSchedule, int, error)
	Stats(ctx context.Context, now time.Time, weekDays, monthDays int) (*domain.MaintenanceStats, error)
	// ClaimOverdue atomically selects every active schedule whose due date
	// has passed and has not yet been notified for that due date, and
	// records the due date as the notification watermark. The returned
	// schedules carry the exact due date used for the decision, so a
	// completion racing the sweep can never produce a stale claim: a
	// concurrent completion advances next_maintenance_date and the
	// predicate no longer matches.
	ClaimOverdue(ctx context.Context, now time.Time) ([]domain.MaintenanceSchedule, error)
}

type maintenanceRepository struct {
	pool *pgxpool.Pool
}

// NewMaintenanceRepository instantiates repository.
func NewMaintenanceRepository(pool *pgxpool.Pool) MaintenanceRepository {
	return &maintenanceRepository{pool: pool}
}

const scheduleColumns = `id, equipment_id, maintenance_type, frequency_days, last_maintenance_date,
               next_maintenance_date, assigned_to_user_id, notes, is_active, overdue_notified_for, created_at, updated_at`

func (r *maintenanceRepository) Create(ctx context.Context, schedule *domain.MaintenanceSchedule) error {
	const query = `
        INSERT INTO maintenance_schedules (equipment_id, maintenance_type, frequency_days, last_maintenance_date,
            next_maintenance_date, assigned_to_user_id, notes, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		schedule.EquipmentID,
		schedule.MaintenanceType,
		schedule.FrequencyDays,
		schedule.LastMaintenanceDate,
		schedule.NextMaintenanceDate,
		schedule.AssignedToUserID,
		schedule.Notes,
		schedule.Active,
	).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.UpdatedAt)
}

func (r *maintenanceRepository) GetByID(ctx context.Context, id string) (*domain.MaintenanceSchedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM maintenance_schedules WHERE id=$1`
	var schedule domain.MaintenanceSchedule
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&schedule.ID,
		&schedule.EquipmentID,
		&schedule.MaintenanceType,
		&schedule.FrequencyDays,
		&schedule.LastMaintenanceDate,
		&schedule.NextMaintenanceDate,
		&schedule.AssignedToUserID,
		&schedule.Notes,
		&schedule.Active,
		&schedule.OverdueNotifiedFor,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *maintenanceRepository) Update(ctx context.Context, schedule *domain.MaintenanceSchedule) error {
	const query = `
        UPDATE maintenance_schedules SET maintenance_type=$1, frequency_days=$2, last_maintenance_date=$3,
            next_maintenance_date=$4, assigned_to_user_id=$5, notes=$6, is_active=$7, overdue_notified_for=$8,
            updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		schedule.MaintenanceType,
		schedule.FrequencyDays,
		schedule.LastMaintenanceDate,
		schedule.NextMaintenanceDate,
		schedule.AssignedToUserID,
		schedule.Notes,
		schedule.Active,
		schedule.OverdueNotifiedFor,
		schedule.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *maintenanceRepository) ListWithFilter(ctx context.Context, filter MaintenanceFilter) ([]domain.MaintenanceSchedule, int, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.EquipmentID != nil {
		args = append(args, *filter.EquipmentID)
		clauses = append(clauses, fmt.Sprintf("s.equipment_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("e.department_id=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("s.is_active=$%d", len(args)))
	}
	if filter.Overdue {
		clauses = append(clauses, "s.next_maintenance_date < NOW()")
	}
	if filter.UpcomingDays > 0 {
		args = append(args, filter.UpcomingDays)
		clauses = append(clauses, fmt.Sprintf(
			"s.next_maintenance_date >= NOW() AND s.next_maintenance_date <= NOW() + make_interval(days => $%d)", len(args)))
	}

	where := strings.Join(clauses, " AND ")
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM maintenance_schedules s JOIN equipment e ON e.id = s.equipment_id WHERE %s`, where)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
        SELECT s.id, s.equipment_id, s.maintenance_type, s.frequency_days, s.last_maintenance_date,
               s.next_maintenance_date, s.assigned_to_user_id, s.notes, s.is_active, s.overdue_notified_for,
               s.created_at, s.updated_at
        FROM maintenance_schedules s JOIN equipment e ON e.id = s.equipment_id
        WHERE %s ORDER BY s.next_maintenance_date LIMIT %d OFFSET %d`, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	schedules, err := scanSchedules(rows)
	if err != nil {
		return nil, 0, err
	}
	return schedules, total, nil
}

func (r *maintenanceRepository) Stats(ctx context.Context, now time.Time, weekDays, monthDays int) (*domain.MaintenanceStats, error) {
	const query = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE next_maintenance_date < $1),
               COUNT(*) FILTER (WHERE next_maintenance_date >= $1 AND next_maintenance_date <= $1 + make_interval(days => $2)),
               COUNT(*) FILTER (WHERE next_maintenance_date >= $1 AND next_maintenance_date <= $1 + make_interval(days => $3))
        FROM maintenance_schedules WHERE is_active = TRUE`
	var stats domain.MaintenanceStats
	if err := r.pool.QueryRow(ctx, query, now, weekDays, monthDays).Scan(
		&stats.TotalActive,
		&stats.Overdue,
		&stats.UpcomingWeek,
		&stats.UpcomingMonth,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *maintenanceRepository) ClaimOverdue(ctx context.Context, now time.Time) ([]domain.MaintenanceSchedule, error) {
	// Single statement: the due date tested by the WHERE clause is the same
	// value written as the watermark and returned to the caller.
	const query = `
        UPDATE maintenance_schedules
        SET overdue_notified_for = next_maintenance_date, updated_at = NOW()
        WHERE is_active = TRUE
          AND next_maintenance_date < $1
          AND overdue_notified_for IS DISTINCT FROM next_maintenance_date
        RETURNING ` + scheduleColumns
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

func scanSchedules(rows pgx.Rows) ([]domain.MaintenanceSchedule, error) {
	var result []domain.MaintenanceSchedule
	for rows.Next() {
		var schedule domain.MaintenanceSchedule
		if err := rows.Scan(
			&schedule.ID,
			&schedule.EquipmentID,
			&schedule.MaintenanceType,
			&schedule.FrequencyDays,
			&schedule.LastMaintenanceDate,
			&schedule.NextMaintenanceDate,
			&schedule.AssignedToUserID,
			&schedule.Notes,
			&schedule.Active,
			&schedule.OverdueNotifiedFor,
			&schedule.CreatedAt,
			&schedule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, schedule)
	}
	return result, rows.Err()
}
