package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/equipment-maintenance/internal/domain"
)

// ErrVersionConflict signals a lost optimistic-locking race on a ticket row.
// The caller should re-read the ticket and retry.
var ErrVersionConflict = errors.New("ticket version conflict")

// TicketFilter captures ticket search parameters. Role-based scoping is
// expressed through ReporterID / AssigneeID / DepartmentID.
type TicketFilter struct {
	ReporterID   *string
	AssigneeID   *string
	DepartmentID *string
	EquipmentID  *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// Update writes the ticket guarded by its Version field and bumps the
	// version on success. Returns ErrVersionConflict when the row moved.
	Update(ctx context.Context, ticket *domain.Ticket) error
	// UpdateWithEquipment commits the ticket update and the equipment
	// mutation (repair count, downtime fields, status) in one transaction,
	// optionally appending an equipment log entry. Either everything
	// commits or nothing does.
	UpdateWithEquipment(ctx context.Context, ticket *domain.Ticket, eq *domain.Equipment, entry *domain.EquipmentLog) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_code, equipment_id, department_id, title, description, status, priority,
               reported_by_user_id, assigned_to_user_id, completed_on, version, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_code, equipment_id, department_id, title, description, status, priority,
            reported_by_user_id, assigned_to_user_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.TicketCode,
		ticket.EquipmentID,
		ticket.DepartmentID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.ReportedByUserID,
		ticket.AssignedToUserID,
	).Scan(&ticket.ID, &ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return fetchTicket(ctx, r.pool, query, id)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func fetchTicket(ctx context.Context, q rowQuerier, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := q.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.TicketCode,
		&ticket.EquipmentID,
		&ticket.DepartmentID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.ReportedByUserID,
		&ticket.AssignedToUserID,
		&ticket.CompletedOn,
		&ticket.Version,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

const ticketUpdateQuery = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, assigned_to_user_id=$5,
            completed_on=$6, version=version+1, updated_at=NOW()
        WHERE id=$7 AND version=$8`

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	cmd, err := r.pool.Exec(ctx, ticketUpdateQuery,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedToUserID,
		ticket.CompletedOn,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return versionConflictOrMissing(ctx, r.pool, ticket.ID)
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) UpdateWithEquipment(ctx context.Context, ticket *domain.Ticket, eq *domain.Equipment, entry *domain.EquipmentLog) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, ticketUpdateQuery,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.AssignedToUserID,
		ticket.CompletedOn,
		ticket.ID,
		ticket.Version,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return versionConflictOrMissing(ctx, tx, ticket.ID)
	}

	if eq != nil {
		const eqQuery = `
        UPDATE equipment SET status=$1, repair_count=$2, total_downtime_minutes=$3,
            is_currently_down=$4, last_downtime_start=$5, updated_at=NOW()
        WHERE id=$6`
		eqCmd, err := tx.Exec(ctx, eqQuery,
			eq.Status,
			eq.RepairCount,
			eq.TotalDowntimeMinutes,
			eq.IsCurrentlyDown,
			eq.LastDowntimeStart,
			eq.ID,
		)
		if err != nil {
			return err
		}
		if eqCmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
	}

	if entry != nil {
		const logQuery = `
        INSERT INTO equipment_logs (equipment_id, created_by_user_id, log_type, title, description, downtime_minutes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
		if err := tx.QueryRow(ctx, logQuery,
			entry.EquipmentID,
			entry.CreatedByUserID,
			entry.LogType,
			entry.Title,
			entry.Description,
			entry.DowntimeMinutes,
		).Scan(&entry.ID, &entry.CreatedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	ticket.Version++
	return nil
}

func versionConflictOrMissing(ctx context.Context, q rowQuerier, ticketID string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tickets WHERE id=$1)`, ticketID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return pgx.ErrNoRows
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reported_by_user_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_user_id=$%d", len(args)))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		clauses = append(clauses, fmt.Sprintf("department_id=$%d", len(args)))
	}
	if filter.EquipmentID != nil {
		args = append(args, *filter.EquipmentID)
		clauses = append(clauses, fmt.Sprintf("equipment_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(ticket_code) LIKE %s OR LOWER(description) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketCode,
			&ticket.EquipmentID,
			&ticket.DepartmentID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.ReportedByUserID,
			&ticket.AssignedToUserID,
			&ticket.CompletedOn,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
