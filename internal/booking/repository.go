package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/campus-booking-backend/internal/pkg/apperror"
)

// Store is the booking persistence available inside a resource-scoped transaction.
type Store interface {
	// FindOverlapping returns active bookings of the resource overlapping iv, ascending by start.
	// excludeBookingID is used during reschedules to ignore the booking itself.
	FindOverlapping(ctx context.Context, resourceID string, iv Interval, excludeBookingID string) ([]*Booking, error)
	GetByID(ctx context.Context, id string) (*Booking, error)
	Create(ctx context.Context, booking *Booking) error
	Update(ctx context.Context, booking *Booking) error
	Delete(ctx context.Context, id string) error
}

type Repository interface {
	Store
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	// CompleteElapsed moves confirmed bookings that ended at or before now to completed.
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)
	// WithResourceLock runs fn in a transaction that holds the resource row lock.
	// Waiting longer than wait for the lock yields ErrLockTimeout.
	WithResourceLock(ctx context.Context, resourceID string, wait time.Duration, fn func(Store) error) error
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var bookingColumns = []string{
	"b.id", "b.resource_id", "r.name", "b.user_id", "u.display_name",
	"b.start_time", "b.end_time", "b.status", "b.purpose", "b.created_at", "b.updated_at",
}

var sortColumns = map[string]string{
	"start_time": "b.start_time",
	"end_time":   "b.end_time",
	"created_at": "b.created_at",
	"status":     "b.status",
}

// store runs queries against either the pool or an open transaction.
type store struct {
	q querier
	// locked rows are read FOR UPDATE so a concurrent sweep waits for the writer.
	locked bool
}

type pgxRepository struct {
	*store
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{store: &store{q: pool}, pool: pool}
}

func selectBookings() squirrel.SelectBuilder {
	return psql.Select(bookingColumns...).
		From("public.bookings b").
		Join("public.resources r ON b.resource_id = r.id").
		Join("public.users u ON b.user_id = u.id")
}

func scanBooking(row pgx.Row, extra ...any) (*Booking, error) {
	var b Booking
	dest := []any{
		&b.ID, &b.ResourceID, &b.ResourceName, &b.UserID, &b.UserName,
		&b.StartTime, &b.EndTime, &b.Status, &b.Purpose, &b.CreatedAt, &b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *store) FindOverlapping(ctx context.Context, resourceID string, iv Interval, excludeBookingID string) ([]*Booking, error) {
	query := selectBookings().
		Where(squirrel.Eq{"b.resource_id": resourceID}).
		Where(squirrel.Eq{"b.status": statusStrings(ActiveStatuses)}).
		Where(squirrel.Lt{"b.start_time": iv.End}).
		Where(squirrel.Gt{"b.end_time": iv.Start}).
		OrderBy("b.start_time", "b.id")

	if excludeBookingID != "" {
		query = query.Where(squirrel.NotEq{"b.id": excludeBookingID})
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find overlapping query failed: %w", err)
	}

	rows, err := s.q.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapPgError(err, "find overlapping bookings failed")
	}
	defer rows.Close()

	var result []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking failed: %w", err)
		}
		result = append(result, b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "iterate overlapping bookings failed")
	}
	return result, nil
}

func (s *store) GetByID(ctx context.Context, id string) (*Booking, error) {
	query := selectBookings().Where(squirrel.Eq{"b.id": id})
	if s.locked {
		query = query.Suffix("FOR UPDATE OF b")
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get booking query failed: %w", err)
	}

	b, err := scanBooking(s.q.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isPgCode(err, pgerrcode.InvalidTextRepresentation) {
			return nil, ErrNotFound
		}
		return nil, mapPgError(err, "get booking failed")
	}
	return b, nil
}

func (s *store) Create(ctx context.Context, b *Booking) error {
	query, args, err := psql.Insert("public.bookings").
		Columns("resource_id", "user_id", "start_time", "end_time", "status", "purpose").
		Values(b.ResourceID, b.UserID, b.StartTime, b.EndTime, b.Status, b.Purpose).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create booking query failed: %w", err)
	}

	if err := s.q.QueryRow(ctx, query, args...).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return mapPgError(err, "create booking failed")
	}
	return nil
}

func (s *store) Update(ctx context.Context, b *Booking) error {
	query, args, err := psql.Update("public.bookings").
		Set("start_time", b.StartTime).
		Set("end_time", b.EndTime).
		Set("status", b.Status).
		Set("purpose", b.Purpose).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": b.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update booking query failed: %w", err)
	}

	if err := s.q.QueryRow(ctx, query, args...).Scan(&b.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return mapPgError(err, "update booking failed")
	}
	return nil
}

func (s *store) Delete(ctx context.Context, id string) error {
	query, args, err := psql.Delete("public.bookings").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete booking query failed: %w", err)
	}

	ct, err := s.q.Exec(ctx, query, args...)
	if err != nil {
		return mapPgError(err, "delete booking failed")
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	query := psql.Select(append(bookingColumns, "count(*) OVER() AS total_count")...).
		From("public.bookings b").
		Join("public.resources r ON b.resource_id = r.id").
		Join("public.users u ON b.user_id = u.id")

	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"b.user_id": filter.UserID})
	}
	if filter.ResourceID != "" {
		query = query.Where(squirrel.Eq{"b.resource_id": filter.ResourceID})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"b.status": filter.Status})
	}
	// Intersection with [From, To)
	if filter.From != nil {
		query = query.Where(squirrel.Gt{"b.end_time": *filter.From})
	}
	if filter.To != nil {
		query = query.Where(squirrel.Lt{"b.start_time": *filter.To})
	}

	orderBy, ok := sortColumns[filter.SortBy]
	if !ok {
		orderBy = "b.start_time"
	}
	orderDir := "DESC"
	if filter.SortOrder == "ASC" {
		orderDir = "ASC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "b.id")

	// Pagination
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize
	query = query.Limit(uint64(filter.PageSize)).Offset(uint64(offset))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list bookings query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings failed: %w", err)
	}
	defer rows.Close()

	var bookings []*Booking
	var total int
	for rows.Next() {
		b, err := scanBooking(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan booking failed: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate bookings failed: %w", err)
	}

	return bookings, total, nil
}

func (r *pgxRepository) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	query, args, err := psql.Update("public.bookings").
		Set("status", StatusCompleted).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"status": StatusConfirmed}).
		Where(squirrel.LtOrEq{"end_time": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build complete elapsed query failed: %w", err)
	}

	ct, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("complete elapsed bookings failed: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *pgxRepository) WithResourceLock(ctx context.Context, resourceID string, wait time.Duration, fn func(Store) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin booking tx failed: %w", err)
	}
	// Rollback after Commit is a no-op.
	defer tx.Rollback(ctx)

	ms := wait.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	// SET does not accept bind parameters; ms is an integer we produced.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", ms)); err != nil {
		return fmt.Errorf("set lock timeout failed: %w", err)
	}

	var id string
	err = tx.QueryRow(ctx, "SELECT id FROM public.resources WHERE id = $1 FOR UPDATE", resourceID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isPgCode(err, pgerrcode.InvalidTextRepresentation) {
			return ErrResourceNotFound
		}
		return mapPgError(err, "lock resource failed")
	}

	if err := fn(&store{q: tx, locked: true}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err, "commit booking tx failed")
	}
	return nil
}

// mapPgError translates constraint and lock failures into domain errors.
func mapPgError(err error, msg string) error {
	var e *pgconn.PgError
	if !errors.As(err, &e) {
		return fmt.Errorf("%s: %w", msg, err)
	}

	switch e.Code {
	case pgerrcode.ExclusionViolation:
		return apperror.WithCause(ErrTimeConflict, err)
	case pgerrcode.LockNotAvailable:
		return apperror.WithCause(ErrLockTimeout, err)
	case pgerrcode.CheckViolation:
		if e.ConstraintName == "bookings_time_order" {
			return apperror.WithCause(ErrInvalidTimeRange, err)
		}
	case pgerrcode.ForeignKeyViolation:
		if e.ConstraintName == "bookings_resource_id_fkey" {
			return apperror.WithCause(ErrResourceNotFound, err)
		}
		return apperror.WithCause(ErrUserNotFound, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isPgCode(err error, code string) bool {
	var e *pgconn.PgError
	return errors.As(err, &e) && e.Code == code
}
