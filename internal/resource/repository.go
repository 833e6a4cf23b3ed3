package resource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, res *Resource) error
	GetByID(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context, filter Filter) ([]*Resource, int, error)
	Update(ctx context.Context, res *Resource) error
	// Delete removes the resource unless a pending or confirmed booking references it.
	// The check and the delete share a transaction holding the resource row lock,
	// so a booking committed in between is never cascaded away.
	Delete(ctx context.Context, id string) error

	Types(ctx context.Context) ([]string, error)
	Locations(ctx context.Context) ([]string, error)

	// AdjustAvailability adds delta to available_count, clamped to [0, capacity].
	AdjustAvailability(ctx context.Context, id string, delta int) (*Resource, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

var resourceColumns = []string{
	"id", "name", "type", "description", "location",
	"capacity", "available_count", "status", "created_at", "updated_at",
}

var sortColumns = map[string]string{
	"name":       "name",
	"type":       "type",
	"capacity":   "capacity",
	"created_at": "created_at",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner, extra ...any) (*Resource, error) {
	var res Resource
	dest := []any{
		&res.ID, &res.Name, &res.Type, &res.Description, &res.Location,
		&res.Capacity, &res.AvailableCount, &res.Status, &res.CreatedAt, &res.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *pgxRepository) Create(ctx context.Context, res *Resource) error {
	query, args, err := psql.Insert("public.resources").
		Columns("name", "type", "description", "location", "capacity", "available_count", "status").
		Values(res.Name, res.Type, res.Description, res.Location, res.Capacity, res.AvailableCount, res.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create resource query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return fmt.Errorf("create resource failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Resource, error) {
	query, args, err := psql.Select(resourceColumns...).
		From("public.resources").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get resource query failed: %w", err)
	}

	res, err := scanResource(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource failed: %w", err)
	}
	return res, nil
}

func (r *pgxRepository) List(ctx context.Context, filter Filter) ([]*Resource, int, error) {
	query := psql.Select(append(resourceColumns, "count(*) OVER() AS total_count")...).
		From("public.resources")

	if filter.Type != "" {
		query = query.Where(squirrel.Eq{"type": filter.Type})
	}
	if filter.Location != "" {
		query = query.Where(squirrel.ILike{"location": "%" + filter.Location + "%"})
	}
	if filter.Status != "" {
		query = query.Where(squirrel.Eq{"status": filter.Status})
	}
	if filter.AvailableOnly {
		query = query.Where(squirrel.Eq{"status": StatusAvailable}).
			Where(squirrel.Gt{"available_count": 0})
	}

	orderBy, ok := sortColumns[filter.SortBy]
	if !ok {
		orderBy = "name"
	}
	orderDir := "ASC"
	if filter.SortOrder == "DESC" {
		orderDir = "DESC"
	}
	query = query.OrderBy(orderBy+" "+orderDir, "id")

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
		return nil, 0, fmt.Errorf("build list resources query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list resources failed: %w", err)
	}
	defer rows.Close()

	var result []*Resource
	var total int
	for rows.Next() {
		res, err := scanResource(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("scan resource failed: %w", err)
		}
		result = append(result, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate resources failed: %w", err)
	}

	return result, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, res *Resource) error {
	query, args, err := psql.Update("public.resources").
		Set("name", res.Name).
		Set("type", res.Type).
		Set("description", res.Description).
		Set("location", res.Location).
		Set("capacity", res.Capacity).
		Set("available_count", res.AvailableCount).
		Set("status", res.Status).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": res.ID}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update resource query failed: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, args...).Scan(&res.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("update resource failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin delete resource tx failed: %w", err)
	}
	defer tx.Rollback(ctx)

	// Booking writers take the same row lock before inserting.
	var locked string
	err = tx.QueryRow(ctx, "SELECT id FROM public.resources WHERE id = $1 FOR UPDATE", id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return ErrNotFound
		}
		return fmt.Errorf("lock resource failed: %w", err)
	}

	active, err := hasActiveBookings(ctx, tx, id)
	if err != nil {
		return err
	}
	if active {
		return ErrHasActiveBookings
	}

	query, args, err := psql.Delete("public.resources").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete resource query failed: %w", err)
	}

	ct, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete resource failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete resource tx failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) distinct(ctx context.Context, column string) ([]string, error) {
	query, args, err := psql.Select("DISTINCT " + column).
		From("public.resources").
		Where(squirrel.NotEq{column: ""}).
		OrderBy(column).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build distinct %s query failed: %w", column, err)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list distinct %s failed: %w", column, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan distinct %s failed: %w", column, err)
	}
	return values, nil
}

func (r *pgxRepository) Types(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "type")
}

func (r *pgxRepository) Locations(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "location")
}

func (r *pgxRepository) AdjustAvailability(ctx context.Context, id string, delta int) (*Resource, error) {
	query, args, err := psql.Update("public.resources").
		Set("available_count", squirrel.Expr("GREATEST(0, LEAST(capacity, available_count + ?))", delta)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(resourceColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build adjust availability query failed: %w", err)
	}

	res, err := scanResource(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("adjust availability failed: %w", err)
	}
	return res, nil
}

// hasActiveBookings reports whether any pending or confirmed booking references the resource.
func hasActiveBookings(ctx context.Context, tx pgx.Tx, id string) (bool, error) {
	sub, args, err := psql.Select("1").
		From("public.bookings").
		Where(squirrel.Eq{"resource_id": id, "status": []string{"pending", "confirmed"}}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build active bookings query failed: %w", err)
	}

	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS ("+sub+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check active bookings failed: %w", err)
	}
	return exists, nil
}

// isMalformedID reports a non-uuid id rejected by postgres.
func isMalformedID(err error) bool {
	var e *pgconn.PgError
	return errors.As(err, &e) && e.Code == pgerrcode.InvalidTextRepresentation
}
