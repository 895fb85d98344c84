package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	"github.com/m04kA/SMC-RentalService/pkg/dbmetrics"
	"github.com/m04kA/SMC-RentalService/pkg/psqlbuilder"
	"github.com/m04kA/SMC-RentalService/pkg/types"
)

var reservationColumns = []string{
	"id",
	"client_id",
	"status",
	"notes",
	"created_at",
	"updated_at",
}

var lineColumns = []string{
	"id",
	"reservation_id",
	"item_id",
	"date_from",
	"date_to",
	"quantity",
}

// Repository репозиторий бронирований и их позиций (ledger)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория бронирований
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// SumOverlappingQuantity возвращает суммарное количество единиц товара в позициях,
// период которых пересекается с period (обе границы включительно), без учета отмененных бронирований.
// Если пересечений нет, возвращает 0.
//
// Перевернутый period (From > To) передается в запрос как есть.
func (r *Repository) SumOverlappingQuantity(ctx context.Context, itemID int64, period domain.DateRange) (int64, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COALESCE(SUM(rli.quantity), 0)::bigint").
		From("reservation_line_items rli").
		Join("reservations r ON r.id = rli.reservation_id").
		Where(squirrel.Eq{"rli.item_id": itemID}).
		Where(squirrel.NotEq{"r.status": string(domain.StatusCancelled)}).
		Where(squirrel.LtOrEq{"rli.date_from": period.To}).
		Where(squirrel.GtOrEq{"rli.date_to": period.From}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: SumOverlappingQuantity - build select query: %v", ErrBuildQuery, err)
	}

	var sum sql.NullInt64
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&sum); err != nil {
		return 0, fmt.Errorf("%w: SumOverlappingQuantity - scan sum: %w", ErrScanRow, err)
	}

	if !sum.Valid {
		return 0, nil
	}
	return sum.Int64, nil
}

// Create сохраняет бронирование вместе с позициями.
// Заголовок и позиции пишутся двумя запросами, поэтому вызывать нужно внутри транзакции
// (executor берется из контекста).
func (r *Repository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	if len(res.Lines) == 0 {
		return nil, ErrEmptyReservation
	}

	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("reservations").
		Columns("client_id", "status", "notes").
		Values(res.ClientID, string(res.Status), res.Notes).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&res.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %w", ErrExecQuery, err)
	}
	res.CreatedAt = createdAt.Time
	res.UpdatedAt = updatedAt.Time

	lines := psqlbuilder.Insert("reservation_line_items").
		Columns("reservation_id", "item_id", "date_from", "date_to", "quantity")
	for _, line := range res.Lines {
		lines = lines.Values(res.ID, line.ItemID, line.Period.From, line.Period.To, line.Quantity)
	}

	query, args, err = lines.Suffix("RETURNING id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build lines insert query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute lines insert: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	// Postgres возвращает RETURNING для multi-row VALUES в порядке вставки
	i := 0
	for rows.Next() {
		if i >= len(res.Lines) {
			return nil, fmt.Errorf("%w: Create - more line ids than lines", ErrScanRow)
		}
		if err := rows.Scan(&res.Lines[i].ID); err != nil {
			return nil, fmt.Errorf("%w: Create - scan line id: %w", ErrScanRow, err)
		}
		res.Lines[i].ReservationID = res.ID
		i++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: Create - iterate line ids: %w", ErrScanRow, err)
	}
	if i != len(res.Lines) {
		return nil, fmt.Errorf("%w: Create - got %d line ids for %d lines", ErrScanRow, i, len(res.Lines))
	}

	return res, nil
}

// GetByID получает бронирование по ID вместе с позициями
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(reservationColumns...).
		From("reservations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	var row reservationRow
	err = executor.QueryRowContext(ctx, query, args...).Scan(row.dest()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan reservation: %w", ErrScanRow, err)
	}

	res, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("GetByID - id=%d: %w", id, err)
	}

	lines, err := r.loadLines(ctx, executor, []int64{res.ID})
	if err != nil {
		return nil, err
	}
	res.Lines = lines[res.ID]

	return res, nil
}

// List получает бронирования по фильтру, новые первыми.
// Фильтр по товару и периоду оставляет бронирования, у которых есть хотя бы одна подходящая позиция,
// но позиции возвращаются все.
func (r *Repository) List(ctx context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select(reservationColumns...).
		From("reservations").
		OrderBy("created_at DESC", "id DESC")

	if filter.Status != nil {
		builder = builder.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.ClientID != nil {
		builder = builder.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}

	if filter.ItemID != nil || filter.Period != nil {
		// Подзапрос строится с плейсхолдерами "?", внешний builder переведет их в $N
		sub := squirrel.Select("reservation_id").From("reservation_line_items")
		if filter.ItemID != nil {
			sub = sub.Where(squirrel.Eq{"item_id": *filter.ItemID})
		}
		if filter.Period != nil {
			sub = sub.
				Where(squirrel.LtOrEq{"date_from": filter.Period.To}).
				Where(squirrel.GtOrEq{"date_to": filter.Period.From})
		}

		subQuery, subArgs, err := sub.ToSql()
		if err != nil {
			return nil, fmt.Errorf("%w: List - build line filter subquery: %v", ErrBuildQuery, err)
		}
		builder = builder.Where(squirrel.Expr("id IN ("+subQuery+")", subArgs...))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: List - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: List - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	var (
		result []*domain.Reservation
		ids    []int64
	)
	for rows.Next() {
		var row reservationRow
		if err := rows.Scan(row.dest()...); err != nil {
			return nil, fmt.Errorf("%w: List - scan reservation: %w", ErrScanRow, err)
		}
		res, err := row.toDomain()
		if err != nil {
			return nil, fmt.Errorf("List: %w", err)
		}
		result = append(result, res)
		ids = append(ids, res.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: List - iterate rows: %w", ErrScanRow, err)
	}

	if len(ids) == 0 {
		return []*domain.Reservation{}, nil
	}

	lines, err := r.loadLines(ctx, executor, ids)
	if err != nil {
		return nil, err
	}
	for _, res := range result {
		res.Lines = lines[res.ID]
	}

	return result, nil
}

// UpdateStatus меняет статус бронирования с from на to.
// Если текущий статус в БД уже не from (конкурентное изменение), возвращает ErrStatusConflict.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from, to domain.ReservationStatus) (time.Time, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("reservations").
		Set("status", string(to)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id, "status": string(from)}).
		Suffix("RETURNING updated_at").
		ToSql()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: UpdateStatus - build update query: %v", ErrBuildQuery, err)
	}

	var updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrStatusConflict
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: UpdateStatus - execute update: %w", ErrExecQuery, err)
	}

	return updatedAt.Time, nil
}

func (r *Repository) loadLines(ctx context.Context, executor DBExecutor, reservationIDs []int64) (map[int64][]domain.ReservationLineItem, error) {
	query, args, err := psqlbuilder.Select(lineColumns...).
		From("reservation_line_items").
		Where(squirrel.Eq{"reservation_id": reservationIDs}).
		OrderBy("reservation_id", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: loadLines - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: loadLines - execute query: %w", ErrExecQuery, err)
	}
	defer rows.Close()

	result := make(map[int64][]domain.ReservationLineItem, len(reservationIDs))
	for rows.Next() {
		var line domain.ReservationLineItem
		var from, to types.Date
		if err := rows.Scan(&line.ID, &line.ReservationID, &line.ItemID, &from, &to, &line.Quantity); err != nil {
			return nil, fmt.Errorf("%w: loadLines - scan line: %w", ErrScanRow, err)
		}
		line.Period = domain.NewDateRange(from, to)
		result[line.ReservationID] = append(result[line.ReservationID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: loadLines - iterate rows: %w", ErrScanRow, err)
	}

	return result, nil
}

// reservationRow строка таблицы reservations как она приходит из драйвера
type reservationRow struct {
	ID        int64
	ClientID  sql.NullInt64
	Status    sql.NullString
	Notes     sql.NullString
	CreatedAt sql.NullTime
	UpdatedAt sql.NullTime
}

func (r *reservationRow) dest() []interface{} {
	return []interface{}{&r.ID, &r.ClientID, &r.Status, &r.Notes, &r.CreatedAt, &r.UpdatedAt}
}

func (r *reservationRow) toDomain() (*domain.Reservation, error) {
	if !r.ClientID.Valid {
		return nil, fmt.Errorf("%w: reservation id=%d has NULL client_id", ErrInvalidRow, r.ID)
	}
	status := domain.ReservationStatus(r.Status.String)
	if !r.Status.Valid || !status.IsValid() {
		return nil, fmt.Errorf("%w: reservation id=%d has unknown status %q", ErrInvalidRow, r.ID, r.Status.String)
	}

	res := &domain.Reservation{
		ID:        r.ID,
		ClientID:  r.ClientID.Int64,
		Status:    status,
		CreatedAt: r.CreatedAt.Time,
		UpdatedAt: r.UpdatedAt.Time,
	}
	if r.Notes.Valid {
		notes := r.Notes.String
		res.Notes = &notes
	}
	return res, nil
}
