package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	"github.com/m04kA/SMC-RentalService/pkg/dbmetrics"
	"github.com/m04kA/SMC-RentalService/pkg/psqlbuilder"
)

// Repository репозиторий каталога позиций (только чтение)
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория позиций
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetByID получает позицию по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	return r.get(ctx, id, false, "GetByID")
}

// GetByIDForUpdate получает позицию и блокирует строку до конца транзакции.
// Вне транзакции блокировка не имеет смысла, поэтому FOR UPDATE добавляется только при активной транзакции в ctx.
func (r *Repository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Item, error) {
	return r.get(ctx, id, dbmetrics.IsInTransaction(ctx), "GetByIDForUpdate")
}

func (r *Repository) get(ctx context.Context, id int64, lock bool, method string) (*domain.Item, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	builder := psqlbuilder.Select("id", "name", "quantity").
		From("items").
		Where(squirrel.Eq{"id": id})

	if lock {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: %s - build select query: %v", ErrBuildQuery, method, err)
	}

	var row itemRow
	err = executor.QueryRowContext(ctx, query, args...).Scan(&row.ID, &row.Name, &row.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s - scan item: %w", ErrScanRow, method, err)
	}

	item, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("%s - id=%d: %w", method, id, err)
	}
	return item, nil
}

// itemRow строка таблицы items как она приходит из драйвера
type itemRow struct {
	ID       sql.NullInt64
	Name     sql.NullString
	Quantity sql.NullInt64
}

func (r itemRow) toDomain() (*domain.Item, error) {
	if !r.ID.Valid {
		return nil, fmt.Errorf("%w: id is NULL", ErrInvalidRow)
	}
	if !r.Name.Valid || r.Name.String == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidRow)
	}
	if !r.Quantity.Valid {
		return nil, fmt.Errorf("%w: quantity is NULL", ErrInvalidRow)
	}
	if r.Quantity.Int64 < 0 {
		return nil, fmt.Errorf("%w: quantity is negative (%d)", ErrInvalidRow, r.Quantity.Int64)
	}

	return &domain.Item{
		ID:            r.ID.Int64,
		Name:          r.Name.String,
		TotalQuantity: r.Quantity.Int64,
	}, nil
}
