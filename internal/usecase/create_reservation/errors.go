package create_reservation

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-RentalService/internal/domain"
)

var (
	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_reservation: invalid input data")

	// ErrItemNotFound возвращается, когда позиция из запроса не найдена в каталоге
	ErrItemNotFound = errors.New("create_reservation: item not found")

	// ErrInsufficientStock возвращается, когда хотя бы на одну позицию не хватает остатка
	ErrInsufficientStock = errors.New("create_reservation: insufficient stock")

	// ErrRequestInProgress возвращается, когда запрос с тем же ключом идемпотентности еще выполняется
	ErrRequestInProgress = errors.New("create_reservation: request with this idempotency key is in progress")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_reservation: internal error")
)

// StockShortageError подробности нехватки остатка по позиции
type StockShortageError struct {
	ItemID    int64
	ItemName  string
	Period    domain.DateRange
	Requested int64
	Available int64 // С учетом предыдущих позиций этого же запроса, может быть отрицательным
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("%v: item id=%d (%s) on %s: requested %d, available %d",
		ErrInsufficientStock, e.ItemID, e.ItemName, e.Period, e.Requested, e.Available)
}

func (e *StockShortageError) Unwrap() error {
	return ErrInsufficientStock
}
