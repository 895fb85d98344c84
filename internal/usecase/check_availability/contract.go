package check_availability

import (
	"context"

	"github.com/m04kA/SMC-RentalService/internal/domain"
)

// ItemRepository интерфейс каталога позиций
type ItemRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
}

// LedgerRepository интерфейс журнала бронирований
type LedgerRepository interface {
	SumOverlappingQuantity(ctx context.Context, itemID int64, period domain.DateRange) (int64, error)
}

// Metrics счетчик проверок доступности
type Metrics interface {
	IncAvailabilityCheck(result string)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

type noopMetrics struct{}

func (noopMetrics) IncAvailabilityCheck(string) {}
