package create_reservation

import (
	"context"
	"time"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	"github.com/m04kA/SMC-RentalService/internal/infra/events"
	"github.com/m04kA/SMC-RentalService/internal/infra/idempotency"
	checkAvailability "github.com/m04kA/SMC-RentalService/internal/usecase/check_availability"
)

// AvailabilityChecker проверка доступности одной позиции
type AvailabilityChecker interface {
	Execute(ctx context.Context, req *checkAvailability.Request) (*checkAvailability.Response, error)
}

// ReservationRepository интерфейс репозитория бронирований
type ReservationRepository interface {
	Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
}

// ItemLocker блокирует строку позиции каталога до конца транзакции
type ItemLocker interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Item, error)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// IdempotencyStore хранилище ключей идемпотентности
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (*idempotency.Result, error)
	MarkSuccess(ctx context.Context, key string, reservationID int64) error
	Release(ctx context.Context, key string) error
}

// EventPublisher публикация доменных событий
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Metrics счетчик попыток создания бронирований
type Metrics interface {
	IncReservation(outcome string)
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}

type noopMetrics struct{}

func (noopMetrics) IncReservation(string) {}
