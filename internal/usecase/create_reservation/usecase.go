package create_reservation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	"github.com/m04kA/SMC-RentalService/internal/infra/events"
	"github.com/m04kA/SMC-RentalService/internal/infra/idempotency"
	itemRepo "github.com/m04kA/SMC-RentalService/internal/infra/storage/item"
	checkAvailability "github.com/m04kA/SMC-RentalService/internal/usecase/check_availability"
	"github.com/m04kA/SMC-RentalService/pkg/metrics"
	"github.com/m04kA/SMC-RentalService/pkg/tracing"
)

// UseCase use case для создания бронирования
type UseCase struct {
	checker         AvailabilityChecker
	itemLocker      ItemLocker
	reservationRepo ReservationRepository
	txManager       TransactionManager
	idempotency     IdempotencyStore
	publisher       EventPublisher
	consistency     domain.ReservationConsistency
	metrics         Metrics
	timeProvider    TimeProvider
	tracer          trace.Tracer
	logger          Logger
}

// NewUseCase создает новый экземпляр use case.
// idempotencyStore и m могут быть nil. Неизвестный уровень consistency заменяется на transactional.
func NewUseCase(
	checker AvailabilityChecker,
	itemLocker ItemLocker,
	reservationRepo ReservationRepository,
	txManager TransactionManager,
	idempotencyStore IdempotencyStore,
	publisher EventPublisher,
	consistency domain.ReservationConsistency,
	m Metrics,
	logger Logger,
) *UseCase {
	if !consistency.IsValid() {
		consistency = domain.DefaultReservationConsistency
	}
	if m == nil {
		m = noopMetrics{}
	}
	return &UseCase{
		checker:         checker,
		itemLocker:      itemLocker,
		reservationRepo: reservationRepo,
		txManager:       txManager,
		idempotency:     idempotencyStore,
		publisher:       publisher,
		consistency:     consistency,
		metrics:         m,
		timeProvider:    &RealTimeProvider{},
		tracer:          tracing.Tracer(),
		logger:          logger,
	}
}

// Execute выполняет use case создания бронирования.
// В режиме transactional проверка остатка и вставка выполняются в одной сериализуемой транзакции
// с блокировкой строк товаров, в режиме check_then_create проверка идет до транзакции.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (resp *Response, err error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidInput)
	}

	ctx, span := uc.tracer.Start(ctx, "CreateReservation", trace.WithAttributes(
		attribute.Int64("rental.client_id", req.ClientID),
		attribute.Int("rental.lines", len(req.Lines)),
		attribute.String("rental.consistency", string(uc.consistency)),
	))
	defer func() {
		uc.metrics.IncReservation(outcome(resp, err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int64("rental.reservation_id", resp.ID))
		}
		span.End()
	}()

	uc.logger.Info("CreateReservation: client=%d, lines=%d, consistency=%s",
		req.ClientID, len(req.Lines), uc.consistency)

	// 1. Валидация входных данных
	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateReservation: validation failed: %v", err)
		return nil, err
	}

	// 2. Ключ идемпотентности: повтор возвращает ранее созданное бронирование
	idemKey := uc.idempotencyKey(req)
	if idemKey != "" {
		stored, reserveErr := uc.idempotency.Reserve(ctx, idemKey)
		if reserveErr != nil {
			if errors.Is(reserveErr, idempotency.ErrRequestInProgress) {
				uc.logger.Warn("CreateReservation: request with key %q is in progress", idemKey)
				return nil, ErrRequestInProgress
			}
			uc.logger.Error("CreateReservation: failed to reserve idempotency key %q: %v", idemKey, reserveErr)
			return nil, fmt.Errorf("%w: idempotency: %w", ErrInternal, reserveErr)
		}
		if stored != nil {
			return uc.replay(ctx, idemKey, stored.ReservationID)
		}

		defer func() {
			if err == nil {
				return
			}
			if releaseErr := uc.idempotency.Release(context.WithoutCancel(ctx), idemKey); releaseErr != nil {
				uc.logger.Error("CreateReservation: failed to release idempotency key %q: %v", idemKey, releaseErr)
			}
		}()
	}

	// 3. Проверка остатка и вставка
	var created *domain.Reservation
	switch uc.consistency {
	case domain.ConsistencyCheckThenCreate:
		created, err = uc.checkThenCreate(ctx, req)
	default:
		created, err = uc.createTransactional(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	uc.logger.Info("CreateReservation: reservation id=%d created for client=%d", created.ID, created.ClientID)

	// 4. Запоминаем результат для повторов с тем же ключом
	if idemKey != "" {
		if err := uc.idempotency.MarkSuccess(ctx, idemKey, created.ID); err != nil {
			uc.logger.Error("CreateReservation: failed to store idempotency result for key %q: %v", idemKey, err)
		}
	}

	// 5. Событие публикуется только после коммита, ошибка публикации не отменяет бронирование
	uc.publishCreated(ctx, created)

	return fromDomain(created, false), nil
}

func (uc *UseCase) idempotencyKey(req *Request) string {
	if uc.idempotency == nil || req.IdempotencyKey == "" {
		return ""
	}
	return fmt.Sprintf("%d:%s", req.ClientID, req.IdempotencyKey)
}

func (uc *UseCase) replay(ctx context.Context, key string, reservationID int64) (*Response, error) {
	res, err := uc.reservationRepo.GetByID(ctx, reservationID)
	if err != nil {
		uc.logger.Error("CreateReservation: failed to load reservation id=%d for key %q: %v", reservationID, key, err)
		return nil, fmt.Errorf("%w: load replayed reservation: %w", ErrInternal, err)
	}
	uc.logger.Info("CreateReservation: replaying reservation id=%d for key %q", reservationID, key)
	return fromDomain(res, true), nil
}

// checkThenCreate проверка вне транзакции. Между проверкой и вставкой другой запрос
// может занять тот же остаток.
func (uc *UseCase) checkThenCreate(ctx context.Context, req *Request) (*domain.Reservation, error) {
	if err := uc.checkLines(ctx, req.Lines); err != nil {
		return nil, err
	}

	var created *domain.Reservation
	err := uc.txManager.Do(ctx, func(txCtx context.Context) error {
		var err error
		created, err = uc.reservationRepo.Create(txCtx, newReservation(req))
		return err
	})
	if err != nil {
		uc.logger.Error("CreateReservation: failed to create reservation: %v", err)
		return nil, fmt.Errorf("%w: failed to create reservation: %w", ErrInternal, err)
	}
	return created, nil
}

// createTransactional блокирует строки товаров в порядке возрастания ID, заново считает
// пересечения и вставляет бронирование в той же транзакции
func (uc *UseCase) createTransactional(ctx context.Context, req *Request) (*domain.Reservation, error) {
	var created *domain.Reservation
	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		for _, itemID := range distinctItemIDs(req.Lines) {
			if _, err := uc.itemLocker.GetByIDForUpdate(txCtx, itemID); err != nil {
				if errors.Is(err, itemRepo.ErrItemNotFound) {
					uc.logger.Warn("CreateReservation: item id=%d not found", itemID)
					return fmt.Errorf("%w: id=%d", ErrItemNotFound, itemID)
				}
				return fmt.Errorf("%w: failed to lock item id=%d: %w", ErrInternal, itemID, err)
			}
		}

		if err := uc.checkLines(txCtx, req.Lines); err != nil {
			return err
		}

		var err error
		created, err = uc.reservationRepo.Create(txCtx, newReservation(req))
		if err != nil {
			return fmt.Errorf("%w: failed to create reservation: %w", ErrInternal, err)
		}
		return nil
	})
	if err != nil {
		if isBusinessError(err) {
			return nil, err
		}
		uc.logger.Error("CreateReservation: transaction failed: %v", err)
		if errors.Is(err, ErrInternal) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInternal, err)
	}
	return created, nil
}

// checkLines проверяет каждую позицию через AvailabilityChecker, вычитая то,
// что уже запросили предыдущие позиции этого же запроса
func (uc *UseCase) checkLines(ctx context.Context, lines []LineRequest) error {
	for i, line := range lines {
		check, err := uc.checker.Execute(ctx, &checkAvailability.Request{
			ItemID:   line.ItemID,
			DateFrom: line.DateFrom,
			DateTo:   line.DateTo,
			Quantity: line.Quantity,
		})
		if err != nil {
			switch {
			case errors.Is(err, checkAvailability.ErrItemNotFound):
				return fmt.Errorf("%w: id=%d", ErrItemNotFound, line.ItemID)
			case errors.Is(err, checkAvailability.ErrInvalidArgument):
				return fmt.Errorf("%w: line %d: %v", ErrInvalidInput, i, err)
			default:
				return fmt.Errorf("%w: check availability for item id=%d: %w", ErrInternal, line.ItemID, err)
			}
		}

		available := check.QuantityAvailable - requestedBefore(lines, i)
		if available < line.Quantity {
			shortage := &StockShortageError{
				ItemID:    line.ItemID,
				ItemName:  check.ItemName,
				Period:    domain.NewDateRange(line.DateFrom, line.DateTo),
				Requested: line.Quantity,
				Available: available,
			}
			uc.logger.Warn("CreateReservation: %v", shortage)
			return shortage
		}
	}
	return nil
}

func (uc *UseCase) publishCreated(ctx context.Context, res *domain.Reservation) {
	if uc.publisher == nil {
		return
	}
	event, err := events.NewReservationCreated(res, uc.timeProvider.Now())
	if err != nil {
		uc.logger.Error("CreateReservation: failed to build event for reservation id=%d: %v", res.ID, err)
		return
	}
	if err := uc.publisher.Publish(ctx, event); err != nil {
		uc.logger.Error("CreateReservation: failed to publish %s for reservation id=%d: %v", event.Type, res.ID, err)
	}
}

func newReservation(req *Request) *domain.Reservation {
	lines := make([]domain.ReservationLineItem, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, domain.ReservationLineItem{
			ItemID:   l.ItemID,
			Period:   domain.NewDateRange(l.DateFrom, l.DateTo),
			Quantity: l.Quantity,
		})
	}
	return &domain.Reservation{
		ClientID: req.ClientID,
		Status:   domain.StatusPending,
		Notes:    req.Notes,
		Lines:    lines,
	}
}

func distinctItemIDs(lines []LineRequest) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ItemID]; ok {
			continue
		}
		seen[l.ItemID] = struct{}{}
		ids = append(ids, l.ItemID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func isBusinessError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrInvalidInput)
}

func outcome(resp *Response, err error) string {
	switch {
	case err == nil && resp.Replayed:
		return metrics.ReservationReplayed
	case err == nil:
		return metrics.ReservationCreated
	case errors.Is(err, ErrInsufficientStock):
		return metrics.ReservationInsufficientStock
	case isBusinessError(err), errors.Is(err, ErrRequestInProgress):
		return metrics.ReservationRejected
	default:
		return metrics.ReservationError
	}
}
