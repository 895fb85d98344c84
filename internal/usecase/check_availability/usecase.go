package check_availability

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	itemRepo "github.com/m04kA/SMC-RentalService/internal/infra/storage/item"
	"github.com/m04kA/SMC-RentalService/pkg/metrics"
	"github.com/m04kA/SMC-RentalService/pkg/tracing"
)

// UseCase проверка доступности позиции на период
type UseCase struct {
	itemRepo   ItemRepository
	ledgerRepo LedgerRepository
	policy     domain.DateOrderPolicy
	metrics    Metrics
	tracer     trace.Tracer
	logger     Logger
}

// NewUseCase создает новый экземпляр use case.
// metrics может быть nil (метрики выключены), неизвестная policy заменяется на strict.
func NewUseCase(
	itemRepo ItemRepository,
	ledgerRepo LedgerRepository,
	policy domain.DateOrderPolicy,
	m Metrics,
	logger Logger,
) *UseCase {
	if !policy.IsValid() {
		policy = domain.DefaultDateOrderPolicy
	}
	if m == nil {
		m = noopMetrics{}
	}
	return &UseCase{
		itemRepo:   itemRepo,
		ledgerRepo: ledgerRepo,
		policy:     policy,
		metrics:    m,
		tracer:     tracing.Tracer(),
		logger:     logger,
	}
}

// Policy текущая политика порядка дат
func (uc *UseCase) Policy() domain.DateOrderPolicy {
	return uc.policy
}

// Execute считает свободный остаток позиции на период и сравнивает его с запрошенным количеством.
// Выполняет не более двух запросов на чтение, ничего не пишет и не ретраит.
// Если в ctx есть транзакция, запросы выполняются в ней.
func (uc *UseCase) Execute(ctx context.Context, req *Request) (resp *Response, err error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidArgument)
	}

	ctx, span := uc.tracer.Start(ctx, "CheckAvailability", trace.WithAttributes(
		attribute.Int64("rental.item_id", req.ItemID),
		attribute.Int64("rental.quantity", req.Quantity),
		attribute.String("rental.date_from", req.DateFrom.String()),
		attribute.String("rental.date_to", req.DateTo.String()),
	))
	defer func() {
		uc.metrics.IncAvailabilityCheck(checkResult(resp, err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Bool("rental.available", resp.Available),
				attribute.Int64("rental.quantity_available", resp.QuantityAvailable),
			)
		}
		span.End()
	}()

	// 1. Валидация входных данных
	if err := validateRequest(req, uc.policy); err != nil {
		uc.logger.Warn("CheckAvailability: validation failed: %v", err)
		return nil, err
	}

	// 2. Получаем позицию каталога
	item, err := uc.itemRepo.GetByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, itemRepo.ErrItemNotFound) {
			uc.logger.Warn("CheckAvailability: item id=%d not found", req.ItemID)
			return nil, fmt.Errorf("%w: id=%d", ErrItemNotFound, req.ItemID)
		}
		uc.logger.Error("CheckAvailability: failed to get item id=%d: %v", req.ItemID, err)
		return nil, fmt.Errorf("%w: failed to get item: %w", ErrStorageUnavailable, err)
	}

	// 3. Считаем занятое количество по пересекающимся бронированиям
	period := domain.NewDateRange(req.DateFrom, req.DateTo)
	blocked, err := uc.ledgerRepo.SumOverlappingQuantity(ctx, item.ID, period)
	if err != nil {
		uc.logger.Error("CheckAvailability: failed to sum overlapping quantity for item id=%d, period=%s: %v",
			item.ID, period, err)
		return nil, fmt.Errorf("%w: failed to sum overlapping quantity: %w", ErrStorageUnavailable, err)
	}

	// 4. Свободный остаток без обрезки до нуля
	availability := domain.NewAvailability(item, period, blocked)
	if availability.IsOverbooked() {
		uc.logger.Warn("CheckAvailability: item id=%d is overbooked on %s: total=%d, blocked=%d",
			item.ID, period, item.TotalQuantity, blocked)
	}

	return &Response{
		ItemID:            item.ID,
		ItemName:          item.Name,
		TotalStock:        item.TotalQuantity,
		QuantityBlocked:   availability.QuantityBlocked,
		QuantityAvailable: availability.QuantityAvailable,
		Available:         availability.CanSatisfy(req.Quantity),
		DateFrom:          req.DateFrom,
		DateTo:            req.DateTo,
		RequestedQuantity: req.Quantity,
	}, nil
}

func checkResult(resp *Response, err error) string {
	switch {
	case err == nil && resp.Available:
		return metrics.CheckResultAvailable
	case err == nil:
		return metrics.CheckResultUnavailable
	case errors.Is(err, ErrInvalidArgument):
		return metrics.CheckResultInvalid
	case errors.Is(err, ErrItemNotFound):
		return metrics.CheckResultNotFound
	default:
		return metrics.CheckResultError
	}
}
