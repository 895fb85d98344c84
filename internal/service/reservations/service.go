package reservations

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	"github.com/m04kA/SMC-RentalService/internal/infra/events"
	reservationRepo "github.com/m04kA/SMC-RentalService/internal/infra/storage/reservation"
	"github.com/m04kA/SMC-RentalService/internal/service/reservations/models"
)

// Service сервис для чтения бронирований и смены их статуса администратором
type Service struct {
	reservationRepo ReservationRepository
	publisher       EventPublisher
	timeProvider    TimeProvider
	logger          Logger
}

// NewService создает новый экземпляр сервиса бронирований. publisher может быть nil.
func NewService(
	reservationRepo ReservationRepository,
	publisher EventPublisher,
	logger Logger,
) *Service {
	return &Service{
		reservationRepo: reservationRepo,
		publisher:       publisher,
		timeProvider:    realTimeProvider{},
		logger:          logger,
	}
}

// GetByID получает бронирование со всеми позициями
func (s *Service) GetByID(ctx context.Context, id int64) (*models.ReservationResponse, error) {
	s.logger.Info("GetByID: fetching reservation id=%d", id)

	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			s.logger.Warn("GetByID: reservation id=%d not found", id)
			return nil, ErrReservationNotFound
		}
		s.logger.Error("GetByID: repository error for reservation id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainReservation(reservation), nil
}

// List получает бронирования по фильтру, новые первыми.
// Период отбирает бронирования, у которых хотя бы одна позиция пересекает окно.
func (s *Service) List(ctx context.Context, req *models.ListRequest) (*models.ReservationListResponse, error) {
	filter, err := req.ToDomainFilter()
	if err != nil {
		s.logger.Warn("List: invalid filter: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	reservations, err := s.reservationRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("List: repository error: %v", err)
		return nil, fmt.Errorf("%w: List - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("List: fetched %d reservations", len(reservations))
	return models.FromDomainReservationList(reservations), nil
}

// UpdateStatus меняет статус по таблице переходов и публикует reservation.status_changed.
// Обновление условное (WHERE status = текущий), поэтому параллельная смена статуса дает ErrStatusConflict.
func (s *Service) UpdateStatus(ctx context.Context, id int64, req *models.UpdateStatusRequest) (*models.StatusChangeResponse, error) {
	s.logger.Info("UpdateStatus: updating reservation id=%d to status=%s", id, req.Status)

	// 1. Валидация статуса
	next, err := models.ToDomainStatus(req.Status)
	if err != nil {
		s.logger.Warn("UpdateStatus: invalid status=%q for reservation id=%d", req.Status, id)
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	// 2. Текущий статус
	reservation, err := s.reservationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrReservationNotFound) {
			s.logger.Warn("UpdateStatus: reservation id=%d not found", id)
			return nil, ErrReservationNotFound
		}
		s.logger.Error("UpdateStatus: repository error for reservation id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: UpdateStatus - repository error: %v", ErrInternal, err)
	}

	// 3. Таблица переходов
	current := reservation.Status
	if !current.CanTransitionTo(next) {
		s.logger.Warn("UpdateStatus: transition %s -> %s not allowed for reservation id=%d", current, next, id)
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}

	// 4. Условное обновление
	updatedAt, err := s.reservationRepo.UpdateStatus(ctx, id, current, next)
	if err != nil {
		if errors.Is(err, reservationRepo.ErrStatusConflict) {
			s.logger.Warn("UpdateStatus: reservation id=%d changed concurrently", id)
			return nil, ErrStatusConflict
		}
		s.logger.Error("UpdateStatus: repository error for reservation id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: UpdateStatus - repository error: %v", ErrInternal, err)
	}

	s.logger.Info("UpdateStatus: reservation id=%d %s -> %s", id, current, next)

	// 5. Событие для диспетчера уведомлений
	s.publishStatusChanged(ctx, id, current, next)

	return &models.StatusChangeResponse{
		ID:        id,
		From:      string(current),
		Status:    string(next),
		UpdatedAt: updatedAt,
	}, nil
}

func (s *Service) publishStatusChanged(ctx context.Context, id int64, from, to domain.ReservationStatus) {
	if s.publisher == nil {
		return
	}
	event, err := events.NewReservationStatusChanged(id, from, to, s.timeProvider.Now())
	if err != nil {
		s.logger.Error("UpdateStatus: failed to build event for reservation id=%d: %v", id, err)
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("UpdateStatus: failed to publish %s for reservation id=%d: %v", event.Type, id, err)
	}
}
