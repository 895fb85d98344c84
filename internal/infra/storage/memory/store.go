// Package memory хранилище каталога и бронирований в памяти процесса.
// Повторяет семантику SQL репозиториев (включая предикат пересечения и ошибки),
// используется в тестах и для локального запуска без Postgres.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	itemRepo "github.com/m04kA/SMC-RentalService/internal/infra/storage/item"
	reservationRepo "github.com/m04kA/SMC-RentalService/internal/infra/storage/reservation"
)

// Store общее состояние для ItemRepository и ReservationRepository
type Store struct {
	mu           sync.RWMutex
	items        map[int64]domain.Item
	reservations map[int64]*domain.Reservation
	nextResID    int64
	nextLineID   int64
	now          func() time.Time

	// txMu сериализует транзакции DoSerializable между собой
	txMu sync.Mutex
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		items:        make(map[int64]domain.Item),
		reservations: make(map[int64]*domain.Reservation),
		now:          time.Now,
	}
}

// PutItem добавляет или заменяет позицию каталога
func (s *Store) PutItem(item domain.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

// AddReservation сохраняет бронирование как есть (с любым статусом), минуя проверки.
// Нужен для подготовки данных в тестах.
func (s *Store) AddReservation(res domain.Reservation) *domain.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := s.insertLocked(res)
	return cloneReservation(stored)
}

// Items репозиторий каталога поверх хранилища
func (s *Store) Items() *ItemRepository {
	return &ItemRepository{store: s}
}

// Reservations репозиторий бронирований поверх хранилища
func (s *Store) Reservations() *ReservationRepository {
	return &ReservationRepository{store: s}
}

// DoSerializable выполняет fn, не допуская параллельного выполнения других транзакций.
// Отката нет: изменения, сделанные fn до ошибки, остаются.
func (s *Store) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}

// Do то же, что DoSerializable
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.DoSerializable(ctx, fn)
}

func (s *Store) insertLocked(res domain.Reservation) *domain.Reservation {
	s.nextResID++
	now := s.now()

	stored := cloneReservation(&res)
	stored.ID = s.nextResID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = stored.CreatedAt
	for i := range stored.Lines {
		s.nextLineID++
		stored.Lines[i].ID = s.nextLineID
		stored.Lines[i].ReservationID = stored.ID
	}

	s.reservations[stored.ID] = stored
	return stored
}

// ItemRepository реализация репозитория каталога в памяти
type ItemRepository struct {
	store *Store
}

func (r *ItemRepository) GetByID(_ context.Context, id int64) (*domain.Item, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	item, ok := r.store.items[id]
	if !ok {
		return nil, itemRepo.ErrItemNotFound
	}
	return &item, nil
}

// GetByIDForUpdate в памяти блокировка строки не нужна: транзакции уже сериализованы
func (r *ItemRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Item, error) {
	return r.GetByID(ctx, id)
}

// ReservationRepository реализация репозитория бронирований в памяти
type ReservationRepository struct {
	store *Store
}

func (r *ReservationRepository) SumOverlappingQuantity(_ context.Context, itemID int64, period domain.DateRange) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var sum int64
	for _, res := range r.store.reservations {
		if !res.Status.BlocksStock() {
			continue
		}
		for _, line := range res.Lines {
			// Тот же предикат, что в SQL: date_from <= period.To AND date_to >= period.From
			if line.ItemID == itemID && line.Period.Overlaps(period) {
				sum += line.Quantity
			}
		}
	}
	return sum, nil
}

func (r *ReservationRepository) Create(_ context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	if len(res.Lines) == 0 {
		return nil, reservationRepo.ErrEmptyReservation
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored := r.store.insertLocked(*res)
	return cloneReservation(stored), nil
}

func (r *ReservationRepository) GetByID(_ context.Context, id int64) (*domain.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	res, ok := r.store.reservations[id]
	if !ok {
		return nil, reservationRepo.ErrReservationNotFound
	}
	return cloneReservation(res), nil
}

func (r *ReservationRepository) List(_ context.Context, filter domain.ReservationFilter) ([]*domain.Reservation, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	result := []*domain.Reservation{}
	for _, res := range r.store.reservations {
		if matches(res, filter) {
			result = append(result, cloneReservation(res))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

func (r *ReservationRepository) UpdateStatus(_ context.Context, id int64, from, to domain.ReservationStatus) (time.Time, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	res, ok := r.store.reservations[id]
	if !ok || res.Status != from {
		return time.Time{}, reservationRepo.ErrStatusConflict
	}
	res.Status = to
	res.UpdatedAt = r.store.now()
	return res.UpdatedAt, nil
}

func matches(res *domain.Reservation, filter domain.ReservationFilter) bool {
	if filter.Status != nil && res.Status != *filter.Status {
		return false
	}
	if filter.ClientID != nil && res.ClientID != *filter.ClientID {
		return false
	}
	if filter.ItemID == nil && filter.Period == nil {
		return true
	}
	for _, line := range res.Lines {
		if filter.ItemID != nil && line.ItemID != *filter.ItemID {
			continue
		}
		if filter.Period != nil && !line.Period.Overlaps(*filter.Period) {
			continue
		}
		return true
	}
	return false
}

func cloneReservation(res *domain.Reservation) *domain.Reservation {
	c := *res
	if res.Notes != nil {
		notes := *res.Notes
		c.Notes = &notes
	}
	c.Lines = append([]domain.ReservationLineItem(nil), res.Lines...)
	return &c
}
