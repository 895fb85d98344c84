package domain

import (
	"time"
)

// ReservationStatus represents the status of a reservation
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "pending"
	StatusConfirmed ReservationStatus = "confirmed"
	StatusCompleted ReservationStatus = "completed"
	StatusCancelled ReservationStatus = "cancelled"
)

// allowedTransitions допустимые переходы статусов. Все переходы выполняет администратор вручную
var allowedTransitions = map[ReservationStatus][]ReservationStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValid returns true if the status is one of the known statuses
func (s ReservationStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// BlocksStock returns true if line items of a reservation in this status consume stock.
// Завершенные бронирования тоже учитываются при расчете пересечений
func (s ReservationStatus) BlocksStock() bool {
	return s != StatusCancelled
}

// IsTerminal returns true if no further transitions are possible
func (s ReservationStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// CanTransitionTo returns true if the status can be changed to next
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Reservation represents a client reservation that bundles several line items
type Reservation struct {
	ID        int64
	ClientID  int64 // Клиент ведется во внешней CRM-части админки
	Status    ReservationStatus
	Notes     *string
	Lines     []ReservationLineItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReservationLineItem одна позиция внутри бронирования: товар, количество и период
type ReservationLineItem struct {
	ID            int64
	ReservationID int64
	ItemID        int64
	Period        DateRange
	Quantity      int64
}

// TotalQuantity суммарное количество единиц по всем позициям бронирования
func (r *Reservation) TotalQuantity() int64 {
	var total int64
	for _, line := range r.Lines {
		total += line.Quantity
	}
	return total
}

// ItemIDs возвращает уникальные ID товаров бронирования в порядке появления
func (r *Reservation) ItemIDs() []int64 {
	seen := make(map[int64]struct{}, len(r.Lines))
	ids := make([]int64, 0, len(r.Lines))
	for _, line := range r.Lines {
		if _, ok := seen[line.ItemID]; ok {
			continue
		}
		seen[line.ItemID] = struct{}{}
		ids = append(ids, line.ItemID)
	}
	return ids
}

// ReservationFilter фильтр для получения списка бронирований
type ReservationFilter struct {
	Status   *ReservationStatus // Фильтр по статусу (опционально)
	ItemID   *int64             // Только бронирования, содержащие товар (опционально)
	ClientID *int64             // Фильтр по клиенту (опционально)
	Period   *DateRange         // Только бронирования с позициями, пересекающими период (опционально)
}
