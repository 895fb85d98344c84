package models

import (
	"errors"
	"time"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	"github.com/m04kA/SMC-RentalService/pkg/types"
)

var (
	// ErrInvalidStatus возвращается при некорректном статусе
	ErrInvalidStatus = errors.New("invalid reservation status")

	// ErrInvalidPeriod возвращается, когда задана только одна граница периода или она перевернута
	ErrInvalidPeriod = errors.New("invalid period")
)

// Request модели

// ListRequest фильтр списка бронирований, все поля опциональны
type ListRequest struct {
	Status   *string
	ItemID   *int64
	ClientID *int64
	DateFrom *types.Date
	DateTo   *types.Date
}

// ToDomainFilter конвертирует request в domain фильтр
func (r *ListRequest) ToDomainFilter() (domain.ReservationFilter, error) {
	filter := domain.ReservationFilter{
		ItemID:   r.ItemID,
		ClientID: r.ClientID,
	}

	if r.Status != nil {
		status, err := ToDomainStatus(*r.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	// Окно задается обеими датами
	if (r.DateFrom == nil) != (r.DateTo == nil) {
		return filter, ErrInvalidPeriod
	}
	if r.DateFrom != nil {
		period := domain.NewDateRange(*r.DateFrom, *r.DateTo)
		if err := period.Validate(); err != nil {
			return filter, errors.Join(ErrInvalidPeriod, err)
		}
		filter.Period = &period
	}

	return filter, nil
}

// UpdateStatusRequest запрос на смену статуса бронирования
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Response модели

// ReservationResponse ответ с данными бронирования
type ReservationResponse struct {
	ID        int64          `json:"id"`
	ClientID  int64          `json:"client_id"`
	Status    string         `json:"status"`
	Notes     *string        `json:"notes,omitempty"`
	Lines     []LineResponse `json:"lines"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// LineResponse позиция бронирования
type LineResponse struct {
	ID       int64      `json:"id"`
	ItemID   int64      `json:"item_id"`
	DateFrom types.Date `json:"date_from"`
	DateTo   types.Date `json:"date_to"`
	Quantity int64      `json:"quantity"`
}

// ReservationListResponse ответ со списком бронирований
type ReservationListResponse struct {
	Reservations []ReservationResponse `json:"reservations"`
}

// StatusChangeResponse результат смены статуса
type StatusChangeResponse struct {
	ID        int64     `json:"id"`
	From      string    `json:"from"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Методы конвертации

// FromDomainReservation конвертирует domain модель в DTO
func FromDomainReservation(r *domain.Reservation) *ReservationResponse {
	if r == nil {
		return nil
	}

	lines := make([]LineResponse, len(r.Lines))
	for i, l := range r.Lines {
		lines[i] = LineResponse{
			ID:       l.ID,
			ItemID:   l.ItemID,
			DateFrom: l.Period.From,
			DateTo:   l.Period.To,
			Quantity: l.Quantity,
		}
	}

	return &ReservationResponse{
		ID:        r.ID,
		ClientID:  r.ClientID,
		Status:    string(r.Status),
		Notes:     r.Notes,
		Lines:     lines,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// FromDomainReservationList конвертирует список domain моделей в DTO
func FromDomainReservationList(list []*domain.Reservation) *ReservationListResponse {
	resp := &ReservationListResponse{
		Reservations: make([]ReservationResponse, 0, len(list)),
	}
	for _, r := range list {
		if item := FromDomainReservation(r); item != nil {
			resp.Reservations = append(resp.Reservations, *item)
		}
	}
	return resp
}

// ToDomainStatus конвертирует строку в domain.ReservationStatus с валидацией
func ToDomainStatus(status string) (domain.ReservationStatus, error) {
	s := domain.ReservationStatus(status)
	if !s.IsValid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}
