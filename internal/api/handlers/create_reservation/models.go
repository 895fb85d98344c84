package create_reservation

import (
	"fmt"
	"time"

	createReservation "github.com/m04kA/SMC-RentalService/internal/usecase/create_reservation"
	"github.com/m04kA/SMC-RentalService/pkg/types"
)

// CreateReservationRequest HTTP request model. ID клиента берется из X-User-ID
type CreateReservationRequest struct {
	Notes *string       `json:"notes,omitempty"`
	Lines []LineRequest `json:"lines"`
}

type LineRequest struct {
	ItemID   int64  `json:"item_id"`
	DateFrom string `json:"date_from"` // "2026-03-10"
	DateTo   string `json:"date_to"`
	Quantity int64  `json:"quantity"`
}

// ReservationResponse HTTP response model
type ReservationResponse struct {
	ID        int64          `json:"id"`
	ClientID  int64          `json:"client_id"`
	Status    string         `json:"status"`
	Notes     *string        `json:"notes,omitempty"`
	Lines     []LineResponse `json:"lines"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

type LineResponse struct {
	ID       int64      `json:"id"`
	ItemID   int64      `json:"item_id"`
	DateFrom types.Date `json:"date_from"`
	DateTo   types.Date `json:"date_to"`
	Quantity int64      `json:"quantity"`
}

// InsufficientStockResponse тело 409 при нехватке остатка
type InsufficientStockResponse struct {
	Error     string     `json:"error"`
	ItemID    int64      `json:"item_id"`
	ItemName  string     `json:"item_name"`
	DateFrom  types.Date `json:"date_from"`
	DateTo    types.Date `json:"date_to"`
	Requested int64      `json:"requested"`
	Available int64      `json:"available"`
}

// ToUseCaseRequest конвертирует HTTP запрос в модель use case (с парсингом дат)
func (r *CreateReservationRequest) ToUseCaseRequest(clientID int64, idempotencyKey string) (*createReservation.Request, error) {
	lines := make([]createReservation.LineRequest, 0, len(r.Lines))
	for i, l := range r.Lines {
		from, err := types.ParseDate(l.DateFrom)
		if err != nil {
			return nil, fmt.Errorf("line %d date_from: %w", i, err)
		}
		to, err := types.ParseDate(l.DateTo)
		if err != nil {
			return nil, fmt.Errorf("line %d date_to: %w", i, err)
		}
		lines = append(lines, createReservation.LineRequest{
			ItemID:   l.ItemID,
			DateFrom: from,
			DateTo:   to,
			Quantity: l.Quantity,
		})
	}

	return &createReservation.Request{
		ClientID:       clientID,
		Notes:          r.Notes,
		IdempotencyKey: idempotencyKey,
		Lines:          lines,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *createReservation.Response) *ReservationResponse {
	lines := make([]LineResponse, len(resp.Lines))
	for i, l := range resp.Lines {
		lines[i] = LineResponse{
			ID:       l.ID,
			ItemID:   l.ItemID,
			DateFrom: l.DateFrom,
			DateTo:   l.DateTo,
			Quantity: l.Quantity,
		}
	}

	return &ReservationResponse{
		ID:        resp.ID,
		ClientID:  resp.ClientID,
		Status:    string(resp.Status),
		Notes:     resp.Notes,
		Lines:     lines,
		CreatedAt: resp.CreatedAt.Format(time.RFC3339),
		UpdatedAt: resp.UpdatedAt.Format(time.RFC3339),
	}
}
