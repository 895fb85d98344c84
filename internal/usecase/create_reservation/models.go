package create_reservation

import (
	"time"

	"github.com/m04kA/SMC-RentalService/internal/domain"
	"github.com/m04kA/SMC-RentalService/pkg/types"
)

// Request модель запроса на создание бронирования
type Request struct {
	ClientID       int64   // ID клиента (из X-User-ID)
	Notes          *string // Заметки (опционально)
	IdempotencyKey string  // Заголовок Idempotency-Key (опционально)
	Lines          []LineRequest
}

// LineRequest позиция бронирования в запросе
type LineRequest struct {
	ItemID   int64
	DateFrom types.Date
	DateTo   types.Date
	Quantity int64
}

// Response модель ответа с созданным бронированием
type Response struct {
	ID        int64
	ClientID  int64
	Status    domain.ReservationStatus
	Notes     *string
	Lines     []LineResponse
	CreatedAt time.Time
	UpdatedAt time.Time
	Replayed  bool // Бронирование уже было создано ранее с этим ключом идемпотентности
}

// LineResponse позиция созданного бронирования
type LineResponse struct {
	ID       int64
	ItemID   int64
	DateFrom types.Date
	DateTo   types.Date
	Quantity int64
}

func fromDomain(res *domain.Reservation, replayed bool) *Response {
	lines := make([]LineResponse, 0, len(res.Lines))
	for _, l := range res.Lines {
		lines = append(lines, LineResponse{
			ID:       l.ID,
			ItemID:   l.ItemID,
			DateFrom: l.Period.From,
			DateTo:   l.Period.To,
			Quantity: l.Quantity,
		})
	}
	return &Response{
		ID:        res.ID,
		ClientID:  res.ClientID,
		Status:    res.Status,
		Notes:     res.Notes,
		Lines:     lines,
		CreatedAt: res.CreatedAt,
		UpdatedAt: res.UpdatedAt,
		Replayed:  replayed,
	}
}
