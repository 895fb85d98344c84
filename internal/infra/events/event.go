package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-RentalService/internal/domain"
)

// Типы событий
const (
	TypeReservationCreated       = "reservation.created"
	TypeReservationStatusChanged = "reservation.status_changed"
)

// SchemaVersion версия формата событий
const SchemaVersion = 1

// Event доменное событие в формате, который читает внешний диспетчер уведомлений
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Version    int             `json:"version"`
	OccurredAt time.Time       `json:"occurred_at"`
	Key        string          `json:"-"` // Ключ партиционирования (ID бронирования)
	Payload    json.RawMessage `json:"payload"`
}

// LineItemPayload позиция бронирования в событии
type LineItemPayload struct {
	ItemID   int64  `json:"item_id"`
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
	Quantity int64  `json:"quantity"`
}

// ReservationCreatedPayload payload события reservation.created
type ReservationCreatedPayload struct {
	ReservationID int64             `json:"reservation_id"`
	ClientID      int64             `json:"client_id"`
	Status        string            `json:"status"`
	Lines         []LineItemPayload `json:"lines"`
}

// StatusChangedPayload payload события reservation.status_changed
type StatusChangedPayload struct {
	ReservationID int64  `json:"reservation_id"`
	From          string `json:"from"`
	To            string `json:"to"`
}

func newEvent(eventType string, key int64, payload interface{}, now time.Time) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Version:    SchemaVersion,
		OccurredAt: now.UTC(),
		Key:        strconv.FormatInt(key, 10),
		Payload:    raw,
	}, nil
}

// NewReservationCreated событие о новом бронировании
func NewReservationCreated(res *domain.Reservation, now time.Time) (Event, error) {
	lines := make([]LineItemPayload, 0, len(res.Lines))
	for _, l := range res.Lines {
		lines = append(lines, LineItemPayload{
			ItemID:   l.ItemID,
			DateFrom: l.Period.From.String(),
			DateTo:   l.Period.To.String(),
			Quantity: l.Quantity,
		})
	}
	return newEvent(TypeReservationCreated, res.ID, ReservationCreatedPayload{
		ReservationID: res.ID,
		ClientID:      res.ClientID,
		Status:        string(res.Status),
		Lines:         lines,
	}, now)
}

// NewReservationStatusChanged событие о смене статуса
func NewReservationStatusChanged(reservationID int64, from, to domain.ReservationStatus, now time.Time) (Event, error) {
	return newEvent(TypeReservationStatusChanged, reservationID, StatusChangedPayload{
		ReservationID: reservationID,
		From:          string(from),
		To:            string(to),
	}, now)
}
