// Package idempotency хранилище ключей идемпотентности создания бронирований.
// Ключ проходит состояния: нет -> processing -> success (с ID бронирования).
// При ошибке ключ освобождается, и запрос можно повторить.
package idempotency

import (
	"context"
	"time"
)

// DefaultTTL сколько хранится ключ
const DefaultTTL = 24 * time.Hour

const (
	statusProcessing = "processing"
	statusSuccess    = "success"
)

// Result состояние ключа, найденного при резервировании
type Result struct {
	ReservationID int64
}

// Store хранилище ключей идемпотентности
type Store interface {
	// Reserve помечает ключ как processing. Если по ключу уже есть успешный результат,
	// возвращает его; если ключ в работе - ErrRequestInProgress; если ключ свободен - (nil, nil).
	Reserve(ctx context.Context, key string) (*Result, error)
	// MarkSuccess сохраняет ID созданного бронирования
	MarkSuccess(ctx context.Context, key string, reservationID int64) error
	// Release освобождает ключ после неудачной попытки
	Release(ctx context.Context, key string) error
}

type state struct {
	Status        string `json:"status"`
	ReservationID int64  `json:"reservation_id,omitempty"`
}
