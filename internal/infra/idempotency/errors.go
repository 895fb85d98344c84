package idempotency

import "errors"

var (
	// ErrRequestInProgress запрос с этим ключом уже выполняется
	ErrRequestInProgress = errors.New("idempotency: request with this key is in progress")

	// ErrStore ошибка хранилища ключей
	ErrStore = errors.New("idempotency: store error")
)
