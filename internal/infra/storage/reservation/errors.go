package reservation

import "errors"

var (
	// ErrReservationNotFound возвращается, когда бронирование не найдено
	ErrReservationNotFound = errors.New("reservation.repository: reservation not found")

	// ErrStatusConflict возвращается, когда статус бронирования изменился между чтением и обновлением
	ErrStatusConflict = errors.New("reservation.repository: reservation status changed concurrently")

	// ErrInvalidRow возвращается, когда строка из БД не проходит проверку
	ErrInvalidRow = errors.New("reservation.repository: invalid row")

	// ErrEmptyReservation возвращается при попытке сохранить бронирование без позиций
	ErrEmptyReservation = errors.New("reservation.repository: reservation has no line items")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("reservation.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("reservation.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("reservation.repository: failed to scan row")
)
