package check_availability

import "errors"

var (
	// ErrInvalidArgument возвращается при некорректных входных данных (ID, количество, даты)
	ErrInvalidArgument = errors.New("check_availability: invalid argument")

	// ErrItemNotFound возвращается, когда позиция каталога не найдена
	ErrItemNotFound = errors.New("check_availability: item not found")

	// ErrStorageUnavailable возвращается при любой ошибке хранилища
	ErrStorageUnavailable = errors.New("check_availability: storage unavailable")
)
