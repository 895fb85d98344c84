package item

import "errors"

var (
	// ErrItemNotFound возвращается, когда позиция каталога не найдена
	ErrItemNotFound = errors.New("item.repository: item not found")

	// ErrInvalidRow возвращается, когда строка из БД не проходит проверку (NULL или отрицательный остаток)
	ErrInvalidRow = errors.New("item.repository: invalid item row")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("item.repository: failed to build query")

	// ErrScanRow возвращается при ошибке выполнения запроса или сканирования результата
	ErrScanRow = errors.New("item.repository: failed to scan row")
)
