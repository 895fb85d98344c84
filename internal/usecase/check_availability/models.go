package check_availability

import (
	"github.com/m04kA/SMC-RentalService/pkg/types"
)

// Request модель запроса проверки доступности
type Request struct {
	ItemID   int64      // ID позиции каталога
	DateFrom types.Date // Начало периода (включительно)
	DateTo   types.Date // Конец периода (включительно)
	Quantity int64      // Сколько единиц нужно
}

// Response результат проверки доступности
type Response struct {
	ItemID            int64
	ItemName          string
	TotalStock        int64
	QuantityBlocked   int64 // Занято пересекающимися неотмененными бронированиями
	QuantityAvailable int64 // TotalStock - QuantityBlocked, может быть отрицательным
	Available         bool  // QuantityAvailable >= RequestedQuantity
	DateFrom          types.Date
	DateTo            types.Date
	RequestedQuantity int64
}
