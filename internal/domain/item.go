package domain

// Item арендуемая позиция каталога (стол, стул, шатер и т.д.)
// Каталог ведется внешней админкой, сервис только читает
type Item struct {
	ID            int64
	Name          string
	TotalQuantity int64 // Всего единиц в собственности, не зависит от бронирований
}

// Availability результат расчета свободного остатка позиции на период
type Availability struct {
	Item              *Item
	Period            DateRange
	QuantityBlocked   int64 // Сумма по пересекающимся неотмененным бронированиям
	QuantityAvailable int64 // TotalQuantity - QuantityBlocked, может быть отрицательным
}

// NewAvailability считает свободный остаток. Значение не обрезается до нуля:
// при овербукинге (ручное вмешательство администратора) возвращается реальный отрицательный остаток
func NewAvailability(item *Item, period DateRange, blocked int64) Availability {
	return Availability{
		Item:              item,
		Period:            period,
		QuantityBlocked:   blocked,
		QuantityAvailable: item.TotalQuantity - blocked,
	}
}

// CanSatisfy возвращает true, если свободного остатка хватает на запрошенное количество
func (a Availability) CanSatisfy(quantity int64) bool {
	return a.QuantityAvailable >= quantity
}

// IsOverbooked возвращает true, если заблокировано больше, чем есть в наличии
func (a Availability) IsOverbooked() bool {
	return a.QuantityAvailable < 0
}
