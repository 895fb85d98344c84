package domain

import (
	"errors"
	"fmt"

	"github.com/m04kA/SMC-RentalService/pkg/types"
)

// ErrInvertedRange возвращается, когда дата начала позже даты окончания
var ErrInvertedRange = errors.New("date range: date_from is after date_to")

// DateRange диапазон календарных дат, включительно с обеих сторон
type DateRange struct {
	From types.Date
	To   types.Date
}

// NewDateRange создает диапазон без проверки порядка дат
func NewDateRange(from, to types.Date) DateRange {
	return DateRange{From: from, To: to}
}

// Validate проверяет, что обе даты заданы и From <= To
func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("date range: both dates are required")
	}
	if r.IsInverted() {
		return fmt.Errorf("%w: %s > %s", ErrInvertedRange, r.From, r.To)
	}
	return nil
}

// IsInverted возвращает true, если From позже To
func (r DateRange) IsInverted() bool {
	return r.From.After(r.To)
}

// Overlaps проверяет пересечение двух диапазонов как замкнутых интервалов:
// A.From <= B.To && A.To >= B.From
// Диапазоны, которые только касаются граничным днем, считаются пересекающимися
//
// Примеры:
// - [03-10, 03-12] и [03-12, 03-14] → ЕСТЬ пересечение (общий день 03-12)
// - [03-10, 03-12] и [03-13, 03-15] → НЕТ пересечения
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.From.After(other.To) && !r.To.Before(other.From)
}

// Contains возвращает true, если дата попадает в диапазон
func (r DateRange) Contains(d types.Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Days количество календарных дней в диапазоне (0 для перевернутого диапазона)
func (r DateRange) Days() int {
	if r.IsInverted() {
		return 0
	}
	return r.From.DaysUntil(r.To) + 1
}

// String возвращает диапазон в виде "YYYY-MM-DD..YYYY-MM-DD"
func (r DateRange) String() string {
	return r.From.String() + ".." + r.To.String()
}
