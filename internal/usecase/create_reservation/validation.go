package create_reservation

import (
	"fmt"

	"github.com/m04kA/SMC-RentalService/internal/domain"
)

const maxIdempotencyKeyLength = 255

// validateRequest валидирует входные данные запроса.
// Порядок дат проверяется всегда, независимо от политики проверки доступности.
func validateRequest(req *Request) error {
	if req.ClientID <= 0 {
		return fmt.Errorf("%w: clientID must be positive", ErrInvalidInput)
	}

	if len(req.Lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrInvalidInput)
	}

	if len(req.Lines) > domain.MaxLinesPerReservation {
		return fmt.Errorf("%w: too many lines (max %d)", ErrInvalidInput, domain.MaxLinesPerReservation)
	}

	if req.Notes != nil && len(*req.Notes) > domain.MaxNotesLength {
		return fmt.Errorf("%w: notes too long (max %d)", ErrInvalidInput, domain.MaxNotesLength)
	}

	if len(req.IdempotencyKey) > maxIdempotencyKeyLength {
		return fmt.Errorf("%w: idempotency key too long (max %d)", ErrInvalidInput, maxIdempotencyKeyLength)
	}

	for i, line := range req.Lines {
		if err := validateLine(line); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidInput, i, err)
		}
	}

	return nil
}

func validateLine(line LineRequest) error {
	if line.ItemID <= 0 {
		return fmt.Errorf("item_id must be positive")
	}
	if line.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}
	if line.Quantity > domain.MaxQuantityPerLine {
		return fmt.Errorf("quantity exceeds %d", domain.MaxQuantityPerLine)
	}
	if line.DateFrom.IsZero() || line.DateTo.IsZero() {
		return fmt.Errorf("date_from and date_to are required")
	}
	if err := domain.NewDateRange(line.DateFrom, line.DateTo).Validate(); err != nil {
		return err
	}
	return nil
}

// requestedBefore сколько единиц того же товара уже запрошено предыдущими позициями запроса
// с пересекающимися периодами
func requestedBefore(lines []LineRequest, idx int) int64 {
	current := lines[idx]
	period := domain.NewDateRange(current.DateFrom, current.DateTo)

	var sum int64
	for _, prev := range lines[:idx] {
		if prev.ItemID != current.ItemID {
			continue
		}
		if domain.NewDateRange(prev.DateFrom, prev.DateTo).Overlaps(period) {
			sum += prev.Quantity
		}
	}
	return sum
}
