package check_availability

import (
	"fmt"

	"github.com/m04kA/SMC-RentalService/internal/domain"
)

// validateRequest валидирует входные данные запроса
func validateRequest(req *Request, policy domain.DateOrderPolicy) error {
	if req.ItemID <= 0 {
		return fmt.Errorf("%w: item_id must be positive", ErrInvalidArgument)
	}

	if req.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidArgument)
	}

	if req.DateFrom.IsZero() {
		return fmt.Errorf("%w: date_from is required", ErrInvalidArgument)
	}

	if req.DateTo.IsZero() {
		return fmt.Errorf("%w: date_to is required", ErrInvalidArgument)
	}

	// В режиме passthrough перевернутый период уходит в запрос как есть
	if policy == domain.DateOrderStrict && req.DateFrom.After(req.DateTo) {
		return fmt.Errorf("%w: date_from %s is after date_to %s", ErrInvalidArgument, req.DateFrom, req.DateTo)
	}

	return nil
}
