package check_availability

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	checkAvailability "github.com/m04kA/SMC-RentalService/internal/usecase/check_availability"
	"github.com/m04kA/SMC-RentalService/pkg/types"
)

var (
	errMissingField = errors.New("missing required field")
	errInvalidDate  = errors.New("invalid date format")
	errInvalidValue = errors.New("invalid numeric value")
)

// CheckAvailabilityRequest HTTP request model. Поля - указатели, чтобы отличать отсутствие от нуля
type CheckAvailabilityRequest struct {
	ItemID   *int64  `json:"item_id"`
	DateFrom *string `json:"date_from"` // "2026-03-10"
	DateTo   *string `json:"date_to"`
	Quantity *int64  `json:"quantity"`
}

// CheckAvailabilityResponse HTTP response model
type CheckAvailabilityResponse struct {
	ItemID            int64      `json:"item_id"`
	ItemName          string     `json:"item_name"`
	DateFrom          types.Date `json:"date_from"`
	DateTo            types.Date `json:"date_to"`
	Quantity          int64      `json:"quantity"`
	Available         bool       `json:"available"`
	QuantityAvailable int64      `json:"quantity_available"`
	QuantityBlocked   int64      `json:"quantity_blocked"`
	TotalStock        int64      `json:"total_stock"`
}

// FromQuery собирает ту же модель запроса из query параметров GET
func FromQuery(q url.Values) (*CheckAvailabilityRequest, error) {
	req := &CheckAvailabilityRequest{}

	var err error
	if req.ItemID, err = optionalInt(q, "item_id"); err != nil {
		return nil, err
	}
	if req.Quantity, err = optionalInt(q, "quantity"); err != nil {
		return nil, err
	}
	if v := q.Get("date_from"); v != "" {
		req.DateFrom = &v
	}
	if v := q.Get("date_to"); v != "" {
		req.DateTo = &v
	}
	return req, nil
}

func optionalInt(q url.Values, key string) (*int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", errInvalidValue, key, raw)
	}
	return &v, nil
}

// ToUseCaseRequest проверяет наличие полей и парсит даты
func (r *CheckAvailabilityRequest) ToUseCaseRequest() (*checkAvailability.Request, error) {
	switch {
	case r.ItemID == nil:
		return nil, fmt.Errorf("%w: item_id", errMissingField)
	case r.DateFrom == nil:
		return nil, fmt.Errorf("%w: date_from", errMissingField)
	case r.DateTo == nil:
		return nil, fmt.Errorf("%w: date_to", errMissingField)
	case r.Quantity == nil:
		return nil, fmt.Errorf("%w: quantity", errMissingField)
	}

	from, err := types.ParseDate(*r.DateFrom)
	if err != nil {
		return nil, fmt.Errorf("%w: date_from: %v", errInvalidDate, err)
	}
	to, err := types.ParseDate(*r.DateTo)
	if err != nil {
		return nil, fmt.Errorf("%w: date_to: %v", errInvalidDate, err)
	}

	return &checkAvailability.Request{
		ItemID:   *r.ItemID,
		DateFrom: from,
		DateTo:   to,
		Quantity: *r.Quantity,
	}, nil
}

// FromUseCaseResponse конвертирует ответ use case в HTTP response
func FromUseCaseResponse(resp *checkAvailability.Response) *CheckAvailabilityResponse {
	return &CheckAvailabilityResponse{
		ItemID:            resp.ItemID,
		ItemName:          resp.ItemName,
		DateFrom:          resp.DateFrom,
		DateTo:            resp.DateTo,
		Quantity:          resp.RequestedQuantity,
		Available:         resp.Available,
		QuantityAvailable: resp.QuantityAvailable,
		QuantityBlocked:   resp.QuantityBlocked,
		TotalStock:        resp.TotalStock,
	}
}
