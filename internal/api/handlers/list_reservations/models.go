package list_reservations

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/m04kA/SMC-RentalService/internal/service/reservations/models"
	"github.com/m04kA/SMC-RentalService/pkg/types"
)

// ToServiceRequest формирует запрос к сервису из query параметров
func ToServiceRequest(q url.Values) (*models.ListRequest, error) {
	req := &models.ListRequest{}

	if v := q.Get("status"); v != "" {
		req.Status = &v
	}

	var err error
	if req.ItemID, err = optionalInt(q, "item_id"); err != nil {
		return nil, err
	}
	if req.ClientID, err = optionalInt(q, "client_id"); err != nil {
		return nil, err
	}
	if req.DateFrom, err = optionalDate(q, "date_from"); err != nil {
		return nil, err
	}
	if req.DateTo, err = optionalDate(q, "date_to"); err != nil {
		return nil, err
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
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &v, nil
}

func optionalDate(q url.Values, key string) (*types.Date, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	d, err := types.ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &d, nil
}
