package check_availability

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-RentalService/internal/api/handlers"
	checkAvailability "github.com/m04kA/SMC-RentalService/internal/usecase/check_availability"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingField       = "обязательные поля: item_id, date_from, date_to, quantity"
	msgInvalidDate        = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgInvalidNumber      = "item_id и quantity должны быть целыми числами"
	msgInvalidArgument    = "некорректные параметры проверки: ID и количество должны быть положительными, date_from не позже date_to"
	msgItemNotFound       = "позиция каталога не найдена"
)

type Handler struct {
	useCase CheckAvailabilityUseCase
	logger  Logger
}

func NewHandler(useCase CheckAvailabilityUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/availability
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CheckAvailabilityRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /availability - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	h.check(w, r, &req)
}

// HandleQuery GET /api/v1/availability?item_id=&date_from=&date_to=&quantity=
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	req, err := FromQuery(r.URL.Query())
	if err != nil {
		h.logger.Warn("GET /availability - Invalid query: %v", err)
		handlers.RespondBadRequest(w, msgInvalidNumber)
		return
	}

	h.check(w, r, req)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request, req *CheckAvailabilityRequest) {
	useCaseReq, err := req.ToUseCaseRequest()
	if err != nil {
		h.logger.Warn("%s /availability - Failed to parse request: %v", r.Method, err)
		if errors.Is(err, errInvalidDate) {
			handlers.RespondBadRequest(w, msgInvalidDate)
		} else {
			handlers.RespondBadRequest(w, msgMissingField)
		}
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, checkAvailability.ErrInvalidArgument):
			h.logger.Warn("%s /availability - Invalid argument: %v", r.Method, err)
			handlers.RespondBadRequest(w, msgInvalidArgument)

		case errors.Is(err, checkAvailability.ErrItemNotFound):
			h.logger.Warn("%s /availability - Item not found: item_id=%d", r.Method, useCaseReq.ItemID)
			handlers.RespondNotFound(w, msgItemNotFound)

		default:
			h.logger.Error("%s /availability - Failed to check availability: item_id=%d, error=%v",
				r.Method, useCaseReq.ItemID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
