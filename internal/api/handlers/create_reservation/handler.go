package create_reservation

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/m04kA/SMC-RentalService/internal/api/handlers"
	"github.com/m04kA/SMC-RentalService/internal/api/middleware"
	createReservation "github.com/m04kA/SMC-RentalService/internal/usecase/create_reservation"
)

// Заголовки идемпотентности
const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgInvalidDate        = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgInvalidInput       = "некорректные данные бронирования"
	msgItemNotFound       = "позиция каталога не найдена"
	msgInsufficientStock  = "недостаточно свободного остатка: %s (id=%d) на %s, доступно %d, запрошено %d"
	msgRequestInProgress  = "запрос с этим ключом идемпотентности уже выполняется"
)

type Handler struct {
	useCase CreateReservationUseCase
	logger  Logger
}

func NewHandler(useCase CreateReservationUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/reservations
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	// Получаем userID из контекста (через middleware Auth)
	clientID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /reservations - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req CreateReservationRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /reservations - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest(clientID, r.Header.Get(IdempotencyKeyHeader))
	if err != nil {
		h.logger.Warn("POST /reservations - Failed to parse request: %v", err)
		handlers.RespondBadRequest(w, msgInvalidDate)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		var shortage *createReservation.StockShortageError
		switch {
		case errors.As(err, &shortage):
			h.logger.Warn("POST /reservations - Insufficient stock: client_id=%d, item_id=%d, available=%d",
				clientID, shortage.ItemID, shortage.Available)
			handlers.RespondJSON(w, http.StatusConflict, &InsufficientStockResponse{
				Error: fmt.Sprintf(msgInsufficientStock,
					shortage.ItemName, shortage.ItemID, shortage.Period, shortage.Available, shortage.Requested),
				ItemID:    shortage.ItemID,
				ItemName:  shortage.ItemName,
				DateFrom:  shortage.Period.From,
				DateTo:    shortage.Period.To,
				Requested: shortage.Requested,
				Available: shortage.Available,
			})

		case errors.Is(err, createReservation.ErrInvalidInput):
			h.logger.Warn("POST /reservations - Invalid input: client_id=%d, error=%v", clientID, err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, createReservation.ErrItemNotFound):
			h.logger.Warn("POST /reservations - Item not found: client_id=%d, error=%v", clientID, err)
			handlers.RespondNotFound(w, msgItemNotFound)

		case errors.Is(err, createReservation.ErrRequestInProgress):
			h.logger.Warn("POST /reservations - Request in progress: client_id=%d", clientID)
			handlers.RespondConflict(w, msgRequestInProgress)

		default:
			h.logger.Error("POST /reservations - Failed to create reservation: client_id=%d, error=%v", clientID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	if result.Replayed {
		h.logger.Info("POST /reservations - Replayed reservation: reservation_id=%d, client_id=%d", result.ID, clientID)
		w.Header().Set(ReplayedHeader, "true")
		handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
		return
	}

	h.logger.Info("POST /reservations - Reservation created successfully: reservation_id=%d, client_id=%d",
		result.ID, clientID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}
