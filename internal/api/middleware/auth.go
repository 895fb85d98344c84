package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-RentalService/internal/api/handlers"
)

// Заголовки по умолчанию, их выставляет gateway админки
const (
	DefaultUserIDHeader = "X-User-ID"
	DefaultRoleHeader   = "X-User-Role"
	DefaultAdminRole    = "admin"
)

const (
	msgMissingUserID = "отсутствует или некорректен ID пользователя"
	msgForbidden     = "доступ запрещен"
)

type contextKey int

const (
	userIDKey contextKey = iota
	userRoleKey
	requestIDKey
)

// Auth требует положительный числовой ID пользователя в заголовке и кладет его в контекст
func Auth(header string) mux.MiddlewareFunc {
	if header == "" {
		header = DefaultUserIDHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := strconv.ParseInt(r.Header.Get(header), 10, 64)
			if err != nil || userID <= 0 {
				handlers.RespondUnauthorized(w, msgMissingUserID)
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin пропускает только запросы с ролью администратора
func RequireAdmin(header, adminRole string) mux.MiddlewareFunc {
	if header == "" {
		header = DefaultRoleHeader
	}
	if adminRole == "" {
		adminRole = DefaultAdminRole
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := r.Header.Get(header)
			if role != adminRole {
				handlers.RespondForbidden(w, msgForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), userRoleKey, role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID ID пользователя, положенный Auth
func GetUserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userIDKey).(int64)
	return id, ok
}

// GetUserRole роль пользователя, положенная RequireAdmin
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(userRoleKey).(string)
	return role, ok
}
