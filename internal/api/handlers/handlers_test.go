package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondConflict(rec, "нет в наличии")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"нет в наличии"}`, rec.Body.String())
}

func TestRespondInternalErrorHidesDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondInternalError(rec)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"внутренняя ошибка сервера"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		ItemID int64 `json:"item_id"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item_id": 3}`))
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, int64(3), dst.ItemID)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.ErrorIs(t, DecodeJSON(r, &dst), ErrEmptyBody)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item": 3}`))
	assert.Error(t, DecodeJSON(r, &dst))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"item_id": 3}{"item_id": 4}`))
	assert.Error(t, DecodeJSON(r, &dst))
}

func TestPathInt64(t *testing.T) {
	r := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"reservationId": "12"})
	id, err := PathInt64(r, "reservationId")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, raw := range []string{"0", "-1", "abc"} {
		r = mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"reservationId": raw})
		_, err = PathInt64(r, "reservationId")
		assert.ErrorIs(t, err, ErrInvalidPathParam, raw)
	}

	_, err = PathInt64(httptest.NewRequest(http.MethodGet, "/", nil), "reservationId")
	assert.ErrorIs(t, err, ErrInvalidPathParam)
}
