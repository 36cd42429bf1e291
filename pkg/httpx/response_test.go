package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRespondError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, http.StatusBadRequest, errors.New("bad altitude"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Equal(t, "Bad Request", body.Error)
	require.Equal(t, "bad altitude", body.Message)
}

type altitudeRequest struct {
	Feet int `json:"feet"`
}

func decode(t *testing.T, contentType, body string, limit int64) (altitudeRequest, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	var v altitudeRequest
	err := DecodeJSON(httptest.NewRecorder(), req, limit, &v)
	return v, err
}

func TestDecodeJSON(t *testing.T) {
	v, err := decode(t, "application/json; charset=utf-8", `{"feet": 5280}`, 1024)
	require.NoError(t, err)
	require.Equal(t, 5280, v.Feet)

	v, err = decode(t, "", `{"feet": 10}`, 1024)
	require.NoError(t, err)
	require.Equal(t, 10, v.Feet)

	_, err = decode(t, "text/plain", `{"feet": 10}`, 1024)
	require.ErrorContains(t, err, "content type")

	_, err = decode(t, "application/json", `{"meters": 10}`, 1024)
	require.ErrorContains(t, err, "invalid JSON")

	_, err = decode(t, "application/json", `{"feet": 1234567890}`, 8)
	require.ErrorContains(t, err, "exceeds 8 bytes")
}
