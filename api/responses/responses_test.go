package responses

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var body types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestWriteSuccessStatus(t *testing.T) {
	w := httptest.NewRecorder()
	WriteSuccessStatus(w, http.StatusCreated, map[string]string{"hello": "world"})

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var body types.DataEnvelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Equal(t, "world", body.Data.(map[string]any)["hello"])
}

func TestWriteJSONSkipsEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestWriteErrorMapsTypedError(t *testing.T) {
	w := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeValidation, "bad input").
		WithDetails(map[string]string{"field": "demo"})
	WriteError(context.Background(), nil, w, err)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	require.Equal(t, string(pkgerrors.CodeValidation), body.Error.Code)
	require.Equal(t, "bad input", body.Error.Message)
	require.NotNil(t, body.Error.Details)
}

func TestWriteErrorCommerceCodes(t *testing.T) {
	cases := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeInvalidQuantity, http.StatusBadRequest},
		{pkgerrors.CodeEmptyCart, http.StatusBadRequest},
		{pkgerrors.CodeOrderNotPending, http.StatusBadRequest},
		{pkgerrors.CodeGatewayUnavailable, http.StatusServiceUnavailable},
		{pkgerrors.CodeInvalidSignature, http.StatusBadRequest},
		{pkgerrors.CodeNotFound, http.StatusNotFound},
	}
	logg := logger.New(logger.Options{Output: io.Discard})
	for _, tc := range cases {
		w := httptest.NewRecorder()
		WriteError(context.Background(), logg, w, pkgerrors.New(tc.code, "x"))
		require.Equal(t, tc.status, w.Code, tc.code)
		require.Equal(t, string(tc.code), decodeError(t, w).Error.Code)
	}
}

func TestWriteErrorDefaultsToInternalForUntrustedErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(context.Background(), nil, w, errors.New("boom"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	require.Equal(t, string(pkgerrors.CodeInternal), body.Error.Code)
	require.Equal(t, "internal server error", body.Error.Message)
	require.Nil(t, body.Error.Details)
}
