package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type itemBody struct {
	VariantID string `json:"product_variant_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"`
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_variant_id":"nope","quantity":1}`))
	var body itemBody
	err := DecodeJSONBody(req, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	details := pkgerrors.As(err).Details().(map[string]string)
	require.Equal(t, "must be a valid UUID", details["product_variant_id"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_variant_id":"`+uuid.NewString()+`","qty":1}`))
	var body itemBody
	require.True(t, pkgerrors.IsCode(DecodeJSONBody(req, &body), pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyRequiresBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	var body itemBody
	err := DecodeJSONBody(req, &body)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Equal(t, "request body required", pkgerrors.As(err).Message())
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rc := chi.NewRouteContext()
	rc.URLParams.Add("id", id.String())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseUUIDParam(req, "id")
	require.NoError(t, err)
	require.Equal(t, id, got)

	rc.URLParams = chi.RouteParams{}
	rc.URLParams.Add("id", "42")
	_, err = ParseUUIDParam(req, "id")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestParseQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500", nil)
	_, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	v, err := ParseQueryInt(req, "limit", 20, 1, 100)
	require.NoError(t, err)
	require.Equal(t, 20, v)
}
