package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeInvalidQuantity, status: http.StatusBadRequest, publicMsg: "quantity must be greater than zero", detailsOK: true},
		{code: CodeEmptyCart, status: http.StatusBadRequest, publicMsg: "cart is empty"},
		{code: CodeOrderNotPending, status: http.StatusBadRequest, publicMsg: "order is not pending payment", detailsOK: true},
		{code: CodeGatewayUnavailable, status: http.StatusServiceUnavailable, publicMsg: "payment gateway unavailable", retryable: true},
		{code: CodeInvalidSignature, status: http.StatusBadRequest, publicMsg: "invalid signature"},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeEmptyCart, "cart has no items")
	outer := fmt.Errorf("checkout: %w", inner)
	if !IsCode(outer, CodeEmptyCart) {
		t.Fatalf("expected wrapped code to be detected")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatalf("plain errors carry no code")
	}
}

func TestDiagnoseCollectsChain(t *testing.T) {
	err := Wrap(CodeInternal, stdErrors.New("disk full"), "persist order")
	d := Diagnose(err)
	if d.Code != CodeInternal {
		t.Fatalf("expected internal code, got %s", d.Code)
	}
	if len(d.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %v", d.Chain)
	}
	fields := d.LogFields()
	if _, ok := fields["sql_state"]; ok {
		t.Fatalf("expected no database fields, got %v", fields)
	}
	if fields["error_code"] != string(CodeInternal) {
		t.Fatalf("unexpected error_code %v", fields["error_code"])
	}
	if empty := Diagnose(nil); empty.Message != "" || empty.Chain != nil {
		t.Fatalf("expected empty diagnostics for nil")
	}
}

func TestDiagnosePostgresConditions(t *testing.T) {
	cases := []struct {
		err       error
		condition string
		transient bool
	}{
		{&pgconn.PgError{Code: "40P01", Message: "deadlock detected", TableName: "cart_items"}, "deadlock_detected", true},
		{&pq.Error{Code: "23505", Constraint: "payments_razorpay_order_id_key"}, "unique_violation", false},
		{&pgconn.PgError{Code: "22001"}, "", false},
	}
	for _, tc := range cases {
		d := Diagnose(Wrap(CodeDependency, tc.err, "checkout"))
		if d.Condition != tc.condition {
			t.Fatalf("expected condition %q, got %q", tc.condition, d.Condition)
		}
		if d.Transient() != tc.transient {
			t.Fatalf("expected transient=%v for %s", tc.transient, d.SQLState)
		}
		fields := d.LogFields()
		if fields["sql_state"] != d.SQLState || fields["db_transient"] != tc.transient {
			t.Fatalf("unexpected log fields %v", fields)
		}
	}
}
