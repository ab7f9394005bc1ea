package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	if IsRetryable(Validation("bad payload")) {
		t.Fatalf("validation errors must not be retried")
	}
	if IsRetryable(NotFound("no such lead")) {
		t.Fatalf("reference failures must not be retried")
	}
	if IsRetryable(Conflict("already exists")) {
		t.Fatalf("conflicts must not be retried")
	}
	if !IsRetryable(External("crm unreachable", errors.New("dial timeout"))) {
		t.Fatalf("external failures must be retried")
	}
	if !IsRetryable(errors.New("plain failure")) {
		t.Fatalf("untyped errors default to retryable")
	}
}

func TestIsRetryable_WrappedChain(t *testing.T) {
	err := fmt.Errorf("ingest webhook: %w", Validation("unknown status"))
	if IsRetryable(err) {
		t.Fatalf("retryability must survive wrapping")
	}
	if GetKind(err) != KindValidation {
		t.Fatalf("expected validation kind through the chain, got %v", GetKind(err))
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{NotFound("x"), 404},
		{Validation("x"), 400},
		{BadRequest("x"), 400},
		{Conflict("x"), 409},
		{Unauthorized("x"), 401},
		{External("x", nil), 502},
		{Internal("x"), 500},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Fatalf("kind %v: expected status %d, got %d", tc.err.Kind, tc.want, got)
		}
	}
}

func TestErrorFormatting(t *testing.T) {
	err := Processing("scoring", "factor table empty").WithOp("rescore")
	if err.Error() != "rescore [scoring]: factor table empty" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
