package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
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
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "cart session required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodePaymentFailed, status: http.StatusPaymentRequired, publicMsg: "payment failed", retryable: true, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeRateLimited, status: http.StatusTooManyRequests, publicMsg: "too many requests", retryable: true},
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

func TestPublicMessageHidesServerSideText(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{err: New(CodeNotFound, "product not found"), want: "product not found"},
		{err: New(CodeValidation, ""), want: "validation failed"},
		{err: Wrap(CodeDependency, stdErrors.New("dial tcp 10.0.0.3:6379"), "load cart"), want: "dependency unavailable"},
		{err: Wrap(CodeInternal, stdErrors.New("nil map"), "checkout"), want: "internal server error"},
		{err: nil, want: "internal server error"},
	}
	for _, tc := range cases {
		if got := tc.err.PublicMessage(); got != tc.want {
			t.Fatalf("%v: expected %q got %q", tc.err, tc.want, got)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeDependency, cause, "fetch products")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeDependency {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}

	outer := fmt.Errorf("handler: %w", wrapped)
	if !IsCode(outer, CodeDependency) {
		t.Fatalf("expected code to be found through fmt wrapping")
	}
	if IsCode(outer, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
}

func TestLogFieldsCollectChainAndCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(CodePaymentFailed, stdErrors.New("card declined"), "charge"))
	fields := LogFields(err)
	if fields["error_code"] != string(CodePaymentFailed) {
		t.Fatalf("expected payment code, got %v", fields["error_code"])
	}
	chain, _ := fields["error_chain"].([]string)
	if len(chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(chain), chain)
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("non-database errors should not carry pg fields: %v", fields)
	}
}

func TestLogFieldsIncludePostgresDetails(t *testing.T) {
	err := Wrap(CodeDependency, &pgconn.PgError{Code: "23505", ConstraintName: "cart_snapshots_pkey", TableName: "cart_snapshots"}, "save cart")
	fields := LogFields(err)
	if fields["pg_code"] != "23505" || fields["pg_table"] != "cart_snapshots" {
		t.Fatalf("unexpected pg fields %v", fields)
	}
}
