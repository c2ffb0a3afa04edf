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
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodeEmptyCart, status: http.StatusBadRequest, publicMsg: "cart is empty"},
		{code: CodeOutOfStock, status: http.StatusConflict, publicMsg: "product is out of stock", detailsOK: true},
		{code: CodeInsufficientInventory, status: http.StatusConflict, publicMsg: "insufficient inventory", detailsOK: true},
		{code: CodePaymentFailed, status: http.StatusPaymentRequired, publicMsg: "payment failed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
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

func TestWrapKeepsCause(t *testing.T) {
	cause := stdErrors.New("connection reset")
	err := Wrap(CodeDependency, cause, "load cart")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped error to unwrap to cause")
	}
	wrapped := fmt.Errorf("checkout: %w", err)
	if !IsCode(wrapped, CodeDependency) {
		t.Fatalf("expected IsCode to see through fmt wrapping")
	}
	if As(wrapped).Message() != "load cart" {
		t.Fatalf("unexpected message %q", As(wrapped).Message())
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeInsufficientInventory, "insufficient inventory for Widget").
		WithDetails(map[string]any{"product_id": "p-1"})
	details, ok := err.Details().(map[string]any)
	if !ok || details["product_id"] != "p-1" {
		t.Fatalf("unexpected details %#v", err.Details())
	}
}

func TestDumpExtractsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email", TableName: "users"}
	err := Wrap(CodeConflict, fmt.Errorf("insert user: %w", pgErr), "create user")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", dump.Code)
	}
	if dump.PGCode != "23505" || dump.PGConstraint != "idx_users_email" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
	if len(dump.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(dump.Chain))
	}
}

func TestDumpFieldsOmitsEmptyPostgresValues(t *testing.T) {
	fields := Dump(Wrap(CodeConflict, stdErrors.New("duplicate"), "email taken")).Fields()
	if fields["error_code"] != CodeConflict {
		t.Fatalf("error_code = %v", fields["error_code"])
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("pg_code should be absent: %v", fields)
	}

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	fields = Dump(Wrap(CodeConflict, pgErr, "email taken")).Fields()
	if fields["pg_code"] != "23505" || fields["pg_constraint"] != "users_email_key" {
		t.Fatalf("unexpected pg fields: %v", fields)
	}
	if _, ok := fields["pg_table"]; ok {
		t.Fatalf("pg_table should be absent: %v", fields)
	}
}
