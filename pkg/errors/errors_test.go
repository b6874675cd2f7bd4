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
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected", detailsOK: true},
		{code: CodePayloadTooLarge, status: http.StatusRequestEntityTooLarge, publicMsg: "payload too large"},
		{code: CodeUnsupportedMedia, status: http.StatusUnsupportedMediaType, publicMsg: "unsupported media type", detailsOK: true},
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

	base.WithDetails(map[string]any{"field": "foo"})
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

	formatted := Newf(CodeNotFound, "unit %s not found", "cl")
	if formatted.Message() != "unit cl not found" {
		t.Fatalf("unexpected formatted message %q", formatted.Message())
	}
}

func TestAsAndIsCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeForbidden, "no entry"))
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if !IsCode(err, CodeForbidden) {
		t.Fatalf("expected IsCode to match wrapped error")
	}
	if IsCode(stdErrors.New("plain"), CodeForbidden) {
		t.Fatalf("plain errors should not match a code")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDiagnoseCollectsChain(t *testing.T) {
	err := fmt.Errorf("confirm import: %w", Wrap(CodeConflict, stdErrors.New("duplicate"), "cocktail exists"))
	d := Diagnose(err)
	if d.Code != CodeConflict {
		t.Fatalf("expected conflict code, got %s", d.Code)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d: %v", len(d.Chain), d.Chain)
	}
	fields := d.Fields()
	if fields["error_code"] != string(CodeConflict) {
		t.Fatalf("unexpected fields %v", fields)
	}
	if _, ok := fields["pg_code"]; ok {
		t.Fatalf("empty postgres fields should be omitted: %v", fields)
	}
}

func TestDiagnoseReadsPostgresFields(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "idx_menus_slug", TableName: "menus"}
	d := Diagnose(Wrap(CodeConflict, fmt.Errorf("insert menu: %w", pgErr), "slug taken"))
	if d.PGCode != "23505" || d.PGConstraint != "idx_menus_slug" || d.PGTable != "menus" {
		t.Fatalf("unexpected diagnostics %+v", d)
	}
	if d.Fields()["pg_constraint"] != "idx_menus_slug" {
		t.Fatalf("constraint missing from fields")
	}
}

func TestIsCodeLooksPastOuterError(t *testing.T) {
	inner := New(CodeNotFound, "unit missing")
	err := Wrap(CodeInternal, fmt.Errorf("load recipe: %w", inner), "recipe unavailable")
	if !IsCode(err, CodeNotFound) || !IsCode(err, CodeInternal) {
		t.Fatalf("expected both codes in chain")
	}
	if IsCode(err, CodeConflict) {
		t.Fatalf("conflict is not in the chain")
	}
	if As(err).Code() != CodeInternal {
		t.Fatalf("As should return the outermost typed error")
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("dial tcp: refused"), "redis unavailable")
	if got := err.Error(); got != "DEPENDENCY_ERROR: redis unavailable: dial tcp: refused" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := New(CodeNotFound, "menu").Error(); got != "NOT_FOUND: menu" {
		t.Fatalf("unexpected error string %q", got)
	}
	if MetadataFor(CodeRateLimit).Retryable != true {
		t.Fatalf("rate limited requests are retryable")
	}
}
