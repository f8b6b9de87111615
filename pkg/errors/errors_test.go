package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataFor(t *testing.T) {
	meta := MetadataFor(CodeNotFound)
	if meta.HTTPStatus != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", meta.HTTPStatus)
	}

	meta = MetadataFor(CodeImageDecode)
	if meta.HTTPStatus != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status for image decode: %d", meta.HTTPStatus)
	}

	meta = MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to internal, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "storing blob")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be discoverable via errors.Is")
	}
	if err.Error() != "DEPENDENCY_ERROR: storing blob" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestAs(t *testing.T) {
	inner := New(CodeConflict, "duplicate product name")
	wrapped := fmt.Errorf("creating stock: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeConflict {
		t.Fatalf("unexpected code: %s", typed.Code())
	}

	if As(stdErrors.New("plain")) != nil {
		t.Fatal("plain error should not convert")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeNotFound, "stock 42 not found"))
	if !HasCode(err, CodeNotFound) {
		t.Fatal("expected NOT_FOUND in chain")
	}
	if HasCode(err, CodeConflict) {
		t.Fatal("did not expect CONFLICT")
	}
}
