package apperrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestExtractionFailureEmbedsCause(t *testing.T) {
	cause := errors.New("ocr: tessdata missing")
	err := ExtractionFailure(cause)

	if err.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("status = %d", err.HTTPStatus)
	}
	if !strings.Contains(err.Message, "tessdata missing") {
		t.Errorf("message = %q", err.Message)
	}
	if !errors.Is(err, cause) || !errors.Is(err, ErrExtractionFailure) {
		t.Error("expected both the cause and the kind to match")
	}
}

func TestAnalysisTimeoutIsDistinct(t *testing.T) {
	err := AnalysisTimeout(context.DeadlineExceeded)
	if !errors.Is(err, ErrAnalysisTimeout) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("timeout must match its kind and the context error")
	}
	if errors.Is(err, ErrUnsupportedFileType) {
		t.Fatal("timeout must not look like an unsupported type")
	}
	if err.HTTPStatus != http.StatusGatewayTimeout {
		t.Fatalf("status = %d", err.HTTPStatus)
	}
}

func TestFrom(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", UnsupportedFileType("a.txt", "pdf"))
	if got := From(wrapped); got.Code != "UNSUPPORTED_FILE_TYPE" || got.HTTPStatus != http.StatusBadRequest {
		t.Fatalf("From(wrapped) = %+v", got)
	}
	if got := From(errors.New("boom")); got.Code != "INTERNAL_ERROR" {
		t.Fatalf("From(plain) = %+v", got)
	}
}
