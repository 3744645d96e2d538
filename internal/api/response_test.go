package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slotline/slotline/internal/models"
)

func TestWriteJSONResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONResponse(rec, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("unexpected status %q", resp.Status)
	}
}

func TestWriteJSONResponseFallsBackOnMarshalError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSONResponse(rec, http.StatusOK, func() {})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on marshal failure, got %d", rec.Code)
	}
	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("fallback body not JSON: %v", err)
	}
	if resp.Status != string(models.APIStatusError) {
		t.Errorf("unexpected fallback status %q", resp.Status)
	}
}
