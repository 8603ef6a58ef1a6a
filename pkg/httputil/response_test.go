package httputil

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	if err := WriteJSON(w, 201, map[string]string{"name": "users"}); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	if w.Code != 201 {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if body["name"] != "users" {
		t.Errorf("body = %v", body)
	}
}

func TestWriteErrorMessage(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *httptest.ResponseRecorder)
		status int
	}{
		{"bad request", func(w *httptest.ResponseRecorder) { WriteBadRequest(w, "nope") }, 400},
		{"not found", func(w *httptest.ResponseRecorder) { WriteNotFoundError(w, "nope") }, 404},
		{"conflict", func(w *httptest.ResponseRecorder) { WriteConflict(w, "nope") }, 409},
		{"unprocessable", func(w *httptest.ResponseRecorder) { WriteUnprocessableEntity(w, "nope") }, 422},
		{"internal", func(w *httptest.ResponseRecorder) { WriteInternalError(w, fmt.Errorf("nope")) }, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid body: %v", err)
			}
			if body["error"] != "nope" {
				t.Errorf("error message = %q", body["error"])
			}
		})
	}
}
