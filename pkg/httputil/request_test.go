package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
)

func TestParseJSON(t *testing.T) {
	var dest struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"name":"users"}`))
	if err := ParseJSON(r, &dest); err != nil {
		t.Fatalf("ParseJSON() error = %v", err)
	}
	if dest.Name != "users" {
		t.Errorf("name = %q", dest.Name)
	}

	r = httptest.NewRequest("POST", "/", bytes.NewBufferString(`{not json`))
	if err := ParseJSON(r, &dest); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}

func TestParseJSONOrError(t *testing.T) {
	var dest struct{}
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{not json`))

	if ParseJSONOrError(w, r, &dest) {
		t.Error("expected false for malformed JSON")
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestParsePathParams(t *testing.T) {
	r := httptest.NewRequest("GET", "/history/users-src/3", nil)
	r = mux.SetURLVars(r, map[string]string{"sourceId": "users-src", "version": "3"})

	sourceID, err := ParsePathString(r, "sourceId")
	if err != nil || sourceID != "users-src" {
		t.Errorf("ParsePathString() = %q, %v", sourceID, err)
	}

	version, err := ParsePathInt(r, "version")
	if err != nil || version != 3 {
		t.Errorf("ParsePathInt() = %d, %v", version, err)
	}

	if _, err := ParsePathString(r, "missing"); err == nil {
		t.Error("expected an error for a missing parameter")
	}
}
