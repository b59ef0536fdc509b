package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseBuilder_JSON(t *testing.T) {
	w := httptest.NewRecorder()

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/datasets/abc").
		JSON(map[string]string{"id": "abc"}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := w.Header().Get("Location"); got != "/api/datasets/abc" {
		t.Errorf("Location = %q", got)
	}
	if w.Body.String() != `{"id":"abc"}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestResponseBuilder_Body(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().Body("image/png", []byte{0x89, 'P', 'N', 'G'}).Write(w)

	if got := w.Header().Get("Content-Type"); got != "image/png" {
		t.Errorf("Content-Type = %q", got)
	}
	if w.Body.Len() != 4 {
		t.Errorf("Body length = %d, want 4", w.Body.Len())
	}
}

func TestResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewResponse().JSON(math.Inf(1)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		builder    *ResponseBuilder
		wantStatus int
		wantError  string
	}{
		{name: "bad request", builder: BadRequestError("invalid year"), wantStatus: http.StatusBadRequest, wantError: "invalid year"},
		{name: "unprocessable entity", builder: UnprocessableEntityError("missing column"), wantStatus: http.StatusUnprocessableEntity, wantError: "missing column"},
		{name: "internal server error", builder: InternalServerError("boom"), wantStatus: http.StatusInternalServerError, wantError: "boom"},
		{name: "not found", builder: NotFoundError("unknown dataset"), wantStatus: http.StatusNotFound, wantError: "unknown dataset"},
		{name: "unavailable", builder: ServiceUnavailableError("no broker"), wantStatus: http.StatusServiceUnavailable, wantError: "no broker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Error != tt.wantError || body.Status != tt.wantStatus {
				t.Errorf("body = %+v", body)
			}
		})
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()

	MethodNotAllowedError("GET").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if got := w.Header().Get("Allow"); got != "GET" {
		t.Errorf("Allow = %q, want GET", got)
	}
}
