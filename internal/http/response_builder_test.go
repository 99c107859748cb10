package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponseBuilderDefaults(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(rec)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestJSONResponseBuilderStatusAndHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusAccepted).
		Header("X-Request-ID", "req_abc").
		Write(rec)

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "req_abc" {
		t.Errorf("X-Request-ID = %q", got)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body should be empty without payload, got %q", rec.Body.String())
	}
}

func TestErrorResponseEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		builder *JSONResponseBuilder
		status  int
	}{
		{"bad request", BadRequestError("bad input"), http.StatusBadRequest},
		{"unauthorized", UnauthorizedError("who are you"), http.StatusUnauthorized},
		{"not found", NotFoundError("missing"), http.StatusNotFound},
		{"unprocessable", UnprocessableEntityError("invalid"), http.StatusUnprocessableEntity},
		{"internal", InternalServerError("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.builder.Write(rec)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var env errorEnvelope
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if env.Error == "" {
				t.Error("error envelope has empty message")
			}
		})
	}
}

func TestMethodNotAllowedSetsAllowHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	MethodNotAllowedError("GET, POST").Write(rec)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if got := rec.Header().Get("Allow"); got != "GET, POST" {
		t.Errorf("Allow = %q, want \"GET, POST\"", got)
	}
}
