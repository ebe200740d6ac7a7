package httpapi

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/smartstudy/companion/internal/apperr"
)

func TestWriteError_MapsKindsToStatus(t *testing.T) {
	cases := []struct {
		err      error
		wantCode int
	}{
		{apperr.Validation("bad field"), http.StatusBadRequest},
		{apperr.Conflict("overlaps", "14:00-15:00"), http.StatusConflict},
		{apperr.NotFound("session not found"), http.StatusNotFound},
		{apperr.Forbidden("cannot edit completed session"), http.StatusBadRequest},
		{apperr.Auth("missing token"), http.StatusUnauthorized},
		{apperr.Store("db write failed", errors.New("disk full")), http.StatusInternalServerError},
		{errors.New("some untyped error"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		rr := httptest.NewRecorder()
		writeError(rr, c.err)
		if rr.Code != c.wantCode {
			t.Errorf("error %v: expected status %d, got %d", c.err, c.wantCode, rr.Code)
		}
	}
}

func TestWriteError_ConflictIncludesWindow(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, apperr.Conflict("overlaps an existing session", "14:00-15:30"))

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "14:00-15:30") {
		t.Errorf("expected body to include conflict window, got %s", body)
	}
}
