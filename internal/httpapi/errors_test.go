package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/benariet/SemScan-Project-sub001/internal/domain"
)

func render(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/test", nil)
	Error(c, nil, err)
	return w
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		kind domain.Kind
		want int
	}{
		{domain.KindMissingIdentity, http.StatusUnauthorized},
		{domain.KindSlotNotFound, http.StatusNotFound},
		{domain.KindTokenMismatch, http.StatusForbidden},
		{domain.KindTokenExpired, http.StatusGone},
		{domain.KindTooEarly, http.StatusUnprocessableEntity},
		{domain.KindSlotFull, http.StatusConflict},
		{domain.KindAlreadyOnWaitingList, http.StatusConflict},
	}
	for _, tt := range tests {
		w := render(t, domain.E(tt.kind, uuid.New(), "dana", "boom"))
		if w.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.kind, w.Code, tt.want)
		}
		var body struct {
			Success bool   `json:"success"`
			Code    string `json:"code"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: bad body: %v", tt.kind, err)
		}
		if body.Success || body.Code != string(tt.kind) {
			t.Errorf("%s: body = %+v", tt.kind, body)
		}
	}
}

func TestErrorCarriesBoundary(t *testing.T) {
	boundary := time.Date(2026, 3, 15, 9, 50, 0, 0, time.UTC)
	w := render(t, domain.EAt(domain.KindTooEarly, uuid.New(), "dana", boundary, "too early"))

	var body struct {
		Boundary time.Time `json:"boundary"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if !body.Boundary.Equal(boundary) {
		t.Errorf("boundary = %v, want %v", body.Boundary, boundary)
	}
}

func TestErrorHidesInfrastructureFailures(t *testing.T) {
	w := render(t, errors.New("pg: connection refused"))
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if got := w.Body.String(); got == "" || !json.Valid([]byte(got)) {
		t.Errorf("body = %q", got)
	}
}
