package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestReadyz(t *testing.T) {
	failing := func(context.Context) error { return errors.New("down") }
	healthy := func(context.Context) error { return nil }

	tests := []struct {
		name       string
		checks     []ReadyCheck
		wantStatus int
	}{
		{name: "no checks", wantStatus: http.StatusOK},
		{name: "all healthy", checks: []ReadyCheck{{Name: "db", Check: healthy}}, wantStatus: http.StatusOK},
		{name: "required failing", checks: []ReadyCheck{{Name: "db", Check: failing}}, wantStatus: http.StatusServiceUnavailable},
		{name: "optional failing", checks: []ReadyCheck{{Name: "db", Check: healthy}, {Name: "redis", Check: failing, Optional: true}}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := NewBaseMuxWithReady(tt.checks...)
			rw := httptest.NewRecorder()
			mux.ServeHTTP(rw, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			if rw.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rw.Code)
			}
			var report readyReport
			if err := json.Unmarshal(rw.Body.Bytes(), &report); err != nil {
				t.Fatalf("invalid report: %v", err)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Fatalf("expected %d check results, got %d", len(tt.checks), len(report.Checks))
			}
		})
	}
}
