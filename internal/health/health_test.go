package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func readyz(t *testing.T, h *Handler) (int, result) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest("GET", "/readyz", nil))
	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, body
}

func TestHealthz_AlwaysReturns200(t *testing.T) {
	rec := httptest.NewRecorder()
	New().Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReadyz(t *testing.T) {
	ok := func(context.Context) error { return nil }
	fail := func(context.Context) error { return errors.New("unreachable") }

	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
	}{
		{
			name:       "all pass",
			checkers:   []Checker{{Name: "llm", Check: ok}, {Name: "progress", Check: ok}},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "required fails",
			checkers:   []Checker{{Name: "llm", Check: ok}, {Name: "progress", Check: fail}},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
		},
		{
			name:       "optional fails",
			checkers:   []Checker{{Name: "llm", Check: ok}, {Name: "tts", Optional: true, Check: fail}},
			wantCode:   http.StatusOK,
			wantStatus: "degraded",
		},
		{
			name: "required beats optional",
			checkers: []Checker{
				{Name: "tts", Optional: true, Check: fail},
				{Name: "progress", Check: fail},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
		},
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := readyz(t, New(tt.checkers...))
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tt.wantStatus)
			}
			for _, c := range tt.checkers {
				if _, ok := body.Checks[c.Name]; !ok {
					t.Errorf("missing check %q in response", c.Name)
				}
			}
		})
	}
}

func TestReadyz_ReportsFailureMessage(t *testing.T) {
	h := New(Checker{Name: "progress", Check: func(context.Context) error { return errors.New("disk full") }})
	_, body := readyz(t, h)
	if got := body.Checks["progress"]; !strings.Contains(got, "disk full") {
		t.Errorf("check = %q, want failure message", got)
	}
}

func TestReadyz_CheckerGetsDeadline(t *testing.T) {
	h := New(Checker{Name: "slow", Check: func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	}})
	if code, _ := readyz(t, h); code != http.StatusOK {
		t.Errorf("code = %d, want 200", code)
	}
}

func TestRegister(t *testing.T) {
	mux := http.NewServeMux()
	New().Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: code = %d", path, rec.Code)
		}
	}
}
