package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/render"
	"github.com/starford/physiodesk/internal/sse"
	"github.com/starford/physiodesk/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Store.Path = filepath.Join(t.TempDir(), "physiodesk.db")
	cfg.Display.TimeZone = "UTC"
	return cfg
}

func testHandler(t *testing.T, cfg *Config) http.Handler {
	t.Helper()
	svc, _ := testutil.TestService(t, nil)
	dates, err := render.NewDateFormatter("", "UTC")
	if err != nil {
		t.Fatal(err)
	}
	broker := sse.NewBroker(time.Second)
	t.Cleanup(broker.Close)
	svc.OnChange(broker.PublishChange)

	h, err := newHTTPHandler(cfg, svc, dates, broker)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func TestHTTPHandler_Health(t *testing.T) {
	h := testHandler(t, testConfig(t))

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}
}

func TestHTTPHandler_FormThenAPI(t *testing.T) {
	h := testHandler(t, testConfig(t))

	form := url.Values{"name": {"Ana"}, "age": {"34"}, "condition": {"ACL"}}
	req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("form post status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/counts", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("counts status = %d", rec.Code)
	}
	var counts struct {
		Patients int `json:"patients"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
		t.Fatal(err)
	}
	if counts.Patients != 1 {
		t.Errorf("patients = %d, want 1", counts.Patients)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?section=settings", nil))
	if !strings.Contains(rec.Body.String(), "Store backend") {
		t.Error("settings section should list the store backend")
	}
}

func TestHTTPHandler_CSRFEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.CSRF.Key = strings.Repeat("01", 32)
	h := testHandler(t, cfg)

	form := url.Values{"patient": {"Ana"}, "plan": {"Squats"}}
	req := httptest.NewRequest(http.MethodPost, "/exercises", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("post without token: status = %d, want 403", rec.Code)
	}

	// The API is authenticated separately and is not CSRF protected.
	req = httptest.NewRequest(http.MethodPost, "/api/exercise-plans", strings.NewReader(`{"patient":"Ana","plan":"Squats"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("api post: status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestHTTPHandler_TokenModeCoversPage(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.Mode = AuthModeToken
	cfg.Auth.Token = "s3cret"
	h := testHandler(t, cfg)

	postPatient := func(token string) int {
		form := url.Values{"name": {"Ana"}, "age": {"34"}, "condition": {"ACL"}}
		req := httptest.NewRequest(http.MethodPost, "/patients", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	countPatients := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/counts", nil)
		req.Header.Set("Authorization", "Bearer s3cret")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		var counts struct {
			Patients int `json:"patients"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &counts); err != nil {
			t.Fatal(err)
		}
		return counts.Patients
	}

	if code := postPatient(""); code != http.StatusUnauthorized {
		t.Errorf("form post without token: status = %d, want 401", code)
	}
	if n := countPatients(); n != 0 {
		t.Errorf("patients = %d, want 0", n)
	}

	for _, path := range []string{"/", "/fragments/patients", "/api/patients"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("GET %s without token: status = %d, want 401", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health should stay open: status = %d", rec.Code)
	}

	if code := postPatient("s3cret"); code != http.StatusSeeOther {
		t.Errorf("form post with token: status = %d, want 303", code)
	}
	if n := countPatients(); n != 1 {
		t.Errorf("patients = %d, want 1", n)
	}
}

func TestShowAndReset(t *testing.T) {
	cfg := testConfig(t)
	opts := []Option{WithConfig(cfg), WithLogger(testutil.Logger())}
	ctx := context.Background()

	rt, err := setup(ctx, nil, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := rt.svc.AddAppointment(ctx, clinic.AppointmentForm{Patient: "Ana", Date: "2024-05-01T10:00"}); err != nil {
		t.Fatal(err)
	}
	rt.Close()

	var out bytes.Buffer
	if err := Show(ctx, &out, opts...); err != nil {
		t.Fatal(err)
	}
	text := out.String()
	for _, want := range []string{
		"== Counts ==\nPatients: 0\nAppointments: 1\nExercise Plans: 0\n",
		"Ana | 1/5/2024, 10:00:00 | ",
		"== Exercise Plans ==\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("show output missing %q:\n%s", want, text)
		}
	}

	if err := Reset(ctx, opts...); err != nil {
		t.Fatal(err)
	}
	out.Reset()
	if err := Show(ctx, &out, opts...); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Appointments: 0") {
		t.Errorf("after reset:\n%s", out.String())
	}
}

func TestSetup_RequiresConfig(t *testing.T) {
	if _, err := setup(context.Background(), nil, nil); err == nil {
		t.Fatal("setup without config should fail")
	}
}
