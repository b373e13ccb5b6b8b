package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/physiodesk/internal/clinic"
	"github.com/starford/physiodesk/internal/models"
	"github.com/starford/physiodesk/internal/render"
	"github.com/starford/physiodesk/internal/testutil"
)

// testEnv sets up a service over a temp SQLite store and an API router.
// An empty authToken means disabled mode.
func testEnv(t *testing.T, authToken string) (*clinic.Service, http.Handler) {
	t.Helper()
	return testEnvWithSSE(t, authToken != "", authToken, nil)
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string, sse http.Handler) (*clinic.Service, http.Handler) {
	t.Helper()
	svc, _ := testutil.TestService(t, nil)
	dates, err := render.NewDateFormatter("", "UTC")
	if err != nil {
		t.Fatal(err)
	}
	return svc, NewRouter(svc, dates, authEnabled, token, sse)
}

func doJSON(router http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateAndListPatients(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(router, http.MethodPost, "/patients",
		map[string]string{"name": "Ali", "age": "30", "condition": "Back pain", "notes": ""}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created models.Patient
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created != (models.Patient{Name: "Ali", Age: 30, Condition: "Back pain"}) {
		t.Errorf("created = %+v", created)
	}

	w = doJSON(router, http.MethodGet, "/patients", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list PatientListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 1 || len(list.Patients) != 1 || list.Patients[0].Name != "Ali" {
		t.Errorf("list = %+v", list)
	}
}

func TestCreatePatient_ValidationError(t *testing.T) {
	svc, router := testEnv(t, "")

	w := doJSON(router, http.MethodPost, "/patients",
		map[string]string{"name": "Ali", "age": "abc", "condition": "Back pain"}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != clinic.RequiredFieldsMessage {
		t.Errorf("error = %q", resp.Error)
	}
	if _, ok := resp.Fields["age"]; !ok {
		t.Errorf("fields = %v, want age", resp.Fields)
	}
	if got := svc.Counts(context.Background()).Patients; got != 0 {
		t.Errorf("patients = %d, want 0", got)
	}
}

func TestCreatePatient_InvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")
	req := httptest.NewRequest(http.MethodPost, "/patients", bytes.NewReader([]byte("{nope")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateAndListAppointments(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(router, http.MethodPost, "/appointments",
		map[string]string{"patient": "Ali", "date": "2024-05-01T10:00", "notes": "follow-up"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	_ = doJSON(router, http.MethodPost, "/appointments",
		map[string]string{"patient": "Sara", "date": "whenever"}, "")

	w = doJSON(router, http.MethodGet, "/appointments", nil, "")
	var list AppointmentListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if list.Total != 2 {
		t.Fatalf("total = %d, want 2", list.Total)
	}
	if list.Appointments[0].Date != "2024-05-01T10:00" || list.Appointments[0].DisplayDate != "1/5/2024, 10:00:00" {
		t.Errorf("first = %+v", list.Appointments[0])
	}
	if list.Appointments[1].DisplayDate != render.InvalidDate {
		t.Errorf("second display = %q", list.Appointments[1].DisplayDate)
	}
}

func TestCreatePlanAndCounts(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(router, http.MethodPost, "/exercise-plans", map[string]string{"patient": "Ali", "plan": "walk"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d", w.Code)
	}
	w = doJSON(router, http.MethodPost, "/exercise-plans", map[string]string{"patient": "Ali"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing plan = %d, want 400", w.Code)
	}

	w = doJSON(router, http.MethodGet, "/exercise-plans", nil, "")
	var plans PlanListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &plans)
	if plans.Total != 1 || plans.ExercisePlans[0] != (models.Plan{Patient: "Ali", Plan: "walk"}) {
		t.Errorf("plans = %+v", plans)
	}

	w = doJSON(router, http.MethodGet, "/counts", nil, "")
	var counts CountsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &counts)
	if counts.ExercisePlans != 1 || counts.Patients != 0 {
		t.Errorf("counts = %+v", counts)
	}
	if len(counts.Lines) != 3 || counts.Lines[2] != "Exercise Plans: 1" {
		t.Errorf("lines = %v", counts.Lines)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := doJSON(router, http.MethodPost, "/exercise-plans", map[string]string{"patient": "Ali", "plan": "walk"}, "secret123")
	if w.Code != http.StatusCreated {
		t.Errorf("authed create = %d, want 201", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	if w := doJSON(router, http.MethodGet, "/patients", nil, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	if w := doJSON(router, http.MethodGet, "/patients", nil, "wrong"); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	if w := doJSON(router, http.MethodGet, "/patients", nil, ""); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

// SSE endpoint auth tests.

func dummySSE() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		<-r.Context().Done()
	})
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "secret", dummySSE())

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", dummySSE())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with valid token = %d, want 200", w.Code)
	}
}

func TestSSEEvents_QueryToken(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok", dummySSE())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("SSE with query token = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_QueryTokenNotForWrites(t *testing.T) {
	_, router := testEnv(t, "tok")

	w := doJSON(router, http.MethodPost, "/patients?access_token=tok", map[string]string{"name": "Ali", "age": "40", "condition": "neck"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("query token on POST = %d, want 401", w.Code)
	}
	if got := w.Header().Get("WWW-Authenticate"); got == "" {
		t.Error("missing WWW-Authenticate header")
	}
}

func TestCreatePatient_NumericAge(t *testing.T) {
	svc, router := testEnv(t, "")

	w := doJSON(router, http.MethodPost, "/patients",
		map[string]any{"name": "Ali", "age": 30, "condition": "Back pain"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	ps := svc.Patients(context.Background())
	if len(ps) != 1 || ps[0].Age != 30 {
		t.Errorf("patients = %+v", ps)
	}
}

func TestCreatePatient_FractionalAgeIsFieldError(t *testing.T) {
	svc, router := testEnv(t, "")

	w := doJSON(router, http.MethodPost, "/patients",
		map[string]any{"name": "Ali", "age": 3.5, "condition": "Back pain"}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp errResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, ok := resp.Fields["age"]; !ok {
		t.Errorf("fields = %v, want age", resp.Fields)
	}
	if n := svc.Counts(context.Background()).Patients; n != 0 {
		t.Errorf("patients = %d, want 0", n)
	}
}

func TestCreatePatient_AgeOfWrongKind(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(router, http.MethodPost, "/patients",
		map[string]any{"name": "Ali", "age": true, "condition": "Back pain"}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
