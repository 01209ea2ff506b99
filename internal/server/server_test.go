package server

import (
	"context"
	stdjson "encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/internal/backend/backendtest"
	"github.com/me/partnerportal/internal/cache"
	"github.com/me/partnerportal/internal/config"
	"github.com/me/partnerportal/internal/logging"
	"github.com/me/partnerportal/internal/portal"
	"github.com/me/partnerportal/internal/store"
	"github.com/me/partnerportal/pkg/model"
)

type envelope struct {
	Status    string          `json:"status"`
	RequestID string          `json:"request_id"`
	Data      stdjson.RawMessage `json:"data"`
	Error     *model.APIError `json:"error"`
}

func testServer(t *testing.T) (*Server, *backendtest.Fake) {
	t.Helper()
	logger := logging.Discard()
	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	fake := backendtest.NewSeeded()
	svc := portal.New(backend.NewClient(fake, logger), st, logger,
		portal.WithCache(cache.NewMemoryCache(ctx, time.Minute, time.Minute)))
	return New(config.DefaultServerConfig(), st, svc, logger), fake
}

func doRequest(t *testing.T, srv *Server, method, path, body, sessionID string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionID != "" {
		req.Header.Set("Authorization", "Bearer "+sessionID)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	var env envelope
	if err := stdjson.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON: %v\nbody: %s", method, path, err, w.Body.String())
	}
	return w, env
}

func doGet(t *testing.T, srv *Server, path, sessionID string) envelope {
	t.Helper()
	w, env := doRequest(t, srv, http.MethodGet, path, "", sessionID)
	if w.Code != http.StatusOK {
		t.Fatalf("GET %s: status=%d, want 200, body=%s", path, w.Code, w.Body.String())
	}
	if env.Status != "ok" {
		t.Fatalf("GET %s: status=%q, want ok", path, env.Status)
	}
	return env
}

// login runs the OTP flow and returns the session ID.
func login(t *testing.T, srv *Server, email, code string) string {
	t.Helper()
	w, _ := doRequest(t, srv, http.MethodPost, "/api/v1/auth/otp", `{"email":"`+email+`"}`, "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("POST /auth/otp: status=%d, body=%s", w.Code, w.Body.String())
	}
	w, env := doRequest(t, srv, http.MethodPost, "/api/v1/auth/verify", `{"email":"`+email+`","code":"`+code+`"}`, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("POST /auth/verify: status=%d, body=%s", w.Code, w.Body.String())
	}
	var data sessionResponse
	stdjson.Unmarshal(env.Data, &data)
	if !strings.HasPrefix(data.SessionID, "sess_") {
		t.Fatalf("session_id = %q, want sess_ prefix", data.SessionID)
	}
	return data.SessionID
}

func loginPartner(t *testing.T, srv *Server) string {
	return login(t, srv, backendtest.PartnerEmail, backendtest.PartnerCode)
}

func loginAdmin(t *testing.T, srv *Server) string {
	return login(t, srv, backendtest.AdminEmail, backendtest.AdminCode)
}

func errorCode(env envelope) model.ErrorCode {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func TestDiscovery(t *testing.T) {
	srv, _ := testServer(t)
	env := doGet(t, srv, "/api/v1/", "")

	var data discoveryResponse
	stdjson.Unmarshal(env.Data, &data)
	if data.Name != "Partner Portal API" {
		t.Errorf("name = %q, want Partner Portal API", data.Name)
	}
	if len(data.Endpoints) != len(endpoints) {
		t.Errorf("endpoints = %d, want %d", len(data.Endpoints), len(endpoints))
	}
	if !strings.HasPrefix(env.RequestID, "req_") {
		t.Errorf("request_id = %q, want req_ prefix", env.RequestID)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	env := doGet(t, srv, "/api/v1/health", "")

	var data healthResponse
	stdjson.Unmarshal(env.Data, &data)
	if data.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", data.Status)
	}
	if data.Version != Version {
		t.Errorf("version = %q, want %s", data.Version, Version)
	}
	if data.Store != "ok" {
		t.Errorf("store = %q, want ok", data.Store)
	}
	if data.Sweeper != "not_started" {
		t.Errorf("sweeper = %q, want not_started", data.Sweeper)
	}
}

func TestCatalog(t *testing.T) {
	tests := []struct {
		query      string
		want       model.ManufacturerKey
		recognized bool
		step2      string
	}{
		{"?manufacturer=Amazon+Web+Services", model.ManufacturerAWS, true, "step2_aws"},
		{"?manufacturer=gcp", model.ManufacturerGoogle, true, "step2_google"},
		{"?manufacturer=Oracle", model.ManufacturerMicrosoft, false, "step2_microsoft"},
		{"", model.ManufacturerMicrosoft, false, "step2_microsoft"},
	}
	srv, _ := testServer(t)
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			env := doGet(t, srv, "/api/v1/catalog"+tt.query, "")

			var data catalogResponse
			stdjson.Unmarshal(env.Data, &data)
			if data.Manufacturer != tt.want {
				t.Errorf("manufacturer = %q, want %q", data.Manufacturer, tt.want)
			}
			if data.Recognized != tt.recognized {
				t.Errorf("recognized = %v, want %v", data.Recognized, tt.recognized)
			}
			if len(data.Steps) != 3 {
				t.Fatalf("steps = %d, want 3", len(data.Steps))
			}
			if data.Steps[0].Key != "step1" || data.Steps[1].Key != tt.step2 || data.Steps[2].Key != "step3" {
				t.Errorf("step keys = %s/%s/%s", data.Steps[0].Key, data.Steps[1].Key, data.Steps[2].Key)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	srv, _ := testServer(t)
	env := doGet(t, srv, "/api/v1/manufacturers/normalize?value="+url.QueryEscape("Reseller, MS"), "")

	var data normalizeResponse
	stdjson.Unmarshal(env.Data, &data)
	if data.Manufacturer != model.ManufacturerMicrosoft || !data.Recognized {
		t.Errorf("got %+v, want recognized MICROSOFT", data)
	}
	if data.Label != "Microsoft" {
		t.Errorf("label = %q, want Microsoft", data.Label)
	}
}

func TestLogin(t *testing.T) {
	srv, _ := testServer(t)
	id := loginPartner(t, srv)

	env := doGet(t, srv, "/api/v1/me", id)
	var data sessionResponse
	stdjson.Unmarshal(env.Data, &data)
	if data.Email != backendtest.PartnerEmail {
		t.Errorf("email = %q, want %s", data.Email, backendtest.PartnerEmail)
	}
	if data.Role != model.RolePartner {
		t.Errorf("role = %q, want partner", data.Role)
	}
	if data.SessionID != "" {
		t.Errorf("session_id = %q, want it omitted", data.SessionID)
	}
}

func TestLogin_SetsCookie(t *testing.T) {
	srv, _ := testServer(t)
	body := `{"email":"` + backendtest.PartnerEmail + `","code":"` + backendtest.PartnerCode + `"}`
	w, _ := doRequest(t, srv, http.MethodPost, "/api/v1/auth/verify", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d, want 201", w.Code)
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("cookie auth: status=%d, want 200", rec.Code)
	}
}

func TestRequestOTP_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   model.ErrorCode
	}{
		{"invalid json", "not json", http.StatusBadRequest, model.ErrValidation},
		{"invalid email", `{"email":"nope"}`, http.StatusBadRequest, model.ErrValidation},
		{"unknown email", `{"email":"stranger@else.example"}`, http.StatusAccepted, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := testServer(t)
			w, env := doRequest(t, srv, http.MethodPost, "/api/v1/auth/otp", tt.body, "")
			if w.Code != tt.status {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tt.status, w.Body.String())
			}
			if got := errorCode(env); got != tt.code {
				t.Errorf("error code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestVerifyOTP_WrongCode(t *testing.T) {
	srv, _ := testServer(t)
	body := `{"email":"` + backendtest.PartnerEmail + `","code":"000000"}`
	w, env := doRequest(t, srv, http.MethodPost, "/api/v1/auth/verify", body, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", w.Code)
	}
	if errorCode(env) != model.ErrUnauthorized {
		t.Errorf("error code = %q, want UNAUTHORIZED", errorCode(env))
	}
}

func TestVerifyOTP_RateLimited(t *testing.T) {
	srv, _ := testServer(t)
	body := `{"email":"` + backendtest.PartnerEmail + `","code":"000000"}`
	for i := 0; i < portal.DefaultConfig().MaxVerifyAttempts; i++ {
		doRequest(t, srv, http.MethodPost, "/api/v1/auth/verify", body, "")
	}
	w, env := doRequest(t, srv, http.MethodPost, "/api/v1/auth/verify", body, "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d, want 429", w.Code)
	}
	if errorCode(env) != model.ErrRateLimited {
		t.Errorf("error code = %q, want RATE_LIMITED", errorCode(env))
	}
}

func TestAuthRequired(t *testing.T) {
	srv, _ := testServer(t)
	for _, path := range []string{"/api/v1/me", "/api/v1/onboardings/", "/api/v1/onboardings/C1/progress"} {
		w, env := doRequest(t, srv, http.MethodGet, path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("GET %s: status=%d, want 401", path, w.Code)
		}
		if errorCode(env) != model.ErrUnauthorized {
			t.Errorf("GET %s: error code = %q, want UNAUTHORIZED", path, errorCode(env))
		}
	}

	w, _ := doRequest(t, srv, http.MethodGet, "/api/v1/me", "", "sess_doesnotexist")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unknown session: status=%d, want 401", w.Code)
	}
}

func TestLogout(t *testing.T) {
	srv, _ := testServer(t)
	id := loginPartner(t, srv)

	w, _ := doRequest(t, srv, http.MethodPost, "/api/v1/auth/logout", "", id)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: status=%d, want 200", w.Code)
	}
	w, _ = doRequest(t, srv, http.MethodGet, "/api/v1/me", "", id)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status=%d, want 401", w.Code)
	}
}

func TestListOnboardings(t *testing.T) {
	srv, _ := testServer(t)

	var partner []portal.Summary
	stdjson.Unmarshal(doGet(t, srv, "/api/v1/onboardings/", loginPartner(t, srv)).Data, &partner)
	if len(partner) != 1 || partner[0].Onboarding.ClientID != "C1" {
		t.Fatalf("partner onboardings = %+v, want only C1", partner)
	}
	if partner[0].OverallPercent != 36 {
		t.Errorf("overall = %d, want 36", partner[0].OverallPercent)
	}

	var admin []portal.Summary
	stdjson.Unmarshal(doGet(t, srv, "/api/v1/onboardings/", loginAdmin(t, srv)).Data, &admin)
	if len(admin) != 2 {
		t.Errorf("admin onboardings = %d, want 2", len(admin))
	}
}

func TestGetOnboarding(t *testing.T) {
	srv, _ := testServer(t)
	env := doGet(t, srv, "/api/v1/onboardings/C1", loginPartner(t, srv))

	var data struct {
		Onboarding model.Onboarding `json:"onboarding"`
		Progress   struct {
			Manufacturer   model.ManufacturerKey `json:"manufacturer"`
			OverallPercent int                   `json:"overall_percent"`
			Steps          []struct {
				Key    string `json:"key"`
				Locked bool   `json:"locked"`
			} `json:"steps"`
		} `json:"progress"`
	}
	stdjson.Unmarshal(env.Data, &data)
	if data.Onboarding.CompanyName != "Acme GmbH" {
		t.Errorf("company = %q, want Acme GmbH", data.Onboarding.CompanyName)
	}
	if data.Progress.Manufacturer != model.ManufacturerAWS {
		t.Errorf("manufacturer = %q, want AWS", data.Progress.Manufacturer)
	}
	if len(data.Progress.Steps) != 3 || !data.Progress.Steps[2].Locked {
		t.Errorf("steps = %+v, want 3 with step3 locked", data.Progress.Steps)
	}
}

func TestGetOnboarding_Errors(t *testing.T) {
	srv, _ := testServer(t)
	partner := loginPartner(t, srv)
	admin := loginAdmin(t, srv)

	w, env := doRequest(t, srv, http.MethodGet, "/api/v1/onboardings/C2", "", partner)
	if w.Code != http.StatusForbidden || errorCode(env) != model.ErrForbidden {
		t.Errorf("C2 as partner: status=%d code=%q, want 403 FORBIDDEN", w.Code, errorCode(env))
	}

	w, env = doRequest(t, srv, http.MethodGet, "/api/v1/onboardings/C404", "", admin)
	if w.Code != http.StatusNotFound || errorCode(env) != model.ErrNotFound {
		t.Errorf("C404 as admin: status=%d code=%q, want 404 NOT_FOUND", w.Code, errorCode(env))
	}
}

func TestGetProgressAndTimeline(t *testing.T) {
	srv, _ := testServer(t)
	id := loginPartner(t, srv)

	var p struct {
		OverallPercent int `json:"overall_percent"`
		Completed      int `json:"completed"`
		Total          int `json:"total"`
	}
	stdjson.Unmarshal(doGet(t, srv, "/api/v1/onboardings/C1/progress", id).Data, &p)
	if p.OverallPercent != 36 || p.Completed != 4 || p.Total != 11 {
		t.Errorf("progress = %+v, want 36%% (4/11)", p)
	}

	var timeline []struct {
		SubstepKey string `json:"substep_key"`
		Current    bool   `json:"current"`
	}
	stdjson.Unmarshal(doGet(t, srv, "/api/v1/onboardings/C1/timeline", id).Data, &timeline)
	if len(timeline) != 11 {
		t.Fatalf("timeline entries = %d, want 11", len(timeline))
	}
	var current []string
	for _, e := range timeline {
		if e.Current {
			current = append(current, e.SubstepKey)
		}
	}
	if len(current) != 1 || current[0] != "aws_account" {
		t.Errorf("current = %v, want [aws_account]", current)
	}
}

func TestUpdateField(t *testing.T) {
	srv, fake := testServer(t)
	id := loginPartner(t, srv)

	path := "/api/v1/onboardings/C1/fields/" + url.PathEscape("AWS Account ID")
	w, env := doRequest(t, srv, http.MethodPut, path, `{"value":"123456789012"}`, id)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200, body=%s", w.Code, w.Body.String())
	}

	var p struct {
		OverallPercent int `json:"overall_percent"`
	}
	stdjson.Unmarshal(env.Data, &p)
	if p.OverallPercent != 45 {
		t.Errorf("overall = %d, want 45", p.OverallPercent)
	}
	if got := fake.Mirror("C1")["AWS Account ID"]; got != "123456789012" {
		t.Errorf("backend value = %v, want 123456789012", got)
	}
}

func TestUpdateField_Errors(t *testing.T) {
	tests := []struct {
		name     string
		clientID string
		field    string
		body     string
		status   int
		code     model.ErrorCode
	}{
		{"locked step", "C1", "Go-Live Approved", `{"value":true}`, http.StatusConflict, model.ErrConflict},
		{"disabled substep", "C1", "Billing Transfer & Payer Setup", `{"value":true}`, http.StatusConflict, model.ErrConflict},
		{"unknown field", "C1", "MPN ID", `{"value":"x"}`, http.StatusNotFound, model.ErrNotFound},
		{"invalid value", "C1", "APN Registration Complete", `{"value":"yes"}`, http.StatusBadRequest, model.ErrValidation},
		{"invalid json", "C1", "AWS Account ID", `{"value":`, http.StatusBadRequest, model.ErrValidation},
		{"other partner", "C2", "Kickoff Call Done", `{"value":true}`, http.StatusForbidden, model.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, fake := testServer(t)
			id := loginPartner(t, srv)

			path := "/api/v1/onboardings/" + tt.clientID + "/fields/" + url.PathEscape(tt.field)
			w, env := doRequest(t, srv, http.MethodPut, path, tt.body, id)
			if w.Code != tt.status {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tt.status, w.Body.String())
			}
			if errorCode(env) != tt.code {
				t.Errorf("error code = %q, want %q", errorCode(env), tt.code)
			}
			if n := fake.CallCount(backend.ActionUpdateField); n != 0 {
				t.Errorf("updateField calls = %d, want 0", n)
			}
		})
	}
}

func TestNotes(t *testing.T) {
	srv, _ := testServer(t)
	id := loginPartner(t, srv)

	w, env := doRequest(t, srv, http.MethodPost, "/api/v1/onboardings/C1/notes", `{"text":"Contract signed"}`, id)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST notes: status=%d, want 201, body=%s", w.Code, w.Body.String())
	}
	var note model.Note
	stdjson.Unmarshal(env.Data, &note)
	if note.Author != backendtest.PartnerEmail {
		t.Errorf("author = %q, want %s", note.Author, backendtest.PartnerEmail)
	}

	var notes []model.Note
	stdjson.Unmarshal(doGet(t, srv, "/api/v1/onboardings/C1/notes", id).Data, &notes)
	if len(notes) != 1 || notes[0].Text != "Contract signed" {
		t.Errorf("notes = %+v, want one 'Contract signed'", notes)
	}

	w, env = doRequest(t, srv, http.MethodPost, "/api/v1/onboardings/C1/notes", `{"text":"  "}`, id)
	if w.Code != http.StatusBadRequest || errorCode(env) != model.ErrValidation {
		t.Errorf("blank note: status=%d code=%q, want 400 VALIDATION_ERROR", w.Code, errorCode(env))
	}
}

func TestION(t *testing.T) {
	srv, fake := testServer(t)
	id := loginPartner(t, srv)

	var orders []model.IONOrder
	stdjson.Unmarshal(doGet(t, srv, "/api/v1/onboardings/C1/ion/orders", id).Data, &orders)
	if len(orders) != 1 || orders[0].Quantity != 3 {
		t.Errorf("orders = %+v, want one with quantity 3", orders)
	}

	var subs []model.IONSubscription
	stdjson.Unmarshal(doGet(t, srv, "/api/v1/onboardings/C1/ion/subscriptions", id).Data, &subs)
	if len(subs) != 1 || subs[0].Seats != 10 {
		t.Errorf("subscriptions = %+v, want one with 10 seats", subs)
	}

	// Second read is served from the cache.
	doGet(t, srv, "/api/v1/onboardings/C1/ion/orders", id)
	if n := fake.CallCount(backend.ActionListIONOrders); n != 1 {
		t.Errorf("listIonOrders calls = %d, want 1", n)
	}
}

func TestION_BackendFailure(t *testing.T) {
	srv, fake := testServer(t)
	id := loginPartner(t, srv)
	fake.Fail[backend.ActionListIONSubscriptions] = errors.New("quota exceeded")

	w, env := doRequest(t, srv, http.MethodGet, "/api/v1/onboardings/C1/ion/subscriptions", "", id)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status=%d, want 502", w.Code)
	}
	if errorCode(env) != model.ErrBackend {
		t.Errorf("error code = %q, want BACKEND_ERROR", errorCode(env))
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	if id := w.Header().Get("X-Request-ID"); !strings.HasPrefix(id, "req_") {
		t.Errorf("X-Request-ID = %q, want req_ prefix", id)
	}
}

func TestRejectedTokenEndsSessions(t *testing.T) {
	srv, _ := testServer(t)
	sid := loginPartner(t, srv)

	revoked, err := srv.ui.Sessions().CreateSession(context.Background(), &model.Identity{
		Email:     backendtest.PartnerEmail,
		Token:     "tok-revoked",
		Role:      model.RolePartner,
		ClientIDs: []string{"C1"},
	})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	w, env := doRequest(t, srv, http.MethodGet, "/api/v1/onboardings/C1", "", revoked.ID)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401, body=%s", w.Code, w.Body.String())
	}
	if errorCode(env) != model.ErrUnauthorized {
		t.Errorf("code=%q, want UNAUTHORIZED", errorCode(env))
	}

	// The partner's other session is ended too.
	w, _ = doRequest(t, srv, http.MethodGet, "/api/v1/me", "", sid)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET /me after revocation: status=%d, want 401", w.Code)
	}
}
