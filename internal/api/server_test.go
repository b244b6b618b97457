package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/TimurManjosov/licadvisor/internal/audit"
	"github.com/TimurManjosov/licadvisor/internal/catalog"
	"github.com/TimurManjosov/licadvisor/internal/profile"
	"github.com/TimurManjosov/licadvisor/internal/report"
	"github.com/TimurManjosov/licadvisor/internal/rules"
	"github.com/TimurManjosov/licadvisor/internal/store"
	"github.com/rs/zerolog"
)

const testAdminKey = "test-admin-key"

// newTestServer serves the embedded catalog through a memory store so tests
// can change the catalog and reload it.
func newTestServer(t *testing.T, opts Options) (*Server, *store.MemoryStore) {
	t.Helper()
	list, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	mem := store.NewMemoryStore()
	if err := mem.ReplaceAll(context.Background(), list); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	holder, err := catalog.NewHolder(context.Background(), &catalog.StoreSource{Store: mem, Kind: "memory"})
	if err != nil {
		t.Fatalf("new holder: %v", err)
	}
	if opts.AdminAPIKey == "" {
		opts.AdminAPIKey = testAdminKey
	}
	opts.Logger = zerolog.Nop()
	return NewServer(holder, opts), mem
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	h := srv.Router()

	rr := do(t, h, http.MethodGet, "/healthz", "", nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("/healthz = %d %q", rr.Code, rr.Body.String())
	}

	rr = do(t, h, http.MethodGet, "/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("/health status = %d", rr.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("/health body = %v", body)
	}
}

func TestAssess_OrderedMatches(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	h := srv.Router()

	body := `{"size_m2":120,"seats":80,"serves_alcohol":true,"uses_gas":true,"has_misting":false,"offers_delivery":false}`
	rr := do(t, h, http.MethodPost, "/v1/assess", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp AssessResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := []string{
		"R-Fire-Gas-Installation",
		"R-Police-CCTV-Resolution",
		"R-Police-Alcohol-Minors-Sign",
		"R-MoH-Water-Supply",
		"R-MoH-Food-Temps",
		"R-Police-CCTV-Placement",
		"R-MoH-Sewage-Fat-Separator",
		"R-MoH-Handwash-Stations",
		"R-Fire-Extinguishers",
		"R-Police-Exterior-Lighting",
		"R-MoH-Toilets-Capacity",
	}
	if strings.Join(resp.Matches, ",") != strings.Join(want, ",") {
		t.Errorf("matches = %v\nwant      %v", resp.Matches, want)
	}
	if len(resp.Rules) != len(want) {
		t.Errorf("rules len = %d, want %d", len(resp.Rules), len(want))
	}
	if resp.AssessmentID == "" {
		t.Error("expected assessment_id")
	}
	if resp.ETag != srv.holder.Load().ETag {
		t.Errorf("etag = %q, want %q", resp.ETag, srv.holder.Load().ETag)
	}
	if resp.Report != nil {
		t.Error("report should be null without a generator")
	}
	if resp.Profile.Seats != 80 || !resp.Profile.UsesGas {
		t.Errorf("profile echoed wrong: %+v", resp.Profile)
	}
}

func TestAssess_Exemption(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	h := srv.Router()

	body := `{"size_m2":50,"seats":100,"serves_alcohol":false,"uses_gas":false,"has_misting":false,"offers_delivery":false}`
	rr := do(t, h, http.MethodPost, "/v1/assess", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp AssessResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	var police []string
	for _, r := range resp.Rules {
		if r.Authority == "Israel Police" {
			police = append(police, r.ID)
		}
	}
	if len(police) != 1 || police[0] != "R-Police-Exemption-NoAlcohol-<=200" {
		t.Errorf("police rules = %v, want only the exemption", police)
	}
}

func TestAssess_Validation(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	h := srv.Router()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantFields []string
	}{
		{
			name:       "missing fields",
			body:       `{"size_m2":50}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"seats", "serves_alcohol", "uses_gas", "has_misting", "offers_delivery"},
		},
		{
			name:       "negative size",
			body:       `{"size_m2":-1,"seats":10,"serves_alcohol":false,"uses_gas":false,"has_misting":false,"offers_delivery":false}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"size_m2"},
		},
		{
			name:       "fractional seats",
			body:       `{"size_m2":10,"seats":2.5,"serves_alcohol":false,"uses_gas":false,"has_misting":false,"offers_delivery":false}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"seats"},
		},
		{
			name:       "wrong flag type",
			body:       `{"size_m2":10,"seats":2,"serves_alcohol":"no","uses_gas":false,"has_misting":false,"offers_delivery":false}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantFields: []string{"serves_alcohol"},
		},
		{
			name:       "malformed json",
			body:       `{"size_m2":`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, http.MethodPost, "/v1/assess", tt.body, nil)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			var resp ErrorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			for _, f := range tt.wantFields {
				if _, ok := resp.Fields[f]; !ok {
					t.Errorf("missing field error for %q in %v", f, resp.Fields)
				}
			}
		})
	}
}

func TestAssess_WithReport(t *testing.T) {
	srv, _ := newTestServer(t, Options{Reports: &report.TemplateGenerator{}})
	h := srv.Router()
	body := `{"size_m2":20,"seats":0,"serves_alcohol":false,"uses_gas":false,"has_misting":false,"offers_delivery":true}`

	rr := do(t, h, http.MethodPost, "/v1/assess", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp AssessResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Report == nil {
		t.Fatal("expected a report")
	}
	if resp.Report.TotalRules != len(resp.Matches) {
		t.Errorf("report total = %d, matches = %d", resp.Report.TotalRules, len(resp.Matches))
	}
	if err := report.ValidateReferences(resp.Report, resp.Matches); err != nil {
		t.Errorf("report references: %v", err)
	}

	rr = do(t, h, http.MethodPost, "/v1/assess?report=false", body, nil)
	var skipped AssessResponse
	if err := json.NewDecoder(rr.Body).Decode(&skipped); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if skipped.Report != nil {
		t.Error("report=false should skip the report")
	}
}

type failingGenerator struct{}

func (failingGenerator) Generate(context.Context, profile.BusinessProfile, []*rules.Rule) (*report.Report, error) {
	return nil, errors.New("boom")
}

func TestAssess_ReportFailureStillAnswers(t *testing.T) {
	srv, _ := newTestServer(t, Options{Reports: failingGenerator{}})
	body := `{"size_m2":20,"seats":0,"serves_alcohol":false,"uses_gas":false,"has_misting":false,"offers_delivery":false}`

	rr := do(t, srv.Router(), http.MethodPost, "/v1/assess", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp AssessResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Report != nil || len(resp.Matches) == 0 {
		t.Errorf("want matches without report, got %+v", resp)
	}
}

func TestAssess_RateLimited(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerIP: 2})
	h := srv.Router()
	body := `{"size_m2":20,"seats":0,"serves_alcohol":false,"uses_gas":false,"has_misting":false,"offers_delivery":false}`

	for i := 0; i < 2; i++ {
		if rr := do(t, h, http.MethodPost, "/v1/assess", body, nil); rr.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, rr.Code)
		}
	}
	rr := do(t, h, http.MethodPost, "/v1/assess", body, nil)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rr.Code)
	}

	// other endpoints are not limited
	if rr := do(t, h, http.MethodGet, "/v1/requirements", "", nil); rr.Code != http.StatusOK {
		t.Errorf("requirements status = %d", rr.Code)
	}
}

func TestListRequirements_ETag(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	h := srv.Router()

	rr := do(t, h, http.MethodGet, "/v1/requirements", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	etag := rr.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag header")
	}
	var resp requirementsResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 16 || len(resp.Requirements) != 16 {
		t.Errorf("count = %d (%d rules), want 16", resp.Count, len(resp.Requirements))
	}
	if resp.ETag != etag {
		t.Errorf("body etag %q != header %q", resp.ETag, etag)
	}

	rr = do(t, h, http.MethodGet, "/v1/requirements", "", map[string]string{"If-None-Match": etag})
	if rr.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("304 should have empty body, got %q", rr.Body.String())
	}
}

func TestGetRequirement(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	h := srv.Router()

	rr := do(t, h, http.MethodGet, "/v1/requirements/R-Fire-Extinguishers", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var rule rules.Rule
	if err := json.NewDecoder(rr.Body).Decode(&rule); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rule.ID != "R-Fire-Extinguishers" {
		t.Errorf("id = %q", rule.ID)
	}

	rr = do(t, h, http.MethodGet, "/v1/requirements/R-Unknown", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestReloadCatalog_Auth(t *testing.T) {
	hash, err := HashAdminKey("hashed-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	plain, _ := newTestServer(t, Options{})
	hashed, _ := newTestServer(t, Options{AdminAPIKeyHash: hash})

	tests := []struct {
		name       string
		srv        *Server
		headers    map[string]string
		wantStatus int
	}{
		{name: "missing token", srv: plain, wantStatus: http.StatusUnauthorized},
		{name: "wrong token", srv: plain, headers: map[string]string{"Authorization": "Bearer nope"}, wantStatus: http.StatusForbidden},
		{name: "valid token", srv: plain, headers: map[string]string{"Authorization": "Bearer " + testAdminKey}, wantStatus: http.StatusOK},
		{name: "hashed key accepted", srv: hashed, headers: map[string]string{"Authorization": "Bearer hashed-secret"}, wantStatus: http.StatusOK},
		{name: "hash overrides plaintext key", srv: hashed, headers: map[string]string{"Authorization": "Bearer " + testAdminKey}, wantStatus: http.StatusForbidden},
		{name: "wrong key against hash", srv: hashed, headers: map[string]string{"Authorization": "Bearer hashed-secre"}, wantStatus: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, tt.srv.Router(), http.MethodPost, "/v1/admin/catalog/reload", "", tt.headers)
			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
		})
	}
}

func TestReloadCatalog_SwapsSnapshot(t *testing.T) {
	srv, mem := newTestServer(t, Options{})
	h := srv.Router()
	auth := map[string]string{"Authorization": "Bearer " + testAdminKey}
	before := srv.holder.Load().ETag

	list, _ := mem.ListRules(context.Background())
	if err := mem.ReplaceAll(context.Background(), list[:3]); err != nil {
		t.Fatalf("replace: %v", err)
	}

	rr := do(t, h, http.MethodPost, "/v1/admin/catalog/reload", "", auth)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	var resp reloadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Changed || resp.Count != 3 || resp.ETag == before {
		t.Errorf("reload response = %+v", resp)
	}
	if n := len(srv.holder.Load().Rules); n != 3 {
		t.Errorf("active rules = %d, want 3", n)
	}
}

func TestReloadCatalog_FailureKeepsSnapshot(t *testing.T) {
	srv, mem := newTestServer(t, Options{})
	h := srv.Router()
	before := srv.holder.Load()

	bad := []rules.Rule{{ID: "R-Bad", Title: "t", Authority: "a", Priority: "urgent", Triggers: &rules.Triggers{}}}
	if err := mem.ReplaceAll(context.Background(), bad); err != nil {
		t.Fatalf("replace: %v", err)
	}

	rr := do(t, h, http.MethodPost, "/v1/admin/catalog/reload", "", map[string]string{"Authorization": "Bearer " + testAdminKey})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	var resp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != ErrCodeCatalogReload {
		t.Errorf("code = %q", resp.Code)
	}
	if srv.holder.Load() != before {
		t.Error("failed reload must keep the previous snapshot")
	}
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, Options{CORSAllowedOrigin: "https://app.example"})
	h := srv.Router()

	rr := do(t, h, http.MethodGet, "/v1/requirements", "", map[string]string{"Origin": "https://app.example"})
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allow origin = %q", got)
	}

	rr = do(t, h, http.MethodGet, "/v1/requirements", "", map[string]string{"Origin": "https://evil.example"})
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected allow origin %q", got)
	}
}

func TestAssess_ConcurrentWithReload(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerIP: 10_000})
	h := srv.Router()
	body := `{"size_m2":500,"seats":350,"serves_alcohol":false,"uses_gas":true,"has_misting":false,"offers_delivery":false}`
	auth := map[string]string{"Authorization": "Bearer " + testAdminKey}

	var wg sync.WaitGroup
	errs := make(chan string, 100)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rr := do(t, h, http.MethodPost, "/v1/assess", body, nil)
			if rr.Code != http.StatusOK {
				errs <- rr.Body.String()
				return
			}
			var resp AssessResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				errs <- err.Error()
				return
			}
			if len(resp.Matches) != 10 || resp.Matches[0] != "R-Fire-Gas-Installation" {
				errs <- strings.Join(resp.Matches, ",")
			}
		}()
		if i%10 == 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if rr := do(t, h, http.MethodPost, "/v1/admin/catalog/reload", "", auth); rr.Code != http.StatusOK {
					errs <- "reload: " + rr.Body.String()
				}
			}()
		}
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}

func TestAdminActionsAreAudited(t *testing.T) {
	sink := &audit.MemorySink{}
	svc := audit.NewService(sink, nil, 16, zerolog.Nop())
	srv, _ := newTestServer(t, Options{Audit: svc})
	h := srv.Router()

	do(t, h, http.MethodPost, "/v1/admin/catalog/reload", "", map[string]string{"Authorization": "Bearer wrong"})
	do(t, h, http.MethodPost, "/v1/admin/catalog/reload", "", map[string]string{"Authorization": "Bearer " + testAdminKey})
	do(t, h, http.MethodPost, "/v1/assess", `{"size_m2":1,"seats":1,"serves_alcohol":false,"uses_gas":false,"has_misting":false,"offers_delivery":false}`, nil)
	_ = svc.Close()

	events := sink.Events()
	if len(events) != 2 {
		t.Fatalf("got %d audit events, want 2: %+v", len(events), events)
	}
	if events[0].Action != audit.ActionAuthFailed || events[0].Status != audit.StatusFailure {
		t.Errorf("first event = %+v", events[0])
	}
	if events[1].Action != audit.ActionCatalogReload || events[1].Status != audit.StatusSuccess {
		t.Errorf("second event = %+v", events[1])
	}
	if events[1].BeforeETag != srv.holder.Load().ETag || events[1].RequestID == "" {
		t.Errorf("reload event missing etag or request id: %+v", events[1])
	}
}
