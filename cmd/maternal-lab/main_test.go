package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Jmsandi/newmedtech1-sub002/internal/config"
	"github.com/Jmsandi/newmedtech1-sub002/internal/domain/maternallab"
	"github.com/Jmsandi/newmedtech1-sub002/internal/platform/docstore"
)

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:            env,
		StoreDriver:    config.DriverMemory,
		JWTSigningKey:  "test-secret",
		RateLimitRPS:   100,
		RateLimitBurst: 200,
	}
}

func testServer(t *testing.T, env string) http.Handler {
	t.Helper()
	ctx := context.Background()
	b, err := openBackend(ctx, testConfig(env), zerolog.Nop())
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	t.Cleanup(b.close)
	return newServer(testConfig(env), newService(b, zerolog.Nop()), b.checks, zerolog.Nop())
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// server wiring
// ---------------------------------------------------------------------------

func TestServer_HealthAndMetrics(t *testing.T) {
	h := testServer(t, "development")

	if rec := serve(h, http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
	rec := serve(h, http.MethodGet, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Error("expected http request counter in metrics output")
	}
}

func TestServer_DevModeGrantsAdmin(t *testing.T) {
	h := testServer(t, "development")

	rec := serve(h, http.MethodGet, "/api/v1/maternal-lab/catalog")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET catalog = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "preeclampsia_panel") {
		t.Error("expected preeclampsia panel in catalog response")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestServer_ProductionRequiresToken(t *testing.T) {
	h := testServer(t, "production")

	if rec := serve(h, http.MethodGet, "/api/v1/maternal-lab/catalog"); rec.Code != http.StatusUnauthorized {
		t.Errorf("GET catalog without token = %d, want 401", rec.Code)
	}
	if rec := serve(h, http.MethodGet, "/health"); rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", rec.Code)
	}
}

func TestOpenBackend_MemoryDefaults(t *testing.T) {
	b, err := openBackend(context.Background(), testConfig("development"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open backend: %v", err)
	}
	defer b.close()

	if _, ok := b.store.(*docstore.MemoryStore); !ok {
		t.Errorf("expected memory store, got %T", b.store)
	}
	if len(b.checks) != 0 {
		t.Errorf("expected no health checks for memory store, got %d", len(b.checks))
	}
}

func TestNewLogger_Level(t *testing.T) {
	cfg := testConfig("production")
	cfg.LogLevel = "warn"
	if got := newLogger(cfg).GetLevel(); got != zerolog.WarnLevel {
		t.Errorf("level = %v, want warn", got)
	}
	cfg.LogLevel = "bogus"
	if got := newLogger(cfg).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("level = %v, want info for invalid input", got)
	}
}

// ---------------------------------------------------------------------------
// offline commands
// ---------------------------------------------------------------------------

func TestScoreOffline_PreeclampsiaPanel(t *testing.T) {
	req := `{
		"gestational_age_weeks": 36,
		"test_category": "risk-assessment",
		"test_key": "preeclampsia_panel",
		"parameters": [
			{"parameter_id": "protein_creatinine_ratio", "value": "350"},
			{"parameter_id": "uric_acid", "value": "8.2"}
		]
	}`

	lt, err := scoreOffline(context.Background(), []byte(req), zerolog.Nop())
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if lt.RiskScore != 24 {
		t.Errorf("risk score = %d, want 24", lt.RiskScore)
	}
	if lt.RiskLevel != maternallab.RiskLow {
		t.Errorf("risk level = %s, want low", lt.RiskLevel)
	}
	if lt.PatientID == uuid.Nil {
		t.Error("expected a generated patient id")
	}
}

func TestScoreOffline_RequiresGestationalAge(t *testing.T) {
	req := `{"test_category": "risk-assessment", "test_key": "preeclampsia_panel",
		"parameters": [{"parameter_id": "uric_acid", "value": "4"}]}`

	if _, err := scoreOffline(context.Background(), []byte(req), zerolog.Nop()); err == nil {
		t.Fatal("expected error without gestational age")
	}
}

func TestScoreOffline_BadJSON(t *testing.T) {
	if _, err := scoreOffline(context.Background(), []byte("{"), zerolog.Nop()); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestCatalogCmd_PrintsJSON(t *testing.T) {
	cmd := catalogCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, want := range []string{"prenatal-screening", "routine-monitoring", "risk-assessment"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("catalog output missing %q", want)
		}
	}
}

func TestImportPatients(t *testing.T) {
	id := uuid.New()
	path := filepath.Join(t.TempDir(), "patients.json")
	body := `[{"id": "` + id.String() + `", "first_name": "Ama", "last_name": "Mensah", "gestational_age_weeks": 30},
		{"first_name": "Esi", "last_name": "Owusu", "gestational_age_weeks": 12}]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	ctx := context.Background()
	dir := maternallab.NewPatientDirectoryStore(docstore.NewMemoryStore())
	n, err := importPatients(ctx, dir, path)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if n != 2 {
		t.Errorf("imported %d, want 2", n)
	}

	p, err := dir.GetMaternalPatientByID(ctx, id)
	if err != nil {
		t.Fatalf("get patient: %v", err)
	}
	if p.GestationalAgeWeeks != 30 {
		t.Errorf("gestational age = %d, want 30", p.GestationalAgeWeeks)
	}

	// Re-importing the same file updates in place.
	if _, err := importPatients(ctx, dir, path); err != nil {
		t.Fatalf("re-import: %v", err)
	}
}

func TestImportPatients_MissingFile(t *testing.T) {
	dir := maternallab.NewPatientDirectoryStore(docstore.NewMemoryStore())
	if _, err := importPatients(context.Background(), dir, filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
