package api_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/JaimeStill/sift/internal/api"
	"github.com/JaimeStill/sift/internal/config"
	"github.com/JaimeStill/sift/internal/infrastructure"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("config.LoadFrom() error = %v", err)
	}
	return cfg
}

func setupModule(t *testing.T, cfg *config.Config) *api.Module {
	t.Helper()
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}
	return m
}

func serve(m *api.Module, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	m.Serve(rec, req)
	return rec
}

func TestNewModule(t *testing.T) {
	m := setupModule(t, loadConfig(t))

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
	if m.Domain.Store == nil || m.Domain.Pipeline == nil || m.Domain.Findings == nil {
		t.Errorf("domain: got %+v", m.Domain)
	}
	if s := m.Domain.Pipeline.Stats(); s.Capacity != 10 {
		t.Errorf("admission capacity: got %d, want 10", s.Capacity)
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := loadConfig(t)
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != cfg.API.Pagination.DefaultPageSize {
		t.Errorf("pagination: got %+v", runtime.Pagination)
	}
	if runtime.MaxUploadSize != 50<<20 {
		t.Errorf("max upload size: got %d", runtime.MaxUploadSize)
	}
	if runtime.Logger == nil || runtime.Database == nil || runtime.Lifecycle == nil {
		t.Error("runtime infrastructure should be populated")
	}
	if runtime.Storage != nil {
		t.Error("storage should be nil when disabled")
	}
}

func TestNewDomainInvalidPatterns(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Scanner.PatternsFile = "/nonexistent/patterns.yaml"

	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	if _, err := api.NewDomain(api.NewRuntime(cfg, infra)); err == nil {
		t.Error("expected error for missing patterns file")
	}
}

func TestOpenAPI(t *testing.T) {
	m := setupModule(t, loadConfig(t))

	rec := serve(m, httptest.NewRequest("GET", "/api/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", rec.Code)
	}

	var spec struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&spec); err != nil {
		t.Fatalf("decode: %v", err)
	}

	for _, path := range []string{"/upload", "/findings", "/findings/{document_id}", "/findings/stats/summary", "/documents/{document_id}/metrics"} {
		if _, ok := spec.Paths[path]; !ok {
			t.Errorf("missing path %s", path)
		}
	}
	if _, ok := spec.Paths["/storage"]; ok {
		t.Error("storage paths should be absent when storage is disabled")
	}
}

func TestStorageRoutesWhenEnabled(t *testing.T) {
	cfg := loadConfig(t)
	cfg.Storage.Enabled = true
	cfg.Storage.ConnectionString = azuriteConnString

	m := setupModule(t, cfg)

	rec := serve(m, httptest.NewRequest("GET", "/api/storage?max_results=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}

	spec := api.NewSpec(cfg, true)
	if _, ok := spec.Paths["/storage/download/{key}"]; !ok {
		t.Error("storage paths should be present when storage is enabled")
	}
}

func TestRoutesRejectWithoutDatabase(t *testing.T) {
	m := setupModule(t, loadConfig(t))

	t.Run("invalid document id", func(t *testing.T) {
		rec := serve(m, httptest.NewRequest("GET", "/api/findings/not-a-uuid", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rec.Code)
		}
	})

	t.Run("invalid filter", func(t *testing.T) {
		rec := serve(m, httptest.NewRequest("GET", "/api/findings?status=archived", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400", rec.Code)
		}
	})

	t.Run("malformed upload", func(t *testing.T) {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		part, _ := w.CreateFormFile("file", "notes.pdf")
		part.Write([]byte("plain text"))
		w.Close()

		req := httptest.NewRequest("POST", "/api/upload", &buf)
		req.Header.Set("Content-Type", w.FormDataContentType())

		rec := serve(m, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status: got %d, want 400: %s", rec.Code, rec.Body.String())
		}
	})
}
