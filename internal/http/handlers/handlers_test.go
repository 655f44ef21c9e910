package handlers_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"printforge/internal/adapter/repo"
	"printforge/internal/domain"
	"printforge/internal/http/handlers"
	"printforge/internal/http/httpapi"
	"printforge/internal/infra"
	"printforge/internal/notify"
	"printforge/internal/pipeline"
	"printforge/internal/providers/image"
	"printforge/internal/providers/mesh"
	"printforge/internal/storage"
)

type stubImageGen struct{}

func (stubImageGen) Generate(ctx context.Context, req image.GenerateRequest) (*image.Result, error) {
	if err := os.MkdirAll(filepath.Dir(req.DestinationPath), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(req.DestinationPath, []byte("png-bytes"), 0o644); err != nil {
		return nil, err
	}
	return &image.Result{LocalPath: req.DestinationPath, MIME: "image/png"}, nil
}

type stubMeshClient struct{}

func (stubMeshClient) Submit(ctx context.Context, imageDataURI string, opts mesh.Options) (string, error) {
	return "task-1", nil
}

func (stubMeshClient) Poll(ctx context.Context, taskID string) (*mesh.Task, error) {
	return &mesh.Task{
		ID:        taskID,
		Status:    mesh.TaskSucceeded,
		Progress:  100,
		ModelURLs: map[string]string{"glb": "https://cdn.example.com/model.glb"},
	}, nil
}

func (stubMeshClient) Download(ctx context.Context, url, destDir, format string) (string, error) {
	path := filepath.Join(destDir, "download."+format)
	return path, os.WriteFile(path, []byte("mesh-bytes"), 0o644)
}

type testAPI struct {
	handler http.Handler
	svc     *pipeline.Service
	store   *storage.FileStore
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := infra.NewLogger("test")
	jobs := repo.NewMemoryJobRepository()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	svc := pipeline.NewService(jobs, stubImageGen{}, stubMeshClient{}, store, logger, pipeline.Config{
		PublicBaseURL: "http://localhost:8080",
		MeshTimeout:   time.Second,
		PollInterval:  time.Millisecond,
	})
	worker := pipeline.NewWorker(svc, logger, 16, 1)
	ctx, cancel := context.WithCancel(context.Background())
	worker.Start(ctx)
	t.Cleanup(func() {
		cancel()
		worker.Wait()
	})
	notifier := notify.NewLogNotifier(logger)
	trigger := pipeline.NewTrigger(worker, svc, store, nil, notifier, logger)
	app := handlers.NewApp(svc, worker, trigger, store, logger)
	lookup := func(ip string) (string, error) { return "MX", nil }
	return &testAPI{
		handler: httpapi.NewRouter(app, logger, lookup, store.BasePath()),
		svc:     svc,
		store:   store,
	}
}

func (api *testAPI) do(t *testing.T, method, path string, body any, mutate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	api.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func (api *testAPI) waitFor(t *testing.T, jobID string, want domain.JobStatus) *domain.Job {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := api.svc.GetJobStatus(context.Background(), jobID)
		if err == nil && job.Status == want {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", jobID, want)
	return nil
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/v1/healthz", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestJobsCreateAndStatus(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"description": "a small dragon",
		"style":       "figurine",
		"size_mm":     100,
	}, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeJSON(t, rec)
	jobID, _ := created["job_id"].(string)
	if !strings.HasPrefix(jobID, "job_") {
		t.Fatalf("job_id = %q", jobID)
	}
	if created["status"] != string(domain.JobStatusPending) {
		t.Fatalf("initial status = %v", created["status"])
	}

	api.waitFor(t, jobID, domain.JobStatusCompleted)

	rec = api.do(t, http.MethodGet, "/api/job/"+jobID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	job := decodeJSON(t, rec)
	if job["status"] != string(domain.JobStatusCompleted) {
		t.Fatalf("job status = %v", job["status"])
	}
	if job["progress"].(float64) != 100 {
		t.Fatalf("progress = %v", job["progress"])
	}
	if !strings.HasSuffix(job["mesh_url"].(string), ".glb") {
		t.Fatalf("mesh_url = %v", job["mesh_url"])
	}
}

func TestJobsCreateValidation(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/jobs", map[string]any{"style": "figurine"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestJobStatusNotFound(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/job/job_missing", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeJSON(t, rec); body["error"] != "not_found" {
		t.Fatalf("error kind = %v", body["error"])
	}
}

func TestConceptFlowThroughPaymentWebhook(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/concepts", map[string]any{
		"description": "a chess knight",
		"style":       "sculpture",
	}, nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	jobID := decodeJSON(t, rec)["job_id"].(string)
	if !strings.HasPrefix(jobID, "concept_") {
		t.Fatalf("job_id = %q", jobID)
	}
	api.waitFor(t, jobID, domain.JobStatusConceptReady)

	rec = api.do(t, http.MethodPost, "/api/webhook/payment", map[string]any{
		"job_id":       jobID,
		"mesh_style":   "stylized",
		"material_key": "full_color",
		"email":        "ana@example.com",
		"shipping":     map[string]string{"name": "Ana Ruiz", "country": "MX"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d, body %s", rec.Code, rec.Body.String())
	}
	if body := decodeJSON(t, rec); body["status"] != "accepted" {
		t.Fatalf("webhook body = %v", body)
	}
	api.waitFor(t, jobID, domain.JobStatusCompleted)
}

func TestPaymentWebhookUnknownJob(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/webhook/payment", map[string]any{"job_id": "job_missing"}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPaymentWebhookBeforeConceptReady(t *testing.T) {
	api := newTestAPI(t)
	jobID, err := api.svc.SubmitConceptJob(context.Background(), "a chess knight", "sculpture")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	rec := api.do(t, http.MethodPost, "/api/webhook/payment", map[string]any{"job_id": jobID}, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decodeJSON(t, rec); body["error"] != "no_concept_image" {
		t.Fatalf("error kind = %v", body["error"])
	}
}

func TestJobsList(t *testing.T) {
	api := newTestAPI(t)
	var ids []string
	for i := 0; i < 3; i++ {
		id, err := api.svc.SubmitJob(context.Background(), fmt.Sprintf("item %d", i), "object", 50)
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		ids = append(ids, id)
		time.Sleep(2 * time.Millisecond)
	}

	rec := api.do(t, http.MethodGet, "/api/jobs?limit=2", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	jobs := decodeJSON(t, rec)["jobs"].([]any)
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(jobs))
	}
	first := jobs[0].(map[string]any)
	if first["id"] != ids[len(ids)-1] {
		t.Fatalf("first listed = %v, want newest %s", first["id"], ids[len(ids)-1])
	}
}

func TestJobBundle(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodPost, "/api/jobs", map[string]any{
		"description": "a small dragon",
		"style":       "figurine",
	}, nil)
	jobID := decodeJSON(t, rec)["job_id"].(string)
	api.waitFor(t, jobID, domain.JobStatusCompleted)

	rec = api.do(t, http.MethodGet, "/api/job/"+jobID+"/bundle", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type = %q", ct)
	}
	reader, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	names := map[string]bool{}
	for _, f := range reader.File {
		names[f.Name] = true
	}
	if !names["concept.png"] || !names["model.glb"] {
		t.Fatalf("archive entries = %v", names)
	}
}

func TestJobBundleWithoutArtifacts(t *testing.T) {
	api := newTestAPI(t)
	jobID, err := api.svc.SubmitConceptJob(context.Background(), "a chess knight", "sculpture")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	rec := api.do(t, http.MethodGet, "/api/job/"+jobID+"/bundle", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestMaterialsLocalized(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/materials", nil, func(r *http.Request) {
		r.Header.Set("X-Locale", "en")
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	materials := decodeJSON(t, rec)["materials"].([]any)
	if len(materials) != 5 {
		t.Fatalf("materials = %d, want 5", len(materials))
	}
	first := materials[0].(map[string]any)
	if first["name"] != "White Plastic" {
		t.Fatalf("english name = %v", first["name"])
	}

	// Without an explicit locale the MX geoip stub makes Spanish win.
	rec = api.do(t, http.MethodGet, "/api/materials", nil, nil)
	materials = decodeJSON(t, rec)["materials"].([]any)
	first = materials[0].(map[string]any)
	if first["name"] != "Plástico Blanco" {
		t.Fatalf("geoip-locale name = %v", first["name"])
	}

	rec = api.do(t, http.MethodGet, "/api/materials", nil, func(r *http.Request) {
		r.Header.Set("X-Locale", "es")
	})
	materials = decodeJSON(t, rec)["materials"].([]any)
	first = materials[0].(map[string]any)
	if first["name"] != "Plástico Blanco" {
		t.Fatalf("spanish name = %v", first["name"])
	}
}

func TestMeshStyles(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/mesh-styles", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	styles := decodeJSON(t, rec)["mesh_styles"].([]any)
	if len(styles) != 2 {
		t.Fatalf("styles = %d, want 2", len(styles))
	}
	if styles[0].(map[string]any)["key"] != "detailed" {
		t.Fatalf("first style = %v", styles[0])
	}
}

func TestPublicConfigUsesDetectedRegion(t *testing.T) {
	api := newTestAPI(t)
	rec := api.do(t, http.MethodGet, "/api/config", nil, func(r *http.Request) {
		r.Header.Set("X-Country", "US")
		r.Header.Set("X-Locale", "en")
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decodeJSON(t, rec)
	region := body["region"].(map[string]any)
	if region["key"] != "usa" {
		t.Fatalf("region = %v", region)
	}
	sizes := body["sizes"].([]any)
	if len(sizes) != 5 {
		t.Fatalf("sizes = %d, want 5", len(sizes))
	}
	mini := sizes[0].(map[string]any)
	prices := mini["prices"].(map[string]any)
	// 2900 * 1.0 * 1.25 = 3625
	if price := prices["plastic_white"].(string); !strings.Contains(price, "36.25") {
		t.Fatalf("mini plastic_white usa = %q", price)
	}
}

func TestOutputServesStoredArtifacts(t *testing.T) {
	api := newTestAPI(t)
	if _, err := api.store.Write(context.Background(), "job_a/concept.png", []byte("png-bytes")); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	rec := api.do(t, http.MethodGet, "/output/job_a/concept.png", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "png-bytes" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}
