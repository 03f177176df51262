package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Skufu/securemed/internal/analysis"
	"github.com/Skufu/securemed/internal/apperrors"
	"github.com/Skufu/securemed/internal/config"
	"github.com/Skufu/securemed/internal/extract"
	"github.com/Skufu/securemed/internal/store"
)

const rxText = "BP: 150/95\nTab. Amoxicillin 500mg od for 7 days\nTab. Omeprazole 20mg od"

type fakeDB struct {
	err error
}

func (f fakeDB) Ping(ctx context.Context) error {
	return f.err
}

type fakeOCR struct{ text string }

func (f fakeOCR) Recognize([]byte) (string, error) { return f.text, nil }

type fakePDF struct{}

func (fakePDF) Text([]byte) (string, error) { return "", errors.New("no pdf in tests") }

type fakeAnalyzer struct{ err error }

func (f fakeAnalyzer) Analyze(context.Context, analysis.Input) (*analysis.Result, error) {
	return nil, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]store.AnalysisRecord
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[uuid.UUID]store.AnalysisRecord)}
}

func (f *fakeStore) SaveAnalysis(ctx context.Context, rec store.AnalysisRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeStore) GetAnalysis(ctx context.Context, id uuid.UUID) (*store.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:        "8080",
		CORSOrigins: []string{"*"},
		Analysis: config.AnalysisConfig{
			MaxUploadMB: 1,
			Timeout:     5 * time.Second,
			OCRLanguage: "eng",
		},
		RateLimit: config.RateLimitConfig{RPS: 100, Burst: 100},
	}
}

func newTestRouter(cfg *config.Config, deps Deps) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if deps.Analyzer == nil {
		deps.Analyzer = analysis.New(extract.New(fakeOCR{text: rxText}, fakePDF{}))
	}
	return NewRouter(cfg, deps)
}

func multipartRequest(t *testing.T, field, fileName string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ai/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func textRequestFor(t *testing.T, text string) *http.Request {
	t.Helper()
	raw, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/ai/analyze-text", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(testConfig(), Deps{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestReadyzDisabledDB(t *testing.T) {
	router := newTestRouter(testConfig(), Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if w.Code != http.StatusOK || decode(t, w)["db"] != "disabled" {
		t.Fatalf("unexpected readyz response %d %s", w.Code, w.Body.String())
	}
}

func TestReadyzDegraded(t *testing.T) {
	router := newTestRouter(testConfig(), Deps{DB: fakeDB{err: errors.New("down")}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestAnalyzeImage(t *testing.T) {
	router := newTestRouter(testConfig(), Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "file", "rx.png", []byte("fake-png")))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, err := uuid.Parse(w.Header().Get(headerAnalysisID)); err != nil {
		t.Fatalf("missing analysis id: %v", err)
	}
	if w.Header().Get(headerDisclaimer) == "" {
		t.Fatal("missing disclaimer header")
	}

	body := decode(t, w)
	if body["success"] != true || body["fileType"] != "image" {
		t.Fatalf("unexpected body %v", body)
	}
	meds := body["prescription"].(map[string]any)["medications"].([]any)
	if len(meds) != 2 {
		t.Fatalf("expected 2 medications, got %v", meds)
	}
}

func TestAnalyzeDICOM(t *testing.T) {
	router := newTestRouter(testConfig(), Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "file", "study.dcm", []byte("DICM")))

	body := decode(t, w)
	if w.Code != http.StatusOK || body["fileType"] != "dicom" || body["extractedText"] != extract.DICOMPlaceholder {
		t.Fatalf("unexpected response %d %v", w.Code, body)
	}
}

func TestAnalyzeRejectsUnsupportedType(t *testing.T) {
	router := newTestRouter(testConfig(), Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "file", "notes.txt", []byte("hello")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	body := decode(t, w)
	if body["success"] != false || !strings.Contains(body["message"].(string), "PDF") {
		t.Fatalf("unexpected body %v", body)
	}
	if w.Header().Get(headerAnalysisID) == "" {
		t.Fatal("failures must still carry an analysis id")
	}
}

func TestAnalyzeRequiresFile(t *testing.T) {
	router := newTestRouter(testConfig(), Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "attachment", "rx.png", []byte("x")))

	if w.Code != http.StatusBadRequest || decode(t, w)["message"] != "No file uploaded" {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestAnalyzeRejectsOversizeFile(t *testing.T) {
	router := newTestRouter(testConfig(), Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "file", "big.png", bytes.Repeat([]byte("a"), 1<<20+10)))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestAnalyzeErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"timeout", apperrors.AnalysisTimeout(context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"extraction", apperrors.ExtractionFailure(errors.New("tessdata missing")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(testConfig(), Deps{Analyzer: fakeAnalyzer{err: tt.err}})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, multipartRequest(t, "file", "rx.jpg", []byte("x")))

			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if decode(t, w)["success"] != false {
				t.Fatalf("expected failure body, got %s", w.Body.String())
			}
		})
	}
}

func TestAnalyzeText(t *testing.T) {
	router := newTestRouter(testConfig(), Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, textRequestFor(t, rxText))

	body := decode(t, w)
	if w.Code != http.StatusOK || body["fileType"] != analysis.FileTypeText {
		t.Fatalf("unexpected response %d %v", w.Code, body)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, textRequestFor(t, ""))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty text, got %d", w.Code)
	}
}

func TestAnalyzeRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 1}
	router := newTestRouter(cfg, Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, textRequestFor(t, rxText))
	if w.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, textRequestFor(t, rxText))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", w.Code)
	}
}

func TestAnalysisIsPersistedAndRetrievable(t *testing.T) {
	fs := newFakeStore()
	router := newTestRouter(testConfig(), Deps{Store: fs})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "file", "rx.png", []byte("fake-png")))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	id, err := uuid.Parse(w.Header().Get(headerAnalysisID))
	if err != nil {
		t.Fatalf("parse id: %v", err)
	}
	rec, ok := fs.records[id]
	if !ok {
		t.Fatal("analysis was not persisted")
	}
	if rec.FileName != "rx.png" || rec.FileType != "image" || rec.MedicationCount != 2 {
		t.Fatalf("unexpected record %+v", rec)
	}
	if !bytes.Equal(rec.Result, w.Body.Bytes()) {
		t.Fatal("stored result must match the response body")
	}

	get := httptest.NewRecorder()
	router.ServeHTTP(get, httptest.NewRequest(http.MethodGet, "/api/ai/analyses/"+id.String(), nil))
	if get.Code != http.StatusOK || !bytes.Equal(get.Body.Bytes(), rec.Result) {
		t.Fatalf("unexpected lookup response %d", get.Code)
	}

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/api/ai/analyses/"+uuid.NewString(), nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}

	bad := httptest.NewRecorder()
	router.ServeHTTP(bad, httptest.NewRequest(http.MethodGet, "/api/ai/analyses/not-a-uuid", nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.Code)
	}
}

func TestPersistFailureDoesNotFailRequest(t *testing.T) {
	fs := newFakeStore()
	fs.saveErr = errors.New("db down")
	router := newTestRouter(testConfig(), Deps{Store: fs})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, textRequestFor(t, rxText))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestHistoryRouteRequiresStore(t *testing.T) {
	router := newTestRouter(testConfig(), Deps{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ai/analyses/"+uuid.NewString(), nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a store, got %d", w.Code)
	}
}

func TestLimitBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBodySize(8))
	r.POST("/echo", func(c *gin.Context) {
		var payload map[string]any
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"text":"far too long"}`)))
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}
