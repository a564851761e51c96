package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrinal140420/phishing-email-sentinel/internal/adapters/staticml"
	"github.com/mrinal140420/phishing-email-sentinel/internal/adapters/storage"
	"github.com/mrinal140420/phishing-email-sentinel/internal/config"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
	"github.com/mrinal140420/phishing-email-sentinel/internal/fusion"
	"github.com/mrinal140420/phishing-email-sentinel/internal/mltext"
	"github.com/mrinal140420/phishing-email-sentinel/internal/parser"
	"github.com/mrinal140420/phishing-email-sentinel/internal/rules"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, store core.ScanStore) *Server {
	t.Helper()
	logger := zap.NewNop()
	policy := core.MLPolicy{Floor: 0.05, HighBand: 0.80, MediumBand: 0.50}
	cleaner := mltext.NewCleaner(4096, logger)

	service := core.NewScanService(
		parser.New(logger),
		rules.NewEngine(config.RulesConfig{
			SuspiciousTLDs:  []string{"ru"},
			UrgencyKeywords: []string{"urgent"},
			Weights: config.RuleWeights{
				SuspiciousSenderDomain: 0.30,
				UrgentSubject:          0.20,
			},
		}),
		staticml.NewClassifier(0.9, policy, cleaner, logger),
		fusion.NewFuser(config.FusionConfig{
			RulesWeight:      0.4,
			MLWeight:         0.6,
			VerdictThreshold: 0.5,
		}),
		store,
		nil,
		logger,
		true,
	)

	return NewServer(config.NewFromViper(config.NewEmptyViper()), service, store, logger)
}

func doRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(w, req)
	return w
}

func TestHealthAndVersion(t *testing.T) {
	server := newTestServer(t, nil)

	w := doRequest(server, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("GET /health = %d, want 200", w.Code)
	}

	w = doRequest(server, httptest.NewRequest(http.MethodGet, "/version", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /version = %d, want 200", w.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("version body: %v", err)
	}
	if body["version"] != Version {
		t.Errorf("version = %q, want %q", body["version"], Version)
	}
}

func TestHandleScan(t *testing.T) {
	server := newTestServer(t, nil)

	payload, _ := json.Marshal(map[string]string{
		"raw_email": "From: attacker@phishing.ru\nSubject: URGENT notice\n\nPay up.\n",
	})
	req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := doRequest(server, req)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /scan = %d, want 200: %s", w.Code, w.Body.String())
	}

	var result core.ScanResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("scan response: %v", err)
	}
	if result.Verdict != core.VerdictPhishing {
		t.Errorf("Verdict = %q, want PHISHING", result.Verdict)
	}
	if result.ScanID == "" || result.Timestamp == "" {
		t.Errorf("incomplete result: %+v", result)
	}
	if result.Signals.MLProbability != 0.9 {
		t.Errorf("ml_probability = %v, want 0.9", result.Signals.MLProbability)
	}
}

func TestHandleScanRejectsBadRequests(t *testing.T) {
	server := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"not json", "raw_email=hello"},
		{"empty raw_email", `{"raw_email": ""}`},
		{"missing field", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/scan", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if w := doRequest(server, req); w.Code != http.StatusBadRequest {
				t.Errorf("POST /scan = %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleScanMalformedEmailStillAnswers(t *testing.T) {
	server := newTestServer(t, nil)

	payload, _ := json.Marshal(map[string]string{"raw_email": "not an email"})
	req := httptest.NewRequest(http.MethodPost, "/scan", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	w := doRequest(server, req)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /scan = %d, want 200 even for unparseable mail", w.Code)
	}
	var result core.ScanResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("scan response: %v", err)
	}
	if result.Error == nil || result.Error.Type != core.ErrTypeParsing {
		t.Errorf("Error = %+v, want %s", result.Error, core.ErrTypeParsing)
	}
	if result.Verdict != core.VerdictBenign {
		t.Errorf("Verdict = %q, want BENIGN under fail-open", result.Verdict)
	}
}

func TestHandleScanFile(t *testing.T) {
	server := newTestServer(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "sample.eml")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write([]byte("From: admin@example.com\nSubject: hello\n\nAll good.\n"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/scan/file", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := doRequest(server, req)
	if w.Code != http.StatusOK {
		t.Fatalf("POST /scan/file = %d, want 200: %s", w.Code, w.Body.String())
	}
	var result core.ScanResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatalf("scan response: %v", err)
	}
	if result.Verdict != core.VerdictPhishing {
		t.Errorf("Verdict = %q, want PHISHING from the static 0.9 classifier", result.Verdict)
	}
}

func TestHandleScanFileMissingUpload(t *testing.T) {
	server := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/scan/file", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=empty")
	if w := doRequest(server, req); w.Code != http.StatusBadRequest {
		t.Errorf("POST /scan/file = %d, want 400", w.Code)
	}
}

func TestHandleHistory(t *testing.T) {
	store := storage.NewMemoryStore(zap.NewNop(), time.Hour, time.Hour)
	defer store.Stop()
	for _, record := range []core.ScanRecord{
		{ScanID: "a", SenderDomain: "example.com", Verdict: core.VerdictBenign},
		{ScanID: "b", SenderDomain: "phishing.ru", Verdict: core.VerdictPhishing},
	} {
		record := record
		if err := store.SaveScan(context.Background(), &record); err != nil {
			t.Fatalf("SaveScan: %v", err)
		}
	}
	server := newTestServer(t, store)

	w := doRequest(server, httptest.NewRequest(http.MethodGet, "/history?verdict=PHISHING", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /history = %d, want 200", w.Code)
	}
	var body struct {
		Count   int               `json:"count"`
		Results []core.ScanRecord `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("history body: %v", err)
	}
	if body.Count != 1 || len(body.Results) != 1 || body.Results[0].ScanID != "b" {
		t.Errorf("history = %+v, want only scan b", body)
	}
}

func TestHandleHistoryWithoutStore(t *testing.T) {
	server := newTestServer(t, nil)

	for _, path := range []string{"/history", "/history/stats"} {
		if w := doRequest(server, httptest.NewRequest(http.MethodGet, path, nil)); w.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s = %d, want 503", path, w.Code)
		}
	}
}

func TestHandleStats(t *testing.T) {
	store := storage.NewMemoryStore(zap.NewNop(), time.Hour, time.Hour)
	defer store.Stop()
	record := core.ScanRecord{ScanID: "a", Verdict: core.VerdictPhishing}
	if err := store.SaveScan(context.Background(), &record); err != nil {
		t.Fatalf("SaveScan: %v", err)
	}
	server := newTestServer(t, store)

	w := doRequest(server, httptest.NewRequest(http.MethodGet, "/history/stats", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /history/stats = %d, want 200", w.Code)
	}
	var stats core.ScanStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("stats body: %v", err)
	}
	if stats.TotalScans != 1 || stats.PhishingDetected != 1 {
		t.Errorf("stats = %+v, want one phishing scan", stats)
	}
}
