package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"github.com/vtsentry/vtsentry/internal/credstore"
	"github.com/vtsentry/vtsentry/internal/scanner"
	"github.com/vtsentry/vtsentry/internal/storage/models"
)

type memStore struct {
	records []models.ScanRecord
}

func (m *memStore) Load(ctx context.Context) ([]models.ScanRecord, error) {
	return m.records, nil
}

func (m *memStore) Append(ctx context.Context, record models.ScanRecord) error {
	m.records = append([]models.ScanRecord{record}, m.records...)
	return nil
}

func (m *memStore) FindFreshByHash(ctx context.Context, hash string, maxAge time.Duration) (*models.ScanRecord, error) {
	return nil, nil
}

func (m *memStore) Close(ctx context.Context) error { return nil }

type noopClient struct{}

func (noopClient) Submit(ctx context.Context, filePath, apiKey string) (string, error) {
	return "scan-id", nil
}

func (noopClient) FetchReport(ctx context.Context, hash, apiKey string) (models.Verdict, error) {
	return models.Verdict{}, nil
}

type noopNotifier struct{}

func (noopNotifier) Send(title, message string) {}

func newTestServer(config *Config, store *memStore, creds credstore.Store) *WebServer {
	testLogger := logrus.New()
	testLogger.SetOutput(&bytes.Buffer{})

	orch := scanner.NewOrchestrator(scanner.Config{
		Store:       store,
		Client:      noopClient{},
		Notifier:    noopNotifier{},
		Credentials: creds,
		SubmitWait:  time.Millisecond,
	})
	return NewWebServer(orch, store, creds, config, testLogger)
}

func TestHandleGetHistory(t *testing.T) {
	store := &memStore{}
	store.Append(context.Background(), models.NewScanRecord("a.exe", models.StatusClean, models.CleanDetails, "aaaa"))
	store.Append(context.Background(), models.NewScanRecord("b.exe", models.StatusThreatDetected, "3/68 detections", "bbbb"))

	ws := newTestServer(&Config{}, store, credstore.NewStatic(nil))
	router := ws.InitRouter()

	req := httptest.NewRequest("GET", "/api/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp models.HistoryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Total != 2 || len(resp.Records) != 2 {
		t.Errorf("unexpected history: %+v", resp)
	}
	if resp.Records[0].FileName != "b.exe" {
		t.Errorf("history should be newest-first, head is %s", resp.Records[0].FileName)
	}
}

func TestHandleGetStats(t *testing.T) {
	store := &memStore{}
	store.Append(context.Background(), models.NewScanRecord("a.exe", models.StatusClean, models.CleanDetails, "aaaa"))
	store.Append(context.Background(), models.NewScanRecord("b.exe", models.StatusThreatDetected, "3/68 detections", "bbbb"))
	store.Append(context.Background(), models.NewScanRecord("c.exe", models.StatusScanFailed, "boom", ""))

	ws := newTestServer(&Config{}, store, credstore.NewStatic(nil))
	router := ws.InitRouter()

	req := httptest.NewRequest("GET", "/api/stats", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var stats models.StatsResponse
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.TotalScans != 3 || stats.ThreatsDetected != 1 || stats.ScansFailed != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestHandleScanNotConfigured(t *testing.T) {
	ws := newTestServer(&Config{}, &memStore{}, credstore.NewStatic(nil))
	router := ws.InitRouter()

	body := bytes.NewBufferString(`{"path":"/tmp/sample.exe"}`)
	req := httptest.NewRequest("POST", "/api/scan", body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusPreconditionFailed {
		t.Errorf("expected 412 without a credential, got %d", w.Code)
	}
}

func TestHandleCredential(t *testing.T) {
	creds := credstore.NewStatic(nil)
	ws := newTestServer(&Config{}, &memStore{}, creds)
	router := ws.InitRouter()

	req := httptest.NewRequest("GET", "/api/credential", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if body, _ := io.ReadAll(w.Body); !bytes.Contains(body, []byte(`"configured":false`)) {
		t.Errorf("expected unconfigured status, got %s", body)
	}

	req = httptest.NewRequest("PUT", "/api/credential", bytes.NewBufferString(`{"api_key":"secret"}`))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	value, _ := creds.Get(context.Background(), credstore.KeyVirusTotalAPIKey)
	if value != "secret" {
		t.Errorf("credential not stored, got %q", value)
	}
}

func TestAuthMiddleware(t *testing.T) {
	config := &Config{JWTSecret: []byte("testsecret")}
	ws := newTestServer(config, &memStore{}, credstore.NewStatic(nil))
	router := ws.InitRouter()

	req := httptest.NewRequest("GET", "/api/history", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a token, got %d", w.Code)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "local",
		"exp": time.Now().Add(15 * time.Minute).Unix(),
	})
	tokenString, _ := token.SignedString(config.JWTSecret)

	req = httptest.NewRequest("GET", "/api/history", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with a valid token, got %d", w.Code)
	}

	// Health stays open.
	req = httptest.NewRequest("GET", "/health", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for health, got %d", w.Code)
	}
}
