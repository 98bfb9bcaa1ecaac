package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/Jansyler/Rigradar/internal/database"
	"github.com/Jansyler/Rigradar/internal/logger"
	"github.com/Jansyler/Rigradar/internal/model"
	"github.com/Jansyler/Rigradar/internal/watchdog"
)

type fakeStore struct {
	watches  map[string]model.Watch
	sessions map[string]string
	premium  map[string]model.PremiumStatus
	history  []model.PriceObservation
	queue    []model.ScanRequest
	rate     map[string]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		watches:  map[string]model.Watch{},
		sessions: map[string]string{},
		premium:  map[string]model.PremiumStatus{},
		rate:     map[string]int64{},
	}
}

func (f *fakeStore) WatchInsert(_ context.Context, id string, w model.Watch) error {
	f.watches[id] = w
	return nil
}

func (f *fakeStore) WatchUpdate(_ context.Context, id string, w model.Watch) error {
	f.watches[id] = w
	return nil
}

func (f *fakeStore) WatchFind(_ context.Context, id string) (model.Watch, error) {
	w, ok := f.watches[id]
	if !ok {
		return w, errors.Wrapf(database.ErrWatchNotFound, "no Watch with ID: %s", id)
	}
	return w, nil
}

func (f *fakeStore) WatchFindAll(context.Context) ([]model.StoredWatch, error) {
	ws := []model.StoredWatch{}
	for id, w := range f.watches {
		ws = append(ws, model.StoredWatch{ID: id, Watch: w})
	}
	return ws, nil
}

func (f *fakeStore) WatchFindByOwner(ctx context.Context, email string) ([]model.StoredWatch, error) {
	all, _ := f.WatchFindAll(ctx)
	owned := []model.StoredWatch{}
	for _, w := range all {
		if w.Email == email {
			owned = append(owned, w)
		}
	}
	return owned, nil
}

func (f *fakeStore) WatchDelete(_ context.Context, id string) (bool, error) {
	_, ok := f.watches[id]
	delete(f.watches, id)
	return ok, nil
}

func (f *fakeStore) HistoryFindRecent(_ context.Context, n int64) ([]model.PriceObservation, error) {
	if int64(len(f.history)) < n {
		n = int64(len(f.history))
	}
	return f.history[:n], nil
}

func (f *fakeStore) HistoryInsert(_ context.Context, o model.PriceObservation) error {
	f.history = append([]model.PriceObservation{o}, f.history...)
	return nil
}

func (f *fakeStore) ScanRequestEnqueue(_ context.Context, sr model.ScanRequest) error {
	f.queue = append(f.queue, sr)
	return nil
}

func (f *fakeStore) HeartbeatSet(context.Context, time.Time) error { return nil }

func (f *fakeStore) SessionFindEmail(_ context.Context, token string) (string, error) {
	email, ok := f.sessions[token]
	if !ok {
		return "", errors.New("session not found")
	}
	return email, nil
}

func (f *fakeStore) PremiumFind(_ context.Context, email string) (model.PremiumStatus, error) {
	return f.premium[email], nil
}

func (f *fakeStore) RateLimitIncr(_ context.Context, clientIP string, _ time.Duration) (int64, error) {
	f.rate[clientIP]++
	return f.rate[clientIP], nil
}

type nopAlerts struct{}

func (nopAlerts) SendPriceAlert(context.Context, string, model.Watch, model.PriceObservation, float64) error {
	return nil
}

func testServer(fs *fakeStore) Server {
	testLogger := logger.NewLogger(logger.LevelOff, io.Discard)
	return Server{
		DB: fs,
		Engine: watchdog.Engine{
			Registry:      fs,
			History:       fs,
			Queue:         fs,
			Alerts:        nopAlerts{},
			Logger:        testLogger,
			HistoryWindow: 200,
		},
		Logger:      testLogger,
		CronSecret:  "cron-secret",
		RadarAPIKey: "radar-key",
		SiteURL:     "https://rigradar.test",
	}
}

func doRequest(s Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var reqBody io.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reqBody = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reqBody)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "rr_auth_token", Value: token})
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestWatchdogCreate(t *testing.T) {
	fs := newFakeStore()
	fs.sessions["tok-premium"] = "premium@example.com"
	fs.sessions["tok-free"] = "free@example.com"
	fs.premium["premium@example.com"] = model.PremiumStatus{IsActive: true}
	s := testServer(fs)

	body := map[string]any{"query": "rtx 4070", "targetPrice": 400}

	rec := doRequest(s, http.MethodPost, "/api/watchdog", "", body)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("create without session status = %d, want 401", rec.Code)
	}

	rec = doRequest(s, http.MethodPost, "/api/watchdog", "tok-free", body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("create by free identity status = %d, want 403", rec.Code)
	}
	if len(fs.watches) != 0 {
		t.Errorf("free identity created a Watch: %+v", fs.watches)
	}

	rec = doRequest(s, http.MethodPost, "/api/watchdog", "tok-premium", map[string]any{"query": "rtx 4070"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create without targetPrice status = %d, want 400", rec.Code)
	}

	rec = doRequest(s, http.MethodPost, "/api/watchdog", "tok-premium", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, want 200, body: %s", rec.Code, rec.Body)
	}
	if len(fs.watches) != 1 {
		t.Fatalf("stored %d Watches, want 1", len(fs.watches))
	}
	for id, w := range fs.watches {
		if !strings.HasPrefix(id, "wd_premium@example.com_") {
			t.Errorf("watch id = %s, want wd_<email>_<millis>", id)
		}
		if w.Email != "premium@example.com" || w.Query != "rtx 4070" || w.TargetPrice != 400 {
			t.Errorf("stored Watch = %+v", w)
		}
		if len(w.Stores) != 1 || w.Stores[0] != "ebay" || w.Condition != model.ConditionAny || w.Interval != model.DefaultIntervalSeconds {
			t.Errorf("defaults not applied, Watch = %+v", w)
		}
		if w.LastScanned != 0 || w.LastEmailedPrice != nil {
			t.Errorf("fresh Watch carries evaluation state: %+v", w)
		}
	}
}

func TestWatchdogListReturnsOnlyOwn(t *testing.T) {
	fs := newFakeStore()
	fs.sessions["tok-a"] = "a@example.com"
	fs.watches["wd_a"] = model.Watch{Email: "a@example.com", Query: "gpu", TargetPrice: 100}
	fs.watches["wd_b"] = model.Watch{Email: "b@example.com", Query: "cpu", TargetPrice: 100}
	s := testServer(fs)

	rec := doRequest(s, http.MethodGet, "/api/watchdog", "tok-a", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}
	var resp struct {
		Watchdogs []model.StoredWatch `json:"watchdogs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error decoding response: %v", err)
	}
	if len(resp.Watchdogs) != 1 || resp.Watchdogs[0].ID != "wd_a" {
		t.Errorf("list = %+v, want only wd_a", resp.Watchdogs)
	}
}

func TestWatchdogDeleteOwnership(t *testing.T) {
	fs := newFakeStore()
	fs.sessions["tok-a"] = "a@example.com"
	fs.sessions["tok-b"] = "b@example.com"
	fs.watches["wd_a"] = model.Watch{Email: "a@example.com", Query: "gpu", TargetPrice: 100}
	s := testServer(fs)

	rec := doRequest(s, http.MethodDelete, "/api/watchdog", "tok-b", map[string]any{"watchdogId": "wd_a"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("delete by non-owner status = %d, want 403", rec.Code)
	}
	if _, ok := fs.watches["wd_a"]; !ok {
		t.Error("non-owner delete removed the Watch")
	}

	rec = doRequest(s, http.MethodDelete, "/api/watchdog", "tok-a", map[string]any{"watchdogId": "wd_a"})
	if rec.Code != http.StatusOK {
		t.Errorf("delete by owner status = %d, want 200", rec.Code)
	}
	if _, ok := fs.watches["wd_a"]; ok {
		t.Error("owner delete left the Watch in place")
	}

	rec = doRequest(s, http.MethodDelete, "/api/watchdog", "tok-a", map[string]any{"watchdogId": "wd_a"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("delete of missing id status = %d, want 404", rec.Code)
	}
}

func TestWatchdogUnsubscribeIsPublicAndIdempotent(t *testing.T) {
	fs := newFakeStore()
	fs.watches["wd_a"] = model.Watch{Email: "a@example.com", Query: "gpu", TargetPrice: 100}
	s := testServer(fs)

	for i := 0; i < 2; i++ {
		rec := doRequest(s, http.MethodGet, "/api/watchdog/unsubscribe?id=wd_a", "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("unsubscribe attempt %d status = %d, want 200", i+1, rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("unsubscribe Content-Type = %s, want text/html", ct)
		}
		if !strings.Contains(rec.Body.String(), "Watchdog Deactivated") {
			t.Error("unsubscribe page is missing the confirmation")
		}
	}
	if _, ok := fs.watches["wd_a"]; ok {
		t.Error("unsubscribe left the Watch in place")
	}
}

func TestWatchdogCron(t *testing.T) {
	fs := newFakeStore()
	fs.watches["wd_a"] = model.Watch{Email: "a@example.com", Query: "gpu", TargetPrice: 100, Interval: 3600}
	s := testServer(fs)

	req := httptest.NewRequest(http.MethodGet, "/api/watchdog/cron", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("cron without credential status = %d, want 401", rec.Code)
	}
	if len(fs.queue) != 0 {
		t.Error("unauthorized cron performed work")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/watchdog/cron", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("cron status = %d, want 200, body: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Status string `json:"status"`
		Queued int    `json:"queued"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error decoding response: %v", err)
	}
	if resp.Status != "Watchdog scan complete" || resp.Queued != 1 {
		t.Errorf("cron response = %+v, want complete with 1 queued", resp)
	}
}

func TestScanRequestRateLimit(t *testing.T) {
	fs := newFakeStore()
	s := testServer(fs)

	body := map[string]any{"query": "rtx 4070"}
	for i := 0; i < 2; i++ {
		rec := doRequest(s, http.MethodPost, "/api/scan/request", "", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("scan request %d status = %d, want 200", i+1, rec.Code)
		}
	}
	rec := doRequest(s, http.MethodPost, "/api/scan/request", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("third scan request status = %d, want 429", rec.Code)
	}
	if len(fs.queue) != 2 {
		t.Errorf("enqueued %d ScanRequests, want 2", len(fs.queue))
	}
	for _, sr := range fs.queue {
		if sr.Source != model.ScanSourceUser || sr.OwnerEmail != "system" {
			t.Errorf("ScanRequest = %+v", sr)
		}
	}
}

func TestObservationIngest(t *testing.T) {
	fs := newFakeStore()
	s := testServer(fs)

	req := httptest.NewRequest(http.MethodPost, "/api/observation",
		strings.NewReader(`{"price":"$100","opinion":"solid deal"}`))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("ingest without API key status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/observation",
		strings.NewReader(`{"price":"$100"}`))
	req.Header.Set("X-Radar-Api-Key", "radar-key")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("ingest without opinion status = %d, want 400", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/observation",
		strings.NewReader(`{"price":"$100","opinion":"solid deal"}`))
	req.Header.Set("X-Radar-Api-Key", "radar-key")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest status = %d, want 200, body: %s", rec.Code, rec.Body)
	}
	if len(fs.history) != 1 {
		t.Fatalf("stored %d observations, want 1", len(fs.history))
	}
	o := fs.history[0]
	if o.Title != "Unknown Product" || o.Store != "EBAY" || o.Score != 50 || o.Type != "HW" || o.OwnerEmail != "system" {
		t.Errorf("ingest defaults not applied: %+v", o)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/observation",
		strings.NewReader(`{"type":"heartbeat"}`))
	req.Header.Set("X-Radar-Api-Key", "radar-key")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Heartbeat registered") {
		t.Errorf("heartbeat status = %d, body: %s", rec.Code, rec.Body)
	}
}
