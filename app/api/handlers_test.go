package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zackees/vids-db/app/config"
	"github.com/zackees/vids-db/app/model"
	"github.com/zackees/vids-db/app/videodb"
)

const testAPIKey = "test-key"

func newTestServer(t *testing.T) (*gin.Engine, *videodb.Database) {
	t.Helper()

	db, err := videodb.New(t.TempDir())
	if err != nil {
		t.Fatalf("videodb.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	handler := NewHandler(db, &config.ChannelPolicy{})
	return NewServer(handler, testAPIKey), db
}

func rawVideoBody(channelName, title, url, published string) string {
	return fmt.Sprintf(`{
		"channel_name": %q,
		"title": %q,
		"date_published": %q,
		"channel_url": "https://example.com/%s",
		"source": "example.com",
		"url": %q,
		"duration": "8:24",
		"description": "",
		"img_src": "https://example.com/thumb.jpg",
		"iframe_src": "https://example.com/embed",
		"views": "1.2K"
	}`, channelName, title, published, channelName, url)
}

func doRequest(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
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
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPutVideoAndGetVideos(t *testing.T) {
	r, _ := newTestServer(t)

	published := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	body := rawVideoBody("chanA", "Test Video", "https://example.com/v1", published)

	w := doRequest(r, "PUT", "/put/video", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /put/video returned %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, "GET", "/videos?hours_ago=24", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /videos returned %d: %s", w.Code, w.Body.String())
	}

	var videos []model.Video
	if err := json.Unmarshal(w.Body.Bytes(), &videos); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(videos) != 1 {
		t.Fatalf("Expected 1 video, got %d", len(videos))
	}
	if videos[0].Title != "Test Video" {
		t.Errorf("Expected title 'Test Video', got %q", videos[0].Title)
	}
	if videos[0].Views != 1200 {
		t.Errorf("Expected views 1200, got %d", videos[0].Views)
	}
	if videos[0].Duration != 504 {
		t.Errorf("Expected duration 504, got %v", videos[0].Duration)
	}
}

func TestPutVideoInvalid(t *testing.T) {
	r, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{not json`},
		{"missing title", `{"channel_name": "chanA", "url": "https://example.com/v1", "source": "example.com", "date_published": "2023-07-03T10:00:00Z"}`},
		{"bad duration", strings.Replace(
			rawVideoBody("chanA", "Bad", "https://example.com/bad", "2023-07-03T10:00:00Z"),
			`"8:24"`, `"61:00"`, 1)},
		{"bad timestamp", rawVideoBody("chanA", "Bad", "https://example.com/bad", "not a date ever")},
	}

	for _, tt := range tests {
		w := doRequest(r, "PUT", "/put/video", tt.body, nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d: %s", tt.name, w.Code, w.Body.String())
		}
	}
}

func TestPutVideosBatch(t *testing.T) {
	r, _ := newTestServer(t)

	published := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`{"content": [%s, %s]}`,
		rawVideoBody("chanA", "Video One", "https://example.com/v1", published),
		rawVideoBody("chanB", "Video Two", "https://example.com/v2", published))

	w := doRequest(r, "PUT", "/put/videos", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /put/videos returned %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["stored"] != 2 {
		t.Errorf("Expected 2 stored, got %d", resp["stored"])
	}

	w = doRequest(r, "GET", "/channels", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /channels returned %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "chanA") || !strings.Contains(w.Body.String(), "chanB") {
		t.Errorf("Channel list missing entries: %s", w.Body.String())
	}
}

func TestPutVideoBlockedChannel(t *testing.T) {
	db, err := videodb.New(t.TempDir())
	if err != nil {
		t.Fatalf("videodb.New failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	policy := &config.ChannelPolicy{Block: []string{"spamchan"}}
	r := NewServer(NewHandler(db, policy), "")

	published := time.Now().UTC().Format(time.RFC3339)
	w := doRequest(r, "PUT", "/put/video",
		rawVideoBody("spamchan", "Spam", "https://example.com/spam", published), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT returned %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp["stored"] != 0 {
		t.Errorf("Expected 0 stored for blocked channel, got %d", resp["stored"])
	}
}

func TestSearchVideos(t *testing.T) {
	r, _ := newTestServer(t)

	published := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	body := fmt.Sprintf(`[%s]`, rawVideoBody("RedPillChannel", "TheRedPill", "https://example.com/rp", published))
	w := doRequest(r, "PUT", "/put/videos", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("PUT /put/videos returned %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, "GET", "/search?q=Red+Pill", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /search returned %d: %s", w.Code, w.Body.String())
	}

	var videos []model.Video
	if err := json.Unmarshal(w.Body.Bytes(), &videos); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(videos) != 1 || videos[0].Title != "TheRedPill" {
		t.Errorf("Expected TheRedPill hit, got %v", videos)
	}

	w = doRequest(r, "GET", "/search?q=nothing+matches+this", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("No-match search returned %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Errorf("Expected empty list, got %s", body)
	}
}

func TestSearchVideosInvalidQuery(t *testing.T) {
	r, _ := newTestServer(t)

	for _, q := range []string{"", "%22unbalanced", "+++"} {
		w := doRequest(r, "GET", "/search?q="+q, "", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("q=%q: expected 400, got %d", q, w.Code)
		}
	}
}

func TestGetVideosParams(t *testing.T) {
	r, _ := newTestServer(t)

	tests := []struct {
		path string
		want int
	}{
		{"/videos", http.StatusOK},
		{"/videos?hours_ago=0", http.StatusBadRequest},
		{"/videos?hours_ago=abc", http.StatusBadRequest},
		{"/videos?hours_ago=2&start=2023-01-01T00:00:00Z", http.StatusBadRequest},
		{"/videos?start=2023-01-02T00:00:00Z&end=2023-01-01T00:00:00Z", http.StatusBadRequest},
		{"/videos?start=2023-01-01T00:00:00Z&end=2023-01-02T00:00:00Z", http.StatusOK},
		{"/videos?limit=-1", http.StatusBadRequest},
	}

	for _, tt := range tests {
		w := doRequest(r, "GET", tt.path, "", nil)
		if w.Code != tt.want {
			t.Errorf("GET %s: expected %d, got %d: %s", tt.path, tt.want, w.Code, w.Body.String())
		}
	}
}

func TestGetRSS(t *testing.T) {
	r, _ := newTestServer(t)

	published := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	doRequest(r, "PUT", "/put/video",
		rawVideoBody("chanA", "RSS Video", "https://example.com/rss1", published), nil)

	w := doRequest(r, "GET", "/rss/all", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /rss/all returned %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/xml") {
		t.Errorf("Expected XML content type, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "<title>RSS Video</title>") {
		t.Error("RSS output missing item")
	}

	w = doRequest(r, "GET", "/rss/channel/chanA", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /rss/channel/chanA returned %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<title>chanA</title>") {
		t.Error("Channel RSS output missing channel")
	}

	w = doRequest(r, "GET", "/rss/channel/missing", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Unknown channel RSS returned %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "<item>") {
		t.Error("Unknown channel RSS should carry no items")
	}
}

func TestAdminAuth(t *testing.T) {
	r, _ := newTestServer(t)

	w := doRequest(r, "DELETE", "/admin/channel/chanA", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}

	w = doRequest(r, "DELETE", "/admin/channel/chanA", "", map[string]string{"X-API-Key": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong key, got %d", w.Code)
	}

	w = doRequest(r, "DELETE", "/admin/channel/chanA", "", map[string]string{"X-API-Key": testAPIKey})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with key, got %d: %s", w.Code, w.Body.String())
	}

	w = doRequest(r, "DELETE", "/admin/channel/chanA", "",
		map[string]string{"Authorization": "Bearer " + testAPIKey})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with bearer token, got %d", w.Code)
	}
}

func TestAdminReindex(t *testing.T) {
	r, _ := newTestServer(t)

	published := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	doRequest(r, "PUT", "/put/video",
		rawVideoBody("chanA", "Indexed Video", "https://example.com/idx", published), nil)

	w := doRequest(r, "POST", "/admin/reindex", "", map[string]string{"X-API-Key": testAPIKey})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /admin/reindex returned %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Indexed int  `json:"indexed"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !resp.Success || resp.Indexed != 1 {
		t.Errorf("Expected 1 reindexed record, got %+v", resp)
	}
}

// failingDB errors on every operation, standing in for a store that
// broke after startup.
type failingDB struct{}

func (failingDB) UpdateMany([]model.Video) error { return errors.New("disk gone") }
func (failingDB) GetVideoList(time.Time, time.Time, string, int) ([]model.Video, error) {
	return nil, errors.New("disk gone")
}
func (failingDB) QueryVideoList(string, int) ([]model.Video, error) {
	return nil, errors.New("disk gone")
}
func (failingDB) GetChannelNames() ([]string, error) { return nil, errors.New("disk gone") }
func (failingDB) RemoveByChannelName(string) error   { return errors.New("disk gone") }
func (failingDB) RebuildSearchIndex() (int, error)   { return 0, errors.New("disk gone") }

func TestHealthFailingStore(t *testing.T) {
	r := NewServer(NewHandler(failingDB{}, &config.ChannelPolicy{}), "")

	w := doRequest(r, "GET", "/health", "", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 when the store errors, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "unavailable") {
		t.Errorf("Health error body should name the failure: %s", w.Body.String())
	}
}

func TestHealthAndVersion(t *testing.T) {
	r, _ := newTestServer(t)

	w := doRequest(r, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET /health returned %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "timestamp") {
		t.Errorf("Health response missing timestamp: %s", w.Body.String())
	}

	w = doRequest(r, "GET", "/version", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("GET /version returned %d", w.Code)
	}
	if w.Body.Len() == 0 {
		t.Error("Version response is empty")
	}
}
