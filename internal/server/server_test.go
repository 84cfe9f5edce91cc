package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"chirp/internal/config"
	"chirp/internal/media"
	"chirp/internal/models"
	"chirp/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "server-test-secret-0123456789abcdef"

type testServer struct {
	app *fiber.App
	db  *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Port:                 "0",
		JWTSecret:            testSecret,
		MediaUploadDir:       t.TempDir(),
		MediaBaseURL:         "/media",
		MediaMaxUploadSizeMB: 1,
	}
	db := testutil.NewDB(t)
	s, err := NewServerWithDeps(cfg, db, nil, media.NewLocalStore(cfg))
	require.NoError(t, err)
	return &testServer{app: s.App(), db: db}
}

func bearer(t *testing.T, userID uint) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": strconv.FormatUint(uint64(userID), 10),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

func (ts *testServer) do(t *testing.T, req *http.Request, userID uint) (*http.Response, map[string]interface{}) {
	t.Helper()
	if userID != 0 {
		req.Header.Set("Authorization", bearer(t, userID))
	}
	resp, err := ts.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func (ts *testServer) json(t *testing.T, method, path string, userID uint, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.do(t, req, userID)
}

func (ts *testServer) multipart(t *testing.T, path string, userID uint, content string, file []byte) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content", content))
	if file != nil {
		part, err := w.CreateFormFile("media", "upload.png")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return ts.do(t, req, userID)
}

func tinyPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

func idOf(body map[string]interface{}) uint {
	id, _ := body["id"].(float64)
	return uint(id)
}

func TestServer_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.json(t, http.MethodGet, "/api/tweets", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authorization header required", body["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/tweets", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, _ = ts.do(t, req, 0)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_HealthChecks(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.json(t, http.MethodGet, "/health/live", 0, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "up", body["status"])

	resp, body = ts.json(t, http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_TweetLifecycle(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice").ID
	bob := testutil.CreateUser(t, ts.db, "bob").ID
	carol := testutil.CreateUser(t, ts.db, "carol").ID

	resp, created := ts.json(t, http.MethodPost, "/api/tweets", alice, map[string]string{"content": "hello #gophers"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tweetID := idOf(created)
	require.NotZero(t, tweetID)
	tweetPath := fmt.Sprintf("/api/tweets/%d", tweetID)

	resp, retweet := ts.json(t, http.MethodPost, tweetPath+"/retweet", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, retweet["retweeted"])
	assert.Equal(t, "RETWEET", retweet["tweet_type"])

	resp, liked := ts.json(t, http.MethodPost, tweetPath+"/like", bob, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, liked["liked"])
	assert.Equal(t, float64(1), liked["like_count"])

	resp, reply := ts.multipart(t, tweetPath+"/replies", carol, "welcome!", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, detail := ts.json(t, http.MethodGet, fmt.Sprintf("/api/tweets/%d", idOf(reply)), carol, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, detail["part_of_thread"])
	parent, ok := detail["parent_tweet"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(tweetID), parent["id"])

	resp, body := ts.json(t, http.MethodDelete, tweetPath, bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeForbidden, body["code"])

	resp, masked := ts.json(t, http.MethodDelete, tweetPath, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, masked["deleted"])
	assert.Equal(t, models.DeletedTweetPlaceholder, masked["content"])
	assert.Equal(t, float64(0), masked["like_count"])
	assert.Equal(t, float64(1), masked["reply_count"])

	resp, shadow := ts.json(t, http.MethodGet, tweetPath+"/shadow", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hello #gophers", shadow["original_content"])

	resp, _ = ts.json(t, http.MethodGet, tweetPath+"/shadow", bob, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = ts.json(t, http.MethodPost, tweetPath+"/retweet", carol, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeInvalidState, body["code"])

	resp, body = ts.json(t, http.MethodGet, fmt.Sprintf("/api/users/%d", bob), alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["tweets_count"], "the cascade removed bob's retweet")
}

func TestServer_UpdateTweet(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice").ID
	bob := testutil.CreateUser(t, ts.db, "bob").ID

	_, created := ts.json(t, http.MethodPost, "/api/tweets", alice, map[string]string{"content": "typo"})
	path := fmt.Sprintf("/api/tweets/%d", idOf(created))

	resp, updated := ts.json(t, http.MethodPatch, path, alice, map[string]string{"content": "fixed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "fixed", updated["content"])

	resp, _ = ts.json(t, http.MethodPatch, path, bob, map[string]string{"content": "hijack"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_Validation(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice").ID

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"content too long", http.MethodPost, "/api/tweets", map[string]string{"content": strings.Repeat("a", 281)}, http.StatusBadRequest, models.CodeInvalidState},
		{"blank content", http.MethodPost, "/api/tweets", map[string]string{"content": "   "}, http.StatusBadRequest, models.CodeInvalidState},
		{"non-numeric id", http.MethodGet, "/api/tweets/abc", nil, http.StatusBadRequest, models.CodeValidation},
		{"missing tweet", http.MethodGet, "/api/tweets/4242", nil, http.StatusNotFound, models.CodeNotFound},
		{"unknown sort field", http.MethodGet, "/api/tweets?sort=password,desc", nil, http.StatusBadRequest, models.CodeValidation},
		{"blank search", http.MethodGet, "/api/search?q=%20", nil, http.StatusBadRequest, models.CodeValidation},
		{"missing user", http.MethodGet, "/api/users/777", nil, http.StatusNotFound, models.CodeNotFound},
		{"bad other id", http.MethodGet, "/api/users/1/following/zero", nil, http.StatusBadRequest, models.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := ts.json(t, tt.method, tt.path, alice, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestServer_MediaUpload(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice").ID

	resp, created := ts.multipart(t, "/api/tweets", alice, "with a picture", tinyPNG(t))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "IMAGE", created["media_type"])

	url, ok := created["media_url"].(string)
	require.True(t, ok)
	require.True(t, strings.HasPrefix(url, "/media/"), url)

	resp, _ = ts.do(t, httptest.NewRequest(http.MethodGet, url, nil), 0)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.multipart(t, "/api/tweets", alice, "not an image", []byte("plain text, honestly"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, body["code"])
}

func TestServer_FollowRoutes(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice").ID
	bob := testutil.CreateUser(t, ts.db, "bob").ID
	followPath := fmt.Sprintf("/api/users/%d/follow", bob)

	resp, followed := ts.json(t, http.MethodPost, followPath, alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), followed["followers_count"])

	resp, _ = ts.json(t, http.MethodPost, followPath, alice, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ts.json(t, http.MethodPost, fmt.Sprintf("/api/users/%d/follow", alice), alice, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, status := ts.json(t, http.MethodGet, fmt.Sprintf("/api/users/%d/following/%d", alice, bob), alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, status["following"])

	resp, followers := ts.json(t, http.MethodGet, fmt.Sprintf("/api/users/%d/followers", bob), alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), followers["total_elements"])

	resp, _ = ts.json(t, http.MethodDelete, followPath, alice, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := ts.json(t, http.MethodDelete, followPath, alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, body["code"])
}

func TestServer_SearchAndTimeline(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice").ID
	bob := testutil.CreateUser(t, ts.db, "bob").ID

	ts.json(t, http.MethodPost, "/api/tweets", bob, map[string]string{"content": "gophers unite #golang"})
	ts.json(t, http.MethodPost, "/api/tweets", alice, map[string]string{"content": "morning"})
	ts.json(t, http.MethodPost, fmt.Sprintf("/api/users/%d/follow", bob), alice, nil)

	resp, res := ts.json(t, http.MethodGet, "/api/search?q=GOPHERS", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tweets, ok := res["tweets"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), tweets["total_elements"])

	resp, tagged := ts.json(t, http.MethodGet, "/api/search/hashtag/golang", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), tagged["total_elements"])

	resp, timeline := ts.json(t, http.MethodGet, "/api/timeline?size=1", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), timeline["total_elements"])
	assert.Equal(t, float64(2), timeline["total_pages"])
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "other ID", humanizeParam("otherId"))
	assert.Equal(t, "tag", humanizeParam("tag"))
}
