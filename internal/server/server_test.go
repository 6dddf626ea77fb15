package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryan-buckman/readhubx/internal/database"
	"github.com/bryan-buckman/readhubx/internal/model"
	"github.com/bryan-buckman/readhubx/internal/proxy"
	"github.com/bryan-buckman/readhubx/internal/subscription"
)

type testEnv struct {
	srv      *Server
	subs     *subscription.Store
	handler  http.Handler
	upstream *httptest.Server
	lastURL  chan string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{lastURL: make(chan string, 16)}
	env.upstream = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.lastURL <- r.URL.String()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"items":[
			{"uid":"T1","title":"Acme news","summary":"s","publishDate":"2024-03-01T08:30:00Z",
			 "entityList":[{"id":"42","name":"Acme"}]}
		],"pageIndex":1}}`))
	}))
	t.Cleanup(env.upstream.Close)

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := proxy.DefaultConfig()
	cfg.Origin = env.upstream.URL
	cfg.RPS = 0
	env.subs = subscription.New(db)
	env.srv = New(env.subs, Config{PublicURL: "http://feeds.example/", Proxy: cfg})
	env.handler = env.srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) list(t *testing.T) []model.Subscription {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/subscriptions", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var out []model.Subscription
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestSubscriptionsCRUD(t *testing.T) {
	env := newTestEnv(t)

	assert.Empty(t, env.list(t))
	assert.JSONEq(t, `[]`, env.do(t, http.MethodGet, "/subscriptions", nil).Body.String())

	rec := env.do(t, http.MethodPost, "/subscriptions", []byte(`{"id":"42","name":"Acme","type":"Company"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	env.do(t, http.MethodPost, "/subscriptions", []byte(`{"id":"42","name":"Acme","type":"company"}`))
	env.do(t, http.MethodPost, "/subscriptions", []byte(`{"id":"t1","name":"AI","type":"tag"}`))

	assert.Equal(t, []model.Subscription{
		{ID: "42", Name: "Acme", Type: model.EntityCompany},
		{ID: "t1", Name: "AI", Type: model.EntityTag},
	}, env.list(t))

	rec = env.do(t, http.MethodDelete, "/subscriptions/42", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.Subscription{{ID: "t1", Name: "AI", Type: model.EntityTag}}, env.list(t))

	env.do(t, http.MethodDelete, "/subscriptions", nil)
	assert.Empty(t, env.list(t))
}

func TestServer_UsesGivenStore(t *testing.T) {
	env := newTestEnv(t)

	env.subs.Add(model.Subscription{ID: "42", Name: "Acme", Type: model.EntityCompany})
	assert.Equal(t, []model.Subscription{{ID: "42", Name: "Acme", Type: model.EntityCompany}}, env.list(t))

	env.do(t, http.MethodPost, "/subscriptions", []byte(`{"id":"t1","name":"AI","type":"tag"}`))
	assert.True(t, env.subs.IsSubscribed(model.Subscription{ID: "t1"}))
}

func TestAddSubscription_NumericID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/subscriptions", []byte(`{"id":42,"name":"Acme","type":"company"}`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []model.Subscription{{ID: "42", Name: "Acme", Type: model.EntityCompany}}, env.list(t))
}

func TestAddSubscription_BadRequest(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/subscriptions", []byte(`{`)).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/subscriptions", []byte(`{"name":"x"}`)).Code)
}

func TestOPMLExportImport(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/subscriptions", []byte(`{"id":"42","name":"Acme","type":"company"}`))

	rec := env.do(t, http.MethodGet, "/subscriptions/opml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	exported := rec.Body.Bytes()
	assert.Contains(t, string(exported), `xmlUrl="http://feeds.example/feed.xml?entityType=company&amp;id=42"`)

	other := newTestEnv(t)
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("opml", "subs.opml")
	require.NoError(t, err)
	fw.Write(exported)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/subscriptions/opml", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec = httptest.NewRecorder()
	other.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Imported int `json:"imported"`
		Total    int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, []model.Subscription{{ID: "42", Name: "Acme", Type: model.EntityCompany}}, other.list(t))
}

func TestImportOPML_NoFile(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodPost, "/subscriptions/opml", nil).Code)
}

func TestFeed(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/subscriptions", []byte(`{"id":"42","name":"Acme","type":"company"}`))
	env.do(t, http.MethodPost, "/subscriptions", []byte(`{"id":"43","name":"Widget","type":"product"}`))

	rec := env.do(t, http.MethodGet, "/feed.xml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/rss+xml"))

	upstreamURL := <-env.lastURL
	assert.Contains(t, upstreamURL, "/topic/list_pro")
	assert.Contains(t, upstreamURL, "entity_id=42%2C43")
	assert.Contains(t, upstreamURL, "size=10")

	feed, err := gofeed.NewParser().Parse(rec.Body)
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "Acme news", feed.Items[0].Title)
	assert.Equal(t, "http://feeds.example/", feed.Link)
}

func TestFeed_SingleTag(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/feed.xml?id=t9&entityType=tag", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	upstreamURL := <-env.lastURL
	assert.Contains(t, upstreamURL, "tag_id=t9")
	assert.NotContains(t, upstreamURL, "entity_id")
}

func TestFeed_NoSubscriptions(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/feed.xml?type=tag", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.lastURL)

	feed, err := gofeed.NewParser().Parse(rec.Body)
	require.NoError(t, err)
	assert.Empty(t, feed.Items)
}

func TestProxyMountAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/topic/list_pro?entity_id=42&page=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	upstreamURL := <-env.lastURL
	assert.True(t, strings.HasPrefix(upstreamURL, "/topic/list_pro?"), upstreamURL)

	rec = env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `readhubx_proxy_requests_total{method="GET",status="200"} 1`)
}
