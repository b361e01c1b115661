package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docview/internal/ast"
	"github.com/dgallion1/docview/internal/catalogue"
	"github.com/dgallion1/docview/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type origin struct {
	mu    sync.Mutex
	hits  map[string]int
	files map[string]string
}

func newOrigin(t *testing.T, files map[string]string) (*origin, *httptest.Server) {
	t.Helper()
	o := &origin{hits: make(map[string]int), files: files}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.mu.Lock()
		o.hits[r.URL.Path]++
		body, ok := o.files[r.URL.Path]
		o.mu.Unlock()
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return o, srv
}

func (o *origin) count(path string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.hits[path]
}

const docA = `{
  "type": "document",
  "attributes": {"title": "Intro", "date": "2024-01-01", "tags": ["x"]},
  "children": [
    {"type": "heading", "attributes": {"level": 1, "id": "h1"}, "children": [{"type": "text", "content": "Hello"}]},
    {"type": "paragraph", "children": [{"type": "text", "content": "World"}]}
  ]
}`

const listJSON = `[{"pk":"a","title":"Intro","date":"2024-01-01","tags":["x"]}]`

func TestStore_EndToEnd(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{
		"/docs/docs-db.json": listJSON,
		"/docs/a/doc.json":   docA,
	})
	store := NewStore(NewClient(srv.URL, 5*time.Second), nil, testLogger())
	ctx := context.Background()

	rows := store.List(ctx)
	require.Equal(t, []ast.DocRow{{PK: "a", Title: "Intro", Date: "2024-01-01", Tags: []string{"x"}}}, rows)

	doc := store.Document(ctx, rows[0].PK)
	assert.Equal(t, 1, o.count("/docs/a/doc.json"))
	assert.Equal(t, "Intro", doc.Title)
	assert.Equal(t, "2024-01-01", doc.Date)
	assert.Equal(t, []string{"x"}, doc.Tags)

	tr := catalogue.NewTracker(nil, catalogue.NewViewportSignal(), testLogger())
	entries := tr.Mount(doc.Root())
	require.Len(t, entries, 1)
	assert.Equal(t, "Hello", entries[0].Label)
	assert.Equal(t, "h1", tr.Active())
}

func TestStore_CachesByKey(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{"/docs/a/doc.json": docA})
	m := metrics.NewCollector("test")
	store := NewStore(NewClient(srv.URL, 5*time.Second), m, testLogger())
	ctx := context.Background()

	first := store.Document(ctx, "a")
	second := store.Document(ctx, "a")
	assert.Same(t, first, second)
	assert.Equal(t, 1, o.count("/docs/a/doc.json"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocFetches.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocFetches.WithLabelValues("hit")))
}

func TestStore_FallbackOnFailure(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{
		"/docs/broken/doc.json":    `{"type": "document", "children": [`,
		"/docs/paragraph/doc.json": `{"type": "paragraph"}`,
	})
	store := NewStore(NewClient(srv.URL, 5*time.Second), nil, testLogger())
	ctx := context.Background()

	for _, pk := range []string{"missing", "broken", "paragraph", ""} {
		t.Run(pk, func(t *testing.T) {
			doc := store.Document(ctx, pk)
			require.NotNil(t, doc)
			assert.Equal(t, "Not Found", doc.Title)
			assert.Empty(t, doc.Tags)
			assert.NotNil(t, doc.Tags)
			assert.Equal(t, "", doc.Date)
			assert.Equal(t, ast.KindDocument, doc.Type)
		})
	}
	store.Document(ctx, "missing")
	assert.Equal(t, 2, o.count("/docs/missing/doc.json"), "fallbacks are not cached")
}

func TestStore_FallbackRetriesOrigin(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{})
	store := NewStore(NewClient(srv.URL, 5*time.Second), nil, testLogger())
	ctx := context.Background()

	assert.Equal(t, "Not Found", store.Document(ctx, "late").Title)

	o.mu.Lock()
	o.files["/docs/late/doc.json"] = docA
	o.mu.Unlock()

	assert.Equal(t, "Intro", store.Document(ctx, "late").Title)
	assert.Equal(t, 2, o.count("/docs/late/doc.json"))
}

func TestStore_ListFailureIsEmpty(t *testing.T) {
	_, srv := newOrigin(t, map[string]string{})
	store := NewStore(NewClient(srv.URL, 5*time.Second), nil, testLogger())
	rows := store.List(context.Background())
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestStore_UnreachableOrigin(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	c.backoff = noBackoff
	store := NewStore(c, nil, testLogger())
	ctx := context.Background()
	assert.Equal(t, "Not Found", store.Document(ctx, "a").Title)
	assert.Empty(t, store.List(ctx))
}

func TestClient_StatusError(t *testing.T) {
	_, srv := newOrigin(t, map[string]string{})
	c := NewClient(srv.URL+"/", 5*time.Second)
	_, err := c.GetBytes(context.Background(), "nope.json")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "nope.json", se.Path)
	assert.Contains(t, se.Body, "not found")
}

func TestClient_AbsoluteURL(t *testing.T) {
	_, srv := newOrigin(t, map[string]string{"/katex.css": ".katex{}"})
	c := NewClient("http://unused.invalid", 5*time.Second)
	body, err := c.GetBytes(context.Background(), srv.URL+"/katex.css")
	require.NoError(t, err)
	assert.Equal(t, ".katex{}", string(body))
}

func TestCardStore_LoadsOnce(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{
		CardsPath: `{
			"education": {"title": "Education", "content": [{"school": "MIT", "time": "2020", "major": "CS"}]},
			"self-intro": {"description": "hi", "content": "about me"}
		}`,
	})
	cards := NewCardStore(NewClient(srv.URL, 5*time.Second), "Ada", nil, testLogger())
	ctx := context.Background()

	edu := cards.Card(ctx, CardEducation)
	require.NotNil(t, edu.Content)
	assert.Equal(t, []EduInfo{{School: "MIT", Time: "2020", Major: "CS"}}, edu.Content.Education)

	intro := cards.SelfIntro(ctx)
	assert.Equal(t, "Ada", intro.Title)
	assert.Equal(t, "about me", intro.Content.Text)

	assert.Equal(t, Card{}, cards.Card(ctx, CardPublish))
	assert.Equal(t, 1, o.count(CardsPath))
}

func TestCardStore_Fallback(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{})
	cards := NewCardStore(NewClient(srv.URL, 5*time.Second), "Ada", nil, testLogger())
	ctx := context.Background()

	all := cards.Cards(ctx)
	assert.Len(t, all, 3)
	assert.Equal(t, "Publish Content", all[CardPublish].Content.Text)
	assert.Equal(t, "Ada", cards.SelfIntro(ctx).Title)
	assert.Equal(t, 3, o.count(CardsPath), "failures are retried")
}

func TestCardContent_JSON(t *testing.T) {
	var c Card
	require.NoError(t, json.Unmarshal([]byte(`{"content":"text"}`), &c))
	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":"text"}`, string(out))

	require.NoError(t, json.Unmarshal([]byte(`{"content":[{"school":"s","time":"t","major":"m"}]}`), &c))
	out, err = json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"content":[{"school":"s","time":"t","major":"m"}]}`, string(out))
}

func TestStore_ConcurrentLookups(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, docA)
	}))
	t.Cleanup(srv.Close)
	store := NewStore(NewClient(srv.URL, 5*time.Second), nil, testLogger())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "Intro", store.Document(context.Background(), "a").Title)
		}()
	}
	wg.Wait()
	before := hits.Load()
	assert.GreaterOrEqual(t, before, int32(1))
	assert.Equal(t, "Intro", store.Document(context.Background(), "a").Title)
	assert.Equal(t, before, hits.Load(), "a cached document is not fetched again")
}

func noBackoff(int) time.Duration { return time.Millisecond }

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 5*time.Second)
	c.backoff = noBackoff
	var v struct{ OK bool }
	require.NoError(t, c.GetJSON(context.Background(), "/x.json", &v))
	assert.True(t, v.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, 5*time.Second)
	c.backoff = noBackoff
	_, err := c.GetBytes(context.Background(), "/x.json")

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, int32(MaxRetries+1), calls.Load())
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{})
	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.GetBytes(context.Background(), "/gone.json")
	require.Error(t, err)
	assert.Equal(t, 1, o.count("/gone.json"))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &StatusError{StatusCode: http.StatusBadGateway}, true},
		{"rate limited", &StatusError{StatusCode: http.StatusTooManyRequests}, true},
		{"not found", &StatusError{StatusCode: http.StatusNotFound}, false},
		{"cancelled", context.Canceled, false},
		{"plain", errors.New("decode"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestBackoff_Bounded(t *testing.T) {
	for attempt := range 10 {
		d := Backoff(attempt)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.Less(t, d, 3*time.Second)
	}
}
