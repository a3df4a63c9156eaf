package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/cascade-ml/cascade-ui/internal/models"
)

// **Feature: data-provider, Property 1: Payload passthrough**
// *For any* request body, the backend receives exactly that body and the
// client returns the backend's JSON without modification.
func TestPropertyPayloadPassthrough(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("request and response bodies pass through unchanged", prop.ForAll(
		func(repo, line string, count int) bool {
			var captured map[string]string
			reply := map[string]any{"name": line, "len": count, "type": "model_line"}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != string(EndpointLine) || r.Method != http.MethodPost {
					http.NotFound(w, r)
					return
				}
				json.NewDecoder(r.Body).Decode(&captured)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(reply)
			}))
			defer server.Close()

			client := NewClient(server.URL)
			data, err := client.Do(context.Background(), Post(EndpointLine, map[string]string{"repo": repo, "line": line}))
			if err != nil {
				t.Logf("Do failed: %v", err)
				return false
			}
			if captured["repo"] != repo || captured["line"] != line {
				t.Logf("backend saw %v", captured)
				return false
			}

			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				return false
			}
			return got["name"] == line && got["len"] == float64(count)
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.IntRange(0, 10000),
	))

	properties.TestingRun(t)
}

// **Feature: data-provider, Property 2: Failures are reported as no data**
// *For any* non-OK status, the client returns a StatusError that matches
// ErrNoData and carries the status code.
func TestPropertyNonOKIsNoData(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("non-OK responses become StatusError", prop.ForAll(
		func(status int) bool {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", status)
			}))
			defer server.Close()

			_, err := NewClient(server.URL).Do(context.Background(), Post(EndpointRepo, map[string]string{"repo": "r"}))
			var se *StatusError
			return errors.Is(err, ErrNoData) && errors.As(err, &se) && se.StatusCode == status
		},
		gen.OneConstOf(400, 404, 409, 422, 500, 502, 503),
	))

	properties.TestingRun(t)
}

func TestTransportFailureIsNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url, WithTimeout(time.Second)).Do(context.Background(), Post(EndpointWorkspace, nil))
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %T, want *TransportError", err)
	}
	if !Recoverable(err) {
		t.Error("transport failure should be recoverable")
	}
}

func TestInvalidJSONIsTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>"))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).Do(context.Background(), Post(EndpointWorkspace, nil))
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want *TransportError", err)
	}
}

func TestRequestHeadersAndMethods(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]*http.Request{}
	bodies := map[string]string{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen[r.URL.Path] = r
		bodies[r.URL.Path] = string(body)
		mu.Unlock()
		w.Write([]byte(`{"cascade_ml_version":"0.14.0","cascade_ui_version":"0.3.0"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	ctx := context.Background()

	if _, err := client.Do(ctx, Get(EndpointVersion)); err != nil {
		t.Fatalf("GET version: %v", err)
	}
	if _, err := client.Do(ctx, Post(EndpointWorkspace, nil)); err != nil {
		t.Fatalf("POST workspace: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	version := seen[string(EndpointVersion)]
	if version.Method != http.MethodGet {
		t.Errorf("version method = %s", version.Method)
	}
	if bodies[string(EndpointVersion)] != "" {
		t.Errorf("GET sent a body: %q", bodies[string(EndpointVersion)])
	}
	if _, err := uuid.Parse(version.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("request id is not a uuid: %v", err)
	}

	ws := seen[string(EndpointWorkspace)]
	if ws.Method != http.MethodPost || ws.Header.Get("Content-Type") != "application/json" {
		t.Errorf("workspace request = %s %s", ws.Method, ws.Header.Get("Content-Type"))
	}
	if bodies[string(EndpointWorkspace)] != "{}" {
		t.Errorf("workspace body = %q, want {}", bodies[string(EndpointWorkspace)])
	}
}

// memoryStore is an in-memory SnapshotStore.
type memoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}}
}

func (m *memoryStore) Put(ctx context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), payload...)
	return nil
}

func (m *memoryStore) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data[key]
	return p, time.Now(), ok, nil
}

// scripted is a Provider returning queued results.
type scripted struct {
	mu      sync.Mutex
	results []scriptedResult
	calls   int
}

type scriptedResult struct {
	data string
	err  error
}

func (s *scripted) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results[s.calls]
	s.calls++
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(r.data), nil
}

func TestFallbackServesSnapshotOnBackendFailure(t *testing.T) {
	next := &scripted{results: []scriptedResult{
		{data: `{"name":"repo"}`},
		{err: &StatusError{Endpoint: EndpointRepo, StatusCode: 503}},
		{err: &StatusError{Endpoint: EndpointRepo, StatusCode: 404}},
	}}
	f := NewFallback(next, newMemoryStore(), nil)
	req := Post(EndpointRepo, map[string]string{"repo": "repo"})
	ctx := context.Background()

	if _, err := f.Do(ctx, req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	data, err := f.Do(ctx, req)
	if err != nil {
		t.Fatalf("503 should fall back: %v", err)
	}
	if string(data) != `{"name":"repo"}` {
		t.Errorf("snapshot = %s", data)
	}
	if _, err := f.Do(ctx, req); !errors.Is(err, ErrNoData) {
		t.Errorf("404 should not fall back, got %v", err)
	}
}

func TestFallbackNeverCoversItemTable(t *testing.T) {
	next := &scripted{results: []scriptedResult{
		{data: `[{"slug":"a"}]`},
		{err: &TransportError{Endpoint: EndpointLineItemTable, Err: errors.New("refused")}},
	}}
	f := NewFallback(next, newMemoryStore(), nil)
	req := Post(EndpointLineItemTable, map[string]any{"item_fields": []string{"slug"}})

	if _, err := f.Do(context.Background(), req); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := f.Do(context.Background(), req); !errors.Is(err, ErrNoData) {
		t.Errorf("item table fetch fell back to a snapshot")
	}
}

func TestDedupSharesInflightReads(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`{"name":"ws","len":0,"repos":null}`))
	}))
	defer server.Close()

	d := NewDedup(NewClient(server.URL))

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Do(context.Background(), Post(EndpointWorkspace, nil))
			errs <- err
		}()
	}

	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Do: %v", err)
		}
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("backend hits = %d, want 1", got)
	}
}

func TestDedupCallerCancelDoesNotFailOthers(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		w.Write([]byte(`{"name":"mnist","len":0,"lines":[]}`))
	}))
	defer server.Close()

	d := NewDedup(NewClient(server.URL))
	req := Post(EndpointRepo, map[string]string{"repo": "mnist"})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := d.Do(ctxA, req)
		errA <- err
	}()
	for hits.Load() == 0 {
		time.Sleep(5 * time.Millisecond)
	}

	type result struct {
		data json.RawMessage
		err  error
	}
	resB := make(chan result, 1)
	go func() {
		data, err := d.Do(context.Background(), req)
		resB <- result{data, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if err := <-errA; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller got %v, want context.Canceled", err)
	}

	close(release)
	got := <-resB
	if got.err != nil {
		t.Fatalf("live caller failed: %v", got.err)
	}
	if string(got.data) != `{"name":"mnist","len":0,"lines":[]}` {
		t.Errorf("payload = %s", got.data)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("backend hits = %d, want 1", n)
	}
}

// ctxStore fails reads on a finished context, like the sqlite store does.
type ctxStore struct {
	*memoryStore
}

func (s ctxStore) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, time.Time{}, false, err
	}
	return s.memoryStore.Get(ctx, key)
}

func TestFallbackReadsSnapshotAfterDeadline(t *testing.T) {
	next := &scripted{results: []scriptedResult{
		{data: `{"name":"repo"}`},
		{err: &TransportError{Endpoint: EndpointRepo, Err: context.DeadlineExceeded}},
	}}
	f := NewFallback(next, ctxStore{newMemoryStore()}, nil)
	req := Post(EndpointRepo, map[string]string{"repo": "repo"})

	if _, err := f.Do(context.Background(), req); err != nil {
		t.Fatalf("first call: %v", err)
	}

	expired, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	data, err := f.Do(expired, req)
	if err != nil {
		t.Fatalf("deadline failure should fall back: %v", err)
	}
	if string(data) != `{"name":"repo"}` {
		t.Errorf("snapshot = %s", data)
	}
}

func TestVersionCacheServesStaleOnError(t *testing.T) {
	cache := NewVersionCache(time.Nanosecond)
	calls := 0
	fetch := func(ctx context.Context) (*models.VersionInfo, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("down")
		}
		return &models.VersionInfo{CoreVersion: "0.14.0", UIVersion: "0.3.0"}, nil
	}

	first, err := cache.Get(context.Background(), fetch)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	time.Sleep(time.Millisecond)
	second, err := cache.Get(context.Background(), fetch)
	if err != nil {
		t.Fatalf("stale Get: %v", err)
	}
	if *first != *second || calls != 2 {
		t.Errorf("first=%v second=%v calls=%d", first, second, calls)
	}

	cache.Invalidate()
	if _, err := cache.Get(context.Background(), fetch); err == nil {
		t.Error("empty cache should surface the fetch error")
	}
}
