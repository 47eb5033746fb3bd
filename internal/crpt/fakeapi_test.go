package crpt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"crptapi/internal/models"
	"crptapi/internal/ratelimit"
	"crptapi/internal/signer"
	"crptapi/internal/tokencache"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

// fakeAPI imitates the three endpoints the client talks to. Each issued
// token is unique ("tok-1", "tok-2", ...).
type fakeAPI struct {
	server *httptest.Server

	challenge    AuthChallenge
	keyDelay     time.Duration
	keyHandler   http.HandlerFunc
	createStatus func(attempt int32) (int, string)
	// rejectToken is answered with 401 whenever it is presented.
	rejectToken string

	keyCalls    atomic.Int32
	tokenCalls  atomic.Int32
	createCalls atomic.Int32

	mu        sync.Mutex
	exchanges []AuthChallenge
	auths     []string
	documents []models.CreateDocumentRequest
	headers   []http.Header
}

func newFakeAPI(t *testing.T, configure func(*fakeAPI)) *fakeAPI {
	t.Helper()

	f := &fakeAPI{challenge: AuthChallenge{UUID: "u1", Data: "d1"}}
	if configure != nil {
		configure(f)
	}

	r := mux.NewRouter()
	r.HandleFunc(PathAuthKey, f.handleKey).Methods(http.MethodGet)
	r.HandleFunc(PathAuthToken, f.handleToken).Methods(http.MethodPost)
	r.HandleFunc(PathCreateDocument, f.handleCreate).Methods(http.MethodPost)

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) handleKey(w http.ResponseWriter, r *http.Request) {
	f.keyCalls.Add(1)
	if f.keyDelay > 0 {
		time.Sleep(f.keyDelay)
	}
	if f.keyHandler != nil {
		f.keyHandler(w, r)
		return
	}
	writeJSON(w, http.StatusOK, f.challenge)
}

func (f *fakeAPI) handleToken(w http.ResponseWriter, r *http.Request) {
	n := f.tokenCalls.Add(1)

	var body AuthChallenge
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	f.exchanges = append(f.exchanges, body)
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, AuthToken{Token: fmt.Sprintf("tok-%d", n)})
}

func (f *fakeAPI) handleCreate(w http.ResponseWriter, r *http.Request) {
	attempt := f.createCalls.Add(1)

	var body models.CreateDocumentRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.auths = append(f.auths, r.Header.Get("Authorization"))
	f.documents = append(f.documents, body)
	f.headers = append(f.headers, r.Header.Clone())
	f.mu.Unlock()

	status, payload := http.StatusOK, `{"value":"doc-1"}`
	switch {
	case f.rejectToken != "" && r.Header.Get("Authorization") == "Bearer "+f.rejectToken:
		status, payload = http.StatusUnauthorized, `{"error":"token revoked"}`
	case f.createStatus != nil:
		status, payload = f.createStatus(attempt)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, payload)
}

func (f *fakeAPI) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auths...)
}

func (f *fakeAPI) exchangeBodies() []AuthChallenge {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AuthChallenge(nil), f.exchanges...)
}

func (f *fakeAPI) lastRequest() (models.CreateDocumentRequest, http.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.documents)
	return f.documents[n-1], f.headers[n-1]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// countingSigner prefixes data with "signed:".
type countingSigner struct {
	calls atomic.Int32
}

func (s *countingSigner) Sign(_ context.Context, data string) (string, error) {
	s.calls.Add(1)
	return "signed:" + data, nil
}

// recordingSink counts metric events per method.
type recordingSink struct {
	mu        sync.Mutex
	success   map[string]int
	failure   map[string]int
	durations map[string][]time.Duration
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		success:   make(map[string]int),
		failure:   make(map[string]int),
		durations: make(map[string][]time.Duration),
	}
}

func (s *recordingSink) IncSuccess(_ context.Context, method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.success[method]++
}

func (s *recordingSink) IncFailure(_ context.Context, method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure[method]++
}

func (s *recordingSink) ObserveDuration(_ context.Context, method string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations[method] = append(s.durations[method], d)
}

func (s *recordingSink) counts(method string) (success, failure, durations int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.success[method], s.failure[method], len(s.durations[method])
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testClient struct {
	*Client
	cache   *tokencache.Memory
	metrics *recordingSink
}

func newTestClient(t *testing.T, api *fakeAPI, s signer.Signer, limiter ratelimit.Limiter) *testClient {
	t.Helper()

	if s == nil {
		s = &countingSigner{}
	}
	if limiter == nil {
		limiter = ratelimit.NewTokenBucket(100, 100, time.Second)
	}
	cache := tokencache.NewMemory(time.Hour, 10)
	sink := newRecordingSink()

	client := NewClient(models.APIConfig{BaseURL: api.server.URL}, limiter, cache, s,
		WithMetrics(sink),
		WithLogger(discardLogger()),
		WithUserAgent("crptapi/test"),
	)
	return &testClient{Client: client, cache: cache, metrics: sink}
}

// assertNoCachedToken fails if the cache holds a token.
func assertNoCachedToken(t *testing.T, cache tokencache.Cache) {
	t.Helper()
	errMiss := errors.New("miss")
	_, err := cache.Get(context.Background(), TokenKey, func(context.Context) (string, error) {
		return "", errMiss
	})
	assert.ErrorIs(t, err, errMiss, "no token should be cached")
}

func testDocument() models.Document {
	return models.Document{
		Format:          models.FormatCSV,
		ProductGroup:    models.ProductGroupClothes,
		ProductDocument: `{"test":"data"}`,
	}
}
