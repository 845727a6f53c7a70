package watsonx_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/watsonx/pkg/auth"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
)

// fakeAPI is an httptest server standing in for watsonx.ai. Handlers are
// keyed by path.
type fakeAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []recordedRequest
}

type recordedRequest struct {
	Path          string
	Version       string
	Authorization string
	Body          map[string]any
}

func newFakeAPI() *fakeAPI {
	f := &fakeAPI{handlers: map[string]http.HandlerFunc{}}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()

		rec := recordedRequest{
			Path:          r.URL.Path,
			Version:       r.URL.Query().Get("version"),
			Authorization: r.Header.Get("Authorization"),
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&rec.Body)
		}

		f.mu.Lock()
		f.requests = append(f.requests, rec)
		h, ok := f.handlers[r.URL.Path]
		f.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	return f
}

func (f *fakeAPI) handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

func (f *fakeAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeAPI) close() {
	f.server.Close()
}

// client returns a connected client pointed at the fake.
func (f *fakeAPI) client(opts ...watsonx.Option) *watsonx.Client {
	cfg := watsonx.NewConfig("api-key", "project-1")
	cfg.APIURL = f.server.URL

	opts = append([]watsonx.Option{
		watsonx.WithHTTPClient(f.server.Client()),
		watsonx.WithTokenSource(auth.Static("test-token")),
	}, opts...)

	c, err := watsonx.New(cfg, opts...)
	Expect(err).NotTo(HaveOccurred())
	return c
}

// sseHandler writes each chunk and flushes it, pausing between chunks.
func sseHandler(pause time.Duration, chunks ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		flusher := w.(http.Flusher)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, c := range chunks {
			fmt.Fprint(w, c)
			flusher.Flush()
			if pause > 0 {
				time.Sleep(pause)
			}
		}
	}
}

func generationLine(text string, tokens int) string {
	b, _ := json.Marshal(map[string]any{
		"results": []map[string]any{{
			"generated_text":        text,
			"generated_token_count": tokens,
		}},
	})
	return "data: " + string(b) + "\n\n"
}

// recordingObserver captures observer calls.
type recordingObserver struct {
	mu          sync.Mutex
	requests    map[string][]error
	parseErrors map[string]int
	batchItems  []error
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{
		requests:    map[string][]error{},
		parseErrors: map[string]int{},
	}
}

func (o *recordingObserver) ObserveRequest(op string, err error, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.requests[op] = append(o.requests[op], err)
}

func (o *recordingObserver) ObserveParseError(op string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.parseErrors[op]++
}

func (o *recordingObserver) ObserveBatchItem(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batchItems = append(o.batchItems, err)
}

// connected returns a client that already holds a token.
func (f *fakeAPI) connected(opts ...watsonx.Option) *watsonx.Client {
	c := f.client(opts...)
	c.SetToken("test-token")
	return c
}
