package fetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Kevin-Rudy/godash/pkg/core"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, baseURL string) *Fetcher {
	t.Helper()
	f, err := New(NewConfigWithOptions(WithBaseURL(baseURL), WithTimeout(5*time.Second)), log.New(io.Discard), nil)
	require.NoError(t, err)
	return f
}

func TestPlan_SingleCombinedRequest(t *testing.T) {
	f := newTestFetcher(t, "http://localhost")
	reqs := f.Plan([]string{"A", "B"}, core.TimeRange{From: -3600, To: 0}, time.Now())

	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"A", "B"}, reqs[0].Channels)
	assert.Equal(t, "/api/data/A,B?length=3600&to=0", reqs[0].Path())
}

func TestPlan_SplitPerChannel(t *testing.T) {
	f := newTestFetcher(t, "http://localhost")
	reqs := f.Plan([]string{"A", "B"}, core.TimeRange{From: -500000, To: 0}, time.Now())

	require.Len(t, reqs, 2)
	assert.Equal(t, []string{"A"}, reqs[0].Channels)
	assert.Equal(t, []string{"B"}, reqs[1].Channels)
	for _, req := range reqs {
		assert.Contains(t, req.Path(), "reducer=last")
	}
}

func TestPlan_SplitBoundary(t *testing.T) {
	f := newTestFetcher(t, "http://localhost")

	// 恰好等于阈值时拆分
	reqs := f.Plan([]string{"A", "B"}, core.TimeRange{From: -5 * 86500}, time.Now())
	assert.Len(t, reqs, 2)

	reqs = f.Plan([]string{"A", "B"}, core.TimeRange{From: -5*86500 + 1}, time.Now())
	assert.Len(t, reqs, 1)
}

func TestPlan_ResampleThreshold(t *testing.T) {
	f := newTestFetcher(t, "http://localhost")
	now := time.Now()

	reqs := f.Plan([]string{"A"}, core.TimeRange{From: -7200.1, To: 0}, now)
	require.Len(t, reqs, 1)
	assert.InDelta(t, 12.000166, reqs[0].Resample, 1e-5)
	assert.Equal(t, "last", reqs[0].Reducer)
	assert.True(t, strings.HasPrefix(reqs[0].Path(), "/api/data/A?length=7200.1&to=0&resample=12.000"), reqs[0].Path())
	assert.True(t, strings.HasSuffix(reqs[0].Path(), "&reducer=last"), reqs[0].Path())

	reqs = f.Plan([]string{"A"}, core.TimeRange{From: -7200, To: 0}, now)
	require.Len(t, reqs, 1)
	assert.Zero(t, reqs[0].Resample)
	assert.Equal(t, "/api/data/A?length=7200&to=0", reqs[0].Path())
}

func TestPlan_AbsoluteRange(t *testing.T) {
	f := newTestFetcher(t, "http://localhost")
	reqs := f.Plan([]string{"A"}, core.TimeRange{From: 1700000000, To: 1700003600}, time.Now())

	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/data/A?length=3600&to=1700003600", reqs[0].Path())
}

func TestPlan_RelativeTo(t *testing.T) {
	f := newTestFetcher(t, "http://localhost")
	now := time.Unix(1700010000, 0)
	reqs := f.Plan([]string{"A"}, core.TimeRange{From: 1700000000, To: -600}, now)

	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/data/A?length=9400&to=-600", reqs[0].Path())
}

func TestPlan_EscapesChannelNames(t *testing.T) {
	f := newTestFetcher(t, "http://localhost")
	reqs := f.Plan([]string{"a b", "c,d"}, core.TimeRange{From: -60}, time.Now())

	require.Len(t, reqs, 1)
	assert.Equal(t, "/api/data/a%20b,c%2Cd?length=60&to=0", reqs[0].Path())
}

func TestPlan_NoChannels(t *testing.T) {
	f := newTestFetcher(t, "http://localhost")
	assert.Empty(t, f.Plan(nil, core.TimeRange{From: -60}, time.Now()))
}

func TestFetch_MergesScenarioResponse(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.RequestURI())
		mu.Unlock()
		_, _ = io.WriteString(w, `{"T1":{"t":[0,60],"x":[1.0,2.0],"start":1700000000}}`)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	reqs := f.Plan([]string{"T1"}, core.TimeRange{From: -3600, To: 0}, time.Now())

	var batches []Batch
	status := f.Fetch(context.Background(), reqs, func(b Batch) {
		batches = append(batches, b)
	})

	assert.True(t, status.OK())
	mu.Lock()
	assert.Equal(t, []string{"/api/data/T1?length=3600&to=0"}, paths)
	mu.Unlock()
	require.Len(t, batches, 1)
	assert.True(t, batches[0].Last)

	series := batches[0].Data["T1"]
	require.NotNil(t, series)
	v, ok := series.Float(1)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestFetch_PartialFailureKeepsSuccessfulBatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/data/B") {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `{"A":{"x":1,"t":1700000000}}`)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	reqs := f.Plan([]string{"A", "B"}, core.TimeRange{From: -500000}, time.Now())
	require.Len(t, reqs, 2)

	var mu sync.Mutex
	var batches []Batch
	status := f.Fetch(context.Background(), reqs, func(b Batch) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, b)
	})

	assert.Equal(t, 500, status.Code)
	assert.Equal(t, "Internal Server Error", status.Text)
	require.Len(t, batches, 2)

	lastCount := 0
	var succeeded []string
	for _, b := range batches {
		if b.Last {
			lastCount++
		}
		for name := range b.Data {
			succeeded = append(succeeded, name)
		}
	}
	assert.Equal(t, 1, lastCount)
	assert.True(t, batches[1].Last, "last flag follows completion order")
	assert.Equal(t, []string{"A"}, succeeded)
}

func TestFetch_CompletionOrderDecidesLast(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/data/A") {
			// A 先发出但最后完成
			<-release
		}
		name := strings.TrimPrefix(r.URL.Path, "/api/data/")
		_ = json.NewEncoder(w).Encode(map[string]any{name: map[string]any{"x": 1, "t": 1}})
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	reqs := f.Plan([]string{"A", "B"}, core.TimeRange{From: -500000}, time.Now())

	var order []string
	done := make(chan core.Status)
	go func() {
		done <- f.Fetch(context.Background(), reqs, func(b Batch) {
			for name := range b.Data {
				order = append(order, name)
			}
			if !b.Last {
				close(release)
			}
		})
	}()

	select {
	case status := <-done:
		assert.True(t, status.OK())
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not complete")
	}
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestFetch_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	f := newTestFetcher(t, baseURL)
	var batches []Batch
	status := f.Fetch(context.Background(), f.Plan([]string{"A"}, core.TimeRange{From: -60}, time.Now()), func(b Batch) {
		batches = append(batches, b)
	})

	assert.Equal(t, core.CodeTransportFailure, status.Code)
	assert.NotEmpty(t, status.Text)
	require.Len(t, batches, 1)
	assert.Nil(t, batches[0].Data)
	assert.True(t, batches[0].Last)
}

func TestFetch_InvalidJSONIsTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"A": [`)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	status := f.Fetch(context.Background(), f.Plan([]string{"A"}, core.TimeRange{From: -60}, time.Now()), func(Batch) {})
	assert.Equal(t, core.CodeTransportFailure, status.Code)
}

func TestControl_PostsToTopicPath(t *testing.T) {
	var mu sync.Mutex
	received := map[string]map[string]any{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		received[r.URL.Path] = body
		mu.Unlock()
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	require.NoError(t, f.Control(context.Background(), "", map[string]any{"run": true}))
	require.NoError(t, f.Control(context.Background(), "currentdata", map[string]any{"V1": 3.0}))

	mu.Lock()
	defer mu.Unlock()
	paths := make([]string, 0, len(received))
	for p := range received {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	assert.Equal(t, []string{"/api/control", "/api/control/currentdata"}, paths)
	assert.Equal(t, 3.0, received["/api/control/currentdata"]["V1"])
}

func TestControl_ErrorReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"error","message":"interlock active"}`)
	}))
	defer server.Close()

	f := newTestFetcher(t, server.URL)
	err := f.Control(context.Background(), "control", map[string]any{"run": true})
	require.Error(t, err)
	assert.Equal(t, "interlock active", err.Error())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, NewConfigWithOptions(WithBaseURL("")).Validate())
	assert.Error(t, NewConfigWithOptions(WithBaseURL("ftp://host")).Validate())
	assert.Error(t, NewConfigWithOptions(WithMaxParallel(0)).Validate())
	assert.Error(t, NewConfigWithOptions(WithRetryMax(-1)).Validate())
}
