package linkcheck

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestCheckAll(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	checker := New(DefaultConfig())
	defer checker.Close()

	urls := []string{
		srv.URL + "/ok",
		srv.URL + "/gone",
		srv.URL + "/error",
		srv.URL + "/ok", // duplicate, checked once
	}

	results := checker.CheckAll(context.Background(), urls)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3: %v", len(results), results)
	}

	if r := results[srv.URL+"/ok"]; r.Broken() {
		t.Errorf("/ok flagged broken: %+v", r)
	}
	if r := results[srv.URL+"/gone"]; !r.Broken() || r.StatusCode != 404 {
		t.Errorf("/gone = %+v, want broken 404", r)
	}
	if r := results[srv.URL+"/error"]; !r.Broken() || r.StatusCode != 500 {
		t.Errorf("/error = %+v, want broken 500", r)
	}
}

func TestCheckAll_HeadFallsBackToGet(t *testing.T) {
	var gets atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		gets.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := New(DefaultConfig())
	defer checker.Close()

	results := checker.CheckAll(context.Background(), []string{srv.URL + "/page"})
	r := results[srv.URL+"/page"]
	if r.Broken() || r.StatusCode != 200 {
		t.Errorf("result = %+v, want 200 via GET fallback", r)
	}
	if gets.Load() != 1 {
		t.Errorf("GET called %d times, want 1", gets.Load())
	}
}

func TestCheckAll_UnreachableHost(t *testing.T) {
	config := DefaultConfig()
	config.Timeout = 2 * time.Second

	checker := New(config)
	defer checker.Close()

	// Reserved TEST-NET address, nothing listens there.
	results := checker.CheckAll(context.Background(), []string{"http://192.0.2.1:9/x"})
	r := results["http://192.0.2.1:9/x"]
	if !r.Broken() || r.Err == nil {
		t.Errorf("result = %+v, want connection error", r)
	}
}

func TestCheckAll_ConcurrencyBounded(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	config := DefaultConfig()
	config.Concurrency = 2

	checker := New(config)
	defer checker.Close()

	urls := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		urls = append(urls, srv.URL+"/p"+string(rune('a'+i)))
	}

	checker.CheckAll(context.Background(), urls)
	if peak.Load() > 2 {
		t.Errorf("peak in-flight requests = %d, want <= 2", peak.Load())
	}
}
