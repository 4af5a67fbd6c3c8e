package downloads

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func statsHandler(t *testing.T, pkg string, lastMonth int64, daily []int64) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/packages/" + pkg + "/recent":
			fmt.Fprintf(w, `{"data": {"last_day": 1, "last_week": 7, "last_month": %d}, "package": %q, "type": "recent_downloads"}`, lastMonth, pkg)
		case "/api/packages/" + pkg + "/overall":
			fmt.Fprint(w, `{"data": [`)
			for i, n := range daily {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprintf(w, `{"category": "without_mirrors", "date": "2024-01-%02d", "downloads": %d},`, i+1, n)
				fmt.Fprintf(w, `{"category": "with_mirrors", "date": "2024-01-%02d", "downloads": %d}`, i+1, n*2)
			}
			fmt.Fprintf(w, `], "package": %q, "type": "overall_downloads"}`, pkg)
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(statsHandler(t, "torch", 300, []int64{100, 200, 400}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithTimeout(5*time.Second))
	ctx := context.Background()

	stats, err := client.Fetch(ctx, "torch")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if stats.LastMonth != 300 {
		t.Errorf("LastMonth = %d, want 300", stats.LastMonth)
	}
	// Only without_mirrors rows count toward the total.
	if stats.Total != 700 {
		t.Errorf("Total = %d, want 700", stats.Total)
	}
}

func TestFetchPackageNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithBackoff(time.Millisecond))
	ctx := context.Background()

	_, err := client.Fetch(ctx, "no-such-package")
	if !errors.Is(err, ErrPackageNotFound) {
		t.Errorf("err = %v, want ErrPackageNotFound", err)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int64
	handler := statsHandler(t, "numpy", 50, []int64{50, 50})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		handler(w, r)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetries(3), WithBackoff(time.Millisecond))
	ctx := context.Background()

	stats, err := client.Fetch(ctx, "numpy")
	if err != nil {
		t.Fatalf("Fetch failed after retries: %v", err)
	}
	if stats.LastMonth != 50 {
		t.Errorf("LastMonth = %d, want 50", stats.LastMonth)
	}
}

func TestFetchRetriesExhausted(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetries(2), WithBackoff(time.Millisecond))
	ctx := context.Background()

	_, err := client.Fetch(ctx, "flaky")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	// Initial attempt plus two retries.
	if got := calls.Load(); got != 3 {
		t.Errorf("server saw %d calls, want 3", got)
	}
}

func TestFetchNotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetries(5), WithBackoff(time.Millisecond))
	ctx := context.Background()

	_, err := client.Fetch(ctx, "gone")
	if !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("err = %v, want ErrPackageNotFound", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server saw %d calls, want 1", got)
	}
}

func TestFetchContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, "torch")
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestFetchInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithRetries(0))
	ctx := context.Background()

	_, err := client.Fetch(ctx, "torch")
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestDefaultClient(t *testing.T) {
	client := NewClient()
	if client.baseURL != "https://pypistats.org" {
		t.Errorf("baseURL = %q, want pypistats URL", client.baseURL)
	}
	if client.retries != 3 {
		t.Errorf("retries = %d, want 3", client.retries)
	}
}
