package pbx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mwhitford/ringlead/internal/auth"
	"github.com/mwhitford/ringlead/internal/retry"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func tokenHandler(t *testing.T, w http.ResponseWriter, r *http.Request) {
	t.Helper()
	if r.Method != http.MethodPost {
		t.Errorf("token method = %s, want POST", r.Method)
	}
	if err := r.ParseForm(); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	if g := r.PostForm.Get("grant_type"); g != "urn:ietf:params:oauth:grant-type:jwt-bearer" {
		t.Errorf("grant_type = %q", g)
	}
	if r.Header.Get("Authorization") == "" {
		t.Error("missing basic auth header")
	}
	json.NewEncoder(w).Encode(tokenResponse{AccessToken: "test-token", ExpiresIn: 3600})
}

func callPage(records []CallRecord, page, totalPages int) callLogPage {
	p := callLogPage{Records: records}
	p.Paging.Page = page
	p.Paging.TotalPages = totalPages
	return p
}

func newTestClient(serverURL string) *Client {
	c := New(Config{
		BaseURL:      serverURL,
		MediaBaseURL: serverURL,
		ClientID:     "cid",
		ClientSecret: "secret",
		JWT:          "jwt",
		AccountID:    "~",
	}, testLogger())
	c.pageRetry.BaseDelay = time.Millisecond
	c.mediaRetry.BaseDelay = time.Millisecond
	return c
}

func TestFetchCallsPagination(t *testing.T) {
	pagesServed := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/restapi/oauth/token" {
			tokenHandler(t, w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("authorization = %q", got)
		}
		q := r.URL.Query()
		if q.Get("direction") != "Inbound" || q.Get("view") != "Detailed" {
			t.Errorf("unexpected query: %v", q)
		}

		pagesServed++
		switch q.Get("page") {
		case "1":
			json.NewEncoder(w).Encode(callPage([]CallRecord{{ID: "c1"}, {ID: "c2"}}, 1, 2))
		case "2":
			json.NewEncoder(w).Encode(callPage([]CallRecord{{ID: "c3"}}, 2, 2))
		default:
			t.Errorf("unexpected page request: %s", q.Get("page"))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	calls, err := client.FetchCalls(context.Background(), "101", time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("FetchCalls() error = %v", err)
	}
	if len(calls) != 3 {
		t.Errorf("got %d calls, want 3", len(calls))
	}
	if pagesServed != 2 {
		t.Errorf("pages served = %d, want 2", pagesServed)
	}
}

func TestFetchCallsStopsOnEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/restapi/oauth/token" {
			tokenHandler(t, w, r)
			return
		}
		json.NewEncoder(w).Encode(callPage(nil, 1, 0))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	calls, err := client.FetchCalls(context.Background(), "101", time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("FetchCalls() error = %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("got %d calls, want 0", len(calls))
	}
}

func TestFetchCallsRefreshesTokenOn401(t *testing.T) {
	tokenCalls := 0
	pageCalls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/restapi/oauth/token" {
			tokenCalls++
			json.NewEncoder(w).Encode(tokenResponse{
				AccessToken: fmt.Sprintf("tok-%d", tokenCalls),
				ExpiresIn:   3600,
			})
			return
		}
		pageCalls++
		if pageCalls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-2" {
			t.Errorf("authorization after refresh = %q, want Bearer tok-2", got)
		}
		json.NewEncoder(w).Encode(callPage([]CallRecord{{ID: "c1"}}, 1, 1))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	calls, err := client.FetchCalls(context.Background(), "101", time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		t.Fatalf("FetchCalls() error = %v", err)
	}
	if len(calls) != 1 {
		t.Errorf("got %d calls, want 1", len(calls))
	}
	if tokenCalls != 2 {
		t.Errorf("token exchanges = %d, want 2 (initial + forced refresh)", tokenCalls)
	}
	if pageCalls != 2 {
		t.Errorf("page requests = %d, want 2 (401 retry is same-page)", pageCalls)
	}
}

func TestFetchCallsKeepsPartialProgress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/restapi/oauth/token" {
			tokenHandler(t, w, r)
			return
		}
		switch r.URL.Query().Get("page") {
		case "1":
			json.NewEncoder(w).Encode(callPage([]CallRecord{{ID: "c1"}, {ID: "c2"}}, 1, 3))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, "backend down")
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	calls, err := client.FetchCalls(context.Background(), "101", time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("expected error from failing page")
	}
	if len(calls) != 2 {
		t.Errorf("got %d calls, want the 2 from page 1", len(calls))
	}
	var ex *retry.Exhausted
	if !errors.As(err, &ex) {
		t.Errorf("error = %v, want *retry.Exhausted", err)
	}
}

func TestFetchCalls429CarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/restapi/oauth/token" {
			tokenHandler(t, w, r)
			return
		}
		w.Header().Set("Retry-After", "42")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	client.pageRetry = retry.Config{Attempts: 1, BaseDelay: time.Millisecond, Multiplier: 2}

	_, err := client.FetchCalls(context.Background(), "101", time.Now().Add(-time.Hour), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	var herr *retry.HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("error = %v, want *retry.HTTPError", err)
	}
	if herr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", herr.Status)
	}
	if herr.RetryAfter != 42*time.Second {
		t.Errorf("retry-after = %v, want 42s", herr.RetryAfter)
	}
}

func TestGetRecording(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/restapi/oauth/token" {
				tokenHandler(t, w, r)
				return
			}
			if r.URL.Path != "/restapi/v1.0/account/~/recording/rec-9/content" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "audio/mpeg")
			w.Write([]byte("audio-bytes"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		content, contentType, err := client.GetRecording(context.Background(), "rec-9")
		if err != nil {
			t.Fatalf("GetRecording() error = %v", err)
		}
		if string(content) != "audio-bytes" {
			t.Errorf("content = %q", content)
		}
		if contentType != "audio/mpeg" {
			t.Errorf("content type = %q, want audio/mpeg", contentType)
		}
	})

	t.Run("retries through 429", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/restapi/oauth/token" {
				tokenHandler(t, w, r)
				return
			}
			requests++
			if requests < 3 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set("Content-Type", "audio/wav")
			w.Write([]byte("wav"))
		}))
		defer server.Close()

		client := newTestClient(server.URL)
		content, contentType, err := client.GetRecording(context.Background(), "rec-1")
		if err != nil {
			t.Fatalf("GetRecording() error = %v", err)
		}
		if string(content) != "wav" || contentType != "audio/wav" {
			t.Errorf("got (%q, %q)", content, contentType)
		}
		if requests != 3 {
			t.Errorf("media requests = %d, want 3", requests)
		}
	})
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"exhausted token refresh", &auth.Error{Provider: "pbx", Err: errors.New("status 400")}, false},
		{"cancellation", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"server error", &retry.HTTPError{Status: 503}, true},
		{"rate limited", &retry.HTTPError{Status: 429}, true},
		{"client error", &retry.HTTPError{Status: 404}, false},
		{"connection error", errors.New("connection reset"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
