// Uses httptest.NewServer to stand in for the Metricool API.
package metricool

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

var testCreds = Credentials{Token: "tok-abc", UserID: "77"}

func TestClient_Get_Success_ReturnsBodyUnchanged(t *testing.T) {
	t.Parallel()

	const body = `{"posts":[{"id":1,"likes":3}],"total":1}`
	var gotHeader, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get(AuthHeader)
		gotMethod = r.Method
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(testCreds)
	got, err := c.Get(context.Background(), srv.URL+"/v2/analytics/posts/facebook?userId=77")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != body {
		t.Errorf("body = %s, want %s", got, body)
	}
	if gotHeader != "tok-abc" {
		t.Errorf("%s header = %q, want %q", AuthHeader, gotHeader, "tok-abc")
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method = %q, want GET", gotMethod)
	}
}

func TestClient_Get_ArrayBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"id":"b1"},{"id":"b2"}]`) //nolint:errcheck
	}))
	defer srv.Close()

	got, err := NewClient(testCreds).Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	var items []map[string]string
	if err := json.Unmarshal(got, &items); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items, got %d", len(items))
	}
}

func TestClient_Post_SendsJSONBody(t *testing.T) {
	t.Parallel()

	var gotBody map[string]any
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "want POST", http.StatusMethodNotAllowed)
			return
		}
		gotContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&gotBody) //nolint:errcheck
		io.WriteString(w, `{"ok":true}`)         //nolint:errcheck
	}))
	defer srv.Close()

	got, err := NewClient(testCreds).Post(context.Background(), srv.URL, map[string]any{"blogId": 5})
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if string(got) != `{"ok":true}` {
		t.Errorf("unexpected body %s", got)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if gotBody["blogId"] != float64(5) {
		t.Errorf("request body = %#v", gotBody)
	}
}

func TestClient_Post_UnencodableBody(t *testing.T) {
	t.Parallel()

	_, err := NewClient(testCreds).Post(context.Background(), "http://127.0.0.1:1", map[string]any{"ch": make(chan int)})
	if !errors.Is(err, ErrEncode) {
		t.Fatalf("expected ErrEncode, got %v", err)
	}
}

func TestClient_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantErr  error
		wantKind FailureKind
		status   int
	}{
		{
			name:     "unauthorized",
			handler:  func(w http.ResponseWriter, r *http.Request) { http.Error(w, `{"error":"bad token"}`, http.StatusUnauthorized) },
			wantErr:  ErrStatus,
			wantKind: FailureStatus,
			status:   http.StatusUnauthorized,
		},
		{
			name:     "server error",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			wantErr:  ErrStatus,
			wantKind: FailureStatus,
			status:   http.StatusBadGateway,
		},
		{
			name:     "html body",
			handler:  func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "<html>maintenance</html>") }, //nolint:errcheck
			wantErr:  ErrDecode,
			wantKind: FailureDecode,
			status:   http.StatusOK,
		},
		{
			name:     "empty body",
			handler:  func(w http.ResponseWriter, r *http.Request) {},
			wantErr:  ErrDecode,
			wantKind: FailureDecode,
			status:   http.StatusOK,
		},
		{
			name:     "null body",
			handler:  func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "null") }, //nolint:errcheck
			wantErr:  ErrDecode,
			wantKind: FailureDecode,
			status:   http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			got, err := NewClient(testCreds).Get(context.Background(), srv.URL)
			if got != nil {
				t.Errorf("expected nil body on failure, got %s", got)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			kind, ok := KindOf(err)
			if !ok || kind != tt.wantKind {
				t.Errorf("KindOf = %v/%v, want %v", kind, ok, tt.wantKind)
			}
			if StatusOf(err) != tt.status {
				t.Errorf("StatusOf = %d, want %d", StatusOf(err), tt.status)
			}
		})
	}
}

func TestClient_Get_Timeout_IsAbsentResult(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(testCreds, WithTimeout(50*time.Millisecond))
	got, err := c.Get(context.Background(), srv.URL)
	if got != nil {
		t.Errorf("expected nil body, got %s", got)
	}
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	kind, _ := KindOf(err)
	if !kind.Retryable() {
		t.Errorf("timeout should be reported as retryable")
	}
}

func TestClient_Get_ConnectionRefused(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(testCreds).Get(context.Background(), url)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
}

func TestClient_Get_CancelledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{}`) //nolint:errcheck
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewClient(testCreds).Get(ctx, srv.URL); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

type stubDoer struct {
	req *http.Request
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	s.req = req
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{"ok":1}`)),
		Header:     http.Header{},
	}, nil
}

func TestClient_WithHTTPClient_SetsHeaders(t *testing.T) {
	t.Parallel()

	doer := &stubDoer{}
	c := NewClient(testCreds, WithHTTPClient(doer))

	if _, err := c.Get(context.Background(), "https://app.metricool.com/api/admin/simpleProfiles?userId=77"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doer.req.Header.Get(AuthHeader) != testCreds.Token {
		t.Errorf("auth header missing")
	}
	if doer.req.Header.Get("Accept") != "application/json" {
		t.Errorf("accept header = %q", doer.req.Header.Get("Accept"))
	}
	if _, ok := doer.req.Context().Deadline(); !ok {
		t.Errorf("expected a deadline on the outbound request context")
	}
	if c.Credentials() != testCreds {
		t.Errorf("Credentials() = %+v", c.Credentials())
	}
}

func TestClient_WithRateLimit_OverrunIsTimeout(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{}`) //nolint:errcheck
	}))
	defer srv.Close()

	// One call per second, burst of one: the second call cannot fit in 100ms.
	c := NewClient(testCreds, WithRateLimit(60, 1), WithTimeout(100*time.Millisecond))

	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	_, err := c.Get(context.Background(), srv.URL)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("limited call reached the server: hits = %d", hits.Load())
	}
}

func TestClient_WithRateLimit_ZeroIsUnlimited(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[]`) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient(testCreds, WithRateLimit(0, 0), WithTimeout(time.Second))
	for i := 0; i < 5; i++ {
		if _, err := c.Get(context.Background(), srv.URL); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}
}

func TestFailureKind_String(t *testing.T) {
	t.Parallel()

	cases := map[FailureKind]string{
		FailureTransport: "transport",
		FailureTimeout:   "timeout",
		FailureStatus:    "status",
		FailureDecode:    "decode",
		FailureEncode:    "encode",
		FailureKind(99):  "unknown",
	}
	for kind, want := range cases {
		if kind.String() != want {
			t.Errorf("%d.String() = %q, want %q", kind, kind.String(), want)
		}
	}
	if FailureStatus.Retryable() {
		t.Errorf("status failures are not retryable")
	}
}
