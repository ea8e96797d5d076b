package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

// recordedSleeps replaces the client's backoff sleep with a recorder.
func recordedSleeps(c *Client) *[]time.Duration {
	var sleeps []time.Duration
	c.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return &sleeps
}

func TestClientRetryThenSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]string{"value": "ok"}})
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, MaxRetries: 3, BackoffBase: time.Second}, noopLogger())
	sleeps := recordedSleeps(c)

	var out struct {
		Value string `json:"value"`
	}
	if err := c.Do(context.Background(), "query {}", nil, &out); err != nil {
		t.Fatalf("第三次尝试成功后不应报错: %v", err)
	}
	if out.Value != "ok" {
		t.Fatalf("期望 value=ok, 实际 %q", out.Value)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("期望 3 次请求, 实际 %d", calls)
	}
	if len(*sleeps) != 2 || (*sleeps)[0] != time.Second || (*sleeps)[1] != 2*time.Second {
		t.Fatalf("退避序列不正确: %v", *sleeps)
	}
}

func TestClientUpstreamErrorExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, MaxRetries: 3, BackoffBase: time.Millisecond}, noopLogger())
	recordedSleeps(c)

	err := c.Do(context.Background(), "query {}", nil, nil)
	if err == nil {
		t.Fatal("持续 500 应报错")
	}
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("期望 UpstreamError, 实际 %T", err)
	}
	if upstream.Status != http.StatusInternalServerError {
		t.Fatalf("状态码不正确: %d", upstream.Status)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("期望重试满 3 次, 实际 %d", calls)
	}
}

func TestClientDecodeErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, MaxRetries: 3, BackoffBase: time.Millisecond}, noopLogger())
	recordedSleeps(c)

	err := c.Do(context.Background(), "query {}", nil, nil)
	if err == nil {
		t.Fatal("非法响应体应报错")
	}
	var decode *DecodeError
	if !errors.As(err, &decode) {
		t.Fatalf("期望 DecodeError, 实际 %T", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("解码错误不应重试, 实际请求 %d 次", calls)
	}
}

func TestClientGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]string{{"message": "rate limited"}},
		})
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, MaxRetries: 1, BackoffBase: time.Millisecond}, noopLogger())

	err := c.Do(context.Background(), "query {}", nil, nil)
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("GraphQL errors 应映射为 UpstreamError, 实际 %v", err)
	}
	if len(upstream.Messages) != 1 || upstream.Messages[0] != "rate limited" {
		t.Fatalf("错误消息不正确: %v", upstream.Messages)
	}
}

func TestClientNullDataIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": null}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, MaxRetries: 1, BackoffBase: time.Millisecond}, noopLogger())

	var out struct{}
	if err := c.Do(context.Background(), "query {}", nil, &out); err != nil {
		t.Fatalf("空 data 应视为成功: %v", err)
	}
}

func TestClientRequestHeaders(t *testing.T) {
	var auth, ua string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		ua = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"data": {}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, AuthToken: "secret", UserAgent: "test-agent", MaxRetries: 1, BackoffBase: time.Millisecond}, noopLogger())

	if err := c.Do(context.Background(), "query {}", nil, nil); err != nil {
		t.Fatalf("请求不应失败: %v", err)
	}
	if auth != "Bearer secret" {
		t.Fatalf("Authorization 头不正确: %q", auth)
	}
	if ua != "test-agent" {
		t.Fatalf("User-Agent 头不正确: %q", ua)
	}
}
