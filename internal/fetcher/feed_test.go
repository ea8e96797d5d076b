package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchFeedPageParsesEdges(t *testing.T) {
	var gotVars map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		gotVars = req.Variables

		_, _ = w.Write([]byte(`{"data": {"feedV3": {
			"edges": [
				{"cursor": "c1", "node": {"broadcast": {
					"id": "b1",
					"buyTokenId": "t1",
					"buyTokenAmount": "100",
					"buyTokenPrice": "0.5",
					"buyTokenMCap": "1000000",
					"createdAt": "2026-01-02T03:04:05Z",
					"profile": {"id": "p1", "username": "alice"}
				}}},
				{"cursor": "c2", "node": {"broadcast": null}}
			],
			"pageInfo": {"endCursor": "c2", "hasNextPage": true}
		}}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, MaxRetries: 1, BackoffBase: time.Millisecond}, noopLogger())

	page, err := c.FetchFeedPage(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("FetchFeedPage 不应失败: %v", err)
	}

	if len(page.Broadcasts) != 1 {
		t.Fatalf("空 broadcast 边应被跳过, 实际 %d 条", len(page.Broadcasts))
	}
	bcast := page.Broadcasts[0]
	if bcast.ID != "b1" || bcast.BuyTokenID != "t1" || bcast.Profile.Username != "alice" {
		t.Fatalf("broadcast 字段解析错误: %+v", bcast)
	}
	if bcast.CreatedAt.IsZero() {
		t.Fatal("createdAt 应被解析")
	}
	if page.EndCursor != "c2" || !page.HasNextPage {
		t.Fatalf("pageInfo 解析错误: %+v", page)
	}

	filters, ok := gotVars["filters"].(map[string]any)
	if !ok || filters["direction"] != "Buy" {
		t.Fatalf("请求应过滤 Buy 方向: %v", gotVars)
	}
	if gotVars["first"] != float64(10) {
		t.Fatalf("first 缺省应为 10: %v", gotVars["first"])
	}
}

func TestFetchTokenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": {"token": null}}`))
	}))
	defer srv.Close()

	c := NewClient(Options{Endpoint: srv.URL, MaxRetries: 1, BackoffBase: time.Millisecond}, noopLogger())

	token, err := c.FetchToken(context.Background(), "missing")
	if err != nil {
		t.Fatalf("不存在的 token 不应报错: %v", err)
	}
	if token != nil {
		t.Fatalf("期望 nil token, 实际 %+v", token)
	}
}

func TestFetchTokenEmptyID(t *testing.T) {
	c := NewClient(Options{Endpoint: "http://invalid", MaxRetries: 1, BackoffBase: time.Millisecond}, noopLogger())

	token, err := c.FetchToken(context.Background(), "")
	if err != nil || token != nil {
		t.Fatalf("空 id 应直接返回 nil,nil: %v %v", token, err)
	}
}
