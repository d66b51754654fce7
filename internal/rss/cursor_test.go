package rss

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/iabetor/newsreader/internal/apperr"
	"github.com/iabetor/newsreader/internal/httpclient"
)

// setupSite 启动一个假站点：/rss 返回 feed，其余路径按 pages 返回，
// 不在 pages 中的路径返回 500。
func setupSite(t *testing.T, feed func(base string) string, pages map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var mu sync.Mutex
	var requested []string

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requested = append(requested, r.URL.Path)
		mu.Unlock()

		if r.URL.Path == "/rss" {
			w.Header().Set("Content-Type", "application/xml")
			fmt.Fprint(w, feed(srv.URL))
			return
		}
		body, ok := pages[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &requested
}

func abcFeed(base string) string {
	return serializeFeed([]FeedItem{
		{"A", base + "/a"},
		{"B", base + "/b"},
		{"C", base + "/c"},
	})
}

func TestCursorEndToEnd(t *testing.T) {
	srv, _ := setupSite(t, func(base string) string {
		return serializeFeed([]FeedItem{{"A", base + "/a"}, {"B", base + "/b"}})
	}, map[string]string{
		"/a": "<html><body><p>parA</p></body></html>",
		"/b": "<html><body><p>parB1</p><div>x</div><p>parB2</p></body></html>",
	})

	ctx := context.Background()
	cur, err := Open(ctx, httpclient.New(httpclient.Options{}), srv.URL+"/")
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	if cur.Len() != 2 || cur.State() != StateActive {
		t.Fatalf("初始状态不匹配: len=%d state=%s", cur.Len(), cur.State())
	}

	page, ok, err := cur.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("第一次 Next 失败: ok=%v err=%v", ok, err)
	}
	if page != (NewsPage{Title: "A", HTMLContent: "<p>parA</p>"}) {
		t.Errorf("第一页不匹配: %+v", page)
	}

	page, ok, err = cur.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("第二次 Next 失败: ok=%v err=%v", ok, err)
	}
	if page != (NewsPage{Title: "B", HTMLContent: "<p>parB1</p>\n<p>parB2</p>"}) {
		t.Errorf("第二页不匹配: %+v", page)
	}

	for i := 0; i < 3; i++ {
		page, ok, err = cur.Next(ctx)
		if err != nil || ok {
			t.Fatalf("耗尽后应返回 ok=false err=nil，得到 ok=%v err=%v", ok, err)
		}
		if page != (NewsPage{}) {
			t.Errorf("耗尽后应返回零值: %+v", page)
		}
	}
	if cur.State() != StateExhausted || cur.Remaining() != 0 {
		t.Errorf("应为耗尽状态: state=%s remaining=%d", cur.State(), cur.Remaining())
	}
}

func TestCursorFailedFetchSkipsItem(t *testing.T) {
	srv, requested := setupSite(t, abcFeed, map[string]string{
		"/a": "<p>a</p>",
		"/c": "<p>c</p>",
	})

	ctx := context.Background()
	cur, err := Open(ctx, httpclient.New(httpclient.Options{}), srv.URL)
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}

	if _, _, err := cur.Next(ctx); err != nil {
		t.Fatalf("A 应成功: %v", err)
	}

	_, ok, err := cur.Next(ctx)
	var reqErr *apperr.RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("B 应返回 RequestError，得到 %v", err)
	}
	if !ok {
		t.Error("失败时条目也应被消费")
	}
	if reqErr.URL != srv.URL+"/b" {
		t.Errorf("RequestError.URL 不匹配: %s", reqErr.URL)
	}
	if cur.Remaining() != 1 {
		t.Errorf("失败后位置不应回退，剩余 %d", cur.Remaining())
	}

	page, ok, err := cur.Next(ctx)
	if err != nil || !ok {
		t.Fatalf("C 应成功: ok=%v err=%v", ok, err)
	}
	if page.Title != "C" {
		t.Errorf("应继续到 C 而不是重试 B: %+v", page)
	}

	// /b 只被请求一次
	count := 0
	for _, p := range *requested {
		if p == "/b" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("/b 应只请求一次，实际 %d 次", count)
	}
}

func TestCursorNItemsInOrder(t *testing.T) {
	const n = 7
	pages := make(map[string]string, n)
	for i := 0; i < n; i++ {
		pages[fmt.Sprintf("/%d", i)] = fmt.Sprintf("<p>body-%d</p>", i)
	}
	srv, _ := setupSite(t, func(base string) string {
		items := make([]FeedItem, n)
		for i := range items {
			items[i] = FeedItem{Title: fmt.Sprintf("item-%d", i), Link: fmt.Sprintf("%s/%d", base, i)}
		}
		return serializeFeed(items)
	}, pages)

	ctx := context.Background()
	cur, err := Open(ctx, httpclient.New(httpclient.Options{}), srv.URL)
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	for i := 0; i < n; i++ {
		page, ok, err := cur.Next(ctx)
		if err != nil || !ok {
			t.Fatalf("第 %d 次 Next 失败: ok=%v err=%v", i, ok, err)
		}
		if page.Title != fmt.Sprintf("item-%d", i) || page.HTMLContent != fmt.Sprintf("<p>body-%d</p>", i) {
			t.Errorf("第 %d 页不匹配: %+v", i, page)
		}
	}
	if _, ok, err := cur.Next(ctx); ok || err != nil {
		t.Fatalf("第 N+1 次应耗尽: ok=%v err=%v", ok, err)
	}
}

func TestOpenFeedErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rss" {
			fmt.Fprint(w, "<rss><channel><item>")
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	ctx := context.Background()
	client := httpclient.New(httpclient.Options{})

	_, err := Open(ctx, client, srv.URL)
	var parseErr *apperr.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("损坏的 feed 应返回 ParseError，得到 %v", err)
	}

	_, err = Open(ctx, client, srv.URL+"/missing")
	var reqErr *apperr.RequestError
	if !errors.As(err, &reqErr) {
		t.Errorf("feed 不存在应返回 RequestError，得到 %v", err)
	}
}

// stubFetcher 记录请求，不走网络。
type stubFetcher struct {
	mu    sync.Mutex
	calls []string
}

func (s *stubFetcher) Get(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.mu.Unlock()
	return []byte("<p>" + url + "</p>"), nil
}

func TestCursorConcurrentNextClaimsEachItemOnce(t *testing.T) {
	const n = 50
	items := make([]FeedItem, n)
	for i := range items {
		items[i] = FeedItem{Title: fmt.Sprint(i), Link: fmt.Sprintf("u%d", i)}
	}
	fetcher := &stubFetcher{}
	cur := NewCursor(items, fetcher)

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[string]int)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				page, ok, err := cur.Next(context.Background())
				if err != nil {
					t.Errorf("Next 失败: %v", err)
					return
				}
				if !ok {
					return
				}
				mu.Lock()
				seen[page.Title]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != n {
		t.Fatalf("期望 %d 个不同条目，得到 %d 个", n, len(seen))
	}
	for title, c := range seen {
		if c != 1 {
			t.Errorf("条目 %s 被消费 %d 次", title, c)
		}
	}
	if len(fetcher.calls) != n {
		t.Errorf("期望 %d 次抓取，实际 %d 次", n, len(fetcher.calls))
	}
}

func TestFeedURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"meduza.io", "https://meduza.io/rss"},
		{"meduza.io/", "https://meduza.io/rss"},
		{"http://example.com/", "http://example.com/rss"},
		{"https://example.com/news", "https://example.com/news/rss"},
		{"  example.com  ", "https://example.com/rss"},
	}
	for _, tc := range tests {
		if got := FeedURL(tc.in); got != tc.want {
			t.Errorf("FeedURL(%q) = %q, 期望 %q", tc.in, got, tc.want)
		}
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateActive, "Active"},
		{StateExhausted, "Exhausted"},
		{State(9), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, 期望 %q", tt.s, got, tt.want)
		}
	}
}

func TestEmptyCursorIsExhausted(t *testing.T) {
	cur := NewCursor(nil, &stubFetcher{})
	if cur.State() != StateExhausted {
		t.Fatalf("空游标应直接耗尽: %s", cur.State())
	}
	if _, ok, err := cur.Next(context.Background()); ok || err != nil {
		t.Fatalf("空游标 Next 应返回 ok=false err=nil: ok=%v err=%v", ok, err)
	}
}
