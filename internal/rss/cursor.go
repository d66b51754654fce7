package rss

import (
	"context"
	"strings"
	"sync"

	"github.com/iabetor/newsreader/internal/article"
	"github.com/iabetor/newsreader/internal/logger"
)

// Fetcher 按 URL 获取原始字节，*httpclient.Client 实现了该接口。
type Fetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// State 表示游标状态。
type State int

const (
	// StateActive 仍有未消费的条目。
	StateActive State = iota
	// StateExhausted 所有条目已消费，终态。
	StateExhausted
)

var stateNames = [...]string{
	"Active",
	"Exhausted",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// Cursor 对固定的条目序列做单次遍历，每次 Next 抓取并提取一篇文章。
// 不可回退，不预取，不缓存。
type Cursor struct {
	items   []FeedItem
	fetcher Fetcher

	mu  sync.Mutex
	pos int // 0 <= pos <= len(items)
}

// NewCursor 基于已解析的条目创建游标，位置从 0 开始。
func NewCursor(items []FeedItem, fetcher Fetcher) *Cursor {
	return &Cursor{items: items, fetcher: fetcher}
}

// Open 抓取站点的 {url}/rss 并创建游标。
// url 末尾的 "/" 会被去掉，不以 http 开头时补上 https://。
func Open(ctx context.Context, fetcher Fetcher, siteURL string) (*Cursor, error) {
	feedURL := FeedURL(siteURL)
	raw, err := fetcher.Get(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	items, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	logger.Infof("[rss] %s 共 %d 个条目", feedURL, len(items))
	return NewCursor(items, fetcher), nil
}

// FeedURL 返回站点 RSS 地址。
func FeedURL(siteURL string) string {
	u := strings.TrimSpace(siteURL)
	u = strings.TrimSuffix(u, "/")
	if !strings.HasPrefix(u, "http") {
		u = "https://" + u
	}
	return u + "/rss"
}

// Next 返回下一篇文章。条目耗尽时返回 ok=false 且 err=nil，之后始终如此。
//
// 条目在抓取之前就被消费：抓取或提取失败时错误原样返回，
// 此时 ok 仍为 true，下一次调用从后一个条目继续，不会重试失败的条目。
func (c *Cursor) Next(ctx context.Context) (page NewsPage, ok bool, err error) {
	item, ok := c.claim()
	if !ok {
		return NewsPage{}, false, nil
	}

	body, err := c.fetcher.Get(ctx, item.Link)
	if err != nil {
		logger.Warnf("[rss] 抓取 %q 失败: %v", item.Title, err)
		return NewsPage{}, true, err
	}
	content, err := article.Extract(body)
	if err != nil {
		return NewsPage{}, true, err
	}
	return NewsPage{Title: item.Title, HTMLContent: content}, true, nil
}

// claim 取出当前位置的条目并前移位置。
func (c *Cursor) claim() (FeedItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pos >= len(c.items) {
		return FeedItem{}, false
	}
	item := c.items[c.pos]
	c.pos++
	return item, true
}

// State 返回当前状态。
func (c *Cursor) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pos >= len(c.items) {
		return StateExhausted
	}
	return StateActive
}

// Remaining 返回尚未消费的条目数。
func (c *Cursor) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) - c.pos
}

// Len 返回条目总数。
func (c *Cursor) Len() int { return len(c.items) }
