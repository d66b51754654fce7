// Package rss 解析站点 RSS 订阅源，并逐条抓取文章正文。
package rss

import "time"

// FeedItem 订阅源中的一条文章引用，按文档顺序产生，创建后不再修改。
type FeedItem struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

// NewsPage 一次游标前进得到的文章页。
// HTMLContent 是正文段落按文档顺序以换行拼接的结果。
type NewsPage struct {
	Title       string `json:"title"`
	HTMLContent string `json:"html_content"`
}

// Site 已配置的新闻站点。
type Site struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	URL     string    `json:"url"`
	AddedAt time.Time `json:"added_at"`
}
