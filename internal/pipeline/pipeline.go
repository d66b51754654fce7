// Package pipeline 把 RSS 游标和翻译客户端串成一次拉取一页的流水线：
//
//	Cursor.Next → 抓取文章 → 提取正文 → Translator.Translate → Page
//
// 所有操作都是同步的，每次 Next 只触发一次文章抓取和一次翻译请求。
package pipeline

import (
	"context"

	"github.com/iabetor/newsreader/internal/logger"
	"github.com/iabetor/newsreader/internal/rss"
)

// PageSource 逐页产出文章，*rss.Cursor 实现了该接口。
type PageSource interface {
	Next(ctx context.Context) (rss.NewsPage, bool, error)
}

// TextTranslator 翻译文本，*translate.Translator 实现了该接口。
type TextTranslator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Page 翻译后的文章页。
type Page struct {
	Title       string
	HTMLContent string
	Translated  string
}

// Pipeline 对外只暴露 Next：返回下一页，或 ok=false 表示没有更多页面。
type Pipeline struct {
	source     PageSource
	translator TextTranslator
}

// New 创建流水线。
func New(source PageSource, translator TextTranslator) *Pipeline {
	return &Pipeline{source: source, translator: translator}
}

// Next 拉取并翻译下一页。错误原样返回，不重试。
func (p *Pipeline) Next(ctx context.Context) (Page, bool, error) {
	np, ok, err := p.source.Next(ctx)
	if err != nil {
		return Page{}, ok, err
	}
	if !ok {
		logger.Debugf("[pipeline] 没有更多页面")
		return Page{}, false, nil
	}

	translated, err := p.translator.Translate(ctx, np.HTMLContent)
	if err != nil {
		logger.Warnf("[pipeline] 翻译 %q 失败: %v", np.Title, err)
		return Page{}, true, err
	}

	logger.Debugf("[pipeline] 已处理: %s", np.Title)
	return Page{
		Title:       np.Title,
		HTMLContent: np.HTMLContent,
		Translated:  translated,
	}, true, nil
}
