package rss

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iabetor/newsreader/internal/apperr"
	gorss "github.com/mmcdole/gofeed/rss"
	"golang.org/x/net/html/charset"
)

// parserName 出现在 ParseError 中。
const parserName = "feed"

// Parse 解析 RSS 文档，按文档顺序返回 channel/item 的标题和链接。
// 文档必须是格式良好的 XML，任一条目缺少 title 或 link 都视为解析错误。
func Parse(raw []byte) ([]FeedItem, error) {
	if err := checkWellFormed(raw); err != nil {
		return nil, &apperr.ParseError{Parser: parserName, Detail: err.Error()}
	}

	p := gorss.Parser{}
	feed, err := p.Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, &apperr.ParseError{Parser: parserName, Detail: err.Error()}
	}

	items := make([]FeedItem, 0, len(feed.Items))
	for i, it := range feed.Items {
		title := strings.TrimSpace(it.Title)
		link := strings.TrimSpace(it.Link)
		if title == "" {
			return nil, &apperr.ParseError{Parser: parserName, Detail: fmt.Sprintf("第 %d 个条目缺少 title", i+1)}
		}
		if link == "" {
			return nil, &apperr.ParseError{Parser: parserName, Detail: fmt.Sprintf("第 %d 个条目缺少 link", i+1)}
		}
		items = append(items, FeedItem{Title: title, Link: link})
	}
	return items, nil
}

// checkWellFormed 用严格模式的 encoding/xml 扫描整个文档。
// gofeed 的底层解析器会自动补全未闭合的标签、保留未定义的实体、忽略根元素之后的内容，
// 这些情况在这里先被拒绝。
func checkWellFormed(raw []byte) error {
	d := xml.NewDecoder(bytes.NewReader(raw))
	d.CharsetReader = charset.NewReaderLabel

	depth, roots := 0, 0
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			if roots == 0 {
				return errors.New("文档没有根元素")
			}
			return nil
		}
		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				roots++
				if roots > 1 {
					line, _ := d.InputPos()
					return fmt.Errorf("第 %d 行: 根元素之后出现 <%s>", line, t.Name.Local)
				}
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				line, _ := d.InputPos()
				return fmt.Errorf("第 %d 行: 根元素之外出现文本", line)
			}
		}
	}
}
