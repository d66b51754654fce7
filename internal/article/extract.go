// Package article 从文章页面中提取正文段落。
//
// 提取规则很朴素：页面中所有 <p> 按文档顺序保留，不区分图注、广告等非正文段落。
package article

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/iabetor/newsreader/internal/apperr"
	"golang.org/x/net/html"
)

// Extract 返回页面中所有 <p> 元素的 HTML，空白已规整，段落之间以 "\n" 分隔。
func Extract(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", &apperr.ParseError{Parser: "article", Detail: err.Error()}
	}

	var paragraphs []string
	var renderErr error
	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, n := range s.Nodes {
			normalize(n)
		}
		out, err := goquery.OuterHtml(s)
		if err != nil {
			renderErr = err
			return false
		}
		paragraphs = append(paragraphs, out)
		return true
	})
	if renderErr != nil {
		return "", &apperr.ParseError{Parser: "article", Detail: renderErr.Error()}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// normalize 合并段落内文本节点的连续空白，并去掉段落首尾空白。
func normalize(p *html.Node) {
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				c.Data = collapseSpace(c.Data)
				continue
			}
			walk(c)
		}
	}
	walk(p)

	if first := p.FirstChild; first != nil && first.Type == html.TextNode {
		first.Data = strings.TrimLeft(first.Data, " ")
	}
	if last := p.LastChild; last != nil && last.Type == html.TextNode {
		last.Data = strings.TrimRight(last.Data, " ")
	}
}

// collapseSpace 把连续空白压成一个空格，保留首尾是否有空白的信息，
// 避免 "a <b>b</b>" 变成 "a<b>b</b>"。
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s == "" {
			return ""
		}
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(s[0]) {
		out = " " + out
	}
	if isSpace(s[len(s)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

// Text 将 Extract 的结果转为纯文本，每个段落一行。
func Text(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	var lines []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			lines = append(lines, t)
		}
	})
	return strings.Join(lines, "\n")
}
