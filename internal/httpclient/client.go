// Package httpclient 是流水线唯一的出网入口：注入请求头并校验状态码。
package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/iabetor/newsreader/internal/apperr"
	"github.com/iabetor/newsreader/internal/logger"
)

// DefaultUserAgent 伪装成浏览器，部分站点会拒绝默认的 Go UA。
const DefaultUserAgent = "Chrome/50.0.2661.102"

// Options 客户端选项。
type Options struct {
	UserAgent string
	// Timeout 为 0 时不设超时，由 ctx 控制。
	Timeout time.Duration
}

// Client 封装 GET/POST，所有失败统一返回 *apperr.RequestError。
type Client struct {
	userAgent string
	client    *http.Client
}

// New 创建 HTTP 客户端。
func New(opts Options) *Client {
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{
		userAgent: ua,
		client:    &http.Client{Timeout: opts.Timeout},
	}
}

// Get 发送带伪装 User-Agent 的 GET 请求，返回响应体。
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &apperr.RequestError{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	return c.do(req)
}

// Post 以 UTF-8 字节发送 body，headers 原样写入请求头。
func (c *Client) Post(ctx context.Context, url string, body string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, &apperr.RequestError{URL: url, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	url := req.URL.String()

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debugf("[http] %s %s 失败: %v", req.Method, url, err)
		return nil, &apperr.RequestError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// 读掉响应体以便连接复用
		_, _ = io.Copy(io.Discard, resp.Body)
		logger.Debugf("[http] %s %s 返回状态码 %d", req.Method, url, resp.StatusCode)
		return nil, &apperr.RequestError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &apperr.RequestError{URL: url, Err: err}
	}
	logger.Debugf("[http] %s %s 成功 (%d 字节)", req.Method, url, len(body))
	return body, nil
}
