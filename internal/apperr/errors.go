// Package apperr 定义新闻翻译流水线共用的错误类型。
//
// 底层（HTTP 封装、Feed 解析、正文提取、翻译客户端）直接返回这些类型，
// 上层通过 errors.As 判断错误种类。
package apperr

import "fmt"

// RequestError 表示一次对外请求失败：网络错误或非 200 状态码都归为此类。
type RequestError struct {
	URL string
	// StatusCode 为服务端返回的状态码，网络层失败时为 0。
	StatusCode int
	// Err 为底层传输错误，状态码失败时为 nil。
	Err error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("请求 %s 失败: HTTP %d", e.URL, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("请求 %s 失败: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("请求 %s 失败", e.URL)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ParseError 表示解析器无法处理输入。
type ParseError struct {
	Parser string
	Detail string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("解析器 %s 报错: %s", e.Parser, e.Detail)
}

// DecodeError 表示远端返回的数据结构与预期不符。
type DecodeError struct {
	What   string
	Detail string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("解码 %s 失败: %s", e.What, e.Detail)
}

// ArgumentCountError 表示启动参数数量不正确。
type ArgumentCountError struct {
	Expected int
	Got      int
}

func (e *ArgumentCountError) Error() string {
	return fmt.Sprintf("期望 %d 个参数，实际得到 %d 个", e.Expected, e.Got)
}
