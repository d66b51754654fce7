// Package translate 调用 Yandex Cloud Translate REST API 翻译文章正文。
//
// 使用分两步：先用 Authenticate 把 OAuth 令牌换成 IAM 令牌得到 Session，
// 再用 Session 创建 Translator。IAM 令牌不会自动刷新，过期后所有翻译请求都会失败。
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iabetor/newsreader/internal/apperr"
	"github.com/iabetor/newsreader/internal/logger"
)

const (
	// DefaultIAMEndpoint 令牌签发接口。
	DefaultIAMEndpoint = "https://iam.api.cloud.yandex.net/iam/v1/tokens"
	// DefaultTranslateEndpoint 翻译接口。
	DefaultTranslateEndpoint = "https://translate.api.cloud.yandex.net/translate/v2/translate"
	// DefaultTargetLanguage 默认译为俄语。
	DefaultTargetLanguage = "ru"
	// DefaultFormat 按 HTML 富文本翻译，保留标签。
	DefaultFormat = "HTML"
)

// Poster 发送 POST 请求，*httpclient.Client 实现了该接口。
type Poster interface {
	Post(ctx context.Context, url string, body string, headers map[string]string) ([]byte, error)
}

// Session 一次认证得到的凭据，创建后不再修改。
type Session struct {
	BearerToken string
	FolderID    string
}

type tokenRequest struct {
	YandexPassportOauthToken string `json:"yandexPassportOauthToken"`
}

type tokenResponse struct {
	IAMToken  string `json:"iamToken"`
	ExpiresAt string `json:"expiresAt"`
}

// Authenticate 用 OAuth 令牌换取 IAM 令牌。endpoint 为空时使用 DefaultIAMEndpoint。
func Authenticate(ctx context.Context, poster Poster, endpoint, oauthToken, folderID string) (Session, error) {
	if endpoint == "" {
		endpoint = DefaultIAMEndpoint
	}
	body, err := json.Marshal(tokenRequest{YandexPassportOauthToken: oauthToken})
	if err != nil {
		return Session{}, fmt.Errorf("[translate] 序列化认证请求失败: %w", err)
	}

	resp, err := poster.Post(ctx, endpoint, string(body), map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return Session{}, err
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp, &tr); err != nil {
		return Session{}, &apperr.DecodeError{What: "iam token response", Detail: err.Error()}
	}
	if tr.IAMToken == "" {
		return Session{}, &apperr.DecodeError{What: "iam token response", Detail: "缺少 iamToken 字段"}
	}

	logger.Infof("[translate] 已获取 IAM 令牌 (过期时间: %s)", tr.ExpiresAt)
	return Session{BearerToken: tr.IAMToken, FolderID: folderID}, nil
}

// Options 翻译选项，零值字段使用默认值。
type Options struct {
	Endpoint       string
	TargetLanguage string
	Format         string
}

// Translator 翻译客户端。
type Translator struct {
	session Session
	poster  Poster
	opts    Options
}

// New 基于已认证的 Session 创建翻译客户端。
func New(session Session, poster Poster, opts Options) *Translator {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultTranslateEndpoint
	}
	if opts.TargetLanguage == "" {
		opts.TargetLanguage = DefaultTargetLanguage
	}
	if opts.Format == "" {
		opts.Format = DefaultFormat
	}
	return &Translator{session: session, poster: poster, opts: opts}
}

type translateRequest struct {
	TargetLanguageCode string   `json:"targetLanguageCode"`
	Format             string   `json:"format"`
	Texts              []string `json:"texts"`
	FolderID           string   `json:"folderId"`
}

type translateResponse struct {
	Translations []struct {
		Text                 string `json:"text"`
		DetectedLanguageCode string `json:"detectedLanguageCode"`
	} `json:"translations"`
}

// Translate 翻译一段文本。文本中的双引号会被去掉，其余字符由 JSON 编码转义。
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	body, err := json.Marshal(translateRequest{
		TargetLanguageCode: t.opts.TargetLanguage,
		Format:             t.opts.Format,
		Texts:              []string{strings.ReplaceAll(text, `"`, "")},
		FolderID:           t.session.FolderID,
	})
	if err != nil {
		return "", fmt.Errorf("[translate] 序列化翻译请求失败: %w", err)
	}

	resp, err := t.poster.Post(ctx, t.opts.Endpoint, string(body), map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + t.session.BearerToken,
	})
	if err != nil {
		return "", err
	}

	var tr translateResponse
	if err := json.Unmarshal(resp, &tr); err != nil {
		return "", &apperr.DecodeError{What: "translation response", Detail: err.Error()}
	}
	if len(tr.Translations) == 0 {
		return "", &apperr.DecodeError{What: "translation response", Detail: "translations 为空"}
	}

	first := tr.Translations[0]
	logger.Debugf("[translate] 翻译完成: %s -> %s, %d 字符", first.DetectedLanguageCode, t.opts.TargetLanguage, len(first.Text))
	return first.Text, nil
}
