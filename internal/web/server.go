// Package web 提供浏览器前端：选择站点、逐篇阅读原文和译文。
//
// 每个访客通过 cookie 持有自己的流水线，状态全部挂在 Server 上。
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/iabetor/newsreader/internal/apperr"
	"github.com/iabetor/newsreader/internal/article"
	"github.com/iabetor/newsreader/internal/logger"
	"github.com/iabetor/newsreader/internal/pipeline"
	"github.com/iabetor/newsreader/internal/rss"
	"go.uber.org/zap"
)

// SessionCookie 保存会话 ID 的 cookie 名。
const SessionCookie = "newsreader_session"

// DefaultSessionIdle 会话空闲多久后被回收。
const DefaultSessionIdle = 30 * time.Minute

//go:embed templates/*.html
var templateFS embed.FS

// SiteLister 列出可选站点，*rss.SiteStore 实现了该接口。
type SiteLister interface {
	List() ([]rss.Site, error)
}

// session 一个访客的阅读进度。mu 保证同一会话同时只有一个 Next。
type session struct {
	mu       sync.Mutex
	cursor   *rss.Cursor
	pipeline *pipeline.Pipeline

	lastUsed time.Time // 受 Server.mu 保护
}

// Server 网页前端。
type Server struct {
	sites      SiteLister
	fetcher    rss.Fetcher
	translator pipeline.TextTranslator
	tmpl       *template.Template
	log        *zap.SugaredLogger

	idle time.Duration
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewServer 创建前端，translator 在所有会话间共享。
func NewServer(sites SiteLister, fetcher rss.Fetcher, translator pipeline.TextTranslator) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		sites:      sites,
		fetcher:    fetcher,
		translator: translator,
		tmpl:       tmpl,
		log:        logger.Named("web"),
		idle:       DefaultSessionIdle,
		now:        time.Now,
		sessions:   make(map[string]*session),
	}, nil
}

// SetSessionIdle 设置会话空闲超时，0 表示永不回收。
func (s *Server) SetSessionIdle(d time.Duration) {
	s.mu.Lock()
	s.idle = d
	s.mu.Unlock()
}

// Handler 返回路由。
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/init", s.handleInit).Methods(http.MethodPost)
	r.HandleFunc("/init", http.NotFound).Methods(http.MethodGet)
	r.HandleFunc("/news", s.handleNews).Methods(http.MethodGet)
	return r
}

// ListenAndServe 监听 addr，ctx 结束时优雅关闭。
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("监听 http://%s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sites, err := s.sites.List()
	if err != nil {
		s.log.Errorf("读取站点列表失败: %v", err)
		s.renderError(w, http.StatusInternalServerError, "无法读取站点列表")
		return
	}
	s.render(w, http.StatusOK, "index.html", map[string]any{"Sites": sites})
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	siteURL := r.FormValue("url")
	if siteURL == "" {
		s.renderError(w, http.StatusBadRequest, "缺少 url 参数")
		return
	}

	cur, err := rss.Open(r.Context(), s.fetcher, siteURL)
	if err != nil {
		s.log.Warnf("打开站点 %s 失败: %v", siteURL, err)
		s.renderError(w, statusFor(err), err.Error())
		return
	}

	// 同一访客重新选择站点时沿用原会话 ID，旧游标随之丢弃
	s.mu.Lock()
	s.sweepLocked()
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		if _, ok := s.sessions[c.Value]; ok {
			id = c.Value
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	s.sessions[id] = &session{
		cursor:   cur,
		pipeline: pipeline.New(cur, s.translator),
		lastUsed: s.now(),
	}
	s.mu.Unlock()
	s.log.Infof("会话 %s 开始阅读 %s (%d 篇)", id, siteURL, cur.Len())

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/news", http.StatusSeeOther)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	id, sess := s.lookup(r)
	if sess == nil {
		http.NotFound(w, r)
		return
	}

	sess.mu.Lock()
	page, ok, err := sess.pipeline.Next(r.Context())
	remaining := sess.cursor.Remaining()
	last := sess.cursor.State() == rss.StateExhausted
	sess.mu.Unlock()

	if err != nil {
		s.log.Warnf("会话 %s 获取下一篇失败: %v", id, err)
		s.renderError(w, statusFor(err), err.Error())
		return
	}
	if !ok {
		s.drop(id)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.render(w, http.StatusOK, "news.html", map[string]any{
		"Title":      page.Title,
		"Preview":    preview(page.HTMLContent),
		"Original":   template.HTML(page.HTMLContent),
		"Translated": template.HTML(page.Translated),
		"Remaining":  remaining,
		"Last":       last,
	})
}

// previewRunes 摘要的最大字符数。
const previewRunes = 200

// preview 取正文纯文本的开头作为摘要。
func preview(htmlContent string) string {
	text := []rune(strings.ReplaceAll(article.Text(htmlContent), "\n", " "))
	if len(text) <= previewRunes {
		return string(text)
	}
	return strings.TrimSpace(string(text[:previewRunes])) + "…"
}

func (s *Server) lookup(r *http.Request) (string, *session) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	sess := s.sessions[c.Value]
	if sess != nil {
		sess.lastUsed = s.now()
	}
	return c.Value, sess
}

// sweepLocked 回收空闲超时的会话，调用方需持有 s.mu。
func (s *Server) sweepLocked() {
	if s.idle <= 0 {
		return
	}
	cutoff := s.now().Add(-s.idle)
	for id, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			delete(s.sessions, id)
			s.log.Infof("会话 %s 空闲超时，已回收", id)
		}
	}
}

func (s *Server) drop(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.log.Infof("会话 %s 已读完", id)
}

// Sessions 返回当前会话数。
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// statusFor 把底层错误映射为响应状态码。
func statusFor(err error) int {
	var reqErr *apperr.RequestError
	var parseErr *apperr.ParseError
	var decErr *apperr.DecodeError
	switch {
	case errors.As(err, &reqErr), errors.As(err, &parseErr), errors.As(err, &decErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) renderError(w http.ResponseWriter, status int, msg string) {
	s.render(w, status, "error.html", map[string]any{
		"Status":  http.StatusText(status),
		"Message": msg,
	})
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Errorf("渲染 %s 失败: %v", name, err)
	}
}
