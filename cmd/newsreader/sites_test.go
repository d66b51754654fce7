package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iabetor/newsreader/internal/database"
	"github.com/iabetor/newsreader/internal/rss"
)

func newSiteStore(t *testing.T) (*rss.SiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sites.db")
	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("打开数据库失败: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}
	return rss.NewSiteStore(db), db.Path()
}

func TestSiteCommandActive(t *testing.T) {
	if (siteCommand{}).active() {
		t.Error("空命令不应生效")
	}
	if (siteCommand{name: "only name"}).active() {
		t.Error("只有 -site-name 不应生效")
	}
	if !(siteCommand{list: true}).active() {
		t.Error("-list-sites 应生效")
	}
}

func TestSiteCommandRun(t *testing.T) {
	store, dbPath := newSiteStore(t)
	var out bytes.Buffer

	if err := (siteCommand{add: "https://meduza.io", name: "Meduza"}).run(store, dbPath, &out); err != nil {
		t.Fatalf("添加失败: %v", err)
	}
	if err := (siteCommand{add: "https://lenta.ru", name: "Lenta"}).run(store, dbPath, &out); err != nil {
		t.Fatalf("添加失败: %v", err)
	}
	if err := (siteCommand{add: "https://lenta.ru"}).run(store, dbPath, &out); err == nil {
		t.Error("重复 URL 应返回错误")
	}

	out.Reset()
	if err := (siteCommand{find: "medu"}).run(store, dbPath, &out); err != nil {
		t.Fatalf("查找失败: %v", err)
	}
	if !strings.Contains(out.String(), "https://meduza.io") {
		t.Errorf("查找结果不匹配: %s", out.String())
	}

	if err := (siteCommand{remove: "meduza"}).run(store, dbPath, &out); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if err := (siteCommand{remove: "meduza"}).run(store, dbPath, &out); err == nil {
		t.Error("删除不存在的站点应返回错误")
	}
	if err := (siteCommand{find: "meduza"}).run(store, dbPath, &out); err == nil {
		t.Error("已删除的站点不应被找到")
	}

	out.Reset()
	if err := (siteCommand{list: true}).run(store, dbPath, &out); err != nil {
		t.Fatalf("列出失败: %v", err)
	}
	listing := out.String()
	if !strings.Contains(listing, dbPath) {
		t.Errorf("列表应包含数据库路径: %s", listing)
	}
	if !strings.Contains(listing, "https://lenta.ru") || strings.Contains(listing, "meduza") {
		t.Errorf("列表内容不匹配: %s", listing)
	}
}
