package database

import (
	"path/filepath"
	"testing"
)

func TestOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "newsreader.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open 失败: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path 不匹配: %s", db.Path())
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate 失败: %v", err)
	}
	// 迁移应可重复执行
	if err := db.Migrate(); err != nil {
		t.Fatalf("第二次 Migrate 失败: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM news_sites").Scan(&count); err != nil {
		t.Fatalf("查询 news_sites 失败: %v", err)
	}
	if count != 0 {
		t.Errorf("新库应为空，实际 %d 行", count)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatal("期望空路径返回错误")
	}
}
