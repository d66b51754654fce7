package rss

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iabetor/newsreader/internal/database"
	"github.com/iabetor/newsreader/internal/logger"
)

// SiteStore 新闻站点列表，持久化在 SQLite 的 news_sites 表中。
type SiteStore struct {
	db *database.DB
}

// NewSiteStore 创建站点存储，db 必须已完成迁移。
func NewSiteStore(db *database.DB) *SiteStore {
	return &SiteStore{db: db}
}

// Add 添加站点。如果 URL 已存在则返回错误。
func (s *SiteStore) Add(site Site) error {
	site.URL = strings.TrimSpace(site.URL)
	if site.URL == "" {
		return fmt.Errorf("站点 URL 不能为空")
	}
	if site.Name == "" {
		site.Name = site.URL
	}
	if site.AddedAt.IsZero() {
		site.AddedAt = time.Now()
	}

	if existing, err := s.findByURL(site.URL); err != nil {
		return err
	} else if existing != nil {
		return fmt.Errorf("该站点已存在: %s", existing.Name)
	}

	_, err := s.db.Exec(`INSERT INTO news_sites (name, url, added_at) VALUES (?, ?, ?)`,
		site.Name, site.URL, site.AddedAt.Unix())
	if err != nil {
		return fmt.Errorf("保存站点失败: %w", err)
	}
	return nil
}

// List 按添加顺序列出所有站点。
func (s *SiteStore) List() ([]Site, error) {
	rows, err := s.db.Query(`SELECT id, name, url, added_at FROM news_sites ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("查询站点失败: %w", err)
	}
	defer rows.Close()

	sites := make([]Site, 0)
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// Delete 根据 ID 或名称（不区分大小写）删除站点，返回是否删除成功。
func (s *SiteStore) Delete(idOrName string) (bool, error) {
	var res sql.Result
	var err error
	if id, convErr := strconv.ParseInt(idOrName, 10, 64); convErr == nil {
		res, err = s.db.Exec(`DELETE FROM news_sites WHERE id = ?`, id)
	} else {
		res, err = s.db.Exec(`DELETE FROM news_sites WHERE lower(name) = lower(?)`, idOrName)
	}
	if err != nil {
		return false, fmt.Errorf("删除站点失败: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindByName 按名称模糊查找站点，找不到返回 nil。
func (s *SiteStore) FindByName(name string) (*Site, error) {
	row := s.db.QueryRow(`SELECT id, name, url, added_at FROM news_sites
		WHERE instr(lower(name), lower(?)) > 0 ORDER BY id LIMIT 1`, name)
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (s *SiteStore) findByURL(url string) (*Site, error) {
	row := s.db.QueryRow(`SELECT id, name, url, added_at FROM news_sites WHERE url = ?`, url)
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &site, nil
}

// Import 从 JSON 站点列表文件导入，已存在的 URL 会被跳过。
// 文件格式: [{"name": "...", "url": "..."}]。返回新增数量。
func (s *SiteStore) Import(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("读取站点列表 %s 失败: %w", path, err)
	}
	var entries []Site
	if err := json.Unmarshal(data, &entries); err != nil {
		return 0, fmt.Errorf("解析站点列表 %s 失败: %w", path, err)
	}

	added := 0
	for _, e := range entries {
		existing, err := s.findByURL(strings.TrimSpace(e.URL))
		if err != nil {
			return added, err
		}
		if existing != nil {
			continue
		}
		if err := s.Add(Site{Name: e.Name, URL: e.URL}); err != nil {
			logger.Warnf("[rss] 导入站点 %q 失败: %v", e.URL, err)
			continue
		}
		added++
	}
	logger.Infof("[rss] 从 %s 导入 %d 个站点", path, added)
	return added, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSite(r rowScanner) (Site, error) {
	var site Site
	var addedAt int64
	if err := r.Scan(&site.ID, &site.Name, &site.URL, &addedAt); err != nil {
		return Site{}, err
	}
	site.AddedAt = time.Unix(addedAt, 0)
	return site, nil
}
