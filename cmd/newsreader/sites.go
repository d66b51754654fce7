package main

import (
	"fmt"
	"io"

	"github.com/iabetor/newsreader/internal/rss"
)

// siteCommand 命令行站点管理，任一字段非空时不启动网页前端。
type siteCommand struct {
	add    string
	name   string
	remove string
	find   string
	list   bool
}

func (c siteCommand) active() bool {
	return c.add != "" || c.remove != "" || c.find != "" || c.list
}

// run 依次执行添加、删除、查找、列出，结果写到 w。
func (c siteCommand) run(store *rss.SiteStore, dbPath string, w io.Writer) error {
	if c.add != "" {
		if err := store.Add(rss.Site{Name: c.name, URL: c.add}); err != nil {
			return err
		}
		fmt.Fprintf(w, "已添加: %s\n", c.add)
	}

	if c.remove != "" {
		ok, err := store.Delete(c.remove)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("没有找到站点: %s", c.remove)
		}
		fmt.Fprintf(w, "已删除: %s\n", c.remove)
	}

	if c.find != "" {
		site, err := store.FindByName(c.find)
		if err != nil {
			return err
		}
		if site == nil {
			return fmt.Errorf("没有找到站点: %s", c.find)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\n", site.ID, site.Name, site.URL)
	}

	if c.list {
		sites, err := store.List()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "数据库: %s\n", dbPath)
		for _, site := range sites {
			fmt.Fprintf(w, "%d\t%s\t%s\n", site.ID, site.Name, site.URL)
		}
	}
	return nil
}
