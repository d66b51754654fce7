package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iabetor/newsreader/internal/apperr"
	"github.com/iabetor/newsreader/internal/config"
	"github.com/iabetor/newsreader/internal/database"
	"github.com/iabetor/newsreader/internal/httpclient"
	"github.com/iabetor/newsreader/internal/logger"
	"github.com/iabetor/newsreader/internal/rss"
	"github.com/iabetor/newsreader/internal/translate"
	"github.com/iabetor/newsreader/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	configPath := flag.String("config", "configs/newsreader.yaml", "配置文件路径")
	envFile := flag.String("env", ".env", "环境变量文件，不存在则忽略")
	var sc siteCommand
	flag.StringVar(&sc.add, "add-site", "", "添加站点 URL 后退出")
	flag.StringVar(&sc.name, "site-name", "", "与 -add-site 一起使用的站点名称")
	flag.StringVar(&sc.remove, "rm-site", "", "按 ID 或名称删除站点后退出")
	flag.StringVar(&sc.find, "find-site", "", "按名称查找站点后退出")
	flag.BoolVar(&sc.list, "list-sites", false, "列出站点后退出")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "用法: %s [-config path] [<oauth-token-file> <folder-id-file>]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "      %s [-config path] -add-site URL [-site-name NAME] | -rm-site ID|NAME | -find-site NAME | -list-sites\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*configPath, *envFile, flag.Args(), sc); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "newsreader: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, envFile string, args []string, sc siteCommand) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("加载 %s 失败: %w", envFile, err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	db, err := database.Open(cfg.Sites.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	sites := rss.NewSiteStore(db)
	if cfg.Sites.File != "" {
		if _, err := sites.Import(cfg.Sites.File); err != nil {
			return err
		}
	}
	if sc.active() {
		return sc.run(sites, db.Path(), os.Stdout)
	}

	tokenFile, folderFile, err := credentialPaths(args, cfg.Translate)
	if err != nil {
		return err
	}
	oauthToken, err := readSecret(tokenFile)
	if err != nil {
		return err
	}
	folderID, err := readSecret(folderFile)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	client := httpclient.New(httpclient.Options{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout(),
	})

	session, err := translate.Authenticate(ctx, client, cfg.Translate.IAMEndpoint, oauthToken, folderID)
	if err != nil {
		return fmt.Errorf("获取 IAM 令牌失败: %w", err)
	}
	translator := translate.New(session, client, translate.Options{
		Endpoint:       cfg.Translate.TranslateEndpoint,
		TargetLanguage: cfg.Translate.TargetLanguage,
		Format:         cfg.Translate.Format,
	})

	srv, err := web.NewServer(sites, client, translator)
	if err != nil {
		return fmt.Errorf("创建网页前端失败: %w", err)
	}
	srv.SetSessionIdle(cfg.Server.SessionIdle())

	logger.Infof("[main] newsreader 启动 (log_level=%s)", cfg.Log.Level)
	err = srv.ListenAndServe(ctx, cfg.Server.Listen)
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	logger.Info("[main] newsreader 已停止")
	return err
}

// credentialPaths 决定令牌文件和目录 ID 文件的路径。
// 给出位置参数时必须恰好两个，否则使用配置文件中的路径。
func credentialPaths(args []string, cfg config.TranslateConfig) (string, string, error) {
	if len(args) == 0 && cfg.OAuthTokenFile != "" && cfg.FolderIDFile != "" {
		return cfg.OAuthTokenFile, cfg.FolderIDFile, nil
	}
	if len(args) != 2 {
		return "", "", &apperr.ArgumentCountError{Expected: 2, Got: len(args)}
	}
	return args[0], args[1], nil
}

// readSecret 读取凭据文件并去掉首尾空白。
func readSecret(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("读取凭据文件 %s 失败: %w", path, err)
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", fmt.Errorf("凭据文件 %s 为空", path)
	}
	return secret, nil
}
