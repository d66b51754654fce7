package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是 newsreader 的顶层配置结构。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Translate TranslateConfig `yaml:"translate"`
	Sites     SitesConfig     `yaml:"sites"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig 网页前端配置。
type ServerConfig struct {
	Listen string `yaml:"listen"`
	// SessionIdleMinutes 访客会话空闲超时，默认 30，负数表示永不回收。
	SessionIdleMinutes int `yaml:"session_idle_minutes"`
}

// SessionIdle 返回会话空闲超时，0 表示永不回收。
func (s ServerConfig) SessionIdle() time.Duration {
	if s.SessionIdleMinutes < 0 {
		return 0
	}
	return time.Duration(s.SessionIdleMinutes) * time.Minute
}

// HTTPConfig 出站请求配置。
type HTTPConfig struct {
	UserAgent string `yaml:"user_agent"`
	// TimeoutSeconds 为 0 表示不设超时。
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout 返回超时时长。
func (h HTTPConfig) Timeout() time.Duration {
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// TranslateConfig Yandex 翻译配置。
// 令牌和目录 ID 从文件读取，命令行参数优先。
type TranslateConfig struct {
	OAuthTokenFile    string `yaml:"oauth_token_file"`
	FolderIDFile      string `yaml:"folder_id_file"`
	IAMEndpoint       string `yaml:"iam_endpoint"`
	TranslateEndpoint string `yaml:"translate_endpoint"`
	TargetLanguage    string `yaml:"target_language"`
	Format            string `yaml:"format"`
}

// SitesConfig 站点列表配置。
type SitesConfig struct {
	// File 为 JSON 站点列表，启动时导入数据库，为空则跳过。
	File   string `yaml:"file"`
	DBPath string `yaml:"db_path"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	expanded := os.Expand(string(data), os.Getenv)

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	return cfg, nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = "localhost:5000"
	}
	if cfg.Server.SessionIdleMinutes == 0 {
		cfg.Server.SessionIdleMinutes = 30
	}
	if cfg.HTTP.UserAgent == "" {
		cfg.HTTP.UserAgent = "Chrome/50.0.2661.102"
	}
	if cfg.Translate.IAMEndpoint == "" {
		cfg.Translate.IAMEndpoint = "https://iam.api.cloud.yandex.net/iam/v1/tokens"
	}
	if cfg.Translate.TranslateEndpoint == "" {
		cfg.Translate.TranslateEndpoint = "https://translate.api.cloud.yandex.net/translate/v2/translate"
	}
	if cfg.Translate.TargetLanguage == "" {
		cfg.Translate.TargetLanguage = "ru"
	}
	if cfg.Translate.Format == "" {
		cfg.Translate.Format = "HTML"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}

	if cfg.Sites.DBPath == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Sites.DBPath = filepath.Join(home, ".newsreader", "newsreader.db")
		} else {
			cfg.Sites.DBPath = "./newsreader.db"
		}
	}

	// Go 不会自动展开 ~，需要手动替换为用户主目录
	cfg.Sites.DBPath = expandHome(cfg.Sites.DBPath)
	cfg.Sites.File = expandHome(cfg.Sites.File)
	cfg.Translate.OAuthTokenFile = expandHome(cfg.Translate.OAuthTokenFile)
	cfg.Translate.FolderIDFile = expandHome(cfg.Translate.FolderIDFile)
	cfg.Log.File = expandHome(cfg.Log.File)
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, _ := os.UserHomeDir()
	if home == "" {
		return p
	}
	return home + p[1:]
}
