package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEnvFiles は起動時に読み込む.envファイル。先に読んだファイルが優先される。
var DefaultEnvFiles = []string{".env.local", ".env"}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Notion
	NotionToken          string
	PostsDatabaseID      string
	GalleryDatabaseID    string
	ForFriendsDatabaseID string
	ProjectsDatabaseID   string
	NotionAPIBaseURL     string
	NotionAPIVersion     string
	NotionWebBaseURL     string
	NotionRateLimit      float64
	NotionTimeout        time.Duration

	// Revalidation
	RevalidateSecret   string
	RevalidateInterval time.Duration

	// Media
	MediaURLTTL       time.Duration
	MediaFetchTimeout time.Duration
	MediaMaxSize      int64

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitImage      int
	RateLimitRevalidate int

	// Cache
	RedisURL string

	// Server
	ServerPort string
	SiteURL    string
	AppEnv     string
	LogLevel   string
}

// IsDevelopment は開発環境かどうかを返す。開発環境ではエラーの詳細をレスポンスに含める。
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}

// LoadEnvFiles は存在する.envファイルを順に読み込む。
// 既に設定されている環境変数は上書きしない。存在しないファイルは無視する。
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.NotionToken = os.Getenv("NOTION_TOKEN")
	if cfg.NotionToken == "" {
		return nil, fmt.Errorf("required environment variables are not set: %v", []string{"NOTION_TOKEN"})
	}

	// データベースIDが空の場合、そのセクションは空として描画する
	cfg.PostsDatabaseID = os.Getenv("NOTION_POSTS_DB_ID")
	cfg.GalleryDatabaseID = os.Getenv("NOTION_GALLERY_DB_ID")
	cfg.ForFriendsDatabaseID = os.Getenv("NOTION_FOR_FRIENDS_DB_ID")
	cfg.ProjectsDatabaseID = os.Getenv("NOTION_PROJECTS_DB_ID")

	cfg.NotionAPIBaseURL = getEnvString("NOTION_API_BASE_URL", "https://api.notion.com")
	cfg.NotionAPIVersion = getEnvString("NOTION_API_VERSION", "2022-06-28")
	cfg.NotionWebBaseURL = getEnvString("NOTION_WEB_BASE_URL", "https://www.notion.so")
	cfg.NotionRateLimit = getEnvFloat("NOTION_RATE_LIMIT", 3)
	cfg.NotionTimeout = getEnvDuration("NOTION_TIMEOUT", 15*time.Second)

	cfg.RevalidateSecret = os.Getenv("REVALIDATE_SECRET")
	cfg.RevalidateInterval = getEnvDuration("REVALIDATE_INTERVAL", 60*time.Second)

	cfg.MediaURLTTL = getEnvDuration("MEDIA_URL_TTL", 5*time.Minute)
	cfg.MediaFetchTimeout = getEnvDuration("MEDIA_FETCH_TIMEOUT", 20*time.Second)
	cfg.MediaMaxSize = getEnvInt64("MEDIA_MAX_SIZE", 25*1024*1024)

	cfg.RateLimitImage = getEnvInt("RATE_LIMIT_IMAGE", 600)
	cfg.RateLimitRevalidate = getEnvInt("RATE_LIMIT_REVALIDATE", 10)

	cfg.RedisURL = os.Getenv("REDIS_URL")

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.SiteURL = siteURL()
	cfg.AppEnv = getEnvString("APP_ENV", "production")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

// Trigger は再検証サブコマンドが使う設定。NOTION_TOKENを必要としない。
type Trigger struct {
	SiteURL string
	Secret  string
}

// LoadTrigger は環境変数から再検証の送信先とsecretを読み込む。
func LoadTrigger() Trigger {
	return Trigger{
		SiteURL: siteURL(),
		Secret:  os.Getenv("REVALIDATE_SECRET"),
	}
}

// siteURL はSITE_URL、NEXT_PUBLIC_SITE_URLの順に参照し、末尾の"/"を取り除く。
func siteURL() string {
	return strings.TrimRight(getEnvString("SITE_URL", getEnvString("NEXT_PUBLIC_SITE_URL", "http://localhost:3000")), "/")
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return defaultVal
	}
	return f
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
