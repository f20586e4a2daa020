package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/hitoshi/portfolio/internal/cache"
	"github.com/hitoshi/portfolio/internal/config"
	"github.com/hitoshi/portfolio/internal/content"
	"github.com/hitoshi/portfolio/internal/handler"
	"github.com/hitoshi/portfolio/internal/logger"
	"github.com/hitoshi/portfolio/internal/media"
	"github.com/hitoshi/portfolio/internal/metrics"
	"github.com/hitoshi/portfolio/internal/middleware"
	"github.com/hitoshi/portfolio/internal/notion"
	"github.com/hitoshi/portfolio/internal/recordmap"
	"github.com/hitoshi/portfolio/internal/render"
	"github.com/hitoshi/portfolio/internal/security"
)

// defaultRevalidatePaths は再検証サブコマンドでパスを省略した場合の対象。
var defaultRevalidatePaths = []string{"/", "/posts"}

// Init はアプリケーションの初期化を行う。
// .envファイルと環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. .envファイルと環境変数から設定を読み込む
	if err := config.LoadEnvFiles(config.DefaultEnvFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck と revalidate は軽量サブコマンドのため、フル初期化をスキップする
	switch cmd {
	case CommandHealthcheck:
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	case CommandRevalidate:
		if err := config.LoadEnvFiles(config.DefaultEnvFiles...); err != nil {
			return fmt.Errorf("failed to load env files: %w", err)
		}
		client := &http.Client{Timeout: 30 * time.Second}
		return runRevalidate(context.Background(), w, client, config.LoadTrigger(), args[1:])
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("site_url", cfg.SiteURL),
	)

	return runServe(cfg)
}

// runServe はHTTPサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx := context.Background()

	router, cleanup, err := buildRouter(ctx, cfg, slog.Default(), prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("HTTP server stopped gracefully")
	return nil
}

// buildRouter は設定から全コンポーネントを組み立て、ルーターを返す。
// cleanupはレートリミッターやRedis接続などのバックグラウンド資源を解放する。
func buildRouter(ctx context.Context, cfg *config.Config, log *slog.Logger, reg *prometheus.Registry) (http.Handler, func(), error) {
	// 1. メトリクス
	collector := metrics.NewCollector(reg)

	// 2. CMSクライアント
	notionHTTP := &http.Client{Timeout: cfg.NotionTimeout}
	notionClient := notion.NewClient(notion.ClientConfig{
		Token:     cfg.NotionToken,
		BaseURL:   cfg.NotionAPIBaseURL,
		Version:   cfg.NotionAPIVersion,
		RateLimit: rate.Limit(cfg.NotionRateLimit),
		Burst:     max(1, int(cfg.NotionRateLimit)),
		Observer:  collector,
	}, notionHTTP, log)

	// 3. メディア（URL解決・プロキシ・書き換え）
	rewriter := media.NewRewriter(media.DefaultProxyPath)
	resolver := media.NewResolver(notionClient, cfg.MediaURLTTL, log, collector)
	proxy := media.NewProxy(security.NewSSRFGuard(), log, cfg.MediaFetchTimeout, cfg.MediaMaxSize)

	// 4. コンテンツとレコードマップ
	contentService := content.NewService(notionClient, content.Databases{
		Posts:      cfg.PostsDatabaseID,
		Gallery:    cfg.GalleryDatabaseID,
		ForFriends: cfg.ForFriendsDatabaseID,
		Projects:   cfg.ProjectsDatabaseID,
	}, rewriter, log, collector)
	builder := recordmap.NewBuilder(
		recordmap.NewWebSource(cfg.NotionWebBaseURL, notionHTTP),
		notionClient, rewriter, log, collector,
	)

	// 5. 描画
	renderer, err := render.New(security.NewContentSanitizer(media.DefaultProxyPath), rewriter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	// 6. 描画キャッシュ（REDIS_URLが設定されていればRedisで共有する）
	var (
		store   cache.Store = cache.NewMemoryStore()
		closers []func()
	)
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		store = cache.NewRedisStore(client, cache.DefaultKeyPrefix)
		closers = append(closers, func() { client.Close() })
		log.Info("描画キャッシュにRedisを使用します")
	}
	revalidator := cache.NewRevalidator(store, log, resolver)

	// 7. レート制限
	imageLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Name:      "image",
		PerMinute: cfg.RateLimitImage,
	})
	revalidateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Name:      "revalidate",
		PerMinute: cfg.RateLimitRevalidate,
	})
	closers = append(closers, imageLimiter.Stop, revalidateLimiter.Stop)

	router := handler.NewRouter(&handler.RouterDeps{
		Logger: log,
		HSTS:   strings.HasPrefix(cfg.SiteURL, "https://"),

		Content:   contentService,
		RecordMap: builder,
		Renderer:  renderer,
		Page: handler.PageConfig{
			SiteURL:     cfg.SiteURL,
			Development: cfg.IsDevelopment(),
		},

		MediaResolver: resolver,
		MediaFetcher:  proxy,
		ImageObserver: collector,
		ImageLimiter:  imageLimiter,

		RevalidateSecret:     cfg.RevalidateSecret,
		Revalidator:          revalidator,
		RevalidationObserver: collector,
		RevalidateLimiter:    revalidateLimiter,

		RenderCache: cache.Middleware(store, cfg.RevalidateInterval, log, collector),
		Metrics:     metrics.Handler(reg),
	})

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	return router, cleanup, nil
}

// runRevalidate は稼働中のサーバーに再検証を依頼する。
// POST {SITE_URL}/api/revalidate に {secret, paths} を送り、ステータスとレスポンスを出力する。
func runRevalidate(ctx context.Context, w io.Writer, client *http.Client, trigger config.Trigger, paths []string) error {
	if len(paths) == 0 {
		paths = defaultRevalidatePaths
	}
	payload, err := json.Marshal(map[string]any{
		"secret": trigger.Secret,
		"paths":  paths,
	})
	if err != nil {
		return fmt.Errorf("encode revalidate request: %w", err)
	}

	endpoint := trigger.SiteURL + "/api/revalidate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create revalidate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("revalidate request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read revalidate response: %w", err)
	}
	fmt.Fprintf(w, "status: %d\n%s\n", resp.StatusCode, strings.TrimSpace(string(body)))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revalidate returned status %d", resp.StatusCode)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
