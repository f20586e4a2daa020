package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/portfolio/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger *slog.Logger
	// HSTS がtrueの場合、Strict-Transport-Securityヘッダーを付ける。
	HSTS bool

	// コンテンツ
	Content   ContentService
	RecordMap RecordMapBuilder
	Renderer  PageRenderer
	Page      PageConfig

	// 画像プロキシ
	MediaResolver MediaResolver
	MediaFetcher  MediaFetcher
	ImageObserver ImageObserver
	// ImageLimiter がnilの場合は画像プロキシのレート制限を行わない。
	ImageLimiter *middleware.RateLimiter

	// 再検証
	RevalidateSecret     string
	Revalidator          Revalidator
	RevalidationObserver RevalidationObserver
	RevalidateLimiter    *middleware.RateLimiter

	// RenderCache はページルートに適用する描画キャッシュ。nilの場合はキャッシュしない。
	RenderCache func(http.Handler) http.Handler
	// Metrics は/metricsで公開するハンドラー。nilの場合はルートを登録しない。
	Metrics http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging
//
// ページルートは描画キャッシュを通す。/api/imageと/api/revalidateにはIPごとのレート制限を適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.HSTS))
	r.Use(middleware.NewLoggingMiddleware(logger))

	pageHandler := NewPageHandler(deps.Content, deps.RecordMap, deps.Renderer, deps.Page, logger)
	apiHandler := NewAPIHandler(deps.Content, deps.RecordMap, logger)
	imageHandler := NewImageHandler(deps.MediaResolver, deps.MediaFetcher, deps.ImageObserver, logger)
	revalidateHandler := NewRevalidateHandler(deps.RevalidateSecret, deps.Revalidator, deps.RevalidationObserver, logger)

	r.NotFound(pageHandler.NotFound)

	// --- HTMLページ ---
	r.Group(func(r chi.Router) {
		if deps.RenderCache != nil {
			r.Use(deps.RenderCache)
		}
		r.Get("/", pageHandler.Home)
		r.Get("/posts", pageHandler.Posts)
		r.Get("/posts/{slug}", pageHandler.Post)
		r.Get("/gallery", pageHandler.Gallery)
		r.Get("/for-friends", pageHandler.ForFriends)
		r.Get("/projects", pageHandler.Projects)
		r.Get("/about", pageHandler.About)
		r.Get("/contact", pageHandler.Contact)
	})

	// --- JSON API ---
	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", apiHandler.ListPosts)
		r.Get("/posts/{slug}/recordmap", apiHandler.GetRecordMap)
		r.Get("/gallery", apiHandler.ListGallery)
		r.Get("/for-friends", apiHandler.ListForFriends)
		r.Get("/projects", apiHandler.ListProjects)

		r.Group(func(r chi.Router) {
			if deps.ImageLimiter != nil {
				r.Use(deps.ImageLimiter.Middleware())
			}
			r.Get("/image", imageHandler.ServeImage)
			r.Head("/image", imageHandler.ServeImage)
		})

		r.Group(func(r chi.Router) {
			if deps.RevalidateLimiter != nil {
				r.Use(deps.RevalidateLimiter.Middleware())
			}
			r.Get("/revalidate", revalidateHandler.Get)
			r.Post("/revalidate", revalidateHandler.Post)
		})
	})

	// ヘルスチェック
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics)
	}

	return r
}
