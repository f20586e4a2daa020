package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/portfolio/internal/content"
	"github.com/hitoshi/portfolio/internal/mapper"
	"github.com/hitoshi/portfolio/internal/middleware"
	"github.com/hitoshi/portfolio/internal/render"
)

// PageHandler はHTMLページのHTTPハンドラー。
type PageHandler struct {
	content     ContentService
	builder     RecordMapBuilder
	renderer    PageRenderer
	siteURL     string
	development bool
	logger      *slog.Logger
}

// PageConfig はPageHandlerの設定。
type PageConfig struct {
	SiteURL string
	// Development がtrueの場合、記事ページの取得失敗をエラー内容付きの500で返す。
	Development bool
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(contentService ContentService, builder RecordMapBuilder, renderer PageRenderer, cfg PageConfig, logger *slog.Logger) *PageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PageHandler{
		content:     contentService,
		builder:     builder,
		renderer:    renderer,
		siteURL:     cfg.SiteURL,
		development: cfg.Development,
		logger:      logger,
	}
}

// Home は最新の記事を表示する。
// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	posts := h.content.ListPosts(r.Context(), render.HomeLimit)
	h.render(w, r, http.StatusOK, render.PageHome, "Home", posts)
}

// Posts は記事アーカイブを表示する。qで検索、yearとtagで絞り込む。
// GET /posts
func (h *PageHandler) Posts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	posts := h.content.ListPosts(r.Context(), content.DefaultPostLimit)

	year := strings.TrimSpace(q.Get("year"))
	filter := mapper.PostFilter{
		Query: q.Get("q"),
		Tag:   q.Get("tag"),
	}
	if year != "" {
		if n, err := strconv.Atoi(year); err == nil {
			filter.Year = n
		} else {
			year = ""
		}
	}

	h.render(w, r, http.StatusOK, render.PagePosts, "Posts", render.PostsData{
		Posts: mapper.FilterPosts(posts, filter),
		Query: filter.Query,
		Year:  year,
		Years: mapper.ArchiveYears(posts),
	})
}

// Post は記事の詳細を表示する。
// GET /posts/{slug}
func (h *PageHandler) Post(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.content.GetPostBySlug(r.Context(), slug)
	if err != nil {
		h.postFailure(w, r, slug, err)
		return
	}
	if post == nil {
		h.NotFound(w, r)
		return
	}

	m, err := h.builder.Build(r.Context(), post.ID)
	if err != nil {
		h.postFailure(w, r, slug, err)
		return
	}

	h.render(w, r, http.StatusOK, render.PagePost, post.Title, render.PostData{
		Post:      *post,
		Body:      h.renderer.BlocksHTML(m, post.ID),
		RecordMap: m,
	})
}

// postFailure は記事ページの取得失敗を返す。
// 本番では404、開発環境ではエラー内容付きの500を描画する。
func (h *PageHandler) postFailure(w http.ResponseWriter, r *http.Request, slug string, err error) {
	h.logger.Error("記事の取得に失敗しました",
		slog.String("slug", slug),
		slog.String("error", err.Error()),
	)
	if !h.development {
		h.NotFound(w, r)
		return
	}
	h.render(w, r, http.StatusInternalServerError, render.PageError, "Error", render.ErrorData{
		Status:  http.StatusInternalServerError,
		Message: err.Error(),
	})
}

// Gallery はギャラリーを表示する。tagで絞り込む。
// GET /gallery
func (h *PageHandler) Gallery(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	items := h.content.ListGallery(r.Context(), content.DefaultCollectionLimit)
	h.render(w, r, http.StatusOK, render.PageGallery, "Gallery", render.GalleryData{
		Items: mapper.FilterGalleryByTag(items, tag),
		Tags:  mapper.GalleryTags(items),
		Tag:   tag,
	})
}

// ForFriends はおすすめリストを表示する。typeで絞り込む。
// GET /for-friends
func (h *PageHandler) ForFriends(w http.ResponseWriter, r *http.Request) {
	itemType := r.URL.Query().Get("type")
	items := h.content.ListForFriends(r.Context(), content.DefaultCollectionLimit)
	h.render(w, r, http.StatusOK, render.PageForFriends, "For Friends", render.ForFriendsData{
		Items: mapper.FilterByType(items, itemType),
		Types: mapper.ItemTypes(items),
		Type:  itemType,
	})
}

// Projects はプロジェクト一覧を表示する。
// GET /projects
func (h *PageHandler) Projects(w http.ResponseWriter, r *http.Request) {
	projects := h.content.ListProjects(r.Context(), content.DefaultCollectionLimit)
	h.render(w, r, http.StatusOK, render.PageProjects, "Projects", projects)
}

// About は自己紹介ページを表示する。
func (h *PageHandler) About(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, render.PageAbout, "About", nil)
}

// Contact は連絡先ページを表示する。
func (h *PageHandler) Contact(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, render.PageContact, "Contact", nil)
}

// NotFound は404ページを表示する。
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, render.PageNotFound, "Not Found", nil)
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any) {
	err := h.renderer.Render(w, status, name, render.Page{
		Title:   title,
		Path:    r.URL.Path,
		SiteURL: h.siteURL,
		Data:    data,
	})
	if err != nil {
		h.logger.Error("ページの描画に失敗しました",
			slog.String("page", name),
			slog.String("error", err.Error()),
		)
		middleware.WriteInternalServerError(w)
	}
}
