package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/portfolio/internal/content"
	"github.com/hitoshi/portfolio/internal/middleware"
	"github.com/hitoshi/portfolio/internal/model"
)

// maxAPILimit はlimitパラメータで指定できる最大件数。
const maxAPILimit = 100

// APIHandler はコレクションをJSONで返すHTTPハンドラー。
type APIHandler struct {
	content ContentService
	builder RecordMapBuilder
	logger  *slog.Logger
}

// NewAPIHandler はAPIHandlerを生成する。
func NewAPIHandler(contentService ContentService, builder RecordMapBuilder, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{content: contentService, builder: builder, logger: logger}
}

// ListPosts は記事一覧を返す。
// GET /api/posts?limit=
func (h *APIHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, content.DefaultPostLimit)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.content.ListPosts(r.Context(), limit))
}

// ListGallery はギャラリーを返す。
// GET /api/gallery?limit=
func (h *APIHandler) ListGallery(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, content.DefaultCollectionLimit)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.content.ListGallery(r.Context(), limit))
}

// ListForFriends はおすすめリストを返す。
// GET /api/for-friends?limit=
func (h *APIHandler) ListForFriends(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, content.DefaultCollectionLimit)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.content.ListForFriends(r.Context(), limit))
}

// ListProjects はプロジェクト一覧を返す。
// GET /api/projects?limit=
func (h *APIHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, content.DefaultCollectionLimit)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, h.content.ListProjects(r.Context(), limit))
}

// GetRecordMap は記事本文のレコードマップを返す。
// GET /api/posts/{slug}/recordmap
func (h *APIHandler) GetRecordMap(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	post, err := h.content.GetPostBySlug(r.Context(), slug)
	if err != nil {
		h.upstreamFailure(w, slug, err)
		return
	}
	if post == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewPostNotFoundError(slug))
		return
	}

	m, err := h.builder.Build(r.Context(), post.ID)
	if err != nil {
		h.upstreamFailure(w, slug, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, m)
}

func (h *APIHandler) upstreamFailure(w http.ResponseWriter, slug string, err error) {
	h.logger.Error("レコードマップの取得に失敗しました",
		slog.String("slug", slug),
		slog.String("error", err.Error()),
	)
	middleware.WriteErrorResponse(w, http.StatusBadGateway, model.NewUpstreamFailureError())
}

// parseLimit はlimitパラメータを解釈する。不正値の場合は400を書き込んでfalseを返す。
func parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidParamError("limit"))
		return 0, false
	}
	return min(n, maxAPILimit), true
}
