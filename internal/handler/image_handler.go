package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/portfolio/internal/media"
	"github.com/hitoshi/portfolio/internal/metrics"
)

// imageCacheControl は画像プロキシのレスポンスに付けるCache-Control。
// プロキシのURLは署名付きURLと違って変わらないため、長期間キャッシュさせる。
const imageCacheControl = "public, max-age=2592000, s-maxage=2592000, stale-while-revalidate=86400"

// MediaResolver はページプロパティまたはブロックから最新のメディアURLを解決する。
type MediaResolver interface {
	ResolvePageProperty(ctx context.Context, pageID, property string) (string, error)
	ResolveBlock(ctx context.Context, blockID string) (string, error)
}

// MediaFetcher は解決済みURLからメディアを取得する。
type MediaFetcher interface {
	Fetch(ctx context.Context, rawURL string, width int) (*media.Media, error)
}

// ImageHandler は画像プロキシのHTTPハンドラー。
type ImageHandler struct {
	resolver MediaResolver
	fetcher  MediaFetcher
	observer ImageObserver
	logger   *slog.Logger
}

// NewImageHandler はImageHandlerを生成する。
func NewImageHandler(resolver MediaResolver, fetcher MediaFetcher, observer ImageObserver, logger *slog.Logger) *ImageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageHandler{resolver: resolver, fetcher: fetcher, observer: observer, logger: logger}
}

// ServeImage は期限付きのメディアURLを解決し直して中身を返す。
// GET /api/image?pageId=&prop=  または  GET /api/image?blockId=  （任意でw=幅）
// blockIdが指定された場合はそちらを優先する。
func (h *ImageHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pageID := q.Get("pageId")
	prop := q.Get("prop")
	blockID := q.Get("blockId")

	if blockID == "" && (pageID == "" || prop == "") {
		h.fail(w, http.StatusBadRequest, metrics.ImageResultBadRequest, "Missing ID")
		return
	}

	width := 0
	if v := q.Get("w"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			h.fail(w, http.StatusBadRequest, metrics.ImageResultBadRequest, "Invalid width")
			return
		}
		width = n
	}

	var (
		src string
		err error
	)
	if blockID != "" {
		src, err = h.resolver.ResolveBlock(r.Context(), blockID)
	} else {
		src, err = h.resolver.ResolvePageProperty(r.Context(), pageID, prop)
	}
	if errors.Is(err, media.ErrNotFound) || (err == nil && src == "") {
		h.fail(w, http.StatusNotFound, metrics.ImageResultNotFound, "Image not found")
		return
	}
	if err != nil {
		h.logger.Error("メディアURLの解決に失敗しました",
			slog.String("page_id", pageID),
			slog.String("prop", prop),
			slog.String("block_id", blockID),
			slog.String("error", err.Error()),
		)
		h.fail(w, http.StatusInternalServerError, metrics.ImageResultError, "Error proxying image")
		return
	}

	m, err := h.fetcher.Fetch(r.Context(), src, width)
	if err != nil {
		h.logger.Error("画像の取得に失敗しました",
			slog.String("page_id", pageID),
			slog.String("prop", prop),
			slog.String("block_id", blockID),
			slog.String("error", err.Error()),
		)
		h.fail(w, http.StatusInternalServerError, metrics.ImageResultError, "Error proxying image")
		return
	}

	h.observe(metrics.ImageResultOK)
	w.Header().Set("Content-Type", m.ContentType)
	w.Header().Set("Cache-Control", imageCacheControl)
	w.Header().Set("Content-Length", strconv.Itoa(len(m.Body)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(m.Body)
	}
}

// fail はプレーンテキストのエラーを返す。エラーはキャッシュさせない。
func (h *ImageHandler) fail(w http.ResponseWriter, status int, result, message string) {
	h.observe(result)
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, message, status)
}

func (h *ImageHandler) observe(result string) {
	if h.observer != nil {
		h.observer.ObserveImageProxy(result)
	}
}
