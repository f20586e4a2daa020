package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/hitoshi/portfolio/internal/metrics"
	"github.com/hitoshi/portfolio/internal/middleware"
)

// maxRevalidateBody は再検証リクエストのボディの上限。
const maxRevalidateBody = 64 * 1024

// Revalidator は指定したパスの描画キャッシュを無効化する。
type Revalidator interface {
	Revalidate(ctx context.Context, paths ...string) ([]string, error)
}

// RevalidateHandler は再検証のHTTPハンドラー。
type RevalidateHandler struct {
	secret      string
	revalidator Revalidator
	observer    RevalidationObserver
	logger      *slog.Logger
}

// NewRevalidateHandler はRevalidateHandlerを生成する。
// secretが空の場合、すべてのリクエストを拒否する。
func NewRevalidateHandler(secret string, revalidator Revalidator, observer RevalidationObserver, logger *slog.Logger) *RevalidateHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RevalidateHandler{secret: secret, revalidator: revalidator, observer: observer, logger: logger}
}

// revalidateRequest はPOST /api/revalidateのボディ。
type revalidateRequest struct {
	Secret string          `json:"secret"`
	Paths  json.RawMessage `json:"paths"`
}

// Get は1つのパスを再検証する。
// GET /api/revalidate?secret=xxx&path=/posts
func (h *RevalidateHandler) Get(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !h.authorized(q.Get("secret")) {
		h.unauthorized(w, r)
		return
	}

	path := q.Get("path")
	if path == "" {
		path = "/"
	}
	if !h.revalidate(w, r, path) {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "revalidated": path})
}

// Post は複数のパスを再検証する。
// POST /api/revalidate {"secret": "xxx", "paths": ["/", "/posts"]}
// ボディがJSONとして不正な場合は空のボディとして扱う。pathsが配列でない場合は["/"]。
func (h *RevalidateHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req revalidateRequest
	data, err := io.ReadAll(io.LimitReader(r.Body, maxRevalidateBody))
	if err == nil {
		if err := json.Unmarshal(data, &req); err != nil {
			req = revalidateRequest{}
		}
	}

	if !h.authorized(req.Secret) {
		h.unauthorized(w, r)
		return
	}

	paths := []string{"/"}
	if len(req.Paths) > 0 {
		var list []string
		if err := json.Unmarshal(req.Paths, &list); err == nil && list != nil {
			paths = list
		}
	}

	if !h.revalidate(w, r, paths...) {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "revalidated": paths})
}

// authorized はsecretが設定値と一致するかを一定時間で比較する。
func (h *RevalidateHandler) authorized(secret string) bool {
	if h.secret == "" || secret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) == 1
}

func (h *RevalidateHandler) unauthorized(w http.ResponseWriter, r *http.Request) {
	h.observe(metrics.RevalidateResultUnauthorized)
	h.logger.Warn("再検証リクエストを拒否しました",
		slog.String("method", r.Method),
		slog.String("remote_addr", r.RemoteAddr),
	)
	middleware.WriteJSON(w, http.StatusUnauthorized, map[string]any{"ok": false})
}

// revalidate はキャッシュを無効化する。失敗した場合は500を書き込んでfalseを返す。
func (h *RevalidateHandler) revalidate(w http.ResponseWriter, r *http.Request, paths ...string) bool {
	if len(paths) == 0 {
		h.observe(metrics.RevalidateResultOK)
		return true
	}
	if _, err := h.revalidator.Revalidate(r.Context(), paths...); err != nil {
		h.logger.Error("再検証に失敗しました",
			slog.Any("paths", paths),
			slog.String("error", err.Error()),
		)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]any{"ok": false})
		return false
	}
	h.observe(metrics.RevalidateResultOK)
	return true
}

func (h *RevalidateHandler) observe(result string) {
	if h.observer != nil {
		h.observer.ObserveRevalidation(result)
	}
}
