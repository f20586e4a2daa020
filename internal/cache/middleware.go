package cache

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"path"
	"strings"
	"time"
)

// ResultObserver はキャッシュのヒット・ミスを観測する。
type ResultObserver interface {
	ObserveRenderCache(result string)
}

// entry はキャッシュに保存する描画結果。
type entry struct {
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// NormalizePath はリクエストパスを正規化する。
// 先頭に"/"を付け、末尾の"/"と"."・".."を取り除く。
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Key はパスに対応するキャッシュキーを返す。
func Key(p string) string {
	return "page:" + NormalizePath(p)
}

// Middleware はクエリ文字列のないGETリクエストの描画結果をttlの間キャッシュする。
// 200かつHTMLの応答のみ保存し、X-Cacheヘッダーでヒット・ミスを示す。
func Middleware(store Store, ttl time.Duration, logger *slog.Logger, observer ResultObserver) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	observe := func(result string) {
		if observer != nil {
			observer.ObserveRenderCache(result)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || r.URL.RawQuery != "" {
				next.ServeHTTP(w, r)
				return
			}

			key := Key(r.URL.Path)
			if data, ok, err := store.Get(r.Context(), key); err != nil {
				logger.Warn("描画キャッシュの取得に失敗しました", slog.String("key", key), slog.String("error", err.Error()))
			} else if ok {
				var e entry
				if err := json.Unmarshal(data, &e); err == nil {
					observe("hit")
					w.Header().Set("Content-Type", e.ContentType)
					w.Header().Set("X-Cache", "HIT")
					w.WriteHeader(http.StatusOK)
					w.Write(e.Body)
					return
				}
			}

			observe("miss")
			rec := &recorder{ResponseWriter: w, statusCode: http.StatusOK}
			w.Header().Set("X-Cache", "MISS")
			next.ServeHTTP(rec, r)

			contentType := w.Header().Get("Content-Type")
			if rec.statusCode != http.StatusOK || !strings.HasPrefix(contentType, "text/html") {
				return
			}
			data, err := json.Marshal(entry{ContentType: contentType, Body: rec.body.Bytes()})
			if err != nil {
				return
			}
			if err := store.Set(r.Context(), key, data, ttl); err != nil {
				logger.Warn("描画キャッシュの保存に失敗しました", slog.String("key", key), slog.String("error", err.Error()))
			}
		})
	}
}

// recorder はレスポンスをクライアントに書き込みつつ、ステータスとボディを記録する。
type recorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	body        bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.statusCode = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
