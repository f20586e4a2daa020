// Package handler はHTTPエンドポイントを提供する。
//
// ページ（HTML）、データAPI（JSON）、画像プロキシ、再検証の各ハンドラーは
// 必要な依存だけを小さなインターフェースとして受け取る。
package handler

import (
	"context"
	"html/template"
	"net/http"

	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/recordmap"
	"github.com/hitoshi/portfolio/internal/render"
)

// ContentService はCMSのコレクションを読み出すサービスのインターフェース。
type ContentService interface {
	ListPosts(ctx context.Context, limit int) []model.Post
	GetPostBySlug(ctx context.Context, slug string) (*model.Post, error)
	ListGallery(ctx context.Context, limit int) []model.GalleryItem
	ListForFriends(ctx context.Context, limit int) []model.ForFriendsItem
	ListProjects(ctx context.Context, limit int) []model.Project
}

// RecordMapBuilder は記事本文のレコードマップを組み立てる。
type RecordMapBuilder interface {
	Build(ctx context.Context, pageID string) (*recordmap.RecordMap, error)
}

// PageRenderer はHTMLページを描画する。
type PageRenderer interface {
	Render(w http.ResponseWriter, status int, name string, page render.Page) error
	BlocksHTML(m *recordmap.RecordMap, pageID string) template.HTML
}

// ImageObserver は画像プロキシの結果を観測する。
type ImageObserver interface {
	ObserveImageProxy(result string)
}

// RevalidationObserver は再検証リクエストの結果を観測する。
type RevalidationObserver interface {
	ObserveRevalidation(result string)
}
