package handler

import (
	"context"
	"html/template"
	"net/http"
	"sync"

	"github.com/hitoshi/portfolio/internal/media"
	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/recordmap"
	"github.com/hitoshi/portfolio/internal/render"
)

type mockContentService struct {
	listPostsFn      func(ctx context.Context, limit int) []model.Post
	getPostBySlugFn  func(ctx context.Context, slug string) (*model.Post, error)
	listGalleryFn    func(ctx context.Context, limit int) []model.GalleryItem
	listForFriendsFn func(ctx context.Context, limit int) []model.ForFriendsItem
	listProjectsFn   func(ctx context.Context, limit int) []model.Project
}

func (m *mockContentService) ListPosts(ctx context.Context, limit int) []model.Post {
	if m.listPostsFn == nil {
		return []model.Post{}
	}
	return m.listPostsFn(ctx, limit)
}

func (m *mockContentService) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	if m.getPostBySlugFn == nil {
		return nil, nil
	}
	return m.getPostBySlugFn(ctx, slug)
}

func (m *mockContentService) ListGallery(ctx context.Context, limit int) []model.GalleryItem {
	if m.listGalleryFn == nil {
		return []model.GalleryItem{}
	}
	return m.listGalleryFn(ctx, limit)
}

func (m *mockContentService) ListForFriends(ctx context.Context, limit int) []model.ForFriendsItem {
	if m.listForFriendsFn == nil {
		return []model.ForFriendsItem{}
	}
	return m.listForFriendsFn(ctx, limit)
}

func (m *mockContentService) ListProjects(ctx context.Context, limit int) []model.Project {
	if m.listProjectsFn == nil {
		return []model.Project{}
	}
	return m.listProjectsFn(ctx, limit)
}

type mockRecordMapBuilder struct {
	buildFn func(ctx context.Context, pageID string) (*recordmap.RecordMap, error)
}

func (m *mockRecordMapBuilder) Build(ctx context.Context, pageID string) (*recordmap.RecordMap, error) {
	if m.buildFn == nil {
		return recordmap.New(), nil
	}
	return m.buildFn(ctx, pageID)
}

// renderCall はmockRendererが受け取った描画要求。
type renderCall struct {
	status int
	name   string
	page   render.Page
}

type mockRenderer struct {
	renderErr error
	body      template.HTML
	calls     []renderCall
}

func (m *mockRenderer) Render(w http.ResponseWriter, status int, name string, page render.Page) error {
	if m.renderErr != nil {
		return m.renderErr
	}
	m.calls = append(m.calls, renderCall{status: status, name: name, page: page})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte("<html>" + name + "</html>"))
	return nil
}

func (m *mockRenderer) BlocksHTML(_ *recordmap.RecordMap, _ string) template.HTML {
	return m.body
}

func (m *mockRenderer) last() renderCall {
	if len(m.calls) == 0 {
		return renderCall{}
	}
	return m.calls[len(m.calls)-1]
}

type mockMediaResolver struct {
	resolvePagePropertyFn func(ctx context.Context, pageID, property string) (string, error)
	resolveBlockFn        func(ctx context.Context, blockID string) (string, error)
}

func (m *mockMediaResolver) ResolvePageProperty(ctx context.Context, pageID, property string) (string, error) {
	if m.resolvePagePropertyFn == nil {
		return "", media.ErrNotFound
	}
	return m.resolvePagePropertyFn(ctx, pageID, property)
}

func (m *mockMediaResolver) ResolveBlock(ctx context.Context, blockID string) (string, error) {
	if m.resolveBlockFn == nil {
		return "", media.ErrNotFound
	}
	return m.resolveBlockFn(ctx, blockID)
}

type mockMediaFetcher struct {
	fetchFn func(ctx context.Context, rawURL string, width int) (*media.Media, error)
}

func (m *mockMediaFetcher) Fetch(ctx context.Context, rawURL string, width int) (*media.Media, error) {
	return m.fetchFn(ctx, rawURL, width)
}

type mockRevalidator struct {
	revalidateFn func(ctx context.Context, paths ...string) ([]string, error)
	calls        [][]string
}

func (m *mockRevalidator) Revalidate(ctx context.Context, paths ...string) ([]string, error) {
	m.calls = append(m.calls, paths)
	if m.revalidateFn == nil {
		return paths, nil
	}
	return m.revalidateFn(ctx, paths...)
}

// recordingObserver は画像プロキシと再検証の結果を記録する。
type recordingObserver struct {
	mu      sync.Mutex
	results []string
}

func (o *recordingObserver) ObserveImageProxy(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, "image:"+result)
}

func (o *recordingObserver) ObserveRevalidation(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, "revalidate:"+result)
}
