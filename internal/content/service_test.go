package content

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/hitoshi/portfolio/internal/notion"
)

// mockQuerier はQuerierのテスト用モック。呼び出されたリクエストを記録する。
type mockQuerier struct {
	mu       sync.Mutex
	requests []notion.QueryRequest
	limits   []int
	queryFn  func(req notion.QueryRequest, call int) ([]notion.Page, error)
}

func (m *mockQuerier) QueryAll(_ context.Context, _ string, req notion.QueryRequest, limit int) ([]notion.Page, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.limits = append(m.limits, limit)
	call := len(m.requests)
	m.mu.Unlock()
	return m.queryFn(req, call)
}

type fallbackRecorder struct {
	steps []string
}

func (r *fallbackRecorder) ObserveSchemaFallback(collection, step string) {
	r.steps = append(r.steps, collection+":"+step)
}

func missingProperty(kind, name string) error {
	return &notion.APIError{
		Status:  http.StatusBadRequest,
		Code:    notion.ErrCodeValidation,
		Message: "Could not find " + kind + " property with name or id: " + name,
	}
}

func titledPage(id, title string) notion.Page {
	return notion.Page{ID: id, Properties: map[string]notion.Property{
		"Title": {Type: notion.PropertyTypeTitle, Title: []notion.RichText{{PlainText: title}}},
	}}
}

func newTestService(q Querier, obs FallbackObserver) (*Service, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	svc := NewService(q, Databases{
		Posts:      "posts-db",
		Gallery:    "gallery-db",
		ForFriends: "friends-db",
		Projects:   "projects-db",
	}, nil, logger, obs)
	return svc, &buf
}

func TestListPosts_FullQuery(t *testing.T) {
	q := &mockQuerier{queryFn: func(req notion.QueryRequest, _ int) ([]notion.Page, error) {
		return []notion.Page{titledPage("a", "First"), titledPage("b", "Second")}, nil
	}}
	svc, _ := newTestService(q, nil)

	posts := svc.ListPosts(context.Background(), 0)
	if len(posts) != 2 || posts[0].Title != "First" {
		t.Fatalf("posts = %+v", posts)
	}
	req := q.requests[0]
	if req.Filter == nil || req.Filter.Property != "Published" {
		t.Errorf("filter = %+v, want Published", req.Filter)
	}
	if len(req.Sorts) != 1 || req.Sorts[0].Property != "PublishedAt" || req.Sorts[0].Direction != notion.SortDescending {
		t.Errorf("sorts = %+v, want PublishedAt descending", req.Sorts)
	}
	if q.limits[0] != DefaultPostLimit {
		t.Errorf("limit = %d, want %d", q.limits[0], DefaultPostLimit)
	}
}

func TestListPosts_MissingPublishedAtRetriesUnsorted(t *testing.T) {
	q := &mockQuerier{queryFn: func(req notion.QueryRequest, call int) ([]notion.Page, error) {
		if len(req.Sorts) > 0 {
			return nil, missingProperty("sort", "PublishedAt")
		}
		return []notion.Page{titledPage("b", "Later"), titledPage("a", "Earlier")}, nil
	}}
	rec := &fallbackRecorder{}
	svc, _ := newTestService(q, rec)

	posts := svc.ListPosts(context.Background(), 10)
	if len(posts) != 2 {
		t.Fatalf("len(posts) = %d, want 2", len(posts))
	}
	if len(q.requests) != 2 {
		t.Fatalf("クエリ回数 = %d, want 2", len(q.requests))
	}
	second := q.requests[1]
	if second.Filter == nil || second.Filter.Property != "Published" || len(second.Sorts) != 0 {
		t.Errorf("second request = %+v, want filter only", second)
	}
	if len(rec.steps) != 1 || rec.steps[0] != "posts:unsorted" {
		t.Errorf("fallbacks = %v, want [posts:unsorted]", rec.steps)
	}
}

func TestListPosts_MissingPublishedRetriesUnfiltered(t *testing.T) {
	q := &mockQuerier{queryFn: func(req notion.QueryRequest, _ int) ([]notion.Page, error) {
		if req.Filter != nil {
			return nil, missingProperty("filter", "Published")
		}
		return []notion.Page{titledPage("a", "Draft")}, nil
	}}
	svc, _ := newTestService(q, nil)

	posts := svc.ListPosts(context.Background(), 10)
	if len(posts) != 1 {
		t.Fatalf("len(posts) = %d, want 1", len(posts))
	}
	if len(q.requests) != 2 {
		t.Fatalf("クエリ回数 = %d, want 2", len(q.requests))
	}
	if q.requests[1].Filter != nil || len(q.requests[1].Sorts) != 0 {
		t.Errorf("second request = %+v, want no filter and no sort", q.requests[1])
	}
}

func TestListPosts_BothPropertiesMissing(t *testing.T) {
	q := &mockQuerier{queryFn: func(req notion.QueryRequest, _ int) ([]notion.Page, error) {
		switch {
		case len(req.Sorts) > 0:
			return nil, missingProperty("sort", "PublishedAt")
		case req.Filter != nil:
			return nil, missingProperty("filter", "Published")
		}
		return []notion.Page{titledPage("a", "Only")}, nil
	}}
	svc, _ := newTestService(q, nil)

	if posts := svc.ListPosts(context.Background(), 10); len(posts) != 1 {
		t.Errorf("len(posts) = %d, want 1", len(posts))
	}
	if len(q.requests) != 3 {
		t.Errorf("クエリ回数 = %d, want 3", len(q.requests))
	}
}

func TestListPosts_GenericFailureReturnsEmpty(t *testing.T) {
	q := &mockQuerier{queryFn: func(notion.QueryRequest, int) ([]notion.Page, error) {
		return nil, errors.New("connection refused")
	}}
	svc, buf := newTestService(q, nil)

	posts := svc.ListPosts(context.Background(), 10)
	if posts == nil || len(posts) != 0 {
		t.Errorf("posts = %#v, want empty non-nil slice", posts)
	}
	if len(q.requests) != 1 {
		t.Errorf("クエリ回数 = %d, want 1 (no fallback on generic failure)", len(q.requests))
	}
	if !bytes.Contains(buf.Bytes(), []byte("コンテンツ一覧の取得に失敗")) {
		t.Errorf("log = %s, want failure entry", buf.String())
	}
}

func TestListPosts_UnconfiguredDatabase(t *testing.T) {
	q := &mockQuerier{queryFn: func(notion.QueryRequest, int) ([]notion.Page, error) {
		t.Error("QueryAll should not be called")
		return nil, nil
	}}
	svc := NewService(q, Databases{}, nil, nil, nil)

	if posts := svc.ListPosts(context.Background(), 10); len(posts) != 0 {
		t.Errorf("posts = %v, want empty", posts)
	}
	if items := svc.ListGallery(context.Background(), 10); len(items) != 0 {
		t.Errorf("gallery = %v, want empty", items)
	}
}
