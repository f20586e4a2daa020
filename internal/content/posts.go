package content

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/portfolio/internal/mapper"
	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/notion"
)

// 記事一覧クエリの段階
const (
	postsFull = iota
	postsFilterOnly
	postsUnfiltered
)

// ListPosts は公開済みの記事を公開日の新しい順に返す。
// PublishedAtがスキーマにない場合は並べ替えなしで、Publishedもない場合は全件を返す。
// それ以外の失敗では空一覧を返す。
func (s *Service) ListPosts(ctx context.Context, limit int) []model.Post {
	if s.dbs.Posts == "" {
		return []model.Post{}
	}
	if limit <= 0 {
		limit = DefaultPostLimit
	}

	published := notion.CheckboxEquals(propPublished, true)
	attempts := []attempt{
		postsFull: {step: "full", req: notion.QueryRequest{
			Filter: published,
			Sorts:  []notion.Sort{{Property: propPublishedAt, Direction: notion.SortDescending}},
		}},
		postsFilterOnly: {step: "unsorted", req: notion.QueryRequest{Filter: published}},
		postsUnfiltered: {step: "unfiltered", req: notion.QueryRequest{}},
	}

	pages, err := s.queryWithFallback(ctx, collectionPosts, s.dbs.Posts, limit, attempts, func(err error, step int) (int, bool) {
		// PublishedAtの判定を先に行う（メッセージに"Published"の部分文字列が含まれるため）
		if step == postsFull && notion.MissingProperty(err, propPublishedAt) {
			return postsFilterOnly, true
		}
		if notion.MissingProperty(err, propPublished) {
			return postsUnfiltered, true
		}
		return 0, false
	})
	if err != nil {
		s.logListFailure(collectionPosts, err)
		return []model.Post{}
	}

	posts := make([]model.Post, 0, len(pages))
	for i := range pages {
		posts = append(posts, mapper.MapPost(&pages[i], s.rewriter))
	}
	return posts
}

// GetPostBySlug はSlugが一致する記事を返す。見つからない場合は(nil, nil)。
// Slugプロパティがスキーマにない場合は最大100行を取得し、Slug / slugプロパティ、
// またはハイフンを除いたページIDと照合する。
// 取得の失敗はエラーとして返す。
func (s *Service) GetPostBySlug(ctx context.Context, slug string) (*model.Post, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, nil
	}
	if s.dbs.Posts == "" {
		return nil, notion.ErrNotConfigured
	}

	pages, err := s.querier.QueryAll(ctx, s.dbs.Posts, notion.QueryRequest{
		Filter: notion.RichTextEquals(propSlug, slug),
	}, 1)
	if err == nil {
		if len(pages) == 0 {
			return nil, nil
		}
		post := mapper.MapPost(&pages[0], s.rewriter)
		return &post, nil
	}
	if !notion.MissingProperty(err, propSlug) {
		return nil, fmt.Errorf("query post by slug: %w", err)
	}

	s.logger.Warn("slugプロパティがないため取得した行から照合します",
		slog.String("slug", slug),
		slog.String("error", err.Error()),
	)
	s.observeFallback(collectionPosts, "client_match")

	pages, err = s.querier.QueryAll(ctx, s.dbs.Posts, notion.QueryRequest{}, slugScanLimit)
	if err != nil {
		return nil, fmt.Errorf("scan posts for slug: %w", err)
	}
	for i := range pages {
		if matchesSlug(&pages[i], slug) {
			post := mapper.MapPost(&pages[i], s.rewriter)
			return &post, nil
		}
	}
	return nil, nil
}

// matchesSlug はページがslugに一致するかを判定する。
func matchesSlug(page *notion.Page, slug string) bool {
	for _, key := range []string{"Slug", "slug"} {
		if p, ok := page.Properties[key]; ok {
			if v, ok := mapper.Text(p); ok && v == slug {
				return true
			}
		}
	}
	if page.ID == "" {
		return false
	}
	compact := strings.ReplaceAll(page.ID, "-", "")
	return slug == compact || slug == page.ID || notion.SameID(slug, page.ID)
}
