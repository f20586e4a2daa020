package content

import (
	"context"

	"github.com/hitoshi/portfolio/internal/mapper"
	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/notion"
)

// sortedOrUnsorted は並べ替え付きクエリを試し、スキーマ不一致の場合は並べ替えなしで再試行する。
func (s *Service) sortedOrUnsorted(ctx context.Context, collection, databaseID string, limit int, sort notion.Sort) ([]notion.Page, bool) {
	if databaseID == "" {
		return nil, false
	}
	if limit <= 0 {
		limit = DefaultCollectionLimit
	}

	attempts := []attempt{
		{step: "full", req: notion.QueryRequest{Sorts: []notion.Sort{sort}}},
		{step: "unsorted", req: notion.QueryRequest{}},
	}
	pages, err := s.queryWithFallback(ctx, collection, databaseID, limit, attempts, func(err error, step int) (int, bool) {
		if step == 0 && notion.Classify(err) == notion.OutcomeSchemaMismatch {
			return 1, true
		}
		return 0, false
	})
	if err != nil {
		s.logListFailure(collection, err)
		return nil, false
	}
	return pages, true
}

// ListGallery はギャラリーを日付の新しい順に返す。画像のない行は除く。
func (s *Service) ListGallery(ctx context.Context, limit int) []model.GalleryItem {
	pages, ok := s.sortedOrUnsorted(ctx, collectionGallery, s.dbs.Gallery, limit,
		notion.Sort{Property: propDate, Direction: notion.SortDescending})
	if !ok {
		return []model.GalleryItem{}
	}

	items := make([]model.GalleryItem, 0, len(pages))
	for i := range pages {
		item := mapper.MapGalleryItem(&pages[i], s.rewriter)
		if item.Image == "" {
			continue
		}
		items = append(items, item)
	}
	return mapper.SortByDateDesc(items)
}

// ListForFriends はおすすめリストを日付の新しい順に返す。
func (s *Service) ListForFriends(ctx context.Context, limit int) []model.ForFriendsItem {
	pages, ok := s.sortedOrUnsorted(ctx, collectionForFriends, s.dbs.ForFriends, limit,
		notion.Sort{Property: propDate, Direction: notion.SortDescending})
	if !ok {
		return []model.ForFriendsItem{}
	}

	items := make([]model.ForFriendsItem, 0, len(pages))
	for i := range pages {
		items = append(items, mapper.MapForFriendsItem(&pages[i], s.rewriter))
	}
	return items
}

// ListProjects はプロジェクトを表示順に返す。
func (s *Service) ListProjects(ctx context.Context, limit int) []model.Project {
	pages, ok := s.sortedOrUnsorted(ctx, collectionProjects, s.dbs.Projects, limit,
		notion.Sort{Property: propOrder, Direction: notion.SortAscending})
	if !ok {
		return []model.Project{}
	}

	projects := make([]model.Project, 0, len(pages))
	for i := range pages {
		projects = append(projects, mapper.MapProject(&pages[i], s.rewriter))
	}
	return mapper.SortProjects(projects)
}
