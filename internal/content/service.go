// Package content はCMSデータベースから記事・ギャラリー・おすすめ・プロジェクトを取得する。
//
// 取得はスキーマ不一致に対して段階的に縮退する。名前付きプロパティが存在しないと
// バックエンドが報告した場合はより単純なクエリで再試行し、それ以外の失敗では
// 一覧を空として扱う。ページ全体の描画が任意のセクションの失敗で止まらないようにするため。
package content

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hitoshi/portfolio/internal/mapper"
	"github.com/hitoshi/portfolio/internal/notion"
)

const (
	// DefaultPostLimit は記事一覧の既定の取得件数。
	DefaultPostLimit = 50
	// DefaultCollectionLimit はギャラリー等の既定の取得件数。
	DefaultCollectionLimit = 100
	// slugScanLimit はSlugプロパティがない場合にクライアント側で照合する最大行数。
	slugScanLimit = 100
)

// プロパティ名
const (
	propPublished   = "Published"
	propPublishedAt = "PublishedAt"
	propSlug        = "Slug"
	propDate        = "Date"
	propOrder       = "Order"
)

// コレクション名（ログとメトリクスのラベル）
const (
	collectionPosts      = "posts"
	collectionGallery    = "gallery"
	collectionForFriends = "for_friends"
	collectionProjects   = "projects"
)

// Querier はデータベースクエリのインターフェース。
type Querier interface {
	QueryAll(ctx context.Context, databaseID string, req notion.QueryRequest, limit int) ([]notion.Page, error)
}

// FallbackObserver はスキーマ不一致による縮退を観測する。
type FallbackObserver interface {
	ObserveSchemaFallback(collection, step string)
}

// Databases はコレクションごとのデータベースID。空のコレクションは常に空一覧を返す。
type Databases struct {
	Posts      string
	Gallery    string
	ForFriends string
	Projects   string
}

// Service はコンテンツ取得のドメインロジック。
type Service struct {
	querier  Querier
	dbs      Databases
	rewriter mapper.MediaRewriter
	logger   *slog.Logger
	observer FallbackObserver
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(querier Querier, dbs Databases, rewriter mapper.MediaRewriter, logger *slog.Logger, observer FallbackObserver) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		querier:  querier,
		dbs:      dbs,
		rewriter: rewriter,
		logger:   logger,
		observer: observer,
	}
}

// attempt はクエリの1段階。
type attempt struct {
	step string
	req  notion.QueryRequest
}

// queryWithFallback はattemptsを順に試す。
// 失敗がretryableと判定された場合のみ次の段階に進み、それ以外の失敗はそのまま返す。
func (s *Service) queryWithFallback(ctx context.Context, collection, databaseID string, limit int, attempts []attempt, retryable func(err error, step int) (next int, ok bool)) ([]notion.Page, error) {
	i := 0
	for {
		pages, err := s.querier.QueryAll(ctx, databaseID, attempts[i].req, limit)
		if err == nil {
			return pages, nil
		}
		next, ok := retryable(err, i)
		if !ok || next <= i || next >= len(attempts) {
			return nil, err
		}

		s.logger.Warn("スキーマが一致しないため条件を減らして再試行します",
			slog.String("collection", collection),
			slog.String("fallback", attempts[next].step),
			slog.String("error", err.Error()),
		)
		s.observeFallback(collection, attempts[next].step)
		i = next
	}
}

// logListFailure は一覧取得の失敗を記録する。未設定のデータベースは記録しない。
func (s *Service) logListFailure(collection string, err error) {
	if errors.Is(err, notion.ErrNotConfigured) {
		return
	}
	s.logger.Error("コンテンツ一覧の取得に失敗したため空のセクションを表示します",
		slog.String("collection", collection),
		slog.String("outcome", notion.Classify(err).String()),
		slog.String("error", err.Error()),
	)
	s.observeFallback(collection, "empty")
}

func (s *Service) observeFallback(collection, step string) {
	if s.observer != nil {
		s.observer.ObserveSchemaFallback(collection, step)
	}
}
