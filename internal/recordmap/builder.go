package recordmap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/portfolio/internal/notion"
)

// maxDepth は子ブロックをたどる最大の深さ。
const maxDepth = 8

// PageSource は公開APIによる再構築に使うインターフェース。
type PageSource interface {
	RetrievePage(ctx context.Context, pageID string) (*notion.Page, error)
	ListAllBlockChildren(ctx context.Context, blockID string) ([]notion.Block, error)
}

// MediaRewriter は再構築したレコードマップに埋め込むメディアURLを書き換える。
type MediaRewriter interface {
	BlockURL(blockID, rawURL string) string
	PropertyURL(pageID, property, rawURL string) string
}

// identityRewriter はURLをそのまま返すMediaRewriter。
type identityRewriter struct{}

func (identityRewriter) BlockURL(_, rawURL string) string { return rawURL }
func (identityRewriter) PropertyURL(_, _, rawURL string) string { return rawURL }

// BuildObserver はどの経路でレコードマップを組み立てたかを観測する。
type BuildObserver interface {
	ObserveRecordMapBuild(path string)
}

// Builder はページのレコードマップを組み立てる。
// 主経路が失敗した場合は公開APIのページ・ブロックから再構築する。
type Builder struct {
	primary  Source
	api      PageSource
	rewriter MediaRewriter
	logger   *slog.Logger
	observer BuildObserver
}

// NewBuilder はBuilderの新しいインスタンスを生成する。primaryがnilの場合は常に再構築する。
// rewriterがnilの場合、再構築したメディアURLは書き換えない。
func NewBuilder(primary Source, api PageSource, rewriter MediaRewriter, logger *slog.Logger, observer BuildObserver) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if rewriter == nil {
		rewriter = identityRewriter{}
	}
	return &Builder{
		primary:  primary,
		api:      api,
		rewriter: rewriter,
		logger:   logger,
		observer: observer,
	}
}

// Build はページのレコードマップを返す。
// 再構築経路の取得に失敗した場合はエラーを返し、部分的なツリーは返さない。
func (b *Builder) Build(ctx context.Context, pageID string) (*RecordMap, error) {
	if b.primary != nil {
		m, err := b.primary.Load(ctx, pageID)
		if err == nil {
			b.observe("primary")
			return m, nil
		}
		b.logger.Warn("レコードマップの取得に失敗したため公開APIから再構築します",
			slog.String("page_id", pageID),
			slog.String("error", err.Error()),
		)
	}

	m, err := b.rebuild(ctx, pageID)
	if err != nil {
		b.observe("failed")
		return nil, err
	}
	b.observe("fallback")
	return m, nil
}

// rebuild は公開APIからページとブロックツリーを取得してレコードマップを組み立てる。
func (b *Builder) rebuild(ctx context.Context, pageID string) (*RecordMap, error) {
	page, err := b.api.RetrievePage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("retrieve page %s: %w", pageID, err)
	}
	pageKey := notion.NormalizeID(page.ID)
	if page.ID == "" {
		pageKey = notion.NormalizeID(pageID)
	}

	m := New()
	children, err := b.collect(ctx, m, pageKey, "block", 0)
	if err != nil {
		return nil, err
	}

	pageValue := pageBlockValue(page, pageKey, b.rewriter)
	if len(pageValue.Content) == 0 {
		pageValue.Content = children
	}
	if err := m.PutBlock(pageValue); err != nil {
		return nil, err
	}
	return m, nil
}

// collect はparentIDの子ブロックを取得してmに登録し、子のIDを順序どおり返す。
// has_childrenのブロックは再帰的にたどる。
func (b *Builder) collect(ctx context.Context, m *RecordMap, parentID, parentTable string, depth int) ([]string, error) {
	blocks, err := b.api.ListAllBlockChildren(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", parentID, err)
	}

	ids := make([]string, 0, len(blocks))
	for i := range blocks {
		block := &blocks[i]
		id := notion.NormalizeID(block.ID)
		value := convertBlock(block, parentID, parentTable, b.rewriter)

		if block.HasChildren && block.Type != "child_page" && block.Type != "child_database" {
			if depth >= maxDepth {
				b.logger.Warn("ブロックの階層が深すぎるため子ブロックを省略します",
					slog.String("block_id", id),
					slog.String("parent_id", parentID),
					slog.Int("max_depth", maxDepth),
				)
			} else {
				nested, err := b.collect(ctx, m, id, "block", depth+1)
				if err != nil {
					return nil, err
				}
				value.Content = nested
			}
		}

		if err := m.PutBlock(value); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (b *Builder) observe(path string) {
	if b.observer != nil {
		b.observer.ObserveRecordMapBuild(path)
	}
}
