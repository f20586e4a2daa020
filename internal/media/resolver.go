package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/portfolio/internal/mapper"
	"github.com/hitoshi/portfolio/internal/notion"
)

// ErrNotFound は解決可能なメディアURLが存在しないことを示す。
var ErrNotFound = errors.New("media not found")

// expiryMargin は署名付きURLの有効期限に対する安全余裕。
// 期限直前のURLを返してプロキシ取得中に失効しないようにする。
const expiryMargin = 30 * time.Second

const coverProperty = "Cover"

// Retriever はメディアURLの再解決に使うCMS APIのインターフェース。
type Retriever interface {
	RetrievePage(ctx context.Context, pageID string) (*notion.Page, error)
	RetrieveBlock(ctx context.Context, blockID string) (*notion.Block, error)
}

// ResolveObserver は解決結果を観測する。
type ResolveObserver interface {
	ObserveMediaResolve(result string)
}

// resolved はメモ化された解決結果。
type resolved struct {
	url       string
	expiresAt time.Time
}

// Resolver はページプロパティ・ブロックから現在有効なメディアURLを再解決する。
// 解決結果はttlの間メモ化し、URL自体の有効期限を超えては保持しない。
// 同じ対象への同時要求は1回のAPI呼び出しにまとめる。
type Resolver struct {
	source   Retriever
	logger   *slog.Logger
	observer ResolveObserver
	ttl      time.Duration
	now      func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	memo  map[string]resolved
}

// NewResolver はResolverの新しいインスタンスを生成する。ttlが0以下の場合はメモ化しない。
func NewResolver(source Retriever, ttl time.Duration, logger *slog.Logger, observer ResolveObserver) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		source:   source,
		logger:   logger,
		observer: observer,
		ttl:      ttl,
		now:      time.Now,
		memo:     make(map[string]resolved),
	}
}

// ResolvePageProperty はページを再取得し、指定プロパティのファイルURLを返す。
// 予約名"Cover"は、同名のfilesプロパティにファイルがない場合にページカバーを使う。
func (r *Resolver) ResolvePageProperty(ctx context.Context, pageID, property string) (string, error) {
	key := "page:" + notion.NormalizeID(pageID) + ":" + property
	return r.resolve(ctx, key, func(ctx context.Context) (string, string, error) {
		page, err := r.source.RetrievePage(ctx, pageID)
		if err != nil {
			return "", "", err
		}
		return pagePropertyURL(page, property)
	})
}

// ResolveBlock はブロックを再取得し、メディアURLを返す。
func (r *Resolver) ResolveBlock(ctx context.Context, blockID string) (string, error) {
	key := "block:" + notion.NormalizeID(blockID)
	return r.resolve(ctx, key, func(ctx context.Context) (string, string, error) {
		block, err := r.source.RetrieveBlock(ctx, blockID)
		if err != nil {
			return "", "", err
		}
		u := block.MediaURL()
		if u == "" {
			return "", "", ErrNotFound
		}
		return u, block.Content.FileObject.Expiry(), nil
	})
}

// Forget はメモ化された解決結果をすべて破棄する。
func (r *Resolver) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo = make(map[string]resolved)
}

func (r *Resolver) resolve(ctx context.Context, key string, fetch func(context.Context) (string, string, error)) (string, error) {
	if u, ok := r.lookup(key); ok {
		r.observe("memo_hit")
		return u, nil
	}

	// 共有する取得は呼び出し元のキャンセルから切り離し、待機は各自のctxで打ち切る。
	ch := r.group.DoChan(key, func() (any, error) {
		u, expiry, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		r.store(key, u, expiry)
		return u, nil
	})
	var (
		v   any
		err error
	)
	select {
	case <-ctx.Done():
		r.observe("error")
		return "", fmt.Errorf("resolve media %s: %w", key, ctx.Err())
	case res := <-ch:
		v, err = res.Val, res.Err
	}
	if err != nil {
		if notion.Classify(err) == notion.OutcomeNotFound {
			r.observe("not_found")
			return "", fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		if errors.Is(err, ErrNotFound) {
			r.observe("not_found")
			return "", err
		}
		r.observe("error")
		return "", fmt.Errorf("resolve media %s: %w", key, err)
	}
	r.observe("resolved")
	return v.(string), nil
}

func (r *Resolver) lookup(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.memo[key]
	if !ok {
		return "", false
	}
	if !r.now().Before(entry.expiresAt) {
		delete(r.memo, key)
		return "", false
	}
	return entry.url, true
}

func (r *Resolver) store(key, u, expiry string) {
	if r.ttl <= 0 {
		return
	}
	now := r.now()
	expiresAt := now.Add(r.ttl)
	if expiry != "" {
		if t, err := time.Parse(time.RFC3339, expiry); err == nil {
			if limit := t.Add(-expiryMargin); limit.Before(expiresAt) {
				expiresAt = limit
			}
		} else {
			r.logger.Debug("メディアの有効期限を解釈できません", slog.String("expiry", expiry))
		}
	}
	if !now.Before(expiresAt) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.memo[key] = resolved{url: u, expiresAt: expiresAt}
}

func (r *Resolver) observe(result string) {
	if r.observer != nil {
		r.observer.ObserveMediaResolve(result)
	}
}

// pagePropertyURL はページから指定プロパティのファイルURLと有効期限を取り出す。
func pagePropertyURL(page *notion.Page, property string) (string, string, error) {
	if p, ok := mapper.Locate(page.Properties, property); ok && p.Type == notion.PropertyTypeFiles && len(p.Files) > 0 {
		if u := p.Files[0].URL(); u != "" {
			return u, p.Files[0].Expiry(), nil
		}
	}
	if strings.EqualFold(property, coverProperty) && page.Cover != nil {
		if u := page.Cover.URL(); u != "" {
			return u, page.Cover.Expiry(), nil
		}
	}
	return "", "", ErrNotFound
}
