package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// Forgetter はプロセス内のメモを破棄できるコンポーネント。
type Forgetter interface {
	Forget()
}

// Revalidator はパス単位で描画キャッシュを無効化する。
type Revalidator struct {
	store      Store
	logger     *slog.Logger
	forgetters []Forgetter
}

// NewRevalidator はRevalidatorの新しいインスタンスを生成する。
// forgettersは再検証のたびにメモを破棄する。
func NewRevalidator(store Store, logger *slog.Logger, forgetters ...Forgetter) *Revalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Revalidator{store: store, logger: logger, forgetters: forgetters}
}

// Revalidate は指定パスのキャッシュを削除し、正規化したパスの一覧を返す。
func (v *Revalidator) Revalidate(ctx context.Context, paths ...string) ([]string, error) {
	seen := make(map[string]bool, len(paths))
	normalized := make([]string, 0, len(paths))
	keys := make([]string, 0, len(paths))
	for _, p := range paths {
		n := NormalizePath(p)
		if seen[n] {
			continue
		}
		seen[n] = true
		normalized = append(normalized, n)
		keys = append(keys, Key(n))
	}

	if err := v.store.Delete(ctx, keys...); err != nil {
		return nil, fmt.Errorf("invalidate render cache: %w", err)
	}
	for _, f := range v.forgetters {
		f.Forget()
	}

	v.logger.Info("キャッシュを再検証しました", slog.Any("paths", normalized))
	return normalized, nil
}
