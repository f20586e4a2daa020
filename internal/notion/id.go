package notion

import (
	"strings"

	"github.com/google/uuid"
)

// NormalizeID はページ・ブロックIDを8-4-4-4-12形式の小文字ハイフン区切りに正規化する。
// ハイフンあり・なしのどちらの入力も受け付ける。
// UUIDとして解釈できない値はそのまま返す。
func NormalizeID(id string) string {
	trimmed := strings.TrimSpace(id)
	parsed, err := uuid.Parse(trimmed)
	if err != nil {
		return id
	}
	return parsed.String()
}

// CompactID はIDをハイフンなしの32桁16進数表記に変換する。
func CompactID(id string) string {
	normalized := NormalizeID(id)
	if _, err := uuid.Parse(normalized); err != nil {
		return id
	}
	return strings.ReplaceAll(normalized, "-", "")
}

// SameID は表記揺れ（ハイフン・大文字小文字）を無視して2つのIDが同一かを判定する。
func SameID(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(CompactID(a), CompactID(b))
}
