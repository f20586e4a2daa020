// Package mapper はCMSページのプロパティを安定した内部レコードに変換する純粋関数群を提供する。
//
// CMSのスキーマは利用者が編集するため、同じ論理フィールドが欠落・改名・別の型に
// なっていることがある。ここでの関数はいずれも「見つからない」を通常の結果として扱い、
// 入力の形が想定と異なってもpanicしない。
package mapper

import (
	"strings"
	"unicode"

	"github.com/hitoshi/portfolio/internal/notion"
)

// Locate は候補名を順に試し、最初に一致したプロパティを返す。
// 候補ごとに、完全一致、大文字小文字を無視した一致、空白と大文字小文字を無視した一致の順で照合する。
// 先の候補は後の候補より常に優先される。
func Locate(props map[string]notion.Property, candidates ...string) (notion.Property, bool) {
	_, p, ok := LocateKey(props, candidates...)
	return p, ok
}

// LocateKey はLocateと同じ規則で照合し、実際に一致したプロパティ名も返す。
func LocateKey(props map[string]notion.Property, candidates ...string) (string, notion.Property, bool) {
	if len(props) == 0 {
		return "", notion.Property{}, false
	}
	for _, candidate := range candidates {
		if key, ok := matchKey(props, candidate); ok {
			return key, props[key], true
		}
	}
	return "", notion.Property{}, false
}

// matchKey は1つの候補名に対して3段階の照合を行う。
// 同じ段階で複数のキーが一致した場合は辞書順で最初のキーを選び、結果を決定的にする。
func matchKey(props map[string]notion.Property, candidate string) (string, bool) {
	if _, ok := props[candidate]; ok {
		return candidate, true
	}

	folded := strings.ToLower(candidate)
	if key, ok := firstMatch(props, func(k string) bool { return strings.ToLower(k) == folded }); ok {
		return key, true
	}

	squashed := squash(candidate)
	if squashed == "" {
		return "", false
	}
	return firstMatch(props, func(k string) bool { return squash(k) == squashed })
}

func firstMatch(props map[string]notion.Property, match func(string) bool) (string, bool) {
	best := ""
	found := false
	for k := range props {
		if !match(k) {
			continue
		}
		if !found || k < best {
			best = k
			found = true
		}
	}
	return best, found
}

// squash は空白を取り除き小文字化する。
func squash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
