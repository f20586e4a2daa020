// Package security は外部由来のコンテンツと取得先URLを安全に扱うための機能を提供する。
//
// ContentSanitizer は記事本文のブロックから組み立てたHTMLを許可リストでサニタイズする。
// SSRFGuard は画像プロキシの取得先を検証する。
package security

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer は記事本文のHTMLをサニタイズする。
// 生成したポリシーは並行に使用できる。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
// proxyPathは本文の画像が参照する画像プロキシのパスで、相対URLとして許可する。
func NewContentSanitizer(proxyPath string) *ContentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements(
		"p", "br", "hr",
		"h2", "h3", "h4",
		"ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em", "del", "u",
		"figure", "figcaption",
		"details", "summary",
	)

	// 外部リンクは新しいタブで開く
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("https", "http", "mailto")
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)

	// 画像はhttpsか画像プロキシのみ
	p.AllowAttrs("alt").OnElements("img")
	p.AllowAttrs("src").Matching(imageSrcPattern(proxyPath)).OnElements("img")
	p.AllowRelativeURLs(true)

	return &ContentSanitizer{policy: p}
}

// Sanitize はHTMLをサニタイズする。空文字列には空文字列を返す。
func (s *ContentSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.policy.Sanitize(rawHTML)
}

// imageSrcPattern はimgのsrcとして許可する値の正規表現を返す。
func imageSrcPattern(proxyPath string) *regexp.Regexp {
	if proxyPath == "" {
		return regexp.MustCompile(`^https://`)
	}
	return regexp.MustCompile(`^(https://|` + regexp.QuoteMeta(proxyPath) + `(\?|$))`)
}
