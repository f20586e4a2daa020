package media

import "net/url"

// DefaultProxyPath は画像プロキシエンドポイントのパス。
const DefaultProxyPath = "/api/image"

// Rewriter は期限付きURLをプロキシエンドポイントのURLに書き換える。
// 書き換え後のURLは元のURLを含まず、(ページID, プロパティ名)またはブロックIDのみで構成される。
type Rewriter struct {
	proxyPath string
}

// NewRewriter はRewriterの新しいインスタンスを生成する。
// proxyPathが空の場合はDefaultProxyPathを使う。
func NewRewriter(proxyPath string) *Rewriter {
	if proxyPath == "" {
		proxyPath = DefaultProxyPath
	}
	return &Rewriter{proxyPath: proxyPath}
}

// PropertyURL はページプロパティ（またはページカバー）のファイルURLを書き換える。
func (r *Rewriter) PropertyURL(pageID, property, rawURL string) string {
	if !IsTransient(rawURL) || pageID == "" || property == "" {
		return rawURL
	}
	q := url.Values{}
	q.Set("pageId", pageID)
	q.Set("prop", property)
	return r.proxyPath + "?" + q.Encode()
}

// BlockURL はメディアブロックのファイルURLを書き換える。
func (r *Rewriter) BlockURL(blockID, rawURL string) string {
	if !IsTransient(rawURL) || blockID == "" {
		return rawURL
	}
	return r.BlockProxyURL(blockID)
}

// BlockProxyURL は期限の有無にかかわらずブロックのプロキシURLを返す。
// 直接取得できない形式（attachment:等）のメディアに使う。
func (r *Rewriter) BlockProxyURL(blockID string) string {
	q := url.Values{}
	q.Set("blockId", blockID)
	return r.proxyPath + "?" + q.Encode()
}
