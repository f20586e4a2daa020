package render

import (
	"html"
	"html/template"
	"strings"

	"github.com/hitoshi/portfolio/internal/notion"
	"github.com/hitoshi/portfolio/internal/recordmap"
)

// maxRenderDepth はブロックツリーを描画する最大の深さ。
const maxRenderDepth = 8

// Sanitizer はHTMLを許可リストでサニタイズする。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// BlockRewriter はメディアブロックのURLをプロキシURLに書き換える。
type BlockRewriter interface {
	BlockURL(blockID, rawURL string) string
	BlockProxyURL(blockID string) string
}

// blockWriter はレコードマップを辿ってHTMLを組み立てる。
type blockWriter struct {
	m        *recordmap.RecordMap
	rewriter BlockRewriter
	b        strings.Builder
	visited  map[string]bool
}

// BlocksHTML はページのブロックツリーをサーバー側でHTMLに変換し、サニタイズして返す。
// 見出し・段落・リスト・引用・コード・区切り線・画像・ブックマークを描画し、
// 未対応のブロックは読み飛ばす。
func (r *Renderer) BlocksHTML(m *recordmap.RecordMap, pageID string) template.HTML {
	page, ok := m.LookupBlock(pageID)
	if !ok {
		return ""
	}
	w := &blockWriter{m: m, rewriter: r.rewriter, visited: map[string]bool{notion.NormalizeID(pageID): true}}
	w.children(page.Content, 0)
	return template.HTML(r.sanitizer.Sanitize(w.b.String()))
}

func (w *blockWriter) children(ids []string, depth int) {
	if depth > maxRenderDepth {
		return
	}
	var listTag string
	closeList := func() {
		if listTag != "" {
			w.b.WriteString("</" + listTag + ">")
			listTag = ""
		}
	}

	for _, id := range ids {
		key := notion.NormalizeID(id)
		if w.visited[key] {
			continue
		}
		v, ok := w.m.LookupBlock(id)
		if !ok || !v.Alive {
			continue
		}
		w.visited[key] = true

		tag := listTagFor(v.Type)
		if tag != listTag {
			closeList()
			if tag != "" {
				w.b.WriteString("<" + tag + ">")
				listTag = tag
			}
		}
		w.block(v, depth)
	}
	closeList()
}

func listTagFor(blockType string) string {
	switch blockType {
	case "bulleted_list":
		return "ul"
	case "numbered_list":
		return "ol"
	}
	return ""
}

func (w *blockWriter) block(v recordmap.BlockValue, depth int) {
	title := w.text(v.Properties["title"])

	switch v.Type {
	case "text":
		w.b.WriteString("<p>" + title + "</p>")
	case "header":
		w.b.WriteString("<h2>" + title + "</h2>")
	case "sub_header":
		w.b.WriteString("<h3>" + title + "</h3>")
	case "sub_sub_header":
		w.b.WriteString("<h4>" + title + "</h4>")
	case "bulleted_list", "numbered_list":
		w.b.WriteString("<li>" + title)
		w.children(v.Content, depth+1)
		w.b.WriteString("</li>")
		return
	case "quote", "callout":
		w.b.WriteString("<blockquote>" + title + "</blockquote>")
	case "code":
		w.b.WriteString("<pre><code>" + html.EscapeString(plainText(v.Properties["title"])) + "</code></pre>")
	case "divider":
		w.b.WriteString("<hr>")
	case "to_do":
		mark := "☐"
		if plainText(v.Properties["checked"]) == "Yes" {
			mark = "☑"
		}
		w.b.WriteString("<p>" + mark + " " + title + "</p>")
	case "toggle":
		w.b.WriteString("<details><summary>" + title + "</summary>")
		w.children(v.Content, depth+1)
		w.b.WriteString("</details>")
		return
	case "image":
		w.image(v)
	case "bookmark", "embed", "video", "file", "pdf", "audio":
		w.link(v)
	}

	if len(v.Content) > 0 && v.Type != "page" {
		w.children(v.Content, depth+1)
	}
}

func (w *blockWriter) image(v recordmap.BlockValue) {
	src := displaySource(v)
	if src == "" {
		return
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		src = w.rewriter.BlockURL(v.ID, src)
	} else {
		src = w.rewriter.BlockProxyURL(v.ID)
	}
	caption := w.text(v.Properties["caption"])
	alt := html.EscapeString(plainText(v.Properties["caption"]))

	w.b.WriteString(`<figure><img src="` + html.EscapeString(src) + `" alt="` + alt + `">`)
	if caption != "" {
		w.b.WriteString("<figcaption>" + caption + "</figcaption>")
	}
	w.b.WriteString("</figure>")
}

func (w *blockWriter) link(v recordmap.BlockValue) {
	href := displaySource(v)
	if href == "" {
		href = plainText(v.Properties["link"])
	}
	if href == "" {
		return
	}
	if v.Type != "bookmark" && v.Type != "embed" {
		href = w.rewriter.BlockURL(v.ID, href)
	}
	label := w.text(v.Properties["caption"])
	if label == "" {
		label = html.EscapeString(href)
	}
	w.b.WriteString(`<p><a href="` + html.EscapeString(href) + `">` + label + `</a></p>`)
}

func displaySource(v recordmap.BlockValue) string {
	if s, ok := v.Format["display_source"].(string); ok && s != "" {
		return s
	}
	return plainText(v.Properties["source"])
}

// text は装飾付きテキスト（[[text, [[mark], ...]], ...]）をHTMLに変換する。
func (w *blockWriter) text(value any) string {
	var b strings.Builder
	for _, seg := range segments(value) {
		if len(seg) == 0 {
			continue
		}
		s, _ := seg[0].(string)
		out := html.EscapeString(s)
		if len(seg) > 1 {
			out = decorate(out, seg[1])
		}
		b.WriteString(out)
	}
	return b.String()
}

func decorate(s string, marks any) string {
	list, ok := marks.([]any)
	if !ok {
		return s
	}
	for _, m := range list {
		mark, ok := m.([]any)
		if !ok || len(mark) == 0 {
			continue
		}
		name, _ := mark[0].(string)
		switch name {
		case "b":
			s = "<strong>" + s + "</strong>"
		case "i":
			s = "<em>" + s + "</em>"
		case "s":
			s = "<del>" + s + "</del>"
		case "_":
			s = "<u>" + s + "</u>"
		case "c":
			s = "<code>" + s + "</code>"
		case "a":
			if len(mark) > 1 {
				if href, ok := mark[1].(string); ok {
					s = `<a href="` + html.EscapeString(href) + `">` + s + "</a>"
				}
			}
		}
	}
	return s
}

// plainText は装飾を無視してテキストを連結する。
func plainText(value any) string {
	var b strings.Builder
	for _, seg := range segments(value) {
		if len(seg) > 0 {
			if s, ok := seg[0].(string); ok {
				b.WriteString(s)
			}
		}
	}
	return b.String()
}

// segments はプロパティ値を[]([]any)に揃える。
// JSONから復元した値（[]any）と組み立て直後の値（[][]any）のどちらも受け付ける。
func segments(value any) [][]any {
	switch v := value.(type) {
	case [][]any:
		return v
	case []any:
		out := make([][]any, 0, len(v))
		for _, item := range v {
			if seg, ok := item.([]any); ok {
				out = append(out, seg)
			}
		}
		return out
	}
	return nil
}
