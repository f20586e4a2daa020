package mapper

import (
	"strconv"
	"strings"

	"github.com/hitoshi/portfolio/internal/notion"
)

// Text はrich_textまたはtitle型のプロパティから最初のランのプレーンテキストを返す。
// 空、欠落、無関係な型の場合はfalse。
func Text(p notion.Property) (string, bool) {
	var runs []notion.RichText
	switch p.Type {
	case notion.PropertyTypeRichText:
		runs = p.RichText
	case notion.PropertyTypeTitle:
		runs = p.Title
	default:
		return "", false
	}
	if len(runs) == 0 {
		return "", false
	}
	text := runs[0].Plain()
	if text == "" {
		return "", false
	}
	return text, true
}

// FileURL はfiles型のプロパティから最初の添付ファイルのURLを返す。
// externalはそのままのURL、fileはホストされた署名付きURLを返す。
func FileURL(p notion.Property) (string, bool) {
	if p.Type != notion.PropertyTypeFiles || len(p.Files) == 0 {
		return "", false
	}
	u := p.Files[0].URL()
	if u == "" {
		return "", false
	}
	return u, true
}

// URL はURL型のプロパティ、型タグのないurlペイロード、
// またはhttp(s)で始まるテキストプロパティの順でURLを取り出す。
func URL(p notion.Property) (string, bool) {
	if p.URL != nil {
		if u := strings.TrimSpace(*p.URL); u != "" {
			return u, true
		}
	}
	text, ok := Text(p)
	if !ok {
		return "", false
	}
	text = strings.TrimSpace(text)
	if hasHTTPScheme(text) {
		return text, true
	}
	return "", false
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Tags はmulti_select型のプロパティから選択肢名を順序どおり返す。
// 欠落や別の型の場合は空スライス。
func Tags(p notion.Property) []string {
	tags := []string{}
	if p.Type != notion.PropertyTypeMultiSelect {
		return tags
	}
	for _, opt := range p.MultiSelect {
		if opt.Name != "" {
			tags = append(tags, opt.Name)
		}
	}
	return tags
}

// Date はdate型のプロパティの開始日、またはcreated_time型の値を返す。
// どちらもなくpageが指定されている場合はページの作成日時を返す。
func Date(p notion.Property, page *notion.Page) (string, bool) {
	switch p.Type {
	case notion.PropertyTypeDate:
		if p.Date != nil && p.Date.Start != "" {
			return p.Date.Start, true
		}
	case notion.PropertyTypeCreatedTime:
		if p.CreatedTime != "" {
			return p.CreatedTime, true
		}
	}
	if page != nil && page.CreatedTime != "" {
		return page.CreatedTime, true
	}
	return "", false
}

// Select はselect型の選択肢名を返す。テキスト型の場合はその値を返す。
func Select(p notion.Property) (string, bool) {
	if p.Type == notion.PropertyTypeSelect {
		if p.Select != nil && p.Select.Name != "" {
			return p.Select.Name, true
		}
		return "", false
	}
	if p.Type == notion.PropertyTypeMultiSelect && len(p.MultiSelect) > 0 {
		return p.MultiSelect[0].Name, p.MultiSelect[0].Name != ""
	}
	return Text(p)
}

// Number はnumber型の値を返す。テキスト型の場合は数値として解釈できれば返す。
func Number(p notion.Property) (float64, bool) {
	if p.Type == notion.PropertyTypeNumber {
		if p.Number != nil {
			return *p.Number, true
		}
		return 0, false
	}
	text, ok := Text(p)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// textOf は候補名でプロパティを探し、テキストを返す。
func textOf(props map[string]notion.Property, candidates ...string) string {
	if p, ok := Locate(props, candidates...); ok {
		if s, ok := Text(p); ok {
			return s
		}
	}
	return ""
}

// urlOf は候補名を順に試し、URLとして解釈できる最初の値を返す。
// 名前は一致したが値が空の候補は飛ばして次の候補を試す。
func urlOf(props map[string]notion.Property, candidates ...string) string {
	for _, c := range candidates {
		if p, ok := Locate(props, c); ok {
			if u, ok := URL(p); ok {
				return u
			}
		}
	}
	return ""
}

// tagsOf は候補名でmulti_selectプロパティを探し、選択肢名を返す。
func tagsOf(props map[string]notion.Property, candidates ...string) []string {
	for _, c := range candidates {
		if p, ok := Locate(props, c); ok && p.Type == notion.PropertyTypeMultiSelect {
			return Tags(p)
		}
	}
	return []string{}
}

// dateOf は候補名でdate / created_timeプロパティを探す。ページの作成日時は使わない。
func dateOf(props map[string]notion.Property, candidates ...string) string {
	for _, c := range candidates {
		if p, ok := Locate(props, c); ok {
			if d, ok := Date(p, nil); ok {
				return d
			}
		}
	}
	return ""
}

// dateOrCreated は候補名で日付を探し、見つからない場合はcreated_time型の
// プロパティ、最後にページ自体の作成日時を返す。
func dateOrCreated(page *notion.Page, candidates ...string) string {
	if d := dateOf(page.Properties, candidates...); d != "" {
		return d
	}
	for _, key := range sortedKeys(page.Properties) {
		if d, ok := Date(page.Properties[key], nil); ok && page.Properties[key].Type == notion.PropertyTypeCreatedTime {
			return d
		}
	}
	d, _ := Date(notion.Property{}, page)
	return d
}
