package recordmap

import (
	"time"

	"github.com/hitoshi/portfolio/internal/notion"
)

// blockTypeNames は公開APIのブロック種別からレコードマップのブロック種別への対応。
// 表にない種別はそのままの名前を使う。
var blockTypeNames = map[string]string{
	"paragraph":          "text",
	"heading_1":          "header",
	"heading_2":          "sub_header",
	"heading_3":          "sub_sub_header",
	"bulleted_list_item": "bulleted_list",
	"numbered_list_item": "numbered_list",
	"child_page":         "page",
	"child_database":     "collection_view",
	"link_preview":       "bookmark",
}

// convertBlock は公開APIのブロックをレコードマップのブロック値に変換する。
// parentIDは正規化済みであること。メディアURLはrwで書き換える。
func convertBlock(block *notion.Block, parentID, parentTable string, rw MediaRewriter) BlockValue {
	v := BlockValue{
		ID:             notion.NormalizeID(block.ID),
		Type:           blockType(block.Type),
		ParentID:       parentID,
		ParentTable:    parentTable,
		Alive:          !block.Archived,
		CreatedTime:    millis(block.CreatedTime),
		LastEditedTime: millis(block.LastEditedTime),
	}

	props := map[string]any{}
	format := map[string]any{}
	c := block.Content

	if len(c.RichText) > 0 {
		props["title"] = decorations(c.RichText)
	}
	if len(c.Caption) > 0 {
		props["caption"] = decorations(c.Caption)
	}
	if c.Title != "" {
		props["title"] = [][]any{{c.Title}}
	}

	switch block.Type {
	case "image", "video", "file", "pdf", "audio":
		if u := block.MediaURL(); u != "" {
			u = rw.BlockURL(v.ID, u)
			props["source"] = [][]any{{u}}
			format["display_source"] = u
		}
	case "bookmark", "embed", "link_preview":
		if c.Link != "" {
			props["link"] = [][]any{{c.Link}}
			format["display_source"] = c.Link
		}
	case "code":
		if c.Language != "" {
			props["language"] = [][]any{{c.Language}}
		}
	case "to_do":
		checked := "No"
		if c.Checked != nil && *c.Checked {
			checked = "Yes"
		}
		props["checked"] = [][]any{{checked}}
	}

	if len(props) > 0 {
		v.Properties = props
	}
	if len(format) > 0 {
		v.Format = format
	}
	return v
}

// pageBlockValue はページをレコードマップのpageブロックに変換する。
func pageBlockValue(page *notion.Page, id string, rw MediaRewriter) BlockValue {
	v := BlockValue{
		ID:             id,
		Type:           "page",
		Alive:          !page.Archived,
		CreatedTime:    millis(page.CreatedTime),
		LastEditedTime: millis(page.LastEditedTime),
	}
	if parent := page.Parent; parent != nil {
		v.ParentID = notion.NormalizeID(parent.ID())
		switch parent.Type {
		case "database_id":
			v.ParentTable = "collection"
		case "workspace":
			v.ParentTable = "space"
		default:
			v.ParentTable = "block"
		}
	}

	for _, p := range page.Properties {
		if p.Type == notion.PropertyTypeTitle && len(p.Title) > 0 {
			v.Properties = map[string]any{"title": decorations(p.Title)}
			break
		}
	}
	if cover := page.Cover.URL(); cover != "" {
		v.Format = map[string]any{"page_cover": rw.PropertyURL(id, "Cover", cover)}
	}
	return v
}

func blockType(apiType string) string {
	if name, ok := blockTypeNames[apiType]; ok {
		return name
	}
	return apiType
}

// decorations はリッチテキストをレコードマップの装飾付きテキスト形式
// （[[text, [[mark], ...]], ...]）に変換する。
func decorations(runs []notion.RichText) [][]any {
	out := make([][]any, 0, len(runs))
	for _, r := range runs {
		var marks [][]any
		if a := r.Annotations; a != nil {
			if a.Bold {
				marks = append(marks, []any{"b"})
			}
			if a.Italic {
				marks = append(marks, []any{"i"})
			}
			if a.Strikethrough {
				marks = append(marks, []any{"s"})
			}
			if a.Underline {
				marks = append(marks, []any{"_"})
			}
			if a.Code {
				marks = append(marks, []any{"c"})
			}
		}
		if r.Href != "" {
			marks = append(marks, []any{"a", r.Href})
		}

		if len(marks) == 0 {
			out = append(out, []any{r.Plain()})
			continue
		}
		out = append(out, []any{r.Plain(), marks})
	}
	return out
}

// millis はRFC 3339の日時をUNIXミリ秒に変換する。解釈できない場合は0。
func millis(s string) int64 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
