// Package notion はNotion APIクライアントと、APIが返すページ・ブロック・プロパティの型を提供する。
package notion

import (
	"encoding/json"
	"strings"
)

// PropertyType はページプロパティの型タグ。
type PropertyType string

const (
	PropertyTypeTitle       PropertyType = "title"
	PropertyTypeRichText    PropertyType = "rich_text"
	PropertyTypeURL         PropertyType = "url"
	PropertyTypeFiles       PropertyType = "files"
	PropertyTypeSelect      PropertyType = "select"
	PropertyTypeMultiSelect PropertyType = "multi_select"
	PropertyTypeDate        PropertyType = "date"
	PropertyTypeNumber      PropertyType = "number"
	PropertyTypeCheckbox    PropertyType = "checkbox"
	PropertyTypeCreatedTime PropertyType = "created_time"
	// PropertyTypeUnknown は本パッケージが解釈しない型タグを表す。
	// 元のJSONはProperty.Rawに保持される。
	PropertyTypeUnknown PropertyType = "unknown"
)

// knownPropertyTypes は解釈可能な型タグの集合。
var knownPropertyTypes = map[PropertyType]bool{
	PropertyTypeTitle:       true,
	PropertyTypeRichText:    true,
	PropertyTypeURL:         true,
	PropertyTypeFiles:       true,
	PropertyTypeSelect:      true,
	PropertyTypeMultiSelect: true,
	PropertyTypeDate:        true,
	PropertyTypeNumber:      true,
	PropertyTypeCheckbox:    true,
	PropertyTypeCreatedTime: true,
}

// RichText はリッチテキストの1ラン。
type RichText struct {
	Type      string `json:"type"`
	PlainText string `json:"plain_text"`
	Href      string `json:"href,omitempty"`
	Text      *struct {
		Content string `json:"content"`
	} `json:"text,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// Annotations はリッチテキストの装飾。
type Annotations struct {
	Bold          bool `json:"bold"`
	Italic        bool `json:"italic"`
	Strikethrough bool `json:"strikethrough"`
	Underline     bool `json:"underline"`
	Code          bool `json:"code"`
}

// Plain はランのプレーンテキストを返す。plain_textが空の場合はtext.contentを使う。
func (r RichText) Plain() string {
	if r.PlainText != "" {
		return r.PlainText
	}
	if r.Text != nil {
		return r.Text.Content
	}
	return ""
}

// JoinPlain はリッチテキスト列を連結したプレーンテキストを返す。
func JoinPlain(runs []RichText) string {
	var b strings.Builder
	for _, r := range runs {
		b.WriteString(r.Plain())
	}
	return b.String()
}

// ExternalFile は外部ホストされたファイル。
type ExternalFile struct {
	URL string `json:"url"`
}

// HostedFile はNotionのストレージにホストされたファイル。
// URLは署名付きで、ExpiryTimeを過ぎると無効になる。
type HostedFile struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

// FileObject はfilesプロパティの要素、ページカバー、メディアブロックの共通形。
// Typeは "external" または "file"。
type FileObject struct {
	Name     string        `json:"name,omitempty"`
	Type     string        `json:"type"`
	External *ExternalFile `json:"external,omitempty"`
	File     *HostedFile   `json:"file,omitempty"`
}

// URL はサブタイプに応じたファイルURLを返す。解決できない場合は空文字列。
func (f *FileObject) URL() string {
	if f == nil {
		return ""
	}
	switch f.Type {
	case "external":
		if f.External != nil {
			return f.External.URL
		}
	case "file":
		if f.File != nil {
			return f.File.URL
		}
	}
	// 型タグが欠けている場合はペイロードから推測する
	if f.External != nil && f.External.URL != "" {
		return f.External.URL
	}
	if f.File != nil {
		return f.File.URL
	}
	return ""
}

// Expiry はホストファイルの有効期限を返す。外部ファイルは空文字列。
func (f *FileObject) Expiry() string {
	if f == nil || f.File == nil {
		return ""
	}
	return f.File.ExpiryTime
}

// SelectOption はselect / multi_selectの選択肢。
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateValue はdateプロパティの値。
type DateValue struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

// Property はページプロパティのタグ付きユニオン。
// Typeに応じて対応するペイロードフィールドのみが設定される。
type Property struct {
	ID          string
	Type        PropertyType
	Title       []RichText
	RichText    []RichText
	URL         *string
	Files       []FileObject
	Select      *SelectOption
	MultiSelect []SelectOption
	Date        *DateValue
	Number      *float64
	Checkbox    bool
	CreatedTime string
	// Raw はPropertyTypeUnknownの場合に元のJSONを保持する。
	Raw json.RawMessage
}

// Page はデータベースの1行（Notionページ）。
type Page struct {
	Object         string              `json:"object"`
	ID             string              `json:"id"`
	CreatedTime    string              `json:"created_time"`
	LastEditedTime string              `json:"last_edited_time"`
	Archived       bool                `json:"archived"`
	Cover          *FileObject         `json:"cover"`
	Properties     map[string]Property `json:"properties"`
	URL            string              `json:"url"`
	Parent         *Parent             `json:"parent,omitempty"`
}

// Parent はページ・ブロックの親参照。
type Parent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// ID は親のIDを返す。ワークスペース直下の場合は空文字列。
func (p *Parent) ID() string {
	if p == nil {
		return ""
	}
	switch {
	case p.PageID != "":
		return p.PageID
	case p.BlockID != "":
		return p.BlockID
	default:
		return p.DatabaseID
	}
}

// BlockContent はブロック種別ごとのペイロードのうち、本サービスが参照するフィールド。
// メディアブロック（image / video / file / pdf）ではFileObjectが設定される。
type BlockContent struct {
	FileObject
	RichText []RichText `json:"rich_text,omitempty"`
	Caption  []RichText `json:"caption,omitempty"`
	Language string     `json:"language,omitempty"`
	Checked  *bool      `json:"checked,omitempty"`
	Title    string     `json:"title,omitempty"`
	Link     string     `json:"url,omitempty"`
}

// Block はページ本文を構成するブロック。
type Block struct {
	Object         string
	ID             string
	Type           string
	HasChildren    bool
	Archived       bool
	CreatedTime    string
	LastEditedTime string
	Parent         *Parent
	Content        BlockContent
	// Raw はAPIが返したブロックのJSON全体。
	Raw json.RawMessage
}

// MediaURL はメディアブロックのURLを返す。メディア以外のブロックは空文字列。
func (b *Block) MediaURL() string {
	switch b.Type {
	case "image", "video", "file", "pdf", "audio":
		return b.Content.FileObject.URL()
	}
	return ""
}

// FilterCondition はプロパティ型ごとの比較条件。
type FilterCondition struct {
	Equals any `json:"equals"`
}

// Filter はデータベースクエリのプロパティ一致フィルタ。
type Filter struct {
	Property string           `json:"property"`
	Checkbox *FilterCondition `json:"checkbox,omitempty"`
	RichText *FilterCondition `json:"rich_text,omitempty"`
	Select   *FilterCondition `json:"select,omitempty"`
}

// CheckboxEquals はcheckboxプロパティの一致フィルタを生成する。
func CheckboxEquals(property string, v bool) *Filter {
	return &Filter{Property: property, Checkbox: &FilterCondition{Equals: v}}
}

// RichTextEquals はrich_textプロパティの一致フィルタを生成する。
func RichTextEquals(property, v string) *Filter {
	return &Filter{Property: property, RichText: &FilterCondition{Equals: v}}
}

// SortDirection はソート方向。
type SortDirection string

const (
	SortAscending  SortDirection = "ascending"
	SortDescending SortDirection = "descending"
)

// Sort はデータベースクエリのソート条件。
type Sort struct {
	Property  string        `json:"property,omitempty"`
	Timestamp string        `json:"timestamp,omitempty"`
	Direction SortDirection `json:"direction"`
}

// QueryRequest はデータベースクエリのリクエストボディ。
type QueryRequest struct {
	Filter      *Filter `json:"filter,omitempty"`
	Sorts       []Sort  `json:"sorts,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	StartCursor string  `json:"start_cursor,omitempty"`
}

// QueryResponse はデータベースクエリのレスポンス。
type QueryResponse struct {
	Results    []Page `json:"results"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

// BlockList はブロック子要素一覧のレスポンス。
type BlockList struct {
	Results    []Block `json:"results"`
	NextCursor string  `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
}
