package notion

import (
	"encoding/json"
	"fmt"
)

// propertyWire はプロパティのJSON表現。全ペイロードキーを受け付ける。
type propertyWire struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Title       []RichText     `json:"title"`
	RichText    []RichText     `json:"rich_text"`
	URL         *string        `json:"url"`
	Files       []FileObject   `json:"files"`
	Select      *SelectOption  `json:"select"`
	MultiSelect []SelectOption `json:"multi_select"`
	Date        *DateValue     `json:"date"`
	Number      *float64       `json:"number"`
	Checkbox    bool           `json:"checkbox"`
	CreatedTime string         `json:"created_time"`
}

// UnmarshalJSON は型タグに応じてペイロードを振り分ける。
// 未知の型タグはPropertyTypeUnknownとして元のJSONを保持する。
// 型タグのないurlペイロードは保持する（スキーマによってはタグが省略されるため）。
func (p *Property) UnmarshalJSON(data []byte) error {
	var w propertyWire
	if err := json.Unmarshal(data, &w); err != nil {
		// ペイロードの形が想定と異なる場合も、ページ全体のデコードは失敗させない
		var head struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		}
		_ = json.Unmarshal(data, &head)
		*p = Property{ID: head.ID, Type: PropertyTypeUnknown, Raw: append(json.RawMessage(nil), data...)}
		return nil
	}

	*p = Property{ID: w.ID, Type: PropertyType(w.Type)}
	if !knownPropertyTypes[p.Type] {
		p.Type = PropertyTypeUnknown
		p.Raw = append(json.RawMessage(nil), data...)
		p.URL = w.URL
		return nil
	}

	switch p.Type {
	case PropertyTypeTitle:
		p.Title = w.Title
	case PropertyTypeRichText:
		p.RichText = w.RichText
	case PropertyTypeURL:
		p.URL = w.URL
	case PropertyTypeFiles:
		p.Files = w.Files
	case PropertyTypeSelect:
		p.Select = w.Select
	case PropertyTypeMultiSelect:
		p.MultiSelect = w.MultiSelect
	case PropertyTypeDate:
		p.Date = w.Date
	case PropertyTypeNumber:
		p.Number = w.Number
	case PropertyTypeCheckbox:
		p.Checkbox = w.Checkbox
	case PropertyTypeCreatedTime:
		p.CreatedTime = w.CreatedTime
	}
	return nil
}

// blockWire はブロックのJSON表現の共通部分。
type blockWire struct {
	Object         string  `json:"object"`
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	HasChildren    bool    `json:"has_children"`
	Archived       bool    `json:"archived"`
	CreatedTime    string  `json:"created_time"`
	LastEditedTime string  `json:"last_edited_time"`
	Parent         *Parent `json:"parent"`
}

// UnmarshalJSON は共通部分と、ブロック種別名のキーに入ったペイロードをデコードする。
func (b *Block) UnmarshalJSON(data []byte) error {
	var w blockWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode block: %w", err)
	}

	*b = Block{
		Object:         w.Object,
		ID:             w.ID,
		Type:           w.Type,
		HasChildren:    w.HasChildren,
		Archived:       w.Archived,
		CreatedTime:    w.CreatedTime,
		LastEditedTime: w.LastEditedTime,
		Parent:         w.Parent,
		Raw:            append(json.RawMessage(nil), data...),
	}

	if w.Type == "" {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decode block fields: %w", err)
	}
	payload, ok := fields[w.Type]
	if !ok || string(payload) == "null" {
		return nil
	}
	// 未対応の形のペイロードは無視し、ブロック自体は有効として扱う
	var content BlockContent
	if err := json.Unmarshal(payload, &content); err == nil {
		b.Content = content
	}
	return nil
}

// MarshalJSON は元のJSONをそのまま返す。
func (b Block) MarshalJSON() ([]byte, error) {
	if len(b.Raw) > 0 {
		return b.Raw, nil
	}
	return json.Marshal(blockWire{
		Object:      b.Object,
		ID:          b.ID,
		Type:        b.Type,
		HasChildren: b.HasChildren,
		Archived:    b.Archived,
		Parent:      b.Parent,
	})
}
