package notion

import (
	"bytes"
	"encoding/json"
	"testing"
)

const samplePageJSON = `{
  "object": "page",
  "id": "1c8a4c1e-7d2b-4f0e-9a3b-0d5e6f7a8b9c",
  "created_time": "2024-03-01T10:00:00.000Z",
  "cover": {"type": "external", "external": {"url": "https://images.example.com/cover.jpg"}},
  "properties": {
    "Title": {"id": "title", "type": "title", "title": [{"type": "text", "plain_text": "Hello"}]},
    "Slug": {"id": "a", "type": "rich_text", "rich_text": [{"type": "text", "plain_text": "hello-world"}]},
    "Tags": {"id": "b", "type": "multi_select", "multi_select": [{"name": "go"}, {"name": "notion"}]},
    "Cover": {"id": "c", "type": "files", "files": [{"name": "x.png", "type": "file", "file": {"url": "https://prod-files-secure.s3.us-west-2.amazonaws.com/x.png?X-Amz-Signature=abc", "expiry_time": "2024-03-01T11:00:00.000Z"}}]},
    "Published": {"id": "d", "type": "checkbox", "checkbox": true},
    "Order": {"id": "e", "type": "number", "number": 3},
    "Formula": {"id": "f", "type": "formula", "formula": {"type": "string", "string": "x"}},
    "Broken": {"id": "g", "type": "title", "title": "not-an-array"}
  }
}`

func TestPage_UnmarshalJSON_DecodesTaggedUnion(t *testing.T) {
	var page Page
	if err := json.Unmarshal([]byte(samplePageJSON), &page); err != nil {
		t.Fatalf("Unmarshal がエラーを返した: %v", err)
	}

	if got := JoinPlain(page.Properties["Title"].Title); got != "Hello" {
		t.Errorf("Title = %q, want Hello", got)
	}
	if page.Properties["Slug"].Type != PropertyTypeRichText {
		t.Errorf("Slug type = %q, want rich_text", page.Properties["Slug"].Type)
	}
	if n := len(page.Properties["Tags"].MultiSelect); n != 2 {
		t.Errorf("Tags length = %d, want 2", n)
	}
	if !page.Properties["Published"].Checkbox {
		t.Error("Published = false, want true")
	}
	if num := page.Properties["Order"].Number; num == nil || *num != 3 {
		t.Errorf("Order = %v, want 3", num)
	}
	files := page.Properties["Cover"].Files
	if len(files) != 1 || files[0].Expiry() == "" {
		t.Errorf("Cover files = %+v, want one hosted file with expiry", files)
	}
	if page.Cover.URL() != "https://images.example.com/cover.jpg" {
		t.Errorf("page cover = %q", page.Cover.URL())
	}
}

func TestProperty_UnknownTypeKeepsRaw(t *testing.T) {
	var page Page
	if err := json.Unmarshal([]byte(samplePageJSON), &page); err != nil {
		t.Fatalf("Unmarshal がエラーを返した: %v", err)
	}

	formula := page.Properties["Formula"]
	if formula.Type != PropertyTypeUnknown {
		t.Errorf("Formula type = %q, want unknown", formula.Type)
	}
	if len(formula.Raw) == 0 {
		t.Error("Formula.Raw is empty, want original JSON")
	}
}

func TestProperty_MalformedPayloadDegradesToUnknown(t *testing.T) {
	var page Page
	if err := json.Unmarshal([]byte(samplePageJSON), &page); err != nil {
		t.Fatalf("Unmarshal がエラーを返した: %v", err)
	}

	broken := page.Properties["Broken"]
	if broken.Type != PropertyTypeUnknown {
		t.Errorf("Broken type = %q, want unknown", broken.Type)
	}
	if broken.ID != "g" {
		t.Errorf("Broken ID = %q, want g", broken.ID)
	}
}

func TestProperty_UntypedURLPayloadKept(t *testing.T) {
	var p Property
	if err := json.Unmarshal([]byte(`{"url": "https://example.com"}`), &p); err != nil {
		t.Fatalf("Unmarshal がエラーを返した: %v", err)
	}
	if p.Type != PropertyTypeUnknown {
		t.Errorf("Type = %q, want unknown", p.Type)
	}
	if p.URL == nil || *p.URL != "https://example.com" {
		t.Errorf("URL = %v, want https://example.com", p.URL)
	}
}

func TestBlock_UnmarshalJSON_MediaPayload(t *testing.T) {
	raw := `{"object":"block","id":"b1","type":"image","has_children":false,
	  "parent":{"type":"page_id","page_id":"p1"},
	  "image":{"type":"file","file":{"url":"https://s3.us-west-2.amazonaws.com/secure.notion-static.com/a.png"},"caption":[{"plain_text":"cap"}]}}`

	var b Block
	if err := json.Unmarshal([]byte(raw), &b); err != nil {
		t.Fatalf("Unmarshal がエラーを返した: %v", err)
	}
	if b.MediaURL() != "https://s3.us-west-2.amazonaws.com/secure.notion-static.com/a.png" {
		t.Errorf("MediaURL = %q", b.MediaURL())
	}
	if JoinPlain(b.Content.Caption) != "cap" {
		t.Errorf("caption = %q, want cap", JoinPlain(b.Content.Caption))
	}
	if b.Parent.ID() != "p1" {
		t.Errorf("parent = %q, want p1", b.Parent.ID())
	}

	out, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal がエラーを返した: %v", err)
	}
	var want bytes.Buffer
	if err := json.Compact(&want, []byte(raw)); err != nil {
		t.Fatalf("Compact がエラーを返した: %v", err)
	}
	if string(out) != want.String() {
		t.Errorf("Marshal = %s, want original JSON", out)
	}
}

func TestBlock_NonMediaHasNoMediaURL(t *testing.T) {
	var b Block
	if err := json.Unmarshal([]byte(`{"id":"b2","type":"paragraph","paragraph":{"rich_text":[]}}`), &b); err != nil {
		t.Fatalf("Unmarshal がエラーを返した: %v", err)
	}
	if b.MediaURL() != "" {
		t.Errorf("MediaURL = %q, want empty", b.MediaURL())
	}
}
