package recordmap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/hitoshi/portfolio/internal/notion"
)

const (
	testPageID    = "1c8a4c1e-7d2b-4f0e-9a3b-0d5e6f7a8b9c"
	testPageIDRaw = "1c8a4c1e7d2b4f0e9a3b0d5e6f7a8b9c"
)

// mockPageSource はPageSourceのテスト用モック。
type mockPageSource struct {
	page     *notion.Page
	pageErr  error
	children map[string][]notion.Block
	listErr  error
	listed   []string
}

func (m *mockPageSource) RetrievePage(_ context.Context, _ string) (*notion.Page, error) {
	if m.pageErr != nil {
		return nil, m.pageErr
	}
	return m.page, nil
}

func (m *mockPageSource) ListAllBlockChildren(_ context.Context, blockID string) ([]notion.Block, error) {
	m.listed = append(m.listed, blockID)
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.children[blockID], nil
}

type failingSource struct{ err error }

func (s failingSource) Load(context.Context, string) (*RecordMap, error) { return nil, s.err }

type staticSource struct{ m *RecordMap }

func (s staticSource) Load(context.Context, string) (*RecordMap, error) { return s.m, nil }

type pathRecorder struct{ paths []string }

func (r *pathRecorder) ObserveRecordMapBuild(path string) { r.paths = append(r.paths, path) }

func paragraph(id, text string) notion.Block {
	return notion.Block{ID: id, Type: "paragraph", Content: notion.BlockContent{
		RichText: []notion.RichText{{PlainText: text}},
	}}
}

func newTestBuilder(primary Source, api PageSource, obs BuildObserver) (*Builder, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewBuilder(primary, api, nil, logger, obs), &buf
}

func TestBuilder_PrimaryPath(t *testing.T) {
	want := New()
	want.PutBlock(BlockValue{ID: testPageID, Type: "page"})
	api := &mockPageSource{}
	rec := &pathRecorder{}
	b, _ := newTestBuilder(staticSource{m: want}, api, rec)

	got, err := b.Build(context.Background(), testPageID)
	if err != nil {
		t.Fatalf("Build がエラーを返した: %v", err)
	}
	if got != want {
		t.Error("Build did not return the primary record map")
	}
	if len(api.listed) != 0 {
		t.Errorf("fallback was called: %v", api.listed)
	}
	if len(rec.paths) != 1 || rec.paths[0] != "primary" {
		t.Errorf("paths = %v, want [primary]", rec.paths)
	}
}

func TestBuilder_FallbackRegistersNPlusOneEntries(t *testing.T) {
	blocks := []notion.Block{
		paragraph("aaaaaaaa-0000-0000-0000-000000000001", "one"),
		paragraph("aaaaaaaa000000000000000000000002", "two"),
		paragraph("AAAAAAAA-0000-0000-0000-000000000003", "three"),
	}
	api := &mockPageSource{
		page:     &notion.Page{ID: testPageIDRaw, Properties: map[string]notion.Property{}},
		children: map[string][]notion.Block{testPageID: blocks},
	}
	rec := &pathRecorder{}
	b, buf := newTestBuilder(failingSource{err: errors.New("web api down")}, api, rec)

	m, err := b.Build(context.Background(), testPageIDRaw)
	if err != nil {
		t.Fatalf("Build がエラーを返した: %v", err)
	}

	if ids := m.BlockIDs(); len(ids) != 4 {
		t.Fatalf("unique entries = %d (%v), want 4", len(ids), ids)
	}
	if len(m.Block) != 8 {
		t.Errorf("keys = %d, want 8 (both id forms)", len(m.Block))
	}

	wantIDs := []string{
		"aaaaaaaa-0000-0000-0000-000000000001",
		"aaaaaaaa-0000-0000-0000-000000000002",
		"aaaaaaaa-0000-0000-0000-000000000003",
	}
	for _, id := range append([]string{testPageID}, wantIDs...) {
		if _, ok := m.Block[id]; !ok {
			t.Errorf("hyphenated key %s missing", id)
		}
		if _, ok := m.Block[strings.ReplaceAll(id, "-", "")]; !ok {
			t.Errorf("compact key for %s missing", id)
		}
	}

	page, ok := m.LookupBlock(testPageIDRaw)
	if !ok {
		t.Fatal("page entry not found")
	}
	if len(page.Content) != 3 {
		t.Fatalf("page content = %v, want 3 ids", page.Content)
	}
	for i, id := range wantIDs {
		if page.Content[i] != id {
			t.Errorf("content[%d] = %s, want %s", i, page.Content[i], id)
		}
	}

	child, _ := m.LookupBlock(wantIDs[1])
	if child.ParentID != testPageID || child.ParentTable != "block" {
		t.Errorf("parent = %s/%s, want page", child.ParentTable, child.ParentID)
	}
	if child.Type != "text" {
		t.Errorf("type = %s, want text", child.Type)
	}

	if len(rec.paths) != 1 || rec.paths[0] != "fallback" {
		t.Errorf("paths = %v, want [fallback]", rec.paths)
	}
	if !strings.Contains(buf.String(), "公開APIから再構築します") {
		t.Errorf("log = %s, want warning", buf.String())
	}
}

func TestBuilder_FallbackRecursesIntoChildren(t *testing.T) {
	const toggleID = "bbbbbbbb-0000-0000-0000-000000000001"
	const nestedID = "bbbbbbbb-0000-0000-0000-000000000002"
	toggle := paragraph(toggleID, "toggle")
	toggle.Type = "toggle"
	toggle.HasChildren = true

	api := &mockPageSource{
		page: &notion.Page{ID: testPageID},
		children: map[string][]notion.Block{
			testPageID: {toggle},
			toggleID:   {paragraph(nestedID, "inside")},
		},
	}
	b, _ := newTestBuilder(nil, api, nil)

	m, err := b.Build(context.Background(), testPageID)
	if err != nil {
		t.Fatalf("Build がエラーを返した: %v", err)
	}
	parent, _ := m.LookupBlock(toggleID)
	if len(parent.Content) != 1 || parent.Content[0] != nestedID {
		t.Errorf("toggle content = %v, want [%s]", parent.Content, nestedID)
	}
	nested, ok := m.LookupBlock(strings.ReplaceAll(nestedID, "-", ""))
	if !ok || nested.ParentID != toggleID {
		t.Errorf("nested = %+v, want parent %s", nested, toggleID)
	}
	page, _ := m.LookupBlock(testPageID)
	if len(page.Content) != 1 {
		t.Errorf("page content = %v, want only top-level block", page.Content)
	}
}

func TestBuilder_FallbackWarnsWhenDepthLimitReached(t *testing.T) {
	api := &mockPageSource{
		page:     &notion.Page{ID: testPageID},
		children: map[string][]notion.Block{},
	}
	parent := testPageID
	var ids []string
	for i := 0; i <= maxDepth+1; i++ {
		id := fmt.Sprintf("cccccccc-0000-0000-0000-%012d", i)
		block := paragraph(id, "level")
		block.Type = "toggle"
		block.HasChildren = true
		api.children[notion.NormalizeID(parent)] = []notion.Block{block}
		ids = append(ids, id)
		parent = id
	}
	b, buf := newTestBuilder(nil, api, nil)

	m, err := b.Build(context.Background(), testPageID)
	if err != nil {
		t.Fatalf("Build がエラーを返した: %v", err)
	}
	deepest := notion.NormalizeID(ids[maxDepth])
	v, ok := m.LookupBlock(deepest)
	if !ok {
		t.Fatalf("block %s not registered", deepest)
	}
	if len(v.Content) != 0 {
		t.Errorf("content = %v, want truncated", v.Content)
	}
	if _, ok := m.LookupBlock(notion.NormalizeID(ids[maxDepth+1])); ok {
		t.Error("block past the depth limit was registered")
	}
	logs := buf.String()
	if !strings.Contains(logs, "子ブロックを省略します") || !strings.Contains(logs, deepest) {
		t.Errorf("log = %s, want warning naming %s", logs, deepest)
	}
}

// stubRewriter はURLに印を付けて返すMediaRewriter。
type stubRewriter struct{}

func (stubRewriter) BlockURL(blockID, rawURL string) string {
	return "/api/image?blockId=" + blockID
}

func (stubRewriter) PropertyURL(pageID, property, rawURL string) string {
	return "/api/image?pageId=" + pageID + "&prop=" + property
}

func TestBuilder_FallbackRewritesMediaURLs(t *testing.T) {
	const imageID = "dddddddd-0000-0000-0000-000000000001"
	const signed = "https://prod-files-secure.s3.us-west-2.amazonaws.com/a.png?X-Amz-Signature=abc"
	image := notion.Block{ID: imageID, Type: "image", Content: notion.BlockContent{
		FileObject: notion.FileObject{Type: "file", File: &notion.HostedFile{URL: signed}},
	}}
	api := &mockPageSource{
		page: &notion.Page{ID: testPageID, Cover: &notion.FileObject{
			Type: "file", File: &notion.HostedFile{URL: signed},
		}},
		children: map[string][]notion.Block{testPageID: {image}},
	}
	b := NewBuilder(nil, api, stubRewriter{}, nil, nil)

	m, err := b.Build(context.Background(), testPageID)
	if err != nil {
		t.Fatalf("Build がエラーを返した: %v", err)
	}
	blockKey := notion.NormalizeID(imageID)
	v, _ := m.LookupBlock(blockKey)
	if v.Format["display_source"] != "/api/image?blockId="+blockKey {
		t.Errorf("display_source = %v", v.Format["display_source"])
	}
	if got := fmt.Sprint(v.Properties["source"]); got != "[[/api/image?blockId="+blockKey+"]]" {
		t.Errorf("source = %s", got)
	}
	page, _ := m.LookupBlock(testPageID)
	pageKey := notion.NormalizeID(testPageID)
	if page.Format["page_cover"] != "/api/image?pageId="+pageKey+"&prop=Cover" {
		t.Errorf("page_cover = %v", page.Format["page_cover"])
	}
	if strings.Contains(fmt.Sprint(v.Format, v.Properties, page.Format), "X-Amz-Signature") {
		t.Error("record map still carries a signed URL")
	}
}

func TestBuilder_FallbackErrorsPropagate(t *testing.T) {
	tests := []struct {
		name string
		api  *mockPageSource
	}{
		{"ページ取得失敗", &mockPageSource{pageErr: errors.New("page unreachable")}},
		{"ブロック取得失敗", &mockPageSource{page: &notion.Page{ID: testPageID}, listErr: errors.New("blocks unreachable")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &pathRecorder{}
			b, _ := newTestBuilder(failingSource{err: errors.New("down")}, tt.api, rec)
			m, err := b.Build(context.Background(), testPageID)
			if err == nil {
				t.Fatal("Build = nil error, want error")
			}
			if m != nil {
				t.Error("Build returned a partial record map")
			}
			if len(rec.paths) != 1 || rec.paths[0] != "failed" {
				t.Errorf("paths = %v, want [failed]", rec.paths)
			}
		})
	}
}

func TestConvertBlock_MediaAndDecorations(t *testing.T) {
	image := notion.Block{ID: "img", Type: "image", Content: notion.BlockContent{
		FileObject: notion.FileObject{Type: "external", External: &notion.ExternalFile{URL: "https://images.example.com/a.png"}},
		Caption:    []notion.RichText{{PlainText: "cap", Annotations: &notion.Annotations{Bold: true}, Href: "https://x.example"}},
	}}
	v := convertBlock(&image, testPageID, "block", identityRewriter{})
	if v.Format["display_source"] != "https://images.example.com/a.png" {
		t.Errorf("display_source = %v", v.Format["display_source"])
	}
	caption, ok := v.Properties["caption"].([][]any)
	if !ok || len(caption) != 1 || caption[0][0] != "cap" {
		t.Fatalf("caption = %#v", v.Properties["caption"])
	}
	marks, ok := caption[0][1].([][]any)
	if !ok || len(marks) != 2 || marks[0][0] != "b" || marks[1][0] != "a" {
		t.Errorf("marks = %#v, want bold and link", caption[0][1])
	}
}

func TestRecordMap_NewHasAllNamespaces(t *testing.T) {
	m := New()
	if m.Block == nil || m.Collection == nil || m.CollectionView == nil || m.NotionUser == nil ||
		m.CollectionQuery == nil || m.SignedURLs == nil || m.Discussion == nil || m.Comment == nil {
		t.Errorf("New() = %+v, want every namespace non-nil", m)
	}
	if _, ok := m.Lookup("missing"); ok {
		t.Error("Lookup(missing) = found")
	}
}
