// Package render はページのHTMLを組み立てる。
// テンプレートはバイナリに埋め込み、起動時に一度だけ解釈する。
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/recordmap"
)

//go:embed templates/*.html
var templateFS embed.FS

// ページテンプレート名
const (
	PageHome       = "home"
	PagePosts      = "posts"
	PagePost       = "post"
	PageGallery    = "gallery"
	PageForFriends = "for_friends"
	PageProjects   = "projects"
	PageAbout      = "about"
	PageContact    = "contact"
	PageNotFound   = "not_found"
	PageError      = "error"
)

var pageNames = []string{
	PageHome, PagePosts, PagePost, PageGallery, PageForFriends,
	PageProjects, PageAbout, PageContact, PageNotFound, PageError,
}

// HomeLimit はトップページに表示する記事数。
const HomeLimit = 6

// Page はレイアウトに渡す値。Dataはページごとの値。
type Page struct {
	Title   string
	Path    string
	SiteURL string
	Data    any
}

// PostsData は記事一覧ページの値。
type PostsData struct {
	Posts []model.Post
	Query string
	Year  string
	Years []string
}

// PostData は記事詳細ページの値。
type PostData struct {
	Post      model.Post
	Body      template.HTML
	RecordMap *recordmap.RecordMap
}

// GalleryData はギャラリーページの値。
type GalleryData struct {
	Items []model.GalleryItem
	Tags  []string
	Tag   string
}

// ForFriendsData はfor-friendsページの値。
type ForFriendsData struct {
	Items []model.ForFriendsItem
	Types []string
	Type  string
}

// ErrorData はエラーページの値。
type ErrorData struct {
	Status  int
	Message string
}

// Renderer はHTMLページを描画する。
type Renderer struct {
	pages     map[string]*template.Template
	sanitizer Sanitizer
	rewriter  BlockRewriter
}

// New はRendererの新しいインスタンスを生成する。
func New(sanitizer Sanitizer, rewriter BlockRewriter) (*Renderer, error) {
	base, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout template: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout template: %w", err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		pages[name] = t
	}

	return &Renderer{pages: pages, sanitizer: sanitizer, rewriter: rewriter}, nil
}

// Render はページを描画してレスポンスに書き込む。
// テンプレートの実行に失敗した場合は何も書き込まずにエラーを返す。
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, page Page) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page template %q", name)
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		return fmt.Errorf("execute %s template: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}
