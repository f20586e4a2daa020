package model

import "time"

// Post は記事のメタデータ。CMSのページからリクエストごとに導出する読み取り専用の射影。
type Post struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Excerpt     string   `json:"excerpt,omitempty"`
	Cover       string   `json:"cover,omitempty"`
	PublishedAt string   `json:"publishedAt,omitempty"`
	Tags        []string `json:"tags"`
}

// PublishedTime はPublishedAtを時刻として解釈する。解釈できない場合はゼロ値とfalse。
func (p Post) PublishedTime() (time.Time, bool) {
	return ParseDate(p.PublishedAt)
}

// GalleryItem はギャラリーの1枚。
type GalleryItem struct {
	ID       string   `json:"id"`
	Image    string   `json:"image,omitempty"`
	Title    string   `json:"title,omitempty"`
	Caption  string   `json:"caption,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags"`
	Date     string   `json:"date,omitempty"`
}

// EmbedKind は外部URLの埋め込み種別。
type EmbedKind string

const (
	EmbedSpotify EmbedKind = "spotify"
	EmbedYouTube EmbedKind = "youtube"
	EmbedLink    EmbedKind = "link"
)

// Embed は外部URLを埋め込みプレイヤーで表示するための情報。
type Embed struct {
	Kind EmbedKind `json:"type"`
	// ID はプロバイダ側のID（Spotify / YouTube）。
	ID string `json:"id,omitempty"`
	// SpotifyType は playlist / album / track のいずれか。
	SpotifyType string `json:"spotifyType,omitempty"`
	URL         string `json:"url,omitempty"`
}

// EmbedURL はiframeに設定するURLを返す。リンク種別の場合は元のURL。
func (e Embed) EmbedURL() string {
	switch e.Kind {
	case EmbedSpotify:
		return "https://open.spotify.com/embed/" + e.SpotifyType + "/" + e.ID
	case EmbedYouTube:
		return "https://www.youtube.com/embed/" + e.ID
	default:
		return e.URL
	}
}

// ForFriendsItem は「友人向け」おすすめリストの1件。
type ForFriendsItem struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	URL         string   `json:"url,omitempty"`
	Embed       *Embed   `json:"embed,omitempty"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Date        string   `json:"date,omitempty"`
	Tags        []string `json:"tags"`
}

// Project はプロジェクト一覧の1件。
type Project struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	RepoURL     string   `json:"repoUrl,omitempty"`
	DemoURL     string   `json:"demoUrl,omitempty"`
	Screenshot  string   `json:"screenshot,omitempty"`
	Video       string   `json:"video,omitempty"`
	Description string   `json:"description,omitempty"`
	// Order は表示順。未設定の場合はnil。
	Order *float64 `json:"order,omitempty"`
	Tags  []string `json:"tags"`
}

// dateLayouts はCMSの日付値として受け付ける書式。
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02",
}

// ParseDate はCMSの日付文字列（日付のみ、または日時）を解釈する。
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
