package mapper

import (
	"sort"

	"github.com/hitoshi/portfolio/internal/model"
	"github.com/hitoshi/portfolio/internal/notion"
)

// untitled はタイトルが見つからない場合の表示名。
const untitled = "Untitled"

// defaultItemType はfor-friendsの種別が見つからない場合の値。
const defaultItemType = "Other"

// coverProperty はページカバーを指す予約済みのプロパティ名。
const coverProperty = "Cover"

// MediaRewriter は期限付きの署名付きURLを安定したプロキシURLに書き換える。
// 書き換え不要なURLはそのまま返す。
type MediaRewriter interface {
	PropertyURL(pageID, property, rawURL string) string
}

// プロパティ候補名。先頭ほど優先される。
var (
	postSlugNames      = []string{"Slug"}
	postTitleNames     = []string{"Title", "Name"}
	postExcerptNames   = []string{"Excerpt", "Summary", "Description"}
	postPublishedNames = []string{"PublishedAt", "Published At", "Publish Date"}
	postTagNames       = []string{"Tags"}

	galleryImageNames    = []string{"Image", "Photo", "File", "Files", "Media", "Cover"}
	galleryTitleNames    = []string{"Title", "Name"}
	galleryCaptionNames  = []string{"Caption", "Description", "Notes"}
	galleryCategoryNames = []string{"Category", "Type", "Album"}
	galleryTagNames      = []string{"Tags", "Tag", "Labels"}
	galleryDateNames     = []string{"Date", "Taken", "Created"}

	friendsTitleNames = []string{"Title", "Name"}
	friendsTypeNames  = []string{"Type", "Category", "Kind"}
	friendsURLNames   = []string{"URL", "Link", "Url", "Spotify", "YouTube"}
	friendsDescNames  = []string{"Description", "Notes", "Why"}
	friendsImageNames = []string{"Image", "Cover", "Thumbnail"}
	friendsDateNames  = []string{"Date", "Created"}
	friendsTagNames   = []string{"Tags", "Tag"}

	projectNameNames       = []string{"Name", "Title", "Project"}
	projectRepoNames       = []string{"Repository", "Repo", "GitHub", "Github URL", "GitHub URL", "Source"}
	projectDemoNames       = []string{"Demo", "Demo URL", "Live", "Live URL", "Website", "URL"}
	projectScreenshotNames = []string{"Screenshot", "Image", "Cover", "Thumbnail"}
	projectVideoNames      = []string{"Video", "Demo Video", "Recording"}
	projectDescNames       = []string{"Description", "Summary", "About"}
	projectOrderNames      = []string{"Order", "Sort", "Position", "Rank"}
	projectTagNames        = []string{"Tags", "Stack", "Tech", "Technologies"}
)

// MapPost はページを記事メタデータに変換する。
// Slugがない場合はページIDを、タイトルがない場合は"Untitled"を使う。
func MapPost(page *notion.Page, rw MediaRewriter) model.Post {
	if page == nil {
		return model.Post{Title: untitled, Tags: []string{}}
	}
	props := page.Properties

	post := model.Post{
		ID:          page.ID,
		Slug:        textOf(props, postSlugNames...),
		Title:       textOf(props, postTitleNames...),
		Excerpt:     textOf(props, postExcerptNames...),
		PublishedAt: dateOf(props, postPublishedNames...),
		Tags:        tagsOf(props, postTagNames...),
	}
	if post.Slug == "" {
		post.Slug = page.ID
	}
	if post.Title == "" {
		post.Title = untitled
	}
	post.Cover = imageOf(page, rw, coverProperty)
	return post
}

// MapGalleryItem はページをギャラリーの1枚に変換する。
func MapGalleryItem(page *notion.Page, rw MediaRewriter) model.GalleryItem {
	if page == nil {
		return model.GalleryItem{Tags: []string{}}
	}
	props := page.Properties
	return model.GalleryItem{
		ID:       page.ID,
		Image:    imageOf(page, rw, galleryImageNames...),
		Title:    textOf(props, galleryTitleNames...),
		Caption:  textOf(props, galleryCaptionNames...),
		Category: selectOf(props, galleryCategoryNames...),
		Tags:     tagsOf(props, galleryTagNames...),
		Date:     dateOrCreated(page, galleryDateNames...),
	}
}

// MapForFriendsItem はページをfor-friendsの1件に変換する。
// URLがSpotifyまたはYouTubeの場合は埋め込み情報も設定する。
func MapForFriendsItem(page *notion.Page, rw MediaRewriter) model.ForFriendsItem {
	if page == nil {
		return model.ForFriendsItem{Title: untitled, Type: defaultItemType, Tags: []string{}}
	}
	props := page.Properties

	item := model.ForFriendsItem{
		ID:          page.ID,
		Title:       textOf(props, friendsTitleNames...),
		Type:        selectOf(props, friendsTypeNames...),
		URL:         urlOf(props, friendsURLNames...),
		Description: textOf(props, friendsDescNames...),
		Image:       imageOf(page, rw, friendsImageNames...),
		Date:        dateOrCreated(page, friendsDateNames...),
		Tags:        tagsOf(props, friendsTagNames...),
	}
	if item.Title == "" {
		item.Title = untitled
	}
	if item.Type == "" {
		item.Type = defaultItemType
	}
	if item.URL != "" {
		embed := DetectEmbed(item.URL)
		item.Embed = &embed
	}
	return item
}

// MapProject はページをプロジェクトの1件に変換する。
func MapProject(page *notion.Page, rw MediaRewriter) model.Project {
	if page == nil {
		return model.Project{Name: untitled, Tags: []string{}}
	}
	props := page.Properties

	project := model.Project{
		ID:          page.ID,
		Name:        textOf(props, projectNameNames...),
		RepoURL:     urlOf(props, projectRepoNames...),
		DemoURL:     urlOf(props, projectDemoNames...),
		Screenshot:  imageOf(page, rw, projectScreenshotNames...),
		Video:       mediaOf(page, rw, projectVideoNames...),
		Description: textOf(props, projectDescNames...),
		Tags:        tagsOf(props, projectTagNames...),
	}
	if project.Name == "" {
		project.Name = untitled
	}
	for _, c := range projectOrderNames {
		if p, ok := Locate(props, c); ok {
			if n, ok := Number(p); ok {
				project.Order = &n
				break
			}
		}
	}
	return project
}

// imageOf は候補名のfilesプロパティから最初のURLを探し、なければページカバーを使う。
func imageOf(page *notion.Page, rw MediaRewriter, candidates ...string) string {
	if u := filesOf(page, rw, candidates...); u != "" {
		return u
	}
	if raw := page.Cover.URL(); raw != "" {
		return rewrite(rw, page.ID, coverProperty, raw)
	}
	return ""
}

// mediaOf はfilesプロパティのURL、なければURL型プロパティの値を返す。
// ページカバーは使わない。
func mediaOf(page *notion.Page, rw MediaRewriter, candidates ...string) string {
	if u := filesOf(page, rw, candidates...); u != "" {
		return u
	}
	return urlOf(page.Properties, candidates...)
}

func filesOf(page *notion.Page, rw MediaRewriter, candidates ...string) string {
	for _, c := range candidates {
		key, p, ok := LocateKey(page.Properties, c)
		if !ok {
			continue
		}
		if raw, ok := FileURL(p); ok {
			return rewrite(rw, page.ID, key, raw)
		}
	}
	return ""
}

func selectOf(props map[string]notion.Property, candidates ...string) string {
	for _, c := range candidates {
		if p, ok := Locate(props, c); ok {
			if s, ok := Select(p); ok {
				return s
			}
		}
	}
	return ""
}

func rewrite(rw MediaRewriter, pageID, property, raw string) string {
	if rw == nil {
		return raw
	}
	return rw.PropertyURL(pageID, property, raw)
}

func sortedKeys(props map[string]notion.Property) []string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
