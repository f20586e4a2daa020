package mapper

import (
	"sort"
	"strconv"
	"strings"

	"github.com/hitoshi/portfolio/internal/model"
)

// ItemTypes はfor-friendsの種別を重複なしで辞書順に返す。
func ItemTypes(items []model.ForFriendsItem) []string {
	seen := make(map[string]bool)
	types := []string{}
	for _, it := range items {
		if it.Type == "" || seen[it.Type] {
			continue
		}
		seen[it.Type] = true
		types = append(types, it.Type)
	}
	sort.Strings(types)
	return types
}

// FilterByType は指定した種別の項目のみを返す。空文字列または"all"の場合はすべて返す。
func FilterByType(items []model.ForFriendsItem, itemType string) []model.ForFriendsItem {
	if itemType == "" || strings.EqualFold(itemType, "all") {
		return items
	}
	out := make([]model.ForFriendsItem, 0, len(items))
	for _, it := range items {
		if strings.EqualFold(it.Type, itemType) {
			out = append(out, it)
		}
	}
	return out
}

// GalleryTags はギャラリー全体のタグを重複なしで辞書順に返す。
func GalleryTags(items []model.GalleryItem) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, it := range items {
		for _, tag := range it.Tags {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	sort.Strings(tags)
	return tags
}

// FilterGalleryByTag は指定したタグを持つ項目のみを返す。空文字列の場合はすべて返す。
func FilterGalleryByTag(items []model.GalleryItem, tag string) []model.GalleryItem {
	if tag == "" {
		return items
	}
	out := make([]model.GalleryItem, 0, len(items))
	for _, it := range items {
		for _, t := range it.Tags {
			if t == tag {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// SortByDateDesc はギャラリーを日付の新しい順に並べ替えたコピーを返す。
// 日付のない項目は末尾に置き、元の順序を保つ。
func SortByDateDesc(items []model.GalleryItem) []model.GalleryItem {
	out := append([]model.GalleryItem(nil), items...)
	sort.SliceStable(out, func(i, j int) bool {
		ti, iok := model.ParseDate(out[i].Date)
		tj, jok := model.ParseDate(out[j].Date)
		switch {
		case iok && jok:
			return ti.After(tj)
		case iok:
			return true
		default:
			return false
		}
	})
	return out
}

// SortProjects は表示順の昇順、同順位は名前順に並べ替えたコピーを返す。
// 表示順のない項目は末尾に置く。
func SortProjects(projects []model.Project) []model.Project {
	out := append([]model.Project(nil), projects...)
	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := out[i].Order, out[j].Order
		switch {
		case oi != nil && oj != nil && *oi != *oj:
			return *oi < *oj
		case oi != nil && oj == nil:
			return true
		case oi == nil && oj != nil:
			return false
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// PostFilter は記事アーカイブの絞り込み条件。
type PostFilter struct {
	// Query はタイトル・抜粋・タグに対する部分一致（大文字小文字を区別しない）。
	Query string
	// Year は公開年。0の場合は絞り込まない。
	Year int
	// Month は公開月（1〜12）。0の場合は絞り込まない。
	Month int
	Tag   string
}

// FilterPosts は条件に一致する記事を元の順序のまま返す。
func FilterPosts(posts []model.Post, f PostFilter) []model.Post {
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]model.Post, 0, len(posts))
	for _, p := range posts {
		if query != "" && !postMatches(p, query) {
			continue
		}
		if f.Tag != "" && !containsString(p.Tags, f.Tag) {
			continue
		}
		if f.Year != 0 || f.Month != 0 {
			t, ok := p.PublishedTime()
			if !ok {
				continue
			}
			if f.Year != 0 && t.Year() != f.Year {
				continue
			}
			if f.Month != 0 && int(t.Month()) != f.Month {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}

// ArchiveYears は記事の公開年を新しい順に重複なしで返す。
func ArchiveYears(posts []model.Post) []string {
	seen := make(map[int]bool)
	var years []int
	for _, p := range posts {
		t, ok := p.PublishedTime()
		if !ok || seen[t.Year()] {
			continue
		}
		seen[t.Year()] = true
		years = append(years, t.Year())
	}
	sort.Sort(sort.Reverse(sort.IntSlice(years)))
	out := make([]string, 0, len(years))
	for _, y := range years {
		out = append(out, strconv.Itoa(y))
	}
	return out
}

func postMatches(p model.Post, query string) bool {
	if strings.Contains(strings.ToLower(p.Title), query) || strings.Contains(strings.ToLower(p.Excerpt), query) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
