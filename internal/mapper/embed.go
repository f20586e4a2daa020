package mapper

import (
	"regexp"
	"strings"

	"github.com/hitoshi/portfolio/internal/model"
)

var (
	spotifyPattern = regexp.MustCompile(`spotify\.com/(?:intl-[a-z]+/)?(playlist|album|track)/([A-Za-z0-9]+)`)
	youtubePattern = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:.*&)?v=|embed/|shorts/)|youtu\.be/)([A-Za-z0-9_-]+)`)
)

// DetectEmbed はURLからSpotify / YouTubeの埋め込み情報を判定する。
// どちらでもない場合はリンク種別を返す。
func DetectEmbed(rawURL string) model.Embed {
	u := strings.TrimSpace(rawURL)
	if m := spotifyPattern.FindStringSubmatch(u); m != nil {
		return model.Embed{Kind: model.EmbedSpotify, SpotifyType: m[1], ID: m[2], URL: u}
	}
	if m := youtubePattern.FindStringSubmatch(u); m != nil {
		return model.Embed{Kind: model.EmbedYouTube, ID: m[1], URL: u}
	}
	return model.Embed{Kind: model.EmbedLink, URL: u}
}
