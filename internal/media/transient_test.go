package media

import "testing"

func TestIsTransient(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://prod-files-secure.s3.us-west-2.amazonaws.com/ws/file.png?X-Amz-Algorithm=AWS4", true},
		{"https://s3.us-west-2.amazonaws.com/secure.notion-static.com/abc/photo.jpg", true},
		{"https://s3.us-west-2.amazonaws.com/other-bucket/photo.jpg", false},
		{"https://bucket.s3.amazonaws.com/a.png?X-Amz-Signature=deadbeef", true},
		{"https://bucket.s3.amazonaws.com/a.png", false},
		{"https://file.notion.so/f/s/abc/a.png", true},
		{"https://images.notion-static.com/a.png", true},
		{"https://images.unsplash.com/photo-1", false},
		{"https://example.com/notion-static.com.png", false},
		{"/api/image?pageId=1&prop=Cover", false},
		{"", false},
		{"::not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := IsTransient(tt.url); got != tt.want {
				t.Errorf("IsTransient(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestRewriter(t *testing.T) {
	rw := NewRewriter("")
	signed := "https://prod-files-secure.s3.us-west-2.amazonaws.com/x.png?X-Amz-Signature=1"

	if got := rw.PropertyURL("page-1", "Cover", signed); got != "/api/image?pageId=page-1&prop=Cover" {
		t.Errorf("PropertyURL = %q", got)
	}
	if got := rw.PropertyURL("page-1", "Github URL", signed); got != "/api/image?pageId=page-1&prop=Github+URL" {
		t.Errorf("PropertyURL with space = %q", got)
	}
	if got := rw.BlockURL("block-1", signed); got != "/api/image?blockId=block-1" {
		t.Errorf("BlockURL = %q", got)
	}

	stable := "https://images.example.com/a.jpg"
	if got := rw.PropertyURL("page-1", "Cover", stable); got != stable {
		t.Errorf("PropertyURL(stable) = %q, want unchanged", got)
	}
	if got := rw.BlockURL("block-1", stable); got != stable {
		t.Errorf("BlockURL(stable) = %q, want unchanged", got)
	}
	if got := rw.PropertyURL("", "Cover", signed); got != signed {
		t.Errorf("PropertyURL without page id = %q, want unchanged", got)
	}
}

func TestRewriter_BlockProxyURL(t *testing.T) {
	rw := NewRewriter("/media")
	if got := rw.BlockProxyURL("b 1"); got != "/media?blockId=b+1" {
		t.Errorf("BlockProxyURL = %q", got)
	}
}
