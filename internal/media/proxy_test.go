package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// mockSSRFGuard はSSRFValidatorのテスト用モック。
// httptestサーバーへの接続を許可するため、任意のクライアントを返す。
type mockSSRFGuard struct {
	client      *http.Client
	validateErr error
}

func (m *mockSSRFGuard) NewSafeClient(timeout time.Duration, _ int64) *http.Client {
	if m.client != nil {
		return m.client
	}
	return &http.Client{Timeout: timeout}
}

func (m *mockSSRFGuard) ValidateURL(_ string) error {
	return m.validateErr
}

func newTestPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("PNGのエンコードに失敗: %v", err)
	}
	return buf.Bytes()
}

func TestProxy_Fetch_PassesBytesThrough(t *testing.T) {
	payload := []byte("\xff\xd8\xff\xe0 fake jpeg")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		w.Write(payload)
	}))
	defer server.Close()

	p := NewProxy(&mockSSRFGuard{client: server.Client()}, nil, 5*time.Second, 1024)
	m, err := p.Fetch(context.Background(), server.URL+"/a.webp", 0)
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	if !bytes.Equal(m.Body, payload) {
		t.Errorf("body = %q, want origin bytes", m.Body)
	}
	if m.ContentType != "image/webp" {
		t.Errorf("ContentType = %q, want image/webp", m.ContentType)
	}
}

func TestProxy_Fetch_DefaultContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write([]byte("raw"))
	}))
	defer server.Close()

	p := NewProxy(&mockSSRFGuard{client: server.Client()}, nil, 5*time.Second, 1024)
	m, err := p.Fetch(context.Background(), server.URL, 0)
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	if m.ContentType != DefaultContentType {
		t.Errorf("ContentType = %q, want %q", m.ContentType, DefaultContentType)
	}
}

func TestProxy_Fetch_UpstreamStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := NewProxy(&mockSSRFGuard{client: server.Client()}, nil, 5*time.Second, 1024)
	_, err := p.Fetch(context.Background(), server.URL, 0)

	var upstream *UpstreamError
	if !errors.As(err, &upstream) || upstream.Status != http.StatusForbidden {
		t.Errorf("err = %v, want UpstreamError 403", err)
	}
}

func TestProxy_Fetch_TooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte("x"), 2048))
	}))
	defer server.Close()

	p := NewProxy(&mockSSRFGuard{client: server.Client()}, nil, 5*time.Second, 1024)
	if _, err := p.Fetch(context.Background(), server.URL, 0); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}

func TestProxy_Fetch_SSRFBlocked(t *testing.T) {
	p := NewProxy(&mockSSRFGuard{validateErr: errors.New("blocked")}, nil, time.Second, 1024)
	if _, err := p.Fetch(context.Background(), "http://127.0.0.1/x", 0); err == nil {
		t.Error("Fetch = nil error, want SSRF error")
	}
}

func TestProxy_Fetch_ResizesPNG(t *testing.T) {
	src := newTestPNG(t, 100, 50)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(src)
	}))
	defer server.Close()

	p := NewProxy(&mockSSRFGuard{client: server.Client()}, nil, 5*time.Second, 1<<20)
	m, err := p.Fetch(context.Background(), server.URL, 40)
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(m.Body))
	if err != nil {
		t.Fatalf("縮小後の画像をデコードできない: %v", err)
	}
	if cfg.Width != 40 || cfg.Height != 20 {
		t.Errorf("size = %dx%d, want 40x20", cfg.Width, cfg.Height)
	}

	// 元の幅以上の指定では変換しない
	m, err = p.Fetch(context.Background(), server.URL, 400)
	if err != nil {
		t.Fatalf("Fetch がエラーを返した: %v", err)
	}
	if !bytes.Equal(m.Body, src) {
		t.Error("body was re-encoded, want original bytes when width >= source width")
	}
}
