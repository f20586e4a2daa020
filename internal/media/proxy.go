package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// DefaultContentType は取得元がContent-Typeを返さない場合の値。
const DefaultContentType = "image/jpeg"

// MaxWidth はリサイズ指定で受け付ける最大幅。
const MaxWidth = 4096

// ErrTooLarge はメディアがサイズ上限を超えたことを示す。
var ErrTooLarge = errors.New("media exceeds size limit")

// UpstreamError は取得元が2xx以外を返したことを示す。
type UpstreamError struct {
	Status int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("media upstream returned status %d", e.Status)
}

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Media はプロキシで取得したメディア。
type Media struct {
	Body        []byte
	ContentType string
}

// Proxy は解決済みのメディアURLから中身を取得する。
type Proxy struct {
	ssrfGuard SSRFValidator
	logger    *slog.Logger
	timeout   time.Duration
	maxSize   int64
}

// NewProxy はProxyの新しいインスタンスを生成する。
func NewProxy(ssrfGuard SSRFValidator, logger *slog.Logger, timeout time.Duration, maxSize int64) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Proxy{
		ssrfGuard: ssrfGuard,
		logger:    logger,
		timeout:   timeout,
		maxSize:   maxSize,
	}
}

// Fetch はURLの中身を取得する。
// widthが正でJPEG / PNG / GIFの場合は縦横比を保って縮小する。元の幅以下への縮小のみ行う。
// それ以外は取得したバイト列をそのまま返す。
func (p *Proxy) Fetch(ctx context.Context, rawURL string, width int) (*Media, error) {
	if err := p.ssrfGuard.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := p.ssrfGuard.NewSafeClient(p.timeout, p.maxSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("Accept", "image/*, video/*, */*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{Status: resp.StatusCode}
	}
	if resp.ContentLength > p.maxSize {
		return nil, ErrTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}
	if int64(len(body)) > p.maxSize {
		return nil, ErrTooLarge
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}
	m := &Media{Body: body, ContentType: contentType}

	if width > 0 {
		p.resize(m, min(width, MaxWidth))
	}
	return m, nil
}

// resize はmを指定幅に縮小する。デコードできない場合は元のまま残す。
func (p *Proxy) resize(m *Media, width int) {
	format, ok := imageFormat(m.ContentType)
	if !ok {
		return
	}
	img, err := imaging.Decode(bytes.NewReader(m.Body))
	if err != nil {
		p.logger.Warn("画像のデコードに失敗しました", slog.String("error", err.Error()))
		return
	}
	if img.Bounds().Dx() <= width {
		return
	}

	resized := imaging.Resize(img, width, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, format, imaging.JPEGQuality(85)); err != nil {
		p.logger.Warn("画像のエンコードに失敗しました", slog.String("error", err.Error()))
		return
	}
	m.Body = buf.Bytes()
}

// imageFormat はContent-Typeからimagingの出力形式を判定する。
func imageFormat(contentType string) (imaging.Format, bool) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return imaging.JPEG, true
	case "image/png":
		return imaging.PNG, true
	case "image/gif":
		return imaging.GIF, true
	default:
		return 0, false
	}
}
