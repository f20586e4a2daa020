package security

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// mediaSchemes は画像プロキシが取得してよいURLスキーム。
var mediaSchemes = []string{"http", "https"}

// blockedPrefixes は取得を拒否するアドレス範囲。
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("127.0.0.0/8"),
	// クラウドのメタデータIP（169.254.169.254）を含む
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("::1/128"),
	netip.MustParsePrefix("fc00::/7"),
	netip.MustParsePrefix("fe80::/10"),
}

// SSRFGuard は画像プロキシが取得するURLを検証し、SSRF対策済みのHTTPクライアントを生成する。
// 取得先はCMSから解決したURLに限られるが、外部URLのプロパティは任意のホストを指しうるため、
// 内部ネットワークへの到達を拒否する。
type SSRFGuard struct {
	allowedHosts []string
}

// GuardOption はSSRFGuardの設定を変更する。
type GuardOption func(*SSRFGuard)

// WithAllowedHosts は取得を許可するホストを限定する。
// "*.example.com" の形式でサブドメインを許可できる。指定しない場合は公開ホストすべてを許可する。
func WithAllowedHosts(hosts ...string) GuardOption {
	return func(g *SSRFGuard) {
		for _, h := range hosts {
			if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
				g.allowedHosts = append(g.allowedHosts, h)
			}
		}
	}
}

// NewSSRFGuard はSSRFGuardの新しいインスタンスを生成する。
func NewSSRFGuard(opts ...GuardOption) *SSRFGuard {
	g := &SSRFGuard{}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewSafeClient はSSRF対策済みのHTTPクライアントを生成する。
// 接続先のIPはsafeurlがDNS解決後に検証する。maxResponseSizeが正の場合、
// ボディはそれを1バイト超えたところで打ち切られる。
func (g *SSRFGuard) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(mediaSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	client := safeurl.Client(config).Client
	if maxResponseSize > 0 {
		client.Transport = &limitedTransport{base: client.Transport, limit: maxResponseSize}
	}
	return client
}

// ValidateURL はDNS解決を伴わない事前検証を行う。
func (g *SSRFGuard) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("empty URL")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return fmt.Errorf("disallowed scheme: %q", parsed.Scheme)
	}
	if parsed.User != nil {
		return errors.New("URL must not contain credentials")
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("empty host in URL: %s", rawURL)
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".internal") {
		return fmt.Errorf("blocked host: %s", host)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if isBlockedAddr(addr) {
			return fmt.Errorf("blocked IP address: %s", addr)
		}
	}

	if len(g.allowedHosts) > 0 && !g.hostAllowed(host) {
		return fmt.Errorf("host not in allow list: %s", host)
	}
	return nil
}

func (g *SSRFGuard) hostAllowed(host string) bool {
	for _, allowed := range g.allowedHosts {
		if suffix, ok := strings.CutPrefix(allowed, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
			continue
		}
		if host == allowed {
			return true
		}
	}
	return false
}

func isBlockedAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, prefix := range blockedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// limitedTransport はレスポンスボディの読み取り量をlimit+1バイトまでに制限する。
// 超過の判定は呼び出し側が読み取った長さで行う。
type limitedTransport struct {
	base  http.RoundTripper
	limit int64
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = limitedBody{Reader: io.LimitReader(resp.Body, t.limit+1), Closer: resp.Body}
	return resp, nil
}

type limitedBody struct {
	io.Reader
	io.Closer
}
