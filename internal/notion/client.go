package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL はNotion公開APIのベースURL。
	DefaultBaseURL = "https://api.notion.com"
	// DefaultVersion はNotion-Versionヘッダーの既定値。
	DefaultVersion = "2022-06-28"
	// MaxPageSize はクエリ・ブロック一覧の1ページあたりの最大件数。
	MaxPageSize = 100
	// maxResponseSize はAPIレスポンスボディの上限（10MB）。
	maxResponseSize = 10 * 1024 * 1024
	// maxRateLimitRetries は429応答時の再試行回数。
	maxRateLimitRetries = 2
	// maxRetryAfter はRetry-Afterに従って待機する最大時間。
	maxRetryAfter = 5 * time.Second
)

// RequestObserver はAPI呼び出しの結果を観測する。メトリクス収集に使う。
type RequestObserver interface {
	ObserveCMSRequest(operation string, outcome string, duration time.Duration)
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	Token   string
	BaseURL string
	Version string
	// RateLimit は1秒あたりのリクエスト数の上限。0の場合は制限しない。
	RateLimit rate.Limit
	Burst     int
	Observer  RequestObserver
}

// Client はNotion公開APIのクライアント。
// プロセスで1つ生成し、依存性注入で各コンポーネントに渡す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
	observer   RequestObserver
	token      string
	baseURL    string
	version    string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(cfg ClientConfig, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	version := cfg.Version
	if version == "" {
		version = DefaultVersion
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	return &Client{
		httpClient: httpClient,
		logger:     logger,
		limiter:    limiter,
		observer:   cfg.Observer,
		token:      cfg.Token,
		baseURL:    baseURL,
		version:    version,
	}
}

// QueryDatabase はデータベースを1ページ分クエリする。
// POST /v1/databases/{id}/query
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error) {
	if databaseID == "" {
		return nil, ErrNotConfigured
	}
	if req.PageSize > MaxPageSize {
		req.PageSize = MaxPageSize
	}
	var resp QueryResponse
	path := "/v1/databases/" + url.PathEscape(databaseID) + "/query"
	if err := c.do(ctx, "query_database", http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueryAll はカーソルを順にたどってlimit件までの行を取得する。
// 前のページの取得を待ってから次のページを要求する。
func (c *Client) QueryAll(ctx context.Context, databaseID string, req QueryRequest, limit int) ([]Page, error) {
	if limit <= 0 {
		limit = MaxPageSize
	}

	var pages []Page
	cursor := req.StartCursor
	for {
		pageReq := req
		pageReq.StartCursor = cursor
		pageReq.PageSize = min(limit-len(pages), MaxPageSize)

		resp, err := c.QueryDatabase(ctx, databaseID, pageReq)
		if err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)

		if !resp.HasMore || resp.NextCursor == "" || len(pages) >= limit {
			break
		}
		cursor = resp.NextCursor
	}

	if len(pages) > limit {
		pages = pages[:limit]
	}
	return pages, nil
}

// RetrievePage はページを取得する。
// GET /v1/pages/{id}
func (c *Client) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	var page Page
	if err := c.do(ctx, "retrieve_page", http.MethodGet, "/v1/pages/"+url.PathEscape(pageID), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// RetrieveBlock はブロックを取得する。
// GET /v1/blocks/{id}
func (c *Client) RetrieveBlock(ctx context.Context, blockID string) (*Block, error) {
	var block Block
	if err := c.do(ctx, "retrieve_block", http.MethodGet, "/v1/blocks/"+url.PathEscape(blockID), nil, &block); err != nil {
		return nil, err
	}
	return &block, nil
}

// ListBlockChildren はブロックの子要素を1ページ分取得する。
// GET /v1/blocks/{id}/children
func (c *Client) ListBlockChildren(ctx context.Context, blockID, cursor string) (*BlockList, error) {
	q := url.Values{}
	q.Set("page_size", strconv.Itoa(MaxPageSize))
	if cursor != "" {
		q.Set("start_cursor", cursor)
	}
	path := "/v1/blocks/" + url.PathEscape(blockID) + "/children?" + q.Encode()

	var list BlockList
	if err := c.do(ctx, "list_block_children", http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// ListAllBlockChildren は次のカーソルが返らなくなるまで子要素を取得し、すべてを返す。
func (c *Client) ListAllBlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	var blocks []Block
	cursor := ""
	for {
		list, err := c.ListBlockChildren(ctx, blockID, cursor)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, list.Results...)
		if !list.HasMore || list.NextCursor == "" {
			return blocks, nil
		}
		cursor = list.NextCursor
	}
}

// do はAPIリクエストを送信し、レスポンスをoutにデコードする。
// 2xx以外の応答は*APIErrorとして返す。429はRetry-Afterに従って再試行する。
func (c *Client) do(ctx context.Context, operation, method, path string, body any, out any) error {
	start := time.Now()
	err := c.doWithRetry(ctx, method, path, body, out)
	if c.observer != nil {
		c.observer.ObserveCMSRequest(operation, Classify(err).String(), time.Since(start))
	}
	return err
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		payload = b
	}

	for attempt := 0; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return fmt.Errorf("rate limiter wait: %w", err)
			}
		}

		retryAfter, err := c.send(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}
		if retryAfter <= 0 || attempt >= maxRateLimitRetries {
			return err
		}

		c.logger.Warn("Notion APIのレート制限に達したため再試行します",
			slog.String("path", path),
			slog.Duration("retry_after", retryAfter),
			slog.Int("attempt", attempt+1),
		)
		timer := time.NewTimer(retryAfter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// send は1回分のHTTPリクエストを送信する。
// 429の場合は再試行までの待機時間をエラーと共に返す。
func (c *Client) send(ctx context.Context, method, path string, payload []byte, out any) (time.Duration, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", c.version)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("notion request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, fmt.Errorf("read notion response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := decodeAPIError(resp.StatusCode, data)
		if resp.StatusCode == http.StatusTooManyRequests {
			return parseRetryAfter(resp.Header.Get("Retry-After")), apiErr
		}
		return 0, apiErr
	}

	if out == nil {
		return 0, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return 0, fmt.Errorf("decode notion response: %w", err)
	}
	return 0, nil
}

// decodeAPIError はエラーレスポンスのボディをAPIErrorに変換する。
// ボディがJSONでない場合はステータスコードからコードを補う。
func decodeAPIError(status int, data []byte) *APIError {
	apiErr := &APIError{}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = codeForStatus(status)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
	}
	apiErr.Status = status
	return apiErr
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return ErrCodeValidation
	case http.StatusUnauthorized:
		return ErrCodeUnauthorized
	case http.StatusNotFound:
		return ErrCodeObjectNotFound
	case http.StatusTooManyRequests:
		return ErrCodeRateLimited
	default:
		return "http_" + strconv.Itoa(status)
	}
}

// parseRetryAfter はRetry-Afterヘッダー（秒）を解釈する。
// 不正値や未指定の場合は1秒、上限はmaxRetryAfter。
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 1 {
		return time.Second
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}
