package recordmap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/portfolio/internal/notion"
)

const (
	// DefaultWebBaseURL はレコードマップを返すWeb APIのベースURL。
	DefaultWebBaseURL = "https://www.notion.so"
	// chunkLimit は1チャンクあたりのブロック数。
	chunkLimit = 100
	// maxChunks はページあたりの最大チャンク数。
	maxChunks = 50
	// maxChunkSize はチャンクレスポンスの上限（10MB）。
	maxChunkSize = 10 * 1024 * 1024
)

// ErrPageNotInChunk はレスポンスに要求したページのブロックが含まれていないことを示す。
var ErrPageNotInChunk = errors.New("recordmap: page block not present in response")

// Source はレコードマップの主経路。
type Source interface {
	Load(ctx context.Context, pageID string) (*RecordMap, error)
}

// WebSource はnotion.soのloadPageChunk APIからレコードマップを取得する。
// 公開ページのみを対象とし、認証は行わない。
type WebSource struct {
	httpClient *http.Client
	baseURL    string
}

// NewWebSource はWebSourceの新しいインスタンスを生成する。
func NewWebSource(baseURL string, httpClient *http.Client) *WebSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultWebBaseURL
	}
	return &WebSource{httpClient: httpClient, baseURL: baseURL}
}

type chunkCursor struct {
	Stack [][]json.RawMessage `json:"stack"`
}

type chunkRequest struct {
	PageID          string      `json:"pageId"`
	Limit           int         `json:"limit"`
	Cursor          chunkCursor `json:"cursor"`
	ChunkNumber     int         `json:"chunkNumber"`
	VerticalColumns bool        `json:"verticalColumns"`
}

type chunkResponse struct {
	RecordMap *RecordMap  `json:"recordMap"`
	Cursor    chunkCursor `json:"cursor"`
}

// Load はカーソルスタックが空になるまでチャンクを順に取得し、1つのレコードマップにまとめる。
func (s *WebSource) Load(ctx context.Context, pageID string) (*RecordMap, error) {
	id := notion.NormalizeID(pageID)
	result := New()

	cursor := chunkCursor{Stack: [][]json.RawMessage{}}
	for chunk := 0; chunk < maxChunks; chunk++ {
		resp, err := s.loadChunk(ctx, chunkRequest{
			PageID:      id,
			Limit:       chunkLimit,
			Cursor:      cursor,
			ChunkNumber: chunk,
		})
		if err != nil {
			return nil, err
		}
		result.merge(resp.RecordMap)

		if len(resp.Cursor.Stack) == 0 {
			break
		}
		cursor = resp.Cursor
	}

	if _, ok := result.Lookup(id); !ok {
		return nil, ErrPageNotInChunk
	}
	return result, nil
}

func (s *WebSource) loadChunk(ctx context.Context, body chunkRequest) (*chunkResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode chunk request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/v3/loadPageChunk", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create chunk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("load page chunk: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("load page chunk: unexpected status %d", resp.StatusCode)
	}

	var out chunkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxChunkSize)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode page chunk: %w", err)
	}
	return &out, nil
}
