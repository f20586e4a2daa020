// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// JSONエンドポイントのエラーボディとして返す。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, content, auth, system
	Action   string // 利用者向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeMissingID       = "MISSING_ID"
	ErrCodeMediaNotFound   = "MEDIA_NOT_FOUND"
	ErrCodeMediaFetch      = "MEDIA_FETCH_FAILED"
	ErrCodePostNotFound    = "POST_NOT_FOUND"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeUpstreamFailure = "UPSTREAM_FAILURE"
	ErrCodeInvalidParam    = "INVALID_PARAMETER"
)

// NewMissingIDError は画像プロキシの識別パラメータ欠落エラーを生成する。
func NewMissingIDError() *APIError {
	return &APIError{
		Code:     ErrCodeMissingID,
		Message:  "Missing ID",
		Category: "validation",
		Action:   "Pass pageId and prop, or blockId.",
	}
}

// NewMediaNotFoundError はメディアURLが解決できない場合のエラーを生成する。
func NewMediaNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeMediaNotFound,
		Message:  "Image not found",
		Category: "content",
		Action:   "Check that the page property or block holds a file.",
	}
}

// NewMediaFetchError はメディアのバイト取得失敗エラーを生成する。
func NewMediaFetchError() *APIError {
	return &APIError{
		Code:     ErrCodeMediaFetch,
		Message:  "Error proxying image",
		Category: "system",
		Action:   "Retry later.",
	}
}

// NewPostNotFoundError は記事未検出エラーを生成する。
func NewPostNotFoundError(slug string) *APIError {
	return &APIError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("post not found: %s", slug),
		Category: "content",
		Action:   "Check the post slug.",
	}
}

// NewInvalidParamError は不正なクエリパラメータのエラーを生成する。
func NewInvalidParamError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidParam,
		Message:  fmt.Sprintf("invalid parameter: %s", name),
		Category: "validation",
		Action:   "Fix the query parameter and retry.",
	}
}

// NewUpstreamFailureError はCMSへの問い合わせ失敗エラーを生成する。
func NewUpstreamFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamFailure,
		Message:  "content service is unavailable",
		Category: "system",
		Action:   "Retry later.",
	}
}
