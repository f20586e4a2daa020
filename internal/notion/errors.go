package notion

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Notion APIのエラーコード
const (
	ErrCodeValidation     = "validation_error"
	ErrCodeObjectNotFound = "object_not_found"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeUnauthorized   = "unauthorized"
)

// ErrNotConfigured は対象のデータベースIDが設定されていないことを示す。
var ErrNotConfigured = errors.New("notion: database id is not configured")

// APIError はNotion APIが2xx以外で返したエラー。
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("notion api error (status %d, code %s): %s", e.Status, e.Code, e.Message)
}

// Outcome はエラーの回復可能性の分類。
type Outcome int

const (
	// OutcomeOK はエラーなし。
	OutcomeOK Outcome = iota
	// OutcomeSchemaMismatch は名前付きプロパティが存在しない等のスキーマ不一致。
	// 呼び出し側はより単純なクエリで再試行できる。
	OutcomeSchemaMismatch
	// OutcomeNotFound は対象のページ・ブロック・データベースが存在しない。
	OutcomeNotFound
	// OutcomeFailure はそれ以外の予期しない失敗（ネットワーク、認証、5xx等）。
	OutcomeFailure
)

// String はメトリクスラベル用の文字列を返す。
func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeSchemaMismatch:
		return "schema_mismatch"
	case OutcomeNotFound:
		return "not_found"
	default:
		return "failure"
	}
}

// missingPropertyPhrases はプロパティ不在を示すvalidation_errorメッセージの定型句。
var missingPropertyPhrases = []string{
	"could not find property",
	"could not find sort property",
	"could not find filter property",
	"does not exist",
	"is not a property that exists",
}

// Classify はエラーを回復可能性で分類する。
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeOK
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return OutcomeFailure
	}
	switch {
	case apiErr.Code == ErrCodeValidation && mentionsMissingProperty(apiErr.Message):
		return OutcomeSchemaMismatch
	case apiErr.Code == ErrCodeObjectNotFound || apiErr.Status == http.StatusNotFound:
		return OutcomeNotFound
	default:
		return OutcomeFailure
	}
}

// MissingProperty はバックエンドが「nameという名前のプロパティは存在しない」と
// 報告したかどうかを判定する。
// nameは単語境界で照合するため、"PublishedAt"の不在は"Published"の不在とは判定されない。
func MissingProperty(err error, name string) bool {
	if Classify(err) != OutcomeSchemaMismatch {
		return false
	}
	var apiErr *APIError
	errors.As(err, &apiErr)
	return containsWord(apiErr.Message, name)
}

func mentionsMissingProperty(message string) bool {
	lower := strings.ToLower(message)
	for _, phrase := range missingPropertyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// containsWord はsの中にwordが識別子の境界で出現するかを判定する。
func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for offset := 0; offset < len(s); {
		idx := strings.Index(s[offset:], word)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(word)
		before := start == 0 || !isIdentByte(s[start-1])
		after := end == len(s) || !isIdentByte(s[end])
		if before && after {
			return true
		}
		offset = start + 1
	}
	return false
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
