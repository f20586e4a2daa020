// Package media はCMSストレージの期限付き署名付きURLを安定したプロキシURLに置き換え、
// プロキシ要求時に現在有効なURLを再解決して中身を取得する機能を提供する。
package media

import (
	"net/url"
	"strings"
)

// transientHosts は期限付きURLを発行するCMSストレージのホスト名。
var transientHosts = []string{
	"prod-files-secure.s3.us-west-2.amazonaws.com",
	"file.notion.so",
}

// transientHostSuffixes はサブドメインを含めて期限付きとみなすホスト名の接尾辞。
var transientHostSuffixes = []string{
	".notion-static.com",
}

// IsTransient はURLがCMSストレージの署名付き（期限付き）URLかどうかを判定する。
// 外部ホストの安定したURLはfalse。
func IsTransient(rawURL string) bool {
	if rawURL == "" {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())

	for _, h := range transientHosts {
		if host == h {
			return true
		}
	}
	for _, suffix := range transientHostSuffixes {
		if strings.HasSuffix(host, suffix) || host == strings.TrimPrefix(suffix, ".") {
			return true
		}
	}

	if host == "s3.us-west-2.amazonaws.com" && strings.Contains(u.Path, "secure.notion-static.com") {
		return true
	}
	if strings.HasSuffix(host, ".amazonaws.com") || host == "amazonaws.com" {
		return hasSignature(u.Query())
	}
	return false
}

func hasSignature(q url.Values) bool {
	for k := range q {
		if strings.EqualFold(k, "X-Amz-Signature") {
			return true
		}
	}
	return false
}
