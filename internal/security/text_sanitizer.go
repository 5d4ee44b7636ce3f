// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizer はユーザーが入力した表示名などのプレーンテキストから
// HTMLマークアップを除去する。bluemondayのStrictPolicyで全タグを取り除き、
// エンティティはデコードしてプレーンテキストとして保存する。デコードで
// 新たなタグが現れた場合は結果が変わらなくなるまで除去を繰り返す。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプレーンテキスト入力のサニタイズ機能のインターフェース。
type TextSanitizer interface {
	// Sanitize は全てのHTMLタグを除去し、前後の空白を取り除いたテキストを返す。
	// script, styleタグは中身ごと除去される。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerの実装。
// bluemondayのPolicyはスレッドセーフなので単一インスタンスを共有する。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerの新しいインスタンスを生成する。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// maxSanitizePasses はエンティティの多重エンコードを展開する最大回数。
const maxSanitizePasses = 5

// Sanitize はタグを除去したプレーンテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	out := raw
	for i := 0; i < maxSanitizePasses; i++ {
		// StrictPolicyは出力をHTMLエスケープするため、保存前にデコードする
		next := html.UnescapeString(s.policy.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	// 収束しない入力はエスケープしたまま返す
	return strings.TrimSpace(s.policy.Sanitize(out))
}
