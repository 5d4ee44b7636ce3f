// Package password はパスワード強度ポリシーの評価とハッシュ化を提供する。
package password

import (
	"strings"
)

// MinLength はパスワードの最小文字数。
const MinLength = 8

// SpecialChars は記号要件を満たす文字集合。
const SpecialChars = "!@#$%^&*"

// 1要件あたりの加点。5要件すべて満たすと100になる。
const pointsPerRequirement = 20

// Strength はパスワード強度のラベル。
type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

// Requirements は各要件の充足状況。
// JSONキーはクライアントが要件ごとの表示に使うため固定。
type Requirements struct {
	MinLength bool `json:"minLength"`
	Uppercase bool `json:"uppercase"`
	Lowercase bool `json:"lowercase"`
	Number    bool `json:"number"`
	Special   bool `json:"special"`
}

// satisfied は満たしている要件の数を返す。
func (r Requirements) satisfied() int {
	n := 0
	for _, ok := range []bool{r.MinLength, r.Uppercase, r.Lowercase, r.Number, r.Special} {
		if ok {
			n++
		}
	}
	return n
}

// Evaluation はパスワードポリシーの評価結果。
type Evaluation struct {
	Requirements Requirements
	AllMet       bool
	Score        int
	Strength     Strength
}

// Evaluate はパスワードを5つの独立した要件で評価する。
// 文字数はUTF-16のコードユニット数で数える（絵文字などBMP外の文字は2文字）。英大文字・英小文字・数字はASCIIの範囲のみを対象とする。
//
// スコアは満たした要件数×20。強度は67以上でstrong、34以上でmedium、それ未満でweak。
// AllMetは5要件すべてを満たす場合のみtrueになる。
func Evaluate(pw string) Evaluation {
	req := Requirements{
		MinLength: utf16Len(pw) >= MinLength,
	}
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			req.Uppercase = true
		case r >= 'a' && r <= 'z':
			req.Lowercase = true
		case r >= '0' && r <= '9':
			req.Number = true
		case strings.ContainsRune(SpecialChars, r):
			req.Special = true
		}
	}

	n := req.satisfied()
	score := n * pointsPerRequirement

	strength := StrengthWeak
	if score >= 67 {
		strength = StrengthStrong
	} else if score >= 34 {
		strength = StrengthMedium
	}

	return Evaluation{
		Requirements: req,
		AllMet:       n == 5,
		Score:        score,
		Strength:     strength,
	}
}

// utf16Len はUTF-16にエンコードした場合のコードユニット数を返す。
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}
