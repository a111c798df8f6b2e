package main

import (
	"regexp"

	"github.com/pkg/errors"
)

const (
	DefaultBaseURL  = "https://themes.pixelwars.org"
	DefaultSubPath  = "/logistica/demo-01"
	DefaultFileName = "index.html"
)

// 置換後のパスとして取り込む文字列。", ', < と空白文字の手前まで。
// Goの\sはASCIIのみなので、Unicodeの空白文字も明示的に除外する。
const suffixPattern = `([^"'<\s\v\x1c-\x1f\x{85}\p{Z}]*)`

// ! ベースURL(とサブパス)に続くパスを検出する。
type Matcher struct {
	BaseURL string
	SubPath string
	re      *regexp.Regexp
}

// ! ベースURLとサブパスから Matcher を生成する。サブパスは空でもよい。
func NewMatcher(baseURL, subPath string) (*Matcher, error) {
	if baseURL == "" {
		return nil, errors.New("ベースURLが空です")
	}
	expr := `(?i)` + regexp.QuoteMeta(baseURL)
	if subPath != "" {
		expr += `(?:` + regexp.QuoteMeta(subPath) + `)?`
	}
	expr += suffixPattern
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, errors.Wrapf(err, "URLパターンのコンパイルに失敗: %s", expr)
	}
	return &Matcher{BaseURL: baseURL, SubPath: subPath, re: re}, nil
}

// ! 本文中の全マッチについて、ベースURLの後ろに続くパスを出現順に返す。
func (m *Matcher) Suffixes(content string) []string {
	matches := m.re.FindAllStringSubmatch(content, -1)
	suffixes := make([]string, 0, len(matches))
	for _, match := range matches {
		suffixes = append(suffixes, match[1])
	}
	return suffixes
}
