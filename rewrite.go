package main

import (
	"regexp"
)

// 2個以上連続したスラッシュ。
var slashRunPattern = regexp.MustCompile(`//+`)

// ! ベースURLを深さに応じた相対パスへ置換し、重複したスラッシュを整理する。
// 置換した件数も返す。
func (m *Matcher) Rewrite(content, prefix string) (string, int) {
	count := 0
	replaced := m.re.ReplaceAllStringFunc(content, func(match string) string {
		count++
		sub := m.re.FindStringSubmatch(match)
		if len(sub) < 2 {
			return prefix
		}
		return prefix + sub[1]
	})
	return CollapseSlashes(replaced), count
}

// ! 連続したスラッシュを1つにまとめる。
// ただし直前が ':' の場合は "://" として残す(http:// や https:// を壊さない)。
func CollapseSlashes(s string) string {
	locs := slashRunPattern.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	buf := make([]byte, 0, len(s))
	last := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		buf = append(buf, s[last:start]...)
		if start > 0 && s[start-1] == ':' {
			buf = append(buf, "//"...)
		} else {
			buf = append(buf, '/')
		}
		last = end
	}
	buf = append(buf, s[last:]...)
	return string(buf)
}
