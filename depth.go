package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ! ルートディレクトリから見たフォルダの深さを返す。
// ルート自身は0、ルート直下のフォルダは1、以降は区切り文字1つごとに1増える。
func FolderDepth(root, folder string) (int, error) {
	rel, err := filepath.Rel(root, folder)
	if err != nil {
		return 0, errors.Wrapf(err, "相対パスの計算に失敗: %s", folder)
	}
	if rel == "." {
		return 0, nil
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1, nil
}

// ! 深さに応じた置換プレフィックス("../"の繰り返し)を返す。
func ReplacementPrefix(depth int) string {
	if depth <= 0 {
		return ""
	}
	return strings.Repeat("../", depth)
}
