package main

import (
	"bytes"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// 読み込み中に他のプロセスがファイルを変更した。
var ErrFileChanged = errors.New("読み込み中にファイルが変更されました")

// ! 書き換え処理の設定。
type Options struct {
	BaseURL   string // 置換対象のベースURL。
	SubPath   string // ベースURL直後に続く省略可能なサブパス。空なら既定値を使う。
	NoSubPath bool   // trueならサブパスを使わない(SubPathは無視される)。
	FileName  string // 対象ファイル名(大文字小文字は区別しない)。
	DryRun    bool   // trueならファイルを書き換えない。
	// trueなら内容が変わらないファイルは書き込まない。
	// watchモードでは自分の書き込みで再度イベントが発生しないように使う。
	SkipUnchanged bool
}

// ! 1ファイル分の処理結果。
type FileResult struct {
	Path         string
	Depth        int
	Prefix       string
	Replacements int
	Changed      bool // 内容が変化したかどうか。
	Written      bool // 実際にファイルへ書き込んだかどうか。
}

// ! 空の設定項目を既定値で埋める。
func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	switch {
	case o.NoSubPath:
		o.SubPath = ""
	case o.SubPath == "":
		o.SubPath = DefaultSubPath
	}
	if o.FileName == "" {
		o.FileName = DefaultFileName
	}
	return o
}

// ! ファイル名が対象ファイル名と一致するか(大文字小文字は区別しない)。
func IsTargetFile(name, target string) bool {
	return strings.EqualFold(name, target)
}

// ! ルート以下の対象ファイルをすべて書き換える。
// 1ファイルでも失敗した時点で処理を中断し、エラーを返す。
// 読めないサブディレクトリはログに残してスキップする。
func UpdateIndexFiles(root string, opts Options) ([]FileResult, error) {
	opts = opts.withDefaults()
	matcher, err := NewMatcher(opts.BaseURL, opts.SubPath)
	if err != nil {
		return nil, err
	}

	var results []FileResult
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("読み込めないためスキップ: %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// 対象ファイルのみを処理する。
		if d.IsDir() || !IsTargetFile(d.Name(), opts.FileName) {
			return nil
		}
		// ディレクトリを指すシンボリックリンクは対象外。
		if d.Type()&fs.ModeSymlink != 0 && isDirLink(path) {
			return nil
		}

		result, err := ProcessFile(root, path, matcher, opts)
		if err != nil {
			return err
		}
		results = append(results, result)
		return nil
	})
	if err != nil {
		return results, err
	}
	return results, nil
}

func isDirLink(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ! 単一の対象ファイルを読み込み、置換して書き戻す。
func ProcessFile(root, path string, matcher *Matcher, opts Options) (FileResult, error) {
	depth, err := FolderDepth(root, filepath.Dir(path))
	if err != nil {
		return FileResult{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return FileResult{}, errors.Wrapf(err, "ファイル情報の取得に失敗: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return FileResult{}, errors.Wrapf(err, "ファイル読み込みエラー: %s", path)
	}
	if !utf8.Valid(content) {
		return FileResult{}, errors.Errorf("UTF-8としてデコードできません: %s", path)
	}

	prefix := ReplacementPrefix(depth)
	updated, count := matcher.Rewrite(string(content), prefix)

	result := FileResult{
		Path:         path,
		Depth:        depth,
		Prefix:       prefix,
		Replacements: count,
		Changed:      !bytes.Equal(content, []byte(updated)),
	}

	switch {
	case opts.DryRun:
		log.Printf("[DRY-RUN] %s (depth=%d) - '%s' に置換予定 (%d件)", path, depth, prefix, count)
		return result, nil
	case opts.SkipUnchanged && !result.Changed:
		return result, nil
	}

	// 読み込み後にサイズや更新時刻が変わっていれば、まだ書き込み中とみなして書き戻さない。
	if now, err := os.Stat(path); err != nil || now.Size() != info.Size() || !now.ModTime().Equal(info.ModTime()) {
		return result, errors.Wrapf(ErrFileChanged, "%s", path)
	}

	if err := os.WriteFile(path, []byte(updated), info.Mode().Perm()); err != nil {
		return FileResult{}, errors.Wrapf(err, "ファイル書き込みエラー: %s", path)
	}
	result.Written = true

	log.Printf("[OK] %s を更新 (depth=%d) - ドメインを '%s' に置換 (%d件)", path, depth, prefix, count)
	return result, nil
}
