package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ! 設定ファイル(YAML)の内容。
type Config struct {
	Root     string  `yaml:"root"`
	BaseURL  string  `yaml:"base_url"`
	SubPath  *string `yaml:"sub_path"` // 空文字を指定するとサブパスなしになる。
	FileName string  `yaml:"file_name"`
}

// ! 設定ファイルを読み込む。パスが空なら空の設定を返す。
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "設定ファイルの読み込みに失敗: %s", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "設定ファイルの解析に失敗: %s", path)
	}
	return cfg, nil
}

// ! 引数と設定ファイルをまとめて、ルートディレクトリと Options を決定する。
// 優先順位は 引数(環境変数) > 設定ファイル > 既定値。
func ResolveOptions(a Args, cfg Config) (string, Options) {
	root := firstNonEmpty(a.RootDir, cfg.Root)

	opts := Options{
		BaseURL:  firstNonEmpty(a.BaseURL, cfg.BaseURL, DefaultBaseURL),
		SubPath:  DefaultSubPath,
		FileName: firstNonEmpty(a.FileName, cfg.FileName, DefaultFileName),
		DryRun:   a.DryRun,
	}
	switch {
	case a.SubPath != nil:
		opts.SubPath = *a.SubPath
	case cfg.SubPath != nil:
		opts.SubPath = *cfg.SubPath
	}
	opts.NoSubPath = opts.SubPath == ""
	return root, opts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
