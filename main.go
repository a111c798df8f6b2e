package main

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"
)

// ! 引数を管理する構造体。
type Args struct {
	RootDir  string  `arg:"positional" help:"書き換え対象のミラーのルートディレクトリ"`
	Config   string  `arg:"-c,--config,env:RELURL_CONFIG" help:"設定ファイル(YAML)のパス"`
	BaseURL  string  `arg:"--base-url,env:RELURL_BASE_URL" help:"相対パスに置き換えるベースURL (既定: https://themes.pixelwars.org)"`
	SubPath  *string `arg:"--sub-path,env:RELURL_SUB_PATH" help:"ベースURLの直後に続く省略可能なパス (既定: /logistica/demo-01)"`
	FileName string  `arg:"--file-name,env:RELURL_FILE_NAME" help:"対象ファイル名。大文字小文字は区別しない (既定: index.html)"`
	DryRun   bool    `arg:"-n,--dry-run" help:"ファイルを書き換えずに結果だけを出力する"`
	Watch    bool    `arg:"-w,--watch" help:"書き換え後もディレクトリを監視し、追加・更新された対象ファイルを書き換え続ける"`
}

// ! 初期化処理でログ設定を行う。
func init() {
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ltime | log.Lshortfile)
}

// ! メイン関数。引数解析後に書き換え処理を実行する。
func main() {
	ParseArgs()
	err := RewriteMirror()
	if err != nil {
		panic(errors.Errorf("書き換え処理に失敗しました: %v", err))
	}
}

func (Args) Version() string {
	return GetVersion()
}

func (Args) Description() string {
	return "ダウンロードしたWebサイトのミラー内の index.html にある絶対URLを、階層に応じた相対パスへ書き換える。"
}

func ShowHelp(post string) {
	buf := new(bytes.Buffer)
	parser.WriteHelp(buf)
	help := buf.String()
	help = strings.ReplaceAll(help, "display this help and exit", "ヘルプを出力する。")
	help = strings.ReplaceAll(help, "display version and exit", "バージョンを出力する。")
	fmt.Printf("%v\n", help)
	if len(post) != 0 {
		fmt.Println(post)
	}
	os.Exit(1)
}

func GetFileNameWithoutExt(path string) string {
	return filepath.Base(path[:len(path)-len(filepath.Ext(path))])
}

func GetVersion() string {
	if len(revision) == 0 {
		// go installでビルドされた場合、gitの情報がなくなる。その場合v0.0.0.のように末尾に.がついてしまうのを避ける。
		return fmt.Sprintf("%v version %v", GetFileNameWithoutExt(os.Args[0]), version)
	} else {
		return fmt.Sprintf("%v version %v.%v", GetFileNameWithoutExt(os.Args[0]), version, revision)
	}
}

func ShowVersion() {
	fmt.Printf("%s\n", GetVersion())
	os.Exit(0)
}

// グローバル変数。
var (
	args   Args
	parser *arg.Parser // ShowHelp() で使う

	version  string = "debug build"   // makefileからビルドされると上書きされる。
	revision string = func() string { // {{{
		revision := ""
		modified := false
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					revision = setting.Value
					if len(setting.Value) > 7 {
						revision = setting.Value[:7] // 最初の7文字にする
					}
				}
				if setting.Key == "vcs.modified" {
					modified = setting.Value == "true"
				}
			}
		}
		if modified {
			revision = "develop+" + revision
		}
		return revision
	}() // }}}
)

// ! go-argを使用して引数を解析する。
func ParseArgs() {
	var err error
	parser, err = arg.NewParser(arg.Config{Program: GetFileNameWithoutExt(os.Args[0]), IgnoreEnv: false}, &args)
	if err != nil {
		ShowHelp(fmt.Sprintf("%v", errors.Errorf("%v", err)))
		os.Exit(1)
	}

	err = parser.Parse(os.Args[1:])
	if err != nil {
		switch {
		case errors.Is(err, arg.ErrHelp):
			ShowHelp("")
			os.Exit(1)
		case errors.Is(err, arg.ErrVersion):
			ShowVersion()
			os.Exit(0)
		case strings.Contains(err.Error(), "unknown argument"):
			fmt.Printf("%s\n", errors.Errorf("%v", err))
			os.Exit(1)
		default:
			panic(errors.Errorf("%v", err))
		}
	}
}

// ! 絶対URL→相対パス書き換えのメイン処理を行う。
func RewriteMirror() error {
	cfg, err := LoadConfig(args.Config)
	if err != nil {
		return err
	}

	rootDir, opts := ResolveOptions(args, cfg)
	if opts.DryRun && args.Watch {
		return errors.New("--dry-run と --watch は同時に指定できません")
	}
	root, err := ResolveRoot(rootDir)
	if err != nil {
		return err
	}

	// 書き換え中に追加されたファイルも拾えるように、監視は先に準備しておく。
	var watcher *IndexWatcher
	if args.Watch {
		watcher, err = NewIndexWatcher(root, opts)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	log.Printf("書き換えを開始します: %s", root)
	results, err := UpdateIndexFiles(root, opts)
	if err != nil {
		return errors.Wrap(err, "対象ファイルの書き換えに失敗")
	}

	changed := 0
	for _, r := range results {
		if r.Changed {
			changed++
		}
	}
	if opts.DryRun {
		fmt.Printf("確認完了: %d件中 %d件が変更対象 (%s)\n", len(results), changed, root)
	} else {
		fmt.Printf("書き換え完了: %d件中 %d件を変更 (%s)\n", len(results), changed, root)
	}

	if watcher == nil {
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watcher.Run(ctx)
}

// ! ルートディレクトリを絶対パスに正規化し、存在を確認する。
func ResolveRoot(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("ルートディレクトリが指定されていません (引数または設定ファイルの root で指定)")
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrapf(err, "絶対パスに変換できません: %s", dir)
	}
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return "", errors.Errorf("ルートディレクトリが存在しません: %s", root)
	}
	if err != nil {
		return "", errors.Wrapf(err, "ルートディレクトリを確認できません: %s", root)
	}
	if !info.IsDir() {
		return "", errors.Errorf("ディレクトリではありません: %s", root)
	}
	return root, nil
}
