package main

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// 最後のイベントからこの時間だけ変化がなければ、ダウンロードが終わったとみなす。
const defaultQuietPeriod = 2 * time.Second

// 書き換え待ちのファイル。
type pendingFile struct {
	lastEvent time.Time
	size      int64
	modTime   time.Time
}

// ! ルート以下を監視し、対象ファイルが追加・更新されるたびに書き換える。
// 書き込み途中のファイルを壊さないように、しばらく変化がなくなってから処理する。
type IndexWatcher struct {
	root    string
	opts    Options
	matcher *Matcher
	w       *fsnotify.Watcher
	quiet   time.Duration
	pending map[string]pendingFile
}

// ! 監視を準備する。戻った時点でルート以下の全ディレクトリが監視対象になっている。
func NewIndexWatcher(root string, opts Options) (*IndexWatcher, error) {
	opts = opts.withDefaults()
	// 自分の書き込みで再びイベントが発生しても、内容が変わらなければ書き込まない。
	opts.SkipUnchanged = true

	matcher, err := NewMatcher(opts.BaseURL, opts.SubPath)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "ファイル監視の開始に失敗")
	}
	iw := &IndexWatcher{
		root:    root,
		opts:    opts,
		matcher: matcher,
		w:       w,
		quiet:   defaultQuietPeriod,
		pending: make(map[string]pendingFile),
	}
	if err := iw.watchRecursive(root, false); err != nil {
		w.Close()
		return nil, err
	}
	return iw, nil
}

// ! ctx がキャンセルされるまでイベントを処理する。
func (iw *IndexWatcher) Run(ctx context.Context) error {
	defer iw.w.Close()
	log.Printf("監視を開始します: %s", iw.root)

	ticker := time.NewTicker(iw.quiet / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("監視を終了します: %s", iw.root)
			return nil
		case event, ok := <-iw.w.Events:
			if !ok {
				return nil
			}
			iw.handleEvent(event)
		case err, ok := <-iw.w.Errors:
			if !ok {
				return nil
			}
			log.Printf("監視エラー: %v", err)
		case now := <-ticker.C:
			iw.flush(now)
		}
	}
}

func (iw *IndexWatcher) Close() error {
	return iw.w.Close()
}

// ! dir 以下の全ディレクトリを監視対象に加える。
// queueFiles がtrueなら、見つけた対象ファイルを書き換え待ちに加える。
func (iw *IndexWatcher) watchRecursive(dir string, queueFiles bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return errors.Wrapf(err, "ディレクトリを監視できません: %s", path)
			}
			log.Printf("監視をスキップ: %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			if queueFiles && IsTargetFile(d.Name(), iw.opts.FileName) {
				iw.enqueue(path)
			}
			return nil
		}
		if err := iw.w.Add(path); err != nil {
			if errors.Is(err, syscall.ENOSPC) {
				log.Printf("inotifyの監視数の上限に達しました (%s で停止)。fs.inotify.max_user_watches を増やしてください。", path)
				return filepath.SkipAll
			}
			log.Printf("監視の追加に失敗: %s: %v", path, err)
		}
		return nil
	})
}

// ! 1つのイベントを処理する。
func (iw *IndexWatcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(event.Name)
	if err != nil {
		// 作成直後に削除・リネームされた場合。
		delete(iw.pending, event.Name)
		return
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := iw.watchRecursive(event.Name, true); err != nil {
				log.Printf("新しいディレクトリを監視できません: %v", err)
			}
		}
		return
	}
	if IsTargetFile(filepath.Base(event.Name), iw.opts.FileName) {
		iw.enqueue(event.Name)
	}
}

// ! 書き換え待ちに加える。既にあれば待ち時間をリセットする。
func (iw *IndexWatcher) enqueue(path string) {
	p := pendingFile{lastEvent: time.Now()}
	if info, err := os.Stat(path); err == nil {
		p.size = info.Size()
		p.modTime = info.ModTime()
	}
	iw.pending[path] = p
}

// ! 一定時間変化のなかったファイルを書き換える。
// サイズや更新時刻がまだ変わっているファイルは待ち直す。
func (iw *IndexWatcher) flush(now time.Time) {
	for path, p := range iw.pending {
		if now.Sub(p.lastEvent) < iw.quiet {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			delete(iw.pending, path)
			continue
		}
		if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
			iw.pending[path] = pendingFile{lastEvent: now, size: info.Size(), modTime: info.ModTime()}
			continue
		}
		delete(iw.pending, path)
		iw.process(path)
	}
}

// ! 監視中は1ファイルの失敗で止めず、ログに残して続行する。
func (iw *IndexWatcher) process(path string) {
	_, err := ProcessFile(iw.root, path, iw.matcher, iw.opts)
	switch {
	case err == nil:
	case errors.Is(err, ErrFileChanged):
		iw.enqueue(path)
	default:
		log.Printf("書き換えに失敗: %v", err)
	}
}
