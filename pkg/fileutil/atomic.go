package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// 書き込み途中の一時ファイル（異常終了時に削除する）
var (
	pendingMu sync.Mutex
	pending   = map[string]struct{}{}
)

// WriteFileAtomic は同じディレクトリの一時ファイルに書き込み、完了後にリネームする
// 失敗した場合、path には何も残らない
func WriteFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	track(tmpName)
	defer func() {
		untrack(tmpName)
		if err != nil {
			os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	if err = os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", tmpName, path, err)
	}
	return nil
}

// RemovePendingTemps は書き込み途中の一時ファイルをすべて削除する
// atexit のハンドラとして登録する
func RemovePendingTemps() {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	for name := range pending {
		os.Remove(name)
		delete(pending, name)
	}
}

// PendingTemps は書き込み途中の一時ファイル数を返す
func PendingTemps() int {
	pendingMu.Lock()
	defer pendingMu.Unlock()
	return len(pending)
}

func track(name string) {
	pendingMu.Lock()
	pending[name] = struct{}{}
	pendingMu.Unlock()
}

func untrack(name string) {
	pendingMu.Lock()
	delete(pending, name)
	pendingMu.Unlock()
}
