// Package source reads VM source files and decodes them into raw text lines.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding はエンコーディング未指定時に使うラベル
const DefaultEncoding = "utf-8"

// Source は読み込んだソースファイルを表す
type Source struct {
	FileName string   // ファイル名
	Path     string   // 実際に開いたパス
	Lines    []string // UTF-8に変換済みの行（改行文字は含まない）
	Size     int64    // ファイルサイズ
}

// Loader はソースファイルの読み込みとデコードを行う
type Loader struct {
	name string
	enc  encoding.Encoding
}

// NewLoader はWHATWGラベル（utf-8, shift_jis, windows-1252 など）を指定してLoaderを作成する
func NewLoader(label string) (*Loader, error) {
	if label == "" {
		label = DefaultEncoding
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	name, err := htmlindex.Name(enc)
	if err != nil {
		name = strings.ToLower(label)
	}
	return &Loader{name: name, enc: enc}, nil
}

// Encoding は正規化されたエンコーディング名を返す
func (l *Loader) Encoding() string {
	return l.name
}

// Load はファイルを読み込み、行に分割して返す
func (l *Loader) Load(path string) (*Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	text, err := l.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to convert encoding: %w", err)
	}

	return &Source{
		FileName: filepath.Base(path),
		Path:     path,
		Lines:    SplitLines(text),
		Size:     info.Size(),
	}, nil
}

// Decode はバイト列をUTF-8文字列に変換する
// BOMがある場合は指定エンコーディングより優先する
func (l *Loader) Decode(data []byte) (string, error) {
	decoder := unicode.BOMOverride(l.enc.NewDecoder())
	reader := transform.NewReader(bytes.NewReader(data), decoder)

	out, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s: %w", l.name, err)
	}
	return string(out), nil
}

// SplitLines は LF / CRLF / CR のいずれの改行でも行に分割する
// 末尾の改行の後ろに空行は作らない
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
