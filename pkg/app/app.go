package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zurustar/vmtrans/pkg/cli"
	"github.com/zurustar/vmtrans/pkg/compiler"
	"github.com/zurustar/vmtrans/pkg/fileutil"
	"github.com/zurustar/vmtrans/pkg/logger"
)

// 入力と出力の拡張子
const (
	SourceExt = ".vm"
	OutputExt = ".asm"
)

var (
	// ErrUsage はコマンドライン引数の誤りを表す
	ErrUsage = errors.New("usage error")

	// ErrTranslationFailed は1つ以上のファイルの変換に失敗したことを表す
	ErrTranslationFailed = errors.New("translation failed")
)

// Option はApplicationの設定を変更する
type Option func(*Application)

// WithOutput ヘルプの出力先を指定
func WithOutput(w io.Writer) Option {
	return func(app *Application) {
		app.out = w
	}
}

// WithLogWriter ログの出力先を指定（デフォルトは標準エラー出力）
func WithLogWriter(w io.Writer) Option {
	return func(app *Application) {
		app.logOut = w
	}
}

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config *cli.Config
	log    *slog.Logger
	out    io.Writer
	logOut io.Writer

	succeeded int // 成功したファイル数
	failed    int // 失敗したファイル数
}

// New Applicationを作成
func New(opts ...Option) *Application {
	app := &Application{out: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Operations 変換に成功したファイル数を返す
func (app *Application) Operations() int {
	return app.succeeded
}

// Errors 変換に失敗したファイル数を返す
func (app *Application) Errors() int {
	return app.failed
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	config, err := cli.ParseArgs(args)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	app.config = config

	if config.ShowHelp {
		cli.PrintHelp(app.out)
		return nil
	}
	if len(config.Inputs) == 0 {
		cli.PrintHelp(app.out)
		return fmt.Errorf("%w: no input files", ErrUsage)
	}

	// 2. ロガーの初期化
	if err := logger.InitLogger(config.LogLevel, app.logOut); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	app.log = logger.GetLogger()

	// 3. 入力ファイルの解決
	files := app.resolveInputs(config.Inputs)
	if config.OutputPath != "" && len(files) > 1 {
		app.log.Error("Output path given for more than one source file",
			"output", config.OutputPath, "files", len(files))
		return fmt.Errorf("%w: --output requires a single source file, got %d", ErrUsage, len(files))
	}

	// 4. ファイルごとに変換
	for _, file := range files {
		if err := app.translate(file); err != nil {
			app.failed++
			if !config.KeepGoing {
				app.log.Warn("Stopping after first failed file", "file", file)
				break
			}
			continue
		}
		app.succeeded++
	}

	app.log.Info(fmt.Sprintf("Completed %d operations with %d errors", app.succeeded, app.failed),
		"operations", app.succeeded, "errors", app.failed)

	if app.failed > 0 {
		return fmt.Errorf("%w: %d of %d files", ErrTranslationFailed, app.failed, app.succeeded+app.failed)
	}
	return nil
}

// resolveInputs 位置引数をファイル一覧に展開する
// ディレクトリは直下の *.vm、ファイルは大文字小文字を無視して検索する
// 解決できなかった入力はエラーとして数える
func (app *Application) resolveInputs(inputs []string) []string {
	var files []string
	for _, input := range inputs {
		info, err := os.Stat(input)
		if err == nil && info.IsDir() {
			found, err := fileutil.FindFilesByExt(input, SourceExt)
			if err != nil {
				app.log.Error("Failed to scan directory", "dir", input, "error", err)
				app.failed++
				continue
			}
			if len(found) == 0 {
				app.log.Error("No source files found", "dir", input, "ext", SourceExt)
				app.failed++
				continue
			}
			for _, f := range found {
				app.log.Info("File captured at", "path", f)
			}
			files = append(files, found...)
			continue
		}

		path, err := fileutil.ResolveFile(input)
		if err != nil {
			app.log.Error("Input not found", "input", input, "error", err)
			app.failed++
			continue
		}
		app.log.Info("File captured at", "path", path)
		files = append(files, path)
	}
	return files
}

// translate 1ファイルを変換し、成功した場合のみ出力を書き込む
func (app *Application) translate(path string) error {
	name := filepath.Base(path)
	app.log.Info("Working on", "file", name)

	opts := compiler.Options{
		Strict:   app.config.StrictSegments,
		Encoding: app.config.Encoding,
	}
	if app.config.StaticNamespace {
		opts.StaticNamespace = fileutil.BaseName(path)
	}

	res, err := compiler.TranslateFile(path, opts)
	if res != nil && res.Lines != nil {
		app.log.Info("Successfully read", "file", name, "lines", len(res.Lines))
		app.dumpLines(res)
	}
	if res != nil && res.Unterminated {
		app.log.Warn("Source ends inside a block comment", "file", name)
	}
	if err != nil {
		app.logError(name, err)
		return err
	}

	outPath := app.outputPath(path)
	if err := fileutil.WriteFileAtomic(outPath, res.Assembly, 0644); err != nil {
		app.log.Error("Failed to write output", "file", name, "output", outPath, "error", err)
		return err
	}

	app.log.Info("Successfully wrote to", "output", outPath,
		"instructions", len(res.Instructions), "labels", res.Labels)
	return nil
}

func (app *Application) outputPath(input string) string {
	if app.config.OutputPath != "" {
		return app.config.OutputPath
	}
	return fileutil.ReplaceExt(input, OutputExt)
}

// dumpLines 正規化した行をデバッグログに出力
func (app *Application) dumpLines(res *compiler.Result) {
	if !app.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	app.log.Debug("Captured contents", "file", res.FileName, "count", len(res.Lines))
	for _, l := range res.Lines {
		app.log.Debug("Line", "file", res.FileName, "line", l.Number, "text", l.Text)
	}
}

func (app *Application) logError(name string, err error) {
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		app.log.Error(ce.Message, "file", name, "phase", ce.Phase, "line", ce.Line, "column", ce.Column)
		if ce.Context != "" {
			app.log.Debug("Error context\n"+ce.Context, "file", name)
		}
		return
	}
	app.log.Error("Translation failed", "file", name, "error", err)
}
