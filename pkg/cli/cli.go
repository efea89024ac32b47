package cli

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zurustar/vmtrans/pkg/logger"
	"github.com/zurustar/vmtrans/pkg/source"
)

// 環境変数名
const (
	EnvLogLevel = "VMTRANS_LOG_LEVEL"
	EnvEncoding = "VMTRANS_ENCODING"
)

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	Inputs          []string // 入力ファイルまたはディレクトリ
	OutputPath      string   // 出力ファイルパス（入力が1ファイルの場合のみ）
	LogLevel        string   // ログレベル（debug, info, warn, error）
	Encoding        string   // ソースの文字コード（WHATWGラベル）
	StaticNamespace bool     // static変数名にファイル名を付ける
	StrictSegments  bool     // pointer/tempの範囲チェック
	KeepGoing       bool     // エラーのあったファイルの後も続行する
	ShowHelp        bool     // ヘルプ表示フラグ
}

// 値を取らないフラグ（reorderArgsで次の引数を取り込まない）
var boolFlags = map[string]bool{
	"-h": true, "--help": true, "-help": true,
	"--strict": true, "-strict": true,
	"--static-namespace": true, "-static-namespace": true,
	"-k": true, "--keep-going": true, "-keep-going": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("vmtrans", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	config := &Config{}

	fs.StringVar(&config.OutputPath, "output", "", "出力ファイルパス")
	fs.StringVar(&config.OutputPath, "o", "", "出力ファイルパス（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.StringVar(&config.Encoding, "encoding", source.DefaultEncoding, "ソースの文字コード")
	fs.StringVar(&config.Encoding, "e", source.DefaultEncoding, "ソースの文字コード（短縮形）")
	fs.BoolVar(&config.StaticNamespace, "static-namespace", false, "static変数名にファイル名を付ける")
	fs.BoolVar(&config.StrictSegments, "strict", false, "pointer/tempの範囲をチェックする")
	fs.BoolVar(&config.KeepGoing, "keep-going", true, "エラーの後も残りのファイルを処理する")
	fs.BoolVar(&config.KeepGoing, "k", true, "エラーの後も残りのファイルを処理する（短縮形）")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !set["log-level"] && !set["l"] {
		if v := os.Getenv(EnvLogLevel); v != "" {
			config.LogLevel = v
		}
	}
	if !set["encoding"] && !set["e"] {
		if v := os.Getenv(EnvEncoding); v != "" {
			config.Encoding = v
		}
	}

	// ログレベルの検証
	config.LogLevel = strings.ToLower(config.LogLevel)
	if _, err := logger.ParseLevel(config.LogLevel); err != nil {
		return nil, fmt.Errorf("%w (must be %s)", err, strings.Join(logger.Levels, ", "))
	}

	// 文字コードの検証
	if _, err := source.NewLoader(config.Encoding); err != nil {
		return nil, err
	}

	config.Inputs = fs.Args()

	if config.OutputPath != "" && len(config.Inputs) > 1 {
		return nil, fmt.Errorf("--output requires a single input, got %d", len(config.Inputs))
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// "--" 以降はすべて位置引数
		if arg == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 1 && arg[0] == '-' {
			flags = append(flags, arg)

			// -o out.asm のように値を取るフラグは次の引数も追加
			if strings.Contains(arg, "=") || boolFlags[arg] {
				continue
			}
			if i+1 < len(args) && len(args[i+1]) > 0 && args[i+1][0] != '-' {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(append(flags, "--"), positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp(w io.Writer) {
	fmt.Fprintf(w, `vmtrans - VM to Hack assembly translator

Usage:
  vmtrans [options] <file.vm | directory>...

Arguments:
  file.vm       変換するVMソースファイル（大文字小文字を区別せずに検索）
  directory     ディレクトリ直下の *.vm をすべて変換
                出力は入力と同じ場所に <name>.asm として書き込む

Options:
  -o, --output <path>         出力ファイルパス（入力が1ファイルの場合のみ）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  -e, --encoding <label>      ソースの文字コード（デフォルト: utf-8）
  --static-namespace          static変数を <ファイル名>.<n> で出力
  --strict                    pointer 0..1 / temp 0..7 の範囲外をエラーにする
  -k, --keep-going=false      最初にエラーになったファイルで停止
  -h, --help                  このヘルプを表示

Environment Variables:
  %s=<level>     ログレベル
  %s=<label>      ソースの文字コード

Examples:
  vmtrans SimpleAdd.vm                  SimpleAdd.asm を出力
  vmtrans -o out/Prog.asm Prog.vm       出力先を指定
  vmtrans --static-namespace ./project  ディレクトリ内の全ファイルを変換
  vmtrans -l debug StackTest.vm         正規化した行をデバッグログに出力
`, EnvLogLevel, EnvEncoding)
}
