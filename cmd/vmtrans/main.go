package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tebeka/atexit"

	"github.com/zurustar/vmtrans/pkg/app"
	"github.com/zurustar/vmtrans/pkg/fileutil"
)

func main() {
	// 中断された場合も書き込み途中の一時ファイルを残さない
	atexit.Register(fileutil.RemovePendingTemps)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		atexit.Exit(130)
	}()

	atexit.Exit(run(os.Args[1:]))
}

// run アプリケーションを実行し、終了コードを返す
func run(args []string) int {
	application := app.New()
	err := application.Run(args)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrUsage):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}
