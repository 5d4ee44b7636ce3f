// Command examexperts はExamExperts APIサーバーを起動する。
//
// サブコマンド:
//
//	serve        APIサーバーを起動する（デフォルト）
//	migrate      データベースマイグレーションを適用する
//	healthcheck  稼働中サーバーの /api/health を確認する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/examexperts/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "examexperts: %v\n", err)
		os.Exit(1)
	}
}
