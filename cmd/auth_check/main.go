package main

import (
	"flag"
	"fmt"
	"os"

	"redminetokanboard/api"
	"redminetokanboard/config"
	"redminetokanboard/utils"
)

func main() {
	// ヘルプフラグの定義
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	utils.LogInfo("Redmine / Kanboard 認証確認ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	// Redmineの認証チェック
	redmineClient := api.NewRedmineClient(cfg)
	utils.LogInfo("Redmine APIの認証を確認しています...")
	if err := redmineClient.CheckAuth(); err != nil {
		utils.LogError("Redmine認証エラー: %v", err)
		utils.LogError("REDMINE_URL と REDMINE_API_KEY を確認してください。")
		os.Exit(1)
	}
	utils.LogInfo("Redmine認証成功！ 接続先: %s", cfg.RedmineURL)

	// Kanboardの認証チェック
	kanboardClient := api.NewKanboardClient(cfg)
	utils.LogInfo("Kanboard APIの認証を確認しています...")
	if err := kanboardClient.CheckAuth(); err != nil {
		utils.LogError("Kanboard認証エラー: %v", err)
		utils.LogError("KANBOARD_URL と KANBOARD_API_TOKEN を確認してください。")
		os.Exit(1)
	}
	utils.LogInfo("Kanboard認証成功！ 接続先: %s", cfg.KanboardURL)

	utils.LogInfo("両システムの認証情報は正常です。")
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Redmine / Kanboard 認証確認ツール

使用方法:
  %s [オプション]

オプション:
  -help               このヘルプを表示する

環境変数:
  REDMINE_URL         Redmine URL (必須)
  REDMINE_API_KEY     Redmine APIキー (必須)
  KANBOARD_URL        Kanboard JSON-RPCエンドポイント (必須)
  KANBOARD_USERNAME   Kanboard APIユーザー名 (デフォルト: jsonrpc)
  KANBOARD_API_TOKEN  Kanboard APIトークン (必須)

説明:
  このツールは両システムのAPI認証情報が正しく設定されているかを確認します。
  認証が成功すれば、移行ツールも正常に動作する可能性が高いです。
`, os.Args[0])
}
