package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"redminetokanboard/api"
	"redminetokanboard/config"
	"redminetokanboard/services"
	"redminetokanboard/utils"
)

func main() {
	// コマンドラインフラグの定義
	usersOnly := flag.Bool("users-only", false, "ユーザーの移行のみを実行する")
	projectsOnly := flag.Bool("projects-only", false, "ユーザーとプロジェクト（カラム・カテゴリ含む）の移行のみを実行する")
	skipRelations := flag.Bool("skip-relations", false, "リレーションの移行をスキップする")
	dryRun := flag.Bool("dry-run", false, "移行元の内容を集計して表示するだけで、何も変更しない")
	help := flag.Bool("help", false, "ヘルプを表示する")

	// フラグのパース
	flag.Parse()

	// ヘルプフラグが指定された場合はヘルプを表示
	if *help {
		printHelp()
		return
	}

	// 開始時間の記録
	startTime := time.Now()

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	utils.LogInfo("Redmine → Kanboard 移行ツール (v1.0.0)")

	// 必要なクライアントとサービスの初期化
	redmineClient := api.NewRedmineClient(cfg)
	kanboardClient := api.NewKanboardClient(cfg)
	migrator := services.NewMigrator(cfg, redmineClient, kanboardClient)

	if *dryRun {
		if err := migrator.Inventory(); err != nil {
			utils.LogError("集計に失敗しました: %v", err)
			os.Exit(1)
		}
		return
	}

	// 両システムの認証チェック
	if err := redmineClient.CheckAuth(); err != nil {
		utils.LogError("Redmine認証エラー: %v", err)
		os.Exit(1)
	}
	if err := kanboardClient.CheckAuth(); err != nil {
		utils.LogError("Kanboard認証エラー: %v", err)
		os.Exit(1)
	}

	// 移行の実行
	err = migrator.Run(*usersOnly, *projectsOnly, *skipRelations)
	if err != nil {
		utils.LogError("移行処理に失敗しました: %v", err)
		utils.LogError("各段階は冪等のため、原因を取り除いてから再実行すれば途中から再開できます。")
		os.Exit(1)
	}

	// 合計実行時間の表示
	elapsed := time.Since(startTime)
	utils.LogInfo("移行処理が完了しました。合計実行時間: %s", elapsed)
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
Redmine → Kanboard 移行ツール

使用方法:
  %s [オプション]

オプション:
  -users-only         ユーザーの移行のみを実行する
  -projects-only      ユーザーとプロジェクト（カラム・カテゴリ含む）の移行のみを実行する
  -skip-relations     リレーションの移行をスキップする
  -dry-run            移行元の内容を集計して表示するだけで、何も変更しない
  -help               このヘルプを表示する

環境変数:
  REDMINE_URL            Redmine URL (必須)
  REDMINE_API_KEY        Redmine APIキー (必須)
  KANBOARD_URL           Kanboard JSON-RPCエンドポイント (必須, 例: http://localhost/jsonrpc.php)
  KANBOARD_USERNAME      Kanboard APIユーザー名 (デフォルト: jsonrpc)
  KANBOARD_API_TOKEN     Kanboard APIトークン (必須)
  DEFAULT_USER_PASSWORD  作成するユーザーの初期パスワード (デフォルト: 123123)
  SYNC_ATTACHMENTS       添付ファイルも転送する (デフォルト: false)
  HTTP_TIMEOUT_SECONDS   HTTPタイムアウト秒数 (デフォルト: 30)
  MAX_RETRIES            一時的なエラーのリトライ回数 (デフォルト: 3)
  PAGE_SIZE              Redmine APIのページサイズ (デフォルト: 100)

例:
  # すべての処理を実行
  %s

  # ユーザーの移行のみを実行
  %s -users-only

  # リレーション以外を移行
  %s -skip-relations

  # 何も変更せずに移行元の内容を確認
  %s -dry-run
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], os.Args[0])
}
