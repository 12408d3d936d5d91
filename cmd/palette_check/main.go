package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"redminetokanboard/api"
	"redminetokanboard/config"
	"redminetokanboard/services"
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

	utils.LogInfo("カラーパレット確認ツール")

	// 設定の読み込み
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.LogError("設定の読み込みに失敗しました: %v", err)
		os.Exit(1)
	}

	redmineClient := api.NewRedmineClient(cfg)
	kanboardClient := api.NewKanboardClient(cfg)

	// トラッカーとカラーを取得
	trackers, err := redmineClient.ListTrackers()
	if err != nil {
		utils.LogError("トラッカー取得エラー: %v", err)
		os.Exit(1)
	}

	colors, err := kanboardClient.GetColorList()
	if err != nil {
		utils.LogError("カラー一覧取得エラー: %v", err)
		os.Exit(1)
	}

	utils.LogInfo("トラッカー: %d 種, カラー: %d 色", len(trackers), len(colors))

	// 割り当てを構築（不足していればここでエラーになる）
	colorMap, err := services.BuildColorMap(trackers, colors)
	if err != nil {
		utils.LogError("%v", err)
		os.Exit(1)
	}

	// トラッカーID順に割り当てを表示
	sort.Slice(trackers, func(i, j int) bool { return trackers[i].ID < trackers[j].ID })
	for _, tracker := range trackers {
		colorID := colorMap[tracker.ID]
		utils.LogInfo("- %s → %s (%s)", tracker.Name, colorID, colors[colorID])
	}

	utils.LogInfo("カラーパレットは十分です。移行を実行できます。")
}

// ヘルプメッセージを表示する関数
func printHelp() {
	fmt.Printf(`
カラーパレット確認ツール

使用方法:
  %s [オプション]

オプション:
  -help               このヘルプを表示する

説明:
  Redmineのトラッカー数とKanboardのカラー数を比較し、移行時に使われる
  トラッカー → カラーの割り当てを表示します。トラッカーの種類がカラー数を
  超える場合、移行ツールは何も変更せずに停止するため、事前にこのツールで
  確認できます。両システムへの変更は行いません。
`, os.Args[0])
}
