package services

import (
	"fmt"
	"sort"

	"redminetokanboard/models"
)

// BuildColorMap はトラッカー（イシュー種別）をKanboardのカラーへ位置的に割り当てます。
// 割り当てに意味はなく、衝突のない決定的な対応だけを保証します。
//
// カラーはKanboard側で固定の列挙であるため、トラッカーの種類がカラー数を
// 超える場合は種別の統合という人間の判断が必要になります。そのため黙って
// カラーを使い回すのではなく、何も変更しないうちにエラーで停止します。
func BuildColorMap(trackers []models.RedmineTracker, colors map[string]string) (map[int]string, error) {
	if len(trackers) > len(colors) {
		return nil, fmt.Errorf(
			"カラーパレット不足: トラッカー %d 種に対してカラーが %d 色しかありません。トラッカーの統合を検討してください",
			len(trackers), len(colors))
	}

	// Goのmapは反復順序が不定のため、カラーIDをソートして割り当てを決定的にする
	colorIDs := make([]string, 0, len(colors))
	for colorID := range colors {
		colorIDs = append(colorIDs, colorID)
	}
	sort.Strings(colorIDs)

	colorMap := make(map[int]string, len(trackers))
	for i, tracker := range trackers {
		colorMap[tracker.ID] = colorIDs[i]
	}

	return colorMap, nil
}
