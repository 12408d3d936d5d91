package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redminetokanboard/models"
)

func TestBuildColorMapSufficient(t *testing.T) {
	trackers := []models.RedmineTracker{
		{ID: 1, Name: "Bug"},
		{ID: 2, Name: "Feature"},
		{ID: 3, Name: "Support"},
	}
	colors := map[string]string{
		"yellow": "Yellow",
		"blue":   "Blue",
		"green":  "Green",
		"purple": "Purple",
	}

	colorMap, err := BuildColorMap(trackers, colors)
	require.NoError(t, err)
	require.Len(t, colorMap, len(trackers), "全トラッカーに割り当てがあること")

	// 単射であること（同じカラーが使い回されない）
	seen := make(map[string]bool)
	for trackerID, colorID := range colorMap {
		assert.Contains(t, colors, colorID, "トラッカー %d に未知のカラー %s", trackerID, colorID)
		assert.False(t, seen[colorID], "カラー %s が重複して割り当てられた", colorID)
		seen[colorID] = true
	}
}

func TestBuildColorMapInsufficient(t *testing.T) {
	trackers := []models.RedmineTracker{
		{ID: 1, Name: "Bug"},
		{ID: 2, Name: "Feature"},
	}
	colors := map[string]string{"yellow": "Yellow"}

	_, err := BuildColorMap(trackers, colors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "カラーパレット不足")
}

func TestBuildColorMapExactFit(t *testing.T) {
	trackers := []models.RedmineTracker{
		{ID: 1, Name: "Bug"},
		{ID: 2, Name: "Feature"},
	}
	colors := map[string]string{"yellow": "Yellow", "blue": "Blue"}

	colorMap, err := BuildColorMap(trackers, colors)
	require.NoError(t, err)
	assert.Len(t, colorMap, 2)
}

func TestBuildColorMapDeterministic(t *testing.T) {
	trackers := []models.RedmineTracker{
		{ID: 1, Name: "Bug"},
		{ID: 2, Name: "Feature"},
		{ID: 3, Name: "Support"},
	}
	colors := map[string]string{
		"yellow": "Yellow",
		"blue":   "Blue",
		"green":  "Green",
		"red":    "Red",
		"purple": "Purple",
	}

	// mapの反復順序に依存せず、毎回同じ割り当てになること
	first, err := BuildColorMap(trackers, colors)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := BuildColorMap(trackers, colors)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestBuildColorMapEmptyTrackers(t *testing.T) {
	colorMap, err := BuildColorMap(nil, map[string]string{"yellow": "Yellow"})
	require.NoError(t, err)
	assert.Empty(t, colorMap)
}
