package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("REDMINE_URL", "https://redmine.example.com/")
	t.Setenv("REDMINE_API_KEY", "rm-key")
	t.Setenv("KANBOARD_URL", "http://localhost/jsonrpc.php")
	t.Setenv("KANBOARD_API_TOKEN", "kb-token")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://redmine.example.com", cfg.RedmineURL, "末尾のスラッシュは取り除かれること")
	assert.Equal(t, "jsonrpc", cfg.KanboardUsername)
	assert.Equal(t, "123123", cfg.DefaultUserPassword)
	assert.False(t, cfg.SyncAttachments)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100, cfg.PageSize)
}

func TestLoadConfigOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("KANBOARD_USERNAME", "migrator")
	t.Setenv("SYNC_ATTACHMENTS", "true")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "60")
	t.Setenv("PAGE_SIZE", "25")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "migrator", cfg.KanboardUsername)
	assert.True(t, cfg.SyncAttachments)
	assert.Equal(t, 60*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 25, cfg.PageSize)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDMINE_API_KEY", "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDMINE_API_KEY")
}

func TestRelationMapping(t *testing.T) {
	// 移行対象のリレーション種別はどちらも "blocks" へ変換される
	assert.Equal(t, "blocks", RelationMapping["precedes"])
	assert.Equal(t, "blocks", RelationMapping["duplicates"])

	// それ以外の種別は対象外
	_, ok := RelationMapping["relates"]
	assert.False(t, ok)
}
