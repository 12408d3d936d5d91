package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Redmine API設定
	RedmineURL    string
	RedmineAPIKey string

	// Kanboard API設定
	KanboardURL      string
	KanboardUsername string
	KanboardAPIToken string

	// 移行設定
	DefaultUserPassword string
	SyncAttachments     bool

	// HTTP設定
	HTTPTimeout time.Duration
	MaxRetries  int
	PageSize    int
}

// RelationMapping はRedmineのリレーション種別からKanboardのリンクラベルへのマッピングです。
// ここに載っていない種別（relates, blocks, copied_to など）は移行対象外です。
var RelationMapping = map[string]string{
	"precedes":   "blocks",
	"duplicates": "blocks",
}

// ParentLinkLabel は親子関係に対応するKanboardのリンクラベルです
const ParentLinkLabel = "is a parent of"

// LoadConfig は環境変数から設定を読み込みます
func LoadConfig() (*Config, error) {
	// .envファイルを読み込む
	_ = godotenv.Load()

	config := &Config{
		RedmineURL:          strings.TrimRight(os.Getenv("REDMINE_URL"), "/"),
		RedmineAPIKey:       os.Getenv("REDMINE_API_KEY"),
		KanboardURL:         strings.TrimRight(os.Getenv("KANBOARD_URL"), "/"),
		KanboardUsername:    getEnvWithDefault("KANBOARD_USERNAME", "jsonrpc"),
		KanboardAPIToken:    os.Getenv("KANBOARD_API_TOKEN"),
		DefaultUserPassword: getEnvWithDefault("DEFAULT_USER_PASSWORD", "123123"),
		SyncAttachments:     getEnvAsBoolWithDefault("SYNC_ATTACHMENTS", false),
		HTTPTimeout:         time.Duration(getEnvAsIntWithDefault("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries:          getEnvAsIntWithDefault("MAX_RETRIES", 3),
		PageSize:            getEnvAsIntWithDefault("PAGE_SIZE", 100),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate は必須の設定値が揃っているかを確認します
func (c *Config) Validate() error {
	if c.RedmineURL == "" {
		return fmt.Errorf("REDMINE_URL が設定されていません")
	}
	if c.RedmineAPIKey == "" {
		return fmt.Errorf("REDMINE_API_KEY が設定されていません")
	}
	if c.KanboardURL == "" {
		return fmt.Errorf("KANBOARD_URL が設定されていません")
	}
	if c.KanboardAPIToken == "" {
		return fmt.Errorf("KANBOARD_API_TOKEN が設定されていません")
	}
	return nil
}

// デフォルト値付きで環境変数を取得
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// デフォルト値付きで環境変数を整数として取得
func getEnvAsIntWithDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// デフォルト値付きで環境変数を真偽値として取得
func getEnvAsBoolWithDefault(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
