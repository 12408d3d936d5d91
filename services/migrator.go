package services

import (
	"fmt"
	"time"

	"redminetokanboard/config"
	"redminetokanboard/models"
	"redminetokanboard/utils"
)

// SourceReader は移行元（Redmine）に対する読み取り専用の契約です
type SourceReader interface {
	ListUsers() ([]models.RedmineUser, error)
	ListProjects() ([]models.RedmineProject, error)
	ListStatuses() ([]models.RedmineStatus, error)
	ListTrackers() ([]models.RedmineTracker, error)
	ListCategories(projectID int) ([]models.RedmineCategory, error)
	ListIssues(projectID int) ([]models.RedmineIssue, error)
	DownloadAttachment(contentURL string) ([]byte, error)
}

// TargetWriter は移行先（Kanboard）に対する読み書きの契約です
type TargetWriter interface {
	GetProjectByName(name string) (*models.KanboardProject, error)
	CreateProject(name string) (int, error)
	GetUserByName(username string) (*models.KanboardUser, error)
	CreateUser(username, password, name, email string) (int, error)
	GetColumns(projectID int) ([]models.KanboardColumn, error)
	AddColumn(projectID int, title string) (int, error)
	GetAllCategories(projectID int) ([]models.KanboardCategory, error)
	CreateCategory(projectID int, name string) (int, error)
	GetTaskByReference(projectID int, reference string) (*models.KanboardTask, error)
	CreateTask(req models.TaskRequest) (int, error)
	CreateComment(taskID, userID int, content string) (int, error)
	GetAllLinks() ([]models.KanboardLinkType, error)
	GetAllTaskLinks(taskID int) ([]models.KanboardTaskLink, error)
	CreateTaskLink(taskID, oppositeTaskID, linkID int) (int, error)
	GetProjectUsers(projectID int) (map[int]string, error)
	AddProjectUser(projectID, userID int) error
	GetColorList() (map[string]string, error)
	CreateTaskFile(projectID, taskID int, filename, blobBase64 string) (int, error)
}

// projectPair は移行元プロジェクトIDと移行先プロジェクトIDの対応です
type projectPair struct {
	sourceID int
	targetID int
}

// Migrator はRedmineからKanboardへの移行処理全体を保持・実行します。
// 実行中の対応表（ユーザー・プロジェクト・カラー）はすべてこの構造体の
// フィールドとして保持され、プロセス終了とともに破棄されます。
// 永続化しないことで、再実行時は毎回Kanboard側への名前／リファレンス検索で
// 対応を導出し直すため、途中で失敗しても安全に再実行できます。
type Migrator struct {
	config *config.Config
	source SourceReader
	target TargetWriter

	users    *IdentityMap[int, models.KanboardUser]
	projects *IdentityMap[int, models.KanboardProject]
	colors   map[int]string // トラッカーID → カラーID
	statuses []models.RedmineStatus
	pairs    []projectPair
}

// NewMigrator は新しいMigratorを作成します
func NewMigrator(cfg *config.Config, source SourceReader, target TargetWriter) *Migrator {
	return &Migrator{
		config:   cfg,
		source:   source,
		target:   target,
		users:    NewIdentityMap[int, models.KanboardUser](),
		projects: NewIdentityMap[int, models.KanboardProject](),
	}
}

// prepare はグローバル定義（ステータス・トラッカー・カラー）を取得し、
// トラッカー → カラーの割り当てを構築します。
// カラーパレットが不足している場合、Kanboard側へ一切の変更を加える前に
// エラーで停止します。
func (m *Migrator) prepare() error {
	statuses, err := m.source.ListStatuses()
	if err != nil {
		return fmt.Errorf("ステータス取得エラー: %w", err)
	}
	m.statuses = statuses

	trackers, err := m.source.ListTrackers()
	if err != nil {
		return fmt.Errorf("トラッカー取得エラー: %w", err)
	}

	colors, err := m.target.GetColorList()
	if err != nil {
		return fmt.Errorf("カラー一覧取得エラー: %w", err)
	}

	colorMap, err := BuildColorMap(trackers, colors)
	if err != nil {
		return err
	}
	m.colors = colorMap

	utils.LogInfo("準備完了: ステータス %d 件, トラッカー %d 種, カラー %d 色",
		len(m.statuses), len(trackers), len(colors))
	return nil
}

// Run は移行処理全体を実行します。
// 順序は厳密に、ユーザー → プロジェクト（カラム・カテゴリ含む） →
// プロジェクトごとにタスク（コメント含む） → リレーション、の直列実行です。
// いずれかの段階でエラーが発生した場合は即座に中断します。各段階は
// 名前／リファレンス検索により冪等であるため、中断後の再実行は安全です。
func (m *Migrator) Run(usersOnly, projectsOnly, skipRelations bool) error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "移行処理全体")

	if err := m.prepare(); err != nil {
		return err
	}

	if err := m.SyncUsers(); err != nil {
		return err
	}
	if usersOnly {
		return nil
	}

	if err := m.SyncProjects(); err != nil {
		return err
	}
	if projectsOnly {
		return nil
	}

	for _, pair := range m.pairs {
		if err := m.SyncTasks(pair.sourceID, pair.targetID); err != nil {
			return err
		}

		if skipRelations {
			continue
		}
		if err := m.SyncRelations(pair.sourceID, pair.targetID); err != nil {
			return err
		}
	}

	utils.LogInfo("移行処理が完了しました")
	return nil
}

// Inventory は移行元の内容を集計して表示します。両システムへの変更は行いません。
func (m *Migrator) Inventory() error {
	users, err := m.source.ListUsers()
	if err != nil {
		return fmt.Errorf("ユーザー一覧取得エラー: %w", err)
	}

	projects, err := m.source.ListProjects()
	if err != nil {
		return fmt.Errorf("プロジェクト一覧取得エラー: %w", err)
	}

	utils.LogInfo("移行元の内容: ユーザー %d 件, プロジェクト %d 件", len(users), len(projects))

	for _, project := range projects {
		issues, err := m.source.ListIssues(project.ID)
		if err != nil {
			return fmt.Errorf("プロジェクト %s のイシュー取得エラー: %w", project.Name, err)
		}

		categories, err := m.source.ListCategories(project.ID)
		if err != nil {
			return fmt.Errorf("プロジェクト %s のカテゴリ取得エラー: %w", project.Name, err)
		}

		utils.LogInfo("- プロジェクト '%s': イシュー %d 件, カテゴリ %d 件, メンバー %d 名",
			project.Name, len(issues), len(categories), len(project.Memberships))
	}

	return nil
}
