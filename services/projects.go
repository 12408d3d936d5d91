package services

import (
	"fmt"
	"time"

	"redminetokanboard/models"
	"redminetokanboard/utils"
)

// SyncProjects は全RedmineプロジェクトにKanboardプロジェクトが対応することを
// 保証します。対応付けのキーはプロジェクト名です。プロジェクトごとに
// メンバーのアクセス権付与、カラム移行、カテゴリ移行まで行います。
func (m *Migrator) SyncProjects() error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "プロジェクト移行")

	projects, err := m.source.ListProjects()
	if err != nil {
		return fmt.Errorf("プロジェクト一覧取得エラー: %w", err)
	}

	for _, project := range projects {
		project := project

		kbProject, err := m.projects.Resolve(project.ID,
			func() (*models.KanboardProject, error) {
				return m.target.GetProjectByName(project.Name)
			},
			func() error {
				utils.LogInfo("プロジェクトが存在しないため作成します: %s", project.Name)
				_, err := m.target.CreateProject(project.Name)
				return err
			})
		if err != nil {
			return fmt.Errorf("プロジェクト %s の移行エラー: %w", project.Name, err)
		}

		kbProjectID := kbProject.ID.Int()

		if err := m.grantMemberships(project, kbProjectID); err != nil {
			return err
		}

		// Kanboardではカラム（状態）はプロジェクト帰属
		if err := m.syncColumns(project.Name, kbProjectID); err != nil {
			return err
		}

		if err := m.syncCategories(project.ID, project.Name, kbProjectID); err != nil {
			return err
		}

		m.pairs = append(m.pairs, projectPair{sourceID: project.ID, targetID: kbProjectID})
	}

	utils.LogInfo("プロジェクト移行完了: %d 件", len(m.pairs))
	return nil
}

// grantMemberships はプロジェクトの個人メンバーにアクセス権を付与します。
// グループ単位のメンバーシップは無視します。
// 既に付与済みのメンバーはスキップし、再実行時の重複付与を避けます。
func (m *Migrator) grantMemberships(project models.RedmineProject, kbProjectID int) error {
	granted, err := m.target.GetProjectUsers(kbProjectID)
	if err != nil {
		return fmt.Errorf("プロジェクト %s のメンバー取得エラー: %w", project.Name, err)
	}

	for _, membership := range project.Memberships {
		if membership.User == nil {
			// グループは無視
			continue
		}

		kbUser, ok := m.users.Get(membership.User.ID)
		if !ok {
			// ロック済みユーザーなどはユーザー一覧に現れないことがある
			utils.LogWarn("プロジェクト %s のメンバー %s (ID %d) は未移行のためアクセス権付与をスキップします",
				project.Name, membership.User.Name, membership.User.ID)
			continue
		}

		if _, exists := granted[kbUser.ID.Int()]; exists {
			continue
		}

		if err := m.target.AddProjectUser(kbProjectID, kbUser.ID.Int()); err != nil {
			return fmt.Errorf("プロジェクト %s へのアクセス権付与エラー (ユーザー %s): %w",
				project.Name, kbUser.Username, err)
		}
		utils.LogInfo("アクセス権を付与しました: %s → %s", kbUser.Username, project.Name)
	}

	return nil
}

// syncColumns はグローバルなRedmineステータスをプロジェクトのカラムとして
// 移行します。タイトルの一致で既存カラムを判定し、足りないものだけ追加します。
//
// 追加されたカラムの並び順や不要カラムの削除は運用者に委ねます。
func (m *Migrator) syncColumns(projectName string, kbProjectID int) error {
	columns, err := m.target.GetColumns(kbProjectID)
	if err != nil {
		return fmt.Errorf("プロジェクト %s のカラム取得エラー: %w", projectName, err)
	}

	existing := make(map[string]bool, len(columns))
	for _, column := range columns {
		existing[column.Title] = true
	}

	for _, status := range m.statuses {
		if existing[status.Name] {
			continue
		}

		utils.LogInfo("カラムが存在しないため作成します: %s (プロジェクト %s)", status.Name, projectName)
		if _, err := m.target.AddColumn(kbProjectID, status.Name); err != nil {
			return fmt.Errorf("カラム %s の作成エラー: %w", status.Name, err)
		}
	}

	return nil
}

// syncCategories はRedmineのイシューカテゴリ（プロジェクト帰属）を
// Kanboardのカテゴリとして移行します。名前の一致で既存を判定します。
func (m *Migrator) syncCategories(rmProjectID int, projectName string, kbProjectID int) error {
	kbCategories, err := m.target.GetAllCategories(kbProjectID)
	if err != nil {
		return fmt.Errorf("プロジェクト %s のカテゴリ取得エラー: %w", projectName, err)
	}

	existing := make(map[string]bool, len(kbCategories))
	for _, category := range kbCategories {
		existing[category.Name] = true
	}

	categories, err := m.source.ListCategories(rmProjectID)
	if err != nil {
		return fmt.Errorf("プロジェクト %s の移行元カテゴリ取得エラー: %w", projectName, err)
	}

	for _, category := range categories {
		if existing[category.Name] {
			continue
		}

		utils.LogInfo("カテゴリが存在しないため作成します: %s (プロジェクト %s)", category.Name, projectName)
		if _, err := m.target.CreateCategory(kbProjectID, category.Name); err != nil {
			return fmt.Errorf("カテゴリ %s の作成エラー: %w", category.Name, err)
		}
	}

	return nil
}

// projectCategoryMap はRedmineカテゴリID → Kanboardカテゴリの対応表を作成します
func (m *Migrator) projectCategoryMap(rmProjectID, kbProjectID int) (map[int]models.KanboardCategory, error) {
	kbCategories, err := m.target.GetAllCategories(kbProjectID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ取得エラー: %w", err)
	}

	byName := make(map[string]models.KanboardCategory, len(kbCategories))
	for _, category := range kbCategories {
		byName[category.Name] = category
	}

	categories, err := m.source.ListCategories(rmProjectID)
	if err != nil {
		return nil, fmt.Errorf("移行元カテゴリ取得エラー: %w", err)
	}

	categoryMap := make(map[int]models.KanboardCategory, len(categories))
	for _, category := range categories {
		kbCategory, ok := byName[category.Name]
		if !ok {
			return nil, fmt.Errorf("カテゴリ %s がKanboard側に存在しません（カテゴリ移行が未完了の可能性）", category.Name)
		}
		categoryMap[category.ID] = kbCategory
	}

	return categoryMap, nil
}
