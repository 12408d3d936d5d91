package services

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"redminetokanboard/models"
	"redminetokanboard/utils"
)

// SyncTasks はプロジェクトの全イシュー（クローズ済み含む）をKanboardの
// タスクとして移行します。移行元イシューIDをタスクのリファレンスに記録し、
// 同じリファレンスを持つタスクが既に存在するイシューはスキップします
// （既存タスクの更新は行いません）。
//
// 前提: ユーザー移行・カラム移行・カテゴリ移行が完了していること。
func (m *Migrator) SyncTasks(rmProjectID, kbProjectID int) error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, fmt.Sprintf("タスク移行 (プロジェクト %d)", rmProjectID))

	issues, err := m.source.ListIssues(rmProjectID)
	if err != nil {
		return fmt.Errorf("イシュー一覧取得エラー: %w", err)
	}

	columns, err := m.target.GetColumns(kbProjectID)
	if err != nil {
		return fmt.Errorf("カラム取得エラー: %w", err)
	}
	columnsByTitle := make(map[string]models.KanboardColumn, len(columns))
	for _, column := range columns {
		columnsByTitle[column.Title] = column
	}

	categoryMap, err := m.projectCategoryMap(rmProjectID, kbProjectID)
	if err != nil {
		return err
	}

	created := 0
	for _, issue := range issues {
		existing, err := m.target.GetTaskByReference(kbProjectID, strconv.Itoa(issue.ID))
		if err != nil {
			return fmt.Errorf("イシュー %d のリファレンス検索エラー: %w", issue.ID, err)
		}
		if existing != nil {
			continue
		}

		if err := m.createTask(issue, kbProjectID, columnsByTitle, categoryMap); err != nil {
			return err
		}
		created++
	}

	utils.LogInfo("タスク移行完了: %d 件作成 (全 %d 件)", created, len(issues))
	return nil
}

// createTask は1件のイシューからKanboardタスクを作成し、続けてコメント
// （と設定によっては添付ファイル）を移行します
func (m *Migrator) createTask(issue models.RedmineIssue, kbProjectID int,
	columnsByTitle map[string]models.KanboardColumn,
	categoryMap map[int]models.KanboardCategory) error {

	column, ok := columnsByTitle[issue.Status.Name]
	if !ok {
		return fmt.Errorf("イシュー %d: ステータス %s に対応するカラムが存在しません", issue.ID, issue.Status.Name)
	}

	colorID, ok := m.colors[issue.Tracker.ID]
	if !ok {
		return fmt.Errorf("イシュー %d: トラッカー %s にカラーが割り当てられていません", issue.ID, issue.Tracker.Name)
	}

	// 担当者・カテゴリは移行元で未設定のことがあるため、その場合は
	// 設定しないままタスクを作成する
	ownerID := 0
	if issue.AssignedTo != nil {
		owner, ok := m.users.Get(issue.AssignedTo.ID)
		if !ok {
			utils.LogWarn("イシュー %d: 担当者 %s (ID %d) が未移行のため担当者なしで作成します",
				issue.ID, issue.AssignedTo.Name, issue.AssignedTo.ID)
		} else {
			ownerID = owner.ID.Int()
		}
	} else {
		utils.LogWarn("イシュー %d: 担当者が未設定です", issue.ID)
	}

	creatorID := 0
	if creator, ok := m.users.Get(issue.Author.ID); ok {
		creatorID = creator.ID.Int()
	}

	categoryID := 0
	if issue.Category != nil {
		category, ok := categoryMap[issue.Category.ID]
		if !ok {
			return fmt.Errorf("イシュー %d: カテゴリ %s (ID %d) の対応が見つかりません",
				issue.ID, issue.Category.Name, issue.Category.ID)
		}
		categoryID = category.ID.Int()
	}

	utils.LogInfo("タスクを作成します: %d %s", issue.ID, issue.Subject)
	taskID, err := m.target.CreateTask(models.TaskRequest{
		ProjectID:   kbProjectID,
		Title:       issue.Subject,
		Description: issue.Description,
		Reference:   strconv.Itoa(issue.ID),
		ColorID:     colorID,
		ColumnID:    column.ID.Int(),
		OwnerID:     ownerID,
		CreatorID:   creatorID,
		CategoryID:  categoryID,
		DateDue:     issue.DueDate,
		DateStarted: issue.StartDate,
	})
	if err != nil {
		return fmt.Errorf("イシュー %d のタスク作成エラー: %w", issue.ID, err)
	}

	if err := m.syncComments(taskID, issue); err != nil {
		return err
	}

	if m.config.SyncAttachments {
		m.syncAttachments(kbProjectID, taskID, issue)
	}

	return nil
}

// syncComments はイシューのジャーナルのうち本文のあるものを作成日時の昇順で
// Kanboardのコメントとして移行します。本文の先頭に元の作成日時を付記します。
//
// コメントはタスク作成の直後にのみ移行されるため、冪等性チェックは
// 不要です（移行済みタスクはSyncTasksがコメントごとスキップします）。
func (m *Migrator) syncComments(taskID int, issue models.RedmineIssue) error {
	journals := make([]models.RedmineJournal, 0, len(issue.Journals))
	for _, journal := range issue.Journals {
		if journal.Notes != "" {
			journals = append(journals, journal)
		}
	}

	sort.SliceStable(journals, func(i, j int) bool {
		return journals[i].CreatedOn.Before(journals[j].CreatedOn)
	})

	for _, journal := range journals {
		userID := 0
		if author, ok := m.users.Get(journal.User.ID); ok {
			userID = author.ID.Int()
		} else {
			utils.LogWarn("イシュー %d: コメント作成者 (ID %d) が未移行です", issue.ID, journal.User.ID)
		}

		content := fmt.Sprintf("> 作成日: %s\n\n%s",
			journal.CreatedOn.Format("2006-01-02 15:04:05"), journal.Notes)

		if _, err := m.target.CreateComment(taskID, userID, content); err != nil {
			return fmt.Errorf("イシュー %d のコメント作成エラー: %w", issue.ID, err)
		}
	}

	return nil
}
