package services

import (
	"fmt"
	"strconv"
	"time"

	"redminetokanboard/config"
	"redminetokanboard/models"
	"redminetokanboard/utils"
)

// SyncRelations はプロジェクト内のイシュー間リレーションと親子関係を
// Kanboardのタスクリンクとして移行します。
//
// リレーションの両端はタスクのリファレンスで解決するため、プロジェクトの
// 全タスクの移行（SyncTasks）が完了してから実行する必要があります。
//
// precedes / duplicates は "blocks" リンクへ、親子関係は "is a parent of"
// リンクへ変換します。それ以外のリレーション種別は無視します。
// 既に存在するリンクはスキップするため再実行しても重複しません
// （Redmineは同じリレーションを両端のイシューに報告するため、
// このチェックが片方向のみの作成も保証します）。
func (m *Migrator) SyncRelations(rmProjectID, kbProjectID int) error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, fmt.Sprintf("リレーション移行 (プロジェクト %d)", rmProjectID))
	utils.LogInfo("===== 作業間のリレーションを移行します =====")

	linkTypes, err := m.target.GetAllLinks()
	if err != nil {
		return fmt.Errorf("リンク種別取得エラー: %w", err)
	}
	linksByLabel := make(map[string]int, len(linkTypes))
	for _, linkType := range linkTypes {
		linksByLabel[linkType.Label] = linkType.ID.Int()
	}

	issues, err := m.source.ListIssues(rmProjectID)
	if err != nil {
		return fmt.Errorf("イシュー一覧取得エラー: %w", err)
	}

	for _, issue := range issues {
		for _, relation := range issue.Relations {
			label, ok := config.RelationMapping[relation.RelationType]
			if !ok {
				utils.LogDebug("リレーション種別 %s は移行対象外のためスキップします", relation.RelationType)
				continue
			}

			linkID, ok := linksByLabel[label]
			if !ok {
				return fmt.Errorf("Kanboardにリンク種別 %q が存在しません", label)
			}

			if err := m.createLink(kbProjectID, relation.IssueID, relation.IssueToID, linkID, relation.RelationType); err != nil {
				return err
			}
		}

		// Redmineでは親子関係はリレーションとは別の構造
		for _, child := range issue.Children {
			linkID, ok := linksByLabel[config.ParentLinkLabel]
			if !ok {
				return fmt.Errorf("Kanboardにリンク種別 %q が存在しません", config.ParentLinkLabel)
			}

			if err := m.createLink(kbProjectID, issue.ID, child.ID, linkID, "parent-child"); err != nil {
				return err
			}
		}
	}

	return nil
}

// createLink はリファレンスで両端のタスクを解決し、有向リンクを作成します。
// 同じリンクが既に存在する場合は何もしません。
func (m *Migrator) createLink(kbProjectID, fromReference, toReference, linkID int, relationName string) error {
	startTask, err := m.taskByReference(kbProjectID, fromReference)
	if err != nil {
		return err
	}
	endTask, err := m.taskByReference(kbProjectID, toReference)
	if err != nil {
		return err
	}

	existing, err := m.target.GetAllTaskLinks(startTask.ID.Int())
	if err != nil {
		return fmt.Errorf("タスク %s のリンク取得エラー: %w", startTask.Title, err)
	}
	for _, link := range existing {
		if link.LinkID.Int() == linkID && link.OppositeTaskID.Int() == endTask.ID.Int() {
			return nil
		}
	}

	if _, err := m.target.CreateTaskLink(startTask.ID.Int(), endTask.ID.Int(), linkID); err != nil {
		return fmt.Errorf("リンク作成エラー (%s → %s): %w", startTask.Title, endTask.Title, err)
	}

	utils.LogInfo("- リレーション '%s': %s → %s", relationName, startTask.Title, endTask.Title)
	return nil
}

// taskByReference はリファレンス（移行元イシューID）でタスクを解決します。
// 見つからない場合はエラーです（タスク移行が未完了の可能性）。
func (m *Migrator) taskByReference(kbProjectID, reference int) (*models.KanboardTask, error) {
	task, err := m.target.GetTaskByReference(kbProjectID, strconv.Itoa(reference))
	if err != nil {
		return nil, fmt.Errorf("リファレンス %d のタスク検索エラー: %w", reference, err)
	}
	if task == nil {
		return nil, fmt.Errorf("リファレンス %d に対応するタスクが見つかりません（タスク移行が未完了の可能性）", reference)
	}
	return task, nil
}
