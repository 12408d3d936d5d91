package services

import (
	"encoding/base64"

	"redminetokanboard/models"
	"redminetokanboard/utils"
)

// syncAttachments はイシューの添付ファイルをKanboardタスクへ転送します。
// SYNC_ATTACHMENTS が有効な場合のみ呼ばれます。
// ファイル単位の失敗は警告に留め、移行全体は止めません。
func (m *Migrator) syncAttachments(kbProjectID, taskID int, issue models.RedmineIssue) {
	for _, attachment := range issue.Attachments {
		blob, err := m.source.DownloadAttachment(attachment.ContentURL)
		if err != nil {
			utils.LogWarn("イシュー %d: 添付ファイル %s のダウンロードに失敗しました: %v",
				issue.ID, attachment.Filename, err)
			continue
		}
		if len(blob) == 0 {
			continue
		}

		encoded := base64.StdEncoding.EncodeToString(blob)
		if _, err := m.target.CreateTaskFile(kbProjectID, taskID, attachment.Filename, encoded); err != nil {
			utils.LogWarn("イシュー %d: 添付ファイル %s のアップロードに失敗しました: %v",
				issue.ID, attachment.Filename, err)
			continue
		}

		utils.LogInfo("添付ファイルを転送しました: %s", attachment.Filename)
	}
}
