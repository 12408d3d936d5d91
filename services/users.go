package services

import (
	"fmt"
	"time"

	"redminetokanboard/models"
	"redminetokanboard/utils"
)

// SyncUsers は全RedmineユーザーにKanboardユーザーが対応することを保証します。
// 対応付けのキーはログイン名です（同名が存在すればそのユーザーを信頼し、
// パスワードを含め一切変更しません）。
func (m *Migrator) SyncUsers() error {
	startTime := time.Now()
	defer utils.TrackTime(startTime, "ユーザー移行")

	users, err := m.source.ListUsers()
	if err != nil {
		return fmt.Errorf("ユーザー一覧取得エラー: %w", err)
	}

	for _, user := range users {
		user := user

		_, err := m.users.Resolve(user.ID,
			func() (*models.KanboardUser, error) {
				return m.target.GetUserByName(user.Login)
			},
			func() error {
				utils.LogInfo("ユーザーが存在しないため作成します: %s", user.Login)
				displayName := user.Lastname + user.Firstname
				_, err := m.target.CreateUser(user.Login, m.config.DefaultUserPassword, displayName, user.Mail)
				return err
			})
		if err != nil {
			return fmt.Errorf("ユーザー %s の移行エラー: %w", user.Login, err)
		}
	}

	utils.LogInfo("ユーザー移行完了: %d 件", m.users.Len())
	return nil
}
