package models

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

// FlexInt はKanboard APIが数値を文字列("3")でも数値(3)でも返すためのID型です
type FlexInt int

// UnmarshalJSON は文字列・数値の両方からFlexIntを復元します
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	if s == "" || s == "null" {
		*f = 0
		return nil
	}

	value, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("ID変換エラー: %q: %w", s, err)
	}

	*f = FlexInt(value)
	return nil
}

// Int はint型の値を返します
func (f FlexInt) Int() int {
	return int(f)
}

// ========== Redmine（移行元）側のエンティティ ==========

// RedmineRef はRedmine APIの {id, name} 形式の参照を表します
type RedmineRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RedmineUser はRedmineのユーザーを表します
type RedmineUser struct {
	ID        int    `json:"id"`
	Login     string `json:"login"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Mail      string `json:"mail"`
}

// RedmineMembership はプロジェクトのメンバーシップを表します。
// ユーザー所属とグループ所属のどちらか一方のみが設定されます。
type RedmineMembership struct {
	ID    int         `json:"id"`
	User  *RedmineRef `json:"user,omitempty"`
	Group *RedmineRef `json:"group,omitempty"`
}

// RedmineProject はRedmineのプロジェクトを表します
type RedmineProject struct {
	ID          int                 `json:"id"`
	Name        string              `json:"name"`
	Identifier  string              `json:"identifier"`
	Memberships []RedmineMembership `json:"memberships,omitempty"`
}

// RedmineStatus はRedmineのイシューステータスを表します（グローバル定義）
type RedmineStatus struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsClosed bool   `json:"is_closed"`
}

// RedmineTracker はRedmineのトラッカー（イシュー種別）を表します
type RedmineTracker struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RedmineCategory はRedmineのイシューカテゴリを表します（プロジェクト帰属）
type RedmineCategory struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// RedmineRelation はイシュー間の型付きリレーションを表します
type RedmineRelation struct {
	ID           int    `json:"id"`
	IssueID      int    `json:"issue_id"`
	IssueToID    int    `json:"issue_to_id"`
	RelationType string `json:"relation_type"`
}

// RedmineJournal はイシューの更新履歴（コメント）を表します
type RedmineJournal struct {
	ID        int        `json:"id"`
	User      RedmineRef `json:"user"`
	Notes     string     `json:"notes"`
	CreatedOn time.Time  `json:"created_on"`
}

// RedmineAttachment はイシューの添付ファイルを表します
type RedmineAttachment struct {
	ID         int    `json:"id"`
	Filename   string `json:"filename"`
	ContentURL string `json:"content_url"`
}

// RedmineIssueRef は親子リンクで使われるイシューへの参照です
type RedmineIssueRef struct {
	ID      int    `json:"id"`
	Subject string `json:"subject"`
}

// RedmineIssue はRedmineのイシュー（作業項目）を表します
type RedmineIssue struct {
	ID          int         `json:"id"`
	Subject     string      `json:"subject"`
	Description string      `json:"description"`
	StartDate   string      `json:"start_date"` // "2006-01-02" 形式
	DueDate     string      `json:"due_date"`   // "2006-01-02" 形式
	Tracker     RedmineRef  `json:"tracker"`
	Status      RedmineRef  `json:"status"`
	Author      RedmineRef  `json:"author"`
	AssignedTo  *RedmineRef `json:"assigned_to,omitempty"`
	Category    *RedmineRef `json:"category,omitempty"`

	Relations   []RedmineRelation   `json:"relations,omitempty"`
	Children    []RedmineIssueRef   `json:"children,omitempty"`
	Journals    []RedmineJournal    `json:"journals,omitempty"`
	Attachments []RedmineAttachment `json:"attachments,omitempty"`
}

// ========== Kanboard（移行先）側のエンティティ ==========

// KanboardUser はKanboardのユーザーを表します
type KanboardUser struct {
	ID       FlexInt `json:"id"`
	Username string  `json:"username"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
}

// KanboardProject はKanboardのプロジェクトを表します
type KanboardProject struct {
	ID   FlexInt `json:"id"`
	Name string  `json:"name"`
}

// KanboardColumn はKanboardのカラム（ワークフロー状態）を表します
type KanboardColumn struct {
	ID        FlexInt `json:"id"`
	Title     string  `json:"title"`
	ProjectID FlexInt `json:"project_id"`
}

// KanboardCategory はKanboardのカテゴリを表します
type KanboardCategory struct {
	ID        FlexInt `json:"id"`
	Name      string  `json:"name"`
	ProjectID FlexInt `json:"project_id"`
}

// KanboardTask はKanboardのタスクを表します
type KanboardTask struct {
	ID        FlexInt `json:"id"`
	Title     string  `json:"title"`
	Reference string  `json:"reference"`
	ProjectID FlexInt `json:"project_id"`
	ColumnID  FlexInt `json:"column_id"`
	OwnerID   FlexInt `json:"owner_id"`
	CreatorID FlexInt `json:"creator_id"`
}

// KanboardLinkType はタスク間リンクの種別（"blocks" 等）を表します
type KanboardLinkType struct {
	ID    FlexInt `json:"id"`
	Label string  `json:"label"`
}

// KanboardTaskLink はタスク間の有向リンクを表します
type KanboardTaskLink struct {
	ID             FlexInt `json:"id"`
	TaskID         FlexInt `json:"task_id"`
	OppositeTaskID FlexInt `json:"opposite_task_id"`
	LinkID         FlexInt `json:"link_id"`
}

// TaskRequest はKanboardのタスク作成リクエストを表します。
// OwnerID / CategoryID が0の場合、そのパラメータは送信されません。
type TaskRequest struct {
	ProjectID   int
	Title       string
	Description string
	Reference   string
	ColorID     string
	ColumnID    int
	OwnerID     int
	CreatorID   int
	CategoryID  int
	DateDue     string // "2006-01-02" 形式
	DateStarted string // "2006-01-02" 形式
}
