package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/cenkalti/backoff/v4"

	"redminetokanboard/config"
	"redminetokanboard/models"
	"redminetokanboard/utils"
)

// RedmineClient はRedmine REST APIとのやり取りを処理します（読み取り専用）
type RedmineClient struct {
	config *config.Config
	client *http.Client
}

// NewRedmineClient は新しいRedmineクライアントを作成します
func NewRedmineClient(cfg *config.Config) *RedmineClient {
	return &RedmineClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// get はGETリクエストを送信しJSONレスポンスをoutにデコードします。
// 429および5xx系のレスポンスは指数バックオフでリトライします。
func (r *RedmineClient) get(path string, params url.Values, out interface{}) error {
	reqURL := fmt.Sprintf("%s%s", r.config.RedmineURL, path)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	operation := func() error {
		req, err := http.NewRequest("GET", reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("リクエスト作成エラー: %w", err))
		}

		req.Header.Set("X-Redmine-API-Key", r.config.RedmineAPIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return fmt.Errorf("リクエスト送信エラー: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("一時的なエラー (HTTP %d): %s", resp.StatusCode, reqURL)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("Redmine APIエラー (HTTP %d): %s", resp.StatusCode, string(body)))
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("レスポンス解析エラー: %w", err))
		}

		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(r.config.MaxRetries))
	return backoff.Retry(operation, bo)
}

// CheckAuth はRedmine認証をチェックします
func (r *RedmineClient) CheckAuth() error {
	var result struct {
		User models.RedmineUser `json:"user"`
	}
	if err := r.get("/users/current.json", nil, &result); err != nil {
		return fmt.Errorf("Redmine認証失敗: %w", err)
	}
	return nil
}

// ListUsers は全ユーザーを取得します（ページネーション対応）
func (r *RedmineClient) ListUsers() ([]models.RedmineUser, error) {
	var users []models.RedmineUser

	offset := 0
	for {
		var page struct {
			Users      []models.RedmineUser `json:"users"`
			TotalCount int                  `json:"total_count"`
		}

		params := r.pageParams(offset)
		if err := r.get("/users.json", params, &page); err != nil {
			return nil, fmt.Errorf("ユーザー一覧取得エラー: %w", err)
		}

		users = append(users, page.Users...)
		offset += len(page.Users)
		if offset >= page.TotalCount || len(page.Users) == 0 {
			break
		}
	}

	return users, nil
}

// ListProjects は全プロジェクトをメンバーシップ込みで取得します
func (r *RedmineClient) ListProjects() ([]models.RedmineProject, error) {
	var projects []models.RedmineProject

	offset := 0
	for {
		var page struct {
			Projects   []models.RedmineProject `json:"projects"`
			TotalCount int                     `json:"total_count"`
		}

		params := r.pageParams(offset)
		if err := r.get("/projects.json", params, &page); err != nil {
			return nil, fmt.Errorf("プロジェクト一覧取得エラー: %w", err)
		}

		projects = append(projects, page.Projects...)
		offset += len(page.Projects)
		if offset >= page.TotalCount || len(page.Projects) == 0 {
			break
		}
	}

	// メンバーシップは別エンドポイントのため、プロジェクトごとに取得する
	for i := range projects {
		memberships, err := r.listMemberships(projects[i].ID)
		if err != nil {
			return nil, err
		}
		projects[i].Memberships = memberships
	}

	return projects, nil
}

// listMemberships はプロジェクトのメンバーシップ一覧を取得します
func (r *RedmineClient) listMemberships(projectID int) ([]models.RedmineMembership, error) {
	var memberships []models.RedmineMembership

	offset := 0
	for {
		var page struct {
			Memberships []models.RedmineMembership `json:"memberships"`
			TotalCount  int                        `json:"total_count"`
		}

		params := r.pageParams(offset)
		path := fmt.Sprintf("/projects/%d/memberships.json", projectID)
		if err := r.get(path, params, &page); err != nil {
			return nil, fmt.Errorf("プロジェクト %d のメンバーシップ取得エラー: %w", projectID, err)
		}

		memberships = append(memberships, page.Memberships...)
		offset += len(page.Memberships)
		if offset >= page.TotalCount || len(page.Memberships) == 0 {
			break
		}
	}

	return memberships, nil
}

// ListStatuses は全イシューステータスを取得します（Redmineではグローバル定義）
func (r *RedmineClient) ListStatuses() ([]models.RedmineStatus, error) {
	var result struct {
		IssueStatuses []models.RedmineStatus `json:"issue_statuses"`
	}
	if err := r.get("/issue_statuses.json", nil, &result); err != nil {
		return nil, fmt.Errorf("ステータス一覧取得エラー: %w", err)
	}
	return result.IssueStatuses, nil
}

// ListTrackers は全トラッカー（イシュー種別）を取得します
func (r *RedmineClient) ListTrackers() ([]models.RedmineTracker, error) {
	var result struct {
		Trackers []models.RedmineTracker `json:"trackers"`
	}
	if err := r.get("/trackers.json", nil, &result); err != nil {
		return nil, fmt.Errorf("トラッカー一覧取得エラー: %w", err)
	}
	return result.Trackers, nil
}

// ListCategories はプロジェクトのイシューカテゴリ一覧を取得します
func (r *RedmineClient) ListCategories(projectID int) ([]models.RedmineCategory, error) {
	var result struct {
		IssueCategories []models.RedmineCategory `json:"issue_categories"`
	}
	path := fmt.Sprintf("/projects/%d/issue_categories.json", projectID)
	if err := r.get(path, nil, &result); err != nil {
		return nil, fmt.Errorf("プロジェクト %d のカテゴリ取得エラー: %w", projectID, err)
	}
	return result.IssueCategories, nil
}

// ListIssues はプロジェクトの全イシューを取得します。
// ステータスフィルタは適用しません（クローズ済みも含む）。
// ジャーナル・リレーション・子イシュー・添付ファイルはイシュー詳細APIでのみ
// 取得できるため、イシューごとに追加の1リクエストが発生します。
func (r *RedmineClient) ListIssues(projectID int) ([]models.RedmineIssue, error) {
	var summaries []models.RedmineIssue

	offset := 0
	for {
		var page struct {
			Issues     []models.RedmineIssue `json:"issues"`
			TotalCount int                   `json:"total_count"`
		}

		params := r.pageParams(offset)
		params.Set("project_id", strconv.Itoa(projectID))
		params.Set("status_id", "*")
		if err := r.get("/issues.json", params, &page); err != nil {
			return nil, fmt.Errorf("プロジェクト %d のイシュー一覧取得エラー: %w", projectID, err)
		}

		summaries = append(summaries, page.Issues...)
		offset += len(page.Issues)
		if offset >= page.TotalCount || len(page.Issues) == 0 {
			break
		}
	}

	issues := make([]models.RedmineIssue, 0, len(summaries))
	for _, summary := range summaries {
		issue, err := r.getIssue(summary.ID)
		if err != nil {
			return nil, err
		}
		issues = append(issues, *issue)
	}

	utils.LogDebug("プロジェクト %d: %d 件のイシューを取得しました", projectID, len(issues))
	return issues, nil
}

// getIssue はイシュー詳細を関連情報込みで取得します
func (r *RedmineClient) getIssue(issueID int) (*models.RedmineIssue, error) {
	var result struct {
		Issue models.RedmineIssue `json:"issue"`
	}

	params := url.Values{}
	params.Set("include", "journals,relations,children,attachments")
	path := fmt.Sprintf("/issues/%d.json", issueID)
	if err := r.get(path, params, &result); err != nil {
		return nil, fmt.Errorf("イシュー %d の詳細取得エラー: %w", issueID, err)
	}

	return &result.Issue, nil
}

// DownloadAttachment は添付ファイルの内容をダウンロードします
func (r *RedmineClient) DownloadAttachment(contentURL string) ([]byte, error) {
	req, err := http.NewRequest("GET", contentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("リクエスト作成エラー: %w", err)
	}

	req.Header.Set("X-Redmine-API-Key", r.config.RedmineAPIKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("リクエスト送信エラー: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("添付ファイルダウンロード失敗 (HTTP %d): %s", resp.StatusCode, contentURL)
	}

	return io.ReadAll(resp.Body)
}

// pageParams はページネーション用のクエリパラメータを作成します
func (r *RedmineClient) pageParams(offset int) url.Values {
	params := url.Values{}
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(r.config.PageSize))
	return params
}
