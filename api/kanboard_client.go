package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/cenkalti/backoff/v4"

	"redminetokanboard/config"
	"redminetokanboard/models"
)

// KanboardClient はKanboard JSON-RPC 2.0 APIとのやり取りを処理します
type KanboardClient struct {
	config    *config.Config
	client    *http.Client
	requestID atomic.Int64
}

// NewKanboardClient は新しいKanboardクライアントを作成します
func NewKanboardClient(cfg *config.Config) *KanboardClient {
	return &KanboardClient{
		config: cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

// rpcRequest はJSON-RPC 2.0のリクエストペイロードです
type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	ID      int64       `json:"id"`
	Params  interface{} `json:"params,omitempty"`
}

// rpcResponse はJSON-RPC 2.0のレスポンスペイロードです
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error,omitempty"`
}

// rpcError はJSON-RPC 2.0のエラーオブジェクトです
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// call はJSON-RPCメソッドを呼び出し、生のresultを返します。
// トランスポート層の一時的なエラーは指数バックオフでリトライします。
// JSON-RPCレベルのエラーはリトライせずそのまま返します。
func (k *KanboardClient) call(method string, params interface{}) (json.RawMessage, error) {
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		ID:      k.requestID.Add(1),
		Params:  params,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("JSONエンコードエラー: %w", err)
	}

	var result json.RawMessage

	operation := func() error {
		req, err := http.NewRequest("POST", k.config.KanboardURL, bytes.NewReader(payloadBytes))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("リクエスト作成エラー: %w", err))
		}

		req.SetBasicAuth(k.config.KanboardUsername, k.config.KanboardAPIToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := k.client.Do(req)
		if err != nil {
			return fmt.Errorf("リクエスト送信エラー: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("一時的なエラー (HTTP %d): %s", resp.StatusCode, method)
		}

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("Kanboard APIエラー (HTTP %d): %s", resp.StatusCode, string(body)))
		}

		var rpcResp rpcResponse
		if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
			return backoff.Permanent(fmt.Errorf("レスポンス解析エラー: %w", err))
		}

		if rpcResp.Error != nil {
			return backoff.Permanent(fmt.Errorf("Kanboard RPCエラー (%s): %d %s",
				method, rpcResp.Error.Code, rpcResp.Error.Message))
		}

		result = rpcResp.Result
		return nil
	}

	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(k.config.MaxRetries))
	if err := backoff.Retry(operation, bo); err != nil {
		return nil, err
	}

	return result, nil
}

// isFalse はKanboardが「該当なし」「失敗」を表すのに使うリテラルfalseを判定します
func isFalse(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "false"
}

// callID はID（数値または数値文字列）を返すメソッドを呼び出します
func (k *KanboardClient) callID(method string, params interface{}) (int, error) {
	raw, err := k.call(method, params)
	if err != nil {
		return 0, err
	}

	if isFalse(raw) {
		return 0, fmt.Errorf("%s が失敗しました（falseが返されました）", method)
	}

	var id models.FlexInt
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("%s の結果解析エラー: %w", method, err)
	}

	return id.Int(), nil
}

// CheckAuth はKanboard認証をチェックします
func (k *KanboardClient) CheckAuth() error {
	raw, err := k.call("getVersion", nil)
	if err != nil {
		return fmt.Errorf("Kanboard認証失敗: %w", err)
	}

	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		return fmt.Errorf("バージョン情報の解析エラー: %w", err)
	}

	return nil
}

// GetProjectByName はプロジェクトを名前で検索します。見つからない場合はnilを返します。
func (k *KanboardClient) GetProjectByName(name string) (*models.KanboardProject, error) {
	raw, err := k.call("getProjectByName", map[string]interface{}{"name": name})
	if err != nil {
		return nil, err
	}
	if isFalse(raw) {
		return nil, nil
	}

	var project models.KanboardProject
	if err := json.Unmarshal(raw, &project); err != nil {
		return nil, fmt.Errorf("プロジェクト情報の解析エラー: %w", err)
	}
	return &project, nil
}

// CreateProject はプロジェクトを作成し、そのIDを返します
func (k *KanboardClient) CreateProject(name string) (int, error) {
	return k.callID("createProject", map[string]interface{}{"name": name})
}

// GetUserByName はユーザーをログイン名で検索します。見つからない場合はnilを返します。
func (k *KanboardClient) GetUserByName(username string) (*models.KanboardUser, error) {
	raw, err := k.call("getUserByName", map[string]interface{}{"username": username})
	if err != nil {
		return nil, err
	}
	if isFalse(raw) {
		return nil, nil
	}

	var user models.KanboardUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("ユーザー情報の解析エラー: %w", err)
	}
	return &user, nil
}

// CreateUser はユーザーを作成し、そのIDを返します
func (k *KanboardClient) CreateUser(username, password, name, email string) (int, error) {
	return k.callID("createUser", map[string]interface{}{
		"username": username,
		"password": password,
		"name":     name,
		"email":    email,
	})
}

// GetColumns はプロジェクトのカラム一覧を取得します
func (k *KanboardClient) GetColumns(projectID int) ([]models.KanboardColumn, error) {
	raw, err := k.call("getColumns", map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	if isFalse(raw) {
		return nil, nil
	}

	var columns []models.KanboardColumn
	if err := json.Unmarshal(raw, &columns); err != nil {
		return nil, fmt.Errorf("カラム情報の解析エラー: %w", err)
	}
	return columns, nil
}

// AddColumn はプロジェクトにカラムを追加し、そのIDを返します
func (k *KanboardClient) AddColumn(projectID int, title string) (int, error) {
	return k.callID("addColumn", map[string]interface{}{
		"project_id": projectID,
		"title":      title,
	})
}

// GetAllCategories はプロジェクトのカテゴリ一覧を取得します
func (k *KanboardClient) GetAllCategories(projectID int) ([]models.KanboardCategory, error) {
	raw, err := k.call("getAllCategories", map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, err
	}
	if isFalse(raw) {
		return nil, nil
	}

	var categories []models.KanboardCategory
	if err := json.Unmarshal(raw, &categories); err != nil {
		return nil, fmt.Errorf("カテゴリ情報の解析エラー: %w", err)
	}
	return categories, nil
}

// CreateCategory はプロジェクトにカテゴリを作成し、そのIDを返します
func (k *KanboardClient) CreateCategory(projectID int, name string) (int, error) {
	return k.callID("createCategory", map[string]interface{}{
		"project_id": projectID,
		"name":       name,
	})
}

// GetTaskByReference はタスクをリファレンス（移行元イシューID）で検索します。
// 見つからない場合はnilを返します。
func (k *KanboardClient) GetTaskByReference(projectID int, reference string) (*models.KanboardTask, error) {
	raw, err := k.call("getTaskByReference", map[string]interface{}{
		"project_id": projectID,
		"reference":  reference,
	})
	if err != nil {
		return nil, err
	}
	if isFalse(raw) {
		return nil, nil
	}

	var task models.KanboardTask
	if err := json.Unmarshal(raw, &task); err != nil {
		return nil, fmt.Errorf("タスク情報の解析エラー: %w", err)
	}
	return &task, nil
}

// CreateTask はタスクを作成し、そのIDを返します。
// OwnerID / CategoryID が0の場合、該当パラメータは省略されます。
func (k *KanboardClient) CreateTask(req models.TaskRequest) (int, error) {
	params := map[string]interface{}{
		"project_id": req.ProjectID,
		"title":      req.Title,
		"reference":  req.Reference,
	}

	if req.Description != "" {
		params["description"] = req.Description
	}
	if req.ColorID != "" {
		params["color_id"] = req.ColorID
	}
	if req.ColumnID != 0 {
		params["column_id"] = req.ColumnID
	}
	if req.OwnerID != 0 {
		params["owner_id"] = req.OwnerID
	}
	if req.CreatorID != 0 {
		params["creator_id"] = req.CreatorID
	}
	if req.CategoryID != 0 {
		params["category_id"] = req.CategoryID
	}
	if req.DateDue != "" {
		params["date_due"] = req.DateDue
	}
	if req.DateStarted != "" {
		params["date_started"] = req.DateStarted
	}

	return k.callID("createTask", params)
}

// CreateComment はタスクにコメントを作成し、そのIDを返します
func (k *KanboardClient) CreateComment(taskID, userID int, content string) (int, error) {
	return k.callID("createComment", map[string]interface{}{
		"task_id": taskID,
		"user_id": userID,
		"content": content,
	})
}

// GetAllLinks はタスクリンク種別の一覧を取得します
func (k *KanboardClient) GetAllLinks() ([]models.KanboardLinkType, error) {
	raw, err := k.call("getAllLinks", nil)
	if err != nil {
		return nil, err
	}

	var links []models.KanboardLinkType
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, fmt.Errorf("リンク種別の解析エラー: %w", err)
	}
	return links, nil
}

// GetAllTaskLinks はタスクに付いているリンク一覧を取得します
func (k *KanboardClient) GetAllTaskLinks(taskID int) ([]models.KanboardTaskLink, error) {
	raw, err := k.call("getAllTaskLinks", map[string]interface{}{"task_id": taskID})
	if err != nil {
		return nil, err
	}
	if isFalse(raw) {
		return nil, nil
	}

	var links []models.KanboardTaskLink
	if err := json.Unmarshal(raw, &links); err != nil {
		return nil, fmt.Errorf("タスクリンクの解析エラー: %w", err)
	}
	return links, nil
}

// CreateTaskLink はタスク間の有向リンクを作成し、そのIDを返します
func (k *KanboardClient) CreateTaskLink(taskID, oppositeTaskID, linkID int) (int, error) {
	return k.callID("createTaskLink", map[string]interface{}{
		"task_id":          taskID,
		"opposite_task_id": oppositeTaskID,
		"link_id":          linkID,
	})
}

// GetProjectUsers はプロジェクトのメンバー一覧を取得します（ユーザーID → ユーザー名）
func (k *KanboardClient) GetProjectUsers(projectID int) (map[int]string, error) {
	raw, err := k.call("getProjectUsers", map[string]interface{}{"project_id": projectID})
	if err != nil {
		return nil, err
	}

	users := make(map[int]string)

	// メンバーがいない場合、PHP側は空配列 [] を返すことがある
	if isFalse(raw) || string(bytes.TrimSpace(raw)) == "[]" {
		return users, nil
	}

	var byID map[string]string
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("プロジェクトメンバーの解析エラー: %w", err)
	}

	for idStr, username := range byID {
		var id models.FlexInt
		if err := json.Unmarshal([]byte(`"`+idStr+`"`), &id); err != nil {
			return nil, err
		}
		users[id.Int()] = username
	}

	return users, nil
}

// AddProjectUser はユーザーにプロジェクトへのアクセス権を付与します
func (k *KanboardClient) AddProjectUser(projectID, userID int) error {
	raw, err := k.call("addProjectUser", map[string]interface{}{
		"project_id": projectID,
		"user_id":    userID,
	})
	if err != nil {
		return err
	}
	if isFalse(raw) {
		return fmt.Errorf("プロジェクト %d へのユーザー %d の追加に失敗しました", projectID, userID)
	}
	return nil
}

// GetColorList は利用可能なカラーの一覧を取得します（カラーID → 表示名）
func (k *KanboardClient) GetColorList() (map[string]string, error) {
	raw, err := k.call("getColorList", nil)
	if err != nil {
		return nil, err
	}

	var colors map[string]string
	if err := json.Unmarshal(raw, &colors); err != nil {
		return nil, fmt.Errorf("カラー一覧の解析エラー: %w", err)
	}
	return colors, nil
}

// CreateTaskFile はタスクに添付ファイルを作成し、そのIDを返します。
// Kanboard APIはファイル内容をbase64で受け取ります。
func (k *KanboardClient) CreateTaskFile(projectID, taskID int, filename, blobBase64 string) (int, error) {
	return k.callID("createTaskFile", map[string]interface{}{
		"project_id": projectID,
		"task_id":    taskID,
		"filename":   filename,
		"blob":       blobBase64,
	})
}
