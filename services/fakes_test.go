package services

import (
	"fmt"
	"strconv"

	"redminetokanboard/models"
)

// fakeSource はSourceReaderのインメモリ実装です
type fakeSource struct {
	users      []models.RedmineUser
	projects   []models.RedmineProject
	statuses   []models.RedmineStatus
	trackers   []models.RedmineTracker
	categories map[int][]models.RedmineCategory // RedmineプロジェクトID → カテゴリ
	issues     map[int][]models.RedmineIssue    // RedmineプロジェクトID → イシュー
	blobs      map[string][]byte                // content_url → 内容
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		categories: make(map[int][]models.RedmineCategory),
		issues:     make(map[int][]models.RedmineIssue),
		blobs:      make(map[string][]byte),
	}
}

func (s *fakeSource) ListUsers() ([]models.RedmineUser, error)       { return s.users, nil }
func (s *fakeSource) ListProjects() ([]models.RedmineProject, error) { return s.projects, nil }
func (s *fakeSource) ListStatuses() ([]models.RedmineStatus, error)  { return s.statuses, nil }
func (s *fakeSource) ListTrackers() ([]models.RedmineTracker, error) { return s.trackers, nil }

func (s *fakeSource) ListCategories(projectID int) ([]models.RedmineCategory, error) {
	return s.categories[projectID], nil
}

func (s *fakeSource) ListIssues(projectID int) ([]models.RedmineIssue, error) {
	return s.issues[projectID], nil
}

func (s *fakeSource) DownloadAttachment(contentURL string) ([]byte, error) {
	blob, ok := s.blobs[contentURL]
	if !ok {
		return nil, fmt.Errorf("添付ファイルが見つかりません: %s", contentURL)
	}
	return blob, nil
}

// fakeComment はfakeTargetに記録されたコメントです
type fakeComment struct {
	taskID  int
	userID  int
	content string
}

// fakeFile はfakeTargetに記録された添付ファイルです
type fakeFile struct {
	projectID  int
	taskID     int
	filename   string
	blobBase64 string
}

// fakeTarget はTargetWriterのインメモリ実装です。
// 作成系の呼び出し回数をoperationごとに記録し、冪等性の検証に使います。
type fakeTarget struct {
	projects   []models.KanboardProject
	users      []models.KanboardUser
	columns    map[int][]models.KanboardColumn   // KanboardプロジェクトID → カラム
	categories map[int][]models.KanboardCategory // KanboardプロジェクトID → カテゴリ
	tasks      []models.KanboardTask
	comments   []fakeComment
	links      []models.KanboardTaskLink
	linkTypes  []models.KanboardLinkType
	members    map[int]map[int]string // KanboardプロジェクトID → ユーザーID → ユーザー名
	colors     map[string]string
	files      []fakeFile

	creations map[string]int
	nextID    int
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		columns:    make(map[int][]models.KanboardColumn),
		categories: make(map[int][]models.KanboardCategory),
		members:    make(map[int]map[int]string),
		colors: map[string]string{
			"yellow": "Yellow",
			"blue":   "Blue",
			"green":  "Green",
			"purple": "Purple",
		},
		linkTypes: []models.KanboardLinkType{
			{ID: 1, Label: "relates to"},
			{ID: 2, Label: "blocks"},
			{ID: 6, Label: "is a parent of"},
		},
		creations: make(map[string]int),
	}
}

func (t *fakeTarget) allocID() int {
	t.nextID++
	return t.nextID
}

func (t *fakeTarget) GetProjectByName(name string) (*models.KanboardProject, error) {
	for _, project := range t.projects {
		if project.Name == name {
			p := project
			return &p, nil
		}
	}
	return nil, nil
}

func (t *fakeTarget) CreateProject(name string) (int, error) {
	t.creations["project"]++
	id := t.allocID()
	t.projects = append(t.projects, models.KanboardProject{ID: models.FlexInt(id), Name: name})
	return id, nil
}

func (t *fakeTarget) GetUserByName(username string) (*models.KanboardUser, error) {
	for _, user := range t.users {
		if user.Username == username {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

func (t *fakeTarget) CreateUser(username, password, name, email string) (int, error) {
	t.creations["user"]++
	id := t.allocID()
	t.users = append(t.users, models.KanboardUser{
		ID:       models.FlexInt(id),
		Username: username,
		Name:     name,
		Email:    email,
	})
	return id, nil
}

func (t *fakeTarget) GetColumns(projectID int) ([]models.KanboardColumn, error) {
	return t.columns[projectID], nil
}

func (t *fakeTarget) AddColumn(projectID int, title string) (int, error) {
	t.creations["column"]++
	id := t.allocID()
	t.columns[projectID] = append(t.columns[projectID], models.KanboardColumn{
		ID:        models.FlexInt(id),
		Title:     title,
		ProjectID: models.FlexInt(projectID),
	})
	return id, nil
}

func (t *fakeTarget) GetAllCategories(projectID int) ([]models.KanboardCategory, error) {
	return t.categories[projectID], nil
}

func (t *fakeTarget) CreateCategory(projectID int, name string) (int, error) {
	t.creations["category"]++
	id := t.allocID()
	t.categories[projectID] = append(t.categories[projectID], models.KanboardCategory{
		ID:        models.FlexInt(id),
		Name:      name,
		ProjectID: models.FlexInt(projectID),
	})
	return id, nil
}

func (t *fakeTarget) GetTaskByReference(projectID int, reference string) (*models.KanboardTask, error) {
	for _, task := range t.tasks {
		if task.ProjectID.Int() == projectID && task.Reference == reference {
			found := task
			return &found, nil
		}
	}
	return nil, nil
}

func (t *fakeTarget) CreateTask(req models.TaskRequest) (int, error) {
	t.creations["task"]++
	id := t.allocID()
	t.tasks = append(t.tasks, models.KanboardTask{
		ID:        models.FlexInt(id),
		Title:     req.Title,
		Reference: req.Reference,
		ProjectID: models.FlexInt(req.ProjectID),
		ColumnID:  models.FlexInt(req.ColumnID),
		OwnerID:   models.FlexInt(req.OwnerID),
		CreatorID: models.FlexInt(req.CreatorID),
	})
	return id, nil
}

func (t *fakeTarget) CreateComment(taskID, userID int, content string) (int, error) {
	t.creations["comment"]++
	t.comments = append(t.comments, fakeComment{taskID: taskID, userID: userID, content: content})
	return t.allocID(), nil
}

func (t *fakeTarget) GetAllLinks() ([]models.KanboardLinkType, error) {
	return t.linkTypes, nil
}

func (t *fakeTarget) GetAllTaskLinks(taskID int) ([]models.KanboardTaskLink, error) {
	var links []models.KanboardTaskLink
	for _, link := range t.links {
		if link.TaskID.Int() == taskID {
			links = append(links, link)
		}
	}
	return links, nil
}

func (t *fakeTarget) CreateTaskLink(taskID, oppositeTaskID, linkID int) (int, error) {
	t.creations["link"]++
	id := t.allocID()
	t.links = append(t.links, models.KanboardTaskLink{
		ID:             models.FlexInt(id),
		TaskID:         models.FlexInt(taskID),
		OppositeTaskID: models.FlexInt(oppositeTaskID),
		LinkID:         models.FlexInt(linkID),
	})
	return id, nil
}

func (t *fakeTarget) GetProjectUsers(projectID int) (map[int]string, error) {
	users := make(map[int]string)
	for id, username := range t.members[projectID] {
		users[id] = username
	}
	return users, nil
}

func (t *fakeTarget) AddProjectUser(projectID, userID int) error {
	t.creations["grant"]++
	if t.members[projectID] == nil {
		t.members[projectID] = make(map[int]string)
	}
	t.members[projectID][userID] = strconv.Itoa(userID)
	return nil
}

func (t *fakeTarget) GetColorList() (map[string]string, error) {
	return t.colors, nil
}

func (t *fakeTarget) CreateTaskFile(projectID, taskID int, filename, blobBase64 string) (int, error) {
	t.creations["file"]++
	t.files = append(t.files, fakeFile{
		projectID:  projectID,
		taskID:     taskID,
		filename:   filename,
		blobBase64: blobBase64,
	})
	return t.allocID(), nil
}

// totalCreations は全作成系呼び出しの合計を返します
func (t *fakeTarget) totalCreations() int {
	total := 0
	for _, count := range t.creations {
		total += count
	}
	return total
}
