package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redminetokanboard/config"
)

func redmineTestConfig(url string) *config.Config {
	return &config.Config{
		RedmineURL:    url,
		RedmineAPIKey: "apikey",
		HTTPTimeout:   5 * time.Second,
		MaxRetries:    2,
		PageSize:      2,
	}
}

func TestRedmineListUsersPagination(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "apikey", r.Header.Get("X-Redmine-API-Key"))
		require.Equal(t, "/users.json", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		// PageSize=2 で3件: 2ページに分かれる
		switch r.URL.Query().Get("offset") {
		case "0":
			_, _ = w.Write([]byte(`{"users":[
				{"id":1,"login":"alice","firstname":"Alice","lastname":"Liddell","mail":"alice@example.com"},
				{"id":2,"login":"bob","firstname":"Bob","lastname":"Builder","mail":"bob@example.com"}
			],"total_count":3,"offset":0,"limit":2}`))
		case "2":
			_, _ = w.Write([]byte(`{"users":[
				{"id":3,"login":"carol","firstname":"Carol","lastname":"Chan","mail":"carol@example.com"}
			],"total_count":3,"offset":2,"limit":2}`))
		default:
			t.Fatalf("想定外のoffset: %s", r.URL.Query().Get("offset"))
		}
	}))
	defer server.Close()

	client := NewRedmineClient(redmineTestConfig(server.URL))
	users, err := client.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "alice", users[0].Login)
	assert.Equal(t, "carol", users[2].Login)
}

func TestRedmineListStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/issue_statuses.json", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"issue_statuses":[
			{"id":1,"name":"New","is_closed":false},
			{"id":5,"name":"Closed","is_closed":true}
		]}`))
	}))
	defer server.Close()

	client := NewRedmineClient(redmineTestConfig(server.URL))
	statuses, err := client.ListStatuses()
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "New", statuses[0].Name)
	assert.True(t, statuses[1].IsClosed)
}

func TestRedmineListIssuesFetchesDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/issues.json":
			assert.Equal(t, "7", r.URL.Query().Get("project_id"))
			assert.Equal(t, "*", r.URL.Query().Get("status_id"), "全ステータスを対象とすること")
			_, _ = w.Write([]byte(`{"issues":[{"id":101,"subject":"Fix crash"}],"total_count":1,"offset":0,"limit":2}`))
		case "/issues/101.json":
			assert.Equal(t, "journals,relations,children,attachments", r.URL.Query().Get("include"))
			_, _ = w.Write([]byte(`{"issue":{
				"id":101,
				"subject":"Fix crash",
				"description":"desc",
				"start_date":"2024-02-01",
				"due_date":"2024-03-01",
				"tracker":{"id":1,"name":"Bug"},
				"status":{"id":1,"name":"New"},
				"author":{"id":7,"name":"alice"},
				"assigned_to":{"id":7,"name":"alice"},
				"category":{"id":10,"name":"Bugs"},
				"relations":[{"id":50,"issue_id":101,"issue_to_id":102,"relation_type":"precedes"}],
				"children":[{"id":103,"subject":"child"}],
				"journals":[{"id":1,"user":{"id":7,"name":"alice"},"notes":"note","created_on":"2024-01-01T10:00:00Z"}]
			}}`))
		default:
			t.Fatalf("想定外のパス: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewRedmineClient(redmineTestConfig(server.URL))
	issues, err := client.ListIssues(7)
	require.NoError(t, err)
	require.Len(t, issues, 1)

	issue := issues[0]
	assert.Equal(t, "Fix crash", issue.Subject)
	assert.Equal(t, "2024-03-01", issue.DueDate)
	require.Len(t, issue.Relations, 1)
	assert.Equal(t, "precedes", issue.Relations[0].RelationType)
	require.Len(t, issue.Children, 1)
	require.Len(t, issue.Journals, 1)
	assert.Equal(t, "note", issue.Journals[0].Notes)
	assert.Equal(t, 2024, issue.Journals[0].CreatedOn.Year())
}

func TestRedmineAuthFailureNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":["Invalid API key"]}`))
	}))
	defer server.Close()

	client := NewRedmineClient(redmineTestConfig(server.URL))
	err := client.CheckAuth()
	require.Error(t, err)
	assert.Equal(t, 1, attempts, "認証エラーはリトライしないこと")
}

func TestRedmineListMembershipsViaListProjects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/projects.json":
			_, _ = w.Write([]byte(`{"projects":[{"id":7,"name":"Alpha","identifier":"alpha"}],"total_count":1,"offset":0,"limit":2}`))
		case "/projects/7/memberships.json":
			_, _ = w.Write([]byte(`{"memberships":[
				{"id":1,"user":{"id":7,"name":"alice"}},
				{"id":2,"group":{"id":100,"name":"developers"}}
			],"total_count":2,"offset":0,"limit":2}`))
		default:
			t.Fatalf("想定外のパス: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := NewRedmineClient(redmineTestConfig(server.URL))
	projects, err := client.ListProjects()
	require.NoError(t, err)
	require.Len(t, projects, 1)
	require.Len(t, projects[0].Memberships, 2)

	assert.NotNil(t, projects[0].Memberships[0].User)
	assert.Nil(t, projects[0].Memberships[0].Group)
	assert.Nil(t, projects[0].Memberships[1].User, "グループのメンバーシップはユーザーを持たないこと")
	assert.NotNil(t, projects[0].Memberships[1].Group)
}
