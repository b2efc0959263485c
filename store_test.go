package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testStoreConfig() Config {
	return Config{
		GitHubToken:      "test-token",
		Repository:       "owner/problems",
		Branch:           "main",
		UploadFolder:     "problems",
		SolutionsFolder:  "solutions",
		SupportedFormats: []string{".txt", ".md", ".tex", ".pdf"},
	}
}

func testStore(t *testing.T, handler http.Handler) *GitHubStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store := NewGitHubStore(testStoreConfig())
	store.apiBase = srv.URL
	return store
}

func writeJSONBody(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

func TestListNewItemsFiltersAndDeduplicates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/problems/commits", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if since := r.URL.Query().Get("since"); since == "" {
			t.Error("missing since parameter")
		}
		writeJSONBody(t, w, []map[string]any{
			{"sha": "newer000", "commit": map[string]any{"author": map[string]any{"date": "2026-08-30T10:00:00Z"}}},
			{"sha": "older000", "commit": map[string]any{"author": map[string]any{"date": "2026-08-30T09:00:00Z"}}},
		})
	})
	mux.HandleFunc("/repos/owner/problems/commits/newer000", func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(t, w, map[string]any{
			"sha": "newer000",
			"files": []map[string]any{
				{"filename": "problems/quadratic.txt", "status": "modified", "additions": 3, "deletions": 1},
				{"filename": "problems/notes.exe", "status": "added"},
				{"filename": "docs/readme.txt", "status": "added"},
				{"filename": "problems/deleted.txt", "status": "removed"},
			},
		})
	})
	mux.HandleFunc("/repos/owner/problems/commits/older000", func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(t, w, map[string]any{
			"sha": "older000",
			"files": []map[string]any{
				// Same path touched by the newer commit; must not repeat.
				{"filename": "problems/quadratic.txt", "status": "added", "additions": 10},
				{"filename": "problems/integral.pdf", "status": "added", "additions": 5},
			},
		})
	})

	store := testStore(t, mux)
	items, err := store.ListNewItems(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("ListNewItems: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(items), items)
	}
	if items[0].Path != "problems/quadratic.txt" || items[0].CommitSHA != "newer000" {
		t.Fatalf("first item = %+v", items[0])
	}
	if items[0].Name != "quadratic.txt" {
		t.Fatalf("item name = %q", items[0].Name)
	}
	if items[0].Size != 4 {
		t.Fatalf("item size = %d, want 4", items[0].Size)
	}
	if items[1].Path != "problems/integral.pdf" {
		t.Fatalf("second item = %+v", items[1])
	}
	want := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	if !items[0].CommittedAt.Equal(want) {
		t.Fatalf("committed at = %v, want %v", items[0].CommittedAt, want)
	}
}

func TestListNewItemsAPIError(t *testing.T) {
	store := testStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Bad credentials"}`, http.StatusUnauthorized)
	}))

	_, err := store.ListNewItems(time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("error should carry the status code: %v", err)
	}
}

func TestFetchFileDecodesBase64(t *testing.T) {
	content := "Solve x^2 - 4 = 0"
	// The API wraps base64 payloads at 60 columns.
	encoded := base64.StdEncoding.EncodeToString([]byte(content))
	wrapped := encoded[:8] + "\n" + encoded[8:] + "\n"

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/problems/contents/problems/quadratic.txt", func(w http.ResponseWriter, r *http.Request) {
		if ref := r.URL.Query().Get("ref"); ref != "main" {
			t.Errorf("ref = %q", ref)
		}
		writeJSONBody(t, w, map[string]any{
			"content":  wrapped,
			"encoding": "base64",
			"sha":      "blob1234",
			"path":     "problems/quadratic.txt",
		})
	})

	store := testStore(t, mux)
	data, err := store.FetchFile(WorkItem{Path: "problems/quadratic.txt", Name: "quadratic.txt"})
	if err != nil {
		t.Fatalf("FetchFile: %v", err)
	}
	if string(data) != content {
		t.Fatalf("content = %q, want %q", data, content)
	}
}

func TestFetchFileMissing(t *testing.T) {
	store := testStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	}))

	_, err := store.FetchFile(WorkItem{Path: "problems/gone.txt"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "problems/gone.txt") {
		t.Fatalf("error should name the path: %v", err)
	}
}

func TestPublishCreatesNewFile(t *testing.T) {
	var putPayload map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/problems/contents/solutions/solution_quadratic.md", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&putPayload); err != nil {
				t.Errorf("decoding PUT payload: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{}`)
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	store := testStore(t, mux)
	if err := store.Publish("solutions/solution_quadratic.md", "# Solution", "Add solution"); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if putPayload["message"] != "Add solution" {
		t.Fatalf("message = %q", putPayload["message"])
	}
	if putPayload["branch"] != "main" {
		t.Fatalf("branch = %q", putPayload["branch"])
	}
	if _, hasSHA := putPayload["sha"]; hasSHA {
		t.Fatal("creating a new file must not send a sha")
	}
	decoded, err := base64.StdEncoding.DecodeString(putPayload["content"])
	if err != nil || string(decoded) != "# Solution" {
		t.Fatalf("content = %q err=%v", decoded, err)
	}
}

func TestPublishUpdatesExistingFile(t *testing.T) {
	var putPayload map[string]string

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/problems/contents/solutions/solution_quadratic.md", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSONBody(t, w, map[string]any{
				"content":  base64.StdEncoding.EncodeToString([]byte("old")),
				"encoding": "base64",
				"sha":      "existing-sha",
			})
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&putPayload); err != nil {
				t.Errorf("decoding PUT payload: %v", err)
			}
			fmt.Fprint(w, `{}`)
		}
	})

	store := testStore(t, mux)
	if err := store.Publish("solutions/solution_quadratic.md", "# Updated", "Update solution"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if putPayload["sha"] != "existing-sha" {
		t.Fatalf("updating an existing file must send its sha, got %q", putPayload["sha"])
	}
}

func TestUpdateIndexPrefersReadme(t *testing.T) {
	readme := "# Math Problem Solver\n\n## Recent Solutions\n\n"
	var published string

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/problems/contents/README.md", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSONBody(t, w, map[string]any{
				"content":  base64.StdEncoding.EncodeToString([]byte(readme)),
				"encoding": "base64",
				"sha":      "readme-sha",
			})
		case http.MethodPut:
			var payload map[string]string
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("decoding PUT payload: %v", err)
			}
			decoded, _ := base64.StdEncoding.DecodeString(payload["content"])
			published = string(decoded)
			fmt.Fprint(w, `{}`)
		}
	})

	store := testStore(t, mux)
	err := store.UpdateIndex(IndexEntry{
		ProblemName:    "quadratic.txt",
		Status:         "Solved Successfully",
		SolutionPath:   "solutions/solution_quadratic.md",
		ProcessingTime: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("UpdateIndex: %v", err)
	}
	if !strings.Contains(published, "quadratic.txt") {
		t.Fatalf("index entry missing from published page:\n%s", published)
	}
	if !strings.Contains(published, "solutions/solution_quadratic.md") {
		t.Fatalf("solution link missing from published page:\n%s", published)
	}
}

func TestUpdateIndexCreatesIndexPage(t *testing.T) {
	var createdPath string

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		case http.MethodPut:
			createdPath = strings.TrimPrefix(r.URL.Path, "/repos/owner/problems/contents/")
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{}`)
		}
	})

	store := testStore(t, mux)
	err := store.UpdateIndex(IndexEntry{ProblemName: "quadratic.txt", Status: "Solved Successfully"})
	if err != nil {
		t.Fatalf("UpdateIndex: %v", err)
	}
	if createdPath != "index.md" {
		t.Fatalf("created %q, want index.md", createdPath)
	}
}

func TestRepoStats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/problems", func(w http.ResponseWriter, r *http.Request) {
		writeJSONBody(t, w, map[string]any{"full_name": "owner/problems", "open_issues": 2})
	})

	store := testStore(t, mux)
	stats, err := store.RepoStats()
	if err != nil {
		t.Fatalf("RepoStats: %v", err)
	}
	if stats["full_name"] != "owner/problems" {
		t.Fatalf("stats = %v", stats)
	}
}
