package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// GitHubStore is the remote content-store client: it discovers new
// problem files from commit history, fetches their content, and
// publishes solution files back to the repository.
type GitHubStore struct {
	cfg     Config
	apiBase string // overridden in tests
}

func NewGitHubStore(cfg Config) *GitHubStore {
	return &GitHubStore{cfg: cfg, apiBase: "https://api.github.com"}
}

type githubCommitListItem struct {
	SHA    string `json:"sha"`
	Commit struct {
		Author struct {
			Date string `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

type githubCommitDetail struct {
	SHA   string `json:"sha"`
	Files []struct {
		Filename  string `json:"filename"`
		Status    string `json:"status"` // "added", "modified", "removed", ...
		Additions int    `json:"additions"`
		Deletions int    `json:"deletions"`
	} `json:"files"`
}

type githubContentsResponse struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
	SHA      string `json:"sha"`
	Path     string `json:"path"`
}

// ListNewItems returns problem files added or modified in the upload
// folder since the given time, deduplicated by path (newest commit
// wins since commits arrive newest-first).
func (s *GitHubStore) ListNewItems(since time.Time) ([]WorkItem, error) {
	listURL := fmt.Sprintf("%s/repos/%s/commits?sha=%s&since=%s&per_page=100",
		s.apiBase, s.cfg.Repository,
		url.QueryEscape(s.cfg.Branch), url.QueryEscape(since.UTC().Format(time.RFC3339)))

	body, err := s.get(listURL)
	if err != nil {
		return nil, fmt.Errorf("listing commits: %w", err)
	}

	var commits []githubCommitListItem
	if err := json.Unmarshal(body, &commits); err != nil {
		return nil, fmt.Errorf("parsing commit list: %w", err)
	}

	prefix := s.cfg.UploadFolder + "/"
	seen := make(map[string]bool)
	var items []WorkItem

	for _, c := range commits {
		detailURL := fmt.Sprintf("%s/repos/%s/commits/%s", s.apiBase, s.cfg.Repository, c.SHA)
		detailBody, err := s.get(detailURL)
		if err != nil {
			return nil, fmt.Errorf("fetching commit %s: %w", c.SHA, err)
		}

		var detail githubCommitDetail
		if err := json.Unmarshal(detailBody, &detail); err != nil {
			return nil, fmt.Errorf("parsing commit %s: %w", c.SHA, err)
		}

		committedAt, _ := time.Parse(time.RFC3339, c.Commit.Author.Date)

		for _, f := range detail.Files {
			if !strings.HasPrefix(f.Filename, prefix) {
				continue
			}
			if f.Status != "added" && f.Status != "modified" {
				continue
			}
			if !s.isSupportedFormat(f.Filename) {
				log.Printf("discover skipped unsupported path=%s", f.Filename)
				continue
			}
			if seen[f.Filename] {
				continue
			}
			seen[f.Filename] = true

			items = append(items, WorkItem{
				Path:        f.Filename,
				Name:        path.Base(f.Filename),
				CommitSHA:   c.SHA,
				CommittedAt: committedAt,
				Size:        f.Additions + f.Deletions,
				DownloadURL: fmt.Sprintf("%s/repos/%s/contents/%s", s.apiBase, s.cfg.Repository, f.Filename),
			})
			log.Printf("discover found path=%s commit=%.8s", f.Filename, c.SHA)
		}
	}

	return items, nil
}

// FetchFile downloads the current content of an item.
func (s *GitHubStore) FetchFile(item WorkItem) ([]byte, error) {
	contents, err := s.getContents(item.Path)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", item.Path, err)
	}
	return decodeContents(contents)
}

// Publish writes content to the given repo path, updating the file in
// place when it already exists so re-publishing the same logical path
// never duplicates.
func (s *GitHubStore) Publish(repoPath, content, message string) error {
	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(content)),
		"branch":  s.cfg.Branch,
	}
	if existing, err := s.getContents(repoPath); err == nil {
		payload["sha"] = existing.SHA
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling publish payload: %w", err)
	}

	putURL := fmt.Sprintf("%s/repos/%s/contents/%s", s.apiBase, s.cfg.Repository, repoPath)
	req, err := http.NewRequest("PUT", putURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	s.setHeaders(req)

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	respBody, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return fmt.Errorf("reading response: %w", readErr)
	}
	if resp.StatusCode != 200 && resp.StatusCode != 201 {
		return fmt.Errorf("GitHub API returned %d: %s", resp.StatusCode, string(respBody))
	}

	log.Printf("publish ok path=%s bytes=%d", repoPath, len(content))
	return nil
}

// UpdateIndex inserts a solution entry into the repository's landing
// page. It tries README.md then index.md, creating index.md with an
// initial page when neither exists.
func (s *GitHubStore) UpdateIndex(entry IndexEntry) error {
	var pagePath, pageContent string

	for _, candidate := range []string{"README.md", "index.md"} {
		contents, err := s.getContents(candidate)
		if err != nil {
			continue
		}
		data, err := decodeContents(contents)
		if err != nil {
			return fmt.Errorf("decoding %s: %w", candidate, err)
		}
		pagePath = candidate
		pageContent = string(data)
		break
	}

	if pagePath == "" {
		pagePath = "index.md"
		pageContent = initialIndexPage()
	}

	updated := addSolutionToIndexPage(pageContent, entry)
	message := fmt.Sprintf("Update index with solution: %s", entry.ProblemName)
	return s.Publish(pagePath, updated, message)
}

// RepoStats is the liveness probe used by status reporting.
func (s *GitHubStore) RepoStats() (map[string]any, error) {
	body, err := s.get(fmt.Sprintf("%s/repos/%s", s.apiBase, s.cfg.Repository))
	if err != nil {
		return nil, fmt.Errorf("fetching repo stats: %w", err)
	}
	var stats map[string]any
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("parsing repo stats: %w", err)
	}
	return stats, nil
}

func (s *GitHubStore) isSupportedFormat(filePath string) bool {
	ext := strings.ToLower(path.Ext(filePath))
	return containsString(s.cfg.SupportedFormats, ext)
}

func (s *GitHubStore) getContents(repoPath string) (*githubContentsResponse, error) {
	contentsURL := fmt.Sprintf("%s/repos/%s/contents/%s?ref=%s",
		s.apiBase, s.cfg.Repository, repoPath, url.QueryEscape(s.cfg.Branch))
	body, err := s.get(contentsURL)
	if err != nil {
		return nil, err
	}
	var contents githubContentsResponse
	if err := json.Unmarshal(body, &contents); err != nil {
		return nil, fmt.Errorf("parsing contents response: %w", err)
	}
	return &contents, nil
}

func (s *GitHubStore) get(rawURL string) ([]byte, error) {
	req, err := http.NewRequest("GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	s.setHeaders(req)

	resp, err := externalHTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("reading response: %w", readErr)
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("GitHub API returned %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func (s *GitHubStore) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.cfg.GitHubToken)
	req.Header.Set("Accept", "application/vnd.github+json")
}

func decodeContents(contents *githubContentsResponse) ([]byte, error) {
	if contents.Encoding == "base64" {
		// API base64 payloads contain newlines.
		cleaned := strings.ReplaceAll(contents.Content, "\n", "")
		data, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			return nil, fmt.Errorf("decoding base64 content: %w", err)
		}
		return data, nil
	}
	return []byte(contents.Content), nil
}
