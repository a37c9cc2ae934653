package docstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/calloway/fixport/internal/apperr"
	"github.com/calloway/fixport/internal/models"
)

// GitHubConfig locates the document file inside a GitHub repository.
type GitHubConfig struct {
	Owner  string
	Repo   string
	Path   string
	Branch string
	Token  string
	// BaseURL overrides the API host, for GitHub Enterprise and tests.
	BaseURL string
	Timeout time.Duration
}

// GitHub stores the document as a single file in a GitHub repository via
// the contents API. The file's blob SHA is the version token: a PUT that
// carries a stale SHA is refused by GitHub, which is the conditional write
// this store needs.
type GitHub struct {
	cfg    GitHubConfig
	client *http.Client
}

// NewGitHub creates a GitHub-backed store.
func NewGitHub(cfg GitHubConfig) *GitHub {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &GitHub{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *GitHub) contentsURL() string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		strings.TrimSuffix(g.cfg.BaseURL, "/"), g.cfg.Owner, g.cfg.Repo, g.cfg.Path)
}

func (g *GitHub) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}
}

// Read fetches the document and its blob SHA.
func (g *GitHub) Read(ctx context.Context) (*models.StoreDocument, string, error) {
	u := g.contentsURL() + "?ref=" + url.QueryEscape(g.cfg.Branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, "", fmt.Errorf("docstore: github read: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("docstore: github read: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, "", fmt.Errorf("docstore: github read %s: %w", g.cfg.Path, apperr.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, "", fmt.Errorf("docstore: github read %s: status %d", g.cfg.Path, resp.StatusCode)
	}

	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
		SHA      string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, "", fmt.Errorf("docstore: github read: decode response: %w", err)
	}
	if payload.Encoding != "base64" {
		return nil, "", fmt.Errorf("docstore: github read: unexpected encoding %q", payload.Encoding)
	}
	// The contents API wraps base64 at 60 columns.
	raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return nil, "", fmt.Errorf("docstore: github read: decode content: %w", err)
	}

	var doc models.StoreDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", fmt.Errorf("docstore: github read: parse document: %w", err)
	}
	return &doc, payload.SHA, nil
}

// WriteIf commits the document conditioned on expectedToken (the blob SHA
// from the preceding Read). GitHub refuses the PUT with 409 when the file
// changed since that read. Transport failures and 5xx responses are
// reported as indeterminate: the commit may or may not have landed.
func (g *GitHub) WriteIf(ctx context.Context, doc *models.StoreDocument, expectedToken, message, _ string) (WriteResult, error) {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return WriteResult{}, fmt.Errorf("docstore: github write: marshal document: %w", err)
	}

	body := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(append(raw, '\n')),
		"branch":  g.cfg.Branch,
	}
	if expectedToken != "" {
		body["sha"] = expectedToken
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return WriteResult{}, fmt.Errorf("docstore: github write: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, g.contentsURL(), bytes.NewReader(encoded))
	if err != nil {
		return WriteResult{}, fmt.Errorf("docstore: github write: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// The request may have reached GitHub before the failure.
		return WriteResult{}, fmt.Errorf("docstore: github write: %v: %w", err, apperr.ErrIndeterminate)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		// Parsed below.
	case resp.StatusCode == http.StatusConflict:
		return WriteResult{}, fmt.Errorf("docstore: github write %s: document changed since read: %w", g.cfg.Path, apperr.ErrConflict)
	case resp.StatusCode == http.StatusUnprocessableEntity && expectedToken == "":
		// A sha-less PUT is refused with 422 when the file already exists,
		// which is how the loser of a first-write race finds out.
		return WriteResult{}, fmt.Errorf("docstore: github write %s: file created since read: %w", g.cfg.Path, apperr.ErrConflict)
	case resp.StatusCode >= 500:
		return WriteResult{}, fmt.Errorf("docstore: github write %s: status %d: %w", g.cfg.Path, resp.StatusCode, apperr.ErrIndeterminate)
	default:
		return WriteResult{}, fmt.Errorf("docstore: github write %s: status %d", g.cfg.Path, resp.StatusCode)
	}

	var payload struct {
		Content struct {
			SHA string `json:"sha"`
		} `json:"content"`
		Commit struct {
			SHA string `json:"sha"`
		} `json:"commit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return WriteResult{}, fmt.Errorf("docstore: github write: decode response: %w", err)
	}
	return WriteResult{
		Token:     payload.Content.SHA,
		CommitRef: payload.Commit.SHA,
		Path:      g.cfg.Path,
	}, nil
}
