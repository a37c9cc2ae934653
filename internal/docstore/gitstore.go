package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/calloway/fixport/internal/apperr"
	"github.com/calloway/fixport/internal/models"
)

// GitConfig locates the document inside a local git repository.
type GitConfig struct {
	Dir         string
	File        string
	Branch      string
	AuthorName  string
	AuthorEmail string
}

// Git stores the document in a local git repository, one commit per write.
// The branch head commit hash is the version token. Writes are serialized
// by a mutex within this process; the token comparison still guards
// against stale reads across processes sharing the repository.
type Git struct {
	cfg GitConfig
	mu  sync.Mutex
}

// NewGit opens (or initializes) the repository at cfg.Dir.
func NewGit(cfg GitConfig) (*Git, error) {
	if cfg.File == "" {
		cfg.File = "published-fixes.json"
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = "fixport"
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = "fixport@localhost"
	}

	if _, err := git.PlainOpen(cfg.Dir); err != nil {
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("docstore: open repo: %w", err)
		}
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("docstore: create repo dir: %w", err)
		}
		if _, err := git.PlainInit(cfg.Dir, false); err != nil {
			return nil, fmt.Errorf("docstore: init repo: %w", err)
		}
	}
	return &Git{cfg: cfg}, nil
}

// Read returns the document at the branch head and the head commit hash.
func (g *Git) Read(_ context.Context) (*models.StoreDocument, string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	repo, err := git.PlainOpen(g.cfg.Dir)
	if err != nil {
		return nil, "", fmt.Errorf("docstore: open repo: %w", err)
	}
	ref, err := repo.Reference(plumbing.NewBranchReferenceName(g.cfg.Branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, "", fmt.Errorf("docstore: git read %s: %w", g.cfg.File, apperr.ErrNotFound)
		}
		return nil, "", fmt.Errorf("docstore: resolve branch %s: %w", g.cfg.Branch, err)
	}
	commitObj, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return nil, "", fmt.Errorf("docstore: load head commit: %w", err)
	}
	file, err := commitObj.File(g.cfg.File)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, "", fmt.Errorf("docstore: git read %s: %w", g.cfg.File, apperr.ErrNotFound)
		}
		return nil, "", fmt.Errorf("docstore: load %s from commit: %w", g.cfg.File, err)
	}
	reader, err := file.Reader()
	if err != nil {
		return nil, "", fmt.Errorf("docstore: open document reader: %w", err)
	}
	defer reader.Close()
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("docstore: read document: %w", err)
	}

	var doc models.StoreDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", fmt.Errorf("docstore: parse document: %w", err)
	}
	return &doc, ref.Hash().String(), nil
}

// WriteIf commits the document when expectedToken matches the current
// branch head.
func (g *Git) WriteIf(_ context.Context, doc *models.StoreDocument, expectedToken, message, author string) (WriteResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	repo, err := git.PlainOpen(g.cfg.Dir)
	if err != nil {
		return WriteResult{}, fmt.Errorf("docstore: open repo: %w", err)
	}

	branchRef := plumbing.NewBranchReferenceName(g.cfg.Branch)
	current := ""
	firstWrite := true
	if ref, refErr := repo.Reference(branchRef, true); refErr == nil {
		current = ref.Hash().String()
		firstWrite = false
	}
	if expectedToken != current {
		return WriteResult{}, fmt.Errorf("docstore: git write %s: token %q is stale: %w", g.cfg.File, expectedToken, apperr.ErrConflict)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return WriteResult{}, fmt.Errorf("docstore: open worktree: %w", err)
	}
	if !firstWrite {
		if err := worktree.Checkout(&git.CheckoutOptions{Branch: branchRef, Force: true}); err != nil {
			return WriteResult{}, fmt.Errorf("docstore: checkout %s: %w", g.cfg.Branch, err)
		}
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return WriteResult{}, fmt.Errorf("docstore: marshal document: %w", err)
	}
	if err := os.WriteFile(filepath.Join(g.cfg.Dir, g.cfg.File), append(raw, '\n'), 0o644); err != nil {
		return WriteResult{}, fmt.Errorf("docstore: write document: %w", err)
	}
	if _, err := worktree.Add(g.cfg.File); err != nil {
		return WriteResult{}, fmt.Errorf("docstore: git add: %w", err)
	}

	name := g.cfg.AuthorName
	if author != "" {
		name = author
	}
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  name,
			Email: g.cfg.AuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return WriteResult{}, fmt.Errorf("docstore: commit document: %w", err)
	}

	if firstWrite {
		if err := repo.Storer.SetReference(plumbing.NewHashReference(branchRef, hash)); err != nil {
			return WriteResult{}, fmt.Errorf("docstore: set branch ref: %w", err)
		}
		if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, branchRef)); err != nil {
			return WriteResult{}, fmt.Errorf("docstore: set HEAD: %w", err)
		}
	}

	return WriteResult{Token: hash.String(), CommitRef: hash.String(), Path: g.cfg.File}, nil
}
