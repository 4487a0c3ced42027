package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
)

// Pusher commits and pushes the publish outputs of a work directory. It
// reports changed=false only when there was nothing to commit and the
// remote already had every local commit.
type Pusher interface {
	Push(ctx context.Context, workDir, message string) (changed bool, err error)
}

// GitPusher implements Pusher with go-git.
type GitPusher struct {
	RemoteName  string
	AuthorName  string
	AuthorEmail string
	Auth        transport.AuthMethod
}

// NewGitPusher returns a pusher for the "origin" remote. A non-empty token
// is sent with HTTP basic auth.
func NewGitPusher(authorName, token string) *GitPusher {
	p := &GitPusher{
		RemoteName:  "origin",
		AuthorName:  authorName,
		AuthorEmail: "publish@clapp.local",
	}
	if p.AuthorName == "" {
		p.AuthorName = "clapp"
	}
	p.Auth = TokenAuth(token)
	return p
}

// TokenAuth returns HTTP basic auth carrying token, or nil for an empty
// token.
func TokenAuth(token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &http.BasicAuth{Username: "clapp", Password: token}
}

// Push stages packages/, dist/ and index.json, commits them when anything
// changed and pushes to the configured remote. Commits left behind by a
// failed push are pushed on the next call.
func (p *GitPusher) Push(ctx context.Context, workDir, message string) (bool, error) {
	repo, err := git.PlainOpen(workDir)
	if err != nil {
		return false, fmt.Errorf("opening git repository %s: %w", workDir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("opening worktree: %w", err)
	}

	for _, path := range []string{PackagesDir, DistDir, IndexFile} {
		if _, err := os.Stat(filepath.Join(workDir, path)); err != nil {
			continue
		}
		if err := wt.AddWithOptions(&git.AddOptions{Path: path}); err != nil {
			return false, fmt.Errorf("staging %s: %w", path, err)
		}
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("reading git status: %w", err)
	}
	committed := hasStaged(status)
	if committed {
		_, err = wt.Commit(message, &git.CommitOptions{
			Author: &object.Signature{Name: p.AuthorName, Email: p.AuthorEmail, When: time.Now()},
		})
		if err != nil {
			return false, fmt.Errorf("committing: %w", err)
		}
	}

	// Push even without a new commit: an earlier run may have committed
	// and then failed to push.
	err = repo.PushContext(ctx, &git.PushOptions{RemoteName: p.RemoteName, Auth: p.Auth})
	switch {
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return committed, nil
	case err != nil:
		return committed, fmt.Errorf("pushing to %s: %w", p.RemoteName, err)
	}
	return true, nil
}

func hasStaged(status git.Status) bool {
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			return true
		}
	}
	return false
}
