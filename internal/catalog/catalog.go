// Package catalog manages the local checkout of the package repository that
// "clapp publish" writes into. It clones the repository with go-git, pulls
// updates and tracks how fresh the checkout is.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/clapp-dev/clapp/internal/branding"
)

const (
	// freshnessFile is the name of the timestamp marker file. It lives in
	// .git so it never ends up in a publish commit.
	freshnessFile = "clapp-updated"

	// DefaultMaxAge is the staleness threshold used before publishing.
	DefaultMaxAge = 7 * 24 * time.Hour

	// tmpSuffix is appended to the target dir during atomic clone.
	tmpSuffix = ".tmp"
)

// ErrNotCheckout is returned when a directory is not a git checkout.
var ErrNotCheckout = errors.New("not a git checkout")

// DefaultRepoURL returns the clone URL of the package repository named in
// branding.yaml.
func DefaultRepoURL() string {
	return "https://github.com/" + branding.GitHubRepo() + ".git"
}

// Clone clones repoURL into targetDir. The clone is atomic: it writes to a
// .tmp directory first and renames it on success. An existing non-empty
// targetDir is never overwritten.
func Clone(ctx context.Context, repoURL, targetDir string, auth transport.AuthMethod) error {
	if entries, err := os.ReadDir(targetDir); err == nil && len(entries) > 0 {
		return fmt.Errorf("%s already exists and is not empty", targetDir)
	}

	tmpDir := targetDir + tmpSuffix
	_ = os.RemoveAll(tmpDir)
	if err := os.MkdirAll(filepath.Dir(tmpDir), 0755); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	_, err := git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:  repoURL,
		Auth: auth,
	})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("cloning %s: %w", repoURL, err)
	}

	// An empty targetDir may exist; Rename cannot replace it.
	_ = os.Remove(targetDir)
	if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return fmt.Errorf("finalizing clone: %w", err)
	}

	WriteFreshnessMarker(targetDir)
	return nil
}

// Update pulls the latest changes into the checkout at dir. It reports
// whether anything changed.
func Update(ctx context.Context, dir string, auth transport.AuthMethod) (bool, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return false, fmt.Errorf("%s: %w", dir, ErrNotCheckout)
		}
		return false, fmt.Errorf("opening %s: %w", dir, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("opening worktree: %w", err)
	}

	err = wt.PullContext(ctx, &git.PullOptions{RemoteName: "origin", Auth: auth})
	switch {
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		WriteFreshnessMarker(dir)
		return false, nil
	case err != nil:
		return false, fmt.Errorf("pulling updates: %w", err)
	}
	WriteFreshnessMarker(dir)
	return true, nil
}

// Status describes a checkout for display.
type Status struct {
	Dir         string    `json:"dir"`
	Checkout    bool      `json:"checkout"`
	Remote      string    `json:"remote,omitempty"`
	Head        string    `json:"head,omitempty"`
	LastUpdated time.Time `json:"last_updated"`
	Stale       bool      `json:"stale"`
}

// Inspect reports the state of the checkout at dir. A directory that is not
// a git checkout yields Checkout=false and no error.
func Inspect(dir string) (*Status, error) {
	st := &Status{Dir: dir}
	repo, err := git.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return st, nil
		}
		return nil, fmt.Errorf("opening %s: %w", dir, err)
	}
	st.Checkout = true
	if rem, err := repo.Remote("origin"); err == nil && len(rem.Config().URLs) > 0 {
		st.Remote = rem.Config().URLs[0]
	}
	if head, err := repo.Head(); err == nil {
		st.Head = head.Hash().String()[:7]
	}
	st.LastUpdated = ReadFreshnessMarker(dir)
	st.Stale = IsStale(dir, DefaultMaxAge)
	return st, nil
}

// WriteFreshnessMarker writes the current Unix timestamp to the freshness file.
func WriteFreshnessMarker(dir string) {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	_ = os.WriteFile(markerPath(dir), []byte(ts), 0644)
}

// ReadFreshnessMarker reads the timestamp from the freshness file.
// Returns zero time if the file doesn't exist or can't be parsed.
func ReadFreshnessMarker(dir string) time.Time {
	data, err := os.ReadFile(markerPath(dir))
	if err != nil {
		return time.Time{}
	}
	ts, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(ts, 0)
}

// IsStale returns true if the checkout was last updated more than maxAge ago.
// Returns true if the freshness marker doesn't exist.
func IsStale(dir string, maxAge time.Duration) bool {
	lastUpdated := ReadFreshnessMarker(dir)
	if lastUpdated.IsZero() {
		return true
	}
	return time.Since(lastUpdated) > maxAge
}

func markerPath(dir string) string {
	return filepath.Join(dir, ".git", freshnessFile)
}
