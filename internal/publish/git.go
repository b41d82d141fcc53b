// Package publish commits and pushes the data directory after each run.
package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.uber.org/zap"
)

// GitPublisher stages all changes, commits, and pushes to the configured
// remote. Every step is best-effort from the run's point of view: the
// caller logs a returned error and moves on.
type GitPublisher struct {
	repoDir     string
	authorName  string
	authorEmail string
	logger      *zap.Logger
}

func NewGitPublisher(repoDir, authorName, authorEmail string, logger *zap.Logger) *GitPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitPublisher{
		repoDir:     repoDir,
		authorName:  authorName,
		authorEmail: authorEmail,
		logger:      logger,
	}
}

// Publish stages everything under the repo, commits with the given message,
// and pushes. A clean worktree or an already-up-to-date remote is success,
// not an error.
func (p *GitPublisher) Publish(ctx context.Context, message string) error {
	repo, err := git.PlainOpen(p.repoDir)
	if err != nil {
		return fmt.Errorf("open repo %s: %w", p.repoDir, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	if err := worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return fmt.Errorf("worktree status: %w", err)
	}
	if status.IsClean() {
		p.logger.Info("nothing to commit")
		return nil
	}

	commit, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  p.authorName,
			Email: p.authorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if err := repo.PushContext(ctx, &git.PushOptions{}); err != nil {
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			p.logger.Info("remote already up to date", zap.String("commit", commit.String()))
			return nil
		}
		return fmt.Errorf("push: %w", err)
	}

	p.logger.Info("data published", zap.String("commit", commit.String()))
	return nil
}
