// Package history reads release-relevant commit history from the contracts
// repository through go-git: resolving the previous release tag and
// collecting the commit messages between two releases. It is the pipeline's
// commit history provider; the changelog package consumes its output.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/ISTIFANUS-N/strellerminds-release/version"
)

// ErrNotRepository is returned when the given path does not contain a git
// repository.
var ErrNotRepository = errors.New("not a git repository")

// Repo provides read access to the contracts repository history.
type Repo struct {
	repo *git.Repository
}

// Open opens the repository at path.
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrNotRepository, path)
		}
		return nil, fmt.Errorf("failed to open repository %s: %w", path, err)
	}
	return &Repo{repo: repo}, nil
}

// NewFromRepository wraps an already-open go-git repository. Tests use
// this with in-memory repositories.
func NewFromRepository(repo *git.Repository) *Repo {
	return &Repo{repo: repo}
}

// PreviousTag returns the highest release tag strictly below current by
// semantic version precedence. Pre-release tags count. Tags that do not
// follow the release tag grammar are ignored. ok is false when no earlier
// release tag exists.
func (r *Repo) PreviousTag(ctx context.Context, current version.Tag) (prev version.Tag, ok bool, err error) {
	refs, err := r.repo.References()
	if err != nil {
		return version.Tag{}, false, fmt.Errorf("failed to list references: %w", err)
	}
	defer refs.Close()

	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ref.Name().IsTag() {
			return nil
		}

		tag, perr := version.Parse(ref.Name().Short())
		if perr != nil {
			return nil // not a release tag
		}
		if tag.Compare(current) >= 0 {
			return nil
		}
		if !ok || tag.Compare(prev) > 0 {
			prev, ok = tag, true
		}
		return nil
	})
	if err != nil {
		return version.Tag{}, false, fmt.Errorf("failed to iterate tags: %w", err)
	}
	return prev, ok, nil
}

// Messages returns the commit messages reachable from "to" but not from
// "from", ordered oldest first. An empty "from" means repository start;
// an empty "to" means HEAD. Both accept any revision go-git can resolve
// (tag name, branch, hash).
//
// The range is a reachability difference, not a linear walk: the
// ancestors of "from" are collected first and skipped while walking from
// "to". Stopping at the first sight of "from" would drop every unvisited
// parent on a merge history, losing side-branch commits from the
// changelog.
func (r *Repo) Messages(ctx context.Context, from, to string) ([]string, error) {
	toHash, err := r.resolve(to)
	if err != nil {
		return nil, err
	}

	var excluded map[plumbing.Hash]struct{}
	if from != "" {
		fromHash, err := r.resolve(from)
		if err != nil {
			return nil, err
		}
		excluded, err = r.ancestors(ctx, *fromHash)
		if err != nil {
			return nil, err
		}
	}

	iter, err := r.repo.Log(&git.LogOptions{From: *toHash})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history: %w", err)
	}
	defer iter.Close()

	var messages []string
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := excluded[c.Hash]; ok {
			return nil
		}
		messages = append(messages, c.Message)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}

	// git log walks newest first; the changelog wants commit order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Changes collects the commit messages since the previous release tag, or
// from repository start when this is the first release. When the current
// tag is not yet present locally the walk starts at HEAD, which is where
// a tag push points the moment the pipeline runs.
func (r *Repo) Changes(ctx context.Context, current version.Tag) ([]string, error) {
	to := current.String()
	if _, err := r.resolve(to); err != nil {
		to = "" // tag not fetched locally, fall back to HEAD
	}

	prev, ok, err := r.PreviousTag(ctx, current)
	if err != nil {
		return nil, err
	}

	from := ""
	if ok {
		from = prev.String()
	}
	return r.Messages(ctx, from, to)
}

// ancestors returns every commit hash reachable from start, start
// included.
func (r *Repo) ancestors(ctx context.Context, start plumbing.Hash) (map[plumbing.Hash]struct{}, error) {
	iter, err := r.repo.Log(&git.LogOptions{From: start})
	if err != nil {
		return nil, fmt.Errorf("failed to walk history: %w", err)
	}
	defer iter.Close()

	set := make(map[plumbing.Hash]struct{})
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		set[c.Hash] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to iterate commits: %w", err)
	}
	return set, nil
}

// resolve maps a revision to a commit hash. Empty means HEAD. Annotated
// tags are peeled to their target commit.
func (r *Repo) resolve(rev string) (*plumbing.Hash, error) {
	if rev == "" {
		rev = "HEAD"
	}
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve revision %q: %w", rev, err)
	}

	if tag, err := r.repo.TagObject(*hash); err == nil {
		commit, err := tag.Commit()
		if err != nil {
			return nil, fmt.Errorf("cannot peel tag %q: %w", rev, err)
		}
		h := commit.Hash
		return &h, nil
	}
	return hash, nil
}
