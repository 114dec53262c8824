package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/dvc-connector/internal/logging"
)

const (
	defaultRemote = "origin"
	defaultBranch = "master"
)

// Mirror describes a local working copy after synchronization.
type Mirror struct {
	Name   string
	Path   string
	Head   string
	Cloned bool
}

// Options configures which remote branch a Synchronizer tracks.
type Options struct {
	Remote string
	Branch string
}

// Synchronizer brings mirrors in line with their remote branch.
type Synchronizer struct {
	store  *Store
	remote string
	branch string
	logger *logging.Logger
}

// NewSynchronizer creates a synchronizer over store. Empty options fall back
// to origin/master.
func NewSynchronizer(store *Store, opts Options, logger *logging.Logger) *Synchronizer {
	if opts.Remote == "" {
		opts.Remote = defaultRemote
	}
	if opts.Branch == "" {
		opts.Branch = defaultBranch
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Synchronizer{
		store:  store,
		remote: opts.Remote,
		branch: opts.Branch,
		logger: logger.Named("mirror"),
	}
}

// EnsureSynced clones url into the mirror for name when it does not exist yet,
// then fetches the remote and hard-resets the worktree to <remote>/<branch>.
// Local modifications to tracked files are discarded.
func (s *Synchronizer) EnsureSynced(ctx context.Context, name, url string) (*Mirror, error) {
	path, err := s.store.Path(name)
	if err != nil {
		return nil, err
	}

	ctx = logging.WithRepository(ctx, name)
	m := &Mirror{Name: name, Path: path}

	var repo *git.Repository
	if s.store.Exists(name) {
		s.logger.Info(ctx, "using existing repository", zap.String("path", path))
		repo, err = git.PlainOpen(path)
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %v", ErrSync, path, err)
		}
	} else {
		s.logger.Info(ctx, "cloning repository", zap.String("url", url), zap.String("path", path))
		repo, err = s.clone(ctx, name, url, path)
		if err != nil {
			return nil, err
		}
		m.Cloned = true
	}

	head, err := s.update(ctx, repo)
	if err != nil {
		return nil, err
	}
	m.Head = head.String()

	s.logger.Debug(ctx, "repository synchronized",
		zap.String("head", m.Head),
		zap.Bool("cloned", m.Cloned),
	)
	return m, nil
}

// clone populates a temporary sibling directory and renames it into place,
// so a failed clone never leaves a partial mirror at path.
func (s *Synchronizer) clone(ctx context.Context, name, url, path string) (*git.Repository, error) {
	if err := s.store.Setup(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClone, err)
	}

	tmp, err := os.MkdirTemp(s.store.Root(), "."+name+".clone-")
	if err != nil {
		return nil, fmt.Errorf("%w: creating staging directory: %v", ErrClone, err)
	}

	_, err = git.PlainCloneContext(ctx, tmp, false, &git.CloneOptions{
		URL:        url,
		RemoteName: s.remote,
		NoCheckout: true,
	})
	if err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fmt.Errorf("%w: %s: %v", ErrClone, url, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.RemoveAll(tmp)
		return nil, fmt.Errorf("%w: moving clone into place: %v", ErrClone, err)
	}

	repo, err := git.PlainOpen(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", ErrClone, path, err)
	}
	return repo, nil
}

// update fetches every branch of the remote and hard-resets the local
// tracking branch, index and worktree to the remote tip.
func (s *Synchronizer) update(ctx context.Context, repo *git.Repository) (plumbing.Hash, error) {
	refSpec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", s.remote))
	err := repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: s.remote,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Tags:       git.AllTags,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return plumbing.ZeroHash, fmt.Errorf("%w: fetching %s: %v", ErrSync, s.remote, err)
	}

	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName(s.remote, s.branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return plumbing.ZeroHash, fmt.Errorf("%w: %w: %s/%s", ErrSync, ErrBranchNotFound, s.remote, s.branch)
		}
		return plumbing.ZeroHash, fmt.Errorf("%w: resolving %s/%s: %v", ErrSync, s.remote, s.branch, err)
	}
	target := remoteRef.Hash()

	// Point HEAD at the local branch before resetting so the reset moves that branch.
	local := plumbing.NewBranchReferenceName(s.branch)
	if err := repo.Storer.SetReference(plumbing.NewHashReference(local, target)); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: updating %s: %v", ErrSync, local, err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, local)); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: updating HEAD: %v", ErrSync, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: opening worktree: %v", ErrSync, err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: target, Mode: git.HardReset}); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("%w: resetting to %s: %v", ErrSync, target, err)
	}

	return target, nil
}
