package git

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// AuthProvider supplies credentials for a remote URL. A nil method with a nil
// error means the remote is accessed anonymously.
type AuthProvider interface {
	AuthMethod(ctx context.Context, remoteURL string) (transport.AuthMethod, error)
}

func (r *GoGitRepository) Remotes() ([]Remote, error) {
	remotes, err := r.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("listing remotes: %w", err)
	}

	result := make([]Remote, 0, len(remotes))
	for _, rem := range remotes {
		cfg := rem.Config()
		url := ""
		if len(cfg.URLs) > 0 {
			url = cfg.URLs[0]
		}
		result = append(result, Remote{Name: cfg.Name, URL: url})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result, nil
}

func (r *GoGitRepository) AddRemote(name, url string) error {
	_, err := r.repo.CreateRemote(&config.RemoteConfig{
		Name: name,
		URLs: []string{url},
	})
	if errors.Is(err, gogit.ErrRemoteExists) {
		return newError(KindAlreadyExists, name, errors.New("remote already exists"))
	}
	if err != nil {
		return newError(KindInvalidData, name, fmt.Errorf("adding remote: %w", err))
	}
	return nil
}

func (r *GoGitRepository) Fetch(ctx context.Context, remote, branch string) error {
	auth, err := r.authFor(ctx, remote)
	if err != nil {
		return err
	}

	spec := config.RefSpec(fmt.Sprintf("+%s%s:%s%s/%s", localBranchPrefix, branch, remoteTrackingBranchPrefix, remote, branch))
	err = r.repo.FetchContext(ctx, &gogit.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       auth,
	})

	var noMatch gogit.NoMatchingRefSpecError
	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
		return nil
	case errors.As(err, &noMatch):
		return newError(KindNotFound, remote+"/"+branch, errors.New("branch does not exist on remote"))
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return newError(KindNotFound, remote, err)
	default:
		return newError(KindEngine, remote, fmt.Errorf("fetching %s: %w", branch, err))
	}
}

func (r *GoGitRepository) Push(ctx context.Context, remote, branch string) error {
	if _, err := r.ResolveBranch(branch); err != nil {
		return err
	}

	auth, err := r.authFor(ctx, remote)
	if err != nil {
		return err
	}

	spec := config.RefSpec(fmt.Sprintf("%s%s:%s%s", localBranchPrefix, branch, localBranchPrefix, branch))
	err = r.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{spec},
		Auth:       auth,
	})

	switch {
	case err == nil, errors.Is(err, gogit.NoErrAlreadyUpToDate):
		return nil
	case isNonFastForward(err):
		return newError(KindEngine, branch, errors.New("non-fast-forward update rejected; pull first"))
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return newError(KindNotFound, remote, err)
	default:
		return newError(KindEngine, remote, fmt.Errorf("pushing %s: %w", branch, err))
	}
}

// isNonFastForward matches go-git's rejection of a push that would drop remote
// commits. Pull returns the ErrNonFastForwardUpdate sentinel, but the push
// path formats its own "non-fast-forward update: <ref>" error.
func isNonFastForward(err error) bool {
	return errors.Is(err, gogit.ErrNonFastForwardUpdate) ||
		strings.HasPrefix(err.Error(), gogit.ErrNonFastForwardUpdate.Error())
}

// authFor resolves the remote's URL and asks the provider for credentials.
func (r *GoGitRepository) authFor(ctx context.Context, remote string) (transport.AuthMethod, error) {
	rem, err := r.repo.Remote(remote)
	if errors.Is(err, gogit.ErrRemoteNotFound) {
		return nil, newError(KindNotFound, remote, errors.New("remote is not configured"))
	}
	if err != nil {
		return nil, fmt.Errorf("looking up remote %s: %w", remote, err)
	}

	if r.auth == nil || len(rem.Config().URLs) == 0 {
		return nil, nil
	}

	method, err := r.auth.AuthMethod(ctx, rem.Config().URLs[0])
	if err != nil {
		return nil, newError(KindEngine, remote, fmt.Errorf("resolving credentials: %w", err))
	}
	return method, nil
}
